package server

import (
	"errors"
	"net"
	"sync"
)

var (
	// ErrServerFull is returned when the session table has no free slot
	ErrServerFull = errors.New("connection table full")

	// ErrAlreadyConnected is returned when a user authenticates while
	// another session already holds their account
	ErrAlreadyConnected = errors.New("user already connected")
)

// Session represents one live client connection. A session starts
// unauthenticated (userID -1) and binds to a user on successful AUTH or
// REGISTER.
type Session struct {
	ID         uint64
	Conn       *SafeConn
	RemoteAddr string

	mu            sync.RWMutex // Protects the authentication state below
	userID        int
	username      string
	authenticated bool
}

// Auth returns the session's authentication state as one consistent snapshot
func (s *Session) Auth() (userID int, username string, authenticated bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.username, s.authenticated
}

// Authenticated reports whether the session has bound to a user
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// SessionManager is the fixed-capacity connection table. Allocation happens
// on accept, release on disconnect; when all slots are taken new connections
// are refused.
type SessionManager struct {
	mu       sync.RWMutex
	capacity int
	sessions map[uint64]*Session
	byUser   map[int]uint64 // userID -> sessionID, one session per user
	nextID   uint64
	metrics  *Metrics
}

// NewSessionManager creates a session table with the given slot capacity
func NewSessionManager(capacity int) *SessionManager {
	return &SessionManager{
		capacity: capacity,
		sessions: make(map[uint64]*Session),
		byUser:   make(map[int]uint64),
		nextID:   1,
	}
}

// SetMetrics attaches metrics to the session manager
func (sm *SessionManager) SetMetrics(metrics *Metrics) {
	sm.metrics = metrics
}

// Create allocates a session slot for a new connection. Returns
// ErrServerFull when the table is at capacity; the caller closes the socket.
func (sm *SessionManager) Create(conn net.Conn) (*Session, error) {
	sm.mu.Lock()
	if len(sm.sessions) >= sm.capacity {
		sm.mu.Unlock()
		if sm.metrics != nil {
			sm.metrics.RecordConnectionRejected()
		}
		return nil, ErrServerFull
	}

	sess := &Session{
		ID:         sm.nextID,
		Conn:       NewSafeConn(conn),
		RemoteAddr: conn.RemoteAddr().String(),
		userID:     -1,
	}
	sm.nextID++
	sm.sessions[sess.ID] = sess
	count := len(sm.sessions)
	sm.mu.Unlock()

	if sm.metrics != nil {
		sm.metrics.RecordActiveSessions(count)
		sm.metrics.RecordSessionCreated()
	}
	return sess, nil
}

// BindUser marks a session authenticated and claims the user's slot in the
// routing index. Fails with ErrAlreadyConnected if another live session
// already holds the user, keeping per-user routing unambiguous.
func (sm *SessionManager) BindUser(sess *Session, userID int, username string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if existing, ok := sm.byUser[userID]; ok && existing != sess.ID {
		return ErrAlreadyConnected
	}
	sm.byUser[userID] = sess.ID

	sess.mu.Lock()
	sess.userID = userID
	sess.username = username
	sess.authenticated = true
	sess.mu.Unlock()

	return nil
}

// Get returns a session by ID
func (sm *SessionManager) Get(sessionID uint64) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sess, ok := sm.sessions[sessionID]
	return sess, ok
}

// FindByUser returns the session currently bound to a user, if any
func (sm *SessionManager) FindByUser(userID int) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sessID, ok := sm.byUser[userID]
	if !ok {
		return nil, false
	}
	sess, ok := sm.sessions[sessID]
	return sess, ok
}

// All returns all active sessions
func (sm *SessionManager) All() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sessions := make([]*Session, 0, len(sm.sessions))
	for _, sess := range sm.sessions {
		sessions = append(sessions, sess)
	}
	return sessions
}

// Remove releases a session's slot and closes its connection. Returns the
// removed session so the caller can run disconnect cleanup, or nil if the
// session was already gone.
func (sm *SessionManager) Remove(sessionID uint64) *Session {
	sm.mu.Lock()
	sess, ok := sm.sessions[sessionID]
	if !ok {
		sm.mu.Unlock()
		return nil
	}
	delete(sm.sessions, sessionID)

	sess.mu.RLock()
	userID := sess.userID
	authenticated := sess.authenticated
	sess.mu.RUnlock()

	if authenticated {
		if bound, ok := sm.byUser[userID]; ok && bound == sessionID {
			delete(sm.byUser, userID)
		}
	}
	count := len(sm.sessions)
	sm.mu.Unlock()

	if sm.metrics != nil {
		sm.metrics.RecordActiveSessions(count)
		sm.metrics.RecordSessionDisconnected()
	}

	sess.Conn.Close()
	return sess
}

// Count returns the number of active sessions
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// CloseAll closes every session's connection and clears the table. Closing
// the sockets unblocks each worker's pending read, which drives its normal
// cleanup path.
func (sm *SessionManager) CloseAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for _, sess := range sm.sessions {
		sess.Conn.Close()
	}
	sm.sessions = make(map[uint64]*Session)
	sm.byUser = make(map[int]uint64)
}
