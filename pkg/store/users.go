package store

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role is a user's authorization level. User < Moderator < Admin.
type Role uint8

const (
	RoleUser      Role = 1
	RoleModerator Role = 2
	RoleAdmin     Role = 3
)

// Valid reports whether r is one of the three defined roles
func (r Role) Valid() bool {
	return r >= RoleUser && r <= RoleAdmin
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleModerator:
		return "Moderator"
	default:
		return "User"
	}
}

// MaxUsernameLength is the maximum username length in characters
const MaxUsernameLength = 20

// user is the internal record. Passwords are stored as bcrypt hashes, never
// plaintext. Mute expiries are keyed by channel name so channel deletion and
// index compaction cannot silently transfer a mute to another channel.
type user struct {
	id           int
	username     string
	email        string
	passwordHash []byte
	role         Role
	online       bool
	mutedUntil   map[string]time.Time
}

// UserInfo is a read-only snapshot of one user, safe to use outside the lock
type UserInfo struct {
	ID       int
	Username string
	Email    string
	Role     Role
	Online   bool
}

func (u *user) info() UserInfo {
	return UserInfo{
		ID:       u.id,
		Username: u.username,
		Email:    u.email,
		Role:     u.role,
		Online:   u.online,
	}
}

// Users is the registry of all registered accounts. Users are created on
// registration and never deleted; the user ID is the registration index.
// All access goes through the mutex - the backing slice is resized in place,
// so there are no lock-free reads.
type Users struct {
	mu       sync.Mutex
	capacity int
	users    []*user
	byName   map[string]int
}

// NewUsers creates an empty user registry holding at most capacity accounts
func NewUsers(capacity int) *Users {
	return &Users{
		capacity: capacity,
		byName:   make(map[string]int),
	}
}

// Create registers a new account with role User. The password is hashed with
// bcrypt before storage.
func (s *Users) Create(username, email, password string) (UserInfo, error) {
	if strings.TrimSpace(username) == "" {
		return UserInfo{}, ErrEmptyUsername
	}
	if len(username) > MaxUsernameLength {
		return UserInfo{}, ErrUsernameTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return UserInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[username]; exists {
		return UserInfo{}, ErrDuplicateUsername
	}
	if len(s.users) >= s.capacity {
		return UserInfo{}, ErrUserTableFull
	}

	u := &user{
		id:           len(s.users),
		username:     username,
		email:        email,
		passwordHash: hash,
		role:         RoleUser,
		mutedUntil:   make(map[string]time.Time),
	}
	s.users = append(s.users, u)
	s.byName[username] = u.id

	return u.info(), nil
}

// Authenticate verifies a username/password pair. The comparison is
// constant-time via bcrypt. Lookup miss and password mismatch are
// indistinguishable to the caller.
func (s *Users) Authenticate(username, password string) (UserInfo, error) {
	s.mu.Lock()
	u, ok := s.lookup(username)
	if !ok {
		s.mu.Unlock()
		// Burn a comparison anyway so a missing user costs the same as a
		// wrong password.
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return UserInfo{}, ErrInvalidCredentials
	}
	hash := u.passwordHash
	info := u.info()
	s.mu.Unlock()

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return UserInfo{}, ErrInvalidCredentials
	}
	return info, nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dispute-dummy"), bcrypt.MinCost)

// Get returns a snapshot of the named user
func (s *Users) Get(username string) (UserInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.lookup(username)
	if !ok {
		return UserInfo{}, ErrUserNotFound
	}
	return u.info(), nil
}

// GetByID returns a snapshot of the user with the given registration index
func (s *Users) GetByID(id int) (UserInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id < 0 || id >= len(s.users) {
		return UserInfo{}, ErrUserNotFound
	}
	return s.users[id].info(), nil
}

// SetRole changes a user's role to one of the three defined values
func (s *Users) SetRole(username string, role Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.lookup(username)
	if !ok {
		return ErrUserNotFound
	}
	u.role = role
	return nil
}

// SetOnline flips a user's online flag
func (s *Users) SetOnline(id int, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id < 0 || id >= len(s.users) {
		return ErrUserNotFound
	}
	s.users[id].online = online
	return nil
}

// SetMute stores a mute expiry for the (user, channel) pair. A zero until
// clears the mute.
func (s *Users) SetMute(username, channel string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.lookup(username)
	if !ok {
		return ErrUserNotFound
	}
	if until.IsZero() {
		delete(u.mutedUntil, channel)
		return nil
	}
	u.mutedUntil[channel] = until
	return nil
}

// IsMuted reports whether a user's posts in a channel are suppressed at the
// given instant. A mute is active while mutedUntil > now; the exact expiry
// instant counts as expired.
func (s *Users) IsMuted(username, channel string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.lookup(username)
	if !ok {
		return false
	}
	until, ok := u.mutedUntil[channel]
	return ok && until.After(now)
}

// Snapshot returns all users in registration order
func (s *Users) Snapshot() []UserInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]UserInfo, len(s.users))
	for i, u := range s.users {
		out[i] = u.info()
	}
	return out
}

// Count returns the number of registered users
func (s *Users) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// lookup must be called with the mutex held
func (s *Users) lookup(username string) (*user, bool) {
	id, ok := s.byName[username]
	if !ok {
		return nil, false
	}
	return s.users[id], true
}
