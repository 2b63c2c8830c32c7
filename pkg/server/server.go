package server

import (
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dispute-chat/dispute/pkg/protocol"
	"github.com/dispute-chat/dispute/pkg/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	errorLog *log.Logger
	debugLog *log.Logger
)

// Server is the chat server: one TCP listener, a fixed-size session table,
// and the in-memory user and channel stores behind it.
type Server struct {
	users    *store.Users
	channels *store.Channels
	sessions *SessionManager
	config   TOMLConfig

	listener     net.Listener
	httpListener net.Listener
	shutdown     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
	metrics      *Metrics
	startTime    time.Time

	// Connection deltas for periodic reporting
	connectionsSinceReport    atomic.Int64
	disconnectionsSinceReport atomic.Int64
}

// NewServer creates a server instance. Default channels are seeded
// immediately; the admin account is seeded only when the config carries an
// admin password.
func NewServer(config TOMLConfig) (*Server, error) {
	if err := initLoggers(); err != nil {
		return nil, fmt.Errorf("failed to initialize loggers: %w", err)
	}

	users := store.NewUsers(config.Limits.MaxUsers)
	channels := store.NewChannels(
		config.Limits.MaxChannels,
		config.Limits.MessageLogCapacity,
		config.Limits.MaxReactions,
		config.Channels.DefaultChannels,
	)

	if config.Server.AdminPassword != "" {
		info, err := users.Create(config.Server.AdminUser, config.Server.AdminEmail, config.Server.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to seed admin account: %w", err)
		}
		if err := users.SetRole(info.Username, store.RoleAdmin); err != nil {
			return nil, fmt.Errorf("failed to promote admin account: %w", err)
		}
		log.Printf("Seeded admin account %q", info.Username)
	}

	metrics := NewMetrics()
	sessions := NewSessionManager(config.Server.MaxConnections)
	sessions.SetMetrics(metrics)

	return &Server{
		users:     users,
		channels:  channels,
		sessions:  sessions,
		config:    config,
		shutdown:  make(chan struct{}),
		metrics:   metrics,
		startTime: time.Now(),
	}, nil
}

// getServerDataDir returns the server data directory, creating it if needed
func getServerDataDir() (string, error) {
	var dataDir string
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		dataDir = filepath.Join(xdg, "dispute")
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share", "dispute")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}

// initLoggers sets up error and debug loggers
func initLoggers() error {
	dataDir, err := getServerDataDir()
	if err != nil {
		return err
	}

	// Error log goes to stderr and errors.log
	errorLogPath := filepath.Join(dataDir, "errors.log")
	errorFile, err := os.OpenFile(errorLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}

	// Startup marker distinguishes runs in the appended log
	startupMsg := fmt.Sprintf("=== Server started at %s ===\n", time.Now().Format(time.RFC3339))
	if _, err := errorFile.WriteString(startupMsg); err != nil {
		return err
	}

	errorLog = log.New(io.MultiWriter(os.Stderr, errorFile), "ERROR: ", log.LstdFlags)

	// Debug log goes to /dev/null by default (see EnableDebugLogging)
	debugLog = log.New(io.Discard, "DEBUG: ", log.LstdFlags)

	// Redirect standard log to stdout and server.log. Truncate server.log on
	// startup to avoid confusion from multiple runs.
	serverLogPath := filepath.Join(dataDir, "server.log")
	serverLogFile, err := os.OpenFile(serverLogPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	log.SetOutput(io.MultiWriter(os.Stdout, serverLogFile))

	return nil
}

// EnableDebugLogging enables debug logging to debug.log
func (s *Server) EnableDebugLogging() {
	dataDir, err := getServerDataDir()
	if err != nil {
		log.Printf("Failed to get data directory: %v", err)
		return
	}

	debugLogPath := filepath.Join(dataDir, "debug.log")
	debugLogFile, err := os.OpenFile(debugLogPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		log.Printf("Failed to open debug.log: %v", err)
		return
	}

	debugLog = log.New(debugLogFile, "DEBUG: ", log.LstdFlags)
	debugLog.Println("Debug logging enabled")
}

// Start begins listening for TCP connections and serving the internal HTTP
// endpoints. It returns once the listeners are bound; Addr reports the bound
// TCP address (useful when the configured port is 0).
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Server.TCPPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	log.Printf("TCP server listening on %s", listener.Addr())

	// Internal HTTP server: /metrics (never expose publicly) and the /ws
	// WebSocket bridge.
	httpAddr := fmt.Sprintf(":%d", s.config.Server.HTTPPort)
	httpListener, err := net.Listen("tcp", httpAddr)
	if err != nil {
		s.listener.Close()
		return fmt.Errorf("failed to listen on %s: %w", httpAddr, err)
	}
	s.httpListener = httpListener

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
		mux.HandleFunc("/ws", s.HandleWebSocket)
		log.Printf("HTTP server listening on %s (/metrics, /ws) - INTERNAL ONLY", httpListener.Addr())
		if err := http.Serve(httpListener, mux); err != nil {
			select {
			case <-s.shutdown:
			default:
				log.Printf("HTTP server error: %v", err)
			}
		}
	}()

	// Periodic metrics logging
	s.wg.Add(1)
	go s.metricsLoggingLoop()

	// Accept TCP connections
	s.wg.Add(1)
	go s.acceptLoop(listener)

	return nil
}

// Addr returns the bound TCP address, or nil before Start
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// HTTPAddr returns the bound HTTP address, or nil before Start
func (s *Server) HTTPAddr() net.Addr {
	if s.httpListener == nil {
		return nil
	}
	return s.httpListener.Addr()
}

// Stop gracefully stops the server. Safe to call more than once; only the
// first call does the work. The listener fields are left in place so the
// accept loop and Addr never observe a concurrent write.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		log.Println("Graceful shutdown initiated...")

		// Signal shutdown to all goroutines
		close(s.shutdown)

		// Stop accepting new connections
		if s.listener != nil {
			s.listener.Close()
			log.Println("TCP listener closed")
		}
		if s.httpListener != nil {
			s.httpListener.Close()
		}

		// Notify all connected clients before closing connections
		s.notifyClientsOfShutdown()

		// Close all sessions
		log.Println("Closing all client sessions...")
		s.sessions.CloseAll()

		// Wait for background goroutines to finish
		s.wg.Wait()

		log.Println("Graceful shutdown complete")
	})
	return nil
}

// notifyClientsOfShutdown sends a final ERROR frame to all connected clients
func (s *Server) notifyClientsOfShutdown() {
	sessions := s.sessions.All()
	if len(sessions) == 0 {
		return
	}

	msg := &protocol.ErrorMessage{Message: "Server shutting down"}
	payload, err := msg.Encode()
	if err != nil {
		log.Printf("Failed to encode shutdown notice: %v", err)
		return
	}
	frame := &protocol.Frame{
		Version: protocol.ProtocolVersion,
		Type:    protocol.TypeError,
		Payload: payload,
	}

	// Best effort
	sent := 0
	for _, sess := range sessions {
		if err := sess.Conn.EncodeFrame(frame); err == nil {
			sent++
		}
	}
	log.Printf("Shutdown notice sent to %d/%d sessions", sent, len(sessions))
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop(listener net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				log.Printf("Accept error: %v", err)
				continue
			}
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles initial connection setup, then spawns the message
// loop goroutine. When the session table is full the connection is refused
// with a final ERROR frame.
func (s *Server) handleConnection(conn net.Conn) {
	// Disable Nagle's algorithm for immediate sends
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
	}

	sess, err := s.sessions.Create(conn)
	if err != nil {
		debugLog.Printf("Connection from %s refused: %v", conn.RemoteAddr(), err)
		// Best-effort refusal notice before closing
		if payload, encErr := (&protocol.ErrorMessage{Message: "Server full"}).Encode(); encErr == nil {
			protocol.EncodeFrame(conn, &protocol.Frame{
				Version: protocol.ProtocolVersion,
				Type:    protocol.TypeError,
				Payload: payload,
			})
		}
		conn.Close()
		return
	}

	s.connectionsSinceReport.Add(1)
	debugLog.Printf("New connection from %s (session %d)", conn.RemoteAddr(), sess.ID)

	go s.messageLoop(sess)
}

// messageLoop reads and dispatches frames for an established connection
func (s *Server) messageLoop(sess *Session) {
	defer s.removeSession(sess.ID)

	for {
		frame, err := sess.Conn.ReadFrame()
		if err != nil {
			s.disconnectionsSinceReport.Add(1)
			if err == io.EOF {
				debugLog.Printf("Session %d: Client disconnected", sess.ID)
			} else {
				select {
				case <-s.shutdown:
				default:
					debugLog.Printf("Session %d: Read error: %v", sess.ID, err)
				}
			}
			return
		}

		debugLog.Printf("Session %d ← RECV: Type=0x%02X Flags=0x%02X PayloadLen=%d",
			sess.ID, frame.Type, frame.Flags, len(frame.Payload))

		if s.metrics != nil {
			s.metrics.RecordMessageReceived(protocol.TypeName(frame.Type))
		}

		if err := s.handleMessage(sess, frame); err != nil {
			errorLog.Printf("Session %d handle error: %v", sess.ID, err)
			s.sendError(sess, fmt.Sprintf("Internal error: %v", err))
		}
	}
}

// handleMessage dispatches a frame to the appropriate handler. Everything
// except AUTH and REGISTER requires an authenticated session.
func (s *Server) handleMessage(sess *Session, frame *protocol.Frame) error {
	switch frame.Type {
	case protocol.TypeAuth:
		return s.handleAuth(sess, frame)
	case protocol.TypeRegister:
		return s.handleRegister(sess, frame)
	}

	if !sess.Authenticated() {
		return s.sendError(sess, "Not authenticated")
	}

	switch frame.Type {
	case protocol.TypeListChannels:
		return s.handleListChannels(sess, frame)
	case protocol.TypeListUsers:
		return s.handleListUsers(sess, frame)
	case protocol.TypeChannelMessage:
		return s.handleChannelMessage(sess, frame)
	case protocol.TypePrivateMessage:
		return s.handlePrivateMessage(sess, frame)
	case protocol.TypeCreateChannel:
		return s.handleCreateChannel(sess, frame)
	case protocol.TypeDeleteChannel:
		return s.handleDeleteChannel(sess, frame)
	case protocol.TypeMuteUser:
		return s.handleMuteUser(sess, frame)
	case protocol.TypeSetRole:
		return s.handleSetRole(sess, frame)
	case protocol.TypeAddReaction:
		return s.handleAddReaction(sess, frame)
	case protocol.TypeListMessages:
		return s.handleListMessages(sess, frame)
	default:
		return s.sendError(sess, "Unsupported message type")
	}
}

// removeSession releases the session slot and, for authenticated sessions,
// marks the user offline and tells everyone else.
func (s *Server) removeSession(sessionID uint64) {
	sess := s.sessions.Remove(sessionID)
	if sess == nil {
		return
	}

	userID, username, authenticated := sess.Auth()
	if !authenticated {
		return
	}

	if err := s.users.SetOnline(userID, false); err != nil {
		errorLog.Printf("Session %d: failed to mark user %q offline: %v", sessionID, username, err)
	}
	s.broadcastToAll(protocol.TypeUserStatus, &protocol.UserStatusMessage{
		Username: username,
		Online:   false,
	}, sessionID)
}

// metricsLoggingLoop periodically logs key counters
func (s *Server) metricsLoggingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			connected := s.connectionsSinceReport.Swap(0)
			disconnected := s.disconnectionsSinceReport.Swap(0)
			if connected == 0 && disconnected == 0 {
				continue
			}
			log.Printf("Sessions: %d active (+%d/-%d in last 5s), %d goroutines, uptime %s",
				s.sessions.Count(), connected, disconnected,
				runtime.NumGoroutine(), time.Since(s.startTime).Round(time.Second))
		}
	}
}
