package server

import (
	"net"
	"sync"

	"github.com/dispute-chat/dispute/pkg/protocol"
)

// SafeConn wraps a net.Conn with automatic write synchronization to prevent
// concurrent writes from corrupting wire protocol frames.
//
// A connection is written to by its own handler goroutine (replies) and by
// other sessions' handlers (broadcasts, private messages). Without
// synchronization their frame bytes would interleave on the wire.
type SafeConn struct {
	conn net.Conn
	mu   sync.Mutex // Protects writes to conn
}

// NewSafeConn wraps a net.Conn with write synchronization
func NewSafeConn(conn net.Conn) *SafeConn {
	return &SafeConn{
		conn: conn,
	}
}

// EncodeFrame encodes and sends a protocol frame with automatic write
// synchronization. This is the only way to write frames to the connection -
// the raw conn is private.
func (sc *SafeConn) EncodeFrame(frame *protocol.Frame) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return protocol.EncodeFrame(sc.conn, frame)
}

// ReadFrame reads a protocol frame from the connection.
// Reads don't need write synchronization.
func (sc *SafeConn) ReadFrame() (*protocol.Frame, error) {
	return protocol.DecodeFrame(sc.conn)
}

// WriteBytes writes raw pre-encoded frame bytes with synchronization.
// Used by broadcast paths that encode a frame once for all recipients.
func (sc *SafeConn) WriteBytes(data []byte) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	_, err := sc.conn.Write(data)
	return err
}

// Close closes the underlying connection
func (sc *SafeConn) Close() error {
	return sc.conn.Close()
}

// RemoteAddr returns the remote network address
func (sc *SafeConn) RemoteAddr() net.Addr {
	return sc.conn.RemoteAddr()
}
