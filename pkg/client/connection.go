package client

import (
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/dispute-chat/dispute/pkg/protocol"
)

// Connection is a client connection to a chat server. A background read
// loop delivers decoded frames on Incoming; callers send requests through
// the typed methods below.
type Connection struct {
	addr string

	mu        sync.Mutex
	conn      net.Conn
	connected bool

	incoming chan *protocol.Frame
	errors   chan error

	logger   *log.Logger
	shutdown chan struct{}
	wg       sync.WaitGroup
}

// NewConnection creates a client for the given host:port address
func NewConnection(addr string) *Connection {
	return &Connection{
		addr:     addr,
		incoming: make(chan *protocol.Frame, 100),
		errors:   make(chan error, 10),
		shutdown: make(chan struct{}),
	}
}

// SetLogger sets a logger for debugging connection events
func (c *Connection) SetLogger(logger *log.Logger) {
	c.logger = logger
}

func (c *Connection) logf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

// Connect dials the server and starts the read loop
func (c *Connection) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return fmt.Errorf("already connected")
	}

	c.logf("Connecting to %s...", c.addr)
	conn, err := net.DialTimeout("tcp", c.addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.addr, err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
	}

	c.conn = conn
	c.connected = true

	c.wg.Add(1)
	go c.readLoop(conn)

	c.logf("Connected to %s", c.addr)
	return nil
}

// readLoop reads frames until the connection drops
func (c *Connection) readLoop(conn net.Conn) {
	defer c.wg.Done()

	for {
		frame, err := protocol.DecodeFrame(conn)
		if err != nil {
			select {
			case <-c.shutdown:
			default:
				c.logf("Read error: %v", err)
				select {
				case c.errors <- err:
				default:
				}
			}
			close(c.incoming)
			return
		}

		select {
		case c.incoming <- frame:
		case <-c.shutdown:
			close(c.incoming)
			return
		}
	}
}

// Incoming returns the channel of frames received from the server. The
// channel closes when the connection drops or Close is called.
func (c *Connection) Incoming() <-chan *protocol.Frame {
	return c.incoming
}

// Errors returns the channel of read errors
func (c *Connection) Errors() <-chan error {
	return c.errors
}

// Close shuts down the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}
	c.connected = false

	close(c.shutdown)
	err := c.conn.Close()
	c.wg.Wait()
	return err
}

// send encodes a protocol message into a frame and writes it
func (c *Connection) send(msgType uint8, msg protocol.ProtocolMessage) error {
	payload, err := msg.Encode()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}

	return protocol.EncodeFrame(c.conn, &protocol.Frame{
		Version: protocol.ProtocolVersion,
		Type:    msgType,
		Payload: payload,
	})
}

// sendEmpty sends a frame with no payload
func (c *Connection) sendEmpty(msgType uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}

	return protocol.EncodeFrame(c.conn, &protocol.Frame{
		Version: protocol.ProtocolVersion,
		Type:    msgType,
	})
}

// Authenticate sends an AUTH request
func (c *Connection) Authenticate(username, password string) error {
	return c.send(protocol.TypeAuth, &protocol.AuthMessage{
		Username: username,
		Password: password,
	})
}

// Register sends a REGISTER request
func (c *Connection) Register(username, email, password string) error {
	return c.send(protocol.TypeRegister, &protocol.RegisterMessage{
		Username: username,
		Email:    email,
		Password: password,
	})
}

// RequestChannelList asks for the current channel snapshot
func (c *Connection) RequestChannelList() error {
	return c.sendEmpty(protocol.TypeListChannels)
}

// RequestUserList asks for the current user snapshot
func (c *Connection) RequestUserList() error {
	return c.sendEmpty(protocol.TypeListUsers)
}

// SendChannelMessage posts a message to a channel. channelID is 1-based,
// matching positions in the channel list.
func (c *Connection) SendChannelMessage(channelID uint32, content string) error {
	return c.send(protocol.TypeChannelMessage, &protocol.ChannelMessageRequest{
		ChannelID: channelID,
		Content:   content,
	})
}

// SendPrivateMessage sends a direct message to a user
func (c *Connection) SendPrivateMessage(username, content string) error {
	return c.send(protocol.TypePrivateMessage, &protocol.PrivateMessageRequest{
		Username: username,
		Content:  content,
	})
}

// CreateChannel asks the server to create a channel (admin only)
func (c *Connection) CreateChannel(name string) error {
	return c.send(protocol.TypeCreateChannel, &protocol.CreateChannelMessage{Name: name})
}

// DeleteChannel asks the server to delete a channel (admin only)
func (c *Connection) DeleteChannel(name string) error {
	return c.send(protocol.TypeDeleteChannel, &protocol.DeleteChannelMessage{Name: name})
}

// MuteUser mutes a user in a channel for the given minutes (moderator+).
// Zero minutes applies the server's default duration.
func (c *Connection) MuteUser(username string, channelID, minutes uint32) error {
	return c.send(protocol.TypeMuteUser, &protocol.MuteUserMessage{
		Username:  username,
		ChannelID: channelID,
		Minutes:   minutes,
	})
}

// SetRole changes a user's role (admin only)
func (c *Connection) SetRole(username string, role uint8) error {
	return c.send(protocol.TypeSetRole, &protocol.SetRoleMessage{
		Username: username,
		Role:     role,
	})
}

// AddReaction reacts to a message in a channel's log. messageIndex is the
// zero-based position in the channel's message window, oldest first.
func (c *Connection) AddReaction(channelID, messageIndex uint32, symbol string) error {
	return c.send(protocol.TypeAddReaction, &protocol.AddReactionMessage{
		ChannelID:    channelID,
		MessageIndex: messageIndex,
		Symbol:       symbol,
	})
}

// ListMessages fetches a channel's in-memory message window
func (c *Connection) ListMessages(channelID uint32) error {
	return c.send(protocol.TypeListMessages, &protocol.ListMessagesMessage{ChannelID: channelID})
}
