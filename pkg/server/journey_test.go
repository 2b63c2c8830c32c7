package server

import (
	"bytes"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dispute-chat/dispute/pkg/protocol"
	"github.com/dispute-chat/dispute/pkg/store"
)

// ---------------------------------------------------------------------------
// Test server setup
// ---------------------------------------------------------------------------

// newTestServer builds and starts a server on random ports. The admin
// account "admin" (password "admin123") is seeded with full privileges.
func newTestServer(t *testing.T, mutate func(*TOMLConfig)) *Server {
	t.Helper()

	config := DefaultTOMLConfig()
	config.Server.TCPPort = 0
	config.Server.HTTPPort = 0
	if mutate != nil {
		mutate(&config)
	}

	users := store.NewUsers(config.Limits.MaxUsers)
	admin, err := users.Create("admin", "admin@example.com", "admin123")
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	if err := users.SetRole(admin.Username, store.RoleAdmin); err != nil {
		t.Fatalf("promote admin: %v", err)
	}

	channels := store.NewChannels(
		config.Limits.MaxChannels,
		config.Limits.MessageLogCapacity,
		config.Limits.MaxReactions,
		config.Channels.DefaultChannels,
	)

	metrics := NewMetrics()
	sessions := NewSessionManager(config.Server.MaxConnections)
	sessions.SetMetrics(metrics)

	srv := &Server{
		users:     users,
		channels:  channels,
		sessions:  sessions,
		config:    config,
		shutdown:  make(chan struct{}),
		metrics:   metrics,
		startTime: time.Now(),
	}

	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	return srv
}

// ---------------------------------------------------------------------------
// Test client
// ---------------------------------------------------------------------------

type testClient struct {
	conn      net.Conn
	closeOnce sync.Once
}

func dialTestServer(t *testing.T, srv *Server) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("connect to %s failed: %v", srv.Addr(), err)
	}
	c := &testClient{conn: conn}
	t.Cleanup(c.close)
	return c
}

func (c *testClient) send(t *testing.T, msgType uint8, msg protocol.ProtocolMessage) {
	t.Helper()
	var buf bytes.Buffer
	if msg != nil {
		if err := msg.EncodeTo(&buf); err != nil {
			t.Fatalf("encode 0x%02X: %v", msgType, err)
		}
	}
	frame := &protocol.Frame{
		Version: protocol.ProtocolVersion,
		Type:    msgType,
		Flags:   0,
		Payload: buf.Bytes(),
	}
	if err := protocol.EncodeFrame(c.conn, frame); err != nil {
		t.Fatalf("send 0x%02X: %v", msgType, err)
	}
}

// expect reads the next frame, skipping USER_STATUS broadcasts (they arrive
// asynchronously whenever some other client logs in or out), and asserts its
// type.
func (c *testClient) expect(t *testing.T, expectedType uint8, timeout time.Duration) *protocol.Frame {
	t.Helper()
	for {
		c.conn.SetReadDeadline(time.Now().Add(timeout))
		frame, err := protocol.DecodeFrame(c.conn)
		c.conn.SetReadDeadline(time.Time{})
		if err != nil {
			t.Fatalf("expect 0x%02X: read error: %v", expectedType, err)
		}
		if frame.Type == protocol.TypeUserStatus && expectedType != protocol.TypeUserStatus {
			continue
		}
		if frame.Type != expectedType {
			t.Fatalf("expected 0x%02X (%s), got 0x%02X (%s)",
				expectedType, protocol.TypeName(expectedType), frame.Type, protocol.TypeName(frame.Type))
		}
		return frame
	}
}

// waitFor reads frames until one of the given type arrives, discarding
// everything else
func (c *testClient) waitFor(t *testing.T, wantType uint8, timeout time.Duration) *protocol.Frame {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("waitFor 0x%02X (%s): timeout", wantType, protocol.TypeName(wantType))
		}
		c.conn.SetReadDeadline(time.Now().Add(remaining))
		frame, err := protocol.DecodeFrame(c.conn)
		c.conn.SetReadDeadline(time.Time{})
		if err != nil {
			t.Fatalf("waitFor 0x%02X: read error: %v", wantType, err)
		}
		if frame.Type == wantType {
			return frame
		}
	}
}

// tryRead attempts to read one frame within timeout. Returns nil if nothing
// arrived.
func (c *testClient) tryRead(timeout time.Duration) *protocol.Frame {
	c.conn.SetReadDeadline(time.Now().Add(timeout))
	frame, err := protocol.DecodeFrame(c.conn)
	c.conn.SetReadDeadline(time.Time{})
	if err != nil {
		return nil
	}
	return frame
}

func (c *testClient) close() {
	c.closeOnce.Do(func() {
		c.conn.Close()
	})
}

// register creates an account and consumes the login sequence
// (REG_RESPONSE, CHANNEL_LIST, USER_LIST)
func (c *testClient) register(t *testing.T, username string) {
	t.Helper()
	c.send(t, protocol.TypeRegister, &protocol.RegisterMessage{
		Username: username,
		Email:    username + "@example.com",
		Password: "password-" + username,
	})

	frame := c.expect(t, protocol.TypeRegisterResponse, 5*time.Second)
	var resp protocol.RegisterResponseMessage
	if err := resp.Decode(frame.Payload); err != nil {
		t.Fatalf("decode REG_RESPONSE: %v", err)
	}
	if !resp.Success {
		t.Fatalf("register %q failed: %s", username, resp.Message)
	}
	c.expect(t, protocol.TypeChannelList, 5*time.Second)
	c.expect(t, protocol.TypeUserList, 5*time.Second)
}

// login authenticates an existing account and consumes the login sequence
func (c *testClient) login(t *testing.T, username, password string) {
	t.Helper()
	c.send(t, protocol.TypeAuth, &protocol.AuthMessage{Username: username, Password: password})

	frame := c.expect(t, protocol.TypeAuthResponse, 5*time.Second)
	var resp protocol.AuthResponseMessage
	if err := resp.Decode(frame.Payload); err != nil {
		t.Fatalf("decode AUTH_RESPONSE: %v", err)
	}
	if !resp.Success {
		t.Fatalf("auth %q failed: %s", username, resp.Message)
	}
	c.expect(t, protocol.TypeChannelList, 5*time.Second)
	c.expect(t, protocol.TypeUserList, 5*time.Second)
}

func decodeError(t *testing.T, frame *protocol.Frame) string {
	t.Helper()
	var msg protocol.ErrorMessage
	if err := msg.Decode(frame.Payload); err != nil {
		t.Fatalf("decode ERROR: %v", err)
	}
	return msg.Message
}

// ---------------------------------------------------------------------------
// Authentication journeys
// ---------------------------------------------------------------------------

func TestRegisterAndAuthenticate(t *testing.T) {
	srv := newTestServer(t, nil)
	timeout := 5 * time.Second

	// Register on one connection
	alice := dialTestServer(t, srv)
	alice.register(t, "alice")
	alice.close()

	// Give the server a moment to reap the old session; AUTH would otherwise
	// race the disconnect and see the user as still connected
	time.Sleep(100 * time.Millisecond)

	// Reconnect and authenticate
	alice2 := dialTestServer(t, srv)
	alice2.send(t, protocol.TypeAuth, &protocol.AuthMessage{
		Username: "alice",
		Password: "password-alice",
	})

	frame := alice2.expect(t, protocol.TypeAuthResponse, timeout)
	var resp protocol.AuthResponseMessage
	if err := resp.Decode(frame.Payload); err != nil {
		t.Fatalf("decode AUTH_RESPONSE: %v", err)
	}
	if !resp.Success {
		t.Fatalf("auth failed: %s", resp.Message)
	}
	if resp.Username != "alice" {
		t.Fatalf("auth response username = %q, want alice", resp.Username)
	}

	// Login sequence follows
	listFrame := alice2.expect(t, protocol.TypeChannelList, timeout)
	var channelList protocol.ChannelListMessage
	if err := channelList.Decode(listFrame.Payload); err != nil {
		t.Fatalf("decode CHANNEL_LIST: %v", err)
	}
	if len(channelList.Channels) != 3 {
		t.Fatalf("expected 3 default channels, got %v", channelList.Channels)
	}

	userFrame := alice2.expect(t, protocol.TypeUserList, timeout)
	var userList protocol.UserListMessage
	if err := userList.Decode(userFrame.Payload); err != nil {
		t.Fatalf("decode USER_LIST: %v", err)
	}
	// Seeded admin plus alice
	if len(userList.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(userList.Users))
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	srv := newTestServer(t, nil)

	alice := dialTestServer(t, srv)
	alice.register(t, "alice")

	// Second connection tries the same name
	imposter := dialTestServer(t, srv)
	imposter.send(t, protocol.TypeRegister, &protocol.RegisterMessage{
		Username: "alice",
		Password: "different",
	})

	frame := imposter.expect(t, protocol.TypeRegisterResponse, 5*time.Second)
	var resp protocol.RegisterResponseMessage
	if err := resp.Decode(frame.Payload); err != nil {
		t.Fatalf("decode REG_RESPONSE: %v", err)
	}
	if resp.Success {
		t.Fatal("duplicate registration unexpectedly succeeded")
	}
}

func TestAuthWrongPassword(t *testing.T) {
	srv := newTestServer(t, nil)

	client := dialTestServer(t, srv)
	client.send(t, protocol.TypeAuth, &protocol.AuthMessage{
		Username: "admin",
		Password: "not-the-password",
	})

	frame := client.expect(t, protocol.TypeAuthResponse, 5*time.Second)
	var resp protocol.AuthResponseMessage
	if err := resp.Decode(frame.Payload); err != nil {
		t.Fatalf("decode AUTH_RESPONSE: %v", err)
	}
	if resp.Success {
		t.Fatal("auth with wrong password unexpectedly succeeded")
	}

	// The session stays unauthenticated
	client.send(t, protocol.TypeListChannels, nil)
	errFrame := client.expect(t, protocol.TypeError, 5*time.Second)
	if got := decodeError(t, errFrame); got != "Not authenticated" {
		t.Fatalf("expected Not authenticated, got %q", got)
	}
}

func TestPreAuthRequestRejected(t *testing.T) {
	srv := newTestServer(t, nil)

	client := dialTestServer(t, srv)
	client.send(t, protocol.TypeChannelMessage, &protocol.ChannelMessageRequest{
		ChannelID: 1,
		Content:   "sneaky",
	})

	frame := client.expect(t, protocol.TypeError, 5*time.Second)
	if got := decodeError(t, frame); got != "Not authenticated" {
		t.Fatalf("expected Not authenticated, got %q", got)
	}
}

func TestSecondSessionForSameUserRejected(t *testing.T) {
	srv := newTestServer(t, nil)

	first := dialTestServer(t, srv)
	first.register(t, "alice")

	second := dialTestServer(t, srv)
	second.send(t, protocol.TypeAuth, &protocol.AuthMessage{
		Username: "alice",
		Password: "password-alice",
	})

	frame := second.expect(t, protocol.TypeAuthResponse, 5*time.Second)
	var resp protocol.AuthResponseMessage
	if err := resp.Decode(frame.Payload); err != nil {
		t.Fatalf("decode AUTH_RESPONSE: %v", err)
	}
	if resp.Success {
		t.Fatal("second session for connected user unexpectedly succeeded")
	}
}

func TestConnectionLimit(t *testing.T) {
	srv := newTestServer(t, func(c *TOMLConfig) {
		c.Server.MaxConnections = 2
	})

	first := dialTestServer(t, srv)
	first.register(t, "u1")
	second := dialTestServer(t, srv)
	second.register(t, "u2")

	// The third connection gets refused with a final ERROR frame
	third := dialTestServer(t, srv)
	frame := third.waitFor(t, protocol.TypeError, 5*time.Second)
	if got := decodeError(t, frame); got != "Server full" {
		t.Fatalf("expected Server full, got %q", got)
	}

	// Disconnecting frees the slot. A refusal arrives unprompted, so probe
	// with a short read before assuming the slot was granted.
	first.close()
	for i := 0; i < 50; i++ {
		replacement := dialTestServer(t, srv)
		if f := replacement.tryRead(500 * time.Millisecond); f != nil {
			if f.Type == protocol.TypeError && decodeError(t, f) == "Server full" {
				replacement.close()
				time.Sleep(20 * time.Millisecond)
				continue
			}
			t.Fatalf("unexpected unprompted frame 0x%02X", f.Type)
		}

		// No refusal: the slot is ours
		replacement.send(t, protocol.TypeListChannels, nil)
		frame := replacement.expect(t, protocol.TypeError, 5*time.Second)
		if got := decodeError(t, frame); got != "Not authenticated" {
			t.Fatalf("expected Not authenticated, got %q", got)
		}
		return
	}
	t.Fatal("slot never freed after disconnect")
}

// ---------------------------------------------------------------------------
// Messaging journeys
// ---------------------------------------------------------------------------

func TestChannelMessageBroadcast(t *testing.T) {
	srv := newTestServer(t, nil)
	timeout := 5 * time.Second

	alice := dialTestServer(t, srv)
	alice.register(t, "alice")
	bob := dialTestServer(t, srv)
	bob.register(t, "bob")

	alice.send(t, protocol.TypeChannelMessage, &protocol.ChannelMessageRequest{
		ChannelID: 1,
		Content:   "hello from alice",
	})

	// Both the sender and the other client receive the broadcast
	for _, c := range []*testClient{alice, bob} {
		frame := c.waitFor(t, protocol.TypeChannelBroadcast, timeout)
		var bc protocol.ChannelBroadcastMessage
		if err := bc.Decode(frame.Payload); err != nil {
			t.Fatalf("decode CHANNEL_BROADCAST: %v", err)
		}
		if bc.Sender != "alice" || bc.Content != "hello from alice" || bc.ChannelID != 1 {
			t.Fatalf("unexpected broadcast: %+v", bc)
		}
	}
}

func TestChannelMessageValidation(t *testing.T) {
	srv := newTestServer(t, nil)
	timeout := 5 * time.Second

	alice := dialTestServer(t, srv)
	alice.register(t, "alice")

	t.Run("invalid channel", func(t *testing.T) {
		// Raw frame: the client-side encoder would refuse empty content, and
		// channel 99 does not exist
		alice.send(t, protocol.TypeChannelMessage, &protocol.ChannelMessageRequest{
			ChannelID: 99,
			Content:   "hello",
		})
		frame := alice.expect(t, protocol.TypeError, timeout)
		if got := decodeError(t, frame); got != "Invalid channel" {
			t.Fatalf("expected Invalid channel, got %q", got)
		}
	})

	t.Run("channel zero is invalid", func(t *testing.T) {
		// IDs are 1-based on the wire
		alice.send(t, protocol.TypeChannelMessage, &protocol.ChannelMessageRequest{
			ChannelID: 0,
			Content:   "hello",
		})
		frame := alice.expect(t, protocol.TypeError, timeout)
		if got := decodeError(t, frame); got != "Invalid channel" {
			t.Fatalf("expected Invalid channel, got %q", got)
		}
	})
}

func TestPrivateMessage(t *testing.T) {
	srv := newTestServer(t, nil)
	timeout := 5 * time.Second

	alice := dialTestServer(t, srv)
	alice.register(t, "alice")
	bob := dialTestServer(t, srv)
	bob.register(t, "bob")

	t.Run("delivered and echoed", func(t *testing.T) {
		alice.send(t, protocol.TypePrivateMessage, &protocol.PrivateMessageRequest{
			Username: "bob",
			Content:  "psst",
		})

		for _, c := range []*testClient{bob, alice} {
			frame := c.waitFor(t, protocol.TypePrivateDelivery, timeout)
			var pm protocol.PrivateDeliveryMessage
			if err := pm.Decode(frame.Payload); err != nil {
				t.Fatalf("decode PRIVATE_DELIVERY: %v", err)
			}
			if pm.Sender != "alice" || pm.Recipient != "bob" || pm.Content != "psst" {
				t.Fatalf("unexpected delivery: %+v", pm)
			}
		}
	})

	t.Run("unknown recipient", func(t *testing.T) {
		alice.send(t, protocol.TypePrivateMessage, &protocol.PrivateMessageRequest{
			Username: "nobody",
			Content:  "hello?",
		})
		frame := alice.expect(t, protocol.TypeError, timeout)
		if got := decodeError(t, frame); got != "User not found" {
			t.Fatalf("expected User not found, got %q", got)
		}
	})

	t.Run("offline recipient still echoes to sender", func(t *testing.T) {
		bob.close()
		// Give the server a moment to reap bob's session
		time.Sleep(100 * time.Millisecond)

		alice.send(t, protocol.TypePrivateMessage, &protocol.PrivateMessageRequest{
			Username: "bob",
			Content:  "are you there",
		})

		frame := alice.waitFor(t, protocol.TypePrivateDelivery, timeout)
		var pm protocol.PrivateDeliveryMessage
		if err := pm.Decode(frame.Payload); err != nil {
			t.Fatalf("decode PRIVATE_DELIVERY: %v", err)
		}
		if pm.Recipient != "bob" {
			t.Fatalf("echo recipient = %q, want bob", pm.Recipient)
		}
	})
}

func TestMessageLogAndReactions(t *testing.T) {
	srv := newTestServer(t, nil)
	timeout := 5 * time.Second

	alice := dialTestServer(t, srv)
	alice.register(t, "alice")

	for i := 0; i < 3; i++ {
		alice.send(t, protocol.TypeChannelMessage, &protocol.ChannelMessageRequest{
			ChannelID: 2,
			Content:   fmt.Sprintf("msg %d", i),
		})
		alice.waitFor(t, protocol.TypeChannelBroadcast, timeout)
	}

	// React to the middle message
	alice.send(t, protocol.TypeAddReaction, &protocol.AddReactionMessage{
		ChannelID:    2,
		MessageIndex: 1,
		Symbol:       "+1",
	})
	alice.expect(t, protocol.TypeSuccess, timeout)

	alice.send(t, protocol.TypeListMessages, &protocol.ListMessagesMessage{ChannelID: 2})
	frame := alice.expect(t, protocol.TypeMessageList, timeout)

	var list protocol.MessageListMessage
	if err := list.Decode(frame.Payload); err != nil {
		t.Fatalf("decode MESSAGE_LIST: %v", err)
	}
	if len(list.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(list.Messages))
	}
	if list.Messages[0].Content != "msg 0" || list.Messages[2].Content != "msg 2" {
		t.Fatalf("messages out of order: %+v", list.Messages)
	}
	if len(list.Messages[1].Reactions) != 1 || list.Messages[1].Reactions[0].Symbol != "+1" {
		t.Fatalf("expected +1 reaction on middle message, got %+v", list.Messages[1].Reactions)
	}
}

// ---------------------------------------------------------------------------
// Moderation journeys
// ---------------------------------------------------------------------------

func TestChannelAdministration(t *testing.T) {
	srv := newTestServer(t, nil)
	timeout := 5 * time.Second

	admin := dialTestServer(t, srv)
	admin.login(t, "admin", "admin123")
	alice := dialTestServer(t, srv)
	alice.register(t, "alice")

	t.Run("non-admin cannot create", func(t *testing.T) {
		alice.send(t, protocol.TypeCreateChannel, &protocol.CreateChannelMessage{Name: "ops"})
		frame := alice.expect(t, protocol.TypeError, timeout)
		if got := decodeError(t, frame); got != "Permission denied: admin role required" {
			t.Fatalf("unexpected error: %q", got)
		}
	})

	t.Run("admin creates and everyone sees it", func(t *testing.T) {
		admin.send(t, protocol.TypeCreateChannel, &protocol.CreateChannelMessage{Name: "ops"})
		admin.expect(t, protocol.TypeSuccess, timeout)

		// Both clients receive the refreshed list
		for _, c := range []*testClient{admin, alice} {
			frame := c.waitFor(t, protocol.TypeChannelList, timeout)
			var list protocol.ChannelListMessage
			if err := list.Decode(frame.Payload); err != nil {
				t.Fatalf("decode CHANNEL_LIST: %v", err)
			}
			want := []string{"general", "random", "help", "ops"}
			if len(list.Channels) != len(want) {
				t.Fatalf("channel list = %v, want %v", list.Channels, want)
			}
			for i := range want {
				if list.Channels[i] != want[i] {
					t.Fatalf("channel list = %v, want %v", list.Channels, want)
				}
			}
		}
	})

	t.Run("default channel cannot be deleted", func(t *testing.T) {
		admin.send(t, protocol.TypeDeleteChannel, &protocol.DeleteChannelMessage{Name: "general"})
		frame := admin.expect(t, protocol.TypeError, timeout)
		if got := decodeError(t, frame); got != "Default channels cannot be deleted" {
			t.Fatalf("unexpected error: %q", got)
		}
	})

	t.Run("admin deletes a created channel", func(t *testing.T) {
		admin.send(t, protocol.TypeDeleteChannel, &protocol.DeleteChannelMessage{Name: "ops"})
		admin.expect(t, protocol.TypeSuccess, timeout)
		frame := admin.waitFor(t, protocol.TypeChannelList, timeout)
		var list protocol.ChannelListMessage
		if err := list.Decode(frame.Payload); err != nil {
			t.Fatalf("decode CHANNEL_LIST: %v", err)
		}
		if len(list.Channels) != 3 {
			t.Fatalf("channel list = %v, want 3 defaults", list.Channels)
		}
		// Alice sees it too
		alice.waitFor(t, protocol.TypeChannelList, timeout)
	})
}

func TestSetRole(t *testing.T) {
	srv := newTestServer(t, nil)
	timeout := 5 * time.Second

	admin := dialTestServer(t, srv)
	admin.login(t, "admin", "admin123")
	alice := dialTestServer(t, srv)
	alice.register(t, "alice")

	t.Run("non-admin cannot set roles", func(t *testing.T) {
		alice.send(t, protocol.TypeSetRole, &protocol.SetRoleMessage{
			Username: "admin",
			Role:     protocol.RoleUser,
		})
		alice.expect(t, protocol.TypeError, timeout)
	})

	t.Run("admin promotes to moderator", func(t *testing.T) {
		admin.send(t, protocol.TypeSetRole, &protocol.SetRoleMessage{
			Username: "alice",
			Role:     protocol.RoleModerator,
		})
		admin.expect(t, protocol.TypeSuccess, timeout)
		admin.waitFor(t, protocol.TypeUserList, timeout)

		// Alice gets a personal notice plus the refreshed user list
		alice.waitFor(t, protocol.TypeSuccess, timeout)
		frame := alice.waitFor(t, protocol.TypeUserList, timeout)

		var list protocol.UserListMessage
		if err := list.Decode(frame.Payload); err != nil {
			t.Fatalf("decode USER_LIST: %v", err)
		}
		found := false
		for _, u := range list.Users {
			if u.Username == "alice" {
				found = true
				if u.Role != protocol.RoleModerator {
					t.Fatalf("alice role = %d, want moderator", u.Role)
				}
			}
		}
		if !found {
			t.Fatal("alice missing from user list")
		}
	})

	t.Run("invalid role value", func(t *testing.T) {
		admin.send(t, protocol.TypeSetRole, &protocol.SetRoleMessage{
			Username: "alice",
			Role:     9,
		})
		frame := admin.expect(t, protocol.TypeError, timeout)
		if got := decodeError(t, frame); got != "Invalid role" {
			t.Fatalf("unexpected error: %q", got)
		}
	})
}

func TestMuteJourney(t *testing.T) {
	srv := newTestServer(t, nil)
	timeout := 5 * time.Second

	admin := dialTestServer(t, srv)
	admin.login(t, "admin", "admin123")
	alice := dialTestServer(t, srv)
	alice.register(t, "alice")

	t.Run("regular user cannot mute", func(t *testing.T) {
		alice.send(t, protocol.TypeMuteUser, &protocol.MuteUserMessage{
			Username:  "admin",
			ChannelID: 1,
			Minutes:   5,
		})
		frame := alice.expect(t, protocol.TypeError, timeout)
		if got := decodeError(t, frame); got != "Permission denied: moderator role required" {
			t.Fatalf("unexpected error: %q", got)
		}
	})

	t.Run("admins cannot be muted", func(t *testing.T) {
		admin.send(t, protocol.TypeMuteUser, &protocol.MuteUserMessage{
			Username:  "admin",
			ChannelID: 1,
			Minutes:   5,
		})
		frame := admin.expect(t, protocol.TypeError, timeout)
		if got := decodeError(t, frame); got != "Admins cannot be muted" {
			t.Fatalf("unexpected error: %q", got)
		}
	})

	t.Run("muted user is silenced in that channel only", func(t *testing.T) {
		admin.send(t, protocol.TypeMuteUser, &protocol.MuteUserMessage{
			Username:  "alice",
			ChannelID: 1,
			Minutes:   5,
		})
		admin.expect(t, protocol.TypeSuccess, timeout)

		// Alice is told about the mute
		alice.waitFor(t, protocol.TypeError, timeout)

		// Posting to the muted channel fails
		alice.send(t, protocol.TypeChannelMessage, &protocol.ChannelMessageRequest{
			ChannelID: 1,
			Content:   "can you hear me",
		})
		frame := alice.expect(t, protocol.TypeError, timeout)
		if got := decodeError(t, frame); got != "You are muted in #general" {
			t.Fatalf("unexpected error: %q", got)
		}

		// Other channels are unaffected
		alice.send(t, protocol.TypeChannelMessage, &protocol.ChannelMessageRequest{
			ChannelID: 2,
			Content:   "still here",
		})
		alice.waitFor(t, protocol.TypeChannelBroadcast, timeout)
	})

	t.Run("expired mute lifts", func(t *testing.T) {
		// Rewind the expiry instead of waiting out the clock
		if err := srv.users.SetMute("alice", "general", time.Now().Add(-time.Second)); err != nil {
			t.Fatalf("SetMute: %v", err)
		}

		alice.send(t, protocol.TypeChannelMessage, &protocol.ChannelMessageRequest{
			ChannelID: 1,
			Content:   "free again",
		})
		frame := alice.waitFor(t, protocol.TypeChannelBroadcast, timeout)
		var bc protocol.ChannelBroadcastMessage
		if err := bc.Decode(frame.Payload); err != nil {
			t.Fatalf("decode CHANNEL_BROADCAST: %v", err)
		}
		if bc.Content != "free again" {
			t.Fatalf("unexpected broadcast: %+v", bc)
		}
	})
}

// ---------------------------------------------------------------------------
// Presence
// ---------------------------------------------------------------------------

func TestUserStatusBroadcast(t *testing.T) {
	srv := newTestServer(t, nil)
	timeout := 5 * time.Second

	alice := dialTestServer(t, srv)
	alice.register(t, "alice")

	// Bob logs in; alice hears about it
	bob := dialTestServer(t, srv)
	bob.register(t, "bob")

	frame := alice.waitFor(t, protocol.TypeUserStatus, timeout)
	var status protocol.UserStatusMessage
	if err := status.Decode(frame.Payload); err != nil {
		t.Fatalf("decode USER_STATUS: %v", err)
	}
	if status.Username != "bob" || !status.Online {
		t.Fatalf("expected bob online, got %+v", status)
	}

	// Bob disconnects; alice hears about that too
	bob.close()
	frame = alice.waitFor(t, protocol.TypeUserStatus, timeout)
	if err := status.Decode(frame.Payload); err != nil {
		t.Fatalf("decode USER_STATUS: %v", err)
	}
	if status.Username != "bob" || status.Online {
		t.Fatalf("expected bob offline, got %+v", status)
	}
}

// ---------------------------------------------------------------------------
// Shutdown journey
// ---------------------------------------------------------------------------

// TestGracefulShutdown stops a server with a live session and checks the
// shutdown notice, the connection teardown, and that a repeated Stop is a
// no-op. Run with -race this also covers Stop closing the listener while the
// accept loop is still blocked in Accept.
func TestGracefulShutdown(t *testing.T) {
	srv := newTestServer(t, nil)
	timeout := 5 * time.Second

	alice := dialTestServer(t, srv)
	alice.register(t, "alice")
	addr := srv.Addr().String()

	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// The connected client gets the shutdown notice before its socket closes
	frame := alice.waitFor(t, protocol.TypeError, timeout)
	if msg := decodeError(t, frame); msg != "Server shutting down" {
		t.Fatalf("shutdown notice = %q", msg)
	}

	// Then the connection goes away
	alice.conn.SetReadDeadline(time.Now().Add(timeout))
	if _, err := protocol.DecodeFrame(alice.conn); err == nil {
		t.Fatal("expected read to fail after shutdown")
	}

	// New connections are refused once the listener is closed
	if conn, err := net.Dial("tcp", addr); err == nil {
		conn.Close()
		t.Fatal("dial succeeded after shutdown")
	}

	// A second Stop (the test cleanup will issue one too) does nothing
	if err := srv.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
