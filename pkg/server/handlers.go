package server

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dispute-chat/dispute/pkg/protocol"
	"github.com/dispute-chat/dispute/pkg/store"
)

// handleAuth handles an AUTH request. On success the session binds to the
// user, receives the channel and user snapshots, and everyone else learns the
// user is online.
func (s *Server) handleAuth(sess *Session, frame *protocol.Frame) error {
	msg := &protocol.AuthMessage{}
	if err := msg.Decode(frame.Payload); err != nil {
		return s.sendError(sess, "Invalid message format")
	}

	info, err := s.users.Authenticate(msg.Username, msg.Password)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordAuthFailure()
		}
		debugLog.Printf("Session %d: auth failed for %q", sess.ID, msg.Username)
		return s.sendMessage(sess, protocol.TypeAuthResponse, &protocol.AuthResponseMessage{
			Success: false,
			Message: "Invalid username or password",
		})
	}

	if err := s.sessions.BindUser(sess, info.ID, info.Username); err != nil {
		if errors.Is(err, ErrAlreadyConnected) {
			return s.sendMessage(sess, protocol.TypeAuthResponse, &protocol.AuthResponseMessage{
				Success: false,
				Message: "User already connected",
			})
		}
		return err
	}

	if err := s.users.SetOnline(info.ID, true); err != nil {
		return err
	}

	debugLog.Printf("Session %d: authenticated as %q (user %d)", sess.ID, info.Username, info.ID)

	if err := s.sendMessage(sess, protocol.TypeAuthResponse, &protocol.AuthResponseMessage{
		Success:  true,
		UserID:   uint32(info.ID),
		Username: info.Username,
		Message:  fmt.Sprintf("Welcome back, %s", info.Username),
	}); err != nil {
		return err
	}

	return s.afterLogin(sess, info.Username)
}

// handleRegister handles a REGISTER request. A successful registration logs
// the new user in immediately.
func (s *Server) handleRegister(sess *Session, frame *protocol.Frame) error {
	msg := &protocol.RegisterMessage{}
	if err := msg.Decode(frame.Payload); err != nil {
		return s.sendError(sess, "Invalid message format")
	}

	info, err := s.users.Create(msg.Username, msg.Email, msg.Password)
	if err != nil {
		var reason string
		switch {
		case errors.Is(err, store.ErrDuplicateUsername):
			reason = "Username already taken"
		case errors.Is(err, store.ErrUserTableFull):
			reason = "Server is at maximum registered users"
		case errors.Is(err, store.ErrUsernameTooLong):
			reason = "Username too long"
		case errors.Is(err, store.ErrEmptyUsername):
			reason = "Username cannot be empty"
		default:
			return err
		}
		return s.sendMessage(sess, protocol.TypeRegisterResponse, &protocol.RegisterResponseMessage{
			Success: false,
			Message: reason,
		})
	}

	if err := s.sessions.BindUser(sess, info.ID, info.Username); err != nil {
		return err
	}
	if err := s.users.SetOnline(info.ID, true); err != nil {
		return err
	}

	debugLog.Printf("Session %d: registered %q (user %d)", sess.ID, info.Username, info.ID)

	if err := s.sendMessage(sess, protocol.TypeRegisterResponse, &protocol.RegisterResponseMessage{
		Success:  true,
		UserID:   uint32(info.ID),
		Username: info.Username,
		Message:  fmt.Sprintf("Welcome, %s", info.Username),
	}); err != nil {
		return err
	}

	return s.afterLogin(sess, info.Username)
}

// afterLogin pushes the channel and user snapshots to a freshly authenticated
// session and announces its presence to everyone else
func (s *Server) afterLogin(sess *Session, username string) error {
	if err := s.sendChannelList(sess); err != nil {
		return err
	}
	if err := s.sendUserList(sess); err != nil {
		return err
	}

	s.broadcastToAll(protocol.TypeUserStatus, &protocol.UserStatusMessage{
		Username: username,
		Online:   true,
	}, sess.ID)
	return nil
}

// handleListChannels handles a CHANNEL_LIST request
func (s *Server) handleListChannels(sess *Session, frame *protocol.Frame) error {
	return s.sendChannelList(sess)
}

// handleListUsers handles a USER_LIST request
func (s *Server) handleListUsers(sess *Session, frame *protocol.Frame) error {
	return s.sendUserList(sess)
}

// handleChannelMessage posts a message to a channel and fans it out to every
// connected session. Channel IDs are 1-based on the wire.
func (s *Server) handleChannelMessage(sess *Session, frame *protocol.Frame) error {
	msg := &protocol.ChannelMessageRequest{}
	if err := msg.Decode(frame.Payload); err != nil {
		return s.sendError(sess, "Invalid message format")
	}

	channelID := int(msg.ChannelID) - 1
	channelName, err := s.channels.Name(channelID)
	if err != nil {
		return s.sendError(sess, "Invalid channel")
	}

	if len(msg.Content) == 0 {
		return s.sendError(sess, "Message cannot be empty")
	}
	if len(msg.Content) > s.config.Limits.MaxMessageLength {
		return s.sendError(sess, "Message too long")
	}

	_, username, _ := sess.Auth()
	if s.users.IsMuted(username, channelName, time.Now()) {
		return s.sendError(sess, fmt.Sprintf("You are muted in #%s", channelName))
	}

	now := time.Now()
	if err := s.channels.Append(channelID, store.Message{
		Sender:    username,
		Content:   msg.Content,
		Timestamp: now,
	}); err != nil {
		return s.sendError(sess, "Invalid channel")
	}

	s.broadcastToAll(protocol.TypeChannelBroadcast, &protocol.ChannelBroadcastMessage{
		ChannelID: msg.ChannelID,
		Sender:    username,
		Content:   msg.Content,
		Timestamp: now,
	}, 0)
	return nil
}

// handlePrivateMessage routes a direct message to the recipient's session.
// The sender always gets an echo as delivery confirmation; an offline
// recipient silently drops the message.
func (s *Server) handlePrivateMessage(sess *Session, frame *protocol.Frame) error {
	msg := &protocol.PrivateMessageRequest{}
	if err := msg.Decode(frame.Payload); err != nil {
		return s.sendError(sess, "Invalid message format")
	}

	target, err := s.users.Get(msg.Username)
	if err != nil {
		return s.sendError(sess, "User not found")
	}

	if len(msg.Content) == 0 {
		return s.sendError(sess, "Message cannot be empty")
	}
	if len(msg.Content) > s.config.Limits.MaxMessageLength {
		return s.sendError(sess, "Message too long")
	}

	_, username, _ := sess.Auth()
	delivery := &protocol.PrivateDeliveryMessage{
		Sender:    username,
		Recipient: target.Username,
		Content:   msg.Content,
		Timestamp: time.Now(),
	}

	if targetSess, ok := s.sessions.FindByUser(target.ID); ok {
		if err := s.sendMessage(targetSess, protocol.TypePrivateDelivery, delivery); err != nil {
			debugLog.Printf("Session %d: PM delivery to %q failed: %v", sess.ID, target.Username, err)
		}
	}

	// Echo back to the sender regardless of delivery
	return s.sendMessage(sess, protocol.TypePrivateDelivery, delivery)
}

// handleCreateChannel creates a channel (admin only) and broadcasts the
// refreshed channel list
func (s *Server) handleCreateChannel(sess *Session, frame *protocol.Frame) error {
	msg := &protocol.CreateChannelMessage{}
	if err := msg.Decode(frame.Payload); err != nil {
		return s.sendError(sess, "Invalid message format")
	}

	if !s.requireRole(sess, store.RoleAdmin) {
		return s.sendError(sess, "Permission denied: admin role required")
	}
	if len(msg.Name) == 0 {
		return s.sendError(sess, "Channel name cannot be empty")
	}

	if err := s.channels.Create(msg.Name); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateChannel):
			return s.sendError(sess, "Channel already exists")
		case errors.Is(err, store.ErrChannelTableFull):
			return s.sendError(sess, "Server is at maximum channels")
		case errors.Is(err, store.ErrChannelNameTooLong):
			return s.sendError(sess, "Channel name too long")
		default:
			return err
		}
	}

	_, username, _ := sess.Auth()
	log.Printf("Channel %q created by %q", msg.Name, username)

	if err := s.sendSuccess(sess, fmt.Sprintf("Channel #%s created", msg.Name)); err != nil {
		return err
	}
	s.broadcastChannelList()
	return nil
}

// handleDeleteChannel deletes a channel (admin only, default channels are
// protected) and broadcasts the refreshed channel list
func (s *Server) handleDeleteChannel(sess *Session, frame *protocol.Frame) error {
	msg := &protocol.DeleteChannelMessage{}
	if err := msg.Decode(frame.Payload); err != nil {
		return s.sendError(sess, "Invalid message format")
	}

	if !s.requireRole(sess, store.RoleAdmin) {
		return s.sendError(sess, "Permission denied: admin role required")
	}

	if err := s.channels.Delete(msg.Name); err != nil {
		switch {
		case errors.Is(err, store.ErrChannelNotFound):
			return s.sendError(sess, "Channel not found")
		case errors.Is(err, store.ErrProtectedChannel):
			return s.sendError(sess, "Default channels cannot be deleted")
		default:
			return err
		}
	}

	_, username, _ := sess.Auth()
	log.Printf("Channel %q deleted by %q", msg.Name, username)

	if err := s.sendSuccess(sess, fmt.Sprintf("Channel #%s deleted", msg.Name)); err != nil {
		return err
	}
	s.broadcastChannelList()
	return nil
}

// handleMuteUser mutes a user in one channel for a number of minutes
// (moderator or admin). Admins cannot be muted. A non-positive duration
// falls back to the configured default.
func (s *Server) handleMuteUser(sess *Session, frame *protocol.Frame) error {
	msg := &protocol.MuteUserMessage{}
	if err := msg.Decode(frame.Payload); err != nil {
		return s.sendError(sess, "Invalid message format")
	}

	if !s.requireRole(sess, store.RoleModerator) {
		return s.sendError(sess, "Permission denied: moderator role required")
	}

	target, err := s.users.Get(msg.Username)
	if err != nil {
		return s.sendError(sess, "User not found")
	}
	if target.Role == store.RoleAdmin {
		return s.sendError(sess, "Admins cannot be muted")
	}

	channelName, err := s.channels.Name(int(msg.ChannelID) - 1)
	if err != nil {
		return s.sendError(sess, "Invalid channel")
	}

	minutes := int(msg.Minutes)
	if minutes <= 0 {
		minutes = s.config.Limits.DefaultMuteMinutes
	}
	until := time.Now().Add(time.Duration(minutes) * time.Minute)

	if err := s.users.SetMute(target.Username, channelName, until); err != nil {
		return err
	}

	_, username, _ := sess.Auth()
	log.Printf("User %q muted in %q for %d minutes by %q", target.Username, channelName, minutes, username)

	// Tell the muted user, if connected
	if targetSess, ok := s.sessions.FindByUser(target.ID); ok {
		s.sendError(targetSess, fmt.Sprintf("You have been muted in #%s for %d minutes", channelName, minutes))
	}

	return s.sendSuccess(sess, fmt.Sprintf("%s muted in #%s for %d minutes", target.Username, channelName, minutes))
}

// handleSetRole changes a user's role (admin only) and broadcasts the
// refreshed user list
func (s *Server) handleSetRole(sess *Session, frame *protocol.Frame) error {
	msg := &protocol.SetRoleMessage{}
	if err := msg.Decode(frame.Payload); err != nil {
		return s.sendError(sess, "Invalid message format")
	}

	if !s.requireRole(sess, store.RoleAdmin) {
		return s.sendError(sess, "Permission denied: admin role required")
	}

	role := store.Role(msg.Role)
	if !role.Valid() {
		return s.sendError(sess, "Invalid role")
	}

	target, err := s.users.Get(msg.Username)
	if err != nil {
		return s.sendError(sess, "User not found")
	}

	if err := s.users.SetRole(target.Username, role); err != nil {
		return err
	}

	_, username, _ := sess.Auth()
	log.Printf("User %q role set to %s by %q", target.Username, role, username)

	// Tell the affected user, if connected
	if targetSess, ok := s.sessions.FindByUser(target.ID); ok {
		s.sendSuccess(targetSess, fmt.Sprintf("Your role is now %s", role))
	}

	if err := s.sendSuccess(sess, fmt.Sprintf("%s is now %s", target.Username, role)); err != nil {
		return err
	}
	s.broadcastUserList()
	return nil
}

// handleAddReaction adds a reaction to a message in a channel's log
func (s *Server) handleAddReaction(sess *Session, frame *protocol.Frame) error {
	msg := &protocol.AddReactionMessage{}
	if err := msg.Decode(frame.Payload); err != nil {
		return s.sendError(sess, "Invalid message format")
	}
	if len(msg.Symbol) == 0 {
		return s.sendError(sess, "Reaction symbol cannot be empty")
	}

	reaction, err := s.channels.AddReaction(int(msg.ChannelID)-1, int(msg.MessageIndex), msg.Symbol)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidChannel):
			return s.sendError(sess, "Invalid channel")
		case errors.Is(err, store.ErrInvalidIndex):
			return s.sendError(sess, "Invalid message index")
		case errors.Is(err, store.ErrReactionSlotsFull):
			return s.sendError(sess, "No more reaction slots on that message")
		default:
			return err
		}
	}

	return s.sendSuccess(sess, fmt.Sprintf("Reacted %s (%d)", reaction.Symbol, reaction.Count))
}

// handleListMessages sends a channel's in-memory message window to the
// requesting session, oldest first
func (s *Server) handleListMessages(sess *Session, frame *protocol.Frame) error {
	msg := &protocol.ListMessagesMessage{}
	if err := msg.Decode(frame.Payload); err != nil {
		return s.sendError(sess, "Invalid message format")
	}

	messages, err := s.channels.Messages(int(msg.ChannelID) - 1)
	if err != nil {
		return s.sendError(sess, "Invalid channel")
	}

	out := make([]protocol.Message, len(messages))
	for i, m := range messages {
		reactions := make([]protocol.Reaction, len(m.Reactions))
		for j, r := range m.Reactions {
			reactions[j] = protocol.Reaction{Symbol: r.Symbol, Count: uint32(r.Count)}
		}
		out[i] = protocol.Message{
			Sender:    m.Sender,
			Content:   m.Content,
			Timestamp: m.Timestamp,
			Reactions: reactions,
		}
	}

	return s.sendMessage(sess, protocol.TypeMessageList, &protocol.MessageListMessage{
		ChannelID: msg.ChannelID,
		Messages:  out,
	})
}

// requireRole reports whether the session's user holds at least the given
// role. Unauthenticated sessions never qualify.
func (s *Server) requireRole(sess *Session, minimum store.Role) bool {
	userID, _, authenticated := sess.Auth()
	if !authenticated {
		return false
	}
	info, err := s.users.GetByID(userID)
	if err != nil {
		return false
	}
	return info.Role >= minimum
}

// sendMessage encodes a protocol message into a frame and sends it to one
// session
func (s *Server) sendMessage(sess *Session, msgType uint8, msg protocol.ProtocolMessage) error {
	payload, err := msg.Encode()
	if err != nil {
		return err
	}

	frame := &protocol.Frame{
		Version: protocol.ProtocolVersion,
		Type:    msgType,
		Flags:   0,
		Payload: payload,
	}

	debugLog.Printf("Session %d → SEND: Type=0x%02X PayloadLen=%d", sess.ID, msgType, len(payload))
	if err := sess.Conn.EncodeFrame(frame); err != nil {
		errorLog.Printf("Session %d: EncodeFrame failed (Type=0x%02X): %v", sess.ID, msgType, err)
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordMessageSent(protocol.TypeName(msgType))
	}
	return nil
}

// sendError sends an ERROR frame to one session
func (s *Server) sendError(sess *Session, message string) error {
	return s.sendMessage(sess, protocol.TypeError, &protocol.ErrorMessage{Message: message})
}

// sendSuccess sends a SUCCESS frame to one session
func (s *Server) sendSuccess(sess *Session, message string) error {
	return s.sendMessage(sess, protocol.TypeSuccess, &protocol.SuccessMessage{Message: message})
}

// sendChannelList sends the current channel snapshot to one session
func (s *Server) sendChannelList(sess *Session) error {
	return s.sendMessage(sess, protocol.TypeChannelList, &protocol.ChannelListMessage{
		Channels: s.channels.Names(),
	})
}

// sendUserList sends the current user snapshot to one session
func (s *Server) sendUserList(sess *Session) error {
	return s.sendMessage(sess, protocol.TypeUserList, s.buildUserList())
}

func (s *Server) buildUserList() *protocol.UserListMessage {
	snapshot := s.users.Snapshot()
	users := make([]protocol.UserEntry, len(snapshot))
	for i, u := range snapshot {
		users[i] = protocol.UserEntry{
			Username: u.Username,
			Role:     uint8(u.Role),
			Online:   u.Online,
		}
	}
	return &protocol.UserListMessage{Users: users}
}

// broadcastToAll encodes a message once and writes the frame bytes to every
// authenticated session except excludeSessionID (0 excludes nobody). Send
// failures are counted and logged but never abort the fan-out; the failing
// session's own read loop handles its teardown.
func (s *Server) broadcastToAll(msgType uint8, msg protocol.ProtocolMessage, excludeSessionID uint64) {
	payload, err := msg.Encode()
	if err != nil {
		errorLog.Printf("Broadcast encode failed (Type=0x%02X): %v", msgType, err)
		return
	}
	frameBytes, err := protocol.EncodeMessage(protocol.ProtocolVersion, msgType, 0, payload)
	if err != nil {
		errorLog.Printf("Broadcast frame encode failed (Type=0x%02X): %v", msgType, err)
		return
	}

	for _, target := range s.sessions.All() {
		if target.ID == excludeSessionID {
			continue
		}
		if !target.Authenticated() {
			continue
		}
		if err := target.Conn.WriteBytes(frameBytes); err != nil {
			if s.metrics != nil {
				s.metrics.RecordBroadcastFailure()
			}
			debugLog.Printf("Broadcast to session %d failed (Type=0x%02X): %v", target.ID, msgType, err)
			continue
		}
		if s.metrics != nil {
			s.metrics.RecordMessageSent(protocol.TypeName(msgType))
		}
	}
}

// broadcastChannelList pushes the refreshed channel snapshot to everyone
func (s *Server) broadcastChannelList() {
	s.broadcastToAll(protocol.TypeChannelList, &protocol.ChannelListMessage{
		Channels: s.channels.Names(),
	}, 0)
}

// broadcastUserList pushes the refreshed user snapshot to everyone
func (s *Server) broadcastUserList() {
	s.broadcastToAll(protocol.TypeUserList, s.buildUserList(), 0)
}
