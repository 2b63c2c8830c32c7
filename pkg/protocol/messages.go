package protocol

import (
	"bytes"
	"errors"
	"io"
	"time"
)

// ProtocolMessage interface - all protocol messages must implement this
type ProtocolMessage interface {
	// Encode serializes the message to bytes (convenience wrapper)
	Encode() ([]byte, error)
	// EncodeTo serializes the message directly to a writer
	EncodeTo(w io.Writer) error
	// Decode deserializes the message from bytes
	Decode(payload []byte) error
}

// Message type constants (Client → Server)
const (
	TypeAuth           = 0x01
	TypeRegister       = 0x02
	TypeListChannels   = 0x03 // empty payload
	TypeListUsers      = 0x04 // empty payload
	TypeChannelMessage = 0x05
	TypePrivateMessage = 0x06
	TypeCreateChannel  = 0x07
	TypeDeleteChannel  = 0x08
	TypeMuteUser       = 0x09
	TypeSetRole        = 0x0A
	TypeAddReaction    = 0x0B
	TypeListMessages   = 0x0C
)

// Message type constants (Server → Client)
const (
	TypeAuthResponse     = 0x81
	TypeRegisterResponse = 0x82
	TypeChannelList      = 0x83
	TypeUserList         = 0x84
	TypeChannelBroadcast = 0x85
	TypePrivateDelivery  = 0x86
	TypeUserStatus       = 0x87
	TypeMessageList      = 0x88
	TypeError            = 0x8E
	TypeSuccess          = 0x8F
)

// Roles carried in USER_LIST and SET_ROLE payloads
const (
	RoleUser      = 1
	RoleModerator = 2
	RoleAdmin     = 3
)

var (
	ErrUsernameTooLong = errors.New("username must be at most 20 characters")
	ErrContentTooLong  = errors.New("message content exceeds maximum length (256 bytes)")
	ErrEmptyContent    = errors.New("message content cannot be empty")
)

// Wire limits mirroring the server's store limits. Encoders enforce them so a
// well-behaved client never produces a frame the server must reject.
const (
	MaxUsernameLength    = 20
	MaxChannelNameLength = 30
	MaxContentLength     = 256
)

// AuthMessage (0x01) - Authenticate with username and password
type AuthMessage struct {
	Username string
	Password string
}

func (m *AuthMessage) EncodeTo(w io.Writer) error {
	if err := WriteString(w, m.Username); err != nil {
		return err
	}
	return WriteString(w, m.Password)
}

func (m *AuthMessage) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *AuthMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	username, err := ReadString(buf)
	if err != nil {
		return err
	}
	password, err := ReadString(buf)
	if err != nil {
		return err
	}

	m.Username = username
	m.Password = password
	return nil
}

// RegisterMessage (0x02) - Create a new account
type RegisterMessage struct {
	Username string
	Email    string
	Password string
}

func (m *RegisterMessage) EncodeTo(w io.Writer) error {
	if len(m.Username) > MaxUsernameLength {
		return ErrUsernameTooLong
	}
	if err := WriteString(w, m.Username); err != nil {
		return err
	}
	if err := WriteString(w, m.Email); err != nil {
		return err
	}
	return WriteString(w, m.Password)
}

func (m *RegisterMessage) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *RegisterMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	username, err := ReadString(buf)
	if err != nil {
		return err
	}
	email, err := ReadString(buf)
	if err != nil {
		return err
	}
	password, err := ReadString(buf)
	if err != nil {
		return err
	}

	m.Username = username
	m.Email = email
	m.Password = password
	return nil
}

// ChannelMessageRequest (0x05) - Post a message to a channel.
// ChannelID is 1-based on the wire, matching what CHANNEL_LIST implies.
type ChannelMessageRequest struct {
	ChannelID uint32
	Content   string
}

func (m *ChannelMessageRequest) EncodeTo(w io.Writer) error {
	if len(m.Content) == 0 {
		return ErrEmptyContent
	}
	if len(m.Content) > MaxContentLength {
		return ErrContentTooLong
	}
	if err := WriteUint32(w, m.ChannelID); err != nil {
		return err
	}
	return WriteString(w, m.Content)
}

func (m *ChannelMessageRequest) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *ChannelMessageRequest) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	channelID, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	content, err := ReadString(buf)
	if err != nil {
		return err
	}

	m.ChannelID = channelID
	m.Content = content
	return nil
}

// PrivateMessageRequest (0x06) - Send a direct message to a user
type PrivateMessageRequest struct {
	Username string
	Content  string
}

func (m *PrivateMessageRequest) EncodeTo(w io.Writer) error {
	if len(m.Content) == 0 {
		return ErrEmptyContent
	}
	if len(m.Content) > MaxContentLength {
		return ErrContentTooLong
	}
	if err := WriteString(w, m.Username); err != nil {
		return err
	}
	return WriteString(w, m.Content)
}

func (m *PrivateMessageRequest) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *PrivateMessageRequest) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	username, err := ReadString(buf)
	if err != nil {
		return err
	}
	content, err := ReadString(buf)
	if err != nil {
		return err
	}

	m.Username = username
	m.Content = content
	return nil
}

// CreateChannelMessage (0x07) - Create a new channel (admin only)
type CreateChannelMessage struct {
	Name string
}

func (m *CreateChannelMessage) EncodeTo(w io.Writer) error {
	return WriteString(w, m.Name)
}

func (m *CreateChannelMessage) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *CreateChannelMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	name, err := ReadString(buf)
	if err != nil {
		return err
	}
	m.Name = name
	return nil
}

// DeleteChannelMessage (0x08) - Delete a channel (admin only)
type DeleteChannelMessage struct {
	Name string
}

func (m *DeleteChannelMessage) EncodeTo(w io.Writer) error {
	return WriteString(w, m.Name)
}

func (m *DeleteChannelMessage) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *DeleteChannelMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	name, err := ReadString(buf)
	if err != nil {
		return err
	}
	m.Name = name
	return nil
}

// MuteUserMessage (0x09) - Mute a user in a channel (moderator+)
type MuteUserMessage struct {
	Username  string
	ChannelID uint32
	Minutes   uint32
}

func (m *MuteUserMessage) EncodeTo(w io.Writer) error {
	if err := WriteString(w, m.Username); err != nil {
		return err
	}
	if err := WriteUint32(w, m.ChannelID); err != nil {
		return err
	}
	return WriteUint32(w, m.Minutes)
}

func (m *MuteUserMessage) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *MuteUserMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	username, err := ReadString(buf)
	if err != nil {
		return err
	}
	channelID, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	minutes, err := ReadUint32(buf)
	if err != nil {
		return err
	}

	m.Username = username
	m.ChannelID = channelID
	m.Minutes = minutes
	return nil
}

// SetRoleMessage (0x0A) - Change a user's role (admin only)
type SetRoleMessage struct {
	Username string
	Role     uint8
}

func (m *SetRoleMessage) EncodeTo(w io.Writer) error {
	if err := WriteString(w, m.Username); err != nil {
		return err
	}
	return WriteUint8(w, m.Role)
}

func (m *SetRoleMessage) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *SetRoleMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	username, err := ReadString(buf)
	if err != nil {
		return err
	}
	role, err := ReadUint8(buf)
	if err != nil {
		return err
	}

	m.Username = username
	m.Role = role
	return nil
}

// AddReactionMessage (0x0B) - React to a message in a channel's log
type AddReactionMessage struct {
	ChannelID    uint32
	MessageIndex uint32
	Symbol       string
}

func (m *AddReactionMessage) EncodeTo(w io.Writer) error {
	if err := WriteUint32(w, m.ChannelID); err != nil {
		return err
	}
	if err := WriteUint32(w, m.MessageIndex); err != nil {
		return err
	}
	return WriteString(w, m.Symbol)
}

func (m *AddReactionMessage) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *AddReactionMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	channelID, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	index, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	symbol, err := ReadString(buf)
	if err != nil {
		return err
	}

	m.ChannelID = channelID
	m.MessageIndex = index
	m.Symbol = symbol
	return nil
}

// ListMessagesMessage (0x0C) - Fetch the in-memory message window of a channel
type ListMessagesMessage struct {
	ChannelID uint32
}

func (m *ListMessagesMessage) EncodeTo(w io.Writer) error {
	return WriteUint32(w, m.ChannelID)
}

func (m *ListMessagesMessage) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *ListMessagesMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	channelID, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	m.ChannelID = channelID
	return nil
}

// AuthResponseMessage (0x81) - Authentication result
type AuthResponseMessage struct {
	Success  bool
	UserID   uint32
	Username string
	Message  string
}

func (m *AuthResponseMessage) EncodeTo(w io.Writer) error {
	if err := WriteBool(w, m.Success); err != nil {
		return err
	}
	if err := WriteUint32(w, m.UserID); err != nil {
		return err
	}
	if err := WriteString(w, m.Username); err != nil {
		return err
	}
	return WriteString(w, m.Message)
}

func (m *AuthResponseMessage) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *AuthResponseMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	success, err := ReadBool(buf)
	if err != nil {
		return err
	}
	userID, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	username, err := ReadString(buf)
	if err != nil {
		return err
	}
	message, err := ReadString(buf)
	if err != nil {
		return err
	}

	m.Success = success
	m.UserID = userID
	m.Username = username
	m.Message = message
	return nil
}

// RegisterResponseMessage (0x82) - Registration result
type RegisterResponseMessage struct {
	Success  bool
	UserID   uint32
	Username string
	Message  string
}

func (m *RegisterResponseMessage) EncodeTo(w io.Writer) error {
	if err := WriteBool(w, m.Success); err != nil {
		return err
	}
	if err := WriteUint32(w, m.UserID); err != nil {
		return err
	}
	if err := WriteString(w, m.Username); err != nil {
		return err
	}
	return WriteString(w, m.Message)
}

func (m *RegisterResponseMessage) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *RegisterResponseMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	success, err := ReadBool(buf)
	if err != nil {
		return err
	}
	userID, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	username, err := ReadString(buf)
	if err != nil {
		return err
	}
	message, err := ReadString(buf)
	if err != nil {
		return err
	}

	m.Success = success
	m.UserID = userID
	m.Username = username
	m.Message = message
	return nil
}

// ChannelListMessage (0x83) - Snapshot of all channel names, in channel order
type ChannelListMessage struct {
	Channels []string
}

func (m *ChannelListMessage) EncodeTo(w io.Writer) error {
	if err := WriteUint16(w, uint16(len(m.Channels))); err != nil {
		return err
	}
	for _, name := range m.Channels {
		if err := WriteString(w, name); err != nil {
			return err
		}
	}
	return nil
}

func (m *ChannelListMessage) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *ChannelListMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	count, err := ReadUint16(buf)
	if err != nil {
		return err
	}

	channels := make([]string, 0, count)
	for i := uint16(0); i < count; i++ {
		name, err := ReadString(buf)
		if err != nil {
			return err
		}
		channels = append(channels, name)
	}

	m.Channels = channels
	return nil
}

// UserEntry is one row of a USER_LIST snapshot
type UserEntry struct {
	Username string
	Role     uint8
	Online   bool
}

// UserListMessage (0x84) - Snapshot of all registered users
type UserListMessage struct {
	Users []UserEntry
}

func (m *UserListMessage) EncodeTo(w io.Writer) error {
	if err := WriteUint16(w, uint16(len(m.Users))); err != nil {
		return err
	}
	for _, u := range m.Users {
		if err := WriteString(w, u.Username); err != nil {
			return err
		}
		if err := WriteUint8(w, u.Role); err != nil {
			return err
		}
		if err := WriteBool(w, u.Online); err != nil {
			return err
		}
	}
	return nil
}

func (m *UserListMessage) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *UserListMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	count, err := ReadUint16(buf)
	if err != nil {
		return err
	}

	users := make([]UserEntry, 0, count)
	for i := uint16(0); i < count; i++ {
		username, err := ReadString(buf)
		if err != nil {
			return err
		}
		role, err := ReadUint8(buf)
		if err != nil {
			return err
		}
		online, err := ReadBool(buf)
		if err != nil {
			return err
		}
		users = append(users, UserEntry{Username: username, Role: role, Online: online})
	}

	m.Users = users
	return nil
}

// ChannelBroadcastMessage (0x85) - A channel message fanned out to sessions
type ChannelBroadcastMessage struct {
	ChannelID uint32
	Sender    string
	Content   string
	Timestamp time.Time
}

func (m *ChannelBroadcastMessage) EncodeTo(w io.Writer) error {
	if err := WriteUint32(w, m.ChannelID); err != nil {
		return err
	}
	if err := WriteString(w, m.Sender); err != nil {
		return err
	}
	if err := WriteString(w, m.Content); err != nil {
		return err
	}
	return WriteTimestamp(w, m.Timestamp)
}

func (m *ChannelBroadcastMessage) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *ChannelBroadcastMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	channelID, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	sender, err := ReadString(buf)
	if err != nil {
		return err
	}
	content, err := ReadString(buf)
	if err != nil {
		return err
	}
	timestamp, err := ReadTimestamp(buf)
	if err != nil {
		return err
	}

	m.ChannelID = channelID
	m.Sender = sender
	m.Content = content
	m.Timestamp = timestamp
	return nil
}

// PrivateDeliveryMessage (0x86) - A direct message routed to its recipient
// (and echoed back to the sender as confirmation)
type PrivateDeliveryMessage struct {
	Sender    string
	Recipient string
	Content   string
	Timestamp time.Time
}

func (m *PrivateDeliveryMessage) EncodeTo(w io.Writer) error {
	if err := WriteString(w, m.Sender); err != nil {
		return err
	}
	if err := WriteString(w, m.Recipient); err != nil {
		return err
	}
	if err := WriteString(w, m.Content); err != nil {
		return err
	}
	return WriteTimestamp(w, m.Timestamp)
}

func (m *PrivateDeliveryMessage) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *PrivateDeliveryMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	sender, err := ReadString(buf)
	if err != nil {
		return err
	}
	recipient, err := ReadString(buf)
	if err != nil {
		return err
	}
	content, err := ReadString(buf)
	if err != nil {
		return err
	}
	timestamp, err := ReadTimestamp(buf)
	if err != nil {
		return err
	}

	m.Sender = sender
	m.Recipient = recipient
	m.Content = content
	m.Timestamp = timestamp
	return nil
}

// UserStatusMessage (0x87) - Online/offline notification
type UserStatusMessage struct {
	Username string
	Online   bool
}

func (m *UserStatusMessage) EncodeTo(w io.Writer) error {
	if err := WriteString(w, m.Username); err != nil {
		return err
	}
	return WriteBool(w, m.Online)
}

func (m *UserStatusMessage) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *UserStatusMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	username, err := ReadString(buf)
	if err != nil {
		return err
	}
	online, err := ReadBool(buf)
	if err != nil {
		return err
	}

	m.Username = username
	m.Online = online
	return nil
}

// Reaction is a single reaction symbol with its count
type Reaction struct {
	Symbol string
	Count  uint32
}

// Message is one entry of a MESSAGE_LIST snapshot
type Message struct {
	Sender    string
	Content   string
	Timestamp time.Time
	Reactions []Reaction
}

func (m *Message) encodeTo(w io.Writer) error {
	if err := WriteString(w, m.Sender); err != nil {
		return err
	}
	if err := WriteString(w, m.Content); err != nil {
		return err
	}
	if err := WriteTimestamp(w, m.Timestamp); err != nil {
		return err
	}
	if err := WriteUint8(w, uint8(len(m.Reactions))); err != nil {
		return err
	}
	for _, r := range m.Reactions {
		if err := WriteString(w, r.Symbol); err != nil {
			return err
		}
		if err := WriteUint32(w, r.Count); err != nil {
			return err
		}
	}
	return nil
}

func (m *Message) decodeFrom(r io.Reader) error {
	sender, err := ReadString(r)
	if err != nil {
		return err
	}
	content, err := ReadString(r)
	if err != nil {
		return err
	}
	timestamp, err := ReadTimestamp(r)
	if err != nil {
		return err
	}
	reactionCount, err := ReadUint8(r)
	if err != nil {
		return err
	}

	var reactions []Reaction
	for i := uint8(0); i < reactionCount; i++ {
		symbol, err := ReadString(r)
		if err != nil {
			return err
		}
		count, err := ReadUint32(r)
		if err != nil {
			return err
		}
		reactions = append(reactions, Reaction{Symbol: symbol, Count: count})
	}

	m.Sender = sender
	m.Content = content
	m.Timestamp = timestamp
	m.Reactions = reactions
	return nil
}

// MessageListMessage (0x88) - The in-memory message window of one channel,
// oldest first
type MessageListMessage struct {
	ChannelID uint32
	Messages  []Message
}

func (m *MessageListMessage) EncodeTo(w io.Writer) error {
	if err := WriteUint32(w, m.ChannelID); err != nil {
		return err
	}
	if err := WriteUint16(w, uint16(len(m.Messages))); err != nil {
		return err
	}
	for i := range m.Messages {
		if err := m.Messages[i].encodeTo(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *MessageListMessage) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *MessageListMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	channelID, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	count, err := ReadUint16(buf)
	if err != nil {
		return err
	}

	messages := make([]Message, count)
	for i := range messages {
		if err := messages[i].decodeFrom(buf); err != nil {
			return err
		}
	}

	m.ChannelID = channelID
	m.Messages = messages
	return nil
}

// ErrorMessage (0x8E) - Human-readable failure notice. There are no error
// codes beyond the type tag; the message text is the whole story.
type ErrorMessage struct {
	Message string
}

func (m *ErrorMessage) EncodeTo(w io.Writer) error {
	return WriteString(w, m.Message)
}

func (m *ErrorMessage) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *ErrorMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	message, err := ReadString(buf)
	if err != nil {
		return err
	}
	m.Message = message
	return nil
}

// SuccessMessage (0x8F) - Human-readable success notice
type SuccessMessage struct {
	Message string
}

func (m *SuccessMessage) EncodeTo(w io.Writer) error {
	return WriteString(w, m.Message)
}

func (m *SuccessMessage) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *SuccessMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	message, err := ReadString(buf)
	if err != nil {
		return err
	}
	m.Message = message
	return nil
}

// TypeName returns a stable human-readable name for a message type tag,
// used for logging and metrics labels.
func TypeName(msgType uint8) string {
	switch msgType {
	case TypeAuth:
		return "AUTH"
	case TypeRegister:
		return "REGISTER"
	case TypeListChannels:
		return "CHANNEL_LIST_REQUEST"
	case TypeListUsers:
		return "USER_LIST_REQUEST"
	case TypeChannelMessage:
		return "CHANNEL_MSG"
	case TypePrivateMessage:
		return "PRIVATE_MSG"
	case TypeCreateChannel:
		return "CREATE_CHANNEL"
	case TypeDeleteChannel:
		return "DELETE_CHANNEL"
	case TypeMuteUser:
		return "MUTE_USER"
	case TypeSetRole:
		return "SET_ROLE"
	case TypeAddReaction:
		return "ADD_REACTION"
	case TypeListMessages:
		return "LIST_MESSAGES"
	case TypeAuthResponse:
		return "AUTH_RESPONSE"
	case TypeRegisterResponse:
		return "REG_RESPONSE"
	case TypeChannelList:
		return "CHANNEL_LIST"
	case TypeUserList:
		return "USER_LIST"
	case TypeChannelBroadcast:
		return "CHANNEL_BROADCAST"
	case TypePrivateDelivery:
		return "PRIVATE_DELIVERY"
	case TypeUserStatus:
		return "USER_STATUS"
	case TypeMessageList:
		return "MESSAGE_LIST"
	case TypeError:
		return "ERROR"
	case TypeSuccess:
		return "SUCCESS"
	default:
		return "UNKNOWN"
	}
}
