package store

import (
	"sync"
	"time"
)

const (
	// MaxChannelNameLength is the maximum channel name length in characters
	MaxChannelNameLength = 30

	// DefaultLogCapacity is the default bounded message log size per channel
	DefaultLogCapacity = 1000

	// DefaultMaxReactions is the default number of distinct reaction symbols
	// a single message can hold
	DefaultMaxReactions = 10
)

// Reaction is one distinct reaction symbol on a message with its count
type Reaction struct {
	Symbol string
	Count  int
}

// Message is one entry in a channel's log. Immutable once appended, except
// for reaction counts.
type Message struct {
	Sender    string
	Content   string
	Timestamp time.Time
	Reactions []Reaction
}

// channel holds a name and a bounded FIFO message log. The log is a ring:
// once len(log) reaches the capacity, appending overwrites the oldest entry
// instead of growing.
type channel struct {
	name  string
	log   []Message
	start int
}

func (c *channel) append(msg Message, capacity int) {
	if len(c.log) < capacity {
		c.log = append(c.log, msg)
		return
	}
	c.log[c.start] = msg
	c.start = (c.start + 1) % len(c.log)
}

// at returns a pointer to the i-th message in log order (0 = oldest)
func (c *channel) at(i int) *Message {
	return &c.log[(c.start+i)%len(c.log)]
}

func (c *channel) snapshot() []Message {
	out := make([]Message, len(c.log))
	for i := range c.log {
		m := c.at(i)
		out[i] = *m
		out[i].Reactions = append([]Reaction(nil), m.Reactions...)
	}
	return out
}

// Channels is the registry of all channels and their message logs. Channel
// IDs are zero-based positions in the registry; deletion compacts the slice,
// so IDs are only stable between mutations - callers resolve names when
// stability matters. The first len(defaults) channels are protected from
// deletion. All access goes through the mutex; message-log mutation happens
// under the same lock as the registry itself.
type Channels struct {
	mu           sync.Mutex
	capacity     int
	logCapacity  int
	maxReactions int
	protected    int
	channels     []*channel
}

// NewChannels creates a channel registry seeded with the default channels,
// which become undeletable.
func NewChannels(capacity, logCapacity, maxReactions int, defaults []string) *Channels {
	if logCapacity <= 0 {
		logCapacity = DefaultLogCapacity
	}
	if maxReactions <= 0 {
		maxReactions = DefaultMaxReactions
	}

	s := &Channels{
		capacity:     capacity,
		logCapacity:  logCapacity,
		maxReactions: maxReactions,
		protected:    len(defaults),
	}
	for _, name := range defaults {
		s.channels = append(s.channels, &channel{name: name})
	}
	return s
}

// Create adds a new empty channel
func (s *Channels) Create(name string) error {
	if len(name) > MaxChannelNameLength {
		return ErrChannelNameTooLong
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.channels {
		if c.name == name {
			return ErrDuplicateChannel
		}
	}
	if len(s.channels) >= s.capacity {
		return ErrChannelTableFull
	}

	s.channels = append(s.channels, &channel{name: name})
	return nil
}

// Delete removes a non-default channel by name and compacts the registry
func (s *Channels) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, c := range s.channels {
		if c.name == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrChannelNotFound
	}
	if idx < s.protected {
		return ErrProtectedChannel
	}

	s.channels = append(s.channels[:idx], s.channels[idx+1:]...)
	return nil
}

// Append adds a message to a channel's log, evicting the oldest entry when
// the log is at capacity. id is the zero-based channel index.
func (s *Channels) Append(id int, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.channelAt(id)
	if err != nil {
		return err
	}
	c.append(msg, s.logCapacity)
	return nil
}

// AddReaction increments an existing reaction on a message or allocates a
// new slot for the symbol. index is the zero-based position in log order
// (0 = oldest). Returns the resulting reaction state.
func (s *Channels) AddReaction(id, index int, symbol string) (Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.channelAt(id)
	if err != nil {
		return Reaction{}, err
	}
	if index < 0 || index >= len(c.log) {
		return Reaction{}, ErrInvalidIndex
	}

	m := c.at(index)
	for i := range m.Reactions {
		if m.Reactions[i].Symbol == symbol {
			m.Reactions[i].Count++
			return m.Reactions[i], nil
		}
	}
	if len(m.Reactions) >= s.maxReactions {
		return Reaction{}, ErrReactionSlotsFull
	}

	r := Reaction{Symbol: symbol, Count: 1}
	m.Reactions = append(m.Reactions, r)
	return r, nil
}

// Messages returns a copy of a channel's log, oldest first
func (s *Channels) Messages(id int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.channelAt(id)
	if err != nil {
		return nil, err
	}
	return c.snapshot(), nil
}

// Name returns the name of the channel at the given zero-based index
func (s *Channels) Name(id int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.channelAt(id)
	if err != nil {
		return "", err
	}
	return c.name, nil
}

// Names returns all channel names in registry order
func (s *Channels) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.channels))
	for i, c := range s.channels {
		out[i] = c.name
	}
	return out
}

// Count returns the number of channels
func (s *Channels) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.channels)
}

// channelAt must be called with the mutex held
func (s *Channels) channelAt(id int) (*channel, error) {
	if id < 0 || id >= len(s.channels) {
		return nil, ErrInvalidChannel
	}
	return s.channels[id], nil
}
