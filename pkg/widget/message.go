package widget

import (
	"sync"
	"time"
)

// Origin tells who wrote a message.
type Origin int

const (
	User Origin = iota
	Bot
)

func (o Origin) String() string {
	if o == User {
		return "user"
	}
	return "bot"
}

// Message is one transcript entry. It is never changed after it is appended.
type Message struct {
	Origin Origin
	Text   string
	Time   time.Time
}

// Role returns the origin as the string used on the wire and in CSS classes.
func (m Message) Role() string {
	return m.Origin.String()
}

// Transcript is the ordered, append-only list of messages of one widget.
type Transcript struct {
	mu   sync.RWMutex
	msgs []Message
}

func (t *Transcript) append(m Message) {
	t.mu.Lock()
	t.msgs = append(t.msgs, m)
	t.mu.Unlock()
}

// Messages returns a copy of the transcript in display order.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.msgs)
}

// Last returns the most recent message with the given origin.
func (t *Transcript) Last(origin Origin) (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := len(t.msgs) - 1; i >= 0; i-- {
		if t.msgs[i].Origin == origin {
			return t.msgs[i], true
		}
	}
	return Message{}, false
}
