// Package notify is the non-blocking channel through which failures and
// notices reach the user. Posting never blocks and never fails; when the
// ring is full the oldest notice is dropped.
package notify

import (
	"slices"
	"sync"
	"time"
)

// Level grades a notice.
type Level int

const (
	Info Level = iota
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Notice is one message shown to the user.
type Notice struct {
	ID          uint64
	Level       Level
	Message     string
	Key         string // notices with the same non-empty key replace each other
	Dismissible bool
	At          time.Time
}

// DefaultCapacity bounds the number of notices kept.
const DefaultCapacity = 32

// Center stores recent notices and wakes a listener when they change.
type Center struct {
	mu      sync.Mutex
	notices []Notice
	cap     int
	nextID  uint64
	now     func() time.Time
	changed chan struct{}
}

// NewCenter returns a Center that keeps at most capacity notices.
func NewCenter(capacity int) *Center {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Center{
		cap:     capacity,
		now:     time.Now,
		changed: make(chan struct{}, 1),
	}
}

// Post records a notice and returns its id.
func (c *Center) Post(level Level, key, message string) uint64 {
	c.mu.Lock()
	c.nextID++
	n := Notice{
		ID:          c.nextID,
		Level:       level,
		Message:     message,
		Key:         key,
		Dismissible: true,
		At:          c.now(),
	}
	if key != "" {
		c.notices = slices.DeleteFunc(c.notices, func(old Notice) bool { return old.Key == key })
	}
	c.notices = append(c.notices, n)
	if over := len(c.notices) - c.cap; over > 0 {
		c.notices = slices.Delete(c.notices, 0, over)
	}
	c.mu.Unlock()

	c.signal()
	return n.ID
}

// Active returns the current notices, oldest first.
func (c *Center) Active() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.notices)
}

// Latest returns the newest notice.
func (c *Center) Latest() (Notice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.notices) == 0 {
		return Notice{}, false
	}
	return c.notices[len(c.notices)-1], true
}

// Dismiss removes the notice with id. It reports whether one was removed.
func (c *Center) Dismiss(id uint64) bool {
	c.mu.Lock()
	before := len(c.notices)
	c.notices = slices.DeleteFunc(c.notices, func(n Notice) bool { return n.ID == id })
	removed := len(c.notices) != before
	c.mu.Unlock()
	if removed {
		c.signal()
	}
	return removed
}

// DismissKey removes the notice posted under key, if any.
func (c *Center) DismissKey(key string) {
	c.mu.Lock()
	before := len(c.notices)
	c.notices = slices.DeleteFunc(c.notices, func(n Notice) bool { return n.Key == key })
	removed := len(c.notices) != before
	c.mu.Unlock()
	if removed {
		c.signal()
	}
}

// Changed returns a channel that receives after notices change. Signals coalesce.
func (c *Center) Changed() <-chan struct{} {
	return c.changed
}

func (c *Center) signal() {
	select {
	case c.changed <- struct{}{}:
	default:
	}
}
