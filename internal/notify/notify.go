// Package notify carries user-facing notifications (toasts) from the workflow
// controller to whatever renders them.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// DefaultDuration is how long a toast should stay visible.
const DefaultDuration = 5 * time.Second

type Notification struct {
	Kind        Kind          `json:"kind"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	At          time.Time     `json:"at"`
}

func Success(title string) Notification {
	return Notification{Kind: KindSuccess, Title: title, Duration: DefaultDuration}
}

func Error(title, description string) Notification {
	return Notification{Kind: KindError, Title: title, Description: description, Duration: DefaultDuration}
}

// Expired reports whether n should no longer be shown at now.
func (n Notification) Expired(now time.Time) bool {
	if n.Duration <= 0 || n.At.IsZero() {
		return false
	}
	return now.Sub(n.At) >= n.Duration
}

type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to Notifier.
type Func func(Notification)

func (f Func) Notify(n Notification) {
	if f != nil {
		f(n)
	}
}

// Discard drops every notification.
var Discard Notifier = Func(nil)

// Multi fans a notification out to every sink.
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, x := range m {
		if x != nil {
			x.Notify(n)
		}
	}
}

// LogNotifier writes notifications to a slog logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(n Notification) {
	lg := l.Logger
	if lg == nil {
		lg = slog.Default()
	}
	attrs := []any{"kind", string(n.Kind), "title", n.Title}
	if n.Description != "" {
		attrs = append(attrs, "description", n.Description)
	}
	if n.Kind == KindError {
		lg.Warn("notification", attrs...)
		return
	}
	lg.Info("notification", attrs...)
}

// Queue is a bounded FIFO of notifications. Oldest entries are dropped when full.
type Queue struct {
	mu    sync.Mutex
	items []Notification
	max   int
	now   func() time.Time
}

func NewQueue(max int) *Queue {
	if max <= 0 {
		max = 16
	}
	return &Queue{max: max, now: time.Now}
}

func (q *Queue) Notify(n Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n.At.IsZero() {
		n.At = q.now()
	}
	q.items = append(q.items, n)
	if over := len(q.items) - q.max; over > 0 {
		q.items = append([]Notification(nil), q.items[over:]...)
	}
}

// Drain returns and clears every queued notification.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Active returns the notifications that have not expired yet, oldest first,
// and forgets the expired ones.
func (q *Queue) Active() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	kept := q.items[:0]
	for _, n := range q.items {
		if !n.Expired(now) {
			kept = append(kept, n)
		}
	}
	q.items = kept
	return append([]Notification(nil), kept...)
}

// Latest returns the most recent notification, if any.
func (q *Queue) Latest() (Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Notification{}, false
	}
	return q.items[len(q.items)-1], true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
