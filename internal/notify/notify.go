// Package notify carries transient user-facing notifications (toasts).
package notify

import (
	"sync"

	"github.com/rs/zerolog"
)

// Variant selects how a notification is presented.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is a short non-blocking message shown to the user.
type Notification struct {
	Title       string
	Description string
	Variant     Variant
}

// Sink receives notifications. Implementations must be safe for concurrent use.
type Sink interface {
	Notify(n Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Notification)

func (f SinkFunc) Notify(n Notification) { f(n) }

// Recorder keeps every notification in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns a copy of the recorded notifications in arrival order.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Log writes notifications to a zerolog logger.
type Log struct {
	Logger zerolog.Logger
}

func (l Log) Notify(n Notification) {
	event := l.Logger.Info()
	if n.Variant == VariantDestructive {
		event = l.Logger.Warn()
	}
	event.Str("title", n.Title).Msg(n.Description)
}

// Discard drops every notification.
var Discard Sink = SinkFunc(func(Notification) {})
