// Package notify reports failures of user actions to the user.
package notify

import (
	"log/slog"
	"sync"
)

// Notifier shows a short message to the user.
type Notifier interface {
	Notify(title, body string)
}

// Log writes notifications to the default logger.
type Log struct{}

func (Log) Notify(title, body string) {
	slog.Warn("notify: "+title, "detail", body)
}

// Message is one recorded notification.
type Message struct {
	Title string
	Body  string
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *Recorder) Notify(title, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, Message{Title: title, Body: body})
}

// Messages returns the notifications so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

// Multi fans one notification out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(title, body string) {
	for _, n := range m {
		n.Notify(title, body)
	}
}
