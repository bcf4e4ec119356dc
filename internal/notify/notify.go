// Package notify carries the semantic events the inventory store emits.
// Presentation (toasts, webhooks) belongs to whoever consumes them.
package notify

import (
	"log"
	"sync"
	"time"
)

type Kind string

const (
	KindSuccess  Kind = "success"
	KindInfo     Kind = "info"
	KindLowStock Kind = "low_stock"
)

type Event struct {
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	ProductID   string    `json:"product_id,omitempty"`
	Time        time.Time `json:"time"`
}

// Notifier receives events after the store has released its lock, so an
// implementation may read the store back.
type Notifier interface {
	Notify(Event)
}

// Discard drops every event.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Event) {}

// Log writes events through the standard logger.
type Log struct {
	Logger *log.Logger
}

func (l Log) Notify(e Event) {
	logger := l.Logger
	if logger == nil {
		logger = log.Default()
	}

	if e.Description != "" {
		logger.Printf("[%s] %s: %s", e.Kind, e.Title, e.Description)
		return
	}
	logger.Printf("[%s] %s", e.Kind, e.Title)
}

// Recorder keeps the most recent events, oldest first.
type Recorder struct {
	mu     sync.Mutex
	limit  int
	events []Event
}

func NewRecorder(limit int) *Recorder {
	if limit < 1 {
		limit = 1
	}
	return &Recorder{limit: limit}
}

func (r *Recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, e)
	if over := len(r.events) - r.limit; over > 0 {
		r.events = append(r.events[:0:0], r.events[over:]...)
	}
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Event(nil), r.events...)
}

// Count returns how many recorded events are of the given kind.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = nil
}

type multi []Notifier

// Multi fans every event out to each notifier in order.
func Multi(notifiers ...Notifier) Notifier {
	return multi(notifiers)
}

func (m multi) Notify(e Event) {
	for _, n := range m {
		n.Notify(e)
	}
}
