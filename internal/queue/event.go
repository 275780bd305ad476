// Package queue defines the domain events exchanged over the message
// broker, the publisher used by the services and the background consumer
// that maintains reading statistics and the activity log.
package queue

import (
    "context"
    "sync"
    "time"
)

// Event types double as routing keys on the events exchange.
const (
    UserRegistered = "user.registered"
    LoanBorrowed   = "loan.borrowed"
    LoanReturned   = "loan.returned"
    LoanOverdue    = "loan.overdue"
    OrderPlaced    = "order.placed"
    OrderAccepted  = "order.accepted"
    OrderRejected  = "order.rejected"
)

// ExchangeName is the durable topic exchange all events are published to.
const ExchangeName = "bookcore.events"

// Event is published after the change it describes has been committed.  It
// carries enough information for consumers to log or aggregate without
// querying the primary database.  Fields that do not apply to a type are
// left empty.
type Event struct {
    Type       string     `json:"type"`
    UserID     string     `json:"user_id,omitempty"`
    Email      string     `json:"email,omitempty"`
    BookID     string     `json:"book_id,omitempty"`
    BookTitle  string     `json:"book_title,omitempty"`
    LoanID     string     `json:"loan_id,omitempty"`
    OrderID    string     `json:"order_id,omitempty"`
    OrderType  string     `json:"order_type,omitempty"`
    Status     string     `json:"status,omitempty"`
    DueDate    *time.Time `json:"due_date,omitempty"`
    ReturnDate *time.Time `json:"return_date,omitempty"`
    OccurredAt time.Time  `json:"occurred_at"`
}

// Publisher sends events to the broker.
type Publisher interface {
    Publish(ctx context.Context, ev Event) error
}

// NopPublisher drops every event.  It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory, for tests and local tooling.
type Recorder struct {
    mu     sync.Mutex
    events []Event
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Publish(_ context.Context, ev Event) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.events = append(r.events, ev)
    return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
    r.mu.Lock()
    defer r.mu.Unlock()
    return append([]Event(nil), r.events...)
}

// Types returns the type of every published event, in order.
func (r *Recorder) Types() []string {
    evs := r.Events()
    out := make([]string, len(evs))
    for i, ev := range evs {
        out[i] = ev.Type
    }
    return out
}
