// Package audit defines the audit trail contract for ledger mutations.
package audit

import (
	"context"
	"sync"
	"time"

	appctx "stockledger/internal/core/context"
	"stockledger/pkg/logger"
)

// Action names the audited operation.
type Action string

const (
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionUpdateNote Action = "update_note"
	ActionSubmit     Action = "submit"
	ActionDelete     Action = "delete"
)

// Event is one audit trail entry.
type Event struct {
	Action     Action
	ActorID    string
	EntityType string
	EntityID   string
	Details    map[string]any
	OccurredAt time.Time
}

// Sink persists audit events.
type Sink interface {
	Record(ctx context.Context, event Event) error
}

// HistoryReader returns the recorded trail of one entity, newest first.
type HistoryReader interface {
	History(ctx context.Context, entityType, entityID string, limit int) ([]Event, error)
}

// Emit records an event after a committed mutation.
// The actor and timestamp are filled from ctx when unset. Failures are
// logged and swallowed: a lost audit entry never undoes committed work.
func Emit(ctx context.Context, sink Sink, event Event) {
	if sink == nil {
		return
	}
	if event.ActorID == "" {
		event.ActorID = appctx.GetUserID(ctx)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := sink.Record(ctx, event); err != nil {
		logger.Warn(ctx, "audit record failed",
			"action", event.Action,
			"entity_type", event.EntityType,
			"entity_id", event.EntityID,
			"error", err,
		)
	}
}

// LogSink writes events to the structured log.
// Used with the in-memory storage driver where no audit table exists.
type LogSink struct {
	log *logger.Logger
}

// NewLogSink creates a sink writing through log.
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log.WithComponent("audit")}
}

// Record implements Sink.
func (s *LogSink) Record(ctx context.Context, event Event) error {
	s.log.WithContext(ctx).Infow("audit",
		"action", event.Action,
		"actor_id", event.ActorID,
		"entity_type", event.EntityType,
		"entity_id", event.EntityID,
		"details", event.Details,
	)
	return nil
}

// MultiSink fans an event out to several sinks.
// Every sink is tried; the first failure is returned.
type MultiSink []Sink

// Record implements Sink.
func (m MultiSink) Record(ctx context.Context, event Event) error {
	var first error
	for _, s := range m {
		if err := s.Record(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// MemorySink keeps events in memory. Tests read them back with Events.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// FailWith makes every subsequent Record return err.
func (s *MemorySink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Record implements Sink.
func (s *MemorySink) Record(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// History implements HistoryReader.
func (s *MemorySink) History(_ context.Context, entityType, entityID string, limit int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Event{}
	for i := len(s.events) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		e := s.events[i]
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

var (
	_ Sink          = (*LogSink)(nil)
	_ Sink          = (*MemorySink)(nil)
	_ Sink          = MultiSink(nil)
	_ HistoryReader = (*MemorySink)(nil)
)
