// Package memory provides an in-process storage backend for development and tests.
//
// Store satisfies tx.Manager: a transaction holds the store mutex for its whole
// duration and restores a snapshot when fn fails, so concurrent submissions are
// serialized exactly like row locks would serialize them in PostgreSQL.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain/movement"
	"stockledger/internal/domain/stock"
	"stockledger/internal/domain/template"
)

// ItemTemplate is a named variant list; at most one is active.
type ItemTemplate struct {
	ID         id.ID
	Name       string
	VariantIDs []id.ID
	Active     bool
}

type state struct {
	variants  map[id.ID]stock.Variant
	records   map[id.ID]movement.Record
	lines     map[id.ID][]movement.Line
	codes     map[string]id.ID
	templates map[id.ID]ItemTemplate
}

func newState() state {
	return state{
		variants:  make(map[id.ID]stock.Variant),
		records:   make(map[id.ID]movement.Record),
		lines:     make(map[id.ID][]movement.Line),
		codes:     make(map[string]id.ID),
		templates: make(map[id.ID]ItemTemplate),
	}
}

func (s state) clone() state {
	lines := make(map[id.ID][]movement.Line, len(s.lines))
	for k, v := range s.lines {
		lines[k] = append([]movement.Line(nil), v...)
	}
	return state{
		variants:  maps.Clone(s.variants),
		records:   maps.Clone(s.records),
		lines:     lines,
		codes:     maps.Clone(s.codes),
		templates: maps.Clone(s.templates),
	}
}

// Store holds every table in maps guarded by one mutex.
type Store struct {
	mu    sync.Mutex
	state state
	now   func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{state: newState(), now: time.Now}
}

type txMarker struct{}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txMarker{}).(bool)
	return ok
}

// lock takes the store mutex unless ctx already runs inside a transaction
// that holds it.
func (s *Store) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// RunInTransaction implements tx.Manager.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	defer func() {
		if p := recover(); p != nil {
			s.state = snapshot
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// Movements returns the movement repository view.
func (s *Store) Movements() *MovementRepo {
	return &MovementRepo{store: s}
}

// Variants returns the variant repository view.
func (s *Store) Variants() *VariantRepo {
	return &VariantRepo{store: s}
}

// PutVariant inserts or replaces a catalog variant.
func (s *Store) PutVariant(v stock.Variant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = s.now().UTC()
	}
	s.state.variants[v.ID] = v
}

// PutTemplate inserts or replaces a template. Activating it deactivates every other one.
func (s *Store) PutTemplate(t ItemTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Active {
		for k, other := range s.state.templates {
			other.Active = false
			s.state.templates[k] = other
		}
	}
	t.VariantIDs = append([]id.ID(nil), t.VariantIDs...)
	s.state.templates[t.ID] = t
}

// ActiveTemplate implements template.Provider.
func (s *Store) ActiveTemplate(ctx context.Context) (*template.Snapshot, error) {
	defer s.lock(ctx)()

	for _, t := range s.state.templates {
		if !t.Active {
			continue
		}
		tid := t.ID
		return &template.Snapshot{
			TemplateID: &tid,
			Name:       t.Name,
			VariantIDs: append([]id.ID{}, t.VariantIDs...),
			Active:     true,
		}, nil
	}
	return &template.Snapshot{VariantIDs: []id.ID{}}, nil
}

var (
	_ tx.Manager        = (*Store)(nil)
	_ template.Provider = (*Store)(nil)
)
