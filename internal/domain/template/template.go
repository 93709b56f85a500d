// Package template serves the active item template used to pre-populate new drafts.
//
// Template CRUD lives elsewhere; this package only reads the active flag and
// caches the resulting variant list.
package template

import (
	"context"
	"time"

	"stockledger/internal/core/id"
)

// CacheKey is the fixed key the active template snapshot is stored under.
const CacheKey = "active_template"

// DefaultTTL bounds how stale a cached snapshot may get without an explicit invalidation.
const DefaultTTL = 60 * time.Second

// Snapshot is the active template at a point in time.
// Active is false and VariantIDs empty when no template is marked active.
type Snapshot struct {
	TemplateID *id.ID  `json:"templateId,omitempty"`
	Name       string  `json:"name,omitempty"`
	VariantIDs []id.ID `json:"variantIds"`
	Active     bool    `json:"active"`
}

// Provider loads the active template from its source of truth.
type Provider interface {
	ActiveTemplate(ctx context.Context) (*Snapshot, error)
}

// Store keeps snapshots between refreshes.
type Store interface {
	// Get returns (nil, false, nil) on a miss or an expired entry.
	Get(ctx context.Context, key string) (*Snapshot, bool, error)
	Set(ctx context.Context, key string, snap *Snapshot, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
