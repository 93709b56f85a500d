// Package id provides UUIDv7 identifiers for ledger records, lines and variants.
package id

import (
	"bytes"
	"slices"

	"github.com/google/uuid"
)

// ID is the identifier type shared by every persisted entity.
type ID = uuid.UUID

// New generates a time-ordered UUIDv7.
// Records are never keyed by a sequential integer; the embedded timestamp still
// keeps B-tree inserts local.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts string to ID, panics on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// IsNil checks if ID is zero-value.
func IsNil(v ID) bool {
	return v == uuid.Nil
}

// Sort orders ids by their byte representation, which matches the
// ordering PostgreSQL applies to the uuid type.
func Sort(ids []ID) {
	slices.SortFunc(ids, func(a, b ID) int {
		return bytes.Compare(a[:], b[:])
	})
}
