// Package tx decouples domain services from the concrete transaction implementation.
// The postgres and in-memory storage backends both satisfy Manager.
package tx

import (
	"context"
)

// Manager runs a unit of work atomically.
//
// The transaction travels inside ctx; repositories pick it up from there, so
// fn must pass the ctx it receives to every repository call. If fn returns an
// error everything done inside it is rolled back. Nested calls reuse the
// outer transaction.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
