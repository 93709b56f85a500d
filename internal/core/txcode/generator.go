// Package txcode provides domain contracts for transaction code assignment.
// Implementations live in pkg/txcode.
package txcode

import (
	"context"
)

// Generator assigns human-facing transaction codes of the form PREFIX-NNNNNNNNNNNN.
//
// Generate never fails: when uniqueness cannot be confirmed it still returns a code,
// and the unique index on stock_movements.transaction_code is the final arbiter.
type Generator interface {
	Generate(ctx context.Context, prefix string) string
}

// Checker reports whether a code is already taken.
type Checker interface {
	CodeExists(ctx context.Context, code string) (bool, error)
}
