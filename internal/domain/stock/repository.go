package stock

import (
	"context"

	"stockledger/internal/core/id"
)

// Repository is the catalog side of the stock counter.
type Repository interface {
	// GetVariant returns a variant without locking it.
	GetVariant(ctx context.Context, variantID id.ID) (*Variant, error)

	// LockVariants row-locks the given variants until the surrounding
	// transaction ends. ids arrive sorted and locks are taken in that order.
	// Missing ids are simply absent from the result.
	LockVariants(ctx context.Context, ids []id.ID) ([]Variant, error)

	// AddStock applies stock_current = stock_current + delta per entry.
	AddStock(ctx context.Context, deltas []Adjustment) error
}
