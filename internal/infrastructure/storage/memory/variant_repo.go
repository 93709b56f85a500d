package memory

import (
	"context"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/stock"
)

// VariantRepo implements stock.Repository.
type VariantRepo struct {
	store *Store
}

// GetVariant implements stock.Repository.
func (r *VariantRepo) GetVariant(ctx context.Context, variantID id.ID) (*stock.Variant, error) {
	defer r.store.lock(ctx)()

	v, ok := r.store.state.variants[variantID]
	if !ok {
		return nil, apperror.NewNotFound("variant", variantID.String())
	}
	return &v, nil
}

// LockVariants implements stock.Repository. The transaction already holds the
// store mutex, so reading is enough.
func (r *VariantRepo) LockVariants(ctx context.Context, ids []id.ID) ([]stock.Variant, error) {
	defer r.store.lock(ctx)()

	out := make([]stock.Variant, 0, len(ids))
	for _, vid := range ids {
		if v, ok := r.store.state.variants[vid]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// AddStock implements stock.Repository.
func (r *VariantRepo) AddStock(ctx context.Context, deltas []stock.Adjustment) error {
	defer r.store.lock(ctx)()

	now := r.store.now().UTC()
	for _, d := range deltas {
		v, ok := r.store.state.variants[d.VariantID]
		if !ok {
			return apperror.NewNotFound("variant", d.VariantID.String())
		}
		if v.StockCurrent+d.Delta < 0 {
			// Mirrors CHECK (stock_current >= 0).
			return apperror.NewInsufficientStock(d.VariantID.String(), -d.Delta, v.StockCurrent)
		}
		v.StockCurrent += d.Delta
		v.UpdatedAt = now
		r.store.state.variants[d.VariantID] = v
	}
	return nil
}

var _ stock.Repository = (*VariantRepo)(nil)
