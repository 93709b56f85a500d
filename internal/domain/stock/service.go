package stock

import (
	"context"
	"fmt"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/pkg/logger"
)

// Service applies stock adjustments.
// Transactions are managed by the caller (the movement submission).
type Service struct {
	repo Repository
}

// NewService creates a new stock service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetVariant returns the current catalog state of a variant.
func (s *Service) GetVariant(ctx context.Context, variantID id.ID) (*Variant, error) {
	v, err := s.repo.GetVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Apply locks every referenced variant and applies adjustments atomically.
//
// Must run inside a transaction. Adjustments are checked in the order given
// against a running balance, so an outbound line fails as soon as earlier
// lines of the same set have used up the stock. On any error nothing is written.
func (s *Service) Apply(ctx context.Context, adjustments []Adjustment) error {
	if len(adjustments) == 0 {
		return nil
	}

	ids := make([]id.ID, 0, len(adjustments))
	seen := make(map[id.ID]struct{}, len(adjustments))
	for _, a := range adjustments {
		if _, ok := seen[a.VariantID]; ok {
			continue
		}
		seen[a.VariantID] = struct{}{}
		ids = append(ids, a.VariantID)
	}
	// Fixed lock order keeps two submissions over the same variants from deadlocking.
	id.Sort(ids)

	locked, err := s.repo.LockVariants(ctx, ids)
	if err != nil {
		return fmt.Errorf("lock variants: %w", err)
	}

	running := make(map[id.ID]int64, len(locked))
	for _, v := range locked {
		running[v.ID] = v.StockCurrent
	}
	for _, vid := range ids {
		if _, ok := running[vid]; !ok {
			return apperror.NewNotFound("variant", vid.String())
		}
	}

	net := make(map[id.ID]int64, len(ids))
	for _, a := range adjustments {
		balance := running[a.VariantID]
		if a.Delta < 0 && balance+a.Delta < 0 {
			return apperror.NewInsufficientStock(a.VariantID.String(), -a.Delta, balance)
		}
		running[a.VariantID] = balance + a.Delta
		net[a.VariantID] += a.Delta
	}

	deltas := make([]Adjustment, 0, len(ids))
	for _, vid := range ids {
		if d := net[vid]; d != 0 {
			deltas = append(deltas, Adjustment{VariantID: vid, Delta: d})
		}
	}
	if len(deltas) == 0 {
		return nil
	}

	if err := s.repo.AddStock(ctx, deltas); err != nil {
		return fmt.Errorf("add stock: %w", err)
	}

	logger.Debug(ctx, "stock adjusted", "variants", len(deltas))
	return nil
}
