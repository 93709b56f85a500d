package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/stock"
)

func seedVariant(t *testing.T, s *Store, onHand int64) id.ID {
	t.Helper()
	v := stock.Variant{ID: id.New(), ProductID: id.New(), SKU: "SKU-1", Name: "Widget", StockCurrent: onHand}
	s.PutVariant(v)
	return v.ID
}

func stockOf(t *testing.T, s *Store, variantID id.ID) int64 {
	t.Helper()
	v, err := s.Variants().GetVariant(context.Background(), variantID)
	require.NoError(t, err)
	return v.StockCurrent
}

func TestRunInTransaction_CommitsOnSuccess(t *testing.T) {
	s := New()
	v := seedVariant(t, s, 3)

	err := s.RunInTransaction(context.Background(), func(ctx context.Context) error {
		return s.Variants().AddStock(ctx, []stock.Adjustment{{VariantID: v, Delta: 4}})
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), stockOf(t, s, v))
}

func TestRunInTransaction_RollsBackOnError(t *testing.T) {
	s := New()
	v := seedVariant(t, s, 3)
	boom := errors.New("boom")

	err := s.RunInTransaction(context.Background(), func(ctx context.Context) error {
		if err := s.Variants().AddStock(ctx, []stock.Adjustment{{VariantID: v, Delta: 4}}); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(3), stockOf(t, s, v))
}

func TestRunInTransaction_RollsBackOnPanic(t *testing.T) {
	s := New()
	v := seedVariant(t, s, 3)

	assert.PanicsWithValue(t, "half way", func() {
		_ = s.RunInTransaction(context.Background(), func(ctx context.Context) error {
			_ = s.Variants().AddStock(ctx, []stock.Adjustment{{VariantID: v, Delta: 4}})
			panic("half way")
		})
	})

	assert.Equal(t, int64(3), stockOf(t, s, v), "partial writes are discarded")

	// The store lock was released, so later transactions still run.
	err := s.RunInTransaction(context.Background(), func(ctx context.Context) error {
		return s.Variants().AddStock(ctx, []stock.Adjustment{{VariantID: v, Delta: 1}})
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), stockOf(t, s, v))
}

func TestRunInTransaction_NestedJoinsOuter(t *testing.T) {
	s := New()
	v := seedVariant(t, s, 0)
	boom := errors.New("outer fails")

	err := s.RunInTransaction(context.Background(), func(ctx context.Context) error {
		inner := s.RunInTransaction(ctx, func(ctx context.Context) error {
			return s.Variants().AddStock(ctx, []stock.Adjustment{{VariantID: v, Delta: 2}})
		})
		require.NoError(t, inner)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(0), stockOf(t, s, v), "inner work rolls back with the outer transaction")
}
