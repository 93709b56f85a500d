package stock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
)

type fakeRepo struct {
	variants  map[id.ID]*Variant
	lockedIDs []id.ID
	added     []Adjustment
	lockErr   error
}

func newFakeRepo(variants ...Variant) *fakeRepo {
	r := &fakeRepo{variants: make(map[id.ID]*Variant)}
	for i := range variants {
		v := variants[i]
		r.variants[v.ID] = &v
	}
	return r
}

func (r *fakeRepo) GetVariant(_ context.Context, variantID id.ID) (*Variant, error) {
	v, ok := r.variants[variantID]
	if !ok {
		return nil, apperror.NewNotFound("variant", variantID.String())
	}
	cp := *v
	return &cp, nil
}

func (r *fakeRepo) LockVariants(_ context.Context, ids []id.ID) ([]Variant, error) {
	if r.lockErr != nil {
		return nil, r.lockErr
	}
	r.lockedIDs = append(r.lockedIDs, ids...)
	out := make([]Variant, 0, len(ids))
	for _, vid := range ids {
		if v, ok := r.variants[vid]; ok {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (r *fakeRepo) AddStock(_ context.Context, deltas []Adjustment) error {
	r.added = append(r.added, deltas...)
	for _, d := range deltas {
		r.variants[d.VariantID].StockCurrent += d.Delta
	}
	return nil
}

var (
	variantA = id.MustParse("01900000-0000-7000-8000-00000000000a")
	variantB = id.MustParse("01900000-0000-7000-8000-00000000000b")
	variantC = id.MustParse("01900000-0000-7000-8000-00000000000c")
)

func stockOf(r *fakeRepo, vid id.ID) int64 {
	return r.variants[vid].StockCurrent
}

func TestApply_Inbound(t *testing.T) {
	repo := newFakeRepo(Variant{ID: variantA, StockCurrent: 3})
	svc := NewService(repo)

	err := svc.Apply(context.Background(), []Adjustment{{VariantID: variantA, Delta: 10}})

	require.NoError(t, err)
	assert.Equal(t, int64(13), stockOf(repo, variantA))
}

func TestApply_AggregatesPerVariant(t *testing.T) {
	repo := newFakeRepo(
		Variant{ID: variantA, StockCurrent: 10},
		Variant{ID: variantB, StockCurrent: 5},
	)
	svc := NewService(repo)

	err := svc.Apply(context.Background(), []Adjustment{
		{VariantID: variantB, Delta: -2},
		{VariantID: variantA, Delta: -4},
		{VariantID: variantB, Delta: -3},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(6), stockOf(repo, variantA))
	assert.Equal(t, int64(0), stockOf(repo, variantB))
	assert.Equal(t, []Adjustment{
		{VariantID: variantA, Delta: -4},
		{VariantID: variantB, Delta: -5},
	}, repo.added, "one write per variant, in lock order")
}

func TestApply_LocksInSortedOrder(t *testing.T) {
	repo := newFakeRepo(
		Variant{ID: variantA, StockCurrent: 1},
		Variant{ID: variantB, StockCurrent: 1},
		Variant{ID: variantC, StockCurrent: 1},
	)
	svc := NewService(repo)

	err := svc.Apply(context.Background(), []Adjustment{
		{VariantID: variantC, Delta: 1},
		{VariantID: variantA, Delta: 1},
		{VariantID: variantB, Delta: 1},
		{VariantID: variantA, Delta: 1},
	})

	require.NoError(t, err)
	assert.Equal(t, []id.ID{variantA, variantB, variantC}, repo.lockedIDs)
}

func TestApply_InsufficientStock(t *testing.T) {
	repo := newFakeRepo(Variant{ID: variantA, StockCurrent: 4})
	svc := NewService(repo)

	err := svc.Apply(context.Background(), []Adjustment{{VariantID: variantA, Delta: -5}})

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, variantA.String(), appErr.Details["variant_id"])
	assert.Equal(t, int64(4), appErr.Details["available"])
	assert.Equal(t, int64(5), appErr.Details["requested"])
	assert.Equal(t, int64(4), stockOf(repo, variantA), "nothing written")
	assert.Empty(t, repo.added)
}

func TestApply_RunningBalanceAcrossLines(t *testing.T) {
	repo := newFakeRepo(Variant{ID: variantA, StockCurrent: 5})
	svc := NewService(repo)

	err := svc.Apply(context.Background(), []Adjustment{
		{VariantID: variantA, Delta: -3},
		{VariantID: variantA, Delta: -3},
	})

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, int64(2), appErr.Details["available"], "second line sees what the first left")
	assert.Equal(t, int64(3), appErr.Details["requested"])
	assert.Equal(t, int64(5), stockOf(repo, variantA))
}

func TestApply_ExactStockReachesZero(t *testing.T) {
	repo := newFakeRepo(Variant{ID: variantA, StockCurrent: 7})
	svc := NewService(repo)

	require.NoError(t, svc.Apply(context.Background(), []Adjustment{{VariantID: variantA, Delta: -7}}))
	assert.Equal(t, int64(0), stockOf(repo, variantA))
}

func TestApply_UnknownVariant(t *testing.T) {
	repo := newFakeRepo(Variant{ID: variantA, StockCurrent: 1})
	svc := NewService(repo)

	err := svc.Apply(context.Background(), []Adjustment{
		{VariantID: variantA, Delta: 1},
		{VariantID: variantB, Delta: 1},
	})

	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, int64(1), stockOf(repo, variantA))
}

func TestApply_Empty(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	require.NoError(t, svc.Apply(context.Background(), nil))
	assert.Empty(t, repo.lockedIDs)
}

func TestApply_LockError(t *testing.T) {
	repo := newFakeRepo(Variant{ID: variantA})
	repo.lockErr = errors.New("lock timeout")
	svc := NewService(repo)

	err := svc.Apply(context.Background(), []Adjustment{{VariantID: variantA, Delta: 1}})
	assert.ErrorContains(t, err, "lock timeout")
}

func TestGetVariant(t *testing.T) {
	repo := newFakeRepo(Variant{ID: variantA, SKU: "SKU-A", StockCurrent: 9})
	svc := NewService(repo)

	v, err := svc.GetVariant(context.Background(), variantA)
	require.NoError(t, err)
	assert.Equal(t, "SKU-A", v.SKU)
	assert.Equal(t, int64(9), v.StockCurrent)

	_, err = svc.GetVariant(context.Background(), variantB)
	assert.True(t, apperror.IsNotFound(err))
}
