// Package catalog_repo provides PostgreSQL implementations for catalog repositories.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/stock"
	"stockledger/internal/infrastructure/storage/postgres"
)

const variantsTable = "product_variants"

var variantColumns = []string{"id", "product_id", "sku", "name", "stock_current", "updated_at"}

// VariantRepo implements stock.Repository over product_variants.
type VariantRepo struct {
	txm   *postgres.TxManager
	batch *postgres.BatchExecutor
}

// NewVariantRepo creates a new variant repository.
func NewVariantRepo(txm *postgres.TxManager) *VariantRepo {
	return &VariantRepo{
		txm:   txm,
		batch: postgres.NewBatchExecutor(txm),
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *VariantRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// GetVariant implements stock.Repository.
func (r *VariantRepo) GetVariant(ctx context.Context, variantID id.ID) (*stock.Variant, error) {
	sql, args, err := r.Builder().
		Select(variantColumns...).
		From(variantsTable).
		Where(squirrel.Eq{"id": variantID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	v := &stock.Variant{}
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), v, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("variant", variantID.String())
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}
	return v, nil
}

// lockQuery locks rows in primary key order so that two submissions touching
// overlapping variants always queue instead of deadlocking.
func (r *VariantRepo) lockQuery(ids []id.ID) squirrel.SelectBuilder {
	return r.Builder().
		Select(variantColumns...).
		From(variantsTable).
		Where(squirrel.Expr("id = ANY(?)", ids)).
		OrderBy("id").
		Suffix("FOR UPDATE")
}

// LockVariants implements stock.Repository.
func (r *VariantRepo) LockVariants(ctx context.Context, ids []id.ID) ([]stock.Variant, error) {
	if len(ids) == 0 {
		return []stock.Variant{}, nil
	}
	if r.txm.GetTx(ctx) == nil {
		return nil, fmt.Errorf("LockVariants %w", postgres.ErrNoTransaction)
	}

	sql, args, err := r.lockQuery(ids).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lock: %w", err)
	}

	variants := []stock.Variant{}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &variants, sql, args...); err != nil {
		return nil, fmt.Errorf("lock variants: %w", postgres.MapStatementError(err))
	}
	return variants, nil
}

// AddStock implements stock.Repository. All updates travel in one batch.
func (r *VariantRepo) AddStock(ctx context.Context, deltas []stock.Adjustment) error {
	if len(deltas) == 0 {
		return nil
	}

	queries := make([]postgres.BatchQuery, 0, len(deltas))
	for _, d := range deltas {
		queries = append(queries, postgres.BatchQuery{
			SQL:  "UPDATE " + variantsTable + " SET stock_current = stock_current + $1, updated_at = NOW() WHERE id = $2",
			Args: []any{d.Delta, d.VariantID},
		})
	}

	affected, err := r.batch.ExecuteBatch(ctx, queries)
	if err != nil {
		if postgres.IsCheckViolation(err) {
			// The walk in stock.Service should have caught this; surface it the same way.
			return apperror.NewBusinessRule(apperror.CodeInsufficientStock, "Insufficient stock").WithCause(err)
		}
		return fmt.Errorf("add stock: %w", postgres.MapStatementError(err))
	}

	for i, n := range affected {
		if n == 0 {
			return apperror.NewNotFound("variant", deltas[i].VariantID.String())
		}
	}
	return nil
}

var _ stock.Repository = (*VariantRepo)(nil)
