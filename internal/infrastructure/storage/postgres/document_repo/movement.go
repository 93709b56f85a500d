// Package document_repo provides PostgreSQL implementations for document repositories.
package document_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/internal/domain/movement"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	movementsTable     = "stock_movements"
	movementLinesTable = "stock_movement_lines"
)

var movementColumns = []string{
	"m.id", "m.direction", "m.transaction_code", "m.date", "m.status", "m.note",
	"m.created_at", "m.updated_at", "m.created_by", "m.updated_by",
	"m.submitted_at", "m.submitted_by", "m.version",
}

var lineColumns = []string{"id", "record_id", "line_no", "variant_id", "quantity"}

const (
	itemCountColumn     = "(SELECT COUNT(*) FROM " + movementLinesTable + " l WHERE l.record_id = m.id) AS item_count"
	totalQuantityColumn = "(SELECT COALESCE(SUM(l.quantity), 0)::bigint FROM " + movementLinesTable + " l WHERE l.record_id = m.id) AS total_quantity"
)

// MovementRepo implements movement.Repository.
type MovementRepo struct {
	txm *postgres.TxManager
}

// NewMovementRepo creates a new movement repository.
func NewMovementRepo(txm *postgres.TxManager) *MovementRepo {
	return &MovementRepo{txm: txm}
}

// Builder returns a new squirrel builder.
func (r *MovementRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *MovementRepo) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(movementColumns...).
		From(movementsTable + " m")
}

// Create implements movement.Repository.
func (r *MovementRepo) Create(ctx context.Context, rec *movement.Record) error {
	q := r.Builder().
		Insert(movementsTable).
		Columns(
			"id", "direction", "transaction_code", "date", "status", "note",
			"created_at", "updated_at", "created_by", "updated_by", "version",
		).
		Values(
			rec.ID, string(rec.Direction), rec.TransactionCode, rec.Date, string(rec.Status), rec.Note,
			rec.CreatedAt, rec.UpdatedAt, rec.CreatedBy, rec.UpdatedBy, rec.Version,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate(movement.EntityName, "transaction_code", rec.TransactionCode).WithCause(err)
		}
		return fmt.Errorf("insert %s: %w", movementsTable, err)
	}
	return nil
}

func (r *MovementRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key string) (*movement.Record, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rec := &movement.Record{}
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(movement.EntityName, key)
		}
		return nil, postgres.MapStatementError(err)
	}
	rec.Lines = []movement.Line{}
	return rec, nil
}

// GetByID implements movement.Repository.
func (r *MovementRepo) GetByID(ctx context.Context, recID id.ID) (*movement.Record, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"m.id": recID}), recID.String())
}

// GetByCode implements movement.Repository.
func (r *MovementRepo) GetByCode(ctx context.Context, code string) (*movement.Record, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"m.transaction_code": code}), code)
}

// GetForUpdate implements movement.Repository.
func (r *MovementRepo) GetForUpdate(ctx context.Context, recID id.ID) (*movement.Record, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"m.id": recID}).
		Suffix("FOR UPDATE")
	return r.getOne(ctx, q, recID.String())
}

// Update implements movement.Repository.
// rec.Version already carries the new version; the row must still hold the previous one.
func (r *MovementRepo) Update(ctx context.Context, rec *movement.Record) error {
	q := r.Builder().
		Update(movementsTable).
		Set("date", rec.Date).
		Set("status", string(rec.Status)).
		Set("note", rec.Note).
		Set("submitted_at", rec.SubmittedAt).
		Set("submitted_by", rec.SubmittedBy).
		Set("updated_at", rec.UpdatedAt).
		Set("updated_by", rec.UpdatedBy).
		Set("version", rec.Version).
		Where(squirrel.Eq{"id": rec.ID}).
		Where(squirrel.Eq{"version": rec.Version - 1})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", movementsTable, postgres.MapStatementError(err))
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(movement.EntityName, rec.ID.String())
	}
	return nil
}

// Delete implements movement.Repository. Lines go with ON DELETE CASCADE.
func (r *MovementRepo) Delete(ctx context.Context, recID id.ID) error {
	sql, args, err := r.Builder().
		Delete(movementsTable).
		Where(squirrel.Eq{"id": recID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", movementsTable, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(movement.EntityName, recID.String())
	}
	return nil
}

// GetLines implements movement.Repository.
func (r *MovementRepo) GetLines(ctx context.Context, recID id.ID) ([]movement.Line, error) {
	sql, args, err := r.Builder().
		Select(lineColumns...).
		From(movementLinesTable).
		Where(squirrel.Eq{"record_id": recID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	lines := []movement.Line{}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	return lines, nil
}

// ReplaceLines implements movement.Repository.
func (r *MovementRepo) ReplaceLines(ctx context.Context, recID id.ID, lines []movement.Line) error {
	querier := r.txm.GetQuerier(ctx)

	deleteSQL := "DELETE FROM " + movementLinesTable + " WHERE record_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, recID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []any{l.ID, recID, int32(l.LineNo), l.VariantID, l.Quantity})
	}

	if _, err := postgres.CopyFromSlice(ctx, r.txm, movementLinesTable, lineColumns, rows); err != nil {
		if pgErr, ok := postgres.AsPgError(err); ok && postgres.IsForeignKeyViolation(err) {
			return apperror.NewNotFound("variant", pgErr.Detail).
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		}
		return fmt.Errorf("insert lines: %w", err)
	}
	return nil
}

// CodeExists implements movement.Repository.
func (r *MovementRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.txm.GetQuerier(ctx).QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM "+movementsTable+" WHERE transaction_code = $1)", code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check code: %w", err)
	}
	return exists, nil
}

// likeEscaper makes search text match literally under the default LIKE escape character.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// applyFilter adds the WHERE clauses shared by List and Stats.
func applyFilter(q squirrel.SelectBuilder, filter movement.ListFilter) squirrel.SelectBuilder {
	if filter.Direction != nil {
		q = q.Where(squirrel.Eq{"m.direction": string(*filter.Direction)})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"m.status": string(*filter.Status)})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"m.date": entity.TruncateDate(*filter.DateFrom)})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"m.date": entity.TruncateDate(*filter.DateTo)})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"m.transaction_code": "%" + likeEscaper.Replace(filter.Search) + "%"})
	}
	return q
}

// listQuery builds the page query. Split out for SQL assertions in tests.
func (r *MovementRepo) listQuery(filter movement.ListFilter) (squirrel.SelectBuilder, error) {
	column, desc, err := movement.ParseOrder(filter.OrderBy)
	if err != nil {
		return squirrel.SelectBuilder{}, err
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}

	q := r.baseSelect().
		Column(itemCountColumn).
		Column(totalQuantityColumn)
	q = applyFilter(q, filter).
		OrderBy("m."+column+" "+dir, "m.id "+dir).
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))
	return q, nil
}

func (r *MovementRepo) statsQuery(filter movement.ListFilter) squirrel.SelectBuilder {
	q := r.Builder().
		Select().
		Column(squirrel.Expr("COUNT(*) FILTER (WHERE m.status = ?)", string(entity.StatusDraft))).
		Column(squirrel.Expr("COUNT(*) FILTER (WHERE m.status = ?)", string(entity.StatusSubmitted))).
		Column("COALESCE(SUM(agg.lines), 0)::bigint").
		Column("COALESCE(SUM(agg.quantity), 0)::bigint").
		From(movementsTable + " m").
		JoinClause("LEFT JOIN LATERAL (SELECT COUNT(*) AS lines, COALESCE(SUM(l.quantity), 0) AS quantity FROM " +
			movementLinesTable + " l WHERE l.record_id = m.id) agg ON true")
	return applyFilter(q, filter)
}

// List implements movement.Repository.
func (r *MovementRepo) List(ctx context.Context, filter movement.ListFilter) (domain.ListResult[*movement.Record], error) {
	filter.Normalize()
	result := domain.ListResult[*movement.Record]{
		Items:  []*movement.Record{},
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q, err := r.listQuery(filter)
	if err != nil {
		return result, err
	}

	countQ := applyFilter(r.Builder().Select("COUNT(*)").From(movementsTable+" m"), filter)
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build list: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list: %w", err)
	}
	return result, nil
}

// Stats implements movement.Repository.
func (r *MovementRepo) Stats(ctx context.Context, filter movement.ListFilter) (movement.Stats, error) {
	var stats movement.Stats

	sql, args, err := r.statsQuery(filter).ToSql()
	if err != nil {
		return stats, fmt.Errorf("build stats: %w", err)
	}

	err = r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).
		Scan(&stats.Draft, &stats.Submitted, &stats.Lines, &stats.Quantity)
	if err != nil {
		return stats, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}

var _ movement.Repository = (*MovementRepo)(nil)
