package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/internal/domain/movement"
)

// MovementRepo implements movement.Repository.
type MovementRepo struct {
	store *Store
}

func (r *MovementRepo) read(recID id.ID) (*movement.Record, error) {
	rec, ok := r.store.state.records[recID]
	if !ok {
		return nil, apperror.NewNotFound(movement.EntityName, recID.String())
	}
	rec.Lines = nil
	r.fillTotals(&rec)
	return &rec, nil
}

func (r *MovementRepo) fillTotals(rec *movement.Record) {
	lines := r.store.state.lines[rec.ID]
	rec.ItemCount = len(lines)
	rec.TotalQuantity = 0
	for _, l := range lines {
		rec.TotalQuantity += l.Quantity
	}
}

// Create implements movement.Repository.
func (r *MovementRepo) Create(ctx context.Context, rec *movement.Record) error {
	defer r.store.lock(ctx)()

	if _, taken := r.store.state.codes[rec.TransactionCode]; taken {
		return apperror.NewDuplicate(movement.EntityName, "transaction_code", rec.TransactionCode)
	}
	stored := *rec
	stored.Lines = nil
	r.store.state.records[rec.ID] = stored
	r.store.state.codes[rec.TransactionCode] = rec.ID
	return nil
}

// GetByID implements movement.Repository.
func (r *MovementRepo) GetByID(ctx context.Context, recID id.ID) (*movement.Record, error) {
	defer r.store.lock(ctx)()
	return r.read(recID)
}

// GetByCode implements movement.Repository.
func (r *MovementRepo) GetByCode(ctx context.Context, code string) (*movement.Record, error) {
	defer r.store.lock(ctx)()

	recID, ok := r.store.state.codes[code]
	if !ok {
		return nil, apperror.NewNotFound(movement.EntityName, code)
	}
	return r.read(recID)
}

// GetForUpdate implements movement.Repository.
func (r *MovementRepo) GetForUpdate(ctx context.Context, recID id.ID) (*movement.Record, error) {
	return r.GetByID(ctx, recID)
}

// Update implements movement.Repository.
func (r *MovementRepo) Update(ctx context.Context, rec *movement.Record) error {
	defer r.store.lock(ctx)()

	current, ok := r.store.state.records[rec.ID]
	if !ok {
		return apperror.NewNotFound(movement.EntityName, rec.ID.String())
	}
	stored := *rec
	stored.Lines = nil
	stored.TransactionCode = current.TransactionCode
	stored.Direction = current.Direction
	r.store.state.records[rec.ID] = stored
	return nil
}

// Delete implements movement.Repository.
func (r *MovementRepo) Delete(ctx context.Context, recID id.ID) error {
	defer r.store.lock(ctx)()

	rec, ok := r.store.state.records[recID]
	if !ok {
		return apperror.NewNotFound(movement.EntityName, recID.String())
	}
	delete(r.store.state.records, recID)
	delete(r.store.state.lines, recID)
	delete(r.store.state.codes, rec.TransactionCode)
	return nil
}

// GetLines implements movement.Repository.
func (r *MovementRepo) GetLines(ctx context.Context, recID id.ID) ([]movement.Line, error) {
	defer r.store.lock(ctx)()

	lines := slices.Clone(r.store.state.lines[recID])
	slices.SortFunc(lines, func(a, b movement.Line) int { return cmp.Compare(a.LineNo, b.LineNo) })
	if lines == nil {
		lines = []movement.Line{}
	}
	return lines, nil
}

// ReplaceLines implements movement.Repository.
func (r *MovementRepo) ReplaceLines(ctx context.Context, recID id.ID, lines []movement.Line) error {
	defer r.store.lock(ctx)()

	if _, ok := r.store.state.records[recID]; !ok {
		return apperror.NewNotFound(movement.EntityName, recID.String())
	}
	for _, l := range lines {
		if _, ok := r.store.state.variants[l.VariantID]; !ok {
			// Mirrors the variant_id foreign key.
			return apperror.NewNotFound("variant", l.VariantID.String())
		}
	}
	r.store.state.lines[recID] = slices.Clone(lines)
	return nil
}

// CodeExists implements movement.Repository.
func (r *MovementRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	defer r.store.lock(ctx)()
	_, ok := r.store.state.codes[code]
	return ok, nil
}

func (r *MovementRepo) filtered(filter movement.ListFilter) []movement.Record {
	search := strings.ToLower(filter.Search)
	var out []movement.Record
	for _, rec := range r.store.state.records {
		if filter.Direction != nil && rec.Direction != *filter.Direction {
			continue
		}
		if filter.Status != nil && rec.Status != *filter.Status {
			continue
		}
		if filter.DateFrom != nil && rec.Date.Before(entity.TruncateDate(*filter.DateFrom)) {
			continue
		}
		if filter.DateTo != nil && rec.Date.After(entity.TruncateDate(*filter.DateTo)) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(rec.TransactionCode), search) {
			continue
		}
		r.fillTotals(&rec)
		out = append(out, rec)
	}
	return out
}

// List implements movement.Repository.
func (r *MovementRepo) List(ctx context.Context, filter movement.ListFilter) (domain.ListResult[*movement.Record], error) {
	defer r.store.lock(ctx)()

	column, desc, err := movement.ParseOrder(filter.OrderBy)
	if err != nil {
		return domain.ListResult[*movement.Record]{}, err
	}
	filter.Normalize()

	rows := r.filtered(filter)
	slices.SortFunc(rows, func(a, b movement.Record) int {
		c := compareColumn(column, a, b)
		if c == 0 {
			c = strings.Compare(a.ID.String(), b.ID.String())
		}
		if desc {
			return -c
		}
		return c
	})

	result := domain.ListResult[*movement.Record]{
		Items:      make([]*movement.Record, 0, filter.Limit),
		TotalCount: int64(len(rows)),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	for i := filter.Offset; i < len(rows) && i < filter.Offset+filter.Limit; i++ {
		rec := rows[i]
		result.Items = append(result.Items, &rec)
	}
	return result, nil
}

func compareColumn(column string, a, b movement.Record) int {
	switch column {
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "transaction_code":
		return strings.Compare(a.TransactionCode, b.TransactionCode)
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	default:
		return a.Date.Compare(b.Date)
	}
}

// Stats implements movement.Repository.
func (r *MovementRepo) Stats(ctx context.Context, filter movement.ListFilter) (movement.Stats, error) {
	defer r.store.lock(ctx)()

	var stats movement.Stats
	for _, rec := range r.filtered(filter) {
		switch rec.Status {
		case entity.StatusDraft:
			stats.Draft++
		case entity.StatusSubmitted:
			stats.Submitted++
		}
		stats.Lines += int64(rec.ItemCount)
		stats.Quantity += rec.TotalQuantity
	}
	return stats, nil
}

var _ movement.Repository = (*MovementRepo)(nil)
