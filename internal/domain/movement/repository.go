package movement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
)

// Repository defines persistence for movement records.
// Methods pick up the active transaction from ctx.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, recID id.ID) (*Record, error)
	GetByCode(ctx context.Context, code string) (*Record, error)

	// GetForUpdate reads and row-locks the record for the rest of the transaction.
	GetForUpdate(ctx context.Context, recID id.ID) (*Record, error)

	// Update writes the header fields (date, note, status, submission and audit stamps).
	Update(ctx context.Context, rec *Record) error

	// Delete removes the record; its lines cascade.
	Delete(ctx context.Context, recID id.ID) error

	// GetLines returns lines ordered by line_no.
	GetLines(ctx context.Context, recID id.ID) ([]Line, error)

	// ReplaceLines deletes every line of the record and inserts lines.
	ReplaceLines(ctx context.Context, recID id.ID, lines []Line) error

	// CodeExists backs transaction code uniqueness checks.
	CodeExists(ctx context.Context, code string) (bool, error)

	// List returns one page of records with derived totals.
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Record], error)

	// Stats aggregates over every record matching filter, ignoring pagination.
	Stats(ctx context.Context, filter ListFilter) (Stats, error)
}

// ListFilter for filtering movement records.
type ListFilter struct {
	domain.Page

	Direction *Direction
	Status    *entity.Status
	DateFrom  *time.Time
	DateTo    *time.Time

	// Search matches transaction codes by substring, case-insensitively.
	Search string
}

// Stats summarizes a filtered population of records.
type Stats struct {
	Draft     int64 `json:"draft"`
	Submitted int64 `json:"submitted"`
	Lines     int64 `json:"lines"`
	Quantity  int64 `json:"quantity"`
}

// ListPage is a page of records plus statistics over the whole filter.
type ListPage struct {
	domain.ListResult[*Record]
	Stats Stats `json:"stats"`
}

// SortableFields lists the columns List may order by.
var SortableFields = map[string]string{
	"date":             "date",
	"created_at":       "created_at",
	"updated_at":       "updated_at",
	"transaction_code": "transaction_code",
	"status":           "status",
}

// DefaultOrder sorts newest business date first.
const DefaultOrder = "-date"

// ParseOrder resolves an OrderBy value such as "-date" against SortableFields.
func ParseOrder(orderBy string) (column string, desc bool, err error) {
	if orderBy == "" {
		orderBy = DefaultOrder
	}
	field := orderBy
	if strings.HasPrefix(field, "-") {
		desc = true
		field = field[1:]
	}
	column, ok := SortableFields[field]
	if !ok {
		return "", false, apperror.NewValidation(fmt.Sprintf("cannot order by %q", field)).
			WithDetail("field", "orderBy")
	}
	return column, desc, nil
}
