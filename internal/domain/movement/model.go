// Package movement provides the stock movement record (stock-in / stock-out)
// and its draft -> submitted lifecycle.
package movement

import (
	"context"
	"fmt"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/stock"
)

// Direction tells whether a record brings stock in or takes it out.
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// ParseDirection validates a direction coming from the outside.
func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if !d.IsValid() {
		return "", apperror.NewValidation(fmt.Sprintf("unknown direction %q", s)).
			WithDetail("field", "direction")
	}
	return d, nil
}

// IsValid reports whether d is inbound or outbound.
func (d Direction) IsValid() bool {
	return d == Inbound || d == Outbound
}

// Sign is +1 for inbound and -1 for outbound.
func (d Direction) Sign() int64 {
	if d == Outbound {
		return -1
	}
	return 1
}

// Record is a stock movement document.
type Record struct {
	entity.Document

	Direction Direction `db:"direction" json:"direction"`

	// Derived from lines.
	ItemCount     int   `db:"item_count" json:"itemCount"`
	TotalQuantity int64 `db:"total_quantity" json:"totalQuantity"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one variant and quantity of a record.
type Line struct {
	ID        id.ID `db:"id" json:"id"`
	RecordID  id.ID `db:"record_id" json:"recordId"`
	LineNo    int   `db:"line_no" json:"lineNo"`
	VariantID id.ID `db:"variant_id" json:"variantId"`
	Quantity  int64 `db:"quantity" json:"quantity"`
}

// LineInput is a caller-supplied line before it gets an identity.
type LineInput struct {
	VariantID id.ID
	Quantity  int64
}

// NewRecord creates a draft record without lines.
func NewRecord(direction Direction, date time.Time, note, actor string) *Record {
	rec := &Record{
		Document:  entity.NewDocument(date, actor),
		Direction: direction,
		Lines:     make([]Line, 0),
	}
	rec.Note = note
	return rec
}

// SetLines replaces the line set, numbering lines in supply order.
func (r *Record) SetLines(inputs []LineInput) {
	lines := make([]Line, 0, len(inputs))
	for i, in := range inputs {
		lines = append(lines, Line{
			ID:        id.New(),
			RecordID:  r.ID,
			LineNo:    i + 1,
			VariantID: in.VariantID,
			Quantity:  in.Quantity,
		})
	}
	r.Lines = lines
	r.RecalculateTotals()
}

// RecalculateTotals refreshes the derived counters from Lines.
func (r *Record) RecalculateTotals() {
	r.ItemCount = len(r.Lines)
	r.TotalQuantity = 0
	for _, l := range r.Lines {
		r.TotalQuantity += l.Quantity
	}
}

// Adjustments converts lines into signed stock adjustments, keeping line order.
func Adjustments(direction Direction, lines []Line) []stock.Adjustment {
	out := make([]stock.Adjustment, 0, len(lines))
	sign := direction.Sign()
	for _, l := range lines {
		out = append(out, stock.Adjustment{VariantID: l.VariantID, Delta: sign * l.Quantity})
	}
	return out
}

// Validate implements entity.Validatable.
func (r *Record) Validate(ctx context.Context) error {
	if !r.Direction.IsValid() {
		return apperror.NewValidation("direction is required").
			WithDetail("field", "direction")
	}
	return r.Document.Validate(ctx)
}

// ValidateLines checks a caller-supplied line set.
// requireLines is false only for draft creation, which may start empty.
func ValidateLines(lines []LineInput, requireLines bool) error {
	if requireLines && len(lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range lines {
		if id.IsNil(line.VariantID) {
			return apperror.NewValidation("variant is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.Quantity <= 0 {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1).
				WithDetail("quantity", line.Quantity)
		}
	}
	return nil
}
