package entity

import (
	"context"
	"time"

	"stockledger/internal/core/apperror"
)

// Status is the lifecycle state of a document.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	return s == StatusDraft || s == StatusSubmitted
}

// Document is the base for stock-affecting transactions.
// The status moves one way: draft -> submitted. Submitted is terminal.
type Document struct {
	BaseDocument

	// TransactionCode is assigned once at creation and never reassigned.
	TransactionCode string `db:"transaction_code" json:"transactionCode"`

	// Date is the business date, truncated to UTC midnight.
	Date time.Time `db:"date" json:"date"`

	Status Status `db:"status" json:"status"`

	// Note stays editable after submission.
	Note string `db:"note" json:"note,omitempty"`

	SubmittedAt *time.Time `db:"submitted_at" json:"submittedAt,omitempty"`
	SubmittedBy string     `db:"submitted_by" json:"submittedBy,omitempty"`
}

// NewDocument creates a draft Document with generated ID.
func NewDocument(date time.Time, actor string) Document {
	doc := Document{
		BaseDocument: NewBaseDocument(),
		Date:         TruncateDate(date),
		Status:       StatusDraft,
	}
	doc.CreatedBy = actor
	doc.UpdatedBy = actor
	return doc
}

// TruncateDate drops the time-of-day part in UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	if !d.Status.IsValid() {
		return apperror.NewValidation("unknown status").
			WithDetail("field", "status").
			WithDetail("value", string(d.Status))
	}
	return nil
}

// IsSubmitted reports whether the document reached its terminal state.
func (d *Document) IsSubmitted() bool {
	return d.Status == StatusSubmitted
}

// CanModify checks if document lines, date or the document itself may change.
func (d *Document) CanModify() error {
	if d.IsSubmitted() {
		return apperror.NewAlreadySubmitted("movement", d.ID.String())
	}
	return nil
}

// MarkSubmitted flips the status to submitted and stamps the actor.
func (d *Document) MarkSubmitted(actor string) {
	now := time.Now().UTC()
	d.Status = StatusSubmitted
	d.SubmittedAt = &now
	d.SubmittedBy = actor
	d.Touch(actor)
}
