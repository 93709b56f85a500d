package dto

import (
	"fmt"
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/movement"
	"stockledger/internal/domain/stock"
	"stockledger/internal/domain/template"
)

// --- Request DTOs ---

// LineRequest is one line of a create, update or submit request.
// Quantity rules are enforced by the domain so they report line numbers.
type LineRequest struct {
	VariantID string `json:"variantId" binding:"required"`
	Quantity  int64  `json:"quantity"`
}

func toLineInputs(lines []LineRequest) ([]movement.LineInput, error) {
	out := make([]movement.LineInput, 0, len(lines))
	for i, l := range lines {
		variantID, err := ParseID(fmt.Sprintf("lines[%d].variantId", i), l.VariantID)
		if err != nil {
			return nil, err
		}
		out = append(out, movement.LineInput{VariantID: variantID, Quantity: l.Quantity})
	}
	return out, nil
}

// CreateMovementRequest represents a request to create a draft.
type CreateMovementRequest struct {
	Date  string        `json:"date" binding:"required"`
	Note  string        `json:"note,omitempty"`
	Lines []LineRequest `json:"lines" binding:"omitempty,dive"`
}

// ToInput converts request to domain input.
func (r *CreateMovementRequest) ToInput(direction movement.Direction) (movement.CreateInput, error) {
	date, err := ParseDate("date", r.Date)
	if err != nil {
		return movement.CreateInput{}, err
	}
	lines, err := toLineInputs(r.Lines)
	if err != nil {
		return movement.CreateInput{}, err
	}
	return movement.CreateInput{
		Direction: direction,
		Date:      date,
		Note:      r.Note,
		Lines:     lines,
	}, nil
}

// UpdateMovementRequest replaces date, note and the whole line set of a draft.
type UpdateMovementRequest struct {
	Date  string        `json:"date" binding:"required"`
	Note  string        `json:"note"`
	Lines []LineRequest `json:"lines" binding:"omitempty,dive"`
}

// ToInput converts request to domain input.
func (r *UpdateMovementRequest) ToInput() (movement.UpdateInput, error) {
	date, err := ParseDate("date", r.Date)
	if err != nil {
		return movement.UpdateInput{}, err
	}
	lines, err := toLineInputs(r.Lines)
	if err != nil {
		return movement.UpdateInput{}, err
	}
	return movement.UpdateInput{Date: date, Note: r.Note, Lines: lines}, nil
}

// UpdateNoteRequest changes only the note.
type UpdateNoteRequest struct {
	Note string `json:"note"`
}

// SubmitMovementRequest carries the final line set.
type SubmitMovementRequest struct {
	Lines []LineRequest `json:"lines" binding:"omitempty,dive"`
}

// ToLines converts request lines to domain input.
func (r *SubmitMovementRequest) ToLines() ([]movement.LineInput, error) {
	return toLineInputs(r.Lines)
}

// ListMovementsRequest holds list query parameters.
type ListMovementsRequest struct {
	PageRequest
	Status   string `form:"status"`
	DateFrom string `form:"dateFrom"`
	DateTo   string `form:"dateTo"`
	Search   string `form:"search"`
}

// ToFilter converts query parameters to a domain filter for direction.
func (r *ListMovementsRequest) ToFilter(direction movement.Direction) (movement.ListFilter, error) {
	filter := movement.ListFilter{
		Page:      r.ToPage(),
		Direction: &direction,
		Search:    r.Search,
	}
	if r.Status != "" {
		status := entity.Status(r.Status)
		filter.Status = &status
	}

	var err error
	if filter.DateFrom, err = ParseOptionalDate("dateFrom", r.DateFrom); err != nil {
		return filter, err
	}
	if filter.DateTo, err = ParseOptionalDate("dateTo", r.DateTo); err != nil {
		return filter, err
	}
	return filter, nil
}

// --- Response DTOs ---

// LineResponse is one stored line.
type LineResponse struct {
	ID        string `json:"id"`
	LineNo    int    `json:"lineNo"`
	VariantID string `json:"variantId"`
	Quantity  int64  `json:"quantity"`
}

// MovementResponse represents a movement record in API responses.
type MovementResponse struct {
	ID              string         `json:"id"`
	Direction       string         `json:"direction"`
	TransactionCode string         `json:"transactionCode"`
	Date            string         `json:"date"`
	Status          string         `json:"status"`
	Note            string         `json:"note"`
	ItemCount       int            `json:"itemCount"`
	TotalQuantity   int64          `json:"totalQuantity"`
	Version         int            `json:"version"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	CreatedBy       string         `json:"createdBy,omitempty"`
	UpdatedBy       string         `json:"updatedBy,omitempty"`
	SubmittedAt     *time.Time     `json:"submittedAt,omitempty"`
	SubmittedBy     string         `json:"submittedBy,omitempty"`
	Lines           []LineResponse `json:"lines,omitempty"`
}

// FromMovement converts a record. Lines are included when loaded.
func FromMovement(rec *movement.Record) MovementResponse {
	resp := MovementResponse{
		ID:              rec.ID.String(),
		Direction:       string(rec.Direction),
		TransactionCode: rec.TransactionCode,
		Date:            rec.Date.Format(DateLayout),
		Status:          string(rec.Status),
		Note:            rec.Note,
		ItemCount:       rec.ItemCount,
		TotalQuantity:   rec.TotalQuantity,
		Version:         rec.Version,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
		CreatedBy:       rec.CreatedBy,
		UpdatedBy:       rec.UpdatedBy,
		SubmittedAt:     rec.SubmittedAt,
		SubmittedBy:     rec.SubmittedBy,
	}
	if len(rec.Lines) > 0 {
		resp.Lines = make([]LineResponse, 0, len(rec.Lines))
		for _, l := range rec.Lines {
			resp.Lines = append(resp.Lines, LineResponse{
				ID:        l.ID.String(),
				LineNo:    l.LineNo,
				VariantID: l.VariantID.String(),
				Quantity:  l.Quantity,
			})
		}
	}
	return resp
}

// MovementListResponse is a page of records with statistics over the whole filter.
type MovementListResponse struct {
	Items      []MovementResponse `json:"items"`
	TotalCount int64              `json:"totalCount"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
	Stats      movement.Stats     `json:"stats"`
}

// FromListPage converts a list page.
func FromListPage(page *movement.ListPage) MovementListResponse {
	items := make([]MovementResponse, 0, len(page.Items))
	for _, rec := range page.Items {
		items = append(items, FromMovement(rec))
	}
	return MovementListResponse{
		Items:      items,
		TotalCount: page.TotalCount,
		Limit:      page.Limit,
		Offset:     page.Offset,
		Stats:      page.Stats,
	}
}

// TemplateResponse lists the variants a new draft is pre-filled with.
type TemplateResponse struct {
	TemplateID *string  `json:"templateId,omitempty"`
	Name       string   `json:"name,omitempty"`
	Active     bool     `json:"active"`
	VariantIDs []string `json:"variantIds"`
}

// FromTemplate converts a template snapshot.
func FromTemplate(snap *template.Snapshot) TemplateResponse {
	resp := TemplateResponse{
		Name:       snap.Name,
		Active:     snap.Active,
		VariantIDs: idStrings(snap.VariantIDs),
	}
	if snap.TemplateID != nil {
		s := snap.TemplateID.String()
		resp.TemplateID = &s
	}
	return resp
}

func idStrings(ids []id.ID) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		out = append(out, v.String())
	}
	return out
}

// HistoryEntryResponse is one audit trail entry.
type HistoryEntryResponse struct {
	Action     string         `json:"action"`
	ActorID    string         `json:"actorId,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
	Details    map[string]any `json:"details,omitempty"`
}

// FromHistory converts audit events.
func FromHistory(events []audit.Event) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(events))
	for _, e := range events {
		out = append(out, HistoryEntryResponse{
			Action:     string(e.Action),
			ActorID:    e.ActorID,
			OccurredAt: e.OccurredAt,
			Details:    e.Details,
		})
	}
	return out
}

// VariantResponse shows a variant's on-hand quantity.
type VariantResponse struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"productId"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	StockCurrent int64     `json:"stockCurrent"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FromVariant converts a variant.
func FromVariant(v *stock.Variant) VariantResponse {
	return VariantResponse{
		ID:           v.ID.String(),
		ProductID:    v.ProductID.String(),
		SKU:          v.SKU,
		Name:         v.Name,
		StockCurrent: v.StockCurrent,
		UpdatedAt:    v.UpdatedAt,
	}
}
