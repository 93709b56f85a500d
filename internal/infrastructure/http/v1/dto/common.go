// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"fmt"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
)

// DateLayout is the wire format of business dates.
const DateLayout = "2006-01-02"

// ParseDate parses a business date for field. Full RFC 3339 timestamps are
// accepted as well; the time of day is dropped later by the domain.
func ParseDate(field, value string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, apperror.NewValidation(fmt.Sprintf("%s must be a date (YYYY-MM-DD)", field)).
		WithDetail("field", field).
		WithDetail("value", value)
}

// ParseOptionalDate is ParseDate for optional query parameters.
func ParseOptionalDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := ParseDate(field, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseID parses an identifier for field.
func ParseID(field, value string) (id.ID, error) {
	parsed, err := id.Parse(value)
	if err != nil {
		return id.ID{}, apperror.NewValidation(fmt.Sprintf("%s must be a UUID", field)).
			WithDetail("field", field).
			WithDetail("value", value)
	}
	return parsed, nil
}

// --- Pagination ---

// PageRequest contains pagination and ordering parameters.
type PageRequest struct {
	OrderBy string `form:"orderBy"`
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset  int    `form:"offset" binding:"omitempty,min=0"`
}

// ToPage converts the request into domain pagination.
func (p PageRequest) ToPage() domain.Page {
	return domain.Page{OrderBy: p.OrderBy, Limit: p.Limit, Offset: p.Offset}
}
