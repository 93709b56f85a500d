package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/movement"
	"stockledger/internal/domain/template"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// MovementService defines the operations the movement handler needs.
type MovementService interface {
	Create(ctx context.Context, in movement.CreateInput) (*movement.Record, error)
	Get(ctx context.Context, recID id.ID) (*movement.Record, error)
	GetByCode(ctx context.Context, code string) (*movement.Record, error)
	Update(ctx context.Context, recID id.ID, in movement.UpdateInput) (*movement.Record, error)
	UpdateNote(ctx context.Context, recID id.ID, note string) (*movement.Record, error)
	Submit(ctx context.Context, recID id.ID, lines []movement.LineInput) (*movement.Record, error)
	Delete(ctx context.Context, recID id.ID) error
	List(ctx context.Context, filter movement.ListFilter) (*movement.ListPage, error)
	TemplateVariants(ctx context.Context) (*template.Snapshot, error)
	History(ctx context.Context, recID id.ID, limit int) ([]audit.Event, error)
}

// MovementHandler serves stock-in and stock-out records under /movements/:direction.
type MovementHandler struct {
	*BaseHandler
	service MovementService
}

// NewMovementHandler creates a new movement handler.
func NewMovementHandler(base *BaseHandler, service MovementService) *MovementHandler {
	return &MovementHandler{BaseHandler: base, service: service}
}

func (h *MovementHandler) direction(c *gin.Context) (movement.Direction, bool) {
	d, err := movement.ParseDirection(c.Param("direction"))
	if err != nil {
		h.Error(c, err)
		return "", false
	}
	return d, true
}

// load fetches the record at :id and hides records of the other direction.
func (h *MovementHandler) load(c *gin.Context) (*movement.Record, bool) {
	dir, ok := h.direction(c)
	if !ok {
		return nil, false
	}
	recID, ok := h.ParamID(c, "id")
	if !ok {
		return nil, false
	}

	rec, err := h.service.Get(c.Request.Context(), recID)
	if err != nil {
		h.Error(c, err)
		return nil, false
	}
	if rec.Direction != dir {
		h.Error(c, apperror.NewNotFound(movement.EntityName, recID.String()))
		return nil, false
	}
	return rec, true
}

// Create handles POST /movements/:direction
func (h *MovementHandler) Create(c *gin.Context) {
	dir, ok := h.direction(c)
	if !ok {
		return
	}

	var req dto.CreateMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput(dir)
	if err != nil {
		h.Error(c, err)
		return
	}

	rec, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromMovement(rec))
}

// List handles GET /movements/:direction
func (h *MovementHandler) List(c *gin.Context) {
	dir, ok := h.direction(c)
	if !ok {
		return
	}

	var req dto.ListMovementsRequest
	if !h.BindQuery(c, &req) {
		return
	}
	filter, err := req.ToFilter(dir)
	if err != nil {
		h.Error(c, err)
		return
	}

	page, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListPage(page))
}

// Template handles GET /movements/:direction/template
func (h *MovementHandler) Template(c *gin.Context) {
	if _, ok := h.direction(c); !ok {
		return
	}

	snap, err := h.service.TemplateVariants(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromTemplate(snap))
}

// Get handles GET /movements/:direction/:id
func (h *MovementHandler) Get(c *gin.Context) {
	rec, ok := h.load(c)
	if !ok {
		return
	}
	h.OK(c, dto.FromMovement(rec))
}

// GetByCode handles GET /movements/by-code/:code
func (h *MovementHandler) GetByCode(c *gin.Context) {
	rec, err := h.service.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMovement(rec))
}

// Update handles PUT /movements/:direction/:id
func (h *MovementHandler) Update(c *gin.Context) {
	rec, ok := h.load(c)
	if !ok {
		return
	}

	var req dto.UpdateMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	updated, err := h.service.Update(c.Request.Context(), rec.ID, in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMovement(updated))
}

// UpdateNote handles PATCH /movements/:direction/:id/note
func (h *MovementHandler) UpdateNote(c *gin.Context) {
	rec, ok := h.load(c)
	if !ok {
		return
	}

	var req dto.UpdateNoteRequest
	if !h.BindJSON(c, &req) {
		return
	}

	updated, err := h.service.UpdateNote(c.Request.Context(), rec.ID, req.Note)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMovement(updated))
}

// Submit handles POST /movements/:direction/:id/submit
func (h *MovementHandler) Submit(c *gin.Context) {
	rec, ok := h.load(c)
	if !ok {
		return
	}

	var req dto.SubmitMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}
	lines, err := req.ToLines()
	if err != nil {
		h.Error(c, err)
		return
	}

	submitted, err := h.service.Submit(c.Request.Context(), rec.ID, lines)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMovement(submitted))
}

// Delete handles DELETE /movements/:direction/:id
func (h *MovementHandler) Delete(c *gin.Context) {
	rec, ok := h.load(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), rec.ID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// History handles GET /movements/:direction/:id/history
func (h *MovementHandler) History(c *gin.Context) {
	rec, ok := h.load(c)
	if !ok {
		return
	}

	events, err := h.service.History(c.Request.Context(), rec.ID, h.ParseIntQuery(c, "limit", domain.DefaultLimit))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromHistory(events))
}
