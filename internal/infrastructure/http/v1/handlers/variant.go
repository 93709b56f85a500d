package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/stock"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// VariantReader reads variant stock.
type VariantReader interface {
	GetVariant(ctx context.Context, variantID id.ID) (*stock.Variant, error)
}

// VariantHandler exposes on-hand quantities.
type VariantHandler struct {
	*BaseHandler
	service VariantReader
}

// NewVariantHandler creates a new variant handler.
func NewVariantHandler(base *BaseHandler, service VariantReader) *VariantHandler {
	return &VariantHandler{BaseHandler: base, service: service}
}

// Get handles GET /variants/:id
func (h *VariantHandler) Get(c *gin.Context) {
	variantID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	v, err := h.service.GetVariant(c.Request.Context(), variantID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromVariant(v))
}
