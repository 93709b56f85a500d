package v1

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/infrastructure/http/v1/handlers"
)

// RegisterMovementRoutes registers draft, submission and query routes for movements.
// Every route except by-code is scoped by the :direction path segment.
func RegisterMovementRoutes(group *gin.RouterGroup, handler *handlers.MovementHandler) {
	group.GET("/by-code/:code", handler.GetByCode)

	group.GET("/:direction", handler.List)
	group.POST("/:direction", handler.Create)
	group.GET("/:direction/template", handler.Template)
	group.GET("/:direction/:id", handler.Get)
	group.PUT("/:direction/:id", handler.Update)
	group.DELETE("/:direction/:id", handler.Delete)
	group.PATCH("/:direction/:id/note", handler.UpdateNote)
	group.POST("/:direction/:id/submit", handler.Submit)
	group.GET("/:direction/:id/history", handler.History)
}
