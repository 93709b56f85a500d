// Package middleware provides HTTP middleware components.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/pkg/logger"
)

// Recovery turns a handler panic into a 500 carried by ErrorHandler.
//
// The panic is logged with the route and the movement it addressed so a
// failed submit can be traced back to its record. Any open ledger
// transaction has already been rolled back by the time the panic gets here.
// http.ErrAbortHandler is re-raised for net/http to handle.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			ctx := c.Request.Context()
			requestID := appctx.GetRequestID(ctx)

			logger.Error(ctx, "panic recovered",
				"panic", rec,
				"method", c.Request.Method,
				"route", c.FullPath(),
				"direction", c.Param("direction"),
				"movement_id", c.Param("id"),
				"stack", string(debug.Stack()),
			)

			c.Abort()
			if c.Writer.Written() {
				// Headers are gone; the client sees a truncated body.
				return
			}
			_ = c.Error(
				apperror.NewInternal(fmt.Errorf("panic: %v", rec)).
					WithDetail("request_id", requestID),
			)
		}()
		c.Next()
	}
}
