// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"io"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"ledgercore/internal/core/apperror"
	"ledgercore/pkg/logger"
)

// Recovery turns a panic into an INTERNAL_ERROR for ErrorHandler to render.
// The stack goes to the log only.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.Error(c.Request.Context(), "panic recovered",
			"panic", recovered,
			"route", c.FullPath(),
			"stack", string(debug.Stack()),
		)
		_ = c.Error(apperror.NewInternal(fmt.Errorf("panic: %v", recovered)))
		c.Abort()
	})
}
