package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledgercore/internal/core/apperror"
	"ledgercore/pkg/logger"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Kind    apperror.Kind  `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		if appErr, ok := apperror.AsAppError(err); ok {
			if appErr.Kind == apperror.KindInternal {
				logger.Error(c.Request.Context(), "request failed",
					"code", appErr.Code,
					"cause", appErr.Err,
				)
				c.JSON(appErr.HTTPStatus, internalResponse(c))
				return
			}
			if appErr.Err != nil {
				logger.Debug(c.Request.Context(), "request rejected",
					"code", appErr.Code,
					"cause", appErr.Err,
				)
			}
			c.JSON(appErr.HTTPStatus, ErrorResponse{
				Code:    appErr.Code,
				Kind:    appErr.Kind,
				Message: appErr.Message,
				Details: appErr.Details,
			})
			return
		}

		logger.Error(c.Request.Context(), "unhandled error", "error", err)
		c.JSON(http.StatusInternalServerError, internalResponse(c))
	}
}

func internalResponse(c *gin.Context) ErrorResponse {
	return ErrorResponse{
		Code:    apperror.CodeInternal,
		Kind:    apperror.KindInternal,
		Message: "Internal server error",
		Details: map[string]any{"request_id": c.GetString("request_id")},
	}
}
