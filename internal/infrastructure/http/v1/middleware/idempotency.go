package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ledgercore/internal/core/apperror"
	appctx "ledgercore/internal/core/context"
	"ledgercore/internal/core/idempotency"
	"ledgercore/pkg/logger"
)

// HeaderIdempotencyKey names the request header carrying the client's key.
const HeaderIdempotencyKey = "Idempotency-Key"

const maxIdempotencyBodyBytes = 1 << 20 // 1 MiB

// Idempotency replays the first completed response for a repeated
// Idempotency-Key. Keys are scoped by tenant, route and body hash. Only
// responses the handler wrote with a status below 500 are stored; a request
// that ended in an error releases the key so the client may retry it.
// Must run after Auth.
func Idempotency(store idempotency.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > 255 {
			_ = c.Error(apperror.NewValidation("idempotency key too long").WithDetail("max", 255))
			c.Abort()
			return
		}

		limited := io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1)
		body, err := io.ReadAll(limited)
		if err != nil {
			_ = c.Error(apperror.NewValidation("unreadable request body").WithCause(err))
			c.Abort()
			return
		}
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := sha256.Sum256(body)

		ctx := c.Request.Context()
		k := idempotency.Key{
			TenantID:    appctx.GetTenantID(ctx),
			Key:         key,
			Operation:   c.Request.Method + " " + c.FullPath(),
			RequestHash: hex.EncodeToString(hash[:]),
		}

		replay, err := store.Acquire(ctx, k)
		if err != nil {
			if apperror.IsAppError(err) {
				_ = c.Error(err)
			} else {
				_ = c.Error(apperror.NewInternal(err).WithDetail("component", "idempotency"))
			}
			c.Abort()
			return
		}
		if replay != nil {
			r := idempotency.NormalizeReplay(*replay)
			c.Header("Idempotent-Replayed", "true")
			c.Data(r.StatusCode, r.ContentType, r.Body)
			c.Abort()
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec

		c.Next()

		status := c.Writer.Status()
		if len(c.Errors) > 0 || !c.Writer.Written() || status >= http.StatusInternalServerError {
			if err := store.Release(ctx, k); err != nil {
				logger.Warn(ctx, "release idempotency key", "key", key, "error", err)
			}
			return
		}
		err = store.Complete(ctx, k, idempotency.Replay{
			StatusCode:  status,
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		})
		if err != nil {
			logger.Warn(ctx, "complete idempotency key", "key", key, "error", err)
		}
	}
}

// bodyRecorder keeps a copy of everything written to the client.
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
