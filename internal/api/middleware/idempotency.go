package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/domain"
	"github.com/jafarshop/bundleapp/internal/repository"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"

	maxIdempotencyKeyLength = 255

	// A pending key older than this belongs to a request that died
	// without releasing it.
	pendingTimeout    = 15 * time.Minute
	retryAfterSeconds = 5
)

// captureWriter keeps a copy of the response body so it can be stored.
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// IdempotencyMiddleware replays the stored response when a mutating request
// is retried with the same Idempotency-Key and payload. The key is reserved
// before the handler runs, so a retry that overlaps the first request gets a
// 409 with Retry-After instead of a second run. It must run after
// AuthMiddleware; keys are scoped to the authenticated shop.
func IdempotencyMiddleware(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only apply to POST/PUT/PATCH requests
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut && c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		idempotencyKey := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		if idempotencyKey == "" {
			c.Next()
			return
		}
		if len(idempotencyKey) > maxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   true,
				"message": "Idempotency-Key must be at most 255 characters",
				"code":    "VALIDATION_ERROR",
			})
			return
		}

		shop, ok := GetShopFromContext(c)
		if !ok {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			logger.Error("Failed to read request body for idempotency", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   true,
				"message": "failed to process request",
				"code":    "INTERNAL_ERROR",
			})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		h := sha256.New()
		h.Write([]byte(c.Request.Method))
		h.Write([]byte{0})
		h.Write([]byte(c.Request.URL.Path))
		h.Write([]byte{0})
		h.Write(body)
		requestHash := hex.EncodeToString(h.Sum(nil))

		rec := &domain.IdempotencyRecord{
			Shop:        shop.Domain,
			Key:         idempotencyKey,
			RequestHash: requestHash,
		}
		ctx := c.Request.Context()
		reserved, err := repos.IdempotencyKey.Reserve(ctx, rec, time.Now().Add(-pendingTimeout))
		if err != nil {
			// Storage failures fall through to normal processing.
			logger.Error("Failed to reserve idempotency key", zap.Error(err))
			c.Next()
			return
		}
		if !reserved {
			replayOrReject(c, repos, logger, rec)
			return
		}

		// The reservation outlives a disconnected client.
		storeCtx := context.WithoutCancel(ctx)
		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		defer func() {
			if r := recover(); r != nil {
				_ = repos.IdempotencyKey.Release(storeCtx, shop.Domain, idempotencyKey)
				panic(r)
			}
		}()
		c.Next()

		status := w.Status()
		if status >= http.StatusInternalServerError {
			if err := repos.IdempotencyKey.Release(storeCtx, shop.Domain, idempotencyKey); err != nil {
				logger.Warn("Failed to release idempotency key", zap.String("shop", shop.Domain), zap.Error(err))
			}
			return
		}
		rec.StatusCode = status
		rec.ResponseBody = w.body.Bytes()
		if err := repos.IdempotencyKey.Complete(storeCtx, rec); err != nil {
			logger.Warn("Failed to store idempotent response", zap.String("shop", shop.Domain), zap.Error(err))
		}
	}
}

// replayOrReject answers a request whose key is already held: a finished
// request with the same payload is replayed, anything else is a conflict.
func replayOrReject(c *gin.Context, repos *repository.Repositories, logger *zap.Logger, rec *domain.IdempotencyRecord) {
	existing, err := repos.IdempotencyKey.GetByKey(c.Request.Context(), rec.Shop, rec.Key)
	if err != nil {
		logger.Error("Failed to check idempotency key", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   true,
			"message": "failed to process request",
			"code":    "INTERNAL_ERROR",
		})
		return
	}

	switch {
	case existing != nil && existing.RequestHash != rec.RequestHash:
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":   true,
			"message": "idempotency key reused with a different request",
			"code":    "CONFLICT",
		})
	case existing == nil || existing.Pending():
		// nil means the holder released the key between the two lookups
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":   true,
			"message": "a request with this idempotency key is still in progress",
			"code":    "CONFLICT",
		})
	default:
		c.Header(ReplayedHeader, "true")
		if len(existing.ResponseBody) == 0 {
			c.AbortWithStatus(existing.StatusCode)
			return
		}
		c.Data(existing.StatusCode, "application/json; charset=utf-8", existing.ResponseBody)
		c.Abort()
	}
}
