package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
	idempotencyTTL    = 24 * time.Hour

	// pendingMarker claims a key while its first request is being processed.
	pendingMarker = "pending"
	pendingTTL    = time.Minute
)

var errRequestInFlight = errors.New("request with this idempotency key is in progress")

// cachedResponse stores the response for idempotent requests.
type cachedResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
	Headers    http.Header     `json:"headers"`
}

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response of a mutating request
// that repeats an Idempotency-Key. Keys are scoped to the caller, method
// and path, so the same key on another ride or by another party is a new
// request. The first request claims the key before it runs; a repeat that
// arrives while it is still running gets 409. Redis failures degrade to
// normal processing.
func IdempotencyMiddleware(client redis.Cmdable, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isMutating(c.Request.Method) {
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := idempotencyCacheKey(Caller(c), c.Request.Method, c.Request.URL.Path, key)

		claimed, err := client.SetNX(ctx, cacheKey, pendingMarker, pendingTTL).Result()
		if err != nil {
			log.WithError(err).Warn("idempotency claim failed")
			c.Next()
			return
		}

		if !claimed {
			cached, err := getCachedResponse(ctx, client, cacheKey)
			switch {
			case errors.Is(err, errRequestInFlight):
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
			case err == redis.Nil:
				// Claim expired between SETNX and GET; the caller may retry.
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": errRequestInFlight.Error()})
			case err != nil:
				log.WithError(err).Warn("idempotency lookup failed")
				c.Next()
			default:
				replay(c, cached)
			}
			return
		}

		w := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = w

		c.Next()

		// Server errors are not final and may be retried.
		if c.Writer.Status() >= 200 && c.Writer.Status() < 500 {
			response := cachedResponse{
				StatusCode: c.Writer.Status(),
				Body:       w.body.Bytes(),
				Headers:    extractResponseHeaders(c),
			}
			if err := setCachedResponse(ctx, client, cacheKey, &response, idempotencyTTL); err != nil {
				log.WithError(err).Warn("idempotency store failed")
			}
			return
		}
		if err := client.Del(ctx, cacheKey).Err(); err != nil {
			log.WithError(err).Warn("idempotency release failed")
		}
	}
}

func replay(c *gin.Context, cached *cachedResponse) {
	for k, v := range cached.Headers {
		for _, val := range v {
			c.Header(k, val)
		}
	}
	c.Header(replayedHeader, "true")
	c.Data(cached.StatusCode, "application/json", cached.Body)
	c.Abort()
}

func idempotencyCacheKey(caller, method, path, key string) string {
	sum := sha256.Sum256([]byte(caller + "\x00" + method + "\x00" + path + "\x00" + key))
	return "idempotency:" + hex.EncodeToString(sum[:])
}

func getCachedResponse(ctx context.Context, client redis.Cmdable, key string) (*cachedResponse, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	if string(data) == pendingMarker {
		return nil, errRequestInFlight
	}

	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return &cached, nil
}

func setCachedResponse(ctx context.Context, client redis.Cmdable, key string, response *cachedResponse, ttl time.Duration) error {
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, data, ttl).Err()
}

// extractResponseHeaders extracts headers to cache.
func extractResponseHeaders(c *gin.Context) http.Header {
	headers := make(http.Header)
	if ct := c.Writer.Header().Get("Content-Type"); ct != "" {
		headers.Set("Content-Type", ct)
	}
	return headers
}
