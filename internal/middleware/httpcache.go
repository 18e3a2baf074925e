package middleware

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// HTTPCache caches anonymous GET responses in Redis for a short TTL. It only
// applies to unauthenticated requests: authenticated reads carry per-user
// overlays (liked flags, profiles) and must never be shared.
const (
	apiCachePrefix      = "prenava:api-cache:"
	defaultHTTPCacheTTL = 15 * time.Second
	httpCacheMaxBody    = 1 << 20
)

type cachedHTTPResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	BodyBase64  string `json:"body_base64"`
}

type cacheBodyWriter struct {
	gin.ResponseWriter
	body     []byte
	overflow bool
}

func (w *cacheBodyWriter) Write(data []byte) (int, error) {
	w.capture(data)
	return w.ResponseWriter.Write(data)
}

func (w *cacheBodyWriter) WriteString(s string) (int, error) {
	w.capture([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *cacheBodyWriter) capture(data []byte) {
	if w.overflow || len(data) == 0 {
		return
	}
	if len(w.body)+len(data) > httpCacheMaxBody {
		w.overflow = true
		return
	}
	w.body = append(w.body, data...)
}

func HTTPCache(rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	if ttl <= 0 {
		ttl = defaultHTTPCacheTTL
	}
	return func(c *gin.Context) {
		if rdb == nil || c.Request.Method != http.MethodGet || IsAuthenticated(c) {
			c.Next()
			return
		}

		cacheKey := apiCachePrefix + c.Request.URL.RequestURI()
		if raw, err := rdb.Get(c.Request.Context(), cacheKey).Bytes(); err == nil && len(raw) > 0 {
			var payload cachedHTTPResponse
			if err := json.Unmarshal(raw, &payload); err == nil {
				if body, err := base64.StdEncoding.DecodeString(payload.BodyBase64); err == nil {
					c.Header("X-Api-Cache", "hit")
					c.Data(payload.Status, payload.ContentType, body)
					c.Abort()
					return
				}
			}
		}

		buffer := &cacheBodyWriter{ResponseWriter: c.Writer}
		c.Writer = buffer
		c.Next()

		status := c.Writer.Status()
		if status != http.StatusOK || buffer.overflow || len(buffer.body) == 0 {
			return
		}

		payload := cachedHTTPResponse{
			Status:      status,
			ContentType: c.Writer.Header().Get("Content-Type"),
			BodyBase64:  base64.StdEncoding.EncodeToString(buffer.body),
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return
		}
		_ = rdb.Set(c.Request.Context(), cacheKey, raw, ttl).Err()
	}
}
