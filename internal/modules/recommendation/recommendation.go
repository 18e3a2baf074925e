// Package recommendation proxies the external recommender service. The
// upstream is best-effort: slow or failing calls must never take the API
// down, so requests carry a short timeout and a small retry budget.
package recommendation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/app-prenava/nuri-backend-web-sub000/internal/middleware"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/response"
)

const (
	requestTimeout = 5 * time.Second
	maxRetries     = 2
)

var errUpstreamUnavailable = errors.New("recommender upstream unavailable")

type Service struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

func NewService(url string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		url:    url,
		client: &http.Client{Timeout: requestTimeout},
		logger: logger,
	}
}

type upstreamRequest struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
}

// Fetch asks the recommender for the user's thread recommendations and
// returns the upstream body verbatim. Each attempt gets its own timeout;
// after the retry budget is spent the last error is wrapped in
// errUpstreamUnavailable.
func (s *Service) Fetch(ctx context.Context, userID uint, role string) ([]byte, error) {
	payload, err := json.Marshal(upstreamRequest{UserID: userID, Role: role})
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		body, err := s.fetchOnce(ctx, payload)
		if err == nil {
			return body, nil
		}
		lastErr = err
		s.logger.Warn("recommender request failed",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("%w: %v", errUpstreamUnavailable, lastErr)
}

func (s *Service) fetchOnce(ctx context.Context, payload []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/recommendations", authMW, h.get)
}

func (h *Handler) get(c *gin.Context) {
	body, err := h.svc.Fetch(c.Request.Context(), middleware.CurrentUserID(c), middleware.CurrentRole(c))
	if err != nil {
		response.BadGateway(c, "Recommendation service is unavailable")
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}
