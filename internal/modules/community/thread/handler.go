package thread

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/app-prenava/nuri-backend-web-sub000/internal/middleware"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/modules/community/counter"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/pagination"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/response"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/roles"
)

// Handler handles community thread HTTP requests.
type Handler struct {
	svc      *Service
	counters *counter.Service
	logger   *zap.Logger
}

func NewHandler(svc *Service, counters *counter.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, counters: counters, logger: logger}
}

// RegisterRoutes mounts thread routes onto the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, optionalAuthMW, authMW, cacheMW gin.HandlerFunc) {
	threads := rg.Group("/threads")

	threads.GET("", cacheMW, h.list)
	threads.GET("/:id", optionalAuthMW, h.get)

	authed := threads.Group("", authMW)
	authed.POST("", h.create)
	authed.POST("/:id/like", h.like)
	authed.DELETE("/:id", h.delete)
}

// list GET /threads
func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)

	threads, pag, err := h.svc.List(q)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	items := make([]threadResponse, len(threads))
	for i, t := range threads {
		items[i] = toResponse(&t)
	}
	response.Paged(c, items, pag)
}

// get GET /threads/:id
// An authenticated caller counts as a view (deduplicated per user per
// window). If the counter cache is down the request still succeeds with the
// durable counts: views and likes are display-only.
func (h *Handler) get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	t, err := h.svc.GetByID(id)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if t == nil {
		response.NotFound(c, "Thread not found")
		return
	}

	resp := toResponse(t)
	ctx := c.Request.Context()

	if userID := middleware.CurrentUserID(c); userID != 0 {
		if count, _, err := h.counters.RecordView(ctx, id, userID); err != nil {
			h.logger.Warn("view recording degraded to durable count",
				zap.Uint("thread_id", id), zap.Error(err))
		} else if count > resp.Views {
			resp.Views = count
		}
		if liked, err := h.counters.HasLiked(ctx, id, userID); err == nil {
			resp.Liked = liked
		}
	}

	if likes, ok, err := h.counters.CachedLikes(ctx, id); err == nil && ok {
		resp.LikesCount = likes
	}

	response.OK(c, resp)
}

// create POST /threads  [auth]
func (h *Handler) create(c *gin.Context) {
	var dto CreateThreadDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	t, err := h.svc.Create(middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, toResponse(t))
}

// like POST /threads/:id/like  [auth]
// An unreachable cache fails the toggle: silently dropping it would leave
// the client's liked state out of sync.
func (h *Handler) like(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	t, err := h.svc.GetByID(id)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if t == nil {
		response.NotFound(c, "Thread not found")
		return
	}

	count, liked, err := h.counters.ToggleLike(c.Request.Context(), id, middleware.CurrentUserID(c))
	if err != nil {
		if errors.Is(err, counter.ErrCacheUnavailable) {
			h.logger.Error("like toggle failed, counter cache unavailable",
				zap.Uint("thread_id", id), zap.Error(err))
		}
		response.InternalError(c, err)
		return
	}

	response.OK(c, gin.H{"liked": liked, "likes": count})
}

// delete DELETE /threads/:id  [auth: author or admin]
func (h *Handler) delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	role, _ := roles.Parse(middleware.CurrentRole(c))
	err := h.svc.Delete(id, middleware.CurrentUserID(c), role == roles.Admin)
	if err != nil {
		if errors.Is(err, ErrNotOwner) {
			response.Forbidden(c)
			return
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c, "Thread not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "Invalid thread id")
		return 0, false
	}
	return uint(id), true
}
