package crontask

import (
	"github.com/gin-gonic/gin"

	pkgcron "github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/cron"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/response"
)

// Handler wraps the scheduler for HTTP access. Admin only: the caller mounts
// the group behind the auth middleware and the admin role gate.
type Handler struct {
	sched *pkgcron.Scheduler
}

func NewHandler(sched *pkgcron.Scheduler) *Handler {
	return &Handler{sched: sched}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/cron-task")
	g.GET("", h.list)
	g.GET("/:name", h.get)
	g.POST("/:name/run", h.run)
}

// GET /cron-task — list all jobs
func (h *Handler) list(c *gin.Context) {
	response.OK(c, h.sched.List())
}

// GET /cron-task/:name — get single job status
func (h *Handler) get(c *gin.Context) {
	result, err := h.sched.GetTask(c.Param("name"))
	if err != nil {
		response.NotFound(c, "Scheduled job not found")
		return
	}
	response.OK(c, result)
}

// POST /cron-task/:name/run — manually trigger a job
func (h *Handler) run(c *gin.Context) {
	if err := h.sched.Run(c.Request.Context(), c.Param("name")); err != nil {
		response.NotFound(c, "Scheduled job not found")
		return
	}
	response.OK(c, gin.H{"message": "job triggered"})
}
