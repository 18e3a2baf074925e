package app

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/app-prenava/nuri-backend-web-sub000/internal/middleware"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/modules/auth/auth"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/modules/auth/user"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/modules/community/counter"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/modules/community/thread"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/modules/recommendation"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/modules/tasks/crontask"
	jwtpkg "github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/jwt"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/response"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/roles"
)

var processStart = time.Now()

func (a *App) registerRoutes(codec *jwtpkg.Codec, validator *middleware.Validator) {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Not found")
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	authMW := validator.Auth()
	optionalAuthMW := validator.OptionalAuth()
	adminGate := middleware.RequireRoles(roles.Admin)

	// Rate limiting and idempotence run on every route (requires Redis).
	r.Use(middleware.RateLimit(a.rc.Raw()))
	r.Use(middleware.Idempotence(a.rc.Raw()))

	r.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{
			"status": "ok",
			"uptime": time.Since(processStart).Truncate(time.Second).String(),
		})
	})

	api := r.Group("/api")
	api.GET("/ping", func(c *gin.Context) {
		response.OK(c, gin.H{"message": "pong"})
	})

	// Auth + account management
	authSvc := auth.NewService(a.db, codec, a.cfg)
	auth.NewHandler(authSvc).RegisterRoutes(api, authMW)

	admin := api.Group("", authMW, adminGate)
	user.NewHandler(user.NewService(a.db)).RegisterRoutes(admin)
	crontask.NewHandler(a.sched).RegisterRoutes(admin)

	// Community threads with cached counters
	threadSvc := thread.NewService(a.db)
	counterSvc := counter.NewService(
		a.rc,
		threadSvc,
		a.cfg.ViewDedupWindow(),
		a.cfg.LikeMarkerTTL(),
		a.logger.Named("Counter"),
	)
	listCacheMW := middleware.HTTPCache(a.rc.Raw(), 15*time.Second)
	thread.NewHandler(threadSvc, counterSvc, a.logger.Named("Thread")).
		RegisterRoutes(api, optionalAuthMW, authMW, listCacheMW)

	// Recommendation proxy. Signature-only auth: the upstream call needs the
	// caller's identity but touches nothing sensitive, so skip the freshness
	// lookup.
	recSvc := recommendation.NewService(a.cfg.RecommenderURL, a.logger.Named("Recommendation"))
	recommendation.NewHandler(recSvc).RegisterRoutes(api, validator.SignatureAuth())
}
