package app

import (
	"net/http"

	"github.com/compresso/core/internal/modules/backend"
	"github.com/compresso/core/internal/modules/cache"
	"github.com/compresso/core/internal/modules/prompts"
	"github.com/compresso/core/internal/modules/source"
	"github.com/compresso/core/internal/modules/summary"
	pkgredis "github.com/compresso/core/internal/pkg/redis"
	"github.com/compresso/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(rc *pkgredis.Client) {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFoundMsg(c, "not found")
	})

	cacheSvc := cache.NewService(rc, a.logger, a.cfg.CacheMaxItems)
	sources := source.New(a.cfg, a.logger)
	backends := backend.NewFactory(a.cfg, a.logger)
	resolver := prompts.NewResolver(a.cfg.PromptsDir, a.cfg.DefaultLocale, a.logger)

	summarySvc := summary.NewService(sources, backends, resolver, cacheSvc, a.logger)

	api := r.Group("/api")
	api.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	summary.NewHandler(summarySvc, cacheSvc, a.cfg, a.logger).RegisterRoutes(api)
}
