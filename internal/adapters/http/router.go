// Package http exposes a session store over a REST API.
package http

import (
	"net/http"

	"github.com/dkeye/Livecast/internal/config"
	"github.com/dkeye/Livecast/internal/core"
	"github.com/dkeye/Livecast/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Store is a session store that an operator can also finish sessions on.
type Store interface {
	core.SessionStore
	Finish(sid domain.SessionID) error
}

func SetupRouter(cfg *config.Config, st Store, metrics *Metrics, limiter *RateLimiter) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	if metrics != nil {
		r.Use(metrics.middleware())
	}

	h := &handlers{store: st, limiter: limiter, metrics: metrics}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	if metrics != nil && cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api/sessions")
	api.POST("", h.startBroadcast)
	api.DELETE("/:id", h.finish)
	api.GET("/:id/offer", h.getOffer)
	api.GET("/:id/answer", h.getAnswer)
	api.GET("/:id/finished", h.shouldFinish)
	api.POST("/:id/viewers", h.joinAsViewer)
	api.PUT("/:id/viewers/:viewer/answer", h.sendAnswer)
	api.POST("/:id/viewers/:viewer/candidates", h.addViewerCandidates)
	api.GET("/:id/viewers/:viewer/candidates", h.getViewerCandidates)
	api.POST("/:id/candidates/broadcaster", h.addBroadcasterCandidates)
	api.GET("/:id/candidates/broadcaster", h.getBroadcasterCandidates)

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Bool("metrics", cfg.MetricsEnabled).Msg("router setup")
	return r
}
