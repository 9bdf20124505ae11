// Package web exposes the HTTP surface: subscription management, previews,
// the admin dispatch trigger, and metrics.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"weather_alerts/internal/config"
	"weather_alerts/internal/dispatch"
	"weather_alerts/internal/storage"
	"weather_alerts/internal/weather"
)

// Geocoder resolves a postal code and country to coordinates.
type Geocoder interface {
	GeocodeZip(ctx context.Context, postalCode, country string) (*weather.GeoResult, error)
}

// TimezoneResolver maps coordinates to an IANA zone name. An empty result
// means the zone is unknown.
type TimezoneResolver interface {
	TimezoneName(lat, lon float64) string
}

// Runner triggers a dispatch run.
type Runner interface {
	Run(ctx context.Context, cfg *config.Config, limit int) (*dispatch.Report, error)
}

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	store      storage.Storage
	geocoder   Geocoder
	forecaster dispatch.Forecaster
	tz         TimezoneResolver
	runner     Runner
	cfg        *config.Config
	log        *slog.Logger
}

// NewServer creates a Server with the given collaborators.
func NewServer(store storage.Storage, geocoder Geocoder, forecaster dispatch.Forecaster, tz TimezoneResolver, runner Runner, cfg *config.Config, log *slog.Logger) *Server {
	return &Server{
		store:      store,
		geocoder:   geocoder,
		forecaster: forecaster,
		tz:         tz,
		runner:     runner,
		cfg:        cfg,
		log:        log,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Weather Alert API is running")
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/subscribe", s.handleSubscribe)
	r.GET("/unsubscribe/:token", s.handleUnsubscribe)
	r.GET("/preview/:id", s.handlePreview)
	r.POST("/admin/run-alerts", s.handleAdminRun)

	return r
}
