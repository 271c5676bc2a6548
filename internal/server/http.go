// Package server exposes the extraction pipeline over HTTP.
package server

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/DonatFortini/mailmate/internal/service"
)

type HTTPServer struct {
	echo *echo.Echo
	svc  *service.Service
}

// NewHTTPServer wires the routes over the pipeline service.
func NewHTTPServer(svc *service.Service) *HTTPServer {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	server := &HTTPServer{
		echo: e,
		svc:  svc,
	}

	records := NewRecordsHandler(svc, validator.New())

	// Routes
	e.GET("/health", server.healthCheck)
	e.POST("/api/v1/records/extract", records.Extract())
	e.POST("/api/v1/records/hydrate", records.Hydrate())
	e.POST("/api/v1/records/hydrate-all", records.HydrateAll())
	e.GET("/api/v1/records/cached", records.Cached())
	e.GET("/api/v1/records/current", records.Current())
	e.GET("/api/v1/records/export", records.Export())
	e.DELETE("/api/v1/records/cache", records.Invalidate())

	return server
}

func (s *HTTPServer) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "extraction",
	})
}

func (s *HTTPServer) Start(address string) error {
	log.Infof("Starting HTTP server on %s", address)
	return s.echo.Start(address)
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	log.Info("Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}
