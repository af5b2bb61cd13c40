// Package server wires the HTTP surface for catalog inspection.
package server

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/opencookbook/mortar/pkg/middleware"
	"github.com/opencookbook/mortar/pkg/routes/catalog"
	"github.com/opencookbook/mortar/pkg/routes/health"
)

// Server hosts the read-only catalog API
type Server struct {
	echo    *echo.Echo
	logger  ectologger.Logger
	host    string
	port    int
	checker *health.Checker
}

// New builds the echo instance with middleware and routes registered.
func New(
	serviceName, host string,
	port int,
	logger ectologger.Logger,
	checker *health.Checker,
	catalogHandler *catalog.Handler,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.Recover())
	e.Use(middleware.Context())
	e.Use(otelecho.Middleware(serviceName))
	e.Use(middleware.Logger(logger))
	e.HTTPErrorHandler = middleware.Error(logger)

	checker.RegisterRoutes(e)
	catalogHandler.Register(e.Group("/api/v1/catalog"))
	e.GET("/api/v1/metrics", catalogHandler.GetSnapshot)

	return &Server{
		echo:    e,
		logger:  logger,
		host:    host,
		port:    port,
		checker: checker,
	}
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.logger.WithField("addr", addr).Info("Starting HTTP server")
	s.checker.SetReady(true)
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.checker.SetReady(false)
	return s.echo.Shutdown(ctx)
}
