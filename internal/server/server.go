// Package server exposes the workspace operations over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/hunoz/dave-user-api/internal/auth"
	"github.com/hunoz/dave-user-api/internal/config"
	"github.com/hunoz/dave-user-api/internal/platform/ec2"
	"github.com/hunoz/dave-user-api/internal/workspace"
)

const (
	readTimeout = 30 * time.Second
	// Provisioning operations block on instance and volume waits, so the
	// write timeout has to outlast the longest replacement sequence.
	writeTimeout    = ec2.MaxProvisioningWait + time.Minute
	shutdownTimeout = 10 * time.Second
)

// Operations is the workspace surface the server exposes. Implemented by
// the reconciler; mocked in handler tests.
type Operations interface {
	Create(ctx context.Context, username string, in workspace.CreateInput) (*workspace.View, error)
	GetByID(ctx context.Context, username, id string) (*workspace.View, error)
	GetByName(ctx context.Context, username, name string) (*workspace.View, error)
	List(ctx context.Context, username string, in workspace.ListInput) (*workspace.ListOutput, error)
	Update(ctx context.Context, username, name string, in workspace.UpdateInput) (*workspace.View, error)
	DeleteByID(ctx context.Context, username, id string) error
	DeleteByName(ctx context.Context, username, name string) error
}

// Server is the HTTP front of the workspace API.
type Server struct {
	echo     *echo.Echo
	logger   *slog.Logger
	port     int
	authInfo config.AuthConfig
}

// New builds the server with its middleware chain and routes.
func New(cfg config.ServerConfig, authCfg config.AuthConfig, logger *slog.Logger, ops Operations, verifier auth.Verifier) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = readTimeout
	e.Server.WriteTimeout = writeTimeout

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(requestLogger(logger))

	h := &handler{ops: ops, authInfo: authCfg}

	e.GET("/health", h.health)
	e.GET("/api/v1/auth-info", h.getAuthInfo)

	api := e.Group("/api/v1", authenticate(verifier))
	api.POST("/workspaces", h.createWorkspace)
	api.GET("/workspaces", h.listWorkspaces)
	api.GET("/workspaces/:id", h.getWorkspaceByID)
	api.DELETE("/workspaces/:id", h.deleteWorkspaceByID)
	api.GET("/workspaces/name/:name", h.getWorkspaceByName)
	api.PATCH("/workspaces/name/:name", h.updateWorkspace)
	api.DELETE("/workspaces/name/:name", h.deleteWorkspaceByName)

	return &Server{
		echo:     e,
		logger:   logger,
		port:     cfg.Port,
		authInfo: authCfg,
	}
}

// Echo exposes the router for handler tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting HTTP server", "address", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}
