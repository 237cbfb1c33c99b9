package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/paperchat/internal/logger"
)

const shutdownTimeout = 10 * time.Second

// Server runs the HTTP API.
type Server struct {
	echo *echo.Echo
}

// NewServer validates ports and builds the router.
func NewServer(ports Ports, queryTimeout time.Duration) (*Server, error) {
	h, err := NewHandler(ports, queryTimeout)
	if err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	return &Server{echo: NewRouter(h)}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening on %s", addr)
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
