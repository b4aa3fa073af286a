// Package httpapi exposes the authentication flow over HTTP/JSON with a chi
// router. It mirrors the gRPC API and shares its service layer.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/echo/internal/logging"
	"github.com/dmitrijs2005/echo/internal/server/auth"
	"github.com/dmitrijs2005/echo/internal/server/metrics"
	"github.com/dmitrijs2005/echo/internal/server/models"
	"github.com/dmitrijs2005/echo/internal/server/services"
)

// gracefulShutdownTimeout bounds how long in-flight requests may finish
// after the context is cancelled.
const gracefulShutdownTimeout = 10 * time.Second

// AuthService is the part of services.UserService the HTTP API needs.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*services.TokenPair, error)
	Login(ctx context.Context, username, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) (bool, error)
	Authenticate(accessToken string) (*auth.Claims, error)
	Me(ctx context.Context, userID string) (*models.User, error)
}

type Server struct {
	address string
	users   AuthService
	metrics *metrics.Metrics
	logger  logging.Logger
}

// NewServer builds the HTTP API. m may be nil, in which case /metrics is
// not mounted.
func NewServer(a string, l logging.Logger, us AuthService, m *metrics.Metrics) *Server {
	return &Server{
		address: a,
		users:   us,
		metrics: m,
		logger:  l.With("module", "http_server"),
	}
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve handles requests on lis until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
