package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/echo/internal/api/authv1"
	"github.com/dmitrijs2005/echo/internal/logging"
	"github.com/dmitrijs2005/echo/internal/server/auth"
	"github.com/dmitrijs2005/echo/internal/server/metrics"
	"github.com/dmitrijs2005/echo/internal/server/models"
	"github.com/dmitrijs2005/echo/internal/server/services"
	"google.golang.org/grpc"
)

// AuthService is the part of services.UserService the transport needs.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*services.TokenPair, error)
	Login(ctx context.Context, username, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) (bool, error)
	Authenticate(accessToken string) (*auth.Claims, error)
	Me(ctx context.Context, userID string) (*models.User, error)
}

type GRPCServer struct {
	authv1.UnimplementedAuthServiceServer
	address string
	users   AuthService
	metrics *metrics.Metrics
	logger  logging.Logger
}

// NewGRPCServer builds the server. m may be nil to run without metrics.
func NewGRPCServer(a string, l logging.Logger, us AuthService, m *metrics.Metrics) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		users:   us,
		metrics: m,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{}
	if s.metrics != nil {
		interceptors = append(interceptors, s.metrics.UnaryServerInterceptor())
	}
	interceptors = append(interceptors, s.accessTokenInterceptor)

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	authv1.RegisterAuthServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
