package grpc

import (
	"context"

	"github.com/dmitrijs2005/echo/internal/api/authv1"
	"github.com/dmitrijs2005/echo/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func tokenResponse(p *services.TokenPair) *authv1.TokenResponse {
	return &authv1.TokenResponse{
		AccessToken:           p.AccessToken,
		AccessTokenExpiresAt:  p.AccessTokenExpiresAt.UTC(),
		RefreshToken:          p.RefreshToken,
		RefreshTokenExpiresAt: p.RefreshTokenExpiresAt.UTC(),
	}
}

func (s *GRPCServer) Register(ctx context.Context, req *authv1.RegisterRequest) (*authv1.TokenResponse, error) {

	pair, err := s.users.Register(ctx, req.Username, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, "register", err)
	}

	s.logger.Info(ctx, "Registered", "username", req.Username)
	return tokenResponse(pair), nil
}

func (s *GRPCServer) Login(ctx context.Context, req *authv1.LoginRequest) (*authv1.TokenResponse, error) {

	pair, err := s.users.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, "login", err)
	}

	return tokenResponse(pair), nil
}

func (s *GRPCServer) Refresh(ctx context.Context, req *authv1.RefreshRequest) (*authv1.TokenResponse, error) {

	pair, err := s.users.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, "refresh", err)
	}

	return tokenResponse(pair), nil
}

func (s *GRPCServer) Logout(ctx context.Context, req *authv1.LogoutRequest) (*authv1.LogoutResponse, error) {

	found, err := s.users.Logout(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, "logout", err)
	}

	return &authv1.LogoutResponse{Revoked: found}, nil
}

func (s *GRPCServer) Me(ctx context.Context, _ *authv1.MeRequest) (*authv1.MeResponse, error) {

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	user, err := s.users.Me(ctx, claims.Subject)
	if err != nil {
		return nil, s.toStatus(ctx, "me", err)
	}

	return &authv1.MeResponse{
		ID:        user.ID,
		Username:  user.UserName,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt.UTC(),
	}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *authv1.PingRequest) (*authv1.PingResponse, error) {

	return &authv1.PingResponse{Status: "OK"}, nil

}
