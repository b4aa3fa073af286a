package grpc

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/echo/internal/common"
	"github.com/dmitrijs2005/echo/internal/server/auth"
	"github.com/dmitrijs2005/echo/internal/server/models"
	"github.com/dmitrijs2005/echo/internal/server/services"
	"github.com/golang-jwt/jwt/v5"
)

const (
	goodToken    = "good-access-token"
	expiredToken = "expired-access-token"
	aliceID      = "11111111-1111-1111-1111-111111111111"
)

type fakeAuth struct {
	pair *services.TokenPair
	err  error

	logoutFound bool
	logoutArg   string
	meArg       string
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		pair: &services.TokenPair{
			AccessToken:           "at",
			AccessTokenExpiresAt:  time.Date(2030, 1, 1, 0, 15, 0, 0, time.UTC),
			RefreshToken:          "rt",
			RefreshTokenExpiresAt: time.Date(2030, 1, 31, 0, 0, 0, 0, time.UTC),
		},
		logoutFound: true,
	}
}

func (f *fakeAuth) Register(context.Context, string, string) (*services.TokenPair, error) {
	return f.pair, f.err
}
func (f *fakeAuth) Login(context.Context, string, string) (*services.TokenPair, error) {
	return f.pair, f.err
}
func (f *fakeAuth) Refresh(context.Context, string) (*services.TokenPair, error) {
	return f.pair, f.err
}
func (f *fakeAuth) Logout(_ context.Context, token string) (bool, error) {
	f.logoutArg = token
	return f.logoutFound, f.err
}

func (f *fakeAuth) Authenticate(accessToken string) (*auth.Claims, error) {
	switch accessToken {
	case goodToken:
		return &auth.Claims{Name: "alice", RegisteredClaims: jwt.RegisteredClaims{Subject: aliceID}}, nil
	case expiredToken:
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, jwt.ErrTokenExpired)
	}
	return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrInvalidToken)
}

func (f *fakeAuth) Me(_ context.Context, userID string) (*models.User, error) {
	f.meArg = userID
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: userID, UserName: "alice", IsActive: true, CreatedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)}, nil
}
