package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/echo/internal/api/authv1"
)

// Session is the token pair currently held by a client.
type Session struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

type Client interface {
	Close() error
	Register(ctx context.Context, username, password string) (Session, error)
	Login(ctx context.Context, username, password string) (Session, error)
	Refresh(ctx context.Context) (Session, error)
	Logout(ctx context.Context) (bool, error)
	Me(ctx context.Context) (*authv1.MeResponse, error)
	Ping(ctx context.Context) error
	LoggedIn() bool
}
