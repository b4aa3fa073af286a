// Package authv1 declares the echo.auth.v1 gRPC API: request and response
// messages, the service descriptor and a typed client. Messages travel as
// JSON through the codec registered in codec.go.
package authv1

import "time"

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest must be sent with an access token in the authorization
// metadata.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutResponse struct {
	Revoked bool `json:"revoked"`
}

type MeRequest struct{}

type MeResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenResponse is returned by Register, Login and Refresh.
type TokenResponse struct {
	AccessToken           string    `json:"access_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_utc"`
	RefreshToken          string    `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_utc"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}
