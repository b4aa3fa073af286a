// Package auth contains the credential primitives of the server: password
// hashing and signing/parsing of access tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/echo/internal/common"
	"github.com/dmitrijs2005/echo/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	minSigningKeySize    = 32
	hs512MinSigningKeyLn = 64
)

// SigningConfig is the immutable token configuration built once at startup.
type SigningConfig struct {
	key                  []byte
	Issuer               string
	Audience             string
	AccessTokenLifetime  time.Duration
	RefreshTokenLifetime time.Duration
}

// NewSigningConfig validates the settings. A key shorter than 32 bytes is
// rejected with common.ErrWeakSigningKey.
func NewSigningConfig(key []byte, issuer, audience string, accessLifetime, refreshLifetime time.Duration) (SigningConfig, error) {
	if len(key) < minSigningKeySize {
		return SigningConfig{}, fmt.Errorf("%w: got %d", common.ErrWeakSigningKey, len(key))
	}
	if accessLifetime <= 0 || refreshLifetime <= 0 {
		return SigningConfig{}, fmt.Errorf("%w: token lifetimes must be positive", common.ErrorValidation)
	}

	k := make([]byte, len(key))
	copy(k, key)

	return SigningConfig{
		key:                  k,
		Issuer:               issuer,
		Audience:             audience,
		AccessTokenLifetime:  accessLifetime,
		RefreshTokenLifetime: refreshLifetime,
	}, nil
}

// SigningMethod is HS512 for keys of at least 64 bytes and HS256 otherwise.
func (c SigningConfig) SigningMethod() jwt.SigningMethod {
	if len(c.key) >= hs512MinSigningKeyLn {
		return jwt.SigningMethodHS512
	}
	return jwt.SigningMethodHS256
}

// Claims carried by an access token.
type Claims struct {
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	jwt.RegisteredClaims
}

// TokenSigner issues and verifies access tokens. It holds no mutable state
// and is safe for concurrent use.
type TokenSigner struct {
	cfg    SigningConfig
	method jwt.SigningMethod
	now    func() time.Time
}

func NewTokenSigner(cfg SigningConfig) *TokenSigner {
	return &TokenSigner{cfg: cfg, method: cfg.SigningMethod(), now: time.Now}
}

// Sign issues an access token for user. nbf and exp are derived from the same
// second-precision instant, so exp-nbf equals the configured lifetime.
func (s *TokenSigner) Sign(user *models.User) (string, time.Time, error) {
	now := s.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(s.cfg.AccessTokenLifetime)

	claims := Claims{
		Name:              user.UserName,
		PreferredUsername: user.UserName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   user.ID,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.cfg.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies signature, algorithm, issuer, audience and validity window.
// Every failure wraps common.ErrInvalidToken.
func (s *TokenSigner) Parse(token string) (*Claims, error) {
	claims := &Claims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	if s.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.cfg.Audience))
	}

	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return s.cfg.key, nil },
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// IsExpired reports whether err came from an otherwise valid but expired token.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
