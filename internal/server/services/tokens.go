package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/echo/internal/common"
	"github.com/dmitrijs2005/echo/internal/dbx"
	"github.com/dmitrijs2005/echo/internal/logging"
	"github.com/dmitrijs2005/echo/internal/server/auth"
	"github.com/dmitrijs2005/echo/internal/server/models"
	"github.com/dmitrijs2005/echo/internal/server/repositories/repomanager"
)

// refreshTokenSize is the number of random bytes behind a refresh token.
const refreshTokenSize = 64

// TokenService issues access tokens and manages the lifecycle of stored
// refresh tokens. Exported methods run on the connection pool; the
// lower-case variants take a DBTX so UserService can compose them in one
// transaction.
type TokenService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	signer      *auth.TokenSigner
	cfg         auth.SigningConfig
	logger      logging.Logger
	now         func() time.Time
}

func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, cfg auth.SigningConfig, l logging.Logger) *TokenService {
	return &TokenService{
		db:          db,
		repomanager: m,
		signer:      auth.NewTokenSigner(cfg),
		cfg:         cfg,
		logger:      l.With("module", "token_service"),
		now:         time.Now,
	}
}

// CreateAccessToken signs a short-lived token for user. No I/O.
func (s *TokenService) CreateAccessToken(user *models.User) (string, time.Time, error) {
	return s.signer.Sign(user)
}

// ParseAccessToken verifies token and returns its claims.
func (s *TokenService) ParseAccessToken(token string) (*auth.Claims, error) {
	return s.signer.Parse(token)
}

// CreateAndStoreRefreshToken issues and persists a new refresh token for user.
func (s *TokenService) CreateAndStoreRefreshToken(ctx context.Context, user *models.User) (string, time.Time, error) {
	return s.createRefreshToken(ctx, s.db, user)
}

// ValidateRefreshToken returns the owner of token, or nil when the token is
// unknown, revoked or expired.
func (s *TokenService) ValidateRefreshToken(ctx context.Context, token string) (*models.User, error) {
	return s.validateRefreshToken(ctx, s.db, token)
}

// RevokeRefreshToken marks token revoked. It is idempotent and returns false
// only when no such token exists.
func (s *TokenService) RevokeRefreshToken(ctx context.Context, token string) (bool, error) {
	found, err := s.repomanager.RefreshTokens(s.db).Revoke(ctx, token)
	if err != nil {
		return false, fmt.Errorf("error revoking refresh token: %w", err)
	}
	return found, nil
}

// PurgeExpired deletes refresh tokens whose expiry has passed. Validation
// never depends on it having run.
func (s *TokenService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("error purging refresh tokens: %w", err)
	}
	return n, nil
}

func (s *TokenService) createRefreshToken(ctx context.Context, db dbx.DBTX, user *models.User) (string, time.Time, error) {
	value, err := common.MakeRandBase64String(refreshTokenSize)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error generating refresh token: %w", err)
	}

	rt := &models.RefreshToken{
		UserID:    user.ID,
		Token:     value,
		Revoked:   false,
		ExpiresAt: s.now().UTC().Add(s.cfg.RefreshTokenLifetime),
	}
	if err := s.repomanager.RefreshTokens(db).Create(ctx, rt); err != nil {
		return "", time.Time{}, fmt.Errorf("error storing refresh token: %w", err)
	}
	return value, rt.ExpiresAt, nil
}

func (s *TokenService) validateRefreshToken(ctx context.Context, db dbx.DBTX, token string) (*models.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}

	rt, err := s.repomanager.RefreshTokens(db).FindActive(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	if !rt.IsActive(s.now()) || rt.User == nil {
		return nil, nil
	}
	return rt.User, nil
}

// claimRefreshToken revokes token only if it is still active. The boolean is
// true for exactly one of any number of concurrent callers.
func (s *TokenService) claimRefreshToken(ctx context.Context, db dbx.DBTX, token string) (bool, error) {
	ok, err := s.repomanager.RefreshTokens(db).RevokeActive(ctx, token)
	if err != nil {
		return false, fmt.Errorf("error revoking refresh token: %w", err)
	}
	return ok, nil
}

// issuePair signs an access token and stores a fresh refresh token through db.
func (s *TokenService) issuePair(ctx context.Context, db dbx.DBTX, user *models.User) (*TokenPair, error) {
	access, accessExp, err := s.CreateAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.createRefreshToken(ctx, db, user)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:           access,
		AccessTokenExpiresAt:  accessExp,
		RefreshToken:          refresh,
		RefreshTokenExpiresAt: refreshExp,
	}, nil
}
