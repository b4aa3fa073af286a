// Package services contains the server-side business logic. UserService
// orchestrates registration, login, refresh-token rotation and logout on top
// of TokenService and the password hasher.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/echo/internal/common"
	"github.com/dmitrijs2005/echo/internal/dbx"
	"github.com/dmitrijs2005/echo/internal/logging"
	"github.com/dmitrijs2005/echo/internal/server/auth"
	"github.com/dmitrijs2005/echo/internal/server/models"
	"github.com/dmitrijs2005/echo/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// TokenPair is what a successful register, login or refresh hands back.
type TokenPair struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

// PasswordHasher is the subset of auth.PasswordHasher used here.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
}

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *TokenService
	hasher      PasswordHasher
	logger      logging.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens *TokenService, hasher PasswordHasher, l logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		hasher:      hasher,
		logger:      l.With("module", "user_service"),
	}
}

// Register creates an active account and returns its first token pair.
func (s *UserService) Register(ctx context.Context, username, password string) (*TokenPair, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n == 0 || n > models.MaxUserNameLength {
		return nil, fmt.Errorf("%w: username must be 1-%d characters", common.ErrorValidation, models.MaxUserNameLength)
	}
	if strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: password must not be blank", common.ErrorValidation)
	}

	_, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
	switch {
	case err == nil:
		return nil, common.ErrorConflict
	case !errors.Is(err, common.ErrorNotFound):
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		UserName:     username,
		PasswordHash: hash,
		IsActive:     true,
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Users(tx).Create(ctx, user)
		if err != nil {
			if errors.Is(err, common.ErrorConflict) {
				return common.ErrorConflict
			}
			return fmt.Errorf("error creating user: %w", err)
		}
		pair, err = s.tokens.issuePair(ctx, tx, created)
		return err
	})
	if err != nil {
		if !errors.Is(err, common.ErrorConflict) {
			s.logger.Error(ctx, "registration failed", "error", err)
		}
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return pair, nil
}

// Login checks credentials. Unknown users and wrong passwords are both
// ErrorUnauthorized; an inactive account is ErrorForbidden.
func (s *UserService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(password, s.dummyPasswordHash())
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if !user.IsActive {
		return nil, common.ErrorForbidden
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, common.ErrorUnauthorized
	}

	pair, err := s.tokens.issuePair(ctx, s.db, user)
	if err != nil {
		s.logger.Error(ctx, "issuing tokens failed", "error", err, "user_id", user.ID)
		return nil, err
	}
	return pair, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// revoked before its successor is stored, all in one transaction; if any
// step fails nothing is committed.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, common.ErrorUnauthorized
	}

	var pair *TokenPair
	err := dbx.WithTx(ctx, s.db, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.tokens.validateRefreshToken(ctx, tx, refreshToken)
		if err != nil {
			return err
		}
		if user == nil {
			return common.ErrorUnauthorized
		}
		if !user.IsActive {
			return common.ErrorForbidden
		}

		claimed, err := s.tokens.claimRefreshToken(ctx, tx, refreshToken)
		if err != nil {
			return err
		}
		if !claimed {
			return common.ErrorUnauthorized
		}

		pair, err = s.tokens.issuePair(ctx, tx, user)
		return err
	})
	if err != nil {
		if !errors.Is(err, common.ErrorUnauthorized) && !errors.Is(err, common.ErrorForbidden) {
			s.logger.Error(ctx, "refresh failed", "error", err)
		}
		return nil, err
	}
	return pair, nil
}

// Logout revokes exactly the presented refresh token. It reports whether the
// token existed; other sessions and live access tokens are untouched.
func (s *UserService) Logout(ctx context.Context, refreshToken string) (bool, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return false, fmt.Errorf("%w: refresh token is required", common.ErrorValidation)
	}
	found, err := s.tokens.RevokeRefreshToken(ctx, refreshToken)
	if err != nil {
		s.logger.Error(ctx, "logout failed", "error", err)
		return false, err
	}
	return found, nil
}

// Authenticate verifies an access token and returns its claims.
func (s *UserService) Authenticate(accessToken string) (*auth.Claims, error) {
	claims, err := s.tokens.ParseAccessToken(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}
	return claims, nil
}

// Me returns the account behind an authenticated user id.
func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, common.ErrorUnauthorized
	}
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}

// dummyPasswordHash is verified against when the user does not exist, so
// that unknown and known usernames take comparable time.
func (s *UserService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("echo-dummy-password")
		if err != nil {
			h = "1.AAAAAAAAAAAAAAAAAAAAAA==.AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
