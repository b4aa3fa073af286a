package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/echo/internal/common"
	"github.com/dmitrijs2005/echo/internal/dbx"
	"github.com/dmitrijs2005/echo/internal/logging"
	"github.com/dmitrijs2005/echo/internal/server/auth"
	"github.com/dmitrijs2005/echo/internal/server/models"
	refreshtokensrepo "github.com/dmitrijs2005/echo/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/echo/internal/server/repositories/users"
)

// memStore is an in-memory stand-in for the users and refresh_tokens
// tables. Every method takes the mutex, so RevokeActive behaves like the
// conditional UPDATE: one caller wins per row.
type memStore struct {
	mu     sync.Mutex
	users  map[string]*models.User
	tokens map[string]*models.RefreshToken
	seq    int

	createTokenErr error
	findErr        error
}

func newMemStore() *memStore {
	return &memStore{
		users:  map[string]*models.User{},
		tokens: map[string]*models.RefreshToken{},
	}
}

func (s *memStore) addUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
}

func (s *memStore) addToken(rt *models.RefreshToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rt
	s.tokens[rt.Token] = &cp
}

func (s *memStore) token(value string) (models.RefreshToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.tokens[value]
	if !ok {
		return models.RefreshToken{}, false
	}
	return *rt, true
}

func (s *memStore) activeTokens(userID string, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rt := range s.tokens {
		if rt.UserID == userID && rt.IsActive(now) {
			n++
		}
	}
	return n
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.UserName == u.UserName {
			return nil, common.ErrorConflict
		}
	}
	u.CreatedAt = time.Now()
	cp := *u
	r.s.users[u.ID] = &cp
	return u, nil
}

func (r memUsers) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.UserName == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

type memTokens struct{ s *memStore }

func (r memTokens) Create(ctx context.Context, t *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createTokenErr != nil {
		return r.s.createTokenErr
	}
	if _, dup := r.s.tokens[t.Token]; dup {
		return common.ErrorConflict
	}
	r.s.seq++
	t.ID = fmt.Sprintf("rt-%d", r.s.seq)
	t.CreatedAt = time.Now()
	cp := *t
	r.s.tokens[t.Token] = &cp
	return nil
}

func (r memTokens) FindActive(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.findErr != nil {
		return nil, r.s.findErr
	}
	rt, ok := r.s.tokens[token]
	if !ok || rt.Revoked {
		return nil, common.ErrorNotFound
	}
	owner, ok := r.s.users[rt.UserID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *rt
	u := *owner
	cp.User = &u
	return &cp, nil
}

func (r memTokens) Revoke(ctx context.Context, token string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rt, ok := r.s.tokens[token]
	if !ok {
		return false, nil
	}
	rt.Revoked = true
	return true, nil
}

func (r memTokens) RevokeActive(ctx context.Context, token string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rt, ok := r.s.tokens[token]
	if !ok || rt.Revoked {
		return false, nil
	}
	rt.Revoked = true
	return true, nil
}

func (r memTokens) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, rt := range r.s.tokens {
		if rt.ExpiresAt.Before(before) {
			delete(r.s.tokens, k)
			n++
		}
	}
	return n, nil
}

type memRepoManager struct{ s *memStore }

func (m memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m memRepoManager) Users(dbx.DBTX) usersrepo.Repository         { return memUsers{m.s} }
func (m memRepoManager) RefreshTokens(dbx.DBTX) refreshtokensrepo.Repository {
	return memTokens{m.s}
}

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func testSigningConfig(t *testing.T) auth.SigningConfig {
	t.Helper()
	cfg, err := auth.NewSigningConfig(bytes.Repeat([]byte("s"), 64), "echo", "echo-clients", 15*time.Minute, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("NewSigningConfig error: %v", err)
	}
	return cfg
}

func newTestServices(t *testing.T, db *sql.DB, store *memStore) (*UserService, *TokenService) {
	t.Helper()
	rm := memRepoManager{store}
	ts := NewTokenService(db, rm, testSigningConfig(t), logging.Nop{})
	us := NewUserService(db, rm, ts, auth.NewPasswordHasherWithIterations(1_000), logging.Nop{})
	return us, ts
}

func activeUser(id, name string) *models.User {
	return &models.User{ID: id, UserName: name, IsActive: true, CreatedAt: time.Now()}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
