package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/echo/internal/api/authv1"
	"github.com/dmitrijs2005/echo/internal/client/client"
	"github.com/dmitrijs2005/echo/internal/client/config"
)

type fakeClient struct {
	mu sync.Mutex

	loggedIn bool

	regUser, regPass     string
	loginUser, loginPass string
	session              client.Session
	authErr              error

	refreshErr error
	revoked    bool
	logoutErr  error

	me    *authv1.MeResponse
	meErr error

	pingErr   error
	pingCalls int
	closed    bool
}

func (f *fakeClient) Close() error { f.closed = true; return nil }

func (f *fakeClient) Register(_ context.Context, u, p string) (client.Session, error) {
	f.regUser, f.regPass = u, p
	if f.authErr != nil {
		return client.Session{}, f.authErr
	}
	f.loggedIn = true
	return f.session, nil
}

func (f *fakeClient) Login(_ context.Context, u, p string) (client.Session, error) {
	f.loginUser, f.loginPass = u, p
	if f.authErr != nil {
		return client.Session{}, f.authErr
	}
	f.loggedIn = true
	return f.session, nil
}

func (f *fakeClient) Refresh(context.Context) (client.Session, error) {
	return f.session, f.refreshErr
}

func (f *fakeClient) Logout(context.Context) (bool, error) {
	if f.logoutErr != nil {
		return false, f.logoutErr
	}
	f.loggedIn = false
	return f.revoked, nil
}

func (f *fakeClient) Me(context.Context) (*authv1.MeResponse, error) { return f.me, f.meErr }

func (f *fakeClient) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingCalls++
	return f.pingErr
}

func (f *fakeClient) setPingErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingErr = err
}

func (f *fakeClient) LoggedIn() bool { return f.loggedIn }

func testSession() client.Session {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	return client.Session{
		AccessToken:           "A",
		AccessTokenExpiresAt:  now.Add(15 * time.Minute),
		RefreshToken:          "R",
		RefreshTokenExpiresAt: now.Add(30 * 24 * time.Hour),
	}
}

func newTestApp(t *testing.T, f *fakeClient) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	var out bytes.Buffer
	return newApp(cfg, f, strings.NewReader(""), &out), &out
}

func stubInputs(t *testing.T, username string, password []byte) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { return username, nil }
	getPassword = func(_ io.Writer) ([]byte, error) { return password, nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}
