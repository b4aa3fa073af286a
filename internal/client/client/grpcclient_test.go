package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/echo/internal/api/authv1"
	"github.com/dmitrijs2005/echo/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// fakeAuthServer issues A1/R1 on login. A1 is reported as expired, and
// refreshing R1 yields A2/R2.
type fakeAuthServer struct {
	authv1.UnimplementedAuthServiceServer

	mu           sync.Mutex
	refreshCalls int
	seenTokens   []string
}

func (f *fakeAuthServer) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

func (f *fakeAuthServer) tokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seenTokens...)
}

func pair(access, refresh string) *authv1.TokenResponse {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	return &authv1.TokenResponse{
		AccessToken:           access,
		AccessTokenExpiresAt:  now.Add(15 * time.Minute),
		RefreshToken:          refresh,
		RefreshTokenExpiresAt: now.Add(30 * 24 * time.Hour),
	}
}

func (f *fakeAuthServer) checkAccess(ctx context.Context) error {
	var token string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(common.AuthorizationHeaderName); len(v) > 0 {
			token = v[0]
		}
	}

	f.mu.Lock()
	f.seenTokens = append(f.seenTokens, token)
	f.mu.Unlock()

	switch token {
	case "Bearer A2":
		return nil
	case "Bearer A1":
		return status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
	case "":
		return status.Error(codes.Unauthenticated, "missing token")
	default:
		return status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	}
}

func (f *fakeAuthServer) Register(_ context.Context, in *authv1.RegisterRequest) (*authv1.TokenResponse, error) {
	switch in.Username {
	case "":
		return nil, status.Error(codes.InvalidArgument, "username is required")
	case "taken":
		return nil, status.Error(codes.AlreadyExists, "already exists")
	}
	return pair("A2", "R2"), nil
}

func (f *fakeAuthServer) Login(_ context.Context, in *authv1.LoginRequest) (*authv1.TokenResponse, error) {
	switch {
	case in.Username == "alice" && in.Password == "pw":
		return pair("A1", "R1"), nil
	case in.Username == "bob":
		return nil, status.Error(codes.PermissionDenied, "forbidden")
	}
	return nil, status.Error(codes.Unauthenticated, "unauthorized")
}

func (f *fakeAuthServer) Refresh(ctx context.Context, in *authv1.RefreshRequest) (*authv1.TokenResponse, error) {
	f.mu.Lock()
	f.refreshCalls++
	f.mu.Unlock()

	if md, ok := metadata.FromIncomingContext(ctx); ok && len(md.Get(common.AuthorizationHeaderName)) > 0 {
		return nil, status.Error(codes.InvalidArgument, "refresh must not carry an access token")
	}
	if in.RefreshToken != "R1" {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	return pair("A2", "R2"), nil
}

func (f *fakeAuthServer) Logout(ctx context.Context, in *authv1.LogoutRequest) (*authv1.LogoutResponse, error) {
	if err := f.checkAccess(ctx); err != nil {
		return nil, err
	}
	return &authv1.LogoutResponse{Revoked: in.RefreshToken == "R2"}, nil
}

func (f *fakeAuthServer) Me(ctx context.Context, _ *authv1.MeRequest) (*authv1.MeResponse, error) {
	if err := f.checkAccess(ctx); err != nil {
		return nil, err
	}
	return &authv1.MeResponse{ID: "u-1", Username: "alice", IsActive: true}, nil
}

func (f *fakeAuthServer) Ping(context.Context, *authv1.PingRequest) (*authv1.PingResponse, error) {
	return &authv1.PingResponse{Status: "OK"}, nil
}

func newTestClient(t *testing.T, srv authv1.AuthServiceServer) (*GRPCClient, func()) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	authv1.RegisterAuthServiceServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	c, err := NewEchoClientService("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, s.Stop
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestGRPCClient_LoginStoresSession(t *testing.T) {
	c, _ := newTestClient(t, &fakeAuthServer{})
	require.False(t, c.LoggedIn())

	s, err := c.Login(testCtx(t), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "A1", s.AccessToken)
	assert.Equal(t, "R1", s.RefreshToken)
	assert.True(t, s.RefreshTokenExpiresAt.After(s.AccessTokenExpiresAt))
	assert.True(t, c.LoggedIn())
}

func TestGRPCClient_LoginErrors(t *testing.T) {
	c, _ := newTestClient(t, &fakeAuthServer{})

	_, err := c.Login(testCtx(t), "alice", "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.Login(testCtx(t), "bob", "pw")
	require.ErrorIs(t, err, ErrForbidden)
	assert.False(t, c.LoggedIn())
}

func TestGRPCClient_RegisterErrors(t *testing.T) {
	c, _ := newTestClient(t, &fakeAuthServer{})

	_, err := c.Register(testCtx(t), "taken", "pw")
	require.ErrorIs(t, err, ErrConflict)

	_, err = c.Register(testCtx(t), "", "pw")
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "username is required")

	s, err := c.Register(testCtx(t), "carol", "pw")
	require.NoError(t, err)
	assert.Equal(t, "R2", s.RefreshToken)
}

func TestGRPCClient_ExpiredAccessTokenIsRefreshedOnce(t *testing.T) {
	srv := &fakeAuthServer{}
	c, _ := newTestClient(t, srv)

	_, err := c.Login(testCtx(t), "alice", "pw")
	require.NoError(t, err)

	me, err := c.Me(testCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)

	assert.Equal(t, 1, srv.refreshCount())
	assert.Equal(t, []string{"Bearer A1", "Bearer A2"}, srv.tokens())
	assert.Equal(t, "R2", c.currentSession().RefreshToken)

	// the new access token is used directly afterwards
	_, err = c.Me(testCtx(t))
	require.NoError(t, err)
	assert.Equal(t, 1, srv.refreshCount())
}

func TestGRPCClient_FailedRefreshReturnsOriginalError(t *testing.T) {
	srv := &fakeAuthServer{}
	c, _ := newTestClient(t, srv)

	c.session = Session{AccessToken: "A1", RefreshToken: "stale"}

	_, err := c.Me(testCtx(t))
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, srv.refreshCount())
	assert.False(t, c.LoggedIn(), "rejected refresh token drops the session")
}

func TestGRPCClient_InvalidTokenIsNotRefreshed(t *testing.T) {
	srv := &fakeAuthServer{}
	c, _ := newTestClient(t, srv)

	c.session = Session{AccessToken: "garbage", RefreshToken: "R1"}

	_, err := c.Me(testCtx(t))
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 0, srv.refreshCount())
}

func TestGRPCClient_Refresh(t *testing.T) {
	c, _ := newTestClient(t, &fakeAuthServer{})

	_, err := c.Refresh(testCtx(t))
	require.ErrorIs(t, err, ErrNotLoggedIn)

	_, err = c.Login(testCtx(t), "alice", "pw")
	require.NoError(t, err)

	s, err := c.Refresh(testCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "A2", s.AccessToken)
	assert.Equal(t, "R2", s.RefreshToken)

	// R2 is unknown to the fake, so a second rotation is rejected
	_, err = c.Refresh(testCtx(t))
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, c.LoggedIn())
}

func TestGRPCClient_Logout(t *testing.T) {
	c, _ := newTestClient(t, &fakeAuthServer{})

	_, err := c.Logout(testCtx(t))
	require.ErrorIs(t, err, ErrNotLoggedIn)

	_, err = c.Register(testCtx(t), "carol", "pw")
	require.NoError(t, err)

	revoked, err := c.Logout(testCtx(t))
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.False(t, c.LoggedIn())

	_, err = c.Me(testCtx(t))
	require.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestGRPCClient_Ping(t *testing.T) {
	c, stop := newTestClient(t, &fakeAuthServer{})

	require.NoError(t, c.Ping(testCtx(t)))

	stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.ErrorIs(t, c.Ping(ctx), ErrUnavailable)
}

func TestGRPCClient_mapError(t *testing.T) {
	c := &GRPCClient{}
	boom := errors.New("boom")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"unauthenticated", status.Error(codes.Unauthenticated, "x"), ErrUnauthorized},
		{"permission denied", status.Error(codes.PermissionDenied, "x"), ErrForbidden},
		{"already exists", status.Error(codes.AlreadyExists, "x"), ErrConflict},
		{"invalid argument", status.Error(codes.InvalidArgument, "x"), ErrInvalidArgument},
		{"unavailable", status.Error(codes.Unavailable, "x"), ErrUnavailable},
		{"deadline", status.Error(codes.DeadlineExceeded, "x"), ErrUnavailable},
		{"plain error", boom, boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, c.mapError(tt.in), tt.want)
		})
	}

	assert.NoError(t, c.mapError(nil))
}

func TestWithAccessToken_ReplacesExistingValue(t *testing.T) {
	ctx := metadata.AppendToOutgoingContext(context.Background(), common.AuthorizationHeaderName, "Bearer old", "x-other", "1")

	ctx = withAccessToken(ctx, "new")

	md, _ := metadata.FromOutgoingContext(ctx)
	assert.Equal(t, []string{"Bearer new"}, md.Get(common.AuthorizationHeaderName))
	assert.Equal(t, []string{"1"}, md.Get("x-other"))

	ctx = withAccessToken(ctx, "")
	md, _ = metadata.FromOutgoingContext(ctx)
	assert.Empty(t, md.Get(common.AuthorizationHeaderName))
}
