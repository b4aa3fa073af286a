package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/echo/internal/api/authv1"
	"github.com/dmitrijs2005/echo/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      authv1.AuthServiceClient

	mu      sync.RWMutex
	session Session
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AuthorizationHeaderName)
	if token != "" {
		md.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

func isTokenExpired(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	return st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	// refresh travels without an access token and is never retried
	if method == authv1.AuthService_Refresh_FullMethodName {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	err := invoker(withAccessToken(ctx, s.currentSession().AccessToken), method, req, reply, cc, opts...)
	if err == nil || !isTokenExpired(err) {
		return err
	}

	if s.currentSession().RefreshToken == "" {
		return err
	}

	if _, rerr := s.Refresh(ctx); rerr != nil {
		return err
	}

	// tokens rotated, retry once with the new access token
	return invoker(withAccessToken(ctx, s.currentSession().AccessToken), method, req, reply, cc, opts...)
}

// NewEchoClientService dials endpointURL. Extra dial options are appended
// after the defaults, which are insecure transport credentials and the
// access-token interceptor.
func NewEchoClientService(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	if err := c.InitGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, dialOpts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = authv1.NewAuthServiceClient(conn)
	return nil
}

func (s *GRPCClient) currentSession() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *GRPCClient) setSession(resp *authv1.TokenResponse) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = Session{
		AccessToken:           resp.AccessToken,
		AccessTokenExpiresAt:  resp.AccessTokenExpiresAt,
		RefreshToken:          resp.RefreshToken,
		RefreshTokenExpiresAt: resp.RefreshTokenExpiresAt,
	}
	return s.session
}

func (s *GRPCClient) clearSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = Session{}
}

// LoggedIn reports whether the client holds a refresh token.
func (s *GRPCClient) LoggedIn() bool {
	return s.currentSession().RefreshToken != ""
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Register(ctx context.Context, userName, password string) (Session, error) {

	req := &authv1.RegisterRequest{Username: userName, Password: password}

	resp, err := s.client.Register(ctx, req)
	if err != nil {
		return Session{}, s.mapError(err)
	}

	return s.setSession(resp), nil
}

func (s *GRPCClient) Login(ctx context.Context, userName, password string) (Session, error) {

	req := &authv1.LoginRequest{Username: userName, Password: password}

	resp, err := s.client.Login(ctx, req)
	if err != nil {
		return Session{}, s.mapError(err)
	}

	return s.setSession(resp), nil
}

// Refresh rotates the held refresh token. A rejected refresh token drops the
// session, since the server will not accept it again.
func (s *GRPCClient) Refresh(ctx context.Context) (Session, error) {

	refreshToken := s.currentSession().RefreshToken
	if refreshToken == "" {
		return Session{}, ErrNotLoggedIn
	}

	resp, err := s.client.Refresh(ctx, &authv1.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		err = s.mapError(err)
		if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden) {
			s.clearSession()
		}
		return Session{}, err
	}

	return s.setSession(resp), nil
}

// Logout revokes the held refresh token and forgets the session. The
// returned flag is the server's answer to whether a live token was revoked.
func (s *GRPCClient) Logout(ctx context.Context) (bool, error) {

	refreshToken := s.currentSession().RefreshToken
	if refreshToken == "" {
		return false, ErrNotLoggedIn
	}

	resp, err := s.client.Logout(ctx, &authv1.LogoutRequest{RefreshToken: refreshToken})
	if err != nil {
		return false, s.mapError(err)
	}

	s.clearSession()
	return resp.Revoked, nil
}

func (s *GRPCClient) Me(ctx context.Context) (*authv1.MeResponse, error) {

	if !s.LoggedIn() {
		return nil, ErrNotLoggedIn
	}

	resp, err := s.client.Me(ctx, &authv1.MeRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}

	return resp, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {

	req := &authv1.PingRequest{}

	resp, err := s.client.Ping(ctx, req)
	if err != nil {
		return s.mapError(err)
	}

	if resp.Status != "OK" {
		return ErrUnavailable
	}

	return nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		return ErrUnauthorized
	case codes.PermissionDenied:
		return ErrForbidden
	case codes.AlreadyExists:
		return ErrConflict
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
