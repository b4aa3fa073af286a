package grpc

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/echo/internal/api/authv1"
	"github.com/dmitrijs2005/echo/internal/common"
	"github.com/dmitrijs2005/echo/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// protectedMethods require a valid access token.
var protectedMethods = map[string]bool{
	authv1.AuthService_Logout_FullMethodName: true,
	authv1.AuthService_Me_FullMethodName:     true,
}

// ClaimsFromContext returns the claims stored by the access-token interceptor.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok && c != nil
}

func accessTokenFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(common.AuthorizationHeaderName)
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(common.StripBearer(values[0]))
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

	if protectedMethods[info.FullMethod] {

		accessToken := accessTokenFromMetadata(ctx)
		if accessToken == "" {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		claims, err := s.users.Authenticate(accessToken)
		if err != nil {
			if auth.IsExpired(err) {
				return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
			}
			return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
		}

		ctx = context.WithValue(ctx, claimsKey, claims)
	}

	return handler(ctx, req)
}
