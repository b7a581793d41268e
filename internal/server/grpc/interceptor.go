package grpc

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/chirper/internal/common"
	"github.com/dmitrijs2005/chirper/internal/server/sessions"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const authUserKey ctxKey = "authUser"

// AuthUserFromContext returns the caller stored by the bearer interceptor.
func AuthUserFromContext(ctx context.Context) (*sessions.AuthUser, bool) {
	au, ok := ctx.Value(authUserKey).(*sessions.AuthUser)
	return au, ok && au != nil
}

func (s *Server) bearerInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if !s.protected[info.FullMethod] {
		return handler(ctx, req)
	}

	accessToken := bearerToken(ctx)
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	au, err := s.auth.AuthenticateBearer(ctx, accessToken)
	if err != nil {
		return nil, StatusFromError(err)
	}

	ctx = context.WithValue(ctx, authUserKey, au)

	return handler(ctx, req)
}

// bearerToken reads "authorization: Bearer <token>" and falls back to the
// bare access_token key.
func bearerToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
		scheme, token, found := strings.Cut(strings.TrimSpace(values[0]), " ")
		if found && strings.EqualFold(scheme, common.BearerScheme) {
			return strings.TrimSpace(token)
		}
	}

	if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
		return strings.TrimSpace(values[0])
	}

	return ""
}
