package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/dovol/internal/common"
	"github.com/dmitrijs2005/dovol/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const userKey ctxKey = "user"

func withUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the caller placed in ctx by the auth interceptor.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok && u != nil
}

// bearerToken extracts the token from "authorization: Bearer <t>", falling
// back to a bare "access_token" entry.
func bearerToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
		v := strings.TrimSpace(values[0])
		if len(v) > len(common.BearerPrefix) && strings.EqualFold(v[:len(common.BearerPrefix)], common.BearerPrefix) {
			return strings.TrimSpace(v[len(common.BearerPrefix):])
		}
	}
	if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

// authInterceptor enforces the per-method policy: public methods pass
// straight through, everything else needs a valid token whose user holds
// one of the method's roles.
func (s *GRPCServer) authInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	p, ok := s.policies[info.FullMethod]
	if !ok {
		s.logger.Error(ctx, "no access policy", "method", info.FullMethod)
		return nil, status.Error(codes.PermissionDenied, "method not available")
	}
	if p.public {
		return handler(ctx, req)
	}

	token := bearerToken(ctx)
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	user, err := s.gate.Authenticate(ctx, token)
	if err != nil {
		return nil, s.toStatus(ctx, info.FullMethod, err)
	}
	if _, err := s.gate.Authorize(user, p.roles...); err != nil {
		return nil, s.toStatus(ctx, info.FullMethod, err)
	}

	return handler(withUser(ctx, user), req)
}

// loggingInterceptor records every call with its outcome and latency under
// a random request id, which is also sent back in the response header.
func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	id, err := common.MakeRandHexString(8)
	if err == nil {
		_ = grpc.SetHeader(ctx, metadata.Pairs(common.RequestIDHeaderName, id))
	}

	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "rpc", "request_id", id, "method", info.FullMethod, "code", status.Code(err).String(), "duration", time.Since(start).String())
	return resp, err
}

// currentUser returns the authenticated caller or an Unauthenticated error.
func currentUser(ctx context.Context) (*models.User, error) {
	u, ok := UserFromContext(ctx)
	if !ok {
		return nil, common.ErrorUnauthenticated
	}
	return u, nil
}
