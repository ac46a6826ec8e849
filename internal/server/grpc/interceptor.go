package grpc

import (
	"context"
	"net"
	"net/netip"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/dmitrijs2005/docvault/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type ctxKey string

const (
	identityKey ctxKey = "identity"
	originKey   ctxKey = "origin"
)

// publicMethods run without a session. CompleteLogin carries its MFA token
// in the request body instead.
var publicMethods = map[string]bool{
	FullMethod("Ping"):          true,
	FullMethod("Register"):      true,
	FullMethod("Login"):         true,
	FullMethod("CompleteLogin"): true,
}

// loginMethods share the tighter per-address login budget.
var loginMethods = map[string]bool{
	FullMethod("Register"):      true,
	FullMethod("Login"):         true,
	FullMethod("CompleteLogin"): true,
}

const bearerPrefix = "Bearer "

func (s *GRPCServer) originInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	return handler(context.WithValue(ctx, originKey, s.originFromContext(ctx)), req)
}

func (s *GRPCServer) rateLimitInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	address := origin(ctx).Address
	now := time.Now()

	if !s.requests.Allow(address, now) || (loginMethods[info.FullMethod] && !s.logins.Allow(address, now)) {
		s.logger.Warn(ctx, "rate limit exceeded", "method", info.FullMethod, "origin_address", address)
		return nil, status.Error(codes.ResourceExhausted, "too many requests")
	}
	return handler(ctx, req)
}

func (s *GRPCServer) authInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if publicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	token := bearerToken(ctx)
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	id, err := s.svc.Auth.Session(ctx, token)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return handler(context.WithValue(ctx, identityKey, id), req)
}

func (s *GRPCServer) accessLogInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "rpc",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)
	return resp, err
}

func (s *GRPCServer) recoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error(ctx, "panic in handler", "method", info.FullMethod, "panic", p, "stack", string(debug.Stack()))
			err = status.Error(codes.Internal, "internal error")
		}
	}()
	return handler(ctx, req)
}

func bearerToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(common.AuthorizationHeaderName)
	if len(values) == 0 {
		return ""
	}
	v := strings.TrimSpace(values[0])
	if len(v) <= len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

// originFromContext uses the peer address. Only when the peer is a trusted
// proxy is x-forwarded-for consulted: hops are walked from the nearest one
// back and the first untrusted address is taken.
func (s *GRPCServer) originFromContext(ctx context.Context) models.Origin {
	var o models.Origin

	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		o.Address = hostOnly(p.Addr.String())
	}

	md, _ := metadata.FromIncomingContext(ctx)
	if values := md.Get(common.UserAgentHeaderName); len(values) > 0 {
		o.Agent = values[0]
	}

	if !s.trusted(o.Address) {
		return o
	}

	var hops []string
	for _, v := range md.Get(common.ForwardedForHeaderName) {
		for _, h := range strings.Split(v, ",") {
			if h = strings.TrimSpace(h); h != "" {
				hops = append(hops, hostOnly(h))
			}
		}
	}
	for i := len(hops) - 1; i >= 0; i-- {
		o.Address = hops[i]
		if !s.trusted(hops[i]) {
			break
		}
	}
	return o
}

func (s *GRPCServer) trusted(address string) bool {
	if len(s.trustedProxies) == 0 {
		return false
	}
	a, err := netip.ParseAddr(address)
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, p := range s.trustedProxies {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func origin(ctx context.Context) models.Origin {
	o, _ := ctx.Value(originKey).(models.Origin)
	return o
}

func identity(ctx context.Context) (*services.Identity, error) {
	id, ok := ctx.Value(identityKey).(*services.Identity)
	if !ok || id == nil {
		return nil, status.Error(codes.Unauthenticated, "missing session")
	}
	return id, nil
}
