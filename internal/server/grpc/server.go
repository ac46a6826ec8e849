// Package grpc exposes the vault services as the docvault.v1.Vault gRPC
// service.
package grpc

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/dmitrijs2005/docvault/internal/server/services"
	"google.golang.org/grpc"
)

// Services bundles what the handlers call into.
type Services struct {
	Auth      *services.AuthService
	MFA       *services.MFAService
	Documents *services.DocumentService
	Audit     *services.AuditService
}

type GRPCServer struct {
	address string
	svc     Services
	logger  logging.Logger

	requests       *addressLimiter
	logins         *addressLimiter
	trustedProxies []netip.Prefix
}

var _ VaultServer = (*GRPCServer)(nil)

type Option func(*GRPCServer)

// WithRequestRateLimit bounds every call per origin address.
func WithRequestRateLimit(l RateLimit) Option {
	return func(s *GRPCServer) { s.requests = newAddressLimiter(l) }
}

// WithLoginRateLimit bounds Login, CompleteLogin and Register per origin
// address, on top of the request limit.
func WithLoginRateLimit(l RateLimit) Option {
	return func(s *GRPCServer) { s.logins = newAddressLimiter(l) }
}

// WithTrustedProxies lists the peers whose x-forwarded-for is honoured.
func WithTrustedProxies(proxies []netip.Prefix) Option {
	return func(s *GRPCServer) { s.trustedProxies = proxies }
}

func NewGRPCServer(address string, l logging.Logger, svc Services, opts ...Option) *GRPCServer {
	s := &GRPCServer{
		address: address,
		svc:     svc,
		logger:  l.With("module", "grpc_server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParseTrustedProxies parses a comma-separated list of IPs and CIDRs.
func ParseTrustedProxies(list string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", item, err)
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", item, err)
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

// NewServer builds the grpc.Server with interceptors and the Vault service
// registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.MaxRecvMsgSize(MaxMessageBytes),
		grpc.ChainUnaryInterceptor(s.recoveryInterceptor, s.originInterceptor, s.accessLogInterceptor, s.rateLimitInterceptor, s.authInterceptor),
	}, opts...)
	srv := grpc.NewServer(opts...)
	RegisterVaultServer(srv, s)
	return srv
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
