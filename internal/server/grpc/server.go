// Package grpc is the transport adapter of the server: a gRPC listener with
// the standard health service and a bearer-token interceptor for the
// methods that require a signed-in caller.
//
// The binary currently registers only the health service, so no method is
// protected in production. Account RPCs registered later must list their
// full method names in NewServer to run behind the interceptor.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/chirper/internal/logging"
	"github.com/dmitrijs2005/chirper/internal/server/sessions"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Authenticator resolves a bearer access token to the calling session.
type Authenticator interface {
	AuthenticateBearer(ctx context.Context, accessToken string) (*sessions.AuthUser, error)
}

type Server struct {
	address   string
	auth      Authenticator
	protected map[string]bool
	health    *health.Server
	logger    logging.Logger
}

// NewServer returns a server listening on address. Calls to the full method
// names in protected must carry a bearer token accepted by a.
func NewServer(address string, l logging.Logger, a Authenticator, protected ...string) *Server {
	p := make(map[string]bool, len(protected))
	for _, m := range protected {
		p[m] = true
	}
	return &Server{
		address:   address,
		auth:      a,
		protected: p,
		health:    health.NewServer(),
		logger:    l.With("module", "grpc_server"),
	}
}

func (s *Server) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.bearerInterceptor))

	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
