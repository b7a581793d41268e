package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/chirper/internal/common"
	"github.com/dmitrijs2005/chirper/internal/logging"
	"github.com/dmitrijs2005/chirper/internal/server/models"
	"github.com/dmitrijs2005/chirper/internal/server/sessions"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const healthCheck = "/grpc.health.v1.Health/Check"

// fakeAuth accepts exactly one token.
type fakeAuth struct {
	token string
	user  *sessions.AuthUser
	calls int
}

func (f *fakeAuth) AuthenticateBearer(_ context.Context, token string) (*sessions.AuthUser, error) {
	f.calls++
	if token != f.token {
		return nil, common.Unauthorized("Invalid access token")
	}
	return f.user, nil
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		token: "good-token",
		user: &sessions.AuthUser{
			PublicUser: models.PublicUser{ID: "user-123"},
			Session:    sessions.Session{SessionID: "s-1", AccessToken: "good-token"},
		},
	}
}

// startServer serves s on a loopback port and returns a connected client.
func startServer(t *testing.T, s *Server) *grpc.ClientConn {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		cancel()
		t.Fatalf("dial: %v", err)
	}

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return conn
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewServer("127.0.0.1:0", logging.Nop(), newFakeAuth())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewServer("127.0.0.1:99999", logging.Nop(), newFakeAuth())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Run(ctx); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}

func TestServe_HealthCheck(t *testing.T) {
	t.Parallel()

	conn := startServer(t, NewServer("", logging.Nop(), newFakeAuth()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %v", resp.GetStatus())
	}
}

func TestServe_ProtectedMethodNeedsBearer(t *testing.T) {
	t.Parallel()

	fa := newFakeAuth()
	conn := startServer(t, NewServer("", logging.Nop(), fa, healthCheck))
	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated without token, got %v", err)
	}

	bad := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer nope")
	_, err = client.Check(bad, &healthpb.HealthCheckRequest{})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated for a rejected token, got %v", err)
	}
	if msg := status.Convert(err).Message(); msg != "Invalid access token" {
		t.Fatalf("unexpected message %q", msg)
	}

	good := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer good-token")
	resp, err := client.Check(good, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("health check with token: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %v", resp.GetStatus())
	}
	if fa.calls != 2 {
		t.Fatalf("expected 2 authenticator calls, got %d", fa.calls)
	}
}
