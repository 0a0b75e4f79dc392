package grpcserver

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/and161185/memoriz/internal/version"
)

type fakePinger struct{ fail atomic.Bool }

func (p *fakePinger) Ping(context.Context) error {
	if p.fail.Load() {
		return errors.New("unreachable")
	}
	return nil
}

const bufSize = 1 << 20

func startBufGRPC(t *testing.T, srv *Server) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(bufSize)
	go func() { _ = srv.GRPC.Serve(lis) }()
	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	//nolint:staticcheck // DialContext is supported through 1.x; migrate when grpc.NewClient is stable
	cc, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(dialer), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close(); srv.GRPC.Stop(); _ = lis.Close() })
	return healthpb.NewHealthClient(cc)
}

func servingStatus(t *testing.T, cl healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := cl.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("check %q: %v", service, err)
	}
	return resp.GetStatus()
}

func TestHealth_NotServingUntilChecked(t *testing.T) {
	t.Parallel()

	srv := New(zaptest.NewLogger(t), false)
	cl := startBufGRPC(t, srv)

	if got := servingStatus(t, cl, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("initial status: %v", got)
	}

	p := &fakePinger{}
	if !srv.Check(context.Background(), map[string]Pinger{"storage": p}) {
		t.Fatalf("check should pass")
	}
	if got := servingStatus(t, cl, version.AppName); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("after ok ping: %v", got)
	}

	p.fail.Store(true)
	if srv.Check(context.Background(), map[string]Pinger{"storage": p}) {
		t.Fatalf("check should fail")
	}
	if got := servingStatus(t, cl, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("after failed ping: %v", got)
	}
}

func TestHealth_WatchFlipsStatus(t *testing.T) {
	t.Parallel()

	srv := New(zaptest.NewLogger(t), true)
	cl := startBufGRPC(t, srv)

	p := &fakePinger{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Watch(ctx, 10*time.Millisecond, map[string]Pinger{"storage": p})
		close(done)
	}()

	waitFor := func(want healthpb.HealthCheckResponse_ServingStatus) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if servingStatus(t, cl, "") == want {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Fatalf("status never became %v", want)
	}

	waitFor(healthpb.HealthCheckResponse_SERVING)
	p.fail.Store(true)
	waitFor(healthpb.HealthCheckResponse_NOT_SERVING)
	p.fail.Store(false)
	waitFor(healthpb.HealthCheckResponse_SERVING)

	cancel()
	<-done
	if got := servingStatus(t, cl, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("after shutdown: %v", got)
	}
}
