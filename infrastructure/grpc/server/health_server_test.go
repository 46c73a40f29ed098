package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthServer_FollowsProbe(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	var failing atomic.Bool
	probe := func(context.Context) error {
		if failing.Load() {
			return fmt.Errorf("storage closed")
		}
		return nil
	}
	hs := NewHealthServer(logs.GetLoggerFromLevel(slog.LevelDebug), probe, time.Second)

	resp, err := hs.Health().Check(ctx, &healthpb.HealthCheckRequest{Service: ChatServiceName})
	req.NoError(err)
	req.Equal(healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	req.Equal(healthpb.HealthCheckResponse_SERVING, hs.Check(ctx))
	resp, err = hs.Health().Check(ctx, &healthpb.HealthCheckRequest{Service: ChatServiceName})
	req.NoError(err)
	req.Equal(healthpb.HealthCheckResponse_SERVING, resp.Status)

	failing.Store(true)
	req.Equal(healthpb.HealthCheckResponse_NOT_SERVING, hs.Check(ctx))
}

func TestHealthServer_ServesOverGRPC(t *testing.T) {
	req := require.New(t)
	hs := NewHealthServer(logs.GetLoggerFromLevel(slog.LevelDebug),
		func(context.Context) error { return nil }, 10*time.Millisecond)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	go func() { _ = hs.Serve(lis) }()
	defer hs.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hs.Run(ctx) }()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	req.NoError(err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	req.Eventually(func() bool {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ChatServiceName})
		return err == nil && resp.Status == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 20*time.Millisecond)
}
