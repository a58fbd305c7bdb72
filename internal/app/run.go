package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/henrysimon4260/helpr-platform-sub000/pkg/shutdown"
)

const shutdownTimeout = 10 * time.Second

// grpcStopper gives grpc.Server the Shutdown signature pkg/shutdown expects.
// GracefulStop is abandoned for Stop when ctx expires.
type grpcStopper struct{ srv *grpc.Server }

func (g grpcStopper) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		g.srv.Stop()
		return ctx.Err()
	}
}

// Run serves HTTP and gRPC until ctx is cancelled, then shuts both down.
func (a *App) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", ":"+a.Config.GRPCPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Log.Info("http listening", "addr", a.HTTP.Addr)
		if err := a.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.Log.Info("grpc listening", "addr", lis.Addr().String())
		if err := a.GRPC.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		shutdown.Graceful(gctx, shutdownTimeout, a.Log, a.HTTP, grpcStopper{a.GRPC})
		return nil
	})

	return g.Wait()
}
