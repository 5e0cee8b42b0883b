package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpAdapter "github.com/aretw0/sequence/pkg/adapters/http"
)

const shutdownTimeout = 5 * time.Second

// Serve runs the HTTP API until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, opts RunOptions, addr string) error {
	app, err := NewApp(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr: addr,
		Handler: httpAdapter.NewHandler(app.Runner,
			httpAdapter.WithGatherer(app.Metrics),
			httpAdapter.WithLogger(app.Logger),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		app.Logger.Info("server listening", "addr", addr, "pipelines", app.Runner.Names())
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		app.Logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.Logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
			return srv.Close()
		}
		return nil
	}
}
