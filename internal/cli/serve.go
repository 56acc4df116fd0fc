package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpAdapter "github.com/aretw0/hashfsm/pkg/adapters/http"
	"github.com/aretw0/hashfsm/pkg/domain"
	"github.com/aretw0/hashfsm/pkg/ports"
)

// shutdownTimeout bounds how long in-flight requests may take on shutdown.
const shutdownTimeout = 5 * time.Second

// Observe attaches the initialization hook to the backend's notifications,
// followed by any extra handlers, on a single subscription.
func (a *App) Observe(ctx context.Context, extra ...ports.NotificationHandler) (ports.Subscription, error) {
	initializer := a.Module.Initializer()
	return a.Notifier.Subscribe(ctx, func(ctx context.Context, n domain.Notification) {
		initializer.Handle(ctx, n)
		for _, h := range extra {
			h(ctx, n)
		}
	})
}

// NewServeHandler builds the HTTP command surface of the app, with
// notifications fanned out to /watch.
func NewServeHandler(ctx context.Context, app *App) (http.Handler, ports.Subscription, error) {
	streams := httpAdapter.NewStreamManager(app.Logger.With("component", "streams"))
	sub, err := app.Observe(ctx, streams.Notify)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to observe notifications: %w", err)
	}

	handler := httpAdapter.NewHandler(app.Module,
		httpAdapter.WithStreams(streams),
		httpAdapter.WithHealthcheck(app.Health),
		httpAdapter.WithGatherer(app.Gatherer),
		httpAdapter.WithLogger(app.Logger.With("component", "http")),
	)
	return handler, sub, nil
}

// RunServe serves the HTTP command surface on addr until ctx is done.
func RunServe(ctx context.Context, app *App, addr string) error {
	handler, sub, err := NewServeHandler(ctx, app)
	if err != nil {
		return err
	}
	defer sub.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		app.Logger.Info("HTTP Server listening", "address", addr, "backend", app.Config.Backend, "strategy", app.Config.Strategy)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.Logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			return errors.Join(err, srv.Close())
		}
		app.Logger.Info("HTTP Server stopped gracefully")
		return nil
	}
}
