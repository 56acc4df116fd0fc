package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aretw0/hashfsm/internal/presentation/tui"
	"github.com/aretw0/hashfsm/pkg/domain"
	"github.com/aretw0/hashfsm/pkg/ports"
)

// WatchOptions configures RunWatch.
type WatchOptions struct {
	// Prefix restricts the printed notifications to keys starting with it.
	Prefix string
	// Initialize runs the initialization hook on every notification.
	Initialize bool
}

// RunWatch prints host notifications to w until ctx is done.
func RunWatch(ctx context.Context, app *App, w io.Writer, opts WatchOptions) error {
	var mu sync.Mutex
	printer := func(_ context.Context, n domain.Notification) {
		if opts.Prefix != "" && !strings.HasPrefix(n.Key, opts.Prefix) {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "%-8s %s\n", n.Event, tui.Highlight(w, n.Key))
	}

	var sub ports.Subscription
	var err error
	if opts.Initialize {
		sub, err = app.Observe(ctx, printer)
	} else {
		sub, err = app.Notifier.Subscribe(ctx, printer)
	}
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Close()

	app.Logger.Info("Watching notifications", "prefix", opts.Prefix, "initialize", opts.Initialize)
	<-ctx.Done()
	return nil
}
