package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/hashfsm/pkg/adapters/loam"
	"github.com/aretw0/hashfsm/pkg/ports"
)

// RunLoad creates every Definition document found under dir. With watch set
// it keeps running and reloads documents as they change, until ctx is done.
func RunLoad(ctx context.Context, app *App, dir string, watch bool, w io.Writer) error {
	loader, err := loam.Open(dir)
	if err != nil {
		return err
	}
	return loadFrom(ctx, app, loader, watch, w)
}

func loadFrom(ctx context.Context, app *App, loader ports.DefinitionLoader, watch bool, w io.Writer) error {
	names, err := app.Module.Load(ctx, loader)
	for _, name := range names {
		printSystemMessage(w, "Loaded '%s'.", name)
	}
	if !watch {
		return err
	}
	if err != nil {
		// Keep watching: a broken document may be fixed in place.
		app.Logger.Warn("Some definitions failed to load", "err", err)
	}

	watchable, ok := loader.(ports.Watchable)
	if !ok {
		return fmt.Errorf("loader %T cannot watch for changes", loader)
	}
	changes, err := watchable.Watch(ctx)
	if err != nil {
		return err
	}

	for id := range changes {
		name, err := app.Module.LoadOne(ctx, loader, id)
		if err != nil {
			app.Logger.Warn("Reload failed", "id", id, "err", err)
			printSystemMessage(w, "Reload of '%s' failed: %v", id, err)
			continue
		}
		printSystemMessage(w, "Reloaded '%s'.", name)
	}
	return nil
}
