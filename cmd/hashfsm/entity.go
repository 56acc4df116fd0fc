package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/hashfsm/internal/cli"
	"github.com/aretw0/hashfsm/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var allowedCmd = &cobra.Command{
	Use:   "allowed <fsm> <key> <event>",
	Short: "Check whether an event may fire on an entity",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			ok, err := app.Module.Allowed(ctx, args[0], args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tui.Verdict(cmd.OutOrStdout(), ok))
			return nil
		})
	},
}

var triggerCmd = &cobra.Command{
	Use:   "trigger <fsm> <key> <event>",
	Short: "Fire an event on an entity",
	Long:  `Moves the entity to the event's target state when its current state is one of the event's sources. Prints yes when the entity changed state.`,
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			fired, err := app.Module.Trigger(ctx, args[0], args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tui.Verdict(cmd.OutOrStdout(), fired))
			return nil
		})
	},
}

var stateCmd = &cobra.Command{
	Use:   "state <fsm> <key>",
	Short: "Print the current state of an entity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			state, ok, err := app.Module.State(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("entity %q is not initialized", args[1])
			}
			fmt.Fprintln(cmd.OutOrStdout(), state)
			return nil
		})
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events <fsm> <key>",
	Short: "List the events that may fire from the entity's current state",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			events, err := app.Module.Events(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if len(events) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(events, "\n"))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(allowedCmd, triggerCmd, stateCmd, eventsCmd)
}
