package main

import (
	"context"
	"strings"

	"github.com/aretw0/hashfsm"
	"github.com/aretw0/hashfsm/internal/cli"
	"github.com/aretw0/hashfsm/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves the command surface as a JSON API over HTTP, with /metrics, /health and
a /watch event stream. The initialization hook runs on the backend's
notifications while the server is up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		quiet, _ := cmd.Flags().GetBool("quiet")
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			if addr == "" {
				addr = app.Config.HTTPAddr
			}
			if !quiet && tui.IsTerminal(cmd.OutOrStdout()) {
				tui.PrintBanner(cmd.OutOrStdout(), strings.TrimSpace(hashfsm.Version))
			}

			sigCtx := cli.NewSignalContext(ctx)
			defer sigCtx.Cancel()
			if err := cli.RunServe(sigCtx, app, addr); err != nil {
				return err
			}
			if sig := sigCtx.Signal(); sig != nil {
				app.Logger.Info("Stopped by signal", "signal", sig.String())
			}
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the initialization hook and print host notifications",
	Long:  `Subscribes to the backend's notifications (Redis keyspace events), stamps the initial state onto new entities and prints every notification until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix, _ := cmd.Flags().GetString("prefix")
		passive, _ := cmd.Flags().GetBool("passive")
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			sigCtx := cli.NewSignalContext(ctx)
			defer sigCtx.Cancel()
			return cli.RunWatch(sigCtx, app, cmd.OutOrStdout(), cli.WatchOptions{
				Prefix:     prefix,
				Initialize: !passive,
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, watchCmd)

	serveCmd.Flags().String("addr", "", "Address to listen on (HASHFSM_HTTP_ADDR)")
	serveCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
	watchCmd.Flags().String("prefix", "", "Only print notifications for keys with this prefix")
	watchCmd.Flags().Bool("passive", false, "Print notifications without initializing entities")
}
