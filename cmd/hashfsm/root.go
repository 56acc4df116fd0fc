package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/hashfsm/internal/cli"
	"github.com/aretw0/hashfsm/internal/config"
	"github.com/aretw0/hashfsm/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hashfsm",
	Short: "hashfsm attaches named state machines to key-value hashes",
	Long: `hashfsm stores state machine definitions next to your data and governs every
hash whose key starts with a definition's prefix: new entities get the initial
state, and events move them along the declared transitions only.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands). Empty values keep the
	// HASHFSM_* environment setting.
	flags := rootCmd.PersistentFlags()
	flags.String("env-file", ".env", "Dotenv file read before the environment")
	flags.String("backend", "", "Host backend: redis or memory (HASHFSM_BACKEND)")
	flags.String("redis-url", "", "Redis connection URL (HASHFSM_REDIS_URL)")
	flags.String("strategy", "", "Transition strategy: direct, locked or cas (HASHFSM_STRATEGY)")
	flags.String("prefix-policy", "", "Prefix collision policy: overwrite or reject (HASHFSM_PREFIX_POLICY)")
	flags.String("snapshot", "", "Snapshot file of the memory backend (HASHFSM_SNAPSHOT)")
	flags.String("log-level", "", "Log level: debug, info, warn or error (HASHFSM_LOG_LEVEL)")
}

// loadConfig reads the environment and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return cfg, err
	}

	overrides := map[string]*string{
		"backend":       &cfg.Backend,
		"redis-url":     &cfg.Redis.ConnectionURL,
		"strategy":      &cfg.Strategy,
		"prefix-policy": &cfg.PrefixPolicy,
		"snapshot":      &cfg.Snapshot,
		"log-level":     &cfg.LogLevel,
	}
	for name, target := range overrides {
		if v, _ := cmd.Flags().GetString(name); v != "" {
			*target = v
		}
	}
	return cfg, cfg.Validate()
}

// withApp builds the App from the configuration, runs fn and closes the App.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *cli.App) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Level())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	runErr := fn(ctx, app)
	if err := app.Close(); err != nil {
		logger.Warn("Close failed", "err", err)
	}
	return runErr
}
