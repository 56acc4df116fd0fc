package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/hashfsm/internal/cli"
	"github.com/aretw0/hashfsm/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create <file|->",
	Short: "Create or replace a definition from a YAML or JSON document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readPayload(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			name, err := app.Module.Create(ctx, payload)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", name)
			return nil
		})
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <fsm>",
	Short: "Show a stored definition",
	Long:  `Prints a definition as json, yaml, pretty (rendered markdown) or mermaid. Without -o, terminals get pretty and pipes get json.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("output")
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			def, err := app.Module.Definition(ctx, args[0])
			if err != nil {
				return err
			}
			return cli.WriteDefinition(cmd.OutOrStdout(), def, format)
		})
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph <fsm>",
	Short: "Export a definition as a Mermaid diagram",
	Long:  `Outputs a Mermaid diagram (graph TD) of the definition. With --key, the entity's current state is highlighted.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, _ := cmd.Flags().GetString("key")
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			def, err := app.Module.Definition(ctx, args[0])
			if err != nil {
				return err
			}
			var overlay *graph.Overlay
			if key != "" {
				state, _, err := app.Module.State(ctx, args[0], key)
				if err != nil {
					return err
				}
				overlay = &graph.Overlay{CurrentState: state}
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(def, overlay))
			return nil
		})
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List prefix bindings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("output")
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			bindings, err := app.Module.List(ctx)
			if err != nil {
				return err
			}
			return cli.WriteBindings(cmd.OutOrStdout(), bindings, format)
		})
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <fsm>",
	Short: "Delete a definition and its prefix binding",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			if err := app.Module.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		})
	},
}

var loadCmd = &cobra.Command{
	Use:   "load [dir]",
	Short: "Create every definition document found in a directory",
	Long: `Reads markdown front matter, JSON and YAML documents from dir (default ".")
and creates one definition per document. With --watch, documents are reloaded
as they change until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		watch, _ := cmd.Flags().GetBool("watch")
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			sigCtx := cli.NewSignalContext(ctx)
			defer sigCtx.Cancel()
			return cli.RunLoad(sigCtx, app, dir, watch, cmd.OutOrStdout())
		})
	},
}

func readPayload(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	return data, nil
}

func init() {
	rootCmd.AddCommand(createCmd, infoCmd, graphCmd, lsCmd, rmCmd, loadCmd)

	infoCmd.Flags().StringP("output", "o", "", "Output format: json, yaml, pretty or mermaid")
	lsCmd.Flags().StringP("output", "o", "", "Output format: json or text")
	graphCmd.Flags().String("key", "", "Entity whose current state is highlighted")
	loadCmd.Flags().BoolP("watch", "w", false, "Reload documents as they change")
}
