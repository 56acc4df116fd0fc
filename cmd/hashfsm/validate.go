package main

import (
	"fmt"

	"github.com/aretw0/hashfsm/internal/validator"
	"github.com/aretw0/hashfsm/pkg/adapters/loam"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check the definition documents of a directory",
	Long: `Parses every definition document under dir (default ".") without touching a
backend. Reports invalid documents, duplicate names or prefixes across
documents, and states unreachable from the initial state.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}

		loader, err := loam.Open(dir)
		if err != nil {
			return err
		}
		if err := validator.ValidateDefinitions(cmd.Context(), loader); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Definitions are valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
