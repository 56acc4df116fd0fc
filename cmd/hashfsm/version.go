package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/hashfsm"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of hashfsm",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "hashfsm version %s\n", strings.TrimSpace(hashfsm.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
