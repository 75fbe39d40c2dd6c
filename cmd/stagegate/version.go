package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/stagegate"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of stagegate",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "stagegate version %s\n", strings.TrimSpace(stagegate.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
