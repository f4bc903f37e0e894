package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/stanza"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of stanza",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stanza version %s\n", strings.TrimSpace(stanza.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
