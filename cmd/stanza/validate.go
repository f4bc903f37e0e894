package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/stanza/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate [script]",
	Short: "Validate an Action Script without executing it",
	Long:  `Checks a script file (or stdin with "-") against the dialect rules and the configured capability set.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := cli.RunValidate(optionsFromFlags(cmd), args[0]); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
