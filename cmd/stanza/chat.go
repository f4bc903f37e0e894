package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/stanza/internal/cli"
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the agent interactively",
	Long:  `Starts an interactive session. Each of your messages becomes a turn; the agent answers by running Action Scripts against its state.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := cli.RunChat(optionsFromFlags(cmd)); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	// Make 'chat' the default if no command is provided.
	rootCmd.Run = chatCmd.Run
}
