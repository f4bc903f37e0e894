package main

import (
	"context"
	"fmt"
	"os"

	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	redisadapter "github.com/aretw0/stanza/pkg/adapters/redis"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List sessions stored in Redis",
	Run: func(cmd *cobra.Command, args []string) {
		opts := optionsFromFlags(cmd)
		if opts.RedisURL == "" {
			fmt.Println("Error: --redis is required; in-memory sessions live only inside a running server.")
			os.Exit(1)
		}

		redisOpts, err := backend.ParseURL(opts.RedisURL)
		if err != nil {
			fmt.Printf("Error: invalid redis URL: %v\n", err)
			os.Exit(1)
		}
		client := backend.NewClient(redisOpts)
		defer client.Close()

		ids, err := redisadapter.Sessions(context.Background(), client, "")
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if len(ids) == 0 {
			fmt.Println("No sessions found.")
			return
		}
		for _, id := range ids {
			fmt.Println(id)
		}
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}
