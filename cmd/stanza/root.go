package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/stanza/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "stanza",
	Short: "Stanza runs agents that act through validated Action Scripts",
	Long: `Stanza turns a language model into an agent with a narrow contract:
each turn the model emits a short script of capability calls, which is
validated while it streams, executed in a sandbox against session state,
and regenerated with feedback when rejected.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	pf := rootCmd.PersistentFlags()
	pf.String("api-key", "", "API key for the generator endpoint (or OPENAI_API_KEY)")
	pf.String("base-url", "", "OpenAI-compatible endpoint base URL")
	pf.String("model", "", "Model name for script generation")
	pf.String("session", "", "Session ID (enables persistent state with --redis)")
	pf.String("redis", "", "Redis URL for durable state (e.g. redis://localhost:6379/0)")
	pf.String("tools", "tools.yaml", "Path to the external tools config")
	pf.String("workspace", "", "Directory exposed through the file capabilities")
	pf.String("state", "", "Initial state entries as a JSON object")
	pf.StringArray("memory", nil, "Standing memory line included in every prompt (repeatable)")
	pf.Int("max-attempts", 0, "Correction attempts per turn (default 3)")
	pf.Int("max-turns", 0, "continue_turn chains per conversation (default 8)")
	pf.Bool("debug", false, "Enable debug logging and script echo")
}

// optionsFromFlags collects the shared cli.Options from the command.
func optionsFromFlags(cmd *cobra.Command) cli.Options {
	get := cmd.Flags()

	apiKey, _ := get.GetString("api-key")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	baseURL, _ := get.GetString("base-url")
	model, _ := get.GetString("model")
	sessionID, _ := get.GetString("session")
	redisURL, _ := get.GetString("redis")
	toolsPath, _ := get.GetString("tools")
	workspace, _ := get.GetString("workspace")
	state, _ := get.GetString("state")
	memories, _ := get.GetStringArray("memory")
	maxAttempts, _ := get.GetInt("max-attempts")
	maxTurns, _ := get.GetInt("max-turns")
	debug, _ := get.GetBool("debug")

	// Smart default: an unset tools path only counts if the file exists.
	if !get.Changed("tools") {
		if _, err := os.Stat(toolsPath); err != nil {
			toolsPath = ""
		}
	}

	return cli.Options{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Model:       model,
		SessionID:   sessionID,
		RedisURL:    redisURL,
		ToolsPath:   toolsPath,
		Workspace:   workspace,
		State:       state,
		Memories:    memories,
		MaxAttempts: maxAttempts,
		MaxTurns:    maxTurns,
		Debug:       debug,
	}
}
