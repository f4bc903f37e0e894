package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/aretw0/stanza"
	"github.com/aretw0/stanza/internal/presentation/tui"
	"github.com/aretw0/stanza/pkg/domain"
)

// RunChat starts the interactive chat REPL.
func RunChat(opts Options) error {
	logger := createLogger(opts.Debug)
	interactive := term.IsTerminal(int(os.Stdin.Fd()))

	if interactive {
		tui.PrintBanner(stanza.Version)
	}

	var extra []stanza.Option
	if opts.Debug {
		// Show the script as it streams, so rejections are explainable.
		extra = append(extra, stanza.WithOnToken(func(tok string) {
			fmt.Fprint(os.Stderr, tok)
		}))
	}

	agent, err := BuildAgent(opts, logger, extra...)
	if err != nil {
		return fmt.Errorf("error initializing stanza: %w", err)
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	render := tui.NewRenderer()
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if interactive {
			fmt.Print("> ")
		}
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" || input == "/exit" {
			break
		}
		if input == "/state" {
			if err := printState(sigCtx, agent); err != nil {
				printSystemMessage("Failed to read state: %v", err)
			}
			continue
		}

		result, err := agent.Converse(sigCtx, input)
		if err != nil {
			if sigCtx.Err() != nil {
				break
			}
			if errors.Is(err, domain.ErrTurnAborted) && result != nil {
				printSystemMessage("Turn aborted after %d attempts.", result.Attempts)
				for _, f := range result.Failures {
					printSystemMessage("  [%s] %s", f.Stage, f.Reason)
				}
				continue
			}
			printSystemMessage("Turn failed: %v", err)
			continue
		}

		if interactive {
			if out, rerr := render(result.Message); rerr == nil {
				fmt.Print(out)
			} else {
				fmt.Println(result.Message)
			}
		} else {
			fmt.Println(result.Message)
		}
	}

	if err := scanner.Err(); err != nil && sigCtx.Err() == nil {
		return fmt.Errorf("input error: %w", err)
	}
	if interactive {
		fmt.Println()
		printSystemMessage("Bye.")
	}
	return nil
}

func printState(ctx context.Context, agent *stanza.Agent) error {
	state, err := agent.State(ctx)
	if err != nil {
		return err
	}
	if len(state) == 0 {
		printSystemMessage("State store is empty.")
		return nil
	}
	for key, entry := range state {
		printSystemMessage("%s = %v (turn %s)", key, entry.Result, entry.Metadata.TurnID)
	}
	return nil
}
