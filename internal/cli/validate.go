package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/stanza/pkg/sandbox"
	"github.com/aretw0/stanza/pkg/validator"
)

// RunValidate checks a script file (or stdin when path is "-") against
// the configured capability set, without executing anything.
func RunValidate(opts Options, path string) error {
	logger := createLogger(opts.Debug)

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	caps, err := buildCapabilities(opts, logger)
	if err != nil {
		return err
	}
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = c.Name
	}
	// The state primitives are registered by the agent at runtime, so
	// they are part of the vocabulary here too.
	names = append(names, "delete_state_key", "summarize_state")

	allow := validator.NewAllowSet(names, sandbox.ControlPrimitives())
	v := validator.New(allow, validator.WithLogger(logger))

	stream := v.Validate(&singleChunk{text: string(data)})
	for {
		_, nerr := stream.Next(context.Background())
		if nerr == io.EOF {
			break
		}
		if nerr != nil {
			return fmt.Errorf("script rejected: %w", nerr)
		}
	}

	printSystemMessage("Script is valid (%d statements).", len(v.Program().Statements))
	return nil
}

// singleChunk exposes a string as a one-token stream.
type singleChunk struct {
	text string
	done bool
}

func (s *singleChunk) Next(ctx context.Context) (string, error) {
	if s.done {
		return "", io.EOF
	}
	s.done = true
	return s.text, nil
}
