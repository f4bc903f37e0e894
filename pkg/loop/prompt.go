package loop

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/ports"
	"github.com/aretw0/stanza/pkg/registry"
)

// PromptBuilder assembles the generation request for one attempt: the
// standing instructions, the current state snapshot, the capability
// signatures, and any correction feedback accumulated this turn.
type PromptBuilder struct {
	registry *registry.Registry
	store    ports.StateStore
	memories []string
}

// NewPromptBuilder creates a builder bound to the session's registry
// and store.
func NewPromptBuilder(reg *registry.Registry, store ports.StateStore) *PromptBuilder {
	return &PromptBuilder{
		registry: reg,
		store:    store,
	}
}

// AddMemory appends a standing memory line included in every prompt.
func (b *PromptBuilder) AddMemory(memory string) {
	b.memories = append(b.memories, memory)
}

// Build produces the request for one attempt. feedback holds the
// rejection reasons of the earlier attempts this turn, oldest first.
func (b *PromptBuilder) Build(ctx context.Context, userInput string, feedback []string) (ports.Request, error) {
	snapshot, err := b.store.Snapshot(ctx)
	if err != nil {
		return ports.Request{}, fmt.Errorf("failed to snapshot state for prompt: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(systemInstructions)

	sb.WriteString("\n\n## Current State\n")
	sb.WriteString(renderStateJSON(snapshot))

	sb.WriteString("\n\n## Available Capabilities\n")
	sb.WriteString(b.registry.Signatures())
	sb.WriteString("\n")
	sb.WriteString(primitiveSignatures)

	if len(b.memories) > 0 {
		sb.WriteString("\n\n## Memories\n")
		for _, m := range b.memories {
			sb.WriteString("- ")
			sb.WriteString(m)
			sb.WriteString("\n")
		}
	}

	messages := []ports.Message{
		{Role: ports.RoleSystem, Content: sb.String()},
		{Role: ports.RoleUser, Content: userInput},
	}
	for _, f := range feedback {
		messages = append(messages, ports.Message{
			Role:    ports.RoleSystem,
			Content: "Your previous script was rejected. Correct it and emit a new script.\n" + f,
		})
	}
	return ports.Request{Messages: messages}, nil
}

// renderStateJSON pretty-prints the snapshot so the generator can read
// keys and results. Encoding failures degrade to %v, never to an error:
// a prompt is always produced.
func renderStateJSON(state map[string]*domain.StateEntry) string {
	if len(state) == 0 {
		return "{}"
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", state)
	}
	return string(data)
}

const systemInstructions = `You are an agent that acts exclusively by emitting an Action Script.

An Action Script is a short sequence of capability calls, one per line.
Arguments are literals (strings, numbers, booleans, None, lists, maps)
or nested capability calls. Lines starting with # are comments.

Rules:
- Call only the capabilities listed below. Nothing else exists.
- Do not import modules, open files, or evaluate code. Such scripts are rejected.
- Every script must end by calling respond(message) to answer the user,
  or continue_turn() to take another turn after your capability results land in state.
- Capability results are stored under the capability's name in the state shown below,
  and are visible to you on your next turn.
- Emit only the script. No prose, no code fences.`

const primitiveSignatures = `respond(message)
    Ends the turn with a final message for the user.
continue_turn()
    Ends the script; the agent takes another turn with updated state.
reflect(analysis)
    Records free-form reasoning in the log. No state effect.`
