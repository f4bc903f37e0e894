package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/ports"
	"github.com/aretw0/stanza/pkg/registry"
	"github.com/aretw0/stanza/pkg/schema"
)

// RegisterStatePrimitives adds the state introspection capabilities to
// reg, bound to the session store. They are ordinary capabilities from
// the sandbox's point of view: their results are recorded like any
// other tool result.
//
// If summarizer is nil, summarize_state falls back to a plain textual
// rendering of the store contents.
func RegisterStatePrimitives(reg *registry.Registry, store ports.StateStore, summarizer ports.Summarizer) error {
	err := reg.Register(registry.Capability{
		Name:        "delete_state_key",
		Description: "Removes a top-level key from the state store. Returns true if the key existed.",
		Params: []registry.Param{
			{Name: "key", Description: "The state key to remove", Required: true},
		},
		Schema: schema.Schema{"key": schema.String()},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			key, ok := args["key"].(string)
			if !ok {
				return nil, fmt.Errorf("argument \"key\" must be a string")
			}
			return store.Delete(ctx, key)
		},
	})
	if err != nil {
		return err
	}

	return reg.Register(registry.Capability{
		Name:        "summarize_state",
		Description: "Produces a concise natural-language summary of the current state store.",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			snapshot, err := store.Snapshot(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to snapshot state: %w", err)
			}
			if summarizer != nil {
				return summarizer.Summarize(ctx, snapshot)
			}
			return renderState(snapshot), nil
		},
	})
}

// renderState is the summarizer fallback: a deterministic listing of
// keys and JSON-encoded results.
func renderState(state map[string]*domain.StateEntry) string {
	if len(state) == 0 {
		return "The state store is currently empty."
	}

	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("The state store holds %d entries:\n", len(state)))
	for _, k := range keys {
		encoded, err := json.Marshal(state[k].Result)
		if err != nil {
			encoded = []byte(fmt.Sprintf("%v", state[k].Result))
		}
		sb.WriteString(fmt.Sprintf("- %s: %s\n", k, truncate(string(encoded), 200)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
