package ports

import (
	"context"

	"github.com/aretw0/stanza/pkg/domain"
)

// Summarizer condenses the current store contents into free text.
// The summarize_state capability delegates to this collaborator
// (typically a cheap LLM call).
type Summarizer interface {
	Summarize(ctx context.Context, state map[string]*domain.StateEntry) (string, error)
}
