package stanza_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stanza"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/loop"
	"github.com/aretw0/stanza/pkg/ports"
	"github.com/aretw0/stanza/pkg/registry"
)

// cannedGenerator emits one fixed script per Generate call.
type cannedGenerator struct {
	scripts []string
	calls   int
}

func (g *cannedGenerator) Generate(ctx context.Context, req ports.Request) (ports.TokenStream, error) {
	i := g.calls
	if i >= len(g.scripts) {
		i = len(g.scripts) - 1
	}
	g.calls++
	return &oneShot{text: g.scripts[i]}, nil
}

type oneShot struct {
	text string
	done bool
}

func (s *oneShot) Next(ctx context.Context) (string, error) {
	if s.done {
		return "", io.EOF
	}
	s.done = true
	return s.text, nil
}

func TestAgent_Integration(t *testing.T) {
	ctx := context.Background()

	gen := &cannedGenerator{scripts: []string{
		"lookup_weather(\"Lisbon\")\ncontinue_turn()",
		`respond(summarize_state())`,
	}}

	agent, err := stanza.New(gen,
		stanza.WithCapabilities(registry.Capability{
			Name:        "lookup_weather",
			Description: "Returns the current weather for a city.",
			Params:      []registry.Param{{Name: "city", Required: true}},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return map[string]any{"city": args["city"], "temp_c": 21}, nil
			},
		}),
		stanza.WithSeedState(map[string]any{"locale": "pt-PT"}),
	)
	require.NoError(t, err)

	result, err := agent.Converse(ctx, "what's the weather in Lisbon?")
	require.NoError(t, err)
	assert.Equal(t, loop.OutcomeResponded, result.Outcome)
	assert.NotEmpty(t, result.Message)

	state, err := agent.State(ctx)
	require.NoError(t, err)
	require.Contains(t, state, "lookup_weather")
	require.Contains(t, state, "locale")
	assert.Equal(t, domain.SourceSystemInit, state["locale"].Metadata.Source)
	assert.NotEqual(t, domain.SourceSystemInit, state["lookup_weather"].Metadata.Source)
}

func TestAgent_CorrectionLoopAborts(t *testing.T) {
	gen := &cannedGenerator{scripts: []string{`wipe_disk("/")`}}

	agent, err := stanza.New(gen, stanza.WithMaxAttempts(2))
	require.NoError(t, err)

	result, err := agent.RunTurn(context.Background(), "clean up")
	require.ErrorIs(t, err, domain.ErrTurnAborted)
	require.NotNil(t, result)
	assert.Equal(t, loop.OutcomeAborted, result.Outcome)
	assert.Len(t, result.Failures, 2)
}

func TestAgent_RejectsDuplicateCapability(t *testing.T) {
	handler := func(ctx context.Context, args map[string]any) (any, error) { return nil, nil }

	_, err := stanza.New(&cannedGenerator{scripts: []string{`respond("x")`}},
		stanza.WithCapabilities(
			registry.Capability{Name: "twice", Handler: handler},
			registry.Capability{Name: "twice", Handler: handler},
		),
	)
	assert.Error(t, err)
}
