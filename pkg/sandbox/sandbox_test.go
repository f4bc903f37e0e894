package sandbox_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stanza/pkg/adapters/memory"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/registry"
	"github.com/aretw0/stanza/pkg/sandbox"
	"github.com/aretw0/stanza/pkg/schema"
	"github.com/aretw0/stanza/pkg/script"
)

func parse(t *testing.T, src string) *script.Program {
	t.Helper()
	prog, err := script.NewParser().Parse(src)
	require.NoError(t, err)
	return prog
}

func newIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("turn-%d", n)
	}
}

func TestExecute_CommitsResultsInOrder(t *testing.T) {
	reg := registry.New()
	var calls []string
	reg.MustRegister(registry.Capability{
		Name: "fetch",
		Params: []registry.Param{
			{Name: "url", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			calls = append(calls, "fetch")
			return map[string]any{"body": "data"}, nil
		},
	})
	reg.MustRegister(registry.Capability{
		Name: "count",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			calls = append(calls, "count")
			return int64(7), nil
		},
	})

	store := memory.NewStore()
	sb := sandbox.New(reg, store, sandbox.WithTurnIDs(newIDs()))

	sig, err := sb.Execute(context.Background(), parse(t, "fetch(\"http://x\")\ncount()\nrespond(\"done\")"))
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, domain.SignalRespond, sig.Kind)
	assert.Equal(t, "done", sig.Message)
	assert.Equal(t, []string{"fetch", "count"}, calls)

	// Results land under the capability name, with distinct turn IDs.
	fetch, err := store.Get(context.Background(), "fetch")
	require.NoError(t, err)
	count, err := store.Get(context.Background(), "count")
	require.NoError(t, err)
	assert.EqualValues(t, 7, count.Result)
	assert.NotEqual(t, fetch.Metadata.TurnID, count.Metadata.TurnID)
	assert.False(t, fetch.Metadata.Timestamp.IsZero())
}

func TestExecute_RespondStopsRemainingStatements(t *testing.T) {
	reg := registry.New()
	invoked := false
	reg.MustRegister(registry.Capability{
		Name: "late",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			invoked = true
			return "x", nil
		},
	})

	sb := sandbox.New(reg, memory.NewStore())
	sig, err := sb.Execute(context.Background(), parse(t, "respond(\"early\")\nlate()"))
	require.NoError(t, err)
	assert.Equal(t, domain.SignalRespond, sig.Kind)
	assert.False(t, invoked, "statements after respond must not run")
}

func TestExecute_ReflectHasNoStateEffect(t *testing.T) {
	store := memory.NewStore()
	sb := sandbox.New(registry.New(), store)

	sig, err := sb.Execute(context.Background(), parse(t, "reflect(\"thinking out loud\")\ncontinue_turn()"))
	require.NoError(t, err)
	assert.Equal(t, domain.SignalContinue, sig.Kind)

	keys, err := store.Keys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestExecute_MissingSignalIsAnError(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(registry.Capability{
		Name: "fetch",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return "data", nil
		},
	})
	store := memory.NewStore()
	sb := sandbox.New(reg, store)

	sig, err := sb.Execute(context.Background(), parse(t, "fetch()"))
	assert.Nil(t, sig)

	var xerr *domain.ExecutionError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, domain.ExecutionMissingSignal, xerr.Kind)

	// The capability ran before the error: its effect stays committed.
	_, gerr := store.Get(context.Background(), "fetch")
	assert.NoError(t, gerr)
}

func TestExecute_CapabilityFailureKeepsEarlierEffects(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(registry.Capability{
		Name: "ok",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return "fine", nil
		},
	})
	reg.MustRegister(registry.Capability{
		Name: "boom",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, errors.New("backend unavailable")
		},
	})
	store := memory.NewStore()
	sb := sandbox.New(reg, store)

	sig, err := sb.Execute(context.Background(), parse(t, "ok()\nboom()\nrespond(\"never\")"))
	assert.Nil(t, sig)

	var xerr *domain.ExecutionError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, domain.ExecutionCapabilityFailure, xerr.Kind)
	assert.Contains(t, xerr.Reason, "boom")

	_, gerr := store.Get(context.Background(), "ok")
	assert.NoError(t, gerr, "effects before the failure are not rolled back")
}

func TestExecute_NestedCallResultFeedsArgument(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(registry.Capability{
		Name: "lookup",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return "alpha", nil
		},
	})
	var got any
	reg.MustRegister(registry.Capability{
		Name: "use",
		Params: []registry.Param{
			{Name: "value", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			got = args["value"]
			return nil, nil
		},
	})

	sb := sandbox.New(reg, memory.NewStore())
	_, err := sb.Execute(context.Background(), parse(t, "use(lookup())\ncontinue_turn()"))
	require.NoError(t, err)
	assert.Equal(t, "alpha", got)
}

func TestExecute_PositionalArgsMapToDeclaredOrder(t *testing.T) {
	reg := registry.New()
	var got map[string]any
	reg.MustRegister(registry.Capability{
		Name: "pair",
		Params: []registry.Param{
			{Name: "first", Required: true},
			{Name: "second"},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			got = args
			return nil, nil
		},
	})

	sb := sandbox.New(reg, memory.NewStore())
	_, err := sb.Execute(context.Background(), parse(t, "pair(\"a\", second=\"b\")\ncontinue_turn()"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"first": "a", "second": "b"}, got)
}

func TestExecute_SchemaRejectsWrongType(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(registry.Capability{
		Name: "typed",
		Params: []registry.Param{
			{Name: "count", Required: true},
		},
		Schema: schema.Schema{"count": schema.Int()},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return "unreachable", nil
		},
	})

	sb := sandbox.New(reg, memory.NewStore())
	_, err := sb.Execute(context.Background(), parse(t, "typed(\"not a number\")\nrespond(\"x\")"))

	var xerr *domain.ExecutionError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, domain.ExecutionCapabilityFailure, xerr.Kind)
	assert.Contains(t, xerr.Reason, "count")
}

func TestExecute_NilResultIsNotCommitted(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(registry.Capability{
		Name: "silent",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, nil
		},
	})
	store := memory.NewStore()
	sb := sandbox.New(reg, store)

	_, err := sb.Execute(context.Background(), parse(t, "silent()\ncontinue_turn()"))
	require.NoError(t, err)

	_, gerr := store.Get(context.Background(), "silent")
	assert.ErrorIs(t, gerr, domain.ErrKeyNotFound)
}

func TestExecute_HooksObserveCapabilityLifecycle(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(registry.Capability{
		Name: "fetch",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return "data", nil
		},
	})

	var events []string
	hooks := domain.LifecycleHooks{
		OnCapabilityCall: func(ctx context.Context, ev *domain.CapabilityEvent) {
			events = append(events, "call:"+ev.Name)
		},
		OnCapabilityReturn: func(ctx context.Context, ev *domain.CapabilityEvent) {
			events = append(events, "return:"+ev.Name)
		},
		OnSignal: func(ctx context.Context, sig *domain.Signal) {
			events = append(events, "signal:"+string(sig.Kind))
		},
	}

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sb := sandbox.New(reg, memory.NewStore(),
		sandbox.WithHooks(hooks),
		sandbox.WithClock(func() time.Time { return clock }),
	)

	_, err := sb.Execute(context.Background(), parse(t, "fetch()\nrespond(\"done\")"))
	require.NoError(t, err)
	assert.Equal(t, []string{"call:fetch", "return:fetch", "signal:respond"}, events)
}

func TestStatePrimitives_DeleteAndSummarize(t *testing.T) {
	reg := registry.New()
	store := memory.NewStore()
	require.NoError(t, sandbox.RegisterStatePrimitives(reg, store, nil))

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "notes", &domain.StateEntry{Result: "remember this"}))

	sb := sandbox.New(reg, store)

	// delete_state_key returns true for a present key and records it.
	_, err := sb.Execute(ctx, parse(t, "delete_state_key(\"notes\")\ncontinue_turn()"))
	require.NoError(t, err)

	deleted, err := store.Get(ctx, "delete_state_key")
	require.NoError(t, err)
	assert.Equal(t, true, deleted.Result)

	_, err = store.Get(ctx, "notes")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	// summarize_state without a summarizer falls back to a listing.
	_, err = sb.Execute(ctx, parse(t, "summarize_state()\ncontinue_turn()"))
	require.NoError(t, err)

	summary, err := store.Get(ctx, "summarize_state")
	require.NoError(t, err)
	assert.Contains(t, summary.Result.(string), "delete_state_key")
}
