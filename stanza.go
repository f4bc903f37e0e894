package stanza

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/stanza/internal/logging"
	"github.com/aretw0/stanza/pkg/adapters/memory"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/loop"
	"github.com/aretw0/stanza/pkg/ports"
	"github.com/aretw0/stanza/pkg/registry"
	"github.com/aretw0/stanza/pkg/sandbox"
)

// Option configures an Agent.
type Option func(*config)

type config struct {
	store       ports.StateStore
	summarizer  ports.Summarizer
	logger      *slog.Logger
	caps        []registry.Capability
	seed        map[string]any
	memories    []string
	hooks       []domain.LifecycleHooks
	maxAttempts int
	maxTurns    int
	onToken     func(string)
}

// WithStore sets the state store (default: fresh in-memory store).
func WithStore(store ports.StateStore) Option {
	return func(c *config) {
		c.store = store
	}
}

// WithCapabilities registers capabilities on the agent's registry.
func WithCapabilities(caps ...registry.Capability) Option {
	return func(c *config) {
		c.caps = append(c.caps, caps...)
	}
}

// WithSeedState injects initial state entries before the first turn.
// They are recorded with a system initialization source.
func WithSeedState(seed map[string]any) Option {
	return func(c *config) {
		if c.seed == nil {
			c.seed = make(map[string]any, len(seed))
		}
		for k, v := range seed {
			c.seed[k] = v
		}
	}
}

// WithSummarizer backs the summarize_state capability with an external
// summarizer (typically the generator itself).
func WithSummarizer(s ports.Summarizer) Option {
	return func(c *config) {
		c.summarizer = s
	}
}

// WithMemories appends standing memory lines to every prompt.
func WithMemories(memories ...string) Option {
	return func(c *config) {
		c.memories = append(c.memories, memories...)
	}
}

// WithHooks attaches lifecycle hooks to the sandbox and the loop.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(c *config) {
		c.hooks = append(c.hooks, hooks)
	}
}

// WithMaxAttempts sets the per-turn correction budget (default 3).
func WithMaxAttempts(n int) Option {
	return func(c *config) {
		c.maxAttempts = n
	}
}

// WithMaxTurns caps Converse (default 8).
func WithMaxTurns(n int) Option {
	return func(c *config) {
		c.maxTurns = n
	}
}

// WithOnToken streams validated script tokens to fn as they arrive.
func WithOnToken(fn func(token string)) Option {
	return func(c *config) {
		c.onToken = fn
	}
}

// WithLogger sets a structured logger (default: no-op).
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Agent is the assembled engine for one session: registry, store,
// sandbox and correction loop behind a two-method surface.
type Agent struct {
	registry *registry.Registry
	store    ports.StateStore
	engine   *loop.Engine
	logger   *slog.Logger
}

// New assembles an agent around a script generator.
func New(gen ports.Generator, opts ...Option) (*Agent, error) {
	cfg := &config{
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.store == nil {
		cfg.store = memory.NewStore()
	}

	reg := registry.New()
	for _, c := range cfg.caps {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register capability: %w", err)
		}
	}
	if err := sandbox.RegisterStatePrimitives(reg, cfg.store, cfg.summarizer); err != nil {
		return nil, err
	}

	if len(cfg.seed) > 0 {
		if err := seedState(cfg.store, cfg.seed); err != nil {
			return nil, err
		}
	}

	sandboxOpts := []sandbox.Option{sandbox.WithLogger(cfg.logger)}
	for _, h := range cfg.hooks {
		sandboxOpts = append(sandboxOpts, sandbox.WithHooks(h))
	}
	sb := sandbox.New(reg, cfg.store, sandboxOpts...)

	loopOpts := []loop.Option{loop.WithLogger(cfg.logger)}
	for _, h := range cfg.hooks {
		loopOpts = append(loopOpts, loop.WithHooks(h))
	}
	if cfg.maxAttempts > 0 {
		loopOpts = append(loopOpts, loop.WithMaxAttempts(cfg.maxAttempts))
	}
	if cfg.maxTurns > 0 {
		loopOpts = append(loopOpts, loop.WithMaxTurns(cfg.maxTurns))
	}
	if cfg.onToken != nil {
		loopOpts = append(loopOpts, loop.WithOnToken(cfg.onToken))
	}
	if len(cfg.memories) > 0 {
		loopOpts = append(loopOpts, loop.WithMemories(cfg.memories...))
	}

	return &Agent{
		registry: reg,
		store:    cfg.store,
		engine:   loop.New(gen, reg, cfg.store, sb, loopOpts...),
		logger:   cfg.logger,
	}, nil
}

// seedState writes initial entries under the system initialization
// source so they are distinguishable from capability results.
func seedState(store ports.StateStore, seed map[string]any) error {
	ctx := context.Background()
	for key, value := range seed {
		entry := &domain.StateEntry{
			Result: value,
			Metadata: domain.Metadata{
				Timestamp: time.Now().UTC(),
				TurnID:    uuid.NewString(),
				Source:    domain.SourceSystemInit,
			},
		}
		if err := store.Put(ctx, key, entry); err != nil {
			return fmt.Errorf("failed to seed state key %q: %w", key, err)
		}
	}
	return nil
}

// RunTurn handles one user input through the correction loop.
func (a *Agent) RunTurn(ctx context.Context, input string) (*loop.TurnResult, error) {
	return a.engine.RunTurn(ctx, input)
}

// Converse runs turns until the agent responds or the turn budget runs
// out, letting continue_turn chains build on intermediate state.
func (a *Agent) Converse(ctx context.Context, input string) (*loop.TurnResult, error) {
	return a.engine.Converse(ctx, input)
}

// State snapshots the agent's state store.
func (a *Agent) State(ctx context.Context) (map[string]*domain.StateEntry, error) {
	return a.store.Snapshot(ctx)
}

// Registry exposes the capability registry.
func (a *Agent) Registry() *registry.Registry {
	return a.registry
}

// Store exposes the state store.
func (a *Agent) Store() ports.StateStore {
	return a.store
}
