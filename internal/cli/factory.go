package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/stanza"
	"github.com/aretw0/stanza/pkg/adapters/memory"
	"github.com/aretw0/stanza/pkg/adapters/openai"
	redisadapter "github.com/aretw0/stanza/pkg/adapters/redis"
	"github.com/aretw0/stanza/pkg/observability"
	"github.com/aretw0/stanza/pkg/ports"
	"github.com/aretw0/stanza/pkg/registry"
	"github.com/aretw0/stanza/pkg/session"
	"github.com/aretw0/stanza/pkg/tools"
)

// Options contains the shared configuration of the stanza commands.
type Options struct {
	// Generator
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32

	// Session and persistence
	SessionID string
	RedisURL  string

	// Capabilities
	ToolsPath string
	Workspace string

	// Behavior
	MaxAttempts int
	MaxTurns    int
	State       string // Raw JSON seed state
	Memories    []string
	Debug       bool
	Metrics     bool
}

// buildGenerator creates the OpenAI-compatible generator.
func buildGenerator(opts Options) *openai.Generator {
	genOpts := []openai.Option{}
	if opts.BaseURL != "" {
		genOpts = append(genOpts, openai.WithBaseURL(opts.BaseURL))
	}
	if opts.Model != "" {
		genOpts = append(genOpts, openai.WithModel(opts.Model))
	}
	if opts.Temperature > 0 {
		genOpts = append(genOpts, openai.WithTemperature(opts.Temperature))
	}
	return openai.New(opts.APIKey, genOpts...)
}

// buildCapabilities loads the file tools and any configured process
// tools into a capability list.
func buildCapabilities(opts Options, logger *slog.Logger) ([]registry.Capability, error) {
	reg := registry.New()

	if opts.Workspace != "" {
		ft, err := tools.NewFileTools(opts.Workspace)
		if err != nil {
			return nil, err
		}
		if err := ft.Register(reg); err != nil {
			return nil, err
		}
	}

	if opts.ToolsPath != "" {
		configs, err := tools.LoadProcessConfigs(opts.ToolsPath)
		if err != nil {
			logger.Warn("Failed to load tools config", "path", opts.ToolsPath, "err", err)
		} else if len(configs) > 0 {
			runner := tools.NewProcessRunner(tools.WithBaseDir(opts.Workspace))
			if err := runner.Register(reg, configs); err != nil {
				return nil, err
			}
		}
	}

	caps := make([]registry.Capability, 0)
	for _, name := range reg.Names() {
		c, _ := reg.Lookup(name)
		caps = append(caps, c)
	}
	return caps, nil
}

// buildStoreFactory returns the per-session store factory plus the
// distributed locker when Redis is configured.
func buildStoreFactory(opts Options) (session.StoreFactory, ports.DistributedLocker, error) {
	if opts.RedisURL == "" {
		return func(string) ports.StateStore {
			return memory.NewStore()
		}, nil, nil
	}

	redisOpts, err := backend.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := backend.NewClient(redisOpts)

	factory := func(sessionID string) ports.StateStore {
		return redisadapter.NewFromClient(client, sessionID)
	}
	return factory, redisadapter.NewLocker(client, ""), nil
}

// parseSeedState decodes the --state JSON payload.
func parseSeedState(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var seed map[string]any
	if err := json.Unmarshal([]byte(raw), &seed); err != nil {
		return nil, fmt.Errorf("error parsing --state JSON: %w", err)
	}
	return seed, nil
}

// buildAgentOptions assembles the common stanza options from flags.
func buildAgentOptions(opts Options, logger *slog.Logger, store ports.StateStore, summarizer ports.Summarizer) ([]stanza.Option, error) {
	caps, err := buildCapabilities(opts, logger)
	if err != nil {
		return nil, err
	}
	seed, err := parseSeedState(opts.State)
	if err != nil {
		return nil, err
	}

	agentOpts := []stanza.Option{
		stanza.WithStore(store),
		stanza.WithCapabilities(caps...),
		stanza.WithLogger(logger),
	}
	if summarizer != nil {
		agentOpts = append(agentOpts, stanza.WithSummarizer(summarizer))
	}
	if seed != nil {
		agentOpts = append(agentOpts, stanza.WithSeedState(seed))
	}
	if len(opts.Memories) > 0 {
		agentOpts = append(agentOpts, stanza.WithMemories(opts.Memories...))
	}
	if opts.MaxAttempts > 0 {
		agentOpts = append(agentOpts, stanza.WithMaxAttempts(opts.MaxAttempts))
	}
	if opts.MaxTurns > 0 {
		agentOpts = append(agentOpts, stanza.WithMaxTurns(opts.MaxTurns))
	}
	if opts.Debug {
		agentOpts = append(agentOpts, stanza.WithHooks(createDebugHooks(logger)))
	}
	return agentOpts, nil
}

// BuildAgent assembles a single-session agent for the chat and run
// commands.
func BuildAgent(opts Options, logger *slog.Logger, extra ...stanza.Option) (*stanza.Agent, error) {
	newStore, locker, err := buildStoreFactory(opts)
	if err != nil {
		return nil, err
	}
	_ = locker // Single-process chat needs no distributed locking.

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = "default"
	}

	gen := buildGenerator(opts)
	agentOpts, err := buildAgentOptions(opts, logger, newStore(sessionID), gen)
	if err != nil {
		return nil, err
	}
	agentOpts = append(agentOpts, extra...)

	return stanza.New(gen, agentOpts...)
}

// BuildHost assembles the multi-session host for the serve and mcp
// commands. The returned metrics are nil unless opts.Metrics is set.
func BuildHost(opts Options, logger *slog.Logger) (*session.Host, *observability.Metrics, error) {
	newStore, locker, err := buildStoreFactory(opts)
	if err != nil {
		return nil, nil, err
	}

	managerOpts := []session.Option{session.WithLogger(logger)}
	if locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(locker))
	}
	manager := session.NewManager(newStore, managerOpts...)

	var metrics *observability.Metrics
	if opts.Metrics {
		metrics = observability.NewMetrics(nil)
	}

	gen := buildGenerator(opts)
	host := session.NewHost(manager, func(sessionID string, store ports.StateStore) (session.Agent, error) {
		agentOpts, err := buildAgentOptions(opts, logger, store, gen)
		if err != nil {
			return nil, err
		}
		if metrics != nil {
			agentOpts = append(agentOpts, stanza.WithHooks(metrics.Hooks()))
		}
		return stanza.New(gen, agentOpts...)
	})
	return host, metrics, nil
}
