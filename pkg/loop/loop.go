package loop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/stanza/internal/logging"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/ports"
	"github.com/aretw0/stanza/pkg/registry"
	"github.com/aretw0/stanza/pkg/sandbox"
	"github.com/aretw0/stanza/pkg/validator"
)

// Defaults for the attempt and turn budgets.
const (
	DefaultMaxAttempts = 3
	DefaultMaxTurns    = 8
)

// Outcome of a turn.
type Outcome string

const (
	OutcomeResponded Outcome = "responded"
	OutcomeContinued Outcome = "continued"
	OutcomeAborted   Outcome = "aborted"
)

// Stage names used in failure records.
const (
	StageValidation = "validation"
	StageExecution  = "execution"
)

// Failure records one rejected attempt within a turn.
type Failure struct {
	Attempt int    `json:"attempt"`
	Stage   string `json:"stage"`
	Reason  string `json:"reason"`
	Script  string `json:"script,omitempty"`
}

// TurnResult is the outcome of one RunTurn call. Attempts counts the
// failed attempts that preceded the final one.
type TurnResult struct {
	Outcome  Outcome   `json:"outcome"`
	Message  string    `json:"message,omitempty"`
	Attempts int       `json:"attempts"`
	Failures []Failure `json:"failures,omitempty"`
	Script   string    `json:"script,omitempty"`
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithHooks registers lifecycle hooks. May be given multiple times.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = append(e.hooks, hooks)
	}
}

// WithMaxAttempts sets the per-turn generation budget (default 3).
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithMaxTurns caps Converse (default 8 turns).
func WithMaxTurns(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxTurns = n
		}
	}
}

// WithOnToken installs a callback invoked for every validated token, in
// stream order. Tokens already surfaced may belong to a script that is
// later rejected.
func WithOnToken(fn func(token string)) Option {
	return func(e *Engine) {
		e.onToken = fn
	}
}

// WithMemories appends standing memory lines to every prompt.
func WithMemories(memories ...string) Option {
	return func(e *Engine) {
		for _, m := range memories {
			e.prompt.AddMemory(m)
		}
	}
}

// Engine runs the bounded correction loop for one session.
type Engine struct {
	generator ports.Generator
	registry  *registry.Registry
	sandbox   *sandbox.Sandbox
	prompt    *PromptBuilder
	logger    *slog.Logger
	hooks     []domain.LifecycleHooks

	maxAttempts int
	maxTurns    int
	onToken     func(string)
}

// New wires an engine from its collaborators.
func New(gen ports.Generator, reg *registry.Registry, store ports.StateStore, sb *sandbox.Sandbox, opts ...Option) *Engine {
	e := &Engine{
		generator:   gen,
		registry:    reg,
		sandbox:     sb,
		prompt:      NewPromptBuilder(reg, store),
		logger:      logging.NewNop(),
		maxAttempts: DefaultMaxAttempts,
		maxTurns:    DefaultMaxTurns,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunTurn handles one user input. Rejected attempts are retried with
// feedback up to the attempt budget; exhaustion returns a TurnResult
// with OutcomeAborted alongside domain.ErrTurnAborted. Infrastructure
// failures (generator, store) abort the turn immediately and are
// returned as plain errors.
func (e *Engine) RunTurn(ctx context.Context, userInput string) (*TurnResult, error) {
	started := time.Now()
	var (
		feedback []string
		failures []Failure
	)

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		result, failure, err := e.attempt(ctx, userInput, feedback)
		if err != nil {
			return nil, err
		}
		if failure == nil {
			result.Attempts = attempt - 1
			result.Failures = failures
			e.emitTurnEnd(ctx, string(result.Outcome), result.Attempts, started)
			e.logger.Info("turn complete",
				"outcome", string(result.Outcome),
				"attempts", result.Attempts,
			)
			return result, nil
		}

		failure.Attempt = attempt
		failures = append(failures, *failure)
		feedback = append(feedback, formatFeedback(failure))
		for _, h := range e.hooks {
			h.EmitAttemptFailed(ctx, &domain.AttemptEvent{
				Attempt: attempt,
				Stage:   failure.Stage,
				Reason:  failure.Reason,
			})
		}
		e.logger.Warn("attempt rejected",
			"attempt", attempt,
			"stage", failure.Stage,
			"reason", failure.Reason,
		)
	}

	e.emitTurnEnd(ctx, string(OutcomeAborted), e.maxAttempts, started)
	return &TurnResult{
		Outcome:  OutcomeAborted,
		Attempts: e.maxAttempts,
		Failures: failures,
	}, domain.ErrTurnAborted
}

// attempt runs one generate-validate-execute pass. A nil failure with a
// nil error means the turn finished with a terminal signal.
func (e *Engine) attempt(ctx context.Context, userInput string, feedback []string) (*TurnResult, *Failure, error) {
	req, err := e.prompt.Build(ctx, userInput, feedback)
	if err != nil {
		return nil, nil, err
	}

	stream, err := e.generator.Generate(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("generator failed: %w", err)
	}

	allow := validator.NewAllowSet(e.registry.Names(), sandbox.ControlPrimitives())
	v := validator.New(allow, validator.WithLogger(e.logger))
	validated := v.Validate(stream)

	for {
		tok, err := validated.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				return nil, &Failure{
					Stage:  StageValidation,
					Reason: verr.Reason,
					Script: verr.Code,
				}, nil
			}
			return nil, nil, fmt.Errorf("token stream failed: %w", err)
		}
		if e.onToken != nil {
			e.onToken(tok)
		}
	}

	scriptText := v.Script()
	sig, err := e.sandbox.Execute(ctx, v.Program())
	if err != nil {
		var xerr *domain.ExecutionError
		if errors.As(err, &xerr) {
			if xerr.Script == "" {
				xerr.Script = scriptText
			}
			return nil, &Failure{
				Stage:  StageExecution,
				Reason: xerr.Reason,
				Script: xerr.Script,
			}, nil
		}
		return nil, nil, err
	}

	result := &TurnResult{Script: scriptText}
	switch sig.Kind {
	case domain.SignalRespond:
		result.Outcome = OutcomeResponded
		result.Message = sig.Message
	case domain.SignalContinue:
		result.Outcome = OutcomeContinued
	default:
		return nil, nil, fmt.Errorf("unexpected signal kind %q", sig.Kind)
	}
	return result, nil, nil
}

// Converse drives RunTurn until the agent responds or the turn budget
// runs out. Intermediate continue_turn outcomes re-enter with the same
// user input so the agent can build on the state it just wrote.
func (e *Engine) Converse(ctx context.Context, userInput string) (*TurnResult, error) {
	var last *TurnResult
	for turn := 0; turn < e.maxTurns; turn++ {
		result, err := e.RunTurn(ctx, userInput)
		if err != nil {
			return result, err
		}
		if result.Outcome == OutcomeResponded {
			return result, nil
		}
		last = result
		e.logger.Debug("turn continued", "turn", turn+1)
	}
	return last, fmt.Errorf("conversation exceeded %d turns without a response", e.maxTurns)
}

func (e *Engine) emitTurnEnd(ctx context.Context, outcome string, attempts int, started time.Time) {
	ev := &domain.TurnEvent{
		Outcome:  outcome,
		Attempts: attempts,
		Duration: time.Since(started),
	}
	for _, h := range e.hooks {
		h.EmitTurnEnd(ctx, ev)
	}
}

// formatFeedback renders one failure as a correction message, citing
// the offending script verbatim.
func formatFeedback(f *Failure) string {
	msg := fmt.Sprintf("Rejected during %s: %s", f.Stage, f.Reason)
	if f.Script != "" {
		msg += "\n\nRejected script:\n" + f.Script
	}
	return msg
}
