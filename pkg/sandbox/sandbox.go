// Package sandbox executes validated Action Scripts against a
// capability registry and a session state store. The execution scope
// resolves only registered capabilities and the fixed control
// primitives; there is no ambient access to the host environment.
package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/stanza/internal/logging"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/ports"
	"github.com/aretw0/stanza/pkg/registry"
	"github.com/aretw0/stanza/pkg/script"
)

// Control primitive names. Part of the dialect's fixed vocabulary and
// never resolvable through the registry.
const (
	PrimitiveRespond  = "respond"
	PrimitiveContinue = "continue_turn"
	PrimitiveReflect  = "reflect"
)

// ControlPrimitives lists the fixed control primitive names.
func ControlPrimitives() []string {
	return []string{PrimitiveRespond, PrimitiveContinue, PrimitiveReflect}
}

// Option configures the Sandbox.
type Option func(*Sandbox)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sandbox) {
		s.logger = logger
	}
}

// WithHooks registers lifecycle hooks. May be given multiple times.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Sandbox) {
		s.hooks = append(s.hooks, hooks)
	}
}

// WithClock overrides the timestamp source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Sandbox) {
		s.now = now
	}
}

// WithTurnIDs overrides the turn ID generator. Intended for tests.
func WithTurnIDs(newID func() string) Option {
	return func(s *Sandbox) {
		s.newID = newID
	}
}

// Sandbox runs scripts statement by statement, committing capability
// results to the store in invocation order.
type Sandbox struct {
	registry *registry.Registry
	store    ports.StateStore
	logger   *slog.Logger
	hooks    []domain.LifecycleHooks
	now      func() time.Time
	newID    func() string
}

// New creates a sandbox bound to a registry and a session store.
func New(reg *registry.Registry, store ports.StateStore, opts ...Option) *Sandbox {
	s := &Sandbox{
		registry: reg,
		store:    store,
		logger:   logging.NewNop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs the program. It returns exactly one of a control signal
// or an *domain.ExecutionError. Effects committed before a mid-script
// failure are not rolled back. A script that runs every statement
// without raising a control signal is itself an execution error.
func (s *Sandbox) Execute(ctx context.Context, prog *script.Program) (*domain.Signal, error) {
	for _, stmt := range prog.Statements {
		sig, _, err := s.evalCall(ctx, stmt)
		if err != nil {
			return nil, err
		}
		if sig != nil {
			for _, h := range s.hooks {
				h.EmitSignal(ctx, sig)
			}
			return sig, nil
		}
	}
	return nil, &domain.ExecutionError{
		Kind:   domain.ExecutionMissingSignal,
		Reason: "script completed without calling respond() or continue_turn(); every script must end with one of these",
	}
}

// evalCall evaluates one call. A non-nil signal unwinds execution
// immediately, skipping all remaining statements.
func (s *Sandbox) evalCall(ctx context.Context, call *script.Call) (*domain.Signal, any, error) {
	args, sig, err := s.evalArgs(ctx, call)
	if err != nil || sig != nil {
		return sig, nil, err
	}

	switch call.Name {
	case PrimitiveRespond:
		msg, err := stringArg(args, "message")
		if err != nil {
			return nil, nil, execErr(domain.ExecutionCapabilityFailure, fmt.Sprintf("respond: %v", err), err)
		}
		return domain.Respond(msg), nil, nil

	case PrimitiveContinue:
		return domain.Continue(), nil, nil

	case PrimitiveReflect:
		analysis, err := stringArg(args, "analysis")
		if err != nil {
			return nil, nil, execErr(domain.ExecutionCapabilityFailure, fmt.Sprintf("reflect: %v", err), err)
		}
		// Reflection is log-only: no state effect, never raises.
		s.logger.Info("agent reflection", "analysis", analysis)
		return nil, nil, nil
	}

	result, err := s.invoke(ctx, call.Name, args)
	return nil, result, err
}

// invoke dispatches a registered capability and commits its result.
func (s *Sandbox) invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	capability, ok := s.registry.Lookup(name)
	if !ok {
		// The validator admits only allow-listed names; reaching this
		// branch means the registry changed under us.
		return nil, execErr(domain.ExecutionCapabilityFailure,
			fmt.Sprintf("capability not found: %s", name), nil)
	}

	if err := capability.CheckArgs(args); err != nil {
		return nil, execErr(domain.ExecutionCapabilityFailure, err.Error(), err)
	}

	ev := &domain.CapabilityEvent{Timestamp: s.now().UTC(), Name: name, Args: args}
	for _, h := range s.hooks {
		h.EmitCapabilityCall(ctx, ev)
	}

	started := s.now()
	result, err := capability.Handler(ctx, args)
	ev.Duration = s.now().Sub(started)
	ev.Result = result
	ev.Err = err
	for _, h := range s.hooks {
		h.EmitCapabilityReturn(ctx, ev)
	}

	if err != nil {
		return nil, execErr(domain.ExecutionCapabilityFailure,
			fmt.Sprintf("capability %q failed: %v", name, err), err)
	}

	if result != nil {
		entry := &domain.StateEntry{
			Result: result,
			Metadata: domain.Metadata{
				Timestamp: s.now().UTC(),
				TurnID:    s.newID(),
			},
		}
		if perr := s.store.Put(ctx, name, entry); perr != nil {
			return nil, execErr(domain.ExecutionCapabilityFailure,
				fmt.Sprintf("failed to record result of %q: %v", name, perr), perr)
		}
		ev.TurnID = entry.Metadata.TurnID
		s.logger.Debug("state updated", "key", name, "turn_id", entry.Metadata.TurnID)
	}
	return result, nil
}

// evalArgs evaluates the argument list. Positional arguments map onto
// the capability's declared parameter order; control primitives take a
// single well-known parameter.
func (s *Sandbox) evalArgs(ctx context.Context, call *script.Call) (map[string]any, *domain.Signal, error) {
	params := s.paramNames(call.Name)
	args := make(map[string]any, len(call.Args))
	positional := 0

	for _, arg := range call.Args {
		value, sig, err := s.evalExpr(ctx, arg.Value)
		if err != nil || sig != nil {
			return nil, sig, err
		}

		name := arg.Name
		if name == "" {
			if positional >= len(params) {
				return nil, nil, execErr(domain.ExecutionCapabilityFailure,
					fmt.Sprintf("%s: too many positional arguments", call.Name), nil)
			}
			name = params[positional]
			positional++
		}
		if _, dup := args[name]; dup {
			return nil, nil, execErr(domain.ExecutionCapabilityFailure,
				fmt.Sprintf("%s: duplicate argument %q", call.Name, name), nil)
		}
		args[name] = value
	}
	return args, nil, nil
}

func (s *Sandbox) paramNames(callName string) []string {
	switch callName {
	case PrimitiveRespond:
		return []string{"message"}
	case PrimitiveContinue:
		return nil
	case PrimitiveReflect:
		return []string{"analysis"}
	}
	capability, ok := s.registry.Lookup(callName)
	if !ok {
		return nil
	}
	names := make([]string, len(capability.Params))
	for i, p := range capability.Params {
		names[i] = p.Name
	}
	return names
}

// evalExpr converts an expression to a Go value. Nested calls are
// evaluated depth-first; a control signal raised in argument position
// unwinds the whole script.
func (s *Sandbox) evalExpr(ctx context.Context, expr script.Expr) (any, *domain.Signal, error) {
	switch e := expr.(type) {
	case *script.StringLit:
		return e.Value, nil, nil
	case *script.NumberLit:
		if e.IsInt {
			return e.Int, nil, nil
		}
		return e.Float, nil, nil
	case *script.BoolLit:
		return e.Value, nil, nil
	case *script.NullLit:
		return nil, nil, nil
	case *script.ListLit:
		items := make([]any, 0, len(e.Items))
		for _, item := range e.Items {
			v, sig, err := s.evalExpr(ctx, item)
			if err != nil || sig != nil {
				return nil, sig, err
			}
			items = append(items, v)
		}
		return items, nil, nil
	case *script.MapLit:
		m := make(map[string]any, len(e.Entries))
		for _, entry := range e.Entries {
			key, ok := entry.Key.(*script.StringLit)
			if !ok {
				return nil, nil, execErr(domain.ExecutionCapabilityFailure,
					"map keys must be string literals", nil)
			}
			v, sig, err := s.evalExpr(ctx, entry.Value)
			if err != nil || sig != nil {
				return nil, sig, err
			}
			m[key.Value] = v
		}
		return m, nil, nil
	case *script.Call:
		sig, result, err := s.evalCall(ctx, e)
		return result, sig, err
	default:
		return nil, nil, execErr(domain.ExecutionCapabilityFailure,
			fmt.Sprintf("unsupported expression %T", expr), nil)
	}
}

func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", name)
	}
	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", name)
	}
	return str, nil
}

func execErr(kind domain.ExecutionKind, reason string, cause error) *domain.ExecutionError {
	return &domain.ExecutionError{Kind: kind, Reason: reason, Err: cause}
}
