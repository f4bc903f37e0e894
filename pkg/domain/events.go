package domain

import (
	"context"
	"time"
)

// CapabilityEvent describes one capability invocation inside the sandbox.
type CapabilityEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Name      string         `json:"name"`
	Args      map[string]any `json:"args,omitempty"`
	Result    any            `json:"result,omitempty"`
	TurnID    string         `json:"turn_id,omitempty"`
	Duration  time.Duration  `json:"duration,omitempty"`
	Err       error          `json:"-"`
}

// AttemptEvent describes a failed correction attempt.
type AttemptEvent struct {
	Attempt int    `json:"attempt"` // 1-based count of failures so far
	Stage   string `json:"stage"`   // "validation" or "execution"
	Reason  string `json:"reason"`
}

// TurnEvent describes a completed turn.
type TurnEvent struct {
	Outcome  string        `json:"outcome"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
}

// LifecycleHooks defines optional callbacks for engine observability.
// Any field may be nil. Emit helpers are nil-safe so components can fire
// hooks unconditionally.
type LifecycleHooks struct {
	OnCapabilityCall   func(context.Context, *CapabilityEvent)
	OnCapabilityReturn func(context.Context, *CapabilityEvent)
	OnSignal           func(context.Context, *Signal)
	OnAttemptFailed    func(context.Context, *AttemptEvent)
	OnTurnEnd          func(context.Context, *TurnEvent)
}

// EmitCapabilityCall fires OnCapabilityCall if set.
func (h LifecycleHooks) EmitCapabilityCall(ctx context.Context, ev *CapabilityEvent) {
	if h.OnCapabilityCall != nil {
		h.OnCapabilityCall(ctx, ev)
	}
}

// EmitCapabilityReturn fires OnCapabilityReturn if set.
func (h LifecycleHooks) EmitCapabilityReturn(ctx context.Context, ev *CapabilityEvent) {
	if h.OnCapabilityReturn != nil {
		h.OnCapabilityReturn(ctx, ev)
	}
}

// EmitSignal fires OnSignal if set.
func (h LifecycleHooks) EmitSignal(ctx context.Context, sig *Signal) {
	if h.OnSignal != nil {
		h.OnSignal(ctx, sig)
	}
}

// EmitAttemptFailed fires OnAttemptFailed if set.
func (h LifecycleHooks) EmitAttemptFailed(ctx context.Context, ev *AttemptEvent) {
	if h.OnAttemptFailed != nil {
		h.OnAttemptFailed(ctx, ev)
	}
}

// EmitTurnEnd fires OnTurnEnd if set.
func (h LifecycleHooks) EmitTurnEnd(ctx context.Context, ev *TurnEvent) {
	if h.OnTurnEnd != nil {
		h.OnTurnEnd(ctx, ev)
	}
}
