// Package cli implements the command logic behind cmd/stanza: agent
// assembly from flags, the interactive chat loop, offline validation
// and the server modes.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/stanza/internal/logging"
	"github.com/aretw0/stanza/pkg/domain"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
				// Context cancelled elsewhere
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// createLogger configures the application logger.
func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

// printSystemMessage prints a standardized system message to stdout.
func printSystemMessage(format string, args ...any) {
	fmt.Printf(">>> %s\n", fmt.Sprintf(format, args...))
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCapabilityCall: func(ctx context.Context, e *domain.CapabilityEvent) {
			logger.Debug("Capability Call", "capability", e.Name)
		},
		OnCapabilityReturn: func(ctx context.Context, e *domain.CapabilityEvent) {
			if e.Err != nil {
				logger.Debug("Capability Return (Error)", "capability", e.Name, "err", e.Err)
			} else {
				logger.Debug("Capability Return (Success)", "capability", e.Name, "duration", e.Duration)
			}
		},
		OnSignal: func(ctx context.Context, sig *domain.Signal) {
			logger.Debug("Control Signal", "kind", string(sig.Kind))
		},
		OnAttemptFailed: func(ctx context.Context, e *domain.AttemptEvent) {
			logger.Debug("Attempt Rejected", "attempt", e.Attempt, "stage", e.Stage, "reason", e.Reason)
		},
	}
}
