package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/loop"
	"github.com/aretw0/stanza/pkg/ports"
)

// Agent is the per-session conversational engine the host multiplexes.
// The root stanza.Agent satisfies it.
type Agent interface {
	RunTurn(ctx context.Context, input string) (*loop.TurnResult, error)
}

// AgentFactory builds the agent for a new session, bound to that
// session's store.
type AgentFactory func(sessionID string, store ports.StateStore) (Agent, error)

// Host multiplexes agents across sessions. It is the service layer the
// HTTP and MCP adapters sit on.
type Host struct {
	manager  *Manager
	newAgent AgentFactory

	mu     sync.Mutex
	agents map[string]Agent
}

// NewHost creates a host. Agents are built lazily per session.
func NewHost(manager *Manager, newAgent AgentFactory) *Host {
	return &Host{
		manager:  manager,
		newAgent: newAgent,
		agents:   make(map[string]Agent),
	}
}

// Manager exposes the underlying session manager.
func (h *Host) Manager() *Manager {
	return h.manager
}

func (h *Host) agent(sessionID string) (Agent, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	agent, ok := h.agents[sessionID]
	if !ok {
		var err error
		agent, err = h.newAgent(sessionID, h.manager.Store(sessionID))
		if err != nil {
			return nil, fmt.Errorf("failed to create agent for session %q: %w", sessionID, err)
		}
		h.agents[sessionID] = agent
	}
	return agent, nil
}

// RunTurn executes one turn for the session, serialized per session.
func (h *Host) RunTurn(ctx context.Context, sessionID, input string) (*loop.TurnResult, error) {
	agent, err := h.agent(sessionID)
	if err != nil {
		return nil, err
	}

	var result *loop.TurnResult
	err = h.manager.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var terr error
		result, terr = agent.RunTurn(ctx, input)
		return terr
	})
	return result, err
}

// State returns a snapshot of the session's state store.
func (h *Host) State(ctx context.Context, sessionID string) (map[string]*domain.StateEntry, error) {
	return h.manager.Store(sessionID).Snapshot(ctx)
}

// DeleteKey removes one key from the session's state store.
func (h *Host) DeleteKey(ctx context.Context, sessionID, key string) (bool, error) {
	var existed bool
	err := h.manager.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var derr error
		existed, derr = h.manager.Store(sessionID).Delete(ctx, key)
		return derr
	})
	return existed, err
}

// Sessions lists sessions known to this replica.
func (h *Host) Sessions() []string {
	return h.manager.Sessions()
}

// Drop evicts the cached agent and store for a session.
func (h *Host) Drop(sessionID string) {
	h.mu.Lock()
	delete(h.agents, sessionID)
	h.mu.Unlock()
	h.manager.Drop(sessionID)
}
