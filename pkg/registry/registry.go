package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/stanza/pkg/schema"
)

// HandlerFunc is the signature for a capability implementation.
// It receives a context and a map of named arguments, and returns a
// result (recorded into the state store when non-nil) or an error.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

// Param describes one declared parameter of a capability. Positional
// arguments in a script are mapped onto parameters in declaration order.
type Param struct {
	Name        string
	Description string
	Required    bool
}

// Capability is a named, registered operation callable from a script.
// Schema, when set, type-checks arguments before the handler runs.
type Capability struct {
	Name        string
	Description string
	Params      []Param
	Schema      schema.Schema
	Handler     HandlerFunc
}

// CheckArgs verifies that every required parameter is present and that
// typed arguments conform to the capability's schema.
func (c Capability) CheckArgs(args map[string]any) error {
	for _, p := range c.Params {
		if !p.Required {
			continue
		}
		if _, ok := args[p.Name]; !ok {
			return fmt.Errorf("%s: missing required argument %q", c.Name, p.Name)
		}
	}
	if len(c.Schema) == 0 {
		return nil
	}

	present := make([]string, 0, len(args))
	for name := range args {
		if _, typed := c.Schema[name]; typed {
			present = append(present, name)
		}
	}
	if err := c.Schema.Check(args, present...); err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	return nil
}

// Registry manages the available capabilities. It is populated once at
// session start and read-only thereafter.
type Registry struct {
	mu    sync.RWMutex
	caps  map[string]Capability
	order []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		caps: make(map[string]Capability),
	}
}

// Register adds a capability. Names are immutable once registered:
// re-registering an existing name is an error.
func (r *Registry) Register(c Capability) error {
	if c.Name == "" {
		return fmt.Errorf("capability name is required")
	}
	if c.Handler == nil {
		return fmt.Errorf("capability %q has no handler", c.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.caps[c.Name]; exists {
		return fmt.Errorf("capability %q already registered", c.Name)
	}
	r.caps[c.Name] = c
	r.order = append(r.order, c.Name)
	return nil
}

// MustRegister is Register that panics on error. Intended for static
// wiring at program start.
func (r *Registry) MustRegister(c Capability) {
	if err := r.Register(c); err != nil {
		panic(err)
	}
}

// Lookup returns the capability for name.
func (r *Registry) Lookup(name string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caps[name]
	return c, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.caps[name]
	return ok
}

// Names returns all registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Invoke looks up a capability by name and executes its handler.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	c, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("capability not found: %s", name)
	}
	if err := c.CheckArgs(args); err != nil {
		return nil, err
	}
	return c.Handler(ctx, args)
}

// Signatures renders the registered capabilities as prompt-ready
// documentation, one signature per capability in registration order.
func (r *Registry) Signatures() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sb strings.Builder
	for _, name := range r.order {
		c := r.caps[name]
		sb.WriteString(signature(c))
		sb.WriteString("\n")
	}
	return sb.String()
}

func signature(c Capability) string {
	params := make([]string, 0, len(c.Params))
	for _, p := range c.Params {
		if p.Required {
			params = append(params, p.Name)
		} else {
			params = append(params, p.Name+"=None")
		}
	}
	sig := fmt.Sprintf("%s(%s)", c.Name, strings.Join(params, ", "))
	if c.Description == "" {
		return sig
	}
	return fmt.Sprintf("%s\n    %s", sig, c.Description)
}

// SortedNames returns all registered names in lexical order. Useful for
// stable output in diagnostics and tests.
func (r *Registry) SortedNames() []string {
	names := r.Names()
	sort.Strings(names)
	return names
}
