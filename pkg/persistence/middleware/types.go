// Package middleware provides StateStore decorators, currently
// envelope encryption with key rotation.
package middleware

import "github.com/aretw0/stanza/pkg/ports"

// Middleware allows wrapping a StateStore to add behavior.
type Middleware func(ports.StateStore) ports.StateStore
