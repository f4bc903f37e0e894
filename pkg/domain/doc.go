// Package domain contains the core types shared across the Stanza engine:
// state entries, control signals, the error taxonomy and lifecycle hooks.
//
// It has no dependencies on other stanza packages so that ports, adapters
// and the engine can all import it freely.
package domain
