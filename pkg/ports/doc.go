// Package ports declares the interfaces between the Stanza core and its
// collaborators: state persistence, token generation, distributed locking
// and state summarization. Adapters live under pkg/adapters.
package ports
