package ports

import "context"

// Message roles for generation requests.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one entry in a generation request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the prompt handed to the generator for one attempt.
type Request struct {
	Messages []Message `json:"messages"`
}

// TokenStream is a pull-based, finite, ordered sequence of text fragments.
// Next blocks until a token is available and returns io.EOF on exhaustion.
// The core treats token boundaries as opaque: a fragment may split an
// identifier or a string literal anywhere.
type TokenStream interface {
	Next(ctx context.Context) (string, error)
}

// Generator produces an Action Script as a token stream. It is treated
// as an opaque external collaborator (typically a language model).
type Generator interface {
	Generate(ctx context.Context, req Request) (TokenStream, error)
}
