// Package tui holds the terminal presentation pieces of the chat CLI.
package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// Agent responses are markdown more often than not.
func NewRenderer() func(string) (string, error) {
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(100),
	)

	return func(markdown string) (string, error) {
		if r == nil {
			return markdown, nil
		}
		return r.Render(markdown)
	}
}
