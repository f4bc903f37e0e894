package domain

// SignalKind identifies which control primitive terminated the script.
type SignalKind string

const (
	// SignalRespond means the script produced the turn's final answer.
	SignalRespond SignalKind = "respond"

	// SignalContinue means the script deferred to a fresh turn.
	SignalContinue SignalKind = "continue_turn"
)

// Signal is the successful terminal outcome of a script execution.
// It is a value, never an error: generic error-handling paths must not
// see (or convert) signals.
type Signal struct {
	Kind SignalKind

	// Message carries the final answer for SignalRespond.
	Message string
}

// Respond builds a terminal respond signal.
func Respond(message string) *Signal {
	return &Signal{Kind: SignalRespond, Message: message}
}

// Continue builds a terminal continue-turn signal.
func Continue() *Signal {
	return &Signal{Kind: SignalContinue}
}
