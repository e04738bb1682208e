package tools

import "context"

// Executor is implemented by every tool the assistant can run.
//
// Execute receives the model-generated arguments as a JSON string and
// returns a string result that is fed back to the model. A returned error
// is correctable feedback for the model, not a turn-ending failure; the
// responder decides when correction attempts are exhausted.
type Executor interface {
	// Definition returns the schema shown to the model.
	Definition() Tool

	// Execute runs the tool.
	Execute(ctx context.Context, arguments string) (string, error)
}
