package guard

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"weather-assistant/internal/api"
	"weather-assistant/internal/llm"
	"weather-assistant/internal/observability"
)

// ErrGuardExhausted means every draft in the retry budget was rejected.
// Callers must surface this as a failure, never fall back to a rejected draft.
var ErrGuardExhausted = errors.New("output guard retry budget exhausted")

// DefaultMaxRetries is how many rejected drafts may be redrafted before the
// turn fails. 2 retries means at most 3 drafts per turn.
const DefaultMaxRetries = 2

// Drafter produces an answer draft for a conversation. A non-empty feedback
// string carries the previous rejection reason into the redraft.
type Drafter interface {
	Respond(ctx context.Context, history []llm.Message, feedback string) (string, api.Usage, error)
}

// OutputGuard classifies each draft before it reaches the client and forces
// a redraft when a draft wanders off topic. Retries are strictly sequential.
type OutputGuard struct {
	drafter    Drafter
	classifier Classifier
	maxRetries int
	logger     *zap.Logger
}

func NewOutputGuard(drafter Drafter, classifier Classifier, maxRetries int, logger *zap.Logger) *OutputGuard {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return &OutputGuard{
		drafter:    drafter,
		classifier: classifier,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Run drafts an answer and returns the first draft the classifier approves.
// Usage from every attempt is accumulated, including rejected ones. A
// classifier failure mid-loop fails the turn; approval is never assumed.
func (g *OutputGuard) Run(ctx context.Context, history []llm.Message) (string, api.Usage, error) {
	var total api.Usage
	feedback := ""
	attempts := g.maxRetries + 1

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			observability.GuardRetriesTotal.Inc()
		}

		draft, usage, err := g.drafter.Respond(ctx, history, feedback)
		total.Add(usage)
		if err != nil {
			return "", total, fmt.Errorf("draft attempt %d: %w", attempt, err)
		}

		verdict, err := g.classifier.Classify(ctx, draft)
		if err != nil {
			return "", total, fmt.Errorf("classify attempt %d: %w", attempt, err)
		}
		recordVerdict("output", verdict)

		if verdict.OnTopic {
			return draft, total, nil
		}

		g.logger.Warn("draft rejected by output guard",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.String("reason", verdict.Reason),
		)
		feedback = fmt.Sprintf(
			"Your previous answer was rejected because it was not weather-related: %s. "+
				"Rewrite the answer so it stays strictly within the weather domain.",
			verdict.Reason,
		)
	}

	return "", total, fmt.Errorf("%w after %d attempts", ErrGuardExhausted, attempts)
}
