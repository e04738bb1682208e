package guard

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"weather-assistant/internal/api"
	"weather-assistant/internal/llm"
)

// fakeDrafter returns scripted drafts and records the feedback it received.
type fakeDrafter struct {
	drafts   []string
	err      error
	calls    int
	feedback []string
}

func (f *fakeDrafter) Respond(ctx context.Context, history []llm.Message, feedback string) (string, api.Usage, error) {
	f.feedback = append(f.feedback, feedback)
	if f.err != nil {
		return "", api.Usage{}, f.err
	}
	draft := f.drafts[f.calls%len(f.drafts)]
	f.calls++
	return draft, api.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, nil
}

// verdictFunc adapts a function to the Classifier interface.
type verdictFunc func(text string) (Verdict, error)

func (f verdictFunc) Classify(ctx context.Context, text string) (Verdict, error) {
	return f(text)
}

func alwaysOffTopic(text string) (Verdict, error) {
	return Verdict{OnTopic: false, Reason: "not about weather"}, nil
}

func alwaysOnTopic(text string) (Verdict, error) {
	return Verdict{OnTopic: true}, nil
}

func TestOutputGuardApprovesFirstDraft(t *testing.T) {
	drafter := &fakeDrafter{drafts: []string{"Sunny tomorrow."}}
	g := NewOutputGuard(drafter, verdictFunc(alwaysOnTopic), 2, zap.NewNop())

	answer, usage, err := g.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "Sunny tomorrow.", answer)
	assert.Equal(t, 1, drafter.calls)
	assert.Equal(t, 15, usage.TotalTokens)
}

func TestOutputGuardRetriesWithFeedback(t *testing.T) {
	drafter := &fakeDrafter{drafts: []string{"Off we go", "Rain expected Friday."}}
	classifier := verdictFunc(func(text string) (Verdict, error) {
		if text == "Rain expected Friday." {
			return Verdict{OnTopic: true}, nil
		}
		return Verdict{OnTopic: false, Reason: "talks about travel"}, nil
	})
	g := NewOutputGuard(drafter, classifier, 2, zap.NewNop())

	answer, usage, err := g.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "Rain expected Friday.", answer)
	assert.Equal(t, 2, drafter.calls)
	// Usage from the rejected draft still counts.
	assert.Equal(t, 30, usage.TotalTokens)

	require.Len(t, drafter.feedback, 2)
	assert.Empty(t, drafter.feedback[0])
	assert.Contains(t, drafter.feedback[1], "talks about travel")
}

func TestOutputGuardExhaustsBudget(t *testing.T) {
	drafter := &fakeDrafter{drafts: []string{"always off topic"}}
	g := NewOutputGuard(drafter, verdictFunc(alwaysOffTopic), 2, zap.NewNop())

	_, usage, err := g.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrGuardExhausted)

	// 2 retries means exactly 3 drafts, never a fourth.
	assert.Equal(t, 3, drafter.calls)
	assert.Equal(t, 45, usage.TotalTokens)
}

func TestOutputGuardDrafterFailureIsHard(t *testing.T) {
	drafter := &fakeDrafter{err: errors.New("model unavailable")}
	g := NewOutputGuard(drafter, verdictFunc(alwaysOnTopic), 2, zap.NewNop())

	_, _, err := g.Run(context.Background(), nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrGuardExhausted)
}

func TestOutputGuardClassifierFailureIsHard(t *testing.T) {
	drafter := &fakeDrafter{drafts: []string{"Sunny."}}
	classifier := verdictFunc(func(text string) (Verdict, error) {
		return Verdict{}, fmt.Errorf("classifier down")
	})
	g := NewOutputGuard(drafter, classifier, 2, zap.NewNop())

	_, _, err := g.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classifier down")
	assert.Equal(t, 1, drafter.calls)
}

func TestOutputGuardZeroRetriesSingleAttempt(t *testing.T) {
	drafter := &fakeDrafter{drafts: []string{"off topic"}}
	g := NewOutputGuard(drafter, verdictFunc(alwaysOffTopic), 0, zap.NewNop())

	_, _, err := g.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrGuardExhausted)
	assert.Equal(t, 1, drafter.calls)
}
