package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"weather-assistant/internal/llm"
	"weather-assistant/internal/observability"
)

// Verdict is the outcome of a topic check.
type Verdict struct {
	OnTopic bool
	Reason  string
}

// Classifier decides whether a piece of text belongs to the weather domain.
type Classifier interface {
	Classify(ctx context.Context, text string) (Verdict, error)
}

const classifierSystemPrompt = `You are a topic classifier for a weather assistant.
Decide whether the given text is related to weather, climate, or meteorology.

Weather-related includes: current conditions, forecasts, historical weather,
temperature, precipitation, wind, sunrise/sunset, climate comparisons, and
questions about locations asked in a weather context.

A polite refusal to answer a non-weather question (for example "I can only
help with weather-related questions") counts as weather-related, because it
keeps the conversation inside the assistant's scope.

Respond with strict JSON only, no markdown, no extra text:
{"weather_related": <true|false>, "reason": "<one short sentence>"}`

// classifierTemperature keeps the verdict deterministic.
var classifierTemperature float32 = 0.0

// LLMClassifier asks a small model for a structured topic verdict.
type LLMClassifier struct {
	client llm.LLMClient
	model  string
}

var _ Classifier = (*LLMClassifier)(nil)

func NewLLMClassifier(client llm.LLMClient, model string) *LLMClassifier {
	return &LLMClassifier{client: client, model: model}
}

func (c *LLMClassifier) Classify(ctx context.Context, text string) (Verdict, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: classifierSystemPrompt},
		{Role: llm.RoleUser, Content: text},
	}
	config := &llm.GenerationConfig{
		Model:       c.model,
		Temperature: &classifierTemperature,
		MaxTokens:   200,
	}

	result, err := c.client.Generate(ctx, messages, config, nil)
	if err != nil {
		return Verdict{}, fmt.Errorf("classifier call: %w", err)
	}

	verdict, err := parseVerdict(result.Content)
	if err != nil {
		return Verdict{}, err
	}
	return verdict, nil
}

// parseVerdict validates the model output at the boundary. Models sometimes
// wrap JSON in a markdown code fence despite instructions, so that is
// stripped before unmarshaling.
func parseVerdict(raw string) (Verdict, error) {
	cleaned := stripCodeFence(strings.TrimSpace(raw))

	var payload struct {
		WeatherRelated *bool  `json:"weather_related"`
		Reason         string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return Verdict{}, fmt.Errorf("classifier returned malformed JSON: %w", err)
	}
	if payload.WeatherRelated == nil {
		return Verdict{}, fmt.Errorf("classifier response missing weather_related field")
	}
	return Verdict{OnTopic: *payload.WeatherRelated, Reason: payload.Reason}, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func recordVerdict(guard string, v Verdict) {
	label := "off_topic"
	if v.OnTopic {
		label = "on_topic"
	}
	observability.GuardVerdictsTotal.WithLabelValues(guard, label).Inc()
}
