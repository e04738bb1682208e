// Package llm contains the model-provider clients behind a single interface,
// plus the redis-backed profiler that tracks per-model health.
package llm

import (
	"context"

	"weather-assistant/internal/api"
	"weather-assistant/internal/tools"
)

// Role identifies the originator of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single entry in a model conversation. Tool-result messages
// carry the originating call's ID and function name so providers that key
// results by name (Gemini) and by ID (OpenAI-compatible APIs) both work.
type Message struct {
	Role       Role              `json:"role"`
	Content    string            `json:"content"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
	ToolName   string            `json:"name,omitempty"`
	ToolCalls  []*tools.ToolCall `json:"tool_calls,omitempty"`
}

// GenerationConfig controls a single generation request. Pointer fields
// distinguish "unset" from an explicit zero.
type GenerationConfig struct {
	Model       string
	Temperature *float32
	MaxTokens   int
	TopP        *float32
}

// GenerationResult is the complete output of one model call.
type GenerationResult struct {
	Content   string
	ToolCalls []*tools.ToolCall
	Usage     api.Usage
}

// LLMClient is implemented by every model provider. Generate blocks until
// the model returns a complete result; the guard pipeline needs whole drafts,
// so there is no token-streaming surface here. Implementations must be safe
// for concurrent use across independent turns.
type LLMClient interface {
	Generate(
		ctx context.Context,
		messages []Message,
		config *GenerationConfig,
		availableTools []tools.Tool,
	) (*GenerationResult, error)
}
