package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"weather-assistant/internal/tools"
)

// GeminiClient serves Google's Gemini models through the official SDK.
// Unlike the OpenRouter client, the model ID is fixed at construction. Each
// Generate call configures a fresh model handle, never a shared one, so
// concurrent turns cannot cross-contaminate request configuration.
type GeminiClient struct {
	client  *genai.Client
	modelID string
}

var _ LLMClient = (*GeminiClient)(nil)

func NewGeminiClient(apiKey, modelID string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key cannot be empty")
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, modelID: modelID}, nil
}

// Generate performs a blocking request against the Gemini API.
func (c *GeminiClient) Generate(
	ctx context.Context,
	messages []Message,
	config *GenerationConfig,
	availableTools []tools.Tool,
) (*GenerationResult, error) {
	if len(messages) == 0 {
		return nil, errors.New("gemini: empty message history")
	}

	model := c.newConfiguredModel(config, availableTools)

	system, conversation := splitSystemMessages(messages)
	if len(conversation) == 0 {
		return nil, errors.New("gemini: no non-system messages to send")
	}
	if system != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}

	chat := model.StartChat()
	chat.History = toGeminiHistory(conversation[:len(conversation)-1])

	last := conversation[len(conversation)-1]
	resp, err := chat.SendMessage(ctx, toGeminiParts(last)...)
	if err != nil {
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}
	return parseGeminiResponse(resp)
}

// newConfiguredModel builds a call-local model handle. Handles are cheap
// wrappers around the shared *genai.Client connection.
func (c *GeminiClient) newConfiguredModel(config *GenerationConfig, availableTools []tools.Tool) *genai.GenerativeModel {
	model := c.client.GenerativeModel(c.modelID)

	maxTokens := int32(4096)
	if config != nil {
		if config.Temperature != nil {
			model.SetTemperature(*config.Temperature)
		}
		if config.TopP != nil {
			model.SetTopP(*config.TopP)
		}
		if config.MaxTokens > 0 {
			maxTokens = int32(config.MaxTokens)
		}
	}
	model.SetMaxOutputTokens(maxTokens)

	if len(availableTools) > 0 {
		model.Tools = toGeminiTools(availableTools)
	}
	return model
}

// splitSystemMessages pulls system messages out of the history; Gemini takes
// them as a model-level instruction rather than conversation turns.
func splitSystemMessages(messages []Message) (string, []Message) {
	var system []string
	conversation := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		conversation = append(conversation, msg)
	}
	return strings.Join(system, "\n\n"), conversation
}

func toGeminiHistory(messages []Message) []*genai.Content {
	var history []*genai.Content
	for _, msg := range messages {
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}
		if msg.Role == RoleTool {
			role = "function"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: toGeminiParts(msg),
		})
	}
	return history
}

func toGeminiParts(msg Message) []genai.Part {
	if msg.Role == RoleTool {
		return []genai.Part{genai.FunctionResponse{
			Name:     msg.ToolName,
			Response: map[string]any{"content": msg.Content},
		}}
	}
	if msg.Role == RoleAssistant && len(msg.ToolCalls) > 0 {
		parts := make([]genai.Part, 0, len(msg.ToolCalls)+1)
		if msg.Content != "" {
			parts = append(parts, genai.Text(msg.Content))
		}
		for _, tc := range msg.ToolCalls {
			var args map[string]any
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				args = map[string]any{}
			}
			parts = append(parts, genai.FunctionCall{Name: tc.Function.Name, Args: args})
		}
		return parts
	}
	return []genai.Part{genai.Text(msg.Content)}
}

func toGeminiTools(toolsToConvert []tools.Tool) []*genai.Tool {
	var geminiTools []*genai.Tool
	for _, t := range toolsToConvert {
		decl := &genai.FunctionDeclaration{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  convertSchema(t.Function.Parameters),
		}
		geminiTools = append(geminiTools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{decl},
		})
	}
	return geminiTools
}

func convertSchema(s tools.JSONSchema) *genai.Schema {
	out := &genai.Schema{
		Description: s.Description,
		Required:    s.Required,
	}
	switch s.Type {
	case "object":
		out.Type = genai.TypeObject
	case "string":
		out.Type = genai.TypeString
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	}
	if s.Properties != nil {
		out.Properties = make(map[string]*genai.Schema)
		for k, v := range s.Properties {
			out.Properties[k] = convertSchema(*v)
		}
	}
	return out
}

func parseGeminiResponse(resp *genai.GenerateContentResponse) (*GenerationResult, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("no content returned from Gemini")
	}

	var contentBuilder strings.Builder
	var toolCalls []*tools.ToolCall

	for _, part := range resp.Candidates[0].Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			contentBuilder.WriteString(string(v))
		case genai.FunctionCall:
			args, err := json.Marshal(v.Args)
			if err != nil {
				return nil, fmt.Errorf("marshal gemini tool call args: %w", err)
			}
			toolCalls = append(toolCalls, &tools.ToolCall{
				ID:   "call-" + uuid.NewString(),
				Type: tools.ToolTypeFunction,
				Function: tools.ToolCallFunction{
					Name:      v.Name,
					Arguments: string(args),
				},
			})
		}
	}

	result := &GenerationResult{
		Content:   strings.TrimSpace(contentBuilder.String()),
		ToolCalls: toolCalls,
	}
	if resp.UsageMetadata != nil {
		result.Usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.Usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		result.Usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return result, nil
}
