package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"weather-assistant/internal/api"
	"weather-assistant/internal/tools"
)

const defaultOpenRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// openRouterRequest is the OpenAI-compatible chat completions payload.
type openRouterRequest struct {
	Model       string              `json:"model"`
	Messages    []openRouterMessage `json:"messages"`
	Tools       []openRouterTool    `json:"tools,omitempty"`
	ToolChoice  string              `json:"tool_choice,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature *float32            `json:"temperature,omitempty"`
	TopP        *float32            `json:"top_p,omitempty"`
}

type openRouterMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	Name       string           `json:"name,omitempty"`
	ToolCalls  []tools.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openRouterTool struct {
	Type     string         `json:"type"`
	Function tools.Function `json:"function"`
}

type openRouterResponse struct {
	Choices []struct {
		Message openRouterMessage `json:"message"`
	} `json:"choices"`
	Usage api.Usage `json:"usage"`
}

// OpenRouterClient talks to any model hosted behind OpenRouter's
// OpenAI-compatible API. One client instance covers every such model; the
// model is chosen per request via GenerationConfig.
type OpenRouterClient struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

var _ LLMClient = (*OpenRouterClient)(nil)

func NewOpenRouterClient(apiKey string) (*OpenRouterClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenRouter API key cannot be empty")
	}
	return &OpenRouterClient{
		apiKey: apiKey,
		apiURL: defaultOpenRouterURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}, nil
}

// Generate performs a blocking chat completion request.
func (c *OpenRouterClient) Generate(
	ctx context.Context,
	messages []Message,
	config *GenerationConfig,
	availableTools []tools.Tool,
) (*GenerationResult, error) {
	payload, err := buildOpenRouterPayload(messages, config, availableTools)
	if err != nil {
		return nil, fmt.Errorf("build openrouter request payload: %w", err)
	}

	respBody, err := c.doRequest(ctx, payload)
	if err != nil {
		return nil, err
	}

	return parseOpenRouterResponse(respBody)
}

func buildOpenRouterPayload(messages []Message, config *GenerationConfig, availableTools []tools.Tool) ([]byte, error) {
	req := openRouterRequest{
		Model:    config.Model,
		Messages: toOpenRouterMessages(messages),
		Tools:    toOpenRouterTools(availableTools),
	}

	if config.MaxTokens > 0 {
		req.MaxTokens = config.MaxTokens
	}
	if config.Temperature != nil {
		req.Temperature = config.Temperature
	}
	if config.TopP != nil {
		req.TopP = config.TopP
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = "auto"
	}

	return json.Marshal(req)
}

// doRequest performs the HTTP call, retrying server-side failures with
// exponential backoff. Client errors (4xx) are returned immediately.
func (c *OpenRouterClient) doRequest(ctx context.Context, payload []byte) ([]byte, error) {
	var lastErr error
	delay := initialRetryDelay

	for i := 0; i < maxRetries; i++ {
		req, err := c.createRequest(ctx, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed (attempt %d/%d): %w", i+1, maxRetries, err)
			if !sleepCtx(ctx, delay) {
				return nil, ctx.Err()
			}
			delay *= 2
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("read response body: %w", readErr)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}

		lastErr = fmt.Errorf("openrouter API error (attempt %d/%d): status %d, body: %s",
			i+1, maxRetries, resp.StatusCode, string(body))

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, lastErr
		}

		if !sleepCtx(ctx, delay) {
			return nil, ctx.Err()
		}
		delay *= 2
	}
	return nil, lastErr
}

func (c *OpenRouterClient) createRequest(ctx context.Context, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, body)
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Title", "weather-assistant")
	return req, nil
}

// sleepCtx waits for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func toOpenRouterMessages(messages []Message) []openRouterMessage {
	out := make([]openRouterMessage, 0, len(messages))
	for _, msg := range messages {
		m := openRouterMessage{Role: string(msg.Role)}
		switch msg.Role {
		case RoleTool:
			m.ToolCallID = msg.ToolCallID
			m.Name = msg.ToolName
			m.Content = msg.Content
		case RoleAssistant:
			m.Content = msg.Content
			if len(msg.ToolCalls) > 0 {
				m.ToolCalls = make([]tools.ToolCall, len(msg.ToolCalls))
				for i, tc := range msg.ToolCalls {
					m.ToolCalls[i] = *tc
				}
			}
		default:
			m.Content = msg.Content
		}
		out = append(out, m)
	}
	return out
}

func toOpenRouterTools(availableTools []tools.Tool) []openRouterTool {
	if len(availableTools) == 0 {
		return nil
	}
	out := make([]openRouterTool, 0, len(availableTools))
	for _, tool := range availableTools {
		out = append(out, openRouterTool{
			Type:     tools.ToolTypeFunction,
			Function: tool.Function,
		})
	}
	return out
}

func parseOpenRouterResponse(body []byte) (*GenerationResult, error) {
	var resp openRouterResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal openrouter response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices returned from OpenRouter")
	}

	choice := resp.Choices[0]
	result := &GenerationResult{
		Content: choice.Message.Content,
		Usage:   resp.Usage,
	}

	if len(choice.Message.ToolCalls) > 0 {
		result.ToolCalls = make([]*tools.ToolCall, 0, len(choice.Message.ToolCalls))
		for _, tc := range choice.Message.ToolCalls {
			call := &tools.ToolCall{
				ID:   tc.ID,
				Type: tools.ToolTypeFunction,
				Function: tools.ToolCallFunction{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			}
			result.ToolCalls = append(result.ToolCalls, call)
		}
	}

	return result, nil
}
