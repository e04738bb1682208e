package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"weather-assistant/internal/api"
	"weather-assistant/internal/llm"
	"weather-assistant/internal/tools"
)

// fakeProfiler serves canned health statuses keyed by model ID.
type fakeProfiler struct {
	statuses map[string]string
}

func (f *fakeProfiler) GetProfile(ctx context.Context, modelID string) (*llm.ModelProfile, error) {
	return &llm.ModelProfile{ModelID: modelID, Status: f.statuses[modelID]}, nil
}

func (f *fakeProfiler) UpdateOnSuccess(ctx context.Context, modelID string, latency time.Duration, usage api.Usage) {
}

func (f *fakeProfiler) UpdateOnFailure(ctx context.Context, modelID string) {}

// namedClient distinguishes clients in selection assertions.
type namedClient struct {
	name string
}

func (n *namedClient) Generate(ctx context.Context, messages []llm.Message, config *llm.GenerationConfig, availableTools []tools.Tool) (*llm.GenerationResult, error) {
	return &llm.GenerationResult{Content: n.name}, nil
}

func newSelectionHandler(statuses map[string]string) *ChatHandler {
	cfg := &AppConfig{
		DefaultModel: "model-a",
		Models: []ModelConfig{
			{ID: "model-a", Provider: "openrouter"},
			{ID: "model-b", Provider: "openrouter"},
			{ID: "model-c", Provider: "gemini"},
		},
	}
	clients := map[string]llm.LLMClient{
		"model-a": &namedClient{name: "model-a"},
		"model-b": &namedClient{name: "model-b"},
		"model-c": &namedClient{name: "model-c"},
	}
	return NewChatHandler(clients, &fakeProfiler{statuses: statuses}, tools.NewManager(), nil, cfg, nil, zap.NewNop())
}

func TestSelectModel(t *testing.T) {
	t.Run("healthy requested model is used", func(t *testing.T) {
		h := newSelectionHandler(map[string]string{
			"model-a": llm.StatusOnline,
			"model-b": llm.StatusOnline,
		})

		modelID, client, err := h.selectModel(context.Background(), "model-b")
		require.NoError(t, err)
		assert.Equal(t, "model-b", modelID)
		assert.Equal(t, "model-b", client.(*namedClient).name)
	})

	t.Run("offline requested model fails over to first healthy", func(t *testing.T) {
		h := newSelectionHandler(map[string]string{
			"model-a": llm.StatusOffline,
			"model-b": llm.StatusOnline,
			"model-c": llm.StatusOnline,
		})

		modelID, _, err := h.selectModel(context.Background(), "model-a")
		require.NoError(t, err)
		assert.Equal(t, "model-b", modelID)
	})

	t.Run("degraded requested model fails over", func(t *testing.T) {
		h := newSelectionHandler(map[string]string{
			"model-a": llm.StatusDegraded,
			"model-b": llm.StatusOffline,
			"model-c": llm.StatusOnline,
		})

		modelID, _, err := h.selectModel(context.Background(), "model-a")
		require.NoError(t, err)
		assert.Equal(t, "model-c", modelID)
	})

	t.Run("empty request uses the default model", func(t *testing.T) {
		h := newSelectionHandler(map[string]string{
			"model-a": llm.StatusOnline,
		})

		modelID, _, err := h.selectModel(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, "model-a", modelID)
	})

	t.Run("unknown requested model falls over to the catalog", func(t *testing.T) {
		h := newSelectionHandler(map[string]string{
			"model-a": llm.StatusOnline,
		})

		modelID, _, err := h.selectModel(context.Background(), "model-x")
		require.NoError(t, err)
		assert.Equal(t, "model-a", modelID)
	})

	t.Run("no healthy model is an error", func(t *testing.T) {
		h := newSelectionHandler(map[string]string{
			"model-a": llm.StatusOffline,
			"model-b": llm.StatusOffline,
			"model-c": llm.StatusDegraded,
		})

		_, _, err := h.selectModel(context.Background(), "model-a")
		require.Error(t, err)
	})
}

func TestToConversation(t *testing.T) {
	t.Run("maps roles and concatenates text parts", func(t *testing.T) {
		in := []api.ChatMessage{
			{Role: api.RoleUser, Parts: []api.MessagePart{
				{Type: api.PartTypeText, Text: "Weather in "},
				{Type: api.PartTypeText, Text: "Oslo?"},
			}},
			{Role: api.RoleAssistant, Parts: []api.MessagePart{
				{Type: api.PartTypeText, Text: "Rainy."},
			}},
		}

		out := toConversation(in)
		assert.Equal(t, []llm.Message{
			{Role: llm.RoleUser, Content: "Weather in Oslo?"},
			{Role: llm.RoleAssistant, Content: "Rainy."},
		}, out)
	})

	t.Run("drops messages without text", func(t *testing.T) {
		in := []api.ChatMessage{
			{Role: api.RoleUser, Parts: []api.MessagePart{{Type: "file"}}},
			{Role: api.RoleUser, Parts: []api.MessagePart{{Type: api.PartTypeText, Text: "hello"}}},
		}

		out := toConversation(in)
		assert.Len(t, out, 1)
		assert.Equal(t, "hello", out[0].Content)
	})

	t.Run("empty input yields empty conversation", func(t *testing.T) {
		assert.Empty(t, toConversation(nil))
	})
}
