package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"weather-assistant/internal/agent"
	"weather-assistant/internal/api"
	"weather-assistant/internal/guard"
	"weather-assistant/internal/llm"
	"weather-assistant/internal/observability"
	"weather-assistant/internal/tools"
)

// modelProfiler is the slice of the redis profiler the handler depends on.
type modelProfiler interface {
	GetProfile(ctx context.Context, modelID string) (*llm.ModelProfile, error)
	UpdateOnSuccess(ctx context.Context, modelID string, latency time.Duration, usage api.Usage)
	UpdateOnFailure(ctx context.Context, modelID string)
}

// ChatHandler owns the chat turn pipeline: model selection with health
// failover, the responder tool loop, and the output guard, streamed out as
// SSE frames.
type ChatHandler struct {
	clients    map[string]llm.LLMClient
	profiler   modelProfiler
	manager    *tools.Manager
	classifier guard.Classifier
	config     *AppConfig
	clock      clockwork.Clock
	logger     *zap.Logger
}

func NewChatHandler(
	clients map[string]llm.LLMClient,
	profiler modelProfiler,
	manager *tools.Manager,
	classifier guard.Classifier,
	config *AppConfig,
	clock clockwork.Clock,
	logger *zap.Logger,
) *ChatHandler {
	return &ChatHandler{
		clients:    clients,
		profiler:   profiler,
		manager:    manager,
		classifier: classifier,
		config:     config,
		clock:      clock,
		logger:     logger,
	}
}

// HandleChat serves POST /api/v1/chat. The input guard middleware has already
// screened the request; everything that reaches this point is answered
// through the output-guarded responder.
func (h *ChatHandler) HandleChat(c *gin.Context) {
	started := time.Now()

	var req api.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	history := toConversation(req.Messages)
	if len(history) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request contains no messages"})
		return
	}

	modelID, client, err := h.selectModel(c.Request.Context(), req.Model)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	h.logger.Info("chat turn started",
		zap.String("chat_id", req.ID),
		zap.String("model", modelID),
		zap.Int("messages", len(history)),
	)

	responder := agent.NewResponder(client, h.manager, modelID, h.clock, h.logger)
	outputGuard := guard.NewOutputGuard(responder, h.classifier, h.config.Guard.MaxOutputRetries, h.logger)

	stream := api.NewStreamWriter(c.Writer)

	answer, usage, err := outputGuard.Run(c.Request.Context(), history)
	if err != nil {
		h.profiler.UpdateOnFailure(c.Request.Context(), modelID)
		outcome := "error"
		message := "Something went wrong while answering. Please try again."
		if errors.Is(err, guard.ErrGuardExhausted) {
			outcome = "exhausted"
			message = "I couldn't produce a weather-related answer for that. Try rephrasing your question."
		}
		observability.ChatTurnsTotal.WithLabelValues(outcome).Inc()
		h.logger.Error("chat turn failed",
			zap.String("chat_id", req.ID),
			zap.String("model", modelID),
			zap.Error(err),
		)
		if writeErr := stream.WriteError(message); writeErr != nil {
			h.logger.Error("failed to write error stream", zap.Error(writeErr))
		}
		return
	}

	h.profiler.UpdateOnSuccess(c.Request.Context(), modelID, time.Since(started), usage)
	observability.ChatTurnsTotal.WithLabelValues("answered").Inc()

	if err := stream.WriteText(answer); err != nil {
		h.logger.Error("failed to write answer stream", zap.Error(err))
	}
}

// HandleModels serves GET /api/v1/models: the configured catalog annotated
// with live health status from the profiler, for the client's model picker.
func (h *ChatHandler) HandleModels(c *gin.Context) {
	type modelStatus struct {
		ModelConfig
		Status string `json:"status"`
	}

	out := make([]modelStatus, 0, len(h.config.Models))
	for _, m := range h.config.Models {
		status := llm.StatusOffline
		if profile, err := h.profiler.GetProfile(c.Request.Context(), m.ID); err == nil {
			status = profile.Status
		}
		out = append(out, modelStatus{ModelConfig: m, Status: status})
	}
	c.JSON(http.StatusOK, gin.H{"models": out, "default": h.config.DefaultModel})
}

// selectModel resolves the requested model to a healthy client, failing over
// to the first healthy configured model when the requested one is offline.
func (h *ChatHandler) selectModel(ctx context.Context, requested string) (string, llm.LLMClient, error) {
	if requested == "" {
		requested = h.config.DefaultModel
	}

	if client, ok := h.clients[requested]; ok {
		profile, err := h.profiler.GetProfile(ctx, requested)
		if err == nil && profile.Status == llm.StatusOnline {
			return requested, client, nil
		}
		h.logger.Warn("requested model unavailable, failing over",
			zap.String("model", requested),
		)
	}

	for _, m := range h.config.Models {
		if m.ID == requested {
			continue
		}
		client, ok := h.clients[m.ID]
		if !ok {
			continue
		}
		profile, err := h.profiler.GetProfile(ctx, m.ID)
		if err == nil && profile.Status == llm.StatusOnline {
			h.logger.Info("failover model selected", zap.String("model", m.ID))
			return m.ID, client, nil
		}
	}

	return "", nil, errors.New("no healthy model available")
}

// toConversation flattens inbound chat messages into the provider message
// shape. Attachments and unknown part types are ignored; only text survives.
func toConversation(messages []api.ChatMessage) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, msg := range messages {
		text := msg.Text()
		if text == "" {
			continue
		}
		role := llm.RoleUser
		if msg.Role == api.RoleAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: text})
	}
	return out
}
