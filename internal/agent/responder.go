// Package agent turns a guarded chat history into a weather answer by
// driving an LLM through the registered toolset.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"weather-assistant/internal/api"
	"weather-assistant/internal/llm"
	"weather-assistant/internal/tools"
)

const (
	// maxToolRounds bounds how many model/tool round trips one draft may take.
	maxToolRounds = 5

	// maxToolCorrections bounds how many failed tool executions may be fed
	// back to the model as corrective feedback before the turn fails.
	maxToolCorrections = 2
)

// ErrToolBudgetExceeded means the model kept requesting tools past the round
// budget without producing an answer.
var ErrToolBudgetExceeded = errors.New("tool round budget exceeded")

// Responder produces one answer draft per call. It is stateless across calls;
// the conversation history arrives from the handler each turn.
type Responder struct {
	client  llm.LLMClient
	manager *tools.Manager
	model   string
	clock   clockwork.Clock
	logger  *zap.Logger
}

func NewResponder(client llm.LLMClient, manager *tools.Manager, model string, clock clockwork.Clock, logger *zap.Logger) *Responder {
	return &Responder{
		client:  client,
		manager: manager,
		model:   model,
		clock:   clock,
		logger:  logger,
	}
}

// Respond runs the tool loop until the model produces a plain text answer.
// feedback, when non-empty, is a rejection reason from a previous draft and
// is appended as an extra instruction so the redraft can correct course.
// Usage across all model calls in the loop is accumulated.
func (r *Responder) Respond(ctx context.Context, history []llm.Message, feedback string) (string, api.Usage, error) {
	messages := make([]llm.Message, 0, len(history)+3)
	messages = append(messages,
		llm.Message{Role: llm.RoleSystem, Content: systemPrompt},
		llm.Message{Role: llm.RoleSystem, Content: dateInstruction(r.clock)},
	)
	messages = append(messages, history...)
	if feedback != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: feedback})
	}

	config := &llm.GenerationConfig{Model: r.model}
	definitions := r.manager.Definitions()

	var total api.Usage
	corrections := 0

	for round := 1; round <= maxToolRounds; round++ {
		result, err := r.client.Generate(ctx, messages, config, definitions)
		if err != nil {
			return "", total, fmt.Errorf("generate round %d: %w", round, err)
		}
		total.Add(result.Usage)

		if len(result.ToolCalls) == 0 {
			return result.Content, total, nil
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   result.Content,
			ToolCalls: result.ToolCalls,
		})

		for _, call := range result.ToolCalls {
			output, err := r.manager.Execute(ctx, call.Function.Name, call.Function.Arguments)
			if err != nil {
				corrections++
				if corrections > maxToolCorrections {
					return "", total, fmt.Errorf("tool %s failed %d times: %w", call.Function.Name, corrections, err)
				}
				r.logger.Warn("tool execution failed, feeding error back",
					zap.String("tool", call.Function.Name),
					zap.Int("corrections", corrections),
					zap.Error(err),
				)
				output = fmt.Sprintf("Error: %s. Correct the arguments and try again.", err)
			}
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    output,
				ToolCallID: call.ID,
				ToolName:   call.Function.Name,
			})
		}
	}

	return "", total, fmt.Errorf("%w after %d rounds", ErrToolBudgetExceeded, maxToolRounds)
}
