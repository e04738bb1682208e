package main

import (
	"bytes"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"weather-assistant/internal/api"
	"weather-assistant/internal/guard"
	"weather-assistant/internal/observability"
)

// InputGuard screens the newest user message before the chat handler runs.
// Off-topic requests are answered with the canned refusal as a complete
// stream and never reach the model pipeline. Extraction or classifier
// failures fail open so a guard outage cannot take the assistant down.
func InputGuard(classifier guard.Classifier, refusal string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			logger.Warn("failed to read request body, skipping input guard", zap.Error(err))
			c.Next()
			return
		}
		// The handler binds the body again downstream.
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		text, ok := api.LastUserText(body)
		if !ok {
			c.Next()
			return
		}

		verdict, err := classifier.Classify(c.Request.Context(), text)
		if err != nil {
			logger.Warn("input classifier failed, letting request through", zap.Error(err))
			observability.GuardVerdictsTotal.WithLabelValues("input", "error").Inc()
			c.Next()
			return
		}

		if verdict.OnTopic {
			observability.GuardVerdictsTotal.WithLabelValues("input", "on_topic").Inc()
			c.Next()
			return
		}

		observability.GuardVerdictsTotal.WithLabelValues("input", "off_topic").Inc()
		observability.ChatTurnsTotal.WithLabelValues("refused").Inc()
		logger.Info("off-topic request refused",
			zap.String("reason", verdict.Reason),
		)

		stream := api.NewStreamWriter(c.Writer)
		if err := stream.WriteText(refusal); err != nil {
			logger.Error("failed to write refusal stream", zap.Error(err))
		}
		c.Abort()
	}
}
