// Package observability holds the shared zap logger setup and the prometheus
// metrics tracked across the assistant: chat turn outcomes, guard verdicts,
// retry counts, and outbound weather API calls.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Chat turns by final outcome: answered, refused, exhausted, error.
	ChatTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_chat_turns_total",
			Help: "Chat turns processed, labelled by final outcome",
		},
		[]string{"outcome"},
	)

	// Classifier verdicts per guard stage. Watch for: off_topic spikes
	// (abuse) and error rates (classifier model degradation).
	GuardVerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_guard_verdicts_total",
			Help: "Topic classifier verdicts by guard stage",
		},
		[]string{"guard", "verdict"},
	)

	// Corrective regenerations forced by the output guard.
	GuardRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_guard_retries_total",
			Help: "Drafts rejected by the output guard and regenerated",
		},
	)

	// Open-Meteo calls by endpoint and status class.
	WeatherAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_weather_api_calls_total",
			Help: "Outbound Open-Meteo API calls",
		},
		[]string{"endpoint", "status"},
	)

	// Open-Meteo latency. Watch for: p95 > 2s (upstream degradation).
	WeatherAPIDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_weather_api_duration_seconds",
			Help:    "Outbound Open-Meteo API latency in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	// Tool executions requested by the model.
	ToolExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_tool_executions_total",
			Help: "Tool executions by tool name and result",
		},
		[]string{"tool", "status"},
	)
)
