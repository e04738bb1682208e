package llm

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"weather-assistant/internal/api"
)

// Model health states tracked by the profiler.
const (
	StatusOnline   = "online"
	StatusDegraded = "degraded"
	StatusOffline  = "offline"
)

// ModelProfile tracks latency, reliability, and token throughput for a model.
type ModelProfile struct {
	ModelID           string    `json:"model_id"`
	AvgLatencyMS      int64     `json:"avg_latency_ms"`
	Status            string    `json:"status"`
	ErrorRate         float64   `json:"error_rate"`
	TotalSuccesses    int64     `json:"total_successes"`
	TotalFailures     int64     `json:"total_failures"`
	TotalInputTokens  int64     `json:"total_input_tokens"`
	TotalOutputTokens int64     `json:"total_output_tokens"`
	LastHealthCheck   time.Time `json:"last_health_check"`
}

// Profiler persists per-model profiles in redis hashes so every instance of
// the assistant shares one view of model health.
type Profiler struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewProfiler(rdb *redis.Client, logger *zap.Logger) *Profiler {
	return &Profiler{rdb: rdb, logger: logger}
}

func profileKey(modelID string) string {
	return fmt.Sprintf("profile:%s", modelID)
}

// GetProfile retrieves a model's profile, creating a default one on first use.
func (p *Profiler) GetProfile(ctx context.Context, modelID string) (*ModelProfile, error) {
	data, err := p.rdb.HGetAll(ctx, profileKey(modelID)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return p.createDefaultProfile(ctx, modelID)
	}

	profile := &ModelProfile{ModelID: modelID, Status: data["status"]}
	profile.AvgLatencyMS, _ = strconv.ParseInt(data["avg_latency_ms"], 10, 64)
	profile.ErrorRate, _ = strconv.ParseFloat(data["error_rate"], 64)
	profile.TotalSuccesses, _ = strconv.ParseInt(data["total_successes"], 10, 64)
	profile.TotalFailures, _ = strconv.ParseInt(data["total_failures"], 10, 64)
	profile.TotalInputTokens, _ = strconv.ParseInt(data["total_input_tokens"], 10, 64)
	profile.TotalOutputTokens, _ = strconv.ParseInt(data["total_output_tokens"], 10, 64)
	profile.LastHealthCheck, _ = time.Parse(time.RFC3339Nano, data["last_health_check"])
	return profile, nil
}

func (p *Profiler) createDefaultProfile(ctx context.Context, modelID string) (*ModelProfile, error) {
	profile := &ModelProfile{
		ModelID:         modelID,
		AvgLatencyMS:    2000, // reasonable starting point until real samples arrive
		Status:          StatusOnline,
		LastHealthCheck: time.Now(),
	}

	key := profileKey(modelID)
	pipe := p.rdb.Pipeline()
	pipe.HSet(ctx, key, "model_id", profile.ModelID)
	pipe.HSet(ctx, key, "avg_latency_ms", profile.AvgLatencyMS)
	pipe.HSet(ctx, key, "status", profile.Status)
	pipe.HSet(ctx, key, "total_successes", 0)
	pipe.HSet(ctx, key, "total_failures", 0)
	pipe.HSet(ctx, key, "error_rate", 0.0)
	pipe.HSet(ctx, key, "last_health_check", profile.LastHealthCheck.Format(time.RFC3339Nano))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return profile, nil
}

// UpdateOnSuccess folds a successful call into the profile: EWMA latency,
// success count, token totals, and online status.
func (p *Profiler) UpdateOnSuccess(ctx context.Context, modelID string, latency time.Duration, usage api.Usage) {
	key := profileKey(modelID)
	const alpha = 0.1

	current, err := p.rdb.HGet(ctx, key, "avg_latency_ms").Int64()
	if err != nil && err != redis.Nil {
		p.logger.Warn("profiler latency read failed", zap.String("model", modelID), zap.Error(err))
	}
	newLatency := int64(alpha*float64(latency.Milliseconds()) + (1.0-alpha)*float64(current))

	pipe := p.rdb.Pipeline()
	successes := pipe.HIncrBy(ctx, key, "total_successes", 1)
	failures := pipe.HGet(ctx, key, "total_failures")
	pipe.HIncrBy(ctx, key, "total_input_tokens", int64(usage.PromptTokens))
	pipe.HIncrBy(ctx, key, "total_output_tokens", int64(usage.CompletionTokens))
	pipe.HSet(ctx, key, "avg_latency_ms", newLatency)
	pipe.HSet(ctx, key, "status", StatusOnline)
	if _, err := pipe.Exec(ctx); err != nil {
		p.logger.Warn("profiler success update failed", zap.String("model", modelID), zap.Error(err))
		return
	}

	totalFailures, _ := strconv.ParseInt(failures.Val(), 10, 64)
	p.writeErrorRate(ctx, key, successes.Val(), totalFailures)
}

// UpdateOnFailure records a failed call and marks the model degraded.
func (p *Profiler) UpdateOnFailure(ctx context.Context, modelID string) {
	key := profileKey(modelID)

	pipe := p.rdb.Pipeline()
	failures := pipe.HIncrBy(ctx, key, "total_failures", 1)
	successes := pipe.HGet(ctx, key, "total_successes")
	pipe.HSet(ctx, key, "status", StatusDegraded)
	if _, err := pipe.Exec(ctx); err != nil {
		p.logger.Warn("profiler failure update failed", zap.String("model", modelID), zap.Error(err))
		return
	}

	totalSuccesses, _ := strconv.ParseInt(successes.Val(), 10, 64)
	p.writeErrorRate(ctx, key, totalSuccesses, failures.Val())
}

func (p *Profiler) writeErrorRate(ctx context.Context, key string, successes, failures int64) {
	total := successes + failures
	if total == 0 {
		return
	}
	rate := float64(failures) / float64(total)
	if err := p.rdb.HSet(ctx, key, "error_rate", rate).Err(); err != nil {
		p.logger.Warn("profiler error-rate update failed", zap.String("key", key), zap.Error(err))
	}
}

// UpdateOnHealthCheck records the outcome of a proactive probe. It ensures a
// full profile exists first so probes never leave partial hashes behind.
func (p *Profiler) UpdateOnHealthCheck(ctx context.Context, modelID string, healthy bool) {
	if _, err := p.GetProfile(ctx, modelID); err != nil {
		p.logger.Warn("profiler profile ensure failed", zap.String("model", modelID), zap.Error(err))
	}

	status := StatusOffline
	if healthy {
		status = StatusOnline
	}

	key := profileKey(modelID)
	pipe := p.rdb.Pipeline()
	pipe.HSet(ctx, key, "status", status)
	pipe.HSet(ctx, key, "last_health_check", time.Now().Format(time.RFC3339Nano))
	if _, err := pipe.Exec(ctx); err != nil {
		p.logger.Warn("profiler health-check update failed", zap.String("model", modelID), zap.Error(err))
	}
}
