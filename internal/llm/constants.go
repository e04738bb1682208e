package llm

import "time"

// Shared client tuning, centralized to avoid per-client drift.
const (
	defaultTimeout    = 120 * time.Second
	maxRetries        = 3
	initialRetryDelay = 2 * time.Second
)
