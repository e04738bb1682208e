package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"weather-assistant/internal/guard"
)

// ModelConfig is one entry in the config.yaml model catalog.
type ModelConfig struct {
	ID       string `yaml:"id" json:"id"`
	Label    string `yaml:"label" json:"label"`
	Provider string `yaml:"provider" json:"provider"` // "openrouter" or "gemini"
}

// GuardConfig holds the guard budgets and the canned refusal text.
type GuardConfig struct {
	Model            string
	MaxOutputRetries int
	RefusalMessage   string
}

// fileGuard is the raw yaml shape. The retry budget is a pointer so an
// explicit zero (single-attempt guard) is distinguishable from unset.
type fileGuard struct {
	Model            string `yaml:"model"`
	MaxOutputRetries *int   `yaml:"max_output_retries"`
	RefusalMessage   string `yaml:"refusal_message"`
}

type fileConfig struct {
	Models []ModelConfig `yaml:"models"`
	Guard  fileGuard     `yaml:"guard"`
}

// AppConfig is everything the composition root needs, merged from the
// environment and config.yaml.
type AppConfig struct {
	Port             string
	LogLevel         string
	RedisAddr        string
	OpenRouterAPIKey string
	GeminiAPIKey     string
	DefaultModel     string
	Models           []ModelConfig
	Guard            GuardConfig
}

// LoadConfig reads .env (local development only), environment variables, and
// config.yaml. Missing required keys fail fast.
func LoadConfig() (*AppConfig, error) {
	// In containers (GIN_MODE=release) configuration arrives as real
	// environment variables, not a .env file.
	if os.Getenv("GIN_MODE") != "release" {
		if err := godotenv.Load(); err != nil {
			log.Println("no .env file found, relying on system environment")
		}
	}

	cfg := &AppConfig{
		Port:             envOr("PORT", "8080"),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		DefaultModel:     os.Getenv("OPENROUTER_MODEL"),
	}

	if cfg.OpenRouterAPIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY environment variable is not set")
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR environment variable is not set")
	}

	raw, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, fmt.Errorf("read config.yaml: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("parse config.yaml: %w", err)
	}
	if len(fc.Models) == 0 {
		return nil, fmt.Errorf("config.yaml defines no models")
	}
	cfg.Models = fc.Models
	cfg.Guard = GuardConfig{
		Model:            fc.Guard.Model,
		MaxOutputRetries: guard.DefaultMaxRetries,
		RefusalMessage:   fc.Guard.RefusalMessage,
	}
	if fc.Guard.MaxOutputRetries != nil {
		cfg.Guard.MaxOutputRetries = *fc.Guard.MaxOutputRetries
	}

	if guardModel := os.Getenv("GUARD_MODEL"); guardModel != "" {
		cfg.Guard.Model = guardModel
	}
	if cfg.Guard.Model == "" {
		return nil, fmt.Errorf("no guard model configured")
	}
	if cfg.Guard.RefusalMessage == "" {
		cfg.Guard.RefusalMessage = "I'm a weather assistant, so I can only help with weather-related questions. Ask me about the forecast, current conditions, or historical weather anywhere in the world."
	}

	if cfg.DefaultModel == "" {
		cfg.DefaultModel = fc.Models[0].ID
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
