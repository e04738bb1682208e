package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"weather-assistant/internal/guard"
	"weather-assistant/internal/llm"
	"weather-assistant/internal/observability"
	"weather-assistant/internal/tools"
	"weather-assistant/internal/version"
	"weather-assistant/internal/weather"
)

// main is the composition root: it loads configuration, wires every service
// together, and runs the server until a shutdown signal arrives.
func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger setup: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	info := version.Get()
	logger.Info("starting weather assistant",
		zap.String("version", info.Version),
		zap.String("commit", info.GitCommit),
		zap.String("build_date", info.BuildDate),
	)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		logger.Fatal("could not connect to redis", zap.Error(err))
	}
	profiler := llm.NewProfiler(rdb, logger)

	clients, err := initializeLLMClients(cfg, logger)
	if err != nil {
		logger.Fatal("llm client setup", zap.Error(err))
	}

	weatherClient := weather.NewClient(logger)
	manager := initializeToolManager(weatherClient, logger)

	guardClient, err := llm.NewOpenRouterClient(cfg.OpenRouterAPIKey)
	if err != nil {
		logger.Fatal("guard client setup", zap.Error(err))
	}
	classifier := guard.NewLLMClassifier(guardClient, cfg.Guard.Model)

	handler := NewChatHandler(clients, profiler, manager, classifier, cfg, clockwork.NewRealClock(), logger)

	go startHealthChecker(cfg.Models, clients, profiler, logger)

	gin.SetMode(os.Getenv("GIN_MODE"))
	engine := gin.New()
	engine.Use(gin.Recovery())

	v1 := engine.Group("/api/v1")
	{
		v1.POST("/chat", InputGuard(classifier, cfg.Guard.RefusalMessage, logger), handler.HandleChat)
		v1.GET("/models", handler.HandleModels)
	}
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": info.Version})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{Addr: fmt.Sprintf(":%s", cfg.Port), Handler: engine}
	runServerWithGracefulShutdown(srv, logger)
}

// initializeLLMClients builds one client per configured model. A missing
// Gemini key skips Gemini entries instead of failing the whole service.
func initializeLLMClients(cfg *AppConfig, logger *zap.Logger) (map[string]llm.LLMClient, error) {
	clients := make(map[string]llm.LLMClient, len(cfg.Models))
	for _, m := range cfg.Models {
		switch m.Provider {
		case "openrouter":
			client, err := llm.NewOpenRouterClient(cfg.OpenRouterAPIKey)
			if err != nil {
				return nil, fmt.Errorf("openrouter client for %s: %w", m.ID, err)
			}
			clients[m.ID] = client
		case "gemini":
			if cfg.GeminiAPIKey == "" {
				logger.Warn("GEMINI_API_KEY not set, skipping model", zap.String("model", m.ID))
				continue
			}
			client, err := llm.NewGeminiClient(cfg.GeminiAPIKey, m.ID)
			if err != nil {
				return nil, fmt.Errorf("gemini client for %s: %w", m.ID, err)
			}
			clients[m.ID] = client
		default:
			return nil, fmt.Errorf("unknown provider %q for model %s", m.Provider, m.ID)
		}
	}
	if len(clients) == 0 {
		return nil, errors.New("no usable models configured")
	}
	logger.Info("llm clients initialized", zap.Int("count", len(clients)))
	return clients, nil
}

// initializeToolManager registers the weather toolset.
func initializeToolManager(client *weather.Client, logger *zap.Logger) *tools.Manager {
	manager := tools.NewManager()
	manager.Register(tools.NewGeocodeTool(client))
	manager.Register(tools.NewForecastTool(client))
	manager.Register(tools.NewHistoryTool(client))
	logger.Info("tool manager initialized", zap.Int("tools", manager.Count()))
	return manager
}

// startHealthChecker probes every configured model on a fixed interval and
// records the result in the profiler. The first sweep runs immediately so a
// fresh deployment does not sit unprofiled for a full tick.
func startHealthChecker(models []ModelConfig, clients map[string]llm.LLMClient, profiler *llm.Profiler, logger *zap.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	probe := []llm.Message{{Role: llm.RoleUser, Content: "Reply with the word OK."}}

	runChecks := func() {
		for _, m := range models {
			client, ok := clients[m.ID]
			if !ok {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			_, err := client.Generate(ctx, probe, &llm.GenerationConfig{Model: m.ID, MaxTokens: 5}, nil)
			cancel()

			healthy := err == nil
			profiler.UpdateOnHealthCheck(context.Background(), m.ID, healthy)
			logger.Debug("health check",
				zap.String("model", m.ID),
				zap.Bool("healthy", healthy),
			)
		}
	}

	runChecks()
	for range ticker.C {
		runChecks()
	}
}

// runServerWithGracefulShutdown blocks until SIGINT/SIGTERM, then drains
// in-flight requests before exiting.
func runServerWithGracefulShutdown(srv *http.Server, logger *zap.Logger) {
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server shutdown failed", zap.Error(err))
	}
	logger.Info("server exited")
}
