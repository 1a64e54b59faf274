package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/claims-pipeline/internal/config"
	"github.com/kirillkom/claims-pipeline/internal/core/domain"
	"github.com/kirillkom/claims-pipeline/internal/core/ports"
	"github.com/kirillkom/claims-pipeline/internal/core/usecase"
	"github.com/kirillkom/claims-pipeline/internal/infrastructure/reasoning/gemini"
	"github.com/kirillkom/claims-pipeline/internal/infrastructure/reasoning/mock"
	"github.com/kirillkom/claims-pipeline/internal/infrastructure/reasoning/openai"
	"github.com/kirillkom/claims-pipeline/internal/infrastructure/resilience"
	"github.com/kirillkom/claims-pipeline/internal/infrastructure/textextract"
	"github.com/kirillkom/claims-pipeline/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Rules  domain.Rules

	Processor ports.ClaimProcessor
	Pipeline  *metrics.PipelineMetrics
	HTTP      *metrics.HTTPServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger := slog.Default()

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	reasoner, closeReasoner, err := newReasoner(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init reasoning backend: %w", err)
	}

	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(registry, "api")
	httpMetrics := metrics.NewHTTPServerMetrics(registry, "api")

	processor := usecase.NewProcessClaimUsecase(
		textextract.NewComposite(),
		usecase.NewClassificationStage(reasoner),
		usecase.NewExtractionStage(reasoner, cfg.ExtractRetries),
		usecase.NewConsistencyValidator(rules),
		usecase.NewDecisionEngine(rules),
		logger,
		cfg.MaxConcurrentDocs,
		time.Duration(cfg.DocTimeoutSeconds)*time.Second,
	)

	return &App{
		Config:    cfg,
		Rules:     rules,
		Processor: processor,
		Pipeline:  pipelineMetrics,
		HTTP:      httpMetrics,
		closeFn:   closeReasoner,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// newReasoner selects the LLM backend. The returned close function is
// never nil.
func newReasoner(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.ReasoningGateway, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case "openai", "":
		client := openai.NewClient(openai.Config{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.OpenAIModel,
			Temperature: float32(cfg.OpenAITemperature),
			Timeout:     time.Duration(cfg.LLMTimeoutSeconds) * time.Second,
			RatePerSec:  cfg.LLMRatePerSec,
			RateBurst:   cfg.LLMRateBurst,
		}, resilienceConfig(cfg), logger)
		return client, func() {}, nil

	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			return nil, nil, err
		}
		return client, func() { _ = client.Close() }, nil

	case "mock":
		return mock.New(logger), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	rc := resilience.DefaultConfig()
	if cfg.LLMRetryAttempts > 0 {
		rc.RetryMaxAttempts = cfg.LLMRetryAttempts
	}
	rc.BreakerEnabled = cfg.LLMBreakerEnabled
	return rc
}
