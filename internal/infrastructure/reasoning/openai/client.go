package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/claims-pipeline/internal/core/domain"
	"github.com/kirillkom/claims-pipeline/internal/core/ports"
	"github.com/kirillkom/claims-pipeline/internal/infrastructure/reasoning"
	"github.com/kirillkom/claims-pipeline/internal/infrastructure/resilience"
)

type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	exec       *resilience.Executor
	log        *slog.Logger
}

var _ ports.ReasoningGateway = (*Client)(nil)

func NewClient(cfg Config, resCfg resilience.Config, log *slog.Logger) *Client {
	cfg = cfg.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, cfg.RateBurst),
		exec:       resilience.NewExecutor(resCfg, classifyTransportError, log),
		log:        log,
	}
}

func (c *Client) Classify(ctx context.Context, excerpt string, labels []string) (json.RawMessage, error) {
	raw, err := c.complete(ctx, "classify", reasoning.ClassifySystem(labels), excerpt)
	if err != nil {
		return nil, wrapUnavailable("classify document", err)
	}
	return raw, nil
}

func (c *Client) ExtractFields(ctx context.Context, docType domain.DocumentType, text, schemaJSON string) (json.RawMessage, error) {
	raw, err := c.complete(ctx, "extract", reasoning.ExtractSystem(docType, schemaJSON), reasoning.BoundText(text))
	if err != nil {
		return nil, wrapUnavailable("extract fields", err)
	}
	return raw, nil
}

func (c *Client) complete(ctx context.Context, operation, system, user string) (json.RawMessage, error) {
	start := time.Now()
	c.log.Info("llm."+operation+".start", "model", c.cfg.Model, "text_len", len(user))

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}

	var raw []byte
	err := c.exec.Do(ctx, operation, func(ctx context.Context) error {
		var postErr error
		raw, postErr = c.post(ctx, "/chat/completions", body)
		return postErr
	})
	if err != nil {
		c.log.Error("llm."+operation+".error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	var reply struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", operation, err)
	}
	if len(reply.Choices) == 0 {
		return nil, fmt.Errorf("no choices in %s response", operation)
	}
	content := strings.TrimSpace(reply.Choices[0].Message.Content)

	c.log.Info("llm."+operation+".ok", "elapsed_ms", time.Since(start).Milliseconds(), "reply_bytes", len(content))
	return json.RawMessage(content), nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reasoning backend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &HTTPStatusError{
			Operation:  path,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(detail)),
		}
	}
	return io.ReadAll(resp.Body)
}
