// Package gemini backs the reasoning port with the Google Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/kirillkom/claims-pipeline/internal/core/domain"
	"github.com/kirillkom/claims-pipeline/internal/core/ports"
	"github.com/kirillkom/claims-pipeline/internal/infrastructure/reasoning"
)

type Client struct {
	client *genai.Client
	model  string
	log    *slog.Logger
}

var _ ports.ReasoningGateway = (*Client)(nil)

func NewClient(ctx context.Context, apiKey, model string, log *slog.Logger) (*Client, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{client: cl, model: model, log: log}, nil
}

func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *Client) Classify(ctx context.Context, excerpt string, labels []string) (json.RawMessage, error) {
	raw, err := c.generate(ctx, "classify", reasoning.ClassifySystem(labels), excerpt)
	if err != nil {
		return nil, wrapUnavailable("classify document", err)
	}
	return raw, nil
}

func (c *Client) ExtractFields(ctx context.Context, docType domain.DocumentType, text, schemaJSON string) (json.RawMessage, error) {
	raw, err := c.generate(ctx, "extract", reasoning.ExtractSystem(docType, schemaJSON), reasoning.BoundText(text))
	if err != nil {
		return nil, wrapUnavailable("extract fields", err)
	}
	return raw, nil
}

func (c *Client) generate(ctx context.Context, operation, system, user string) (json.RawMessage, error) {
	start := time.Now()
	c.log.Info("llm."+operation+".start", "model", c.model, "text_len", len(user))

	m := c.client.GenerativeModel(c.model)
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}
	m.ResponseMIMEType = "application/json"

	resp, err := m.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		c.log.Error("llm."+operation+".error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty %s reply from model", operation)
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	content := strings.TrimSpace(b.String())
	if content == "" {
		return nil, fmt.Errorf("empty %s reply from model", operation)
	}

	c.log.Info("llm."+operation+".ok", "elapsed_ms", time.Since(start).Milliseconds(), "reply_bytes", len(content))
	return json.RawMessage(content), nil
}

// wrapUnavailable marks outage-class failures so the pipeline can tell a
// down backend apart from a bad reply. Cancellation and quota-free API
// rejections pass through untouched.
func wrapUnavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 408 || apiErr.Code == 429 || apiErr.Code >= 500 {
			return domain.WrapError(domain.ErrGatewayUnavailable, op, err)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.WrapError(domain.ErrGatewayUnavailable, op, err)
	}
	return err
}
