package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/claims-pipeline/internal/core/domain"
	"github.com/kirillkom/claims-pipeline/internal/infrastructure/resilience"
)

func testResilience() resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	}
}

func testClient(baseURL string) *Client {
	return NewClient(
		Config{APIKey: "test-key", BaseURL: baseURL, Model: "test-model"},
		testResilience(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(b)
}

func TestClassifySendsLabelsAndReturnsContent(t *testing.T) {
	var captured map[string]any
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(chatReply(`{"label":"bill","confidence":0.9}`)))
	}))
	defer server.Close()

	client := testClient(server.URL)
	raw, err := client.Classify(context.Background(), "Apollo Hospitals final bill", []string{"bill", "id_card", "unknown"})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if string(raw) != `{"label":"bill","confidence":0.9}` {
		t.Fatalf("unexpected reply payload: %s", raw)
	}
	if auth != "Bearer test-key" {
		t.Fatalf("expected bearer auth, got %q", auth)
	}
	if captured["model"] != "test-model" {
		t.Fatalf("expected test-model, got %v", captured["model"])
	}
	b, _ := json.Marshal(captured["messages"])
	if !strings.Contains(string(b), "bill, id_card, unknown") {
		t.Fatalf("expected label set in prompt, got %s", b)
	}
	if !strings.Contains(string(b), "Apollo Hospitals final bill") {
		t.Fatalf("expected excerpt in prompt, got %s", b)
	}
}

func TestExtractFieldsCarriesSchema(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(chatReply(`{"hospital_name":"Apollo","confidence":0.8}`)))
	}))
	defer server.Close()

	client := testClient(server.URL)
	schema := `{"type":"object","required":["hospital_name"]}`
	_, err := client.ExtractFields(context.Background(), domain.DocTypeBill, "bill text", schema)
	if err != nil {
		t.Fatalf("ExtractFields() error = %v", err)
	}
	b, _ := json.Marshal(captured["messages"])
	if !strings.Contains(string(b), "hospital_name") {
		t.Fatalf("expected schema in prompt, got %s", b)
	}
	if !strings.Contains(string(b), "bill text") {
		t.Fatalf("expected document text in prompt, got %s", b)
	}
}

func TestRetriesServerErrorThenSucceeds(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "backend hiccup", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(chatReply(`{"label":"bill","confidence":0.9}`)))
	}))
	defer server.Close()

	client := testClient(server.URL)
	if _, err := client.Classify(context.Background(), "text", []string{"bill"}); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected retry after 500, got %d calls", calls)
	}
}

func TestUnavailableAfterPersistentOutage(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "service down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.Classify(context.Background(), "text", []string{"bill"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("expected gateway unavailable kind, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if !strings.Contains(err.Error(), "service down") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestBadRequestIsNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "invalid model", http.StatusBadRequest)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.Classify(context.Background(), "text", []string{"bill"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if domain.IsKind(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("a rejected request is not an outage: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected single attempt, got %d", calls)
	}
}

func TestEmptyChoicesIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.Classify(context.Background(), "text", []string{"bill"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "no choices") {
		t.Fatalf("unexpected error: %v", err)
	}
}
