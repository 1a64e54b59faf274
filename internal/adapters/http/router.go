package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kirillkom/claims-pipeline/internal/config"
	"github.com/kirillkom/claims-pipeline/internal/core/domain"
	"github.com/kirillkom/claims-pipeline/internal/core/ports"
	"github.com/kirillkom/claims-pipeline/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	cfg       config.Config
	processor ports.ClaimProcessor
	pipeline  *metrics.PipelineMetrics
	httpM     *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	processor ports.ClaimProcessor,
	pipeline *metrics.PipelineMetrics,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:       cfg,
		processor: processor,
		pipeline:  pipeline,
		httpM:     httpMetrics,
	}
}

// Handler assembles the full chain: request id, access log, metrics,
// rate limiting, then the mux. Backpressure guards only the claims
// route; health checks and scrapes stay cheap.
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/document-types", rt.documentTypes)

	var process http.Handler = http.HandlerFunc(rt.processClaim)
	if rt.cfg.APIMaxInFlight > 0 {
		wait := time.Duration(rt.cfg.APIBackpressureWaitMS) * time.Millisecond
		process = backpressureMiddleware(process, rt.cfg.APIMaxInFlight, wait, func() {
			if rt.httpM != nil {
				rt.httpM.RecordRejected(serviceName, "backpressure")
			}
		})
	}
	mux.Handle("/v1/claims/process", process)

	if rt.httpM != nil {
		mux.Handle("/metrics", rt.httpM.Handler())
	}

	var handler http.Handler = mux
	if rt.cfg.APIRateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, func() {
			if rt.httpM != nil {
				rt.httpM.RecordRejected(serviceName, "rate_limit")
			}
		})
	}
	if rt.httpM != nil {
		handler = rt.httpM.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) documentTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	type docTypeInfo struct {
		Type           domain.DocumentType `json:"type"`
		RequiredFields []string            `json:"required_fields"`
	}
	types := make([]docTypeInfo, 0, len(domain.DocumentTypes()))
	for _, t := range domain.DocumentTypes() {
		if t == domain.DocTypeUnknown {
			continue
		}
		types = append(types, docTypeInfo{Type: t, RequiredFields: domain.RequiredFields(t)})
	}

	writeJSON(w, http.StatusOK, map[string]any{"document_types": types})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
