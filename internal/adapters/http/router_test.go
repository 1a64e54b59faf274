package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/kirillkom/claims-pipeline/internal/config"
	"github.com/kirillkom/claims-pipeline/internal/core/domain"
)

type processorFake struct {
	report  *domain.ClaimReport
	err     error
	gotDocs []domain.RawDocument
}

func (f *processorFake) ProcessClaim(_ context.Context, docs []domain.RawDocument) (*domain.ClaimReport, error) {
	f.gotDocs = docs
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func stubReport() *domain.ClaimReport {
	return &domain.ClaimReport{
		ClaimID: "claim-7",
		Records: []domain.ExtractedRecord{
			{
				Filename:   "bill.pdf",
				Type:       domain.DocTypeBill,
				Fields:     map[string]any{"hospital_name": "Apollo Hospitals"},
				Confidence: 0.92,
				Language:   domain.LangEnglish,
			},
		},
		Validation: domain.ValidationResult{IsValid: true},
		Decision: domain.ClaimDecision{
			Status:     domain.StatusApproved,
			Reason:     "all documents consistent and confidently extracted",
			Confidence: 0.87,
		},
		ElapsedSeconds: 1.2,
	}
}

func newTestHandler(cfg config.Config) http.Handler {
	return newTestHandlerWith(cfg, &processorFake{report: stubReport()})
}

func newTestHandlerWith(cfg config.Config, processor *processorFake) http.Handler {
	return NewRouter(cfg, processor, nil, nil).Handler()
}

type uploadFile struct {
	name    string
	content string
	mime    string
}

func multipartBody(t *testing.T, files []uploadFile) (*bytes.Buffer, string) {
	t.Helper()

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, uploadField, f.name))
		if f.mime != "" {
			header.Set("Content-Type", f.mime)
		}
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write([]byte(f.content)); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return buf, writer.FormDataContentType()
}

func postClaim(t *testing.T, handler http.Handler, target string, files []uploadFile) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := multipartBody(t, files)
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestHealthzReportsOK(t *testing.T) {
	handler := newTestHandler(config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var payload map[string]string
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if payload["status"] != "ok" {
		t.Fatalf("expected status ok, got %q", payload["status"])
	}
}

func TestDocumentTypesListsContracts(t *testing.T) {
	handler := newTestHandler(config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/v1/document-types", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var payload struct {
		DocumentTypes []struct {
			Type           string   `json:"type"`
			RequiredFields []string `json:"required_fields"`
		} `json:"document_types"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.DocumentTypes) != 4 {
		t.Fatalf("expected 4 document types, got %d", len(payload.DocumentTypes))
	}
	if payload.DocumentTypes[0].Type != "bill" {
		t.Fatalf("expected bill first, got %q", payload.DocumentTypes[0].Type)
	}
	found := false
	for _, f := range payload.DocumentTypes[0].RequiredFields {
		if f == "hospital_name" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected hospital_name in bill contract, got %v", payload.DocumentTypes[0].RequiredFields)
	}
}

func TestDocumentTypesRejectsPost(t *testing.T) {
	handler := newTestHandler(config.Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/document-types", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestProcessClaimReturnsReport(t *testing.T) {
	fake := &processorFake{report: stubReport()}
	handler := newTestHandlerWith(config.Config{}, fake)

	res := postClaim(t, handler, "/v1/claims/process", []uploadFile{
		{name: "bill.pdf", content: "%PDF-1.4 bill body", mime: "application/pdf"},
		{name: "card.txt", content: "policy POL-1 member Rahul", mime: "text/plain"},
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var report domain.ClaimReport
	if err := json.NewDecoder(res.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.ClaimID != "claim-7" {
		t.Fatalf("expected claim-7, got %q", report.ClaimID)
	}

	if len(fake.gotDocs) != 2 {
		t.Fatalf("expected 2 documents handed to the pipeline, got %d", len(fake.gotDocs))
	}
	if fake.gotDocs[0].Filename != "bill.pdf" {
		t.Fatalf("expected bill.pdf first, got %q", fake.gotDocs[0].Filename)
	}
	if string(fake.gotDocs[0].Content) != "%PDF-1.4 bill body" {
		t.Fatalf("unexpected content: %q", fake.gotDocs[0].Content)
	}
	if fake.gotDocs[0].DeclaredMIME != "application/pdf" {
		t.Fatalf("expected declared mime to pass through, got %q", fake.gotDocs[0].DeclaredMIME)
	}
}

func TestProcessClaimRequiresFiles(t *testing.T) {
	handler := newTestHandler(config.Config{})

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	if err := writer.WriteField("note", "no files here"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/claims/process", buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "files") {
		t.Fatalf("expected error naming the files field, got %s", res.Body.String())
	}
}

func TestProcessClaimEnforcesFileCap(t *testing.T) {
	handler := newTestHandler(config.Config{MaxUploadFiles: 1})

	res := postClaim(t, handler, "/v1/claims/process", []uploadFile{
		{name: "a.txt", content: "a", mime: "text/plain"},
		{name: "b.txt", content: "b", mime: "text/plain"},
	})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "limit") {
		t.Fatalf("expected limit error, got %s", res.Body.String())
	}
}

func TestProcessClaimMapsInvalidInputTo400(t *testing.T) {
	fake := &processorFake{err: domain.WrapError(domain.ErrInvalidInput, "process claim", errors.New("no documents provided"))}
	handler := newTestHandlerWith(config.Config{}, fake)

	res := postClaim(t, handler, "/v1/claims/process", []uploadFile{
		{name: "bill.txt", content: "bill", mime: "text/plain"},
	})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestProcessClaimMapsPipelineFailureTo502(t *testing.T) {
	cause := domain.WrapError(domain.ErrGatewayUnavailable, "classify document", errors.New("connection refused"))
	fake := &processorFake{err: domain.WrapError(domain.ErrPipelineFailed, "process claim", cause)}
	handler := newTestHandlerWith(config.Config{}, fake)

	res := postClaim(t, handler, "/v1/claims/process", []uploadFile{
		{name: "bill.txt", content: "bill", mime: "text/plain"},
	})
	if res.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", res.Code)
	}
}

func TestProcessClaimRejectsGet(t *testing.T) {
	handler := newTestHandler(config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/v1/claims/process", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestProcessClaimWritesWorkbook(t *testing.T) {
	handler := newTestHandler(config.Config{})

	res := postClaim(t, handler, "/v1/claims/process?format=xlsx", []uploadFile{
		{name: "bill.txt", content: "bill", mime: "text/plain"},
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if got := res.Header().Get("Content-Type"); got != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("unexpected content type %q", got)
	}
	if !bytes.HasPrefix(res.Body.Bytes(), []byte("PK")) {
		t.Fatalf("expected xlsx bytes, got %q", res.Body.Bytes()[:min(8, res.Body.Len())])
	}
}

func TestRequestIDIsEchoedAndGenerated(t *testing.T) {
	handler := newTestHandler(config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if got := res.Header().Get(requestIDHeader); got != "req-123" {
		t.Fatalf("expected request id echo, got %q", got)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}
}
