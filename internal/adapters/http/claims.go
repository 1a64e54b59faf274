package httpadapter

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kirillkom/claims-pipeline/internal/core/domain"
	"github.com/kirillkom/claims-pipeline/internal/export"
)

// uploadField is the multipart field carrying claim documents.
const uploadField = "files"

func (rt *Router) processClaim(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	maxBytes := int64(rt.cfg.MaxUploadMB) << 20
	if maxBytes <= 0 {
		maxBytes = 25 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	docs, err := rt.readDocuments(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	start := time.Now()
	if rt.pipeline != nil {
		rt.pipeline.StartClaim()
	}
	report, err := rt.processor.ProcessClaim(r.Context(), docs)
	rt.observeClaim(report, err, len(docs), time.Since(start))
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if r.URL.Query().Get("format") == "xlsx" {
		rt.writeWorkbook(w, report)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) readDocuments(r *http.Request) ([]domain.RawDocument, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, fmt.Errorf("invalid multipart request: %w", err)
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File[uploadField]) == 0 {
		return nil, errors.New("multipart field 'files' is required")
	}

	headers := r.MultipartForm.File[uploadField]
	maxFiles := rt.cfg.MaxUploadFiles
	if maxFiles <= 0 {
		maxFiles = 10
	}
	if len(headers) > maxFiles {
		return nil, fmt.Errorf("too many files: %d exceeds the limit of %d", len(headers), maxFiles)
	}

	docs := make([]domain.RawDocument, 0, len(headers))
	for _, h := range headers {
		file, err := h.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", h.Filename, err)
		}
		content, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", h.Filename, err)
		}
		docs = append(docs, domain.RawDocument{
			Filename:     h.Filename,
			Content:      content,
			DeclaredMIME: h.Header.Get("Content-Type"),
		})
	}
	return docs, nil
}

func (rt *Router) writeWorkbook(w http.ResponseWriter, report *domain.ClaimReport) {
	data, err := export.ClaimReportXLSX(report)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "render workbook: " + err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "claim-"+report.ClaimID+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (rt *Router) observeClaim(report *domain.ClaimReport, err error, documents int, elapsed time.Duration) {
	if rt.pipeline == nil {
		return
	}

	status := "error"
	if err == nil && report != nil {
		status = string(report.Decision.Status)
		for _, rec := range report.Records {
			rt.pipeline.RecordDocument(serviceName, string(rec.Type), rec.Degraded)
		}
		for _, d := range report.Validation.Discrepancies {
			rt.pipeline.RecordDiscrepancy(serviceName, string(d.Severity))
		}
	}
	rt.pipeline.FinishClaim(serviceName, status, documents, elapsed)
}
