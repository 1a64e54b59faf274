package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kirillkom/claims-pipeline/internal/core/domain"
	"github.com/kirillkom/claims-pipeline/internal/core/ports"
)

// extractionDescriptor is one row of the per-type dispatch table. Adding a
// document type means adding a row; stage logic never switches on the type.
type extractionDescriptor struct {
	required []string
	schema   map[string]any
}

func extractionTable() map[domain.DocumentType]extractionDescriptor {
	table := make(map[domain.DocumentType]extractionDescriptor)
	for _, t := range domain.DocumentTypes() {
		required := domain.RequiredFields(t)
		if len(required) == 0 {
			continue
		}
		table[t] = extractionDescriptor{
			required: required,
			schema:   buildFieldSchema(t, required),
		}
	}
	return table
}

// buildFieldSchema returns a JSON-Schema (draft 2020-12 subset) as a generic
// map. It is rendered into the reasoning prompt as an output constraint and
// used locally to validate the reply. Required keys must be present but may
// be null; the model reports its own confidence.
func buildFieldSchema(t domain.DocumentType, required []string) map[string]any {
	props := make(map[string]any, len(required)+1)
	for _, key := range required {
		switch {
		case key == "medicines":
			props[key] = map[string]any{
				"type": []string{"array", "null"},
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"name": map[string]any{"type": "string", "minLength": 1},
						"cost": decimalProp(),
					},
					"required": []string{"name", "cost"},
				},
			}
		case key == "total_amount":
			props[key] = decimalProp()
		case isDateField(key):
			props[key] = map[string]any{
				"type":    []string{"string", "null"},
				"pattern": `^\d{4}-\d{2}-\d{2}$`,
			}
		default:
			props[key] = map[string]any{"type": []string{"string", "null"}}
		}
	}
	props["confidence"] = map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             append(append([]string{}, required...), "confidence"),
	}
}

func decimalProp() map[string]any {
	return map[string]any{
		"type":    []string{"string", "null"},
		"pattern": `^-?\d+(\.\d{1,2})?$`,
	}
}

type ExtractionStage struct {
	reasoner ports.ReasoningGateway
	table    map[domain.DocumentType]extractionDescriptor
	retries  int
}

// NewExtractionStage builds the stage with the given count of retries after
// a malformed reply. Transport failures are not retried here; the gateway
// adapters own transport resilience.
func NewExtractionStage(reasoner ports.ReasoningGateway, retries int) *ExtractionStage {
	if retries < 0 {
		retries = 0
	}
	return &ExtractionStage{
		reasoner: reasoner,
		table:    extractionTable(),
		retries:  retries,
	}
}

// Extract produces the structured record for one classified document. On
// failure the returned record is the degraded stand-in for the document and
// the error carries the failure kind; callers keep the record and surface
// the error.
func (s *ExtractionStage) Extract(ctx context.Context, doc domain.ClassifiedDocument) (domain.ExtractedRecord, error) {
	desc, ok := s.table[doc.Type]
	if !ok {
		return domain.ExtractedRecord{
			Filename:   doc.Filename,
			Type:       domain.DocTypeUnknown,
			Fields:     map[string]any{},
			Confidence: 0,
			Language:   doc.Language,
			IsScanned:  doc.IsScanned,
			RawText:    doc.Text,
		}, nil
	}

	schemaJSON, err := json.Marshal(desc.schema)
	if err != nil {
		return s.degraded(doc, err), domain.WrapError(domain.ErrExtractionFailed, "render field schema", err)
	}

	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		raw, err := s.reasoner.ExtractFields(ctx, doc.Type, doc.Text, string(schemaJSON))
		if err != nil {
			wrapped := domain.WrapError(domain.ErrExtractionFailed, "extract fields", err)
			return s.degraded(doc, wrapped), wrapped
		}

		record, err := s.decodeRecord(doc, raw, desc)
		if err == nil {
			return record, nil
		}
		lastErr = err
	}

	wrapped := domain.WrapError(domain.ErrExtractionMalformed, "extract fields", lastErr)
	return s.degraded(doc, wrapped), wrapped
}

func (s *ExtractionStage) decodeRecord(doc domain.ClassifiedDocument, raw json.RawMessage, desc extractionDescriptor) (domain.ExtractedRecord, error) {
	payload, err := normalizeFieldPayload(extractJSONObject(raw), desc.required)
	if err != nil {
		return domain.ExtractedRecord{}, err
	}
	if err := validateAgainstSchema(desc.schema, payload); err != nil {
		return domain.ExtractedRecord{}, err
	}

	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return domain.ExtractedRecord{}, fmt.Errorf("decode field payload: %w", err)
	}

	confidence := 0.0
	if v, ok := fields["confidence"].(float64); ok {
		confidence = clamp01(v)
	}
	delete(fields, "confidence")

	return domain.ExtractedRecord{
		Filename:   doc.Filename,
		Type:       doc.Type,
		Fields:     fields,
		Confidence: confidence,
		Language:   doc.Language,
		IsScanned:  doc.IsScanned,
		RawText:    doc.Text,
	}, nil
}

func (s *ExtractionStage) degraded(doc domain.ClassifiedDocument, cause error) domain.ExtractedRecord {
	text := domain.ExtractedText{
		Text:      doc.Text,
		IsScanned: doc.IsScanned,
		Language:  doc.Language,
	}
	return domain.NewDegradedRecord(doc.Filename, doc.Type, text, cause.Error())
}

// validateAgainstSchema checks "data" against "schemaMap".
func validateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("payload does not match schema: %w", err)
	}
	return nil
}
