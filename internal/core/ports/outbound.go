package ports

import (
	"context"
	"encoding/json"

	"github.com/kirillkom/claims-pipeline/internal/core/domain"
)

// TextExtractionGateway turns raw document bytes into text.
type TextExtractionGateway interface {
	ExtractText(ctx context.Context, doc domain.RawDocument) (domain.ExtractedText, error)
}

// ReasoningGateway is the LLM collaborator behind classification and field
// extraction. Both operations return the raw model payload; callers own all
// parsing and validation so nothing unchecked crosses into the domain.
type ReasoningGateway interface {
	// Classify asks for one label out of a closed set. The reply payload is
	// expected to carry {"label": ..., "confidence": ...}.
	Classify(ctx context.Context, excerpt string, labels []string) (json.RawMessage, error)
	// ExtractFields asks for the structured fields of one document. The
	// schema is rendered JSON Schema text used as an output constraint.
	ExtractFields(ctx context.Context, docType domain.DocumentType, text, schemaJSON string) (json.RawMessage, error)
}
