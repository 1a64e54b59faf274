package usecase

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/kirillkom/claims-pipeline/internal/core/domain"
	"github.com/kirillkom/claims-pipeline/internal/core/ports"
)

// classificationExcerptRunes bounds how much document text travels to the
// reasoning gateway for labeling.
const classificationExcerptRunes = 2000

type ClassificationStage struct {
	reasoner ports.ReasoningGateway
}

func NewClassificationStage(reasoner ports.ReasoningGateway) *ClassificationStage {
	return &ClassificationStage{reasoner: reasoner}
}

type classificationReply struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classify assigns one of the closed document types to a document. A reply
// label outside the set downgrades to unknown with zero confidence; the
// stage never invents a type.
func (s *ClassificationStage) Classify(ctx context.Context, filename string, text domain.ExtractedText) (domain.ClassifiedDocument, error) {
	raw, err := s.reasoner.Classify(ctx, classificationExcerpt(text.Text), classificationLabels())
	if err != nil {
		return domain.ClassifiedDocument{}, domain.WrapError(domain.ErrClassificationFailed, "classify document", err)
	}

	var reply classificationReply
	if err := json.Unmarshal(extractJSONObject(raw), &reply); err != nil {
		return domain.ClassifiedDocument{}, domain.WrapError(domain.ErrClassificationFailed, "parse classification reply", err)
	}

	docType, ok := domain.ParseDocumentType(strings.ToLower(strings.TrimSpace(reply.Label)))
	confidence := clamp01(reply.Confidence)
	if !ok {
		docType = domain.DocTypeUnknown
		confidence = 0
	}

	return domain.ClassifiedDocument{
		Filename:   filename,
		Text:       text.Text,
		IsScanned:  text.IsScanned,
		Language:   text.Language,
		Type:       docType,
		Confidence: confidence,
	}, nil
}

func classificationExcerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= classificationExcerptRunes {
		return text
	}
	return string(runes[:classificationExcerptRunes])
}

func classificationLabels() []string {
	types := domain.DocumentTypes()
	labels := make([]string, 0, len(types))
	for _, t := range types {
		labels = append(labels, string(t))
	}
	return labels
}
