package textextract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/claims-pipeline/internal/core/domain"
)

type PlainTextExtractor struct{}

func NewPlainTextExtractor() *PlainTextExtractor { return &PlainTextExtractor{} }

func (e *PlainTextExtractor) ExtractText(_ context.Context, doc domain.RawDocument) (domain.ExtractedText, error) {
	if !utf8.Valid(doc.Content) {
		return domain.ExtractedText{}, fmt.Errorf("document %s is not valid utf-8 text", doc.Filename)
	}

	text := strings.TrimSpace(string(doc.Content))
	if text == "" {
		return domain.ExtractedText{}, fmt.Errorf("document %s has no extractable text", doc.Filename)
	}

	return domain.ExtractedText{
		Text:     text,
		Language: DetectLanguage(text),
	}, nil
}
