package textextract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/claims-pipeline/internal/core/domain"
)

// scannedTextRunes is the embedded-text floor below which a PDF is treated
// as a scan of a paper document.
const scannedTextRunes = 64

type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor { return &PDFExtractor{} }

// ExtractText pulls the embedded text layer out of a PDF. Image-only scans
// come back flagged IsScanned with whatever text was recoverable, not as an
// error; the pipeline decides what a scan is worth.
func (e *PDFExtractor) ExtractText(_ context.Context, doc domain.RawDocument) (out domain.ExtractedText, err error) {
	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf %s: %v", doc.Filename, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(doc.Content), int64(len(doc.Content)))
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("open pdf %s: %w", doc.Filename, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("extract pdf text from %s: %w", doc.Filename, err)
	}
	var buf strings.Builder
	if _, err := io.Copy(&buf, plain); err != nil {
		return domain.ExtractedText{}, fmt.Errorf("read pdf text from %s: %w", doc.Filename, err)
	}

	text := strings.TrimSpace(buf.String())
	return domain.ExtractedText{
		Text:      text,
		IsScanned: looksScanned(text),
		Language:  DetectLanguage(text),
	}, nil
}

func looksScanned(text string) bool {
	return len([]rune(text)) < scannedTextRunes
}
