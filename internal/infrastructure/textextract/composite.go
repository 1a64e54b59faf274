package textextract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/kirillkom/claims-pipeline/internal/core/domain"
	"github.com/kirillkom/claims-pipeline/internal/core/ports"
)

// sniffLen caps how many leading bytes feed MIME detection.
const sniffLen = 512

// Composite routes a document to the PDF or plain-text extractor. Detection
// order: content sniffing, the MIME type declared at upload, then the
// filename extension.
type Composite struct {
	pdf   *PDFExtractor
	plain *PlainTextExtractor
}

var _ ports.TextExtractionGateway = (*Composite)(nil)

func NewComposite() *Composite {
	return &Composite{pdf: NewPDFExtractor(), plain: NewPlainTextExtractor()}
}

func (c *Composite) ExtractText(ctx context.Context, doc domain.RawDocument) (domain.ExtractedText, error) {
	head := doc.Content
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	detected := mimetype.Detect(head)

	switch {
	case detected.Is("application/pdf"):
		return c.pdf.ExtractText(ctx, doc)
	case strings.HasPrefix(detected.String(), "text/"):
		return c.plain.ExtractText(ctx, doc)
	}

	switch {
	case declaredPDF(doc.DeclaredMIME), strings.EqualFold(filepath.Ext(doc.Filename), ".pdf"):
		return c.pdf.ExtractText(ctx, doc)
	case declaredText(doc.DeclaredMIME), textExtension(doc.Filename):
		return c.plain.ExtractText(ctx, doc)
	}

	return domain.ExtractedText{}, fmt.Errorf("unsupported document format %s for %s", detected.String(), doc.Filename)
}

func declaredPDF(mime string) bool {
	return strings.EqualFold(strings.TrimSpace(mime), "application/pdf")
}

func declaredText(mime string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mime)), "text/")
}

func textExtension(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".text", ".md":
		return true
	}
	return false
}
