// Package reasoning holds what the concrete backends share: the
// instructions sent with every classification and extraction request.
// Backend-specific transport lives in the subpackages.
package reasoning

import (
	"fmt"
	"strings"

	"github.com/kirillkom/claims-pipeline/internal/core/domain"
)

// PromptTextRunes caps how much document text travels in one extraction
// request.
const PromptTextRunes = 6000

// ClassifySystem returns the instruction for labeling one document.
func ClassifySystem(labels []string) string {
	return "You classify one document from an Indian health-insurance claim into exactly one label. " +
		"Labels: " + strings.Join(labels, ", ") + ". " +
		`Reply with JSON only: {"label":"<label>","confidence":<number 0..1>}. ` +
		"Use the label unknown when none fits."
}

// ExtractSystem returns the instruction for structured field extraction.
// The schema is rendered into the prompt and also enforced locally after
// the reply arrives.
func ExtractSystem(docType domain.DocumentType, schemaJSON string) string {
	return fmt.Sprintf(
		"You extract structured fields from the text of an Indian health-insurance %s. "+
			"Return ONLY JSON matching the JSON Schema below. Use null for values you cannot read, "+
			"ISO dates (YYYY-MM-DD), plain decimal amounts without currency symbols, and report your "+
			"own confidence between 0 and 1.\n\nJSON Schema:\n%s",
		docType, schemaJSON,
	)
}

// BoundText trims document text to the request cap without splitting a
// rune.
func BoundText(text string) string {
	runes := []rune(text)
	if len(runes) <= PromptTextRunes {
		return text
	}
	return string(runes[:PromptTextRunes])
}
