package textextract

import "github.com/kirillkom/claims-pipeline/internal/core/domain"

// scriptRange is one contiguous Unicode block mapped to a language tag.
type scriptRange struct {
	lo, hi rune
	lang   domain.Language
}

var scriptRanges = []scriptRange{
	{0x0900, 0x097F, domain.LangHindi},
	{0x0C00, 0x0C7F, domain.LangTelugu},
	{0x0C80, 0x0CFF, domain.LangKannada},
	{0x0B80, 0x0BFF, domain.LangTamil},
}

// detectThreshold is how many characters of one script must appear before
// the document counts as written in that script's language.
const detectThreshold = 10

// DetectLanguage tags text by counting script characters. Latin-only text
// maps to English; sparse or unrecognized text stays unknown.
func DetectLanguage(text string) domain.Language {
	counts := make(map[domain.Language]int, len(scriptRanges))
	ascii := 0
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			ascii++
			continue
		}
		for _, sr := range scriptRanges {
			if r >= sr.lo && r <= sr.hi {
				counts[sr.lang]++
				break
			}
		}
	}

	best := domain.LangUnknown
	bestCount := 0
	for _, sr := range scriptRanges {
		if c := counts[sr.lang]; c > bestCount {
			best, bestCount = sr.lang, c
		}
	}
	if bestCount > detectThreshold {
		return best
	}
	if ascii > bestCount && ascii > 0 {
		return domain.LangEnglish
	}
	return domain.LangUnknown
}
