package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/claims-pipeline/internal/core/domain"
)

type rulesFile struct {
	ExpectedTypes      []string `yaml:"expected_types"`
	AcceptanceFloor    float64  `yaml:"acceptance_floor"`
	ComparisonFloor    float64  `yaml:"comparison_floor"`
	AmountEpsilon      float64  `yaml:"amount_epsilon"`
	AmountLowPct       float64  `yaml:"amount_low_pct"`
	NameDistanceLow    int      `yaml:"name_distance_low"`
	RejectedConfidence float64  `yaml:"rejected_confidence"`
}

// LoadRules reads threshold overrides from a YAML file. An empty path
// means the built-in defaults; omitted values are zero-filled from them.
func LoadRules(path string) (domain.Rules, error) {
	if strings.TrimSpace(path) == "" {
		return domain.DefaultRules(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Rules{}, fmt.Errorf("read rules file: %w", err)
	}

	var doc rulesFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return domain.Rules{}, fmt.Errorf("parse rules file: %w", err)
	}

	rules := domain.Rules{
		AcceptanceFloor:    doc.AcceptanceFloor,
		ComparisonFloor:    doc.ComparisonFloor,
		AmountEpsilon:      doc.AmountEpsilon,
		AmountLowPct:       doc.AmountLowPct,
		NameDistanceLow:    doc.NameDistanceLow,
		RejectedConfidence: doc.RejectedConfidence,
	}
	for _, s := range doc.ExpectedTypes {
		t, ok := domain.ParseDocumentType(strings.TrimSpace(s))
		if !ok || t == domain.DocTypeUnknown {
			return domain.Rules{}, fmt.Errorf("unknown document type %q in rules file", s)
		}
		rules.ExpectedTypes = append(rules.ExpectedTypes, t)
	}

	return rules.Normalized(), nil
}
