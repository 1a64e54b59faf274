package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/claims-pipeline/internal/core/domain"
)

const (
	approvedReason = "all documents consistent and confidently extracted"

	lowPenalty          = 0.05
	mediumPenalty       = 0.15
	manualReviewCeiling = 0.60
)

type DecisionEngine struct {
	rules domain.Rules
}

func NewDecisionEngine(rules domain.Rules) *DecisionEngine {
	return &DecisionEngine{rules: rules.Normalized()}
}

// Decide maps a validation result and the run's records onto the final
// recommendation. Everything here is arithmetic over its inputs; the reason
// text is assembled, never taken from a model reply.
func (e *DecisionEngine) Decide(validation domain.ValidationResult, records []domain.ExtractedRecord) domain.ClaimDecision {
	var lows, mediums, highs int
	for _, d := range validation.Discrepancies {
		switch d.Severity {
		case domain.SeverityLow:
			lows++
		case domain.SeverityMedium:
			mediums++
		case domain.SeverityHigh:
			highs++
		}
	}

	minConf := minConfidence(records)
	subFloor := e.subFloorRecords(records)

	switch {
	case highs > 0:
		return domain.ClaimDecision{
			Status:     domain.StatusRejected,
			Reason:     e.buildReason(validation, subFloor),
			Confidence: e.rules.RejectedConfidence,
		}
	case validation.IsValid && len(subFloor) == 0:
		return domain.ClaimDecision{
			Status:     domain.StatusApproved,
			Reason:     approvedReason,
			Confidence: clamp01(minConf - lowPenalty*float64(lows)),
		}
	default:
		conf := minConf - mediumPenalty*float64(mediums)
		if conf > manualReviewCeiling {
			conf = manualReviewCeiling
		}
		return domain.ClaimDecision{
			Status:     domain.StatusManualReview,
			Reason:     e.buildReason(validation, subFloor),
			Confidence: clamp01(conf),
		}
	}
}

func (e *DecisionEngine) subFloorRecords(records []domain.ExtractedRecord) []domain.ExtractedRecord {
	var out []domain.ExtractedRecord
	for _, rec := range records {
		if rec.Confidence < e.rules.AcceptanceFloor {
			out = append(out, rec)
		}
	}
	return out
}

// buildReason lists findings in a fixed order: missing types, then
// discrepancies as the validator ordered them, then low-confidence records
// in record order.
func (e *DecisionEngine) buildReason(validation domain.ValidationResult, subFloor []domain.ExtractedRecord) string {
	var parts []string

	if len(validation.MissingTypes) > 0 {
		names := make([]string, 0, len(validation.MissingTypes))
		for _, t := range validation.MissingTypes {
			names = append(names, string(t))
		}
		parts = append(parts, "missing document types: "+strings.Join(names, ", "))
	}

	for _, d := range validation.Discrepancies {
		parts = append(parts, fmt.Sprintf(
			"%s mismatch between %s and %s (%s vs %s, %s severity)",
			d.Field, d.DocA, d.DocB, d.ValueA, d.ValueB, d.Severity,
		))
	}

	for _, rec := range subFloor {
		parts = append(parts, fmt.Sprintf("low extraction confidence for %s (%.2f)", rec.Filename, rec.Confidence))
	}

	if len(parts) == 0 {
		return "claim requires manual review"
	}
	return strings.Join(parts, "; ")
}

func minConfidence(records []domain.ExtractedRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	min := records[0].Confidence
	for _, rec := range records[1:] {
		if rec.Confidence < min {
			min = rec.Confidence
		}
	}
	return min
}
