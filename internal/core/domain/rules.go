package domain

// Rules carries every validation and decision threshold. Stages receive it
// at construction; nothing reads thresholds from ambient state.
type Rules struct {
	ExpectedTypes []DocumentType

	// AcceptanceFloor is the minimum record confidence for approval.
	AcceptanceFloor float64
	// ComparisonFloor excludes low-confidence records from cross-document
	// comparison without removing them from presence checks.
	ComparisonFloor float64

	// AmountEpsilon is the absolute tolerance under which two amounts are
	// equal. AmountLowPct is the relative difference (percent) up to which
	// an amount mismatch stays low severity.
	AmountEpsilon float64
	AmountLowPct  float64

	// NameDistanceLow is the maximum edit distance between normalized names
	// that still counts as a low-severity mismatch.
	NameDistanceLow int

	RejectedConfidence float64
}

func DefaultRules() Rules {
	return Rules{
		ExpectedTypes: []DocumentType{
			DocTypeBill,
			DocTypeDischargeSummary,
			DocTypeIDCard,
		},
		AcceptanceFloor:    0.70,
		ComparisonFloor:    0.25,
		AmountEpsilon:      0.01,
		AmountLowPct:       5.0,
		NameDistanceLow:    2,
		RejectedConfidence: 0.90,
	}
}

// Normalized fills zero-valued thresholds from the defaults so a partially
// populated Rules never divides by zero or compares against it.
func (r Rules) Normalized() Rules {
	out := r
	def := DefaultRules()

	if len(out.ExpectedTypes) == 0 {
		out.ExpectedTypes = def.ExpectedTypes
	}
	if out.AcceptanceFloor <= 0 || out.AcceptanceFloor > 1 {
		out.AcceptanceFloor = def.AcceptanceFloor
	}
	if out.ComparisonFloor <= 0 || out.ComparisonFloor > 1 {
		out.ComparisonFloor = def.ComparisonFloor
	}
	if out.AmountEpsilon <= 0 {
		out.AmountEpsilon = def.AmountEpsilon
	}
	if out.AmountLowPct <= 0 {
		out.AmountLowPct = def.AmountLowPct
	}
	if out.NameDistanceLow <= 0 {
		out.NameDistanceLow = def.NameDistanceLow
	}
	if out.RejectedConfidence <= 0 || out.RejectedConfidence > 1 {
		out.RejectedConfidence = def.RejectedConfidence
	}
	return out
}
