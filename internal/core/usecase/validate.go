package usecase

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"

	"github.com/kirillkom/claims-pipeline/internal/core/domain"
)

type ConsistencyValidator struct {
	rules domain.Rules
}

func NewConsistencyValidator(rules domain.Rules) *ConsistencyValidator {
	return &ConsistencyValidator{rules: rules.Normalized()}
}

// nameSource maps one physical field onto the logical key it feeds. The
// member name on an insurer card and the patient name on a bill describe
// the same person, so they compare under one key.
type nameSource struct {
	docType domain.DocumentType
	key     string
}

var nameGroups = map[string][]nameSource{
	"patient_name": {
		{domain.DocTypeBill, "patient_name"},
		{domain.DocTypeDischargeSummary, "patient_name"},
		{domain.DocTypeIDCard, "member_name"},
	},
	"hospital_name": {
		{domain.DocTypeBill, "hospital_name"},
		{domain.DocTypeDischargeSummary, "hospital_name"},
	},
	"doctor_name": {
		{domain.DocTypeDischargeSummary, "doctor_name"},
	},
	"insurer_name": {
		{domain.DocTypeIDCard, "insurer_name"},
	},
}

type fieldValue struct {
	doc   string
	value string
}

// Validate is a pure function over the run's records: same input, same
// output, in the same order.
func (v *ConsistencyValidator) Validate(records []domain.ExtractedRecord) domain.ValidationResult {
	missing := v.missingTypes(records)

	comparable := make([]domain.ExtractedRecord, 0, len(records))
	for _, rec := range records {
		if rec.Confidence >= v.rules.ComparisonFloor {
			comparable = append(comparable, rec)
		}
	}

	var discrepancies []domain.Discrepancy
	discrepancies = append(discrepancies, v.compareNameGroups(comparable)...)
	discrepancies = append(discrepancies, v.compareDates(comparable)...)
	discrepancies = append(discrepancies, v.compareAmounts(comparable)...)

	sort.SliceStable(discrepancies, func(i, j int) bool {
		a, b := discrepancies[i], discrepancies[j]
		if a.Field != b.Field {
			return a.Field < b.Field
		}
		if a.DocA != b.DocA {
			return a.DocA < b.DocA
		}
		return a.DocB < b.DocB
	})

	isValid := len(missing) == 0
	for _, d := range discrepancies {
		if d.Severity != domain.SeverityLow {
			isValid = false
			break
		}
	}

	return domain.ValidationResult{
		MissingTypes:  missing,
		Discrepancies: discrepancies,
		IsValid:       isValid,
	}
}

// missingTypes reports expected types with no record at all. A degraded
// record still counts as present; absence and unreadability are different
// findings.
func (v *ConsistencyValidator) missingTypes(records []domain.ExtractedRecord) []domain.DocumentType {
	present := make(map[domain.DocumentType]bool, len(records))
	for _, rec := range records {
		present[rec.Type] = true
	}
	expected := make(map[domain.DocumentType]bool, len(v.rules.ExpectedTypes))
	for _, t := range v.rules.ExpectedTypes {
		expected[t] = true
	}

	missing := make([]domain.DocumentType, 0)
	for _, t := range domain.DocumentTypes() {
		if expected[t] && !present[t] {
			missing = append(missing, t)
		}
	}
	return missing
}

func (v *ConsistencyValidator) compareNameGroups(records []domain.ExtractedRecord) []domain.Discrepancy {
	fields := make([]string, 0, len(nameGroups))
	for field := range nameGroups {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var out []domain.Discrepancy
	for _, field := range fields {
		values := collectGroup(records, nameGroups[field])
		for i := 0; i < len(values); i++ {
			for j := i + 1; j < len(values); j++ {
				sev, conflict := v.compareNamePair(values[i].value, values[j].value)
				if !conflict {
					continue
				}
				out = append(out, domain.Discrepancy{
					Field:    field,
					DocA:     values[i].doc,
					DocB:     values[j].doc,
					ValueA:   values[i].value,
					ValueB:   values[j].value,
					Severity: sev,
				})
			}
		}
	}
	return out
}

// compareDates pairs values of the same date field only. Differently named
// dates (admission vs discharge) are definitionally distinct and never
// compared.
func (v *ConsistencyValidator) compareDates(records []domain.ExtractedRecord) []domain.Discrepancy {
	var out []domain.Discrepancy
	for _, t := range domain.DocumentTypes() {
		for _, key := range domain.RequiredFields(t) {
			if !isDateField(key) {
				continue
			}
			values := collectGroup(records, []nameSource{{t, key}})
			for i := 0; i < len(values); i++ {
				for j := i + 1; j < len(values); j++ {
					if values[i].value == values[j].value {
						continue
					}
					out = append(out, domain.Discrepancy{
						Field:    key,
						DocA:     values[i].doc,
						DocB:     values[j].doc,
						ValueA:   values[i].value,
						ValueB:   values[j].value,
						Severity: domain.SeverityMedium,
					})
				}
			}
		}
	}
	return out
}

// compareAmounts pairs totals within one document type. A hospital bill
// total and a pharmacy total measure different things and stay apart.
func (v *ConsistencyValidator) compareAmounts(records []domain.ExtractedRecord) []domain.Discrepancy {
	var out []domain.Discrepancy
	for _, t := range []domain.DocumentType{domain.DocTypeBill, domain.DocTypePharmacyReceipt} {
		values := collectGroup(records, []nameSource{{t, "total_amount"}})
		for i := 0; i < len(values); i++ {
			for j := i + 1; j < len(values); j++ {
				sev, conflict := v.compareAmountPair(values[i].value, values[j].value)
				if !conflict {
					continue
				}
				out = append(out, domain.Discrepancy{
					Field:    "total_amount",
					DocA:     values[i].doc,
					DocB:     values[j].doc,
					ValueA:   values[i].value,
					ValueB:   values[j].value,
					Severity: sev,
				})
			}
		}
	}
	return out
}

func (v *ConsistencyValidator) compareNamePair(a, b string) (domain.Severity, bool) {
	na, nb := normalizeName(a), normalizeName(b)
	if na == nb {
		return "", false
	}
	if levenshtein.ComputeDistance(na, nb) <= v.rules.NameDistanceLow {
		return domain.SeverityLow, true
	}
	return domain.SeverityMedium, true
}

func (v *ConsistencyValidator) compareAmountPair(a, b string) (domain.Severity, bool) {
	da, errA := decimal.NewFromString(a)
	db, errB := decimal.NewFromString(b)
	if errA != nil || errB != nil {
		return "", false
	}

	diff := da.Sub(db).Abs()
	if diff.LessThanOrEqual(decimal.NewFromFloat(v.rules.AmountEpsilon)) {
		return "", false
	}

	base := decimal.Max(da.Abs(), db.Abs())
	if base.IsZero() {
		return "", false
	}
	relPct := diff.Div(base).Mul(decimal.NewFromInt(100))
	if relPct.LessThanOrEqual(decimal.NewFromFloat(v.rules.AmountLowPct)) {
		return domain.SeverityLow, true
	}
	return domain.SeverityHigh, true
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func collectGroup(records []domain.ExtractedRecord, sources []nameSource) []fieldValue {
	var out []fieldValue
	for _, rec := range records {
		for _, src := range sources {
			if rec.Type != src.docType {
				continue
			}
			if s, ok := stringField(rec, src.key); ok {
				out = append(out, fieldValue{doc: rec.Filename, value: s})
			}
		}
	}
	return out
}

func stringField(rec domain.ExtractedRecord, key string) (string, bool) {
	v, ok := rec.Fields[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}
