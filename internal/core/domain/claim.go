package domain

type DocumentType string

const (
	DocTypeBill             DocumentType = "bill"
	DocTypeDischargeSummary DocumentType = "discharge_summary"
	DocTypeIDCard           DocumentType = "id_card"
	DocTypePharmacyReceipt  DocumentType = "pharmacy_receipt"
	DocTypeUnknown          DocumentType = "unknown"
)

// DocumentTypes returns the closed label set in canonical order.
func DocumentTypes() []DocumentType {
	return []DocumentType{
		DocTypeBill,
		DocTypeDischargeSummary,
		DocTypeIDCard,
		DocTypePharmacyReceipt,
		DocTypeUnknown,
	}
}

func ParseDocumentType(s string) (DocumentType, bool) {
	for _, t := range DocumentTypes() {
		if string(t) == s {
			return t, true
		}
	}
	return DocTypeUnknown, false
}

type Language string

const (
	LangEnglish Language = "en"
	LangHindi   Language = "hi"
	LangTelugu  Language = "te"
	LangKannada Language = "kn"
	LangTamil   Language = "ta"
	LangUnknown Language = "unknown"
)

// RawDocument is one uploaded file before any processing.
type RawDocument struct {
	Filename     string
	Content      []byte
	DeclaredMIME string
}

// ExtractedText is the text-extraction gateway output for one document.
type ExtractedText struct {
	Text      string
	IsScanned bool
	Language  Language
}

// ClassifiedDocument pairs extracted text with its assigned type.
type ClassifiedDocument struct {
	Filename   string
	Text       string
	IsScanned  bool
	Language   Language
	Type       DocumentType
	Confidence float64
}

// ExtractedRecord is the structured result for one document. Fields holds
// every required key for the record's type; a key that could not be read is
// present with a nil value, never absent.
type ExtractedRecord struct {
	Filename   string         `json:"filename"`
	Type       DocumentType   `json:"doc_type"`
	Fields     map[string]any `json:"fields"`
	Confidence float64        `json:"extraction_confidence"`
	Language   Language       `json:"language,omitempty"`
	IsScanned  bool           `json:"is_scanned,omitempty"`
	RawText    string         `json:"-"`

	Degraded     bool   `json:"degraded,omitempty"`
	FailureCause string `json:"failure_cause,omitempty"`
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Discrepancy is one cross-document disagreement on a logical field.
type Discrepancy struct {
	Field    string   `json:"field"`
	DocA     string   `json:"doc_a"`
	DocB     string   `json:"doc_b"`
	ValueA   string   `json:"value_a"`
	ValueB   string   `json:"value_b"`
	Severity Severity `json:"severity"`
}

type ValidationResult struct {
	MissingTypes  []DocumentType `json:"missing_document_types"`
	Discrepancies []Discrepancy  `json:"discrepancies"`
	IsValid       bool           `json:"is_valid"`
}

type DecisionStatus string

const (
	StatusApproved     DecisionStatus = "approved"
	StatusRejected     DecisionStatus = "rejected"
	StatusManualReview DecisionStatus = "manual_review"
)

type ClaimDecision struct {
	Status     DecisionStatus `json:"status"`
	Reason     string         `json:"reason"`
	Confidence float64        `json:"confidence"`
}

// ClaimReport is the full outcome of one processing run.
type ClaimReport struct {
	ClaimID        string            `json:"claim_id"`
	Records        []ExtractedRecord `json:"records"`
	Validation     ValidationResult  `json:"validation"`
	Decision       ClaimDecision     `json:"decision"`
	ElapsedSeconds float64           `json:"processing_time_seconds"`
}

// RequiredFields returns the contract keys for a document type. Unknown
// documents have no contract and yield an empty slice.
func RequiredFields(t DocumentType) []string {
	switch t {
	case DocTypeBill:
		return []string{"hospital_name", "patient_name", "total_amount", "bill_date"}
	case DocTypeDischargeSummary:
		return []string{"hospital_name", "patient_name", "admission_date", "discharge_date", "diagnosis", "doctor_name"}
	case DocTypeIDCard:
		return []string{"policy_number", "insurer_name", "member_name"}
	case DocTypePharmacyReceipt:
		return []string{"medicines", "total_amount"}
	default:
		return nil
	}
}

// NewDegradedRecord builds the zero-confidence record emitted when a
// document cannot be classified or extracted. Every required key is present
// and nil so downstream consumers never see a partial contract.
func NewDegradedRecord(filename string, docType DocumentType, text ExtractedText, cause string) ExtractedRecord {
	fields := make(map[string]any)
	for _, key := range RequiredFields(docType) {
		fields[key] = nil
	}
	return ExtractedRecord{
		Filename:     filename,
		Type:         docType,
		Fields:       fields,
		Confidence:   0,
		Language:     text.Language,
		IsScanned:    text.IsScanned,
		RawText:      text.Text,
		Degraded:     true,
		FailureCause: cause,
	}
}
