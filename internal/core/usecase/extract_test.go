package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/claims-pipeline/internal/core/domain"
)

type extractReasonerFake struct {
	payloads  []string
	errs      []error
	calls     int
	gotType   domain.DocumentType
	gotSchema string
}

func (f *extractReasonerFake) ExtractFields(_ context.Context, docType domain.DocumentType, _ string, schemaJSON string) (json.RawMessage, error) {
	i := f.calls
	f.calls++
	f.gotType = docType
	f.gotSchema = schemaJSON
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if len(f.payloads) == 0 {
		return nil, errors.New("no scripted payload")
	}
	if i >= len(f.payloads) {
		i = len(f.payloads) - 1
	}
	return json.RawMessage(f.payloads[i]), nil
}

func (f *extractReasonerFake) Classify(context.Context, string, []string) (json.RawMessage, error) {
	return nil, errors.New("unexpected classify call")
}

func billDoc() domain.ClassifiedDocument {
	return domain.ClassifiedDocument{
		Filename:   "bill.pdf",
		Text:       "Apollo Hospitals final bill",
		Language:   domain.LangEnglish,
		Type:       domain.DocTypeBill,
		Confidence: 0.93,
	}
}

func TestExtractBillHappyPath(t *testing.T) {
	fake := &extractReasonerFake{payloads: []string{
		`{"hospital_name":"Apollo Hospitals","patient_name":"Rahul Sharma","total_amount":"12500.00","bill_date":"2024-03-15","confidence":0.91}`,
	}}
	stage := NewExtractionStage(fake, 1)

	record, err := stage.Extract(context.Background(), billDoc())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if record.Type != domain.DocTypeBill {
		t.Fatalf("expected bill record, got %s", record.Type)
	}
	if record.Confidence != 0.91 {
		t.Fatalf("expected confidence 0.91, got %f", record.Confidence)
	}
	if _, ok := record.Fields["confidence"]; ok {
		t.Fatalf("confidence must not leak into fields: %v", record.Fields)
	}
	if got := record.Fields["hospital_name"]; got != "Apollo Hospitals" {
		t.Fatalf("expected hospital name, got %v", got)
	}
	if record.RawText != "Apollo Hospitals final bill" {
		t.Fatalf("expected raw text carried over, got %q", record.RawText)
	}
	if fake.gotType != domain.DocTypeBill {
		t.Fatalf("expected bill dispatch, got %s", fake.gotType)
	}
	if !strings.Contains(fake.gotSchema, "hospital_name") {
		t.Fatalf("expected schema to reach the gateway, got %q", fake.gotSchema)
	}
}

func TestExtractCoercesAmountAndDate(t *testing.T) {
	fake := &extractReasonerFake{payloads: []string{
		`{"hospital_name":"Apollo","patient_name":"Rahul Sharma","total_amount":1234.5,"bill_date":"15/03/2024","confidence":0.8}`,
	}}
	stage := NewExtractionStage(fake, 0)

	record, err := stage.Extract(context.Background(), billDoc())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got := record.Fields["total_amount"]; got != "1234.50" {
		t.Fatalf("expected normalized amount 1234.50, got %v", got)
	}
	if got := record.Fields["bill_date"]; got != "2024-03-15" {
		t.Fatalf("expected ISO date, got %v", got)
	}
}

func TestExtractDropsUnknownKeysAndCurrencyMarkers(t *testing.T) {
	fake := &extractReasonerFake{payloads: []string{
		`{"hospital_name":"Apollo","patient_name":"Rahul Sharma","total_amount":"Rs. 12,500.00","bill_date":"2024-03-15","ward":"ICU","confidence":0.8}`,
	}}
	stage := NewExtractionStage(fake, 0)

	record, err := stage.Extract(context.Background(), billDoc())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if _, ok := record.Fields["ward"]; ok {
		t.Fatalf("expected unknown key dropped, got %v", record.Fields)
	}
	if got := record.Fields["total_amount"]; got != "12500.00" {
		t.Fatalf("expected currency marker stripped, got %v", got)
	}
}

func TestExtractRetriesMalformedReplyOnce(t *testing.T) {
	fake := &extractReasonerFake{payloads: []string{
		`{"hospital_name":"Apollo","confidence":0.8}`,
		`{"hospital_name":"Apollo","patient_name":"Rahul Sharma","total_amount":"100.00","bill_date":"2024-03-15","confidence":0.8}`,
	}}
	stage := NewExtractionStage(fake, 1)

	record, err := stage.Extract(context.Background(), billDoc())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if fake.calls != 2 {
		t.Fatalf("expected one retry, got %d calls", fake.calls)
	}
	if record.Degraded {
		t.Fatalf("expected recovered record, got degraded")
	}
}

func TestExtractDegradesWhenRetriesExhausted(t *testing.T) {
	fake := &extractReasonerFake{payloads: []string{`{"hospital_name":"Apollo","confidence":0.8}`}}
	stage := NewExtractionStage(fake, 1)

	record, err := stage.Extract(context.Background(), billDoc())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrExtractionMalformed) {
		t.Fatalf("expected malformed kind, got %v", err)
	}
	if fake.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", fake.calls)
	}
	if !record.Degraded || record.Confidence != 0 {
		t.Fatalf("expected degraded zero-confidence record, got %+v", record)
	}
	for _, key := range domain.RequiredFields(domain.DocTypeBill) {
		v, ok := record.Fields[key]
		if !ok {
			t.Fatalf("degraded record missing key %q", key)
		}
		if v != nil {
			t.Fatalf("degraded record key %q must be nil, got %v", key, v)
		}
	}
	if record.FailureCause == "" {
		t.Fatalf("expected failure cause on degraded record")
	}
}

func TestExtractUnknownTypeSkipsGateway(t *testing.T) {
	fake := &extractReasonerFake{}
	stage := NewExtractionStage(fake, 1)

	doc := billDoc()
	doc.Type = domain.DocTypeUnknown
	record, err := stage.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if fake.calls != 0 {
		t.Fatalf("expected no gateway call for unknown type, got %d", fake.calls)
	}
	if record.Type != domain.DocTypeUnknown || len(record.Fields) != 0 || record.Confidence != 0 {
		t.Fatalf("unexpected unknown record: %+v", record)
	}
	if record.Degraded {
		t.Fatalf("unknown type is not a degradation")
	}
}

func TestExtractTransportFailureIsNotRetried(t *testing.T) {
	fake := &extractReasonerFake{errs: []error{errors.New("connection refused")}}
	stage := NewExtractionStage(fake, 3)

	record, err := stage.Extract(context.Background(), billDoc())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrExtractionFailed) {
		t.Fatalf("expected extraction failure kind, got %v", err)
	}
	if fake.calls != 1 {
		t.Fatalf("expected single attempt on transport failure, got %d", fake.calls)
	}
	if !record.Degraded {
		t.Fatalf("expected degraded record, got %+v", record)
	}
}

func TestExtractPharmacyMedicines(t *testing.T) {
	fake := &extractReasonerFake{payloads: []string{
		`{"medicines":[{"name":" Paracetamol 500mg ","cost":45.5},{"name":"Azithromycin","cost":"120"}],"total_amount":"165.50","confidence":0.85}`,
	}}
	stage := NewExtractionStage(fake, 0)

	doc := billDoc()
	doc.Filename = "pharmacy.pdf"
	doc.Type = domain.DocTypePharmacyReceipt
	record, err := stage.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	items, ok := record.Fields["medicines"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("expected two medicines, got %v", record.Fields["medicines"])
	}
	first, ok := items[0].(map[string]any)
	if !ok {
		t.Fatalf("expected medicine object, got %T", items[0])
	}
	if first["name"] != "Paracetamol 500mg" {
		t.Fatalf("expected trimmed name, got %v", first["name"])
	}
	if first["cost"] != "45.50" {
		t.Fatalf("expected normalized cost, got %v", first["cost"])
	}
}

func TestExtractAcceptsNullsForUnreadableValues(t *testing.T) {
	fake := &extractReasonerFake{payloads: []string{
		`{"hospital_name":"Apollo","patient_name":null,"total_amount":null,"bill_date":"not a date","confidence":0.4}`,
	}}
	stage := NewExtractionStage(fake, 0)

	record, err := stage.Extract(context.Background(), billDoc())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if record.Fields["patient_name"] != nil {
		t.Fatalf("expected nil patient name, got %v", record.Fields["patient_name"])
	}
	if record.Fields["bill_date"] != nil {
		t.Fatalf("expected unparseable date coerced to nil, got %v", record.Fields["bill_date"])
	}
	if record.Confidence != 0.4 {
		t.Fatalf("expected confidence 0.4, got %f", record.Confidence)
	}
}
