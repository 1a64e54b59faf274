package usecase

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Date layouts accepted from the reasoning gateway, day-first preferred for
// ambiguous numeric forms. Everything is rewritten to ISO before validation.
var acceptedDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
	"2 January 2006",
	"02 Jan 2006",
	"January 2, 2006",
	"01/02/2006",
}

var currencyPrefixes = []string{"RS.", "RS", "INR", "₹", "$"}

// normalizeFieldPayload coerces tolerable deviations in a reply payload
// before schema validation:
//   - numeric amounts become two-decimal strings
//   - recognized date layouts become YYYY-MM-DD
//   - unparseable amounts and dates become null, never a guess
//   - unknown keys are dropped, blank strings become null
//
// Missing required keys are left missing so validation rejects the payload.
func normalizeFieldPayload(raw []byte, required []string) ([]byte, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode reply payload: %w", err)
	}

	allowed := map[string]struct{}{"confidence": {}}
	for _, key := range required {
		allowed[key] = struct{}{}
	}
	for key := range maps.Clone(m) {
		if _, ok := allowed[key]; !ok {
			delete(m, key)
		}
	}

	for _, key := range required {
		v, ok := m[key]
		if !ok {
			continue
		}
		switch {
		case key == "medicines":
			m[key] = coerceMedicines(v)
		case key == "total_amount":
			m[key] = coerceAmount(v)
		case isDateField(key):
			m[key] = coerceDate(v)
		default:
			m[key] = coerceText(v)
		}
	}

	if v, ok := m["confidence"]; ok {
		if conf, ok := coerceConfidence(v); ok {
			m["confidence"] = conf
		} else {
			delete(m, "confidence")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode normalized payload: %w", err)
	}
	return out, nil
}

func isDateField(key string) bool {
	return strings.HasSuffix(key, "_date")
}

func coerceAmount(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return decimal.NewFromFloat(t).StringFixed(2)
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		upper := strings.ToUpper(s)
		for _, prefix := range currencyPrefixes {
			if strings.HasPrefix(upper, prefix) {
				s = strings.TrimSpace(s[len(prefix):])
				break
			}
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil
		}
		return d.StringFixed(2)
	default:
		return nil
	}
}

func coerceDate(v any) any {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return nil
}

func coerceText(v any) any {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		return s
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return nil
	}
}

// coerceMedicines cleans each line item; structurally broken items are left
// untouched so schema validation reports the payload as malformed.
func coerceMedicines(v any) any {
	items, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			out = append(out, item)
			continue
		}
		out = append(out, map[string]any{
			"name": coerceText(obj["name"]),
			"cost": coerceAmount(obj["cost"]),
		})
	}
	return out
}

func coerceConfidence(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
