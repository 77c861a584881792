package llm

import (
	"encoding/json"
	"testing"
)

func sanitize(t *testing.T, in string) map[string]any {
	t.Helper()
	out, _, err := NormalizeAndSanitizeJSON([]byte(in), nil)
	if err != nil {
		t.Fatalf("sanitize failed: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("sanitized output not JSON: %v", err)
	}
	return m
}

func TestSanitize_RenamesSynonyms(t *testing.T) {
	m := sanitize(t, `{"reference_number": "R-1", "rate": "1200", "linehaul": "1100", "special_instructions": "call ahead"}`)
	if m["load_id"] != "R-1" {
		t.Errorf("load_id = %v", m["load_id"])
	}
	if m["rate_total"] != "1200.00" {
		t.Errorf("rate_total = %v", m["rate_total"])
	}
	if m["linehaul_rate"] != "1100.00" {
		t.Errorf("linehaul_rate = %v", m["linehaul_rate"])
	}
	if m["notes"] != "call ahead" {
		t.Errorf("notes = %v", m["notes"])
	}
}

func TestSanitize_CoercesMoneyValues(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare_number", `{"rate_total": 1500}`, "1500.00"},
		{"float", `{"rate_total": 1500.5}`, "1500.50"},
		{"dollar_commas", `{"rate_total": "$2,500.00"}`, "2500.00"},
		{"null", `{"rate_total": null}`, ""},
		{"garbage", `{"rate_total": "call for rate"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := sanitize(t, tt.in)
			if m["rate_total"] != tt.want {
				t.Errorf("rate_total = %v, want %q", m["rate_total"], tt.want)
			}
		})
	}
}

func TestSanitize_FillsOmittedKeysAndRemovesUnknown(t *testing.T) {
	m := sanitize(t, `{"load_id": "L-1", "confidence": 0.93}`)
	if _, ok := m["confidence"]; ok {
		t.Error("unknown key survived sanitization")
	}
	for _, k := range []string{"broker_name", "notes", "equipment_type"} {
		if v, ok := m[k]; !ok || v != "" {
			t.Errorf("omitted key %s = %v, want empty string", k, v)
		}
	}
	if _, ok := m["stops"].([]any); !ok {
		t.Errorf("stops = %T, want empty array", m["stops"])
	}
}

func TestSanitize_NormalizesStops(t *testing.T) {
	m := sanitize(t, `{"stops": [
		{"type": "Shipper", "city": "Dallas", "state": "TX", "pallets": 20},
		{"type": "DROP", "city": "Atlanta", "state": "GA"},
		{"type": "delivery", "city": "", "state": "GA"}
	]}`)
	stops := m["stops"].([]any)
	if len(stops) != 2 {
		t.Fatalf("stops = %d, want 2 (no-city stop dropped)", len(stops))
	}
	first := stops[0].(map[string]any)
	if first["type"] != "pickup" {
		t.Errorf("stop type = %v, want pickup", first["type"])
	}
	if _, ok := first["pallets"]; ok {
		t.Error("unknown stop key survived")
	}
	second := stops[1].(map[string]any)
	if second["type"] != "delivery" {
		t.Errorf("stop type = %v, want delivery", second["type"])
	}
}

func TestSanitize_DropsIncompleteAccessorials(t *testing.T) {
	m := sanitize(t, `{"accessorials": [
		{"name": "Detention", "amount": 150},
		{"name": "", "amount": 50},
		{"name": "Lumper"}
	]}`)
	accs := m["accessorials"].([]any)
	if len(accs) != 1 {
		t.Fatalf("accessorials = %d, want 1", len(accs))
	}
	a := accs[0].(map[string]any)
	if a["name"] != "Detention" || a["amount"] != "150.00" {
		t.Errorf("accessorial = %v", a)
	}
}

func TestSanitize_LowercasesEmails(t *testing.T) {
	m := sanitize(t, `{"broker_email": "OPS@ACME.TEST", "carrier_email": " Dispatch@Carrier.Test "}`)
	if m["broker_email"] != "ops@acme.test" {
		t.Errorf("broker_email = %v", m["broker_email"])
	}
	if m["carrier_email"] != "dispatch@carrier.test" {
		t.Errorf("carrier_email = %v", m["carrier_email"])
	}
}
