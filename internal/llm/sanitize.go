package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

var topLevelKeys = map[string]struct{}{
	"load_id": {}, "broker_name": {}, "broker_email": {}, "broker_phone": {},
	"carrier_name": {}, "carrier_mc_number": {}, "carrier_email": {},
	"carrier_phone": {}, "carrier_address": {},
	"rate_total": {}, "linehaul_rate": {}, "accessorials": {}, "stops": {},
	"equipment_type": {}, "temperature": {}, "commodity": {}, "weight": {},
	"notes": {},
}

var stopKeys = map[string]struct{}{
	"type": {}, "location_name": {}, "address": {}, "city": {}, "state": {},
	"zip": {}, "date": {}, "time": {}, "appointment_type": {},
}

// NormalizeAndSanitizeJSON massages a model reply so it can pass strict
// schema validation:
//   - renames known synonyms (rate -> rate_total, reference_number -> load_id)
//   - coerces numeric money values to decimal strings
//   - replaces nulls with empty strings and fills omitted keys
//   - removes unknown keys (additionalProperties=false friendliness)
//   - trims strings, lowercases emails and stop types
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)
	renamed := func(from, to string) {
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}

	// 1) rename synonyms to our schema
	renamed("rate", "rate_total")
	renamed("total_rate", "rate_total")
	renamed("reference_number", "load_id")
	renamed("order_number", "load_id")
	renamed("linehaul", "linehaul_rate")
	renamed("special_instructions", "notes")

	// 2) coerce money-ish fields to decimal strings; nulls become empty
	for _, k := range []string{"rate_total", "linehaul_rate", "weight"} {
		m[k] = coerceDecimalString(m[k], k, &dropped)
	}

	// 3) scalar string fields: trim, null -> "", fill when omitted
	for k := range topLevelKeys {
		if k == "accessorials" || k == "stops" || k == "rate_total" ||
			k == "linehaul_rate" || k == "weight" {
			continue
		}
		m[k] = coerceString(m[k], k, &dropped)
	}
	for _, k := range []string{"broker_email", "carrier_email"} {
		if s, ok := m[k].(string); ok {
			m[k] = strings.ToLower(s)
		}
	}

	// 4) accessorials: keep {name, amount} pairs with a usable amount
	if arr, ok := m["accessorials"].([]any); ok {
		clean := make([]any, 0, len(arr))
		for _, it := range arr {
			obj, ok := it.(map[string]any)
			if !ok {
				dropped = append(dropped, "accessorials(item-type)")
				continue
			}
			name := coerceString(obj["name"], "accessorials.name", &dropped)
			amount, _ := coerceDecimalString(obj["amount"], "accessorials.amount", &dropped).(string)
			if strings.TrimSpace(name) == "" || amount == "" {
				dropped = append(dropped, "accessorials(incomplete)")
				continue
			}
			clean = append(clean, map[string]any{"name": name, "amount": amount})
		}
		m["accessorials"] = clean
	} else {
		m["accessorials"] = []any{}
	}

	// 5) stops: normalize type casing, fill omitted keys, drop entries
	// without the city+state the schema requires
	if arr, ok := m["stops"].([]any); ok {
		clean := make([]any, 0, len(arr))
		for _, it := range arr {
			obj, ok := it.(map[string]any)
			if !ok {
				dropped = append(dropped, "stops(item-type)")
				continue
			}
			for k := range obj {
				if _, known := stopKeys[k]; !known {
					delete(obj, k)
					dropped = append(dropped, "stops."+k+"(unknown)")
				}
			}
			for k := range stopKeys {
				obj[k] = coerceString(obj[k], "stops."+k, &dropped)
			}
			st, _ := obj["type"].(string)
			st = strings.ToLower(strings.TrimSpace(st))
			switch st {
			case "pickup", "pu", "origin", "shipper":
				st = "pickup"
			case "delivery", "del", "drop", "destination", "consignee", "receiver":
				st = "delivery"
			}
			obj["type"] = st
			city, _ := obj["city"].(string)
			state, _ := obj["state"].(string)
			if st == "" || strings.TrimSpace(city) == "" || strings.TrimSpace(state) == "" {
				dropped = append(dropped, "stops(incomplete)")
				continue
			}
			clean = append(clean, obj)
		}
		m["stops"] = clean
	} else {
		m["stops"] = []any{}
	}

	// 6) remove unknown top-level keys
	for k := range m {
		if _, ok := topLevelKeys[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.extract.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

func coerceString(v any, key string, dropped *[]string) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case nil:
		return ""
	case float64:
		// the model sometimes emits bare numbers for zips, weights, phones
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		*dropped = append(*dropped, key+"(type)")
		return ""
	}
}

func coerceDecimalString(v any, key string, dropped *[]string) any {
	switch t := v.(type) {
	case float64:
		return fmt.Sprintf("%.2f", t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") {
			return ""
		}
		s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fmt.Sprintf("%.2f", f)
		}
		*dropped = append(*dropped, key+"(unparseable)")
		return ""
	case nil:
		return ""
	default:
		*dropped = append(*dropped, key+"(type)")
		return ""
	}
}
