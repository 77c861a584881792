package llm

// BuildLoadJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. We pass this to the model as an output constraint and also
// use it locally to validate the reply. Every key must be present in the
// output; only load_id, broker_name and rate_total carry content
// requirements.
func BuildLoadJSONSchema() map[string]any {
	stopProps := map[string]any{
		"type":             map[string]any{"type": "string", "enum": []string{"pickup", "delivery"}},
		"location_name":    map[string]any{"type": "string"},
		"address":          map[string]any{"type": "string"},
		"city":             map[string]any{"type": "string", "minLength": 1},
		"state":            map[string]any{"type": "string", "minLength": 1},
		"zip":              map[string]any{"type": "string"},
		"date":             map[string]any{"type": "string"},
		"time":             map[string]any{"type": "string"},
		"appointment_type": map[string]any{"type": "string"},
	}

	accessorialProps := map[string]any{
		"name":   map[string]any{"type": "string", "minLength": 1},
		"amount": decimalProp(),
	}

	props := map[string]any{
		"load_id":           map[string]any{"type": "string", "minLength": 1},
		"broker_name":       map[string]any{"type": "string", "minLength": 1},
		"broker_email":      map[string]any{"type": "string"},
		"broker_phone":      map[string]any{"type": "string"},
		"carrier_name":      map[string]any{"type": "string"},
		"carrier_mc_number": map[string]any{"type": "string"},
		"carrier_email":     map[string]any{"type": "string"},
		"carrier_phone":     map[string]any{"type": "string"},
		"carrier_address":   map[string]any{"type": "string"},
		"rate_total":        decimalProp(),
		"linehaul_rate":     map[string]any{"type": "string"}, // decimal or empty
		"accessorials": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties":           accessorialProps,
				"required":             []string{"name", "amount"},
			},
		},
		"stops": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties":           stopProps,
				"required":             []string{"type", "city", "state"},
			},
		},
		"equipment_type": map[string]any{"type": "string"},
		"temperature":    map[string]any{"type": "string"},
		"commodity":      map[string]any{"type": "string"},
		"weight":         map[string]any{"type": "string"},
		"notes":          map[string]any{"type": "string"},
	}

	// Only these three gate acceptance of the whole record.
	required := []string{"load_id", "broker_name", "rate_total"}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func decimalProp() map[string]any {
	return map[string]any{
		"type":    "string",
		"pattern": `^-?\d+(\.\d{1,2})?$`,
	}
}
