package llm

import "strings"

// BuildSystemPrompt composes the system message for rate-confirmation
// parsing: strict JSON, every key present, empty-string degradation.
func BuildSystemPrompt() string {
	parts := []string{
		"You are a freight rate-confirmation parser. Return ONLY JSON that matches the provided JSON Schema.",
		"Include EVERY key from the schema in the output. When a value is not present in the document, use an empty string (or an empty array for lists). Never output null and never omit a key.",
		"'load_id' is the broker- or carrier-assigned load/reference/order number printed on the confirmation.",
		"'rate_total' is the authoritative total pay for the load as a decimal string with no currency symbol or thousands separators.",
		"'linehaul_rate' is the base rate before accessorials, when itemized.",
		"List every surcharge (detention, layover, lumper, fuel, TONU, etc.) in 'accessorials' as {name, amount} with decimal-string amounts.",
		"Produce a 'stops' entry for every pickup and delivery, in route order. 'city' and 'state' are required for each stop; fill the remaining address fields as well as they appear. Always try to produce at least one pickup and one delivery.",
		"Use ISO-8601 dates (YYYY-MM-DD) for stop dates.",
		"Concatenate any special instructions or driver notes into 'notes'.",
		"Phone numbers keep their printed formatting; emails are lowercased.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the document text with source hints. Rate cons
// rarely exceed a few pages, so a generous cap keeps stop tables intact.
func BuildUserPrompt(req ExtractRequest) string {
	const maxChars = 12000

	var b strings.Builder
	if f := strings.TrimSpace(req.FilenameHint); f != "" {
		b.WriteString("Filename: ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	if s := strings.TrimSpace(req.SourceHint); s != "" {
		b.WriteString("Source: ")
		b.WriteString(s)
		b.WriteString("\n")
	}

	text := strings.TrimSpace(req.Text)
	b.WriteString("\nDocument text:\n")
	if len(text) > maxChars {
		b.WriteString(text[:maxChars])
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(text)
	}
	return b.String()
}
