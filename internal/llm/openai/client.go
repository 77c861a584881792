package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/freightline/loadbook/internal/common"
	"github.com/freightline/loadbook/internal/llm"
)

// ExtractLoad implements llm.LoadExtractor using text-only chat/completions.
// Provider failures are classified so orchestrators can branch: 429 maps to
// common.ErrQuotaExceeded, 401/403 to common.ErrInvalidAPIKey, anything else
// stays a transient error local to the file being processed.
func (c *Client) ExtractLoad(ctx context.Context, req llm.ExtractRequest) (llm.LoadFields, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(req.Text),
		"file", req.FilenameHint,
		"source", req.SourceHint,
	)

	schema := llm.BuildLoadJSONSchema()
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt()},
			{"role": "user", "content": llm.BuildUserPrompt(req) + "\n\nReturn ONLY JSON that matches the provided schema."},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, status, httpErr := llm.SendJSON(ctx, c.httpClient, endpoint, body, map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
	}, c.log)
	if httpErr != nil {
		classified := classifyStatus(status, httpErr)
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "status", status, "error", classified,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.LoadFields{}, raw, classified
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.LoadFields{}, raw, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.extract.no_choices",
			"req_id", rid, "raw", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.LoadFields{}, raw, fmt.Errorf("no choices in openai response")
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	rawContent := []byte(content)

	cleaned, _, sErr := llm.NormalizeAndSanitizeJSON(rawContent, c.log)
	if sErr != nil {
		c.log.Error("llm.extract.sanitize_failed",
			"req_id", rid, "error", sErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.LoadFields{}, rawContent, fmt.Errorf("sanitize failed: %w", sErr)
	}
	rawContent = cleaned

	if err := llm.ValidateJSONAgainstSchema(schema, rawContent); err != nil {
		c.log.Error("llm.extract.schema_validation_failed",
			"req_id", rid, "error", err, "content", string(rawContent),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.LoadFields{}, rawContent, common.NewAppError(common.CodeMissingRequired,
			"model output failed schema validation", common.ErrMissingRequired)
	}

	var out llm.LoadFields
	if err := json.Unmarshal(rawContent, &out); err != nil {
		c.log.Error("llm.extract.unmarshal_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.LoadFields{}, rawContent, fmt.Errorf("unmarshal fields: %w", err)
	}
	if !out.HasRequired() {
		return llm.LoadFields{}, rawContent, common.NewAppError(common.CodeMissingRequired,
			"extraction missing load_id, broker_name or rate_total", common.ErrMissingRequired)
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"load_id", out.LoadID,
		"broker", out.BrokerName,
		"rate_total", out.RateTotal,
		"stops", len(out.Stops),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, rawContent, nil
}

func classifyStatus(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return common.NewAppError(common.CodeQuotaExceeded, "model quota exhausted", common.ErrQuotaExceeded)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return common.NewAppError(common.CodeInvalidAPIKey, "model rejected credentials", common.ErrInvalidAPIKey)
	default:
		return err
	}
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
