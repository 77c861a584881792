package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/freightline/loadbook/internal/common"
	"github.com/freightline/loadbook/internal/llm"
)

func chatServer(handler http.HandlerFunc) *httptest.Server {
	return httptest.NewServer(handler)
}

func completionBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(b)
}

func extract(t *testing.T, srv *httptest.Server) (llm.LoadFields, error) {
	t.Helper()
	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL, Model: "gpt-4o-mini"}, nil)
	fields, _, err := c.ExtractLoad(context.Background(), llm.ExtractRequest{
		Text:         "RATE CONFIRMATION Load L-100 ...",
		FilenameHint: "ratecon.pdf",
		SourceHint:   "upload",
	})
	return fields, err
}

func TestExtractLoad_ParsesWellFormedReply(t *testing.T) {
	reply := `{
		"load_id": "L-100",
		"broker_name": "Acme Logistics",
		"broker_email": "OPS@ACME.TEST",
		"rate_total": 1500,
		"stops": [
			{"type": "Shipper", "city": "Dallas", "state": "TX"},
			{"type": "Consignee", "city": "Atlanta", "state": "GA"}
		]
	}`
	srv := chatServer(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		_, _ = w.Write([]byte(completionBody(reply)))
	})
	defer srv.Close()

	fields, err := extract(t, srv)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if fields.LoadID != "L-100" {
		t.Errorf("load_id = %q", fields.LoadID)
	}
	if fields.RateTotal != "1500.00" {
		t.Errorf("rate_total = %q, want coerced decimal string", fields.RateTotal)
	}
	if fields.BrokerEmail != "ops@acme.test" {
		t.Errorf("broker_email = %q, want lowercased", fields.BrokerEmail)
	}
	if len(fields.Stops) != 2 || fields.Stops[0].Type != "pickup" || fields.Stops[1].Type != "delivery" {
		t.Errorf("stop types not normalized: %+v", fields.Stops)
	}
}

func TestExtractLoad_429MapsToQuotaExceeded(t *testing.T) {
	srv := chatServer(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": "rate_limit_exceeded"}}`, http.StatusTooManyRequests)
	})
	defer srv.Close()

	_, err := extract(t, srv)
	if !errors.Is(err, common.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestExtractLoad_401MapsToInvalidAPIKey(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := chatServer(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error": {"code": "invalid_api_key"}}`, status)
		})
		_, err := extract(t, srv)
		srv.Close()
		if !errors.Is(err, common.ErrInvalidAPIKey) {
			t.Fatalf("status %d: expected ErrInvalidAPIKey, got %v", status, err)
		}
	}
}

func TestExtractLoad_OtherStatusStaysTransient(t *testing.T) {
	srv := chatServer(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})
	defer srv.Close()

	_, err := extract(t, srv)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, common.ErrQuotaExceeded) || errors.Is(err, common.ErrInvalidAPIKey) {
		t.Fatalf("502 must not classify as quota/credentials: %v", err)
	}
}

func TestExtractLoad_MissingRequiredFieldsRejected(t *testing.T) {
	// broker_name present but load_id and rate_total missing
	srv := chatServer(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionBody(`{"broker_name": "Acme Logistics"}`)))
	})
	defer srv.Close()

	_, err := extract(t, srv)
	if !errors.Is(err, common.ErrMissingRequired) {
		t.Fatalf("expected ErrMissingRequired, got %v", err)
	}
}

func TestExtractLoad_SynonymKeysAccepted(t *testing.T) {
	reply := `{
		"reference_number": "REF-7",
		"broker_name": "Acme Logistics",
		"rate": "$2,500.00"
	}`
	srv := chatServer(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionBody(reply)))
	})
	defer srv.Close()

	fields, err := extract(t, srv)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if fields.LoadID != "REF-7" {
		t.Errorf("load_id = %q, want renamed reference_number", fields.LoadID)
	}
	if fields.RateTotal != "2500.00" {
		t.Errorf("rate_total = %q, want 2500.00", fields.RateTotal)
	}
}
