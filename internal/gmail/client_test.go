package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func gmailTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q", got)
		}
		if q := r.URL.Query().Get("q"); !strings.Contains(q, "filename:pdf") {
			t.Errorf("search query = %q", q)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]string{{"id": "m1"}, {"id": "m2"}},
		})
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/m1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"payload": map[string]any{
				"mimeType": "multipart/mixed",
				"parts": []map[string]any{
					{"filename": "", "mimeType": "text/plain", "body": map[string]any{}},
					{"filename": "ratecon.pdf", "mimeType": "application/pdf",
						"body": map[string]any{"attachmentId": "att1"}},
				},
			},
		})
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/m2", func(w http.ResponseWriter, r *http.Request) {
		// no PDF anywhere in this one
		_ = json.NewEncoder(w).Encode(map[string]any{
			"payload": map[string]any{"mimeType": "text/plain", "body": map[string]any{}},
		})
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/m1/attachments/att1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"data": base64.URLEncoding.EncodeToString([]byte("pdf bytes")),
		})
	})
	return httptest.NewServer(mux)
}

func TestListPDFAttachments(t *testing.T) {
	srv := gmailTestServer(t)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	atts, stats, err := c.ListPDFAttachments(context.Background(), "tok")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if stats.EmailsScanned != 2 {
		t.Errorf("emails_scanned = %d, want 2", stats.EmailsScanned)
	}
	if stats.PDFsFound != 1 {
		t.Errorf("pdfs_found = %d, want 1", stats.PDFsFound)
	}
	if len(atts) != 1 {
		t.Fatalf("attachments = %d, want 1", len(atts))
	}
	if atts[0].Filename != "ratecon.pdf" || string(atts[0].Data) != "pdf bytes" {
		t.Errorf("attachment = %+v", atts[0])
	}
}

func TestListPDFAttachments_TokenRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	_, _, err := c.ListPDFAttachments(context.Background(), "bad")
	if err == nil {
		t.Fatal("expected error on rejected token")
	}
}
