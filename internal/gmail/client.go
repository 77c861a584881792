// Package gmail fetches rate-confirmation PDFs from a mailbox through the
// Gmail REST API, using a read-scope bearer token obtained by the caller.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Attachment is one PDF pulled out of a message.
type Attachment struct {
	MessageID string
	Filename  string
	Data      []byte
}

// ScanStats counts what a mailbox scan looked at.
type ScanStats struct {
	EmailsScanned int
	PDFsFound     int
}

type Config struct {
	BaseURL string // default https://gmail.googleapis.com
	Query   string
	MaxPDFs int
	Timeout time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://gmail.googleapis.com"
	}
	if cfg.Query == "" {
		cfg.Query = "has:attachment filename:pdf newer_than:90d"
	}
	if cfg.MaxPDFs <= 0 {
		cfg.MaxPDFs = 50
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger,
	}
}

type messagePart struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Body     struct {
		AttachmentID string `json:"attachmentId"`
	} `json:"body"`
	Parts []messagePart `json:"parts"`
}

// ListPDFAttachments searches the mailbox and downloads every PDF attachment
// up to the configured cap. A message without a PDF simply contributes to
// EmailsScanned; a failed attachment download is logged and skipped so one
// bad message cannot abort the scan.
func (c *Client) ListPDFAttachments(ctx context.Context, token string) ([]Attachment, ScanStats, error) {
	var stats ScanStats

	q := url.Values{}
	q.Set("q", c.cfg.Query)
	q.Set("maxResults", "100")
	var list struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := c.getJSON(ctx, token, "/gmail/v1/users/me/messages?"+q.Encode(), &list); err != nil {
		return nil, stats, fmt.Errorf("gmail: search messages: %w", err)
	}

	var out []Attachment
	for _, m := range list.Messages {
		if len(out) >= c.cfg.MaxPDFs {
			break
		}
		stats.EmailsScanned++

		var msg struct {
			Payload messagePart `json:"payload"`
		}
		if err := c.getJSON(ctx, token, "/gmail/v1/users/me/messages/"+m.ID+"?format=full", &msg); err != nil {
			c.log.Warn("gmail.message_fetch_failed", "message_id", m.ID, "error", err)
			continue
		}

		for _, part := range flattenParts(msg.Payload) {
			if len(out) >= c.cfg.MaxPDFs {
				break
			}
			if !isPDFPart(part) || part.Body.AttachmentID == "" {
				continue
			}
			stats.PDFsFound++

			var att struct {
				Data string `json:"data"`
			}
			path := "/gmail/v1/users/me/messages/" + m.ID + "/attachments/" + part.Body.AttachmentID
			if err := c.getJSON(ctx, token, path, &att); err != nil {
				c.log.Warn("gmail.attachment_fetch_failed", "message_id", m.ID, "filename", part.Filename, "error", err)
				continue
			}
			data, err := base64.URLEncoding.DecodeString(att.Data)
			if err != nil {
				c.log.Warn("gmail.attachment_decode_failed", "message_id", m.ID, "filename", part.Filename, "error", err)
				continue
			}
			out = append(out, Attachment{MessageID: m.ID, Filename: part.Filename, Data: data})
		}
	}

	c.log.Info("gmail.scan.done",
		"emails_scanned", stats.EmailsScanned,
		"pdfs_found", stats.PDFsFound,
		"attachments", len(out),
	)
	return out, stats, nil
}

func flattenParts(p messagePart) []messagePart {
	out := []messagePart{p}
	for _, child := range p.Parts {
		out = append(out, flattenParts(child)...)
	}
	return out
}

func isPDFPart(p messagePart) bool {
	if p.MimeType == "application/pdf" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(p.Filename), ".pdf")
}

func (c *Client) getJSON(ctx context.Context, token, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.cfg.BaseURL, "/")+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func(Body io.ReadCloser) {
		if cerr := Body.Close(); cerr != nil {
			c.log.Warn("gmail.body_close_error", "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("gmail: token rejected (status %d)", resp.StatusCode)
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("gmail: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.Unmarshal(raw, v)
}
