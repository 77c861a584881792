// Package ingest orchestrates the rate-confirmation pipeline: PDF text
// extraction, LLM field extraction, mileage enrichment, reconciliation into
// the canonical load set, and the follow-up broker aggregation job.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/freightline/loadbook/internal/async"
	"github.com/freightline/loadbook/internal/geo"
	"github.com/freightline/loadbook/internal/gmail"
	"github.com/freightline/loadbook/internal/llm"
	"github.com/freightline/loadbook/internal/reconcile"
	"github.com/freightline/loadbook/internal/repository"
)

// FileInput is one PDF handed to the pipeline, whatever its origin.
type FileInput struct {
	Name string
	Data []byte
}

// FileError reports why a single file did not become a load.
type FileError struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// Result summarizes one ingestion batch. EmailsScanned and PDFsFound are
// populated only by mailbox scans.
type Result struct {
	Processed  int         `json:"processed"`
	Added      int         `json:"added"`
	Duplicates int         `json:"duplicates"`
	Skipped    int         `json:"skipped"`
	Failed     int         `json:"failed"`
	Errors     []FileError `json:"errors,omitempty"`
	MergedIDs  []string    `json:"merged_load_ids,omitempty"`

	EmailsScanned int `json:"emails_scanned,omitempty"`
	PDFsFound     int `json:"pdfs_found,omitempty"`

	// QuotaExhausted means the extraction model ran out of quota partway
	// through; the counts above still cover everything processed before that.
	QuotaExhausted bool `json:"quota_exhausted,omitempty"`
}

// MailboxScanner is the slice of the Gmail client the pipeline needs.
type MailboxScanner interface {
	ListPDFAttachments(ctx context.Context, token string) ([]gmail.Attachment, gmail.ScanStats, error)
}

// TextExtractor renders PDF bytes to plain text. Satisfied by
// pdftext.Extractor.
type TextExtractor interface {
	Extract(ctx context.Context, pdf []byte, nameHint string) (string, int, error)
}

type Service struct {
	pdf     TextExtractor
	llm     llm.LoadExtractor
	geo     geo.DistanceLookup
	mailbox MailboxScanner
	loads   repository.LoadRepository
	engine  *reconcile.Engine
	queue   async.Queue
	log     *slog.Logger
	now     func() time.Time
}

func NewService(
	pdf TextExtractor,
	extractor llm.LoadExtractor,
	distance geo.DistanceLookup,
	mailbox MailboxScanner,
	loads repository.LoadRepository,
	engine *reconcile.Engine,
	queue async.Queue,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		pdf:     pdf,
		llm:     extractor,
		geo:     distance,
		mailbox: mailbox,
		loads:   loads,
		engine:  engine,
		queue:   queue,
		log:     logger,
		now:     time.Now,
	}
}
