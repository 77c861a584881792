package ingest

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/freightline/loadbook/internal/async"
	"github.com/freightline/loadbook/internal/common"
	"github.com/freightline/loadbook/internal/entity"
	"github.com/freightline/loadbook/internal/llm"
)

// ProcessUpload runs the pipeline over manually uploaded PDFs and persists
// the reconciled result.
func (s *Service) ProcessUpload(ctx context.Context, account string, files []FileInput) (Result, error) {
	return s.run(ctx, account, "upload", files)
}

// ProcessExtension runs the pipeline over PDFs captured by the browser
// extension. Identical to an upload batch apart from the source tag.
func (s *Service) ProcessExtension(ctx context.Context, account string, files []FileInput) (Result, error) {
	return s.run(ctx, account, "extension", files)
}

// ScanMailbox pulls PDF attachments from the account's mailbox and feeds them
// through the same pipeline. Duplicate attachments (identical bytes under
// different messages) are collapsed before extraction so the model is only
// called once per distinct document.
func (s *Service) ScanMailbox(ctx context.Context, account, token string) (Result, error) {
	attachments, scan, err := s.mailbox.ListPDFAttachments(ctx, token)
	if err != nil {
		return Result{}, err
	}

	seen := make(map[[32]byte]bool, len(attachments))
	files := make([]FileInput, 0, len(attachments))
	for _, att := range attachments {
		sum := sha256.Sum256(att.Data)
		if seen[sum] {
			s.log.Info("ingest.gmail.duplicate_attachment", "account", account, "file", att.Filename)
			continue
		}
		seen[sum] = true
		files = append(files, FileInput{Name: att.Filename, Data: att.Data})
	}

	res, err := s.run(ctx, account, "gmail", files)
	res.EmailsScanned = scan.EmailsScanned
	res.PDFsFound = scan.PDFsFound
	return res, err
}

// run is the shared batch pipeline. Per-file failures are isolated; the two
// fatal model conditions are handled batch-wide: quota exhaustion stops
// further model calls but keeps the partial result, rejected credentials
// abort the whole batch.
func (s *Service) run(ctx context.Context, account, source string, files []FileInput) (Result, error) {
	start := time.Now()
	var res Result
	var candidates []entity.Load

	for i, f := range files {
		if res.QuotaExhausted {
			res.Failed++
			res.Errors = append(res.Errors, FileError{File: f.Name, Reason: "extraction quota exhausted"})
			continue
		}

		cand, err := s.processFile(ctx, source, f)
		switch {
		case err == nil:
			res.Processed++
			candidates = append(candidates, cand)
		case errors.Is(err, common.ErrNoText):
			res.Skipped++
			res.Errors = append(res.Errors, FileError{File: f.Name, Reason: "no extractable text"})
		case errors.Is(err, common.ErrQuotaExceeded):
			res.QuotaExhausted = true
			res.Failed++
			res.Errors = append(res.Errors, FileError{File: f.Name, Reason: "extraction quota exhausted"})
			s.log.Warn("ingest.quota_exhausted", "account", account, "source", source, "at_file", i+1, "of", len(files))
		case errors.Is(err, common.ErrInvalidAPIKey):
			s.log.Error("ingest.invalid_credentials", "account", account, "source", source)
			return res, err
		default:
			res.Failed++
			res.Errors = append(res.Errors, FileError{File: f.Name, Reason: err.Error()})
			s.log.Warn("ingest.file_failed", "account", account, "file", f.Name, "error", err)
		}
	}

	if err := s.persist(ctx, account, candidates, &res); err != nil {
		return res, err
	}

	s.log.Info("ingest.batch.done",
		"account", account,
		"source", source,
		"files", len(files),
		"processed", res.Processed,
		"added", res.Added,
		"duplicates", res.Duplicates,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"quota_exhausted", res.QuotaExhausted,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// processFile turns one PDF into a load candidate: text, fields, mileage, RPM.
func (s *Service) processFile(ctx context.Context, source string, f FileInput) (entity.Load, error) {
	text, _, err := s.pdf.Extract(ctx, f.Data, f.Name)
	if err != nil {
		return entity.Load{}, err
	}
	if strings.TrimSpace(text) == "" {
		return entity.Load{}, common.ErrNoText
	}

	fields, _, err := s.llm.ExtractLoad(ctx, llm.ExtractRequest{
		Text:         text,
		FilenameHint: f.Name,
		SourceHint:   source,
	})
	if err != nil {
		return entity.Load{}, err
	}

	load := fields.ToLoad(f.Name, s.now().UTC())
	s.enrichDistance(ctx, &load)
	computeRPM(&load)
	return load, nil
}

// enrichDistance fills Miles from the routing service when the document did
// not supply a usable value. Route endpoints are the first pickup and the
// LAST delivery. An unavailable route leaves Miles empty; routing failures
// never fail the file.
func (s *Service) enrichDistance(ctx context.Context, l *entity.Load) {
	if m, err := strconv.Atoi(strings.TrimSpace(l.Miles)); err == nil && m > 0 {
		return
	}
	pickup, delivery := l.FirstPickup(), l.LastDelivery()
	if pickup == nil || delivery == nil {
		l.Miles = ""
		return
	}
	miles, ok, err := s.geo.DriveMiles(ctx, pickup.RouteAddress(), delivery.RouteAddress())
	if err != nil {
		s.log.Warn("ingest.distance_failed", "load_id", l.LoadID, "error", err)
		l.Miles = ""
		return
	}
	if !ok {
		l.Miles = ""
		return
	}
	l.Miles = strconv.Itoa(miles)
}

// computeRPM derives rate-per-mile when both rate and mileage are usable.
// Anything else leaves RPM empty rather than recording a fake zero.
func computeRPM(l *entity.Load) {
	if strings.TrimSpace(l.RPM) != "" {
		return
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(l.RateTotal))
	if err != nil {
		return
	}
	miles, err := decimal.NewFromString(strings.TrimSpace(l.Miles))
	if err != nil || !miles.IsPositive() {
		return
	}
	l.RPM = rate.DivRound(miles, 2).StringFixed(2)
}

// persist reconciles the candidates into the canonical set, writes the
// touched rows in one transaction, and queues a broker re-aggregation when
// anything changed.
func (s *Service) persist(ctx context.Context, account string, candidates []entity.Load, res *Result) error {
	if len(candidates) == 0 {
		return nil
	}
	existing, err := s.loads.ListByAccount(ctx, account)
	if err != nil {
		return fmt.Errorf("ingest: list existing loads: %w", err)
	}

	rec := s.engine.Reconcile(existing, candidates)
	res.Added = rec.Added
	res.Duplicates = rec.Merged
	res.MergedIDs = rec.MergedIDs
	for i := 0; i < rec.Skipped; i++ {
		res.Processed--
		res.Skipped++
	}

	if len(rec.Writes) > 0 {
		if err := s.loads.UpsertBatch(ctx, account, rec.Writes); err != nil {
			return fmt.Errorf("ingest: persist batch: %w", err)
		}
	}

	if rec.Added+rec.Merged > 0 && s.queue != nil {
		_ = s.queue.Enqueue(ctx, async.Job{Account: account, SubmittedAt: s.now()})
	}
	return nil
}
