// Package sched runs the periodic mailbox re-scan on a cron schedule.
package sched

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/freightline/loadbook/internal/ingest"
)

type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

// New builds a scheduler that re-scans the configured mailbox on the given
// cron spec. An empty spec or token disables the job; New still returns a
// scheduler so shutdown stays uniform.
func New(spec, account, token string, svc *ingest.Service, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := cron.New()
	s := &Scheduler{cron: c, log: logger}

	if spec == "" || token == "" {
		logger.Info("sched.gmail_rescan.disabled")
		return s, nil
	}

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		res, err := svc.ScanMailbox(ctx, account, token)
		if err != nil {
			logger.Error("sched.gmail_rescan.failed", "account", account, "error", err)
			return
		}
		logger.Info("sched.gmail_rescan.done",
			"account", account,
			"emails_scanned", res.EmailsScanned,
			"pdfs_found", res.PDFsFound,
			"added", res.Added,
			"duplicates", res.Duplicates,
			"quota_exhausted", res.QuotaExhausted,
		)
	})
	if err != nil {
		return nil, err
	}
	logger.Info("sched.gmail_rescan.enabled", "spec", spec, "account", account)
	return s, nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts scheduling and waits for a running job or the context.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("sched.stop_interrupted")
	}
}
