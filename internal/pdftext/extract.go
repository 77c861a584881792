// Package pdftext turns raw PDF bytes into plain text by shelling out to
// poppler's pdftotext.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

type Extractor struct {
	bin     string
	timeout time.Duration
	logger  *slog.Logger
}

func NewExtractor(bin string, timeout time.Duration, logger *slog.Logger) *Extractor {
	if bin == "" {
		bin = "pdftotext"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{bin: bin, timeout: timeout, logger: logger}
}

// Extract renders a PDF to plain text. Unreadable or image-only PDFs yield
// blank text with a nil error; callers classify blank text as a skip rather
// than a failure.
func (e *Extractor) Extract(ctx context.Context, pdf []byte, nameHint string) (string, int, error) {
	start := time.Now()

	tmp, err := os.CreateTemp("", "lb-pdf-*.pdf")
	if err != nil {
		return "", 0, fmt.Errorf("pdftext: temp file: %w", err)
	}
	defer func(path string) {
		if rmErr := os.Remove(path); rmErr != nil {
			e.logger.Warn("pdftext.tempfile_remove_failed", "path", path, "error", rmErr)
		}
	}(tmp.Name())

	if _, err := tmp.Write(pdf); err != nil {
		_ = tmp.Close()
		return "", 0, fmt.Errorf("pdftext: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("pdftext: close temp: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	cmd := exec.CommandContext(ctx, e.bin, "-layout", "-enc", "UTF-8", "-eol", "unix", tmp.Name(), "-")
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", 0, fmt.Errorf("pdftext: %s timed out: %w", filepath.Base(e.bin), ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// pdftotext rejected the document; report blank text, not an error.
			e.logger.Warn("pdftext.unreadable",
				"file", nameHint,
				"exit_code", exitErr.ExitCode(),
				"stderr", strings.TrimSpace(errb.String()),
			)
			return "", 0, nil
		}
		return "", 0, fmt.Errorf("pdftext: run %s: %w", e.bin, err)
	}

	text := out.String()
	// A form-feed \f is the page separator pdftotext emits by default.
	pages := 1 + strings.Count(text, "\f")
	if strings.TrimSpace(text) == "" {
		pages = 0
	}

	e.logger.Info("pdftext.ok",
		"file", nameHint,
		"pages", pages,
		"bytes", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, pages, nil
}
