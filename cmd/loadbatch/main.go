// loadbatch extracts every rate-confirmation PDF in a directory into an
// in-memory load book and writes the result as an XLSX workbook. Useful for
// one-off backfills without running the daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/freightline/loadbook/internal/common"
	"github.com/freightline/loadbook/internal/crm"
	"github.com/freightline/loadbook/internal/export"
	"github.com/freightline/loadbook/internal/geo"
	"github.com/freightline/loadbook/internal/ingest"
	"github.com/freightline/loadbook/internal/llm/openai"
	"github.com/freightline/loadbook/internal/pdftext"
	"github.com/freightline/loadbook/internal/reconcile"
	"github.com/freightline/loadbook/internal/repository"
)

func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir = flag.String("dir", "", "directory of rate confirmation PDFs (required)")
		out = flag.String("out", "", "output XLSX path (default <dir>/../loads.xlsx)")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "loads.xlsx")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if cfg.LLM.APIKey == "" {
		printError("Error: OPENAI_API_KEY is required\n")
		os.Exit(1)
	}

	ctx := context.Background()

	files, err := collectPDFs(*dir)
	if err != nil {
		logger.Error("failed to read directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		printError("Error: no PDF files under %s\n", *dir)
		os.Exit(1)
	}
	logger.Info("starting batch extraction", "dir", *dir, "files", len(files))

	mem := repository.NewMemoryStore()
	textExtractor := pdftext.NewExtractor(cfg.Extract.PdftotextBin, cfg.Extract.Timeout, logger)
	llmClient := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	distance := geo.NewClient(geo.Config{
		BaseURL: cfg.Routing.BaseURL,
		APIKey:  cfg.Routing.APIKey,
		Timeout: cfg.Routing.Timeout,
	}, logger)

	// No mailbox and no async queue in CLI mode; aggregation runs inline.
	svc := ingest.NewService(textExtractor, llmClient, distance, nil,
		mem.Loads(), reconcile.NewEngine(logger), nil, logger)

	res, err := svc.ProcessUpload(ctx, common.DefaultAccount, files)
	if err != nil {
		logger.Error("batch extraction failed", "error", err)
		os.Exit(1)
	}
	for _, fe := range res.Errors {
		logger.Warn("file not extracted", "file", fe.File, "reason", fe.Reason)
	}

	loads, err := mem.Loads().ListByAccount(ctx, common.DefaultAccount)
	if err != nil {
		logger.Error("failed to list loads", "error", err)
		os.Exit(1)
	}

	aggregator := crm.NewAggregator(mem.Brokers(), logger)
	if _, _, err := aggregator.SyncFromLoads(ctx, common.DefaultAccount, loads); err != nil {
		logger.Warn("broker aggregation failed", "error", err)
	}

	book, err := export.NewService(logger).Workbook(common.DefaultAccount, loads)
	if err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, book, 0644); err != nil {
		logger.Error("failed to write output file", "path", *out, "error", err)
		os.Exit(1)
	}

	fmt.Printf("Batch extraction complete!\n")
	fmt.Printf("- Files: %d\n", len(files))
	fmt.Printf("- Extracted: %d\n", res.Added)
	fmt.Printf("- Duplicates: %d\n", res.Duplicates)
	fmt.Printf("- Skipped: %d\n", res.Skipped)
	fmt.Printf("- Failed: %d\n", res.Failed)
	fmt.Printf("- Output: %s\n", *out)
}

func collectPDFs(dir string) ([]ingest.FileInput, error) {
	var files []ingest.FileInput
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".pdf") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, ingest.FileInput{Name: d.Name(), Data: data})
		return nil
	})
	return files, err
}
