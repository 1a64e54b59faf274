// Command claimctl runs the claim pipeline against local files and
// writes the report to stdout or a file. Exit codes follow the
// decision: 0 approved, 1 rejected, 2 manual review, 3 error.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kirillkom/claims-pipeline/internal/bootstrap"
	"github.com/kirillkom/claims-pipeline/internal/config"
	"github.com/kirillkom/claims-pipeline/internal/core/domain"
	"github.com/kirillkom/claims-pipeline/internal/export"
	"github.com/kirillkom/claims-pipeline/internal/observability/logging"
)

const exitError = 3

func main() {
	os.Exit(run())
}

func run() int {
	var (
		dir    = flag.String("dir", "", "directory with the claim's documents")
		out    = flag.String("out", "", "report output path (default stdout for json)")
		format = flag.String("format", "json", "report format: json or xlsx")
	)
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.NewTextLogger("claimctl", cfg.LogLevel)
	slog.SetDefault(logger)

	if *format != "json" && *format != "xlsx" {
		logger.Error("unknown format", "format", *format)
		return exitError
	}

	paths, err := collectPaths(*dir, flag.Args())
	if err != nil {
		logger.Error("collect documents", "error", err)
		return exitError
	}
	if len(paths) == 0 {
		logger.Error("no documents given; pass files or -dir")
		return exitError
	}

	docs, err := readDocuments(paths)
	if err != nil {
		logger.Error("read documents", "error", err)
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		return exitError
	}
	defer app.Close()

	logger.Info("processing claim", "documents", len(docs), "provider", cfg.LLMProvider)
	report, err := app.Processor.ProcessClaim(ctx, docs)
	if err != nil {
		logger.Error("claim processing failed", "error", err)
		return exitError
	}

	if err := writeReport(report, *format, *out); err != nil {
		logger.Error("write report", "error", err)
		return exitError
	}

	logger.Info("claim processed",
		"claim_id", report.ClaimID,
		"decision", report.Decision.Status,
		"confidence", fmt.Sprintf("%.2f", report.Decision.Confidence),
		"discrepancies", len(report.Validation.Discrepancies),
		"elapsed_seconds", fmt.Sprintf("%.2f", report.ElapsedSeconds),
	)
	return exitCode(report.Decision.Status)
}

func collectPaths(dir string, args []string) ([]string, error) {
	paths := append([]string(nil), args...)
	if dir == "" {
		return paths, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return paths, nil
}

func readDocuments(paths []string) ([]domain.RawDocument, error) {
	docs := make([]domain.RawDocument, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		docs = append(docs, domain.RawDocument{
			Filename:     filepath.Base(path),
			Content:      content,
			DeclaredMIME: mime.TypeByExtension(filepath.Ext(path)),
		})
	}
	return docs, nil
}

func writeReport(report *domain.ClaimReport, format, out string) error {
	switch format {
	case "xlsx":
		if out == "" {
			out = "claim-report.xlsx"
		}
		data, err := export.ClaimReportXLSX(report)
		if err != nil {
			return err
		}
		return os.WriteFile(out, data, 0o644)

	default:
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		data = append(data, '\n')
		if out == "" {
			_, err = os.Stdout.Write(data)
			return err
		}
		return os.WriteFile(out, data, 0o644)
	}
}

func exitCode(status domain.DecisionStatus) int {
	switch status {
	case domain.StatusApproved:
		return 0
	case domain.StatusRejected:
		return 1
	default:
		return 2
	}
}
