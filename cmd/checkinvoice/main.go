package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/thelabelsunday/invoice-checker/constants"
	"github.com/thelabelsunday/invoice-checker/internal/catalog"
	"github.com/thelabelsunday/invoice-checker/internal/common"
	"github.com/thelabelsunday/invoice-checker/internal/extract"
	"github.com/thelabelsunday/invoice-checker/internal/format"
	"github.com/thelabelsunday/invoice-checker/internal/pipeline"
	"github.com/thelabelsunday/invoice-checker/internal/verdict"
	"github.com/thelabelsunday/invoice-checker/internal/verdict/anthropic"
)

// checkinvoice validates one local PDF from the command line and prints the
// reshaped pass/fail report (or the full verdict with -json).
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	filePath := flag.String("file", "", "path to the PDF to validate")
	invoiceTypeArg := flag.String("type", string(constants.InvoiceTypePayPal), "invoice type: paypal or bank_transfer")
	langArg := flag.String("lang", string(constants.LanguageDanish), "verdict language: da or en")
	asJSON := flag.Bool("json", false, "print the full verdict as JSON")
	flag.Parse()

	if *filePath == "" {
		logger.Error("usage", "cmd", "checkinvoice -file invoice.pdf [-type paypal|bank_transfer] [-lang da|en] [-json]")
		os.Exit(2)
	}
	invoiceType, ok := constants.ParseInvoiceType(*invoiceTypeArg)
	if !ok {
		logger.Error("invalid invoice type", "arg", *invoiceTypeArg)
		os.Exit(2)
	}
	lang, ok := constants.ParseLanguage(*langArg)
	if !ok {
		logger.Error("invalid language", "arg", *langArg)
		os.Exit(2)
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		logger.Error("read file", "path", *filePath, "error", err)
		os.Exit(1)
	}

	cfg := common.LoadConfig()
	if cfg.AI.APIKey == "" {
		logger.Error("ANTHROPIC_API_KEY required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cat := catalog.MustLoad()
	extractor := extract.NewExtractor(extract.Config{
		Pdftoppm: cfg.Extract.Pdftoppm,
		DPI:      cfg.Extract.DPI,
		TempDir:  cfg.Extract.TempDir,
	}, logger)
	aiClient := anthropic.NewClient(anthropic.Config{
		APIKey:    cfg.AI.APIKey,
		BaseURL:   cfg.AI.BaseURL,
		Model:     cfg.AI.Model,
		MaxTokens: cfg.AI.MaxTokens,
		Timeout:   cfg.AI.Timeout,
	}, logger)
	verdicts := verdict.NewService(aiClient, cat, logger)
	checker := pipeline.NewChecker(extractor, verdicts, nil, logger)

	raw := extract.RawDocument{Bytes: data, Source: extract.SourceUploadedFile}
	v, err := checker.Check(ctx, raw, invoiceType, lang)
	if err != nil {
		logger.Error("validation failed", "error", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			logger.Error("encode verdict", "error", err)
			os.Exit(1)
		}
		return
	}

	report := format.FormatAPI(v)
	fmt.Printf("Status:  %s\n", report.Status)
	fmt.Printf("Summary: %s\n", report.Summary)
	if report.Logs != "" {
		fmt.Println()
		fmt.Println(report.Logs)
	}
	fmt.Println()
	fmt.Println(v.Summary)
	if !report.Passed {
		os.Exit(1)
	}
}
