package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/thelabelsunday/invoice-checker/internal/common"
	"github.com/thelabelsunday/invoice-checker/internal/render"
)

// renderurl renders a web page to a PDF file, useful for debugging the
// headless-browser path in isolation.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	pageURL := flag.String("url", "", "page URL to render")
	outPath := flag.String("out", "page.pdf", "output PDF path")
	flag.Parse()

	if *pageURL == "" {
		logger.Error("usage", "cmd", "renderurl -url https://... [-out page.pdf]")
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	renderer := render.NewRenderer(render.Config{
		Timeout:     cfg.Render.Timeout,
		SettleWait:  cfg.Render.SettleWait,
		DismissWait: cfg.Render.DismissWait,
		MinPDFBytes: cfg.Render.MinPDFBytes,
		ExecPath:    cfg.Render.ChromeBinary,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Render.Timeout+30*time.Second)
	defer cancel()

	start := time.Now()
	raw, err := renderer.Render(ctx, *pageURL)
	if err != nil {
		logger.Error("render failed", "url", *pageURL, "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outPath, raw.Bytes, 0o644); err != nil {
		logger.Error("write output", "path", *outPath, "error", err)
		os.Exit(1)
	}
	logger.Info("render OK",
		"url", *pageURL,
		"out", *outPath,
		"bytes", len(raw.Bytes),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
