package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/thelabelsunday/invoice-checker/constants"
	"github.com/thelabelsunday/invoice-checker/internal/common"
)

// Config for the document extractor.
type Config struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	DPI      int    // rasterization DPI for image-only documents, default 144 (2x native)
	TempDir  string // scratch dir for rasterization; "" -> OS default
}

// Extractor turns raw document bytes into Content: extracted text when the
// document carries any, rasterized page images otherwise.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger

	// seams for tests
	textExtract func(raw []byte) ([]string, error)
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = constants.RasterDPI
	}
	e := &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
	e.textExtract = e.pdfToPageText
	return e
}

// Extract attempts text extraction first. Only when the whole document yields
// no text at all does it fall back to rasterized pages; no other signal
// influences the decision.
func (e *Extractor) Extract(ctx context.Context, raw RawDocument) (Content, error) {
	start := time.Now()
	e.logger.Debug("extract.start", "source", raw.Source, "bytes", len(raw.Bytes))

	if !constants.IsPDFBytes(raw.Bytes) {
		return Content{}, common.NewAppError("DOCUMENT_FORMAT", "bytes do not start a PDF document", common.ErrDocumentFormat)
	}

	pages, err := e.textExtract(raw.Bytes)
	if err != nil {
		e.logger.Error("extract.text_failed", "error", err)
		return Content{}, common.NewAppError("DOCUMENT_FORMAT", "text extraction failed", common.ErrDocumentFormat)
	}

	if strings.TrimSpace(strings.Join(pages, "")) != "" {
		e.logger.Info("extract.ok",
			"variant", "text",
			"pages", len(pages),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Content{Kind: VariantText, Pages: pages}, nil
	}

	// Image-only document: rasterize every page for vision analysis.
	images, err := e.rasterize(ctx, raw.Bytes)
	if err != nil {
		e.logger.Error("extract.raster_failed", "error", err)
		return Content{}, common.NewAppError("DOCUMENT_FORMAT", "rasterization failed", common.ErrDocumentFormat)
	}
	e.logger.Info("extract.ok",
		"variant", "raster",
		"pages", len(images),
		"dpi", e.cfg.DPI,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Content{Kind: VariantRasterPages, Images: images}, nil
}

// pdfToPageText extracts per-page prose plus any columnar rows serialized as
// delimited table lines, each page prefixed with an explicit marker.
func (e *Extractor) pdfToPageText(raw []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	numPages := r.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}

		var b strings.Builder
		if strings.TrimSpace(text) != "" {
			fmt.Fprintf(&b, "--- Page %d ---\n%s", i, strings.TrimSpace(text))
		}

		// Tabular rows are serialized after the page prose; extraction
		// failures here degrade to prose-only, they do not fail the page.
		if tbl := tableLines(page); len(tbl) > 0 {
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString("[Table]\n")
			b.WriteString(strings.Join(tbl, "\n"))
		}

		pages = append(pages, b.String())
	}
	return pages, nil
}

// tableLines detects columnar rows on a page and serializes each as
// " | "-delimited cells. Rows with a single cell are plain prose and skipped.
func tableLines(page pdf.Page) []string {
	rows, err := page.GetTextByRow()
	if err != nil {
		return nil
	}

	var lines []string
	for _, row := range rows {
		cells := clusterRow(row.Content)
		if len(cells) >= 2 {
			lines = append(lines, strings.Join(cells, " | "))
		}
	}
	// A lone multi-cell row is usually a header/footer split, not a table.
	if len(lines) < 2 {
		return nil
	}
	return lines
}

// clusterRow groups text fragments into cells by horizontal gaps.
func clusterRow(texts []pdf.Text) []string {
	if len(texts) == 0 {
		return nil
	}

	var cells []string
	var cell strings.Builder
	prevEnd := texts[0].X
	for _, t := range texts {
		gap := t.X - prevEnd
		threshold := t.FontSize * 2
		if threshold <= 0 {
			threshold = 20
		}
		if cell.Len() > 0 && gap > threshold {
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		}
		cell.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	if s := strings.TrimSpace(cell.String()); s != "" {
		cells = append(cells, s)
	}

	// Drop empty cells.
	out := cells[:0]
	for _, c := range cells {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
