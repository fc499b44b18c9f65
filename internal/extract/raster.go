package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// rasterize renders every page of the document to a PNG at the configured
// DPI using pdftoppm. The raw bytes are staged in a scratch directory because
// poppler only reads from disk.
func (e *Extractor) rasterize(ctx context.Context, raw []byte) ([][]byte, error) {
	tmpDir, err := os.MkdirTemp(e.cfg.TempDir, "ic-raster-*")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("extract.raster.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	in := filepath.Join(tmpDir, "doc.pdf")
	if err := os.WriteFile(in, raw, 0o600); err != nil {
		return nil, err
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", in, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w (stderr: %s)", err, truncate(string(errb), 2<<10))
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no images")
	}

	images := make([][]byte, 0, len(matches))
	for _, img := range matches {
		b, err := os.ReadFile(img)
		if err != nil {
			return nil, fmt.Errorf("read page image: %w", err)
		}
		images = append(images, b)
	}
	return images, nil
}
