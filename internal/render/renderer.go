package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/thelabelsunday/invoice-checker/internal/common"
	"github.com/thelabelsunday/invoice-checker/internal/extract"
)

// Desktop profile for the throwaway browser session. Invoicing platforms
// block or redirect clients that look automated, so the session advertises an
// ordinary browser and suppresses the webdriver flag.
const (
	viewportWidth  = 1280
	viewportHeight = 1024
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/122.0.0.0 Safari/537.36"
)

// A4 in inches with 10mm margins.
const (
	paperWidthIn  = 8.27
	paperHeightIn = 11.69
	marginIn      = 0.394
)

// Config for the page renderer.
type Config struct {
	Timeout     time.Duration // wall-clock ceiling for navigation + rendering
	SettleWait  time.Duration // post-load wait for client-side rendering
	DismissWait time.Duration // post-dismiss wait for overlay reflow
	MinPDFBytes int           // smaller output is treated as a failed render
	ExecPath    string        // browser binary override; "" -> chromedp default
}

// Renderer drives an isolated headless browser session per URL and exports
// the rendered page as a paginated PDF.
type Renderer struct {
	cfg    Config
	logger *slog.Logger
}

func NewRenderer(cfg Config, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.SettleWait <= 0 {
		cfg.SettleWait = 5 * time.Second
	}
	if cfg.DismissWait <= 0 {
		cfg.DismissWait = 2 * time.Second
	}
	if cfg.MinPDFBytes <= 0 {
		cfg.MinPDFBytes = 100
	}
	return &Renderer{cfg: cfg, logger: logger}
}

// Render opens the URL in a fresh browser session, waits for the page to
// settle, dismisses consent overlays, and returns the page as a PDF document.
// The browser process is torn down on every exit path.
func (r *Renderer) Render(ctx context.Context, url string) (extract.RawDocument, error) {
	if err := ValidateURL(url); err != nil {
		return extract.RawDocument{}, err
	}

	start := time.Now()
	r.logger.Info("render.start", "url_len", len(url))

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(viewportWidth, viewportHeight),
		chromedp.Flag("lang", "en-US"),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if r.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.cfg.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	runCtx, cancelRun := context.WithTimeout(browserCtx, r.cfg.Timeout)
	defer cancelRun()

	var (
		finalURL string
		title    string
		pdfBytes []byte
	)

	err := chromedp.Run(runCtx,
		suppressWebdriverFlag(),
		navigateWaitDOMContentLoaded(url),
		// Let client-side scripts finish rendering before capture. A network
		// idle wait would hang forever here: payment platforms keep tracking
		// connections open indefinitely.
		chromedp.Sleep(r.cfg.SettleWait),
		r.dismissConsentOverlay(),
		chromedp.Sleep(r.cfg.DismissWait),
		chromedp.Location(&finalURL),
		chromedp.Title(&title),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if LooksLikeLoginPage(finalURL, title) {
				return common.NewAppError("RENDER_AUTH", "page redirected to a login screen", common.ErrAuthRequired)
			}
			var err error
			pdfBytes, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paperWidthIn).
				WithPaperHeight(paperHeightIn).
				WithMarginTop(marginIn).
				WithMarginBottom(marginIn).
				WithMarginLeft(marginIn).
				WithMarginRight(marginIn).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			r.logger.Error("render.timeout", "timeout", r.cfg.Timeout, "elapsed_ms", time.Since(start).Milliseconds())
			return extract.RawDocument{}, common.NewAppError("RENDER_TIMEOUT",
				fmt.Sprintf("page did not render within %s", r.cfg.Timeout), common.ErrRenderTimeout)
		}
		if errors.Is(err, common.ErrAuthRequired) {
			r.logger.Warn("render.auth_required", "final_url", clip(finalURL, 120), "title", title)
			return extract.RawDocument{}, err
		}
		r.logger.Error("render.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return extract.RawDocument{}, common.WrapError(err, "render page")
	}

	if len(pdfBytes) < r.cfg.MinPDFBytes {
		r.logger.Error("render.empty", "bytes", len(pdfBytes), "min", r.cfg.MinPDFBytes)
		return extract.RawDocument{}, common.NewAppError("RENDER_EMPTY",
			fmt.Sprintf("rendered PDF is %d bytes", len(pdfBytes)), common.ErrEmptyRender)
	}

	r.logger.Info("render.ok",
		"final_url", clip(finalURL, 120),
		"title", title,
		"bytes", len(pdfBytes),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return extract.RawDocument{Bytes: pdfBytes, Source: extract.SourceRenderedURL}, nil
}

// ValidateURL rejects anything that is not plain HTTP/HTTPS.
func ValidateURL(url string) error {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return common.NewAppError("RENDER_URL", "url must start with http:// or https://", common.ErrInvalidURL)
	}
	return nil
}

// suppressWebdriverFlag removes the navigator.webdriver automation marker
// before any page script runs.
func suppressWebdriverFlag() chromedp.ActionFunc {
	return func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(
			"Object.defineProperty(navigator, 'webdriver', {get: () => undefined})",
		).Do(ctx)
		return err
	}
}

// navigateWaitDOMContentLoaded navigates and waits only for the initial
// document parse, not the load event or network quiescence.
func navigateWaitDOMContentLoaded(url string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		done := make(chan struct{}, 1)
		lctx, cancel := context.WithCancel(ctx)
		defer cancel()
		chromedp.ListenTarget(lctx, func(ev any) {
			if _, ok := ev.(*page.EventDomContentEventFired); ok {
				select {
				case done <- struct{}{}:
				default:
				}
			}
		})

		_, _, errText, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errText != "" {
			return fmt.Errorf("navigate: %s", errText)
		}

		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
