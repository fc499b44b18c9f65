package render

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/chromedp/chromedp"
)

// Ordered probe list for consent overlays, most specific first. Absence of
// any match is not an error.
var consentSelectors = []string{
	"#acceptAllButton",
	"#gdprCookieBanner button",
	"[data-testid='accept-cookies']",
}

// Button labels clicked when no selector matched; compared case-insensitively
// against trimmed button text.
var consentButtonTexts = []string{
	"accept",
	"accept all",
	"ok",
}

// dismissConsentOverlay clicks the first visible match from the probe lists.
func (r *Renderer) dismissConsentOverlay() chromedp.ActionFunc {
	return func(ctx context.Context) error {
		var clicked string
		if err := chromedp.Evaluate(consentClickScript(), &clicked).Do(ctx); err != nil {
			// Overlay probing is best effort; a script failure must not kill
			// the render.
			r.logger.Debug("render.consent.probe_failed", "error", err)
			return nil
		}
		if clicked != "" {
			r.logger.Info("render.consent.dismissed", "via", clicked)
		}
		return nil
	}
}

// consentClickScript builds the in-page probe. It returns the selector or
// button label it clicked, or the empty string.
func consentClickScript() string {
	sels, _ := json.Marshal(consentSelectors)
	texts, _ := json.Marshal(consentButtonTexts)

	var b strings.Builder
	b.WriteString("(() => {\n")
	b.WriteString("  const sels = ")
	b.Write(sels)
	b.WriteString(";\n  for (const s of sels) {\n")
	b.WriteString("    const el = document.querySelector(s);\n")
	b.WriteString("    if (el && el.offsetParent !== null) { el.click(); return s; }\n")
	b.WriteString("  }\n")
	b.WriteString("  const texts = ")
	b.Write(texts)
	b.WriteString(";\n  for (const btn of document.querySelectorAll('button')) {\n")
	b.WriteString("    const t = (btn.textContent || '').trim().toLowerCase();\n")
	b.WriteString("    if (texts.includes(t) && btn.offsetParent !== null) { btn.click(); return 'button:' + t; }\n")
	b.WriteString("  }\n")
	b.WriteString("  return '';\n})()")
	return b.String()
}

// LooksLikeLoginPage reports whether the final URL or page title indicates an
// authentication wall instead of invoice content.
func LooksLikeLoginPage(finalURL, title string) bool {
	u := strings.ToLower(finalURL)
	for _, marker := range []string{"signin", "login", "authflow", "/auth/"} {
		if strings.Contains(u, marker) {
			return true
		}
	}
	t := strings.ToLower(title)
	for _, marker := range []string{"log in", "sign in", "log på"} {
		if strings.Contains(t, marker) {
			return true
		}
	}
	return false
}
