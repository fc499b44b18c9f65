// Package prompts holds the AI instruction templates as embedded, swappable
// text assets parameterized by invoice type and language. The wording is
// configuration, not logic: the service only selects and fills a template.
package prompts

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/thelabelsunday/invoice-checker/constants"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Params fills one template. Vision selects the image-oriented variant of the
// instructions; InvoiceText is empty in that case since the pages travel as
// image attachments.
type Params struct {
	Requirements string
	InvoiceText  string
	Vision       bool
}

// Build renders the validation prompt for the given invoice type and language.
func Build(t constants.InvoiceType, lang constants.Language, p Params) (string, error) {
	name := fmt.Sprintf("%s_%s.tmpl", t, lang)
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, p); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return b.String(), nil
}
