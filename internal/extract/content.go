package extract

import "strings"

// SourceKind records where a raw document's bytes came from.
type SourceKind string

const (
	SourceUploadedFile  SourceKind = "uploaded-file"
	SourceDownloadedURL SourceKind = "downloaded-url"
	SourceRenderedURL   SourceKind = "rendered-url"
)

// RawDocument is an opaque byte sequence plus its origin. It is immutable
// once obtained and consumed exactly once by the extractor.
type RawDocument struct {
	Bytes  []byte
	Source SourceKind
}

// Variant tags the two possible extraction outcomes.
type Variant int

const (
	// VariantText carries per-page extracted text.
	VariantText Variant = iota
	// VariantRasterPages carries per-page PNG images for vision analysis.
	VariantRasterPages
)

// Content is the closed sum of the two extraction outcomes. Exactly one of
// Pages or Images is populated, decided once per document and never revisited.
type Content struct {
	Kind   Variant
	Pages  []string // VariantText: one entry per page, page marker included
	Images [][]byte // VariantRasterPages: one PNG per page
}

// Text returns the concatenated page text for the text variant.
func (c Content) Text() string {
	return strings.Join(c.Pages, "\n\n")
}
