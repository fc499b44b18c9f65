package constants

import "strings"

// PDFMagic is the leading byte sequence of every parseable PDF document.
const PDFMagic = "%PDF-"

// RasterScale is the upscaling factor for image-only documents. Page images
// are rendered at twice the PDF's native 72 DPI so small print survives the
// round trip into vision analysis.
const (
	RasterScale = 2
	RasterDPI   = 72 * RasterScale
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsPDFName reports whether a filename claims to be a PDF.
func IsPDFName(name string) bool {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return NormalizeExt(name[i:]) == "pdf"
	}
	return false
}

// IsPDFBytes reports whether raw bytes start a PDF document.
func IsPDFBytes(b []byte) bool {
	return len(b) >= len(PDFMagic) && string(b[:len(PDFMagic)]) == PDFMagic
}
