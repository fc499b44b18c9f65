package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/thelabelsunday/invoice-checker/constants"
	"github.com/thelabelsunday/invoice-checker/internal/common"
	"github.com/thelabelsunday/invoice-checker/internal/extract"
	"github.com/thelabelsunday/invoice-checker/internal/format"
)

const maxUploadBytes = 20 << 20

// handleAnalyze validates a document supplied either as an uploaded PDF
// ("file" part) or as a URL ("url" field). A URL is first fetched directly;
// when the response is not a PDF the page is rendered instead. "format=report"
// returns the reshaped pass/fail payload instead of the full verdict.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, common.NewAppError("BAD_REQUEST", "invalid multipart form", common.ErrInvalidInput))
		return
	}

	invoiceType, ok := constants.ParseInvoiceType(formValueDefault(r, "invoice_type", string(constants.InvoiceTypePayPal)))
	if !ok {
		s.respondError(w, common.NewAppError("BAD_REQUEST", "invalid invoice type, must be 'paypal' or 'bank_transfer'", common.ErrInvalidInput))
		return
	}
	lang, ok := constants.ParseLanguage(formValueDefault(r, "language", string(constants.LanguageDanish)))
	if !ok {
		s.respondError(w, common.NewAppError("BAD_REQUEST", "invalid language, must be 'da' or 'en'", common.ErrInvalidInput))
		return
	}

	raw, err := s.obtainDocument(r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	v, err := s.pipeline.Check(r.Context(), raw, invoiceType, lang)
	if err != nil {
		s.respondError(w, err)
		return
	}

	if r.FormValue("format") == "report" {
		s.respondJSON(w, http.StatusOK, format.FormatAPI(v))
		return
	}
	s.respondJSON(w, http.StatusOK, v)
}

// obtainDocument resolves the request's document bytes from the upload part
// or the url field.
func (s *Server) obtainDocument(r *http.Request) (extract.RawDocument, error) {
	file, header, err := r.FormFile("file")
	if err == nil {
		defer func() { _ = file.Close() }()
		if !constants.IsPDFName(header.Filename) {
			return extract.RawDocument{}, common.NewAppError("BAD_REQUEST", "invalid file type, only .pdf is accepted", common.ErrInvalidInput)
		}
		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			return extract.RawDocument{}, common.NewAppError("BAD_REQUEST", "failed to read file", common.ErrInvalidInput)
		}
		return extract.RawDocument{Bytes: data, Source: extract.SourceUploadedFile}, nil
	}

	pageURL := r.FormValue("url")
	if pageURL == "" {
		return extract.RawDocument{}, common.NewAppError("BAD_REQUEST", "no file or url provided", common.ErrInvalidInput)
	}

	// Try a direct download first; many invoice links serve the PDF itself.
	if data, err := s.downloadURL(r, pageURL); err == nil && constants.IsPDFBytes(data) {
		return extract.RawDocument{Bytes: data, Source: extract.SourceDownloadedURL}, nil
	}
	return s.renderer.Render(r.Context(), pageURL)
}

func (s *Server) downloadURL(r *http.Request, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.download.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxUploadBytes))
}

// handleRequirements returns the catalog's field list for an invoice type.
func (s *Server) handleRequirements(w http.ResponseWriter, r *http.Request) {
	invoiceType, ok := constants.ParseInvoiceType(queryDefault(r, "invoice_type", string(constants.InvoiceTypePayPal)))
	if !ok {
		s.respondError(w, common.NewAppError("BAD_REQUEST", "invalid invoice type, must be 'paypal' or 'bank_transfer'", common.ErrInvalidInput))
		return
	}
	s.respondJSON(w, http.StatusOK, s.catalog.ForType(invoiceType))
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, common.NewAppError("NOT_CONFIGURED", "history persistence is disabled", common.ErrInternal))
		return
	}
	from, to, err := dateWindow(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	entries, err := s.history.List(r.Context(), from, to)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, common.NewAppError("NOT_CONFIGURED", "history persistence is disabled", common.ErrInternal))
		return
	}
	from, to, err := dateWindow(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	data, err := s.history.ExportXLSX(r.Context(), from, to)
	if err != nil {
		s.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="validations.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Invoice Checker API is running"})
}

func dateWindow(r *http.Request) (*time.Time, *time.Time, error) {
	parse := func(key string) (*time.Time, error) {
		v := r.URL.Query().Get(key)
		if v == "" {
			return nil, nil
		}
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, common.NewAppError("BAD_REQUEST", fmt.Sprintf("invalid %s date, expected YYYY-MM-DD", key), common.ErrInvalidInput)
		}
		return &t, nil
	}
	from, err := parse("from")
	if err != nil {
		return nil, nil, err
	}
	to, err := parse("to")
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func formValueDefault(r *http.Request, key, fallback string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return fallback
}

func queryDefault(r *http.Request, key, fallback string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return fallback
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError writes the structured error body with the machine-checkable
// category alongside the human-readable detail.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := common.HTTPStatus(err)
	s.logger.Error("server.request_failed",
		"status", status,
		"category", common.ErrorCategory(err),
		"error", err.Error(),
	)
	s.respondJSON(w, status, map[string]string{
		"category": common.ErrorCategory(err),
		"detail":   err.Error(),
	})
}
