package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/thelabelsunday/invoice-checker/constants"
	"github.com/thelabelsunday/invoice-checker/internal/catalog"
	"github.com/thelabelsunday/invoice-checker/internal/extract"
	"github.com/thelabelsunday/invoice-checker/internal/verdict"
)

type fakePipeline struct {
	verdict verdict.Verdict
	err     error
	lastRaw extract.RawDocument
	calls   int
}

func (f *fakePipeline) Check(_ context.Context, raw extract.RawDocument, _ constants.InvoiceType, _ constants.Language) (verdict.Verdict, error) {
	f.calls++
	f.lastRaw = raw
	return f.verdict, f.err
}

type fakeRenderer struct {
	raw extract.RawDocument
	err error
}

func (f *fakeRenderer) Render(context.Context, string) (extract.RawDocument, error) {
	return f.raw, f.err
}

func approvedVerdict() verdict.Verdict {
	return verdict.Verdict{
		OverallStatus: constants.StatusApproved,
		InvoiceType:   constants.InvoiceTypePayPal,
		Checks: []verdict.CheckItem{
			{Requirement: "Fakturanummer", Status: constants.CheckPresent, Comment: "ok"},
		},
		Summary: "Alt i orden.",
	}
}

func newTestServer(pipe *fakePipeline, rend *fakeRenderer) *Server {
	return NewServer(pipe, rend, catalog.MustLoad(), nil, ":0", nil)
}

func multipartUpload(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestAnalyzeUpload(t *testing.T) {
	pipe := &fakePipeline{verdict: approvedVerdict()}
	s := newTestServer(pipe, &fakeRenderer{})

	req := multipartUpload(t, "faktura.pdf", []byte("%PDF-1.4 data"), map[string]string{
		"invoice_type": "paypal",
		"language":     "da",
	})
	rec := httptest.NewRecorder()
	s.handleAnalyze(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if pipe.lastRaw.Source != extract.SourceUploadedFile {
		t.Fatalf("source = %s", pipe.lastRaw.Source)
	}
	var v verdict.Verdict
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode verdict: %v", err)
	}
	if v.OverallStatus != constants.StatusApproved {
		t.Fatalf("overall_status = %s", v.OverallStatus)
	}
}

func TestAnalyzeReportFormat(t *testing.T) {
	pipe := &fakePipeline{verdict: approvedVerdict()}
	s := newTestServer(pipe, &fakeRenderer{})

	req := multipartUpload(t, "faktura.pdf", []byte("%PDF-1.4 data"), map[string]string{"format": "report"})
	rec := httptest.NewRecorder()
	s.handleAnalyze(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var report struct {
		Passed  bool   `json:"passed"`
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if !report.Passed || report.Summary != "1/1 checks passed" {
		t.Fatalf("report = %+v", report)
	}
}

func TestAnalyzeRejectsBadSelectors(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
	}{
		{"bad type", map[string]string{"invoice_type": "venmo"}},
		{"bad language", map[string]string{"language": "fr"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipe := &fakePipeline{verdict: approvedVerdict()}
			s := newTestServer(pipe, &fakeRenderer{})
			req := multipartUpload(t, "faktura.pdf", []byte("%PDF-1.4"), tt.fields)
			rec := httptest.NewRecorder()
			s.handleAnalyze(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if pipe.calls != 0 {
				t.Fatal("bad selector must be rejected before processing")
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body["category"] != "bad_input" {
				t.Fatalf("category = %q", body["category"])
			}
		})
	}
}

func TestAnalyzeRejectsNonPDFExtension(t *testing.T) {
	s := newTestServer(&fakePipeline{}, &fakeRenderer{})
	req := multipartUpload(t, "notes.txt", []byte("text"), nil)
	rec := httptest.NewRecorder()
	s.handleAnalyze(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyzeRejectsMissingDocument(t *testing.T) {
	s := newTestServer(&fakePipeline{}, &fakeRenderer{})
	req := multipartUpload(t, "", nil, map[string]string{"invoice_type": "paypal"})
	rec := httptest.NewRecorder()
	s.handleAnalyze(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRequirementsEndpoint(t *testing.T) {
	s := newTestServer(&fakePipeline{}, &fakeRenderer{})

	req := httptest.NewRequest(http.MethodGet, "/api/requirements?invoice_type=bank_transfer", nil)
	rec := httptest.NewRecorder()
	s.handleRequirements(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var reqs catalog.Requirements
	if err := json.Unmarshal(rec.Body.Bytes(), &reqs); err != nil {
		t.Fatal(err)
	}
	if len(reqs.Common) == 0 || len(reqs.TypeSpecific) == 0 {
		t.Fatalf("requirements = %+v", reqs)
	}
}

func TestRequirementsRejectsBadType(t *testing.T) {
	s := newTestServer(&fakePipeline{}, &fakeRenderer{})
	req := httptest.NewRequest(http.MethodGet, "/api/requirements?invoice_type=cash", nil)
	rec := httptest.NewRecorder()
	s.handleRequirements(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(&fakePipeline{}, &fakeRenderer{})
	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}
