package verdict

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thelabelsunday/invoice-checker/constants"
	"github.com/thelabelsunday/invoice-checker/internal/catalog"
	"github.com/thelabelsunday/invoice-checker/internal/common"
	"github.com/thelabelsunday/invoice-checker/internal/extract"
	"github.com/thelabelsunday/invoice-checker/internal/prompts"
)

// Request is one completion call to the model. Images, when set, are PNG
// pages attached ahead of the prompt text.
type Request struct {
	Prompt string
	Images [][]byte
}

// Invoker performs a single model completion. Implementations live behind
// this seam so the service can be tested without network access.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (string, error)
}

// Service turns extracted document content into a Verdict.
type Service struct {
	invoker Invoker
	catalog *catalog.Catalog
	logger  *slog.Logger
}

func NewService(invoker Invoker, cat *catalog.Catalog, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{invoker: invoker, catalog: cat, logger: logger}
}

// Validate runs one validation pass. Transport failures propagate as errors;
// a reply that is not parseable JSON degrades to an invalid Verdict instead,
// so a confused model never takes the caller down.
func (s *Service) Validate(ctx context.Context, content extract.Content, t constants.InvoiceType, lang constants.Language) (Verdict, error) {
	reqID := uuid.NewString()
	start := time.Now()
	vision := content.Kind == extract.VariantRasterPages
	s.logger.Info("verdict.validate.start",
		slog.String("req_id", reqID),
		slog.String("invoice_type", string(t)),
		slog.String("lang", string(lang)),
		slog.Bool("vision", vision),
	)

	prompt, err := buildPrompt(s.catalog, content, t, lang)
	if err != nil {
		return Verdict{}, err
	}

	req := Request{Prompt: prompt}
	if vision {
		req.Images = content.Images
	}
	raw, err := s.invoker.Invoke(ctx, req)
	if err != nil {
		s.logger.Error("verdict.validate.invoke_failed",
			slog.String("req_id", reqID),
			slog.String("error", err.Error()),
		)
		return Verdict{}, err
	}

	v, err := s.parseReply(raw, t, lang, reqID)
	if err != nil {
		return Verdict{}, err
	}
	s.logger.Info("verdict.validate.done",
		slog.String("req_id", reqID),
		slog.String("overall_status", string(v.OverallStatus)),
		slog.Int("checks", len(v.Checks)),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return v, nil
}

func buildPrompt(cat *catalog.Catalog, content extract.Content, t constants.InvoiceType, lang constants.Language) (string, error) {
	p := prompts.Params{
		Requirements: cat.PromptText(t),
		Vision:       content.Kind == extract.VariantRasterPages,
	}
	if !p.Vision {
		p.InvoiceText = content.Text()
	}
	return prompts.Build(t, lang, p)
}

// parseReply extracts and verifies the model's JSON. Unparseable output
// becomes a fallback invalid Verdict; parseable output that breaks the schema
// contract fails the whole request.
func (s *Service) parseReply(raw string, t constants.InvoiceType, lang constants.Language, reqID string) (Verdict, error) {
	body, ok := extractJSONObject(raw)
	if !ok {
		s.logger.Warn("verdict.parse.no_json",
			slog.String("req_id", reqID),
			slog.Int("reply_len", len(raw)),
		)
		return fallbackVerdict(t, lang, "Failed to parse AI response: no JSON object found"), nil
	}

	var v Verdict
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		s.logger.Warn("verdict.parse.malformed",
			slog.String("req_id", reqID),
			slog.String("error", err.Error()),
		)
		return fallbackVerdict(t, lang, fmt.Sprintf("Failed to parse AI response: %v", err)), nil
	}

	if err := ValidateJSONAgainstSchema(BuildVerdictJSONSchema(t), []byte(body)); err != nil {
		return Verdict{}, common.NewAppError("VALIDATION_SCHEMA", "AI reply violates the verdict schema", err)
	}
	if _, ok := constants.ParseOverallStatus(string(v.OverallStatus)); !ok {
		return Verdict{}, common.NewAppError("VALIDATION_SCHEMA", fmt.Sprintf("unknown overall status %q", v.OverallStatus), nil)
	}
	for i, c := range v.Checks {
		if _, ok := constants.ParseCheckStatus(string(c.Status)); !ok {
			return Verdict{}, common.NewAppError("VALIDATION_SCHEMA", fmt.Sprintf("check %d has unknown status %q", i, c.Status), nil)
		}
		if c.Status != constants.CheckPresent && emptyPtr(c.FixRecommendation) {
			v.Warnings = append(v.Warnings, fmt.Sprintf("Check %q lacks a fix recommendation", c.Requirement))
		}
	}
	v.InvoiceType = t
	v.normalize()
	return v, nil
}

func emptyPtr(p *string) bool {
	return p == nil || strings.TrimSpace(*p) == ""
}

// extractJSONObject returns the substring from the first "{" through the last
// "}". Models wrap the payload in prose or fences often enough that this is
// the reliable way to find it.
func extractJSONObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

func fallbackVerdict(t constants.InvoiceType, lang constants.Language, warning string) Verdict {
	summary := "An error occurred while analyzing the invoice. Please try again."
	if lang == constants.LanguageDanish {
		summary = "Der opstod en fejl ved analyse af fakturaen. Prøv igen."
	}
	v := Verdict{
		OverallStatus: constants.StatusInvalid,
		InvoiceType:   t,
		Warnings:      []string{warning},
		Summary:       summary,
	}
	v.normalize()
	return v
}
