// Package pipeline wires extraction and validation into the single document
// check every channel runs.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/thelabelsunday/invoice-checker/constants"
	"github.com/thelabelsunday/invoice-checker/internal/extract"
	"github.com/thelabelsunday/invoice-checker/internal/history"
	"github.com/thelabelsunday/invoice-checker/internal/verdict"
)

// Extractor produces content from raw document bytes.
type Extractor interface {
	Extract(ctx context.Context, raw extract.RawDocument) (extract.Content, error)
}

// Validator turns extracted content into a Verdict.
type Validator interface {
	Validate(ctx context.Context, content extract.Content, t constants.InvoiceType, lang constants.Language) (verdict.Verdict, error)
}

// Recorder logs completed validations. May be nil.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Checker is the extraction+validation pipeline shared by the API and chat
// channels.
type Checker struct {
	extractor Extractor
	validator Validator
	recorder  Recorder
	logger    *slog.Logger
}

func NewChecker(extractor Extractor, validator Validator, recorder Recorder, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		extractor: extractor,
		validator: validator,
		recorder:  recorder,
		logger:    logger,
	}
}

// Check runs one document through extraction and validation. History
// recording is best-effort and never fails the check.
func (c *Checker) Check(ctx context.Context, raw extract.RawDocument, t constants.InvoiceType, lang constants.Language) (verdict.Verdict, error) {
	start := time.Now()
	c.logger.Info("pipeline.check.start",
		"source", string(raw.Source),
		"invoice_type", string(t),
		"bytes", len(raw.Bytes),
	)

	content, err := c.extractor.Extract(ctx, raw)
	if err != nil {
		c.logger.Error("pipeline.check.extract_failed",
			"source", string(raw.Source),
			"error", err.Error(),
		)
		return verdict.Verdict{}, err
	}

	v, err := c.validator.Validate(ctx, content, t, lang)
	if err != nil {
		c.logger.Error("pipeline.check.validate_failed",
			"source", string(raw.Source),
			"error", err.Error(),
		)
		return verdict.Verdict{}, err
	}

	if c.recorder != nil {
		entry := history.Entry{
			ID:            uuid.NewString(),
			Source:        string(raw.Source),
			InvoiceType:   t,
			OverallStatus: v.OverallStatus,
			ChecksTotal:   len(v.Checks),
			ChecksPassed:  v.CountByStatus(constants.CheckPresent),
			Summary:       v.Summary,
		}
		if err := c.recorder.Record(ctx, entry); err != nil {
			c.logger.Warn("pipeline.check.record_failed", "error", err.Error())
		}
	}

	c.logger.Info("pipeline.check.done",
		"source", string(raw.Source),
		"overall_status", string(v.OverallStatus),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return v, nil
}
