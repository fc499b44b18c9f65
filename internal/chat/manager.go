// Package chat drives the Slack conversation flow: a shared PDF leads to a
// type-selection prompt, a button click runs the pipeline and edits the
// prompt in place, and PayPal invoice links in plain messages are validated
// directly. All verdict text shown here is Danish.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/slack-go/slack"

	"github.com/thelabelsunday/invoice-checker/constants"
	"github.com/thelabelsunday/invoice-checker/internal/common"
	"github.com/thelabelsunday/invoice-checker/internal/extract"
	"github.com/thelabelsunday/invoice-checker/internal/format"
	"github.com/thelabelsunday/invoice-checker/internal/verdict"
)

// Button action ids carried in the type-selection message.
const (
	ActionInvoiceTypePayPal = "invoice_type_paypal"
	ActionInvoiceTypeBank   = "invoice_type_bank"
)

var paypalURLPattern = regexp.MustCompile(`https?://(?:www\.)?paypal\.com/invoice/[^\s>|]+`)

// Pipeline runs extraction and validation for one document.
type Pipeline interface {
	Check(ctx context.Context, raw extract.RawDocument, t constants.InvoiceType, lang constants.Language) (verdict.Verdict, error)
}

// Renderer turns a page URL into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (extract.RawDocument, error)
}

// FileInfo is the subset of file metadata the manager needs.
type FileInfo struct {
	ID          string
	Name        string
	Mimetype    string
	DownloadURL string
	MessageTS   string // share timestamp in the event channel, for threading
}

// SlackAPI is the chat-platform boundary: post, edit, file lookup, download.
type SlackAPI interface {
	PostMessage(ctx context.Context, channelID, threadTS, text string, blocks []slack.Block) (ts string, err error)
	UpdateMessage(ctx context.Context, channelID, ts, text string, blocks []slack.Block) error
	GetFileInfo(ctx context.Context, fileID, channelID string) (FileInfo, error)
	DownloadFile(ctx context.Context, downloadURL string) ([]byte, error)
}

// Action is one type-selection button click.
type Action struct {
	FileID      string
	ChannelID   string
	MessageTS   string
	UserID      string
	InvoiceType constants.InvoiceType
}

// Manager is the stateful front controller for the chat channel.
type Manager struct {
	cache    *DocCache
	pipeline Pipeline
	renderer Renderer
	api      SlackAPI
	allowed  map[string]struct{} // nil means all channels accepted
	logger   *slog.Logger
}

func NewManager(cache *DocCache, pipeline Pipeline, renderer Renderer, api SlackAPI, allowedChannels []string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	var allowed map[string]struct{}
	if len(allowedChannels) > 0 {
		allowed = make(map[string]struct{}, len(allowedChannels))
		for _, ch := range allowedChannels {
			if ch = strings.TrimSpace(ch); ch != "" {
				allowed[ch] = struct{}{}
			}
		}
	}
	return &Manager{
		cache:    cache,
		pipeline: pipeline,
		renderer: renderer,
		api:      api,
		allowed:  allowed,
		logger:   logger,
	}
}

func (m *Manager) channelAllowed(channelID string) bool {
	if m.allowed == nil {
		return true
	}
	_, ok := m.allowed[channelID]
	return ok
}

// HandleFileShared downloads a shared PDF, caches it, and posts the
// type-selection prompt threaded to the upload. Non-PDF files and filtered
// channels are dropped silently.
func (m *Manager) HandleFileShared(ctx context.Context, channelID, fileID string) error {
	if !m.channelAllowed(channelID) {
		return nil
	}

	info, err := m.api.GetFileInfo(ctx, fileID, channelID)
	if err != nil {
		m.logger.Error("chat.file_shared.info_failed", "file_id", fileID, "error", err.Error())
		return err
	}
	if !constants.IsPDFName(info.Name) && info.Mimetype != "application/pdf" {
		return nil
	}
	if info.DownloadURL == "" {
		return nil
	}

	pdf, err := m.api.DownloadFile(ctx, info.DownloadURL)
	if err != nil {
		m.logger.Error("chat.file_shared.download_failed", "file_id", fileID, "error", err.Error())
		_, postErr := m.api.PostMessage(ctx, channelID, info.MessageTS,
			fmt.Sprintf(":x: Fejl ved behandling af fil: %v", err), nil)
		if postErr != nil {
			return postErr
		}
		return err
	}

	m.cache.Put(fileID, pdf)
	m.logger.Info("chat.file_shared.cached", "file_id", fileID, "bytes", len(pdf))

	blocks := typeSelectionBlocks(fileID, info.Name)
	_, err = m.api.PostMessage(ctx, channelID, info.MessageTS,
		fmt.Sprintf("%s modtaget! Hvilken type faktura er det?", info.Name), blocks)
	return err
}

// HandleAction processes a type-selection click: consume the cached bytes,
// progress edit, pipeline run, result edit. Consume runs before any edit so
// a duplicate click can never touch a message another click already owns;
// the cache entry is removed on every exit path.
func (m *Manager) HandleAction(ctx context.Context, a Action) error {
	label := constants.TypeLabel(a.InvoiceType)

	pdf, err := m.cache.Consume(a.FileID)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateClick) {
			m.logger.Warn("chat.action.duplicate_click", "file_id", a.FileID)
			return nil
		}
		const expired = ":x: PDF'en er udløbet fra cache. Upload filen igen."
		return m.api.UpdateMessage(ctx, a.ChannelID, a.MessageTS, expired,
			[]slack.Block{sectionBlock(expired)})
	}
	defer m.cache.Delete(a.FileID)

	progress := fmt.Sprintf(":hourglass_flowing_sand: <@%s> valgte *%s* - analyserer...", a.UserID, label)
	if err := m.api.UpdateMessage(ctx, a.ChannelID, a.MessageTS,
		fmt.Sprintf(":hourglass_flowing_sand: Analyserer som %s...", label),
		[]slack.Block{sectionBlock(progress)}); err != nil {
		m.logger.Error("chat.action.progress_edit_failed", "file_id", a.FileID, "error", err.Error())
		return err
	}

	v, err := m.pipeline.Check(ctx, extract.RawDocument{Bytes: pdf, Source: extract.SourceUploadedFile}, a.InvoiceType, constants.LanguageDanish)
	if err != nil {
		m.logger.Error("chat.action.pipeline_failed", "file_id", a.FileID, "error", err.Error())
		notice := fmt.Sprintf(":x: Fejl ved analyse: %v", err)
		return m.api.UpdateMessage(ctx, a.ChannelID, a.MessageTS, notice,
			[]slack.Block{sectionBlock(notice)})
	}

	return m.api.UpdateMessage(ctx, a.ChannelID, a.MessageTS, v.Summary, format.FormatBlocks(v, label))
}

// HandleMessage scans a plain message for PayPal invoice links. Each match is
// rendered to PDF and validated as a PayPal invoice without a type-selection
// step, against a placeholder message that is edited with the outcome.
func (m *Manager) HandleMessage(ctx context.Context, channelID, messageTS, text string) error {
	if !m.channelAllowed(channelID) {
		return nil
	}

	urls := paypalURLPattern.FindAllString(text, -1)
	if len(urls) == 0 {
		return nil
	}

	for _, pageURL := range urls {
		pageURL = strings.Trim(pageURL, "<>")
		if i := strings.Index(pageURL, "|"); i >= 0 {
			pageURL = pageURL[:i]
		}

		placeholderTS, err := m.api.PostMessage(ctx, channelID, messageTS,
			":hourglass_flowing_sand: Henter og analyserer PayPal faktura...", nil)
		if err != nil {
			return err
		}

		if err := m.checkInvoiceURL(ctx, channelID, placeholderTS, pageURL); err != nil {
			m.logger.Error("chat.message.url_failed", "url", truncateURL(pageURL), "error", err.Error())
			notice := fmt.Sprintf(":x: Fejl ved behandling af PayPal link: %v", err)
			if editErr := m.api.UpdateMessage(ctx, channelID, placeholderTS, notice, nil); editErr != nil {
				return editErr
			}
		}
	}
	return nil
}

func (m *Manager) checkInvoiceURL(ctx context.Context, channelID, placeholderTS, pageURL string) error {
	raw, err := m.renderer.Render(ctx, pageURL)
	if err != nil {
		return err
	}
	v, err := m.pipeline.Check(ctx, raw, constants.InvoiceTypePayPal, constants.LanguageDanish)
	if err != nil {
		return err
	}
	return m.api.UpdateMessage(ctx, channelID, placeholderTS, v.Summary,
		format.FormatBlocks(v, "PayPal faktura (link)"))
}

func typeSelectionBlocks(fileID, filename string) []slack.Block {
	prompt := fmt.Sprintf(":page_facing_up: *%s* modtaget!\nHvilken type faktura er det?", filename)
	paypal := slack.NewButtonBlockElement(ActionInvoiceTypePayPal, fileID,
		slack.NewTextBlockObject(slack.PlainTextType, "PayPal faktura", true, false))
	paypal.Style = slack.StylePrimary
	bank := slack.NewButtonBlockElement(ActionInvoiceTypeBank, fileID,
		slack.NewTextBlockObject(slack.PlainTextType, "Bankoverførsel", true, false))
	return []slack.Block{
		sectionBlock(prompt),
		slack.NewActionBlock("", paypal, bank),
	}
}

func sectionBlock(text string) *slack.SectionBlock {
	return slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)
}

func truncateURL(u string) string {
	if len(u) > 80 {
		return u[:80]
	}
	return u
}
