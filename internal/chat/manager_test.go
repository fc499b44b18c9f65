package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/slack-go/slack"

	"github.com/thelabelsunday/invoice-checker/constants"
	"github.com/thelabelsunday/invoice-checker/internal/extract"
	"github.com/thelabelsunday/invoice-checker/internal/verdict"
)

type postedMessage struct {
	channelID string
	threadTS  string
	text      string
	blocks    []slack.Block
}

type editedMessage struct {
	channelID string
	ts        string
	text      string
	blocks    []slack.Block
}

type fakeSlackAPI struct {
	fileInfo    FileInfo
	fileInfoErr error
	fileBytes   []byte
	downloadErr error

	posts  []postedMessage
	edits  []editedMessage
	onEdit func(text string) // runs after the edit is recorded
}

func (f *fakeSlackAPI) PostMessage(_ context.Context, channelID, threadTS, text string, blocks []slack.Block) (string, error) {
	f.posts = append(f.posts, postedMessage{channelID, threadTS, text, blocks})
	return "1700000000.000100", nil
}

func (f *fakeSlackAPI) UpdateMessage(_ context.Context, channelID, ts, text string, blocks []slack.Block) error {
	f.edits = append(f.edits, editedMessage{channelID, ts, text, blocks})
	if f.onEdit != nil {
		f.onEdit(text)
	}
	return nil
}

func (f *fakeSlackAPI) GetFileInfo(context.Context, string, string) (FileInfo, error) {
	return f.fileInfo, f.fileInfoErr
}

func (f *fakeSlackAPI) DownloadFile(context.Context, string) ([]byte, error) {
	return f.fileBytes, f.downloadErr
}

type fakePipeline struct {
	verdict verdict.Verdict
	err     error
	calls   int
	lastRaw extract.RawDocument
}

func (f *fakePipeline) Check(_ context.Context, raw extract.RawDocument, _ constants.InvoiceType, _ constants.Language) (verdict.Verdict, error) {
	f.calls++
	f.lastRaw = raw
	return f.verdict, f.err
}

type fakeRenderer struct {
	raw   extract.RawDocument
	err   error
	calls int
}

func (f *fakeRenderer) Render(context.Context, string) (extract.RawDocument, error) {
	f.calls++
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

func newTestManager(api *fakeSlackAPI, pipe *fakePipeline, rend *fakeRenderer, allowed []string) (*Manager, *DocCache) {
	cache := NewDocCache(testTTL)
	m := NewManager(cache, pipe, rend, api, allowed, nil)
	return m, cache
}

func TestFileSharedFilteredChannelIsSilent(t *testing.T) {
	api := &fakeSlackAPI{}
	pipe := &fakePipeline{}
	m, _ := newTestManager(api, pipe, &fakeRenderer{}, []string{"C_ALLOWED"})

	if err := m.HandleFileShared(context.Background(), "C_OTHER", "F1"); err != nil {
		t.Fatalf("filtered channel must be dropped silently: %v", err)
	}
	if len(api.posts) != 0 || len(api.edits) != 0 || pipe.calls != 0 {
		t.Fatal("filtered channel must produce zero platform calls")
	}
}

func TestFileSharedNonPDFIsIgnored(t *testing.T) {
	api := &fakeSlackAPI{fileInfo: FileInfo{ID: "F1", Name: "notes.txt", Mimetype: "text/plain", DownloadURL: "https://files/x"}}
	m, cache := newTestManager(api, &fakePipeline{}, &fakeRenderer{}, nil)

	if err := m.HandleFileShared(context.Background(), "C1", "F1"); err != nil {
		t.Fatalf("HandleFileShared: %v", err)
	}
	if len(api.posts) != 0 {
		t.Fatal("non-PDF file must not trigger a prompt")
	}
	if cache.Len() != 0 {
		t.Fatal("non-PDF file must not be cached")
	}
}

func TestFileSharedCachesAndPrompts(t *testing.T) {
	api := &fakeSlackAPI{
		fileInfo:  FileInfo{ID: "F1", Name: "faktura.pdf", Mimetype: "application/pdf", DownloadURL: "https://files/x", MessageTS: "123.456"},
		fileBytes: []byte("%PDF-1.4 data"),
	}
	m, cache := newTestManager(api, &fakePipeline{}, &fakeRenderer{}, nil)

	if err := m.HandleFileShared(context.Background(), "C1", "F1"); err != nil {
		t.Fatalf("HandleFileShared: %v", err)
	}
	if cache.Len() != 1 {
		t.Fatal("PDF must be cached for the upcoming click")
	}
	if len(api.posts) != 1 {
		t.Fatalf("posts = %d, want 1", len(api.posts))
	}
	post := api.posts[0]
	if post.threadTS != "123.456" {
		t.Fatalf("prompt must thread to the upload, got ts %q", post.threadTS)
	}
	if len(post.blocks) != 2 {
		t.Fatalf("blocks = %d, want section + actions", len(post.blocks))
	}
	actions, ok := post.blocks[1].(*slack.ActionBlock)
	if !ok {
		t.Fatalf("second block is %T, want actions", post.blocks[1])
	}
	elems := actions.Elements.ElementSet
	if len(elems) != 2 {
		t.Fatalf("buttons = %d, want 2", len(elems))
	}
	paypal := elems[0].(*slack.ButtonBlockElement)
	if paypal.ActionID != ActionInvoiceTypePayPal || paypal.Value != "F1" {
		t.Fatalf("paypal button = %q/%q", paypal.ActionID, paypal.Value)
	}
	bank := elems[1].(*slack.ButtonBlockElement)
	if bank.ActionID != ActionInvoiceTypeBank || bank.Value != "F1" {
		t.Fatalf("bank button = %q/%q", bank.ActionID, bank.Value)
	}
}

func TestActionHappyPath(t *testing.T) {
	api := &fakeSlackAPI{}
	pipe := &fakePipeline{verdict: approvedVerdict()}
	m, cache := newTestManager(api, pipe, &fakeRenderer{}, nil)
	cache.Put("F1", []byte("%PDF-1.4 data"))

	a := Action{FileID: "F1", ChannelID: "C1", MessageTS: "111.222", UserID: "U1", InvoiceType: constants.InvoiceTypePayPal}
	if err := m.HandleAction(context.Background(), a); err != nil {
		t.Fatalf("HandleAction: %v", err)
	}

	if pipe.calls != 1 {
		t.Fatalf("pipeline calls = %d, want 1", pipe.calls)
	}
	if pipe.lastRaw.Source != extract.SourceUploadedFile {
		t.Fatalf("source = %s", pipe.lastRaw.Source)
	}
	if len(api.edits) != 2 {
		t.Fatalf("edits = %d, want progress + result", len(api.edits))
	}
	if !strings.Contains(api.edits[0].text, "Analyserer som PayPal faktura") {
		t.Fatalf("progress text = %q", api.edits[0].text)
	}
	if api.edits[1].text != "Alt i orden." {
		t.Fatalf("result text = %q", api.edits[1].text)
	}
	if len(api.edits[1].blocks) == 0 {
		t.Fatal("result edit must carry verdict blocks")
	}
	if cache.Len() != 0 {
		t.Fatal("cache entry must be deleted after processing")
	}
}

func TestActionExpiredEntry(t *testing.T) {
	api := &fakeSlackAPI{}
	pipe := &fakePipeline{verdict: approvedVerdict()}
	m, _ := newTestManager(api, pipe, &fakeRenderer{}, nil)

	a := Action{FileID: "F_GONE", ChannelID: "C1", MessageTS: "111.222", UserID: "U1", InvoiceType: constants.InvoiceTypePayPal}
	if err := m.HandleAction(context.Background(), a); err != nil {
		t.Fatalf("HandleAction: %v", err)
	}
	if pipe.calls != 0 {
		t.Fatal("expired entry must not be processed")
	}
	last := api.edits[len(api.edits)-1]
	if !strings.Contains(last.text, "udløbet") {
		t.Fatalf("expired notice = %q", last.text)
	}
}

func TestActionPipelineFailureResolvesMessage(t *testing.T) {
	api := &fakeSlackAPI{}
	pipe := &fakePipeline{err: errors.New("render exploded")}
	m, cache := newTestManager(api, pipe, &fakeRenderer{}, nil)
	cache.Put("F1", []byte("%PDF-1.4 data"))

	a := Action{FileID: "F1", ChannelID: "C1", MessageTS: "111.222", UserID: "U1", InvoiceType: constants.InvoiceTypeBankTransfer}
	if err := m.HandleAction(context.Background(), a); err != nil {
		t.Fatalf("HandleAction: %v", err)
	}
	last := api.edits[len(api.edits)-1]
	if !strings.Contains(last.text, "Fejl ved analyse") {
		t.Fatalf("error notice = %q", last.text)
	}
	if cache.Len() != 0 {
		t.Fatal("cache entry must be deleted on failure too")
	}
}

func TestActionDuplicateClickIsNoop(t *testing.T) {
	api := &fakeSlackAPI{}
	pipe := &fakePipeline{verdict: approvedVerdict()}
	m, cache := newTestManager(api, pipe, &fakeRenderer{}, nil)
	cache.Put("F1", []byte("%PDF-1.4 data"))
	if _, err := cache.Consume("F1"); err != nil {
		t.Fatal(err)
	}

	a := Action{FileID: "F1", ChannelID: "C1", MessageTS: "111.222", UserID: "U1", InvoiceType: constants.InvoiceTypePayPal}
	if err := m.HandleAction(context.Background(), a); err != nil {
		t.Fatalf("HandleAction: %v", err)
	}
	if pipe.calls != 0 {
		t.Fatal("duplicate click must not re-process")
	}
	// No edit at all: the first click owns the message, and an edit here
	// would overwrite its result with a progress indicator that never
	// resolves.
	if len(api.edits) != 0 {
		t.Fatalf("duplicate click must not touch the message, got %d edits", len(api.edits))
	}
}

func TestActionDuplicateDuringResultEditKeepsResult(t *testing.T) {
	api := &fakeSlackAPI{}
	pipe := &fakePipeline{verdict: approvedVerdict()}
	m, cache := newTestManager(api, pipe, &fakeRenderer{}, nil)
	cache.Put("F1", []byte("%PDF-1.4 data"))

	a := Action{FileID: "F1", ChannelID: "C1", MessageTS: "111.222", UserID: "U1", InvoiceType: constants.InvoiceTypePayPal}
	// A second click arrives while the first click's result edit is still in
	// flight, before the cache entry is removed.
	api.onEdit = func(text string) {
		if text != "Alt i orden." {
			return
		}
		api.onEdit = nil
		if err := m.HandleAction(context.Background(), a); err != nil {
			t.Errorf("second click: %v", err)
		}
	}
	if err := m.HandleAction(context.Background(), a); err != nil {
		t.Fatalf("HandleAction: %v", err)
	}

	if pipe.calls != 1 {
		t.Fatalf("pipeline calls = %d, want 1", pipe.calls)
	}
	last := api.edits[len(api.edits)-1]
	if last.text != "Alt i orden." {
		t.Fatalf("final edit = %q, the result must not be overwritten", last.text)
	}
}

func TestMessageWithPayPalURL(t *testing.T) {
	api := &fakeSlackAPI{}
	pipe := &fakePipeline{verdict: approvedVerdict()}
	rend := &fakeRenderer{raw: extract.RawDocument{Bytes: []byte("%PDF-1.4"), Source: extract.SourceRenderedURL}}
	m, _ := newTestManager(api, pipe, rend, nil)

	text := "tjek lige <https://www.paypal.com/invoice/p/abc123|paypal.com/invoice/p/abc123> tak"
	if err := m.HandleMessage(context.Background(), "C1", "999.000", text); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if rend.calls != 1 {
		t.Fatalf("render calls = %d, want 1", rend.calls)
	}
	if pipe.calls != 1 {
		t.Fatalf("pipeline calls = %d, want 1", pipe.calls)
	}
	if len(api.posts) != 1 || !strings.Contains(api.posts[0].text, "Henter og analyserer") {
		t.Fatalf("placeholder post = %+v", api.posts)
	}
	if len(api.edits) != 1 || api.edits[0].text != "Alt i orden." {
		t.Fatalf("result edit = %+v", api.edits)
	}
}

func TestMessageWithoutURLIsIgnored(t *testing.T) {
	api := &fakeSlackAPI{}
	pipe := &fakePipeline{}
	m, _ := newTestManager(api, pipe, &fakeRenderer{}, nil)

	if err := m.HandleMessage(context.Background(), "C1", "999.000", "bare en almindelig besked"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(api.posts) != 0 || pipe.calls != 0 {
		t.Fatal("message without an invoice URL must be ignored")
	}
}

func TestMessageRenderFailureEditsPlaceholder(t *testing.T) {
	api := &fakeSlackAPI{}
	rend := &fakeRenderer{err: errors.New("timeout")}
	m, _ := newTestManager(api, &fakePipeline{}, rend, nil)

	text := "https://www.paypal.com/invoice/p/abc123"
	if err := m.HandleMessage(context.Background(), "C1", "999.000", text); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(api.edits) != 1 || !strings.Contains(api.edits[0].text, "Fejl ved behandling af PayPal link") {
		t.Fatalf("error edit = %+v", api.edits)
	}
}

func TestMessageFilteredChannel(t *testing.T) {
	api := &fakeSlackAPI{}
	pipe := &fakePipeline{}
	m, _ := newTestManager(api, pipe, &fakeRenderer{}, []string{"C_ALLOWED"})

	text := "https://www.paypal.com/invoice/p/abc123"
	if err := m.HandleMessage(context.Background(), "C_OTHER", "999.000", text); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(api.posts) != 0 || pipe.calls != 0 {
		t.Fatal("filtered channel must produce zero calls")
	}
}
