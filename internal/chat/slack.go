package chat

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/thelabelsunday/invoice-checker/constants"
)

// SlackClient adapts the slack-go client to the SlackAPI boundary.
type SlackClient struct {
	api *slack.Client
}

func NewSlackClient(botToken, appToken string) *SlackClient {
	return &SlackClient{
		api: slack.New(botToken, slack.OptionAppLevelToken(appToken)),
	}
}

func (c *SlackClient) PostMessage(ctx context.Context, channelID, threadTS, text string, blocks []slack.Block) (string, error) {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if len(blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(blocks...))
	}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}
	_, ts, err := c.api.PostMessageContext(ctx, channelID, opts...)
	return ts, err
}

func (c *SlackClient) UpdateMessage(ctx context.Context, channelID, ts, text string, blocks []slack.Block) error {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if len(blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(blocks...))
	}
	_, _, _, err := c.api.UpdateMessageContext(ctx, channelID, ts, opts...)
	return err
}

func (c *SlackClient) GetFileInfo(ctx context.Context, fileID, channelID string) (FileInfo, error) {
	file, _, _, err := c.api.GetFileInfoContext(ctx, fileID, 0, 0)
	if err != nil {
		return FileInfo{}, err
	}
	downloadURL := file.URLPrivateDownload
	if downloadURL == "" {
		downloadURL = file.URLPrivate
	}
	return FileInfo{
		ID:          file.ID,
		Name:        file.Name,
		Mimetype:    file.Mimetype,
		DownloadURL: downloadURL,
		MessageTS:   shareTS(file.Shares, channelID),
	}, nil
}

func (c *SlackClient) DownloadFile(ctx context.Context, downloadURL string) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.api.GetFileContext(ctx, downloadURL, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// shareTS finds the message timestamp the file was shared with in the given
// channel, checking public shares before private ones.
func shareTS(shares slack.Share, channelID string) string {
	if infos, ok := shares.Public[channelID]; ok && len(infos) > 0 {
		return infos[0].Ts
	}
	if infos, ok := shares.Private[channelID]; ok && len(infos) > 0 {
		return infos[0].Ts
	}
	return ""
}

// SocketRunner consumes Socket Mode events and dispatches them to a Manager.
type SocketRunner struct {
	client  *SlackClient
	socket  *socketmode.Client
	manager *Manager
	logger  *slog.Logger
}

func NewSocketRunner(client *SlackClient, manager *Manager, logger *slog.Logger) *SocketRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &SocketRunner{
		client:  client,
		socket:  socketmode.New(client.api),
		manager: manager,
		logger:  logger,
	}
}

// Run blocks until ctx is cancelled, handling events as they arrive. Events
// are acknowledged before processing so Slack never re-delivers mid-flight.
func (r *SocketRunner) Run(ctx context.Context) error {
	go r.dispatch(ctx)
	return r.socket.RunContext(ctx)
}

func (r *SocketRunner) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-r.socket.Events:
			if !ok {
				return
			}
			switch evt.Type {
			case socketmode.EventTypeEventsAPI:
				apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				r.socket.Ack(*evt.Request)
				r.handleEventsAPI(ctx, apiEvent)
			case socketmode.EventTypeInteractive:
				callback, ok := evt.Data.(slack.InteractionCallback)
				if !ok {
					continue
				}
				r.socket.Ack(*evt.Request)
				r.handleInteractive(ctx, callback)
			}
		}
	}
}

func (r *SocketRunner) handleEventsAPI(ctx context.Context, apiEvent slackevents.EventsAPIEvent) {
	switch ev := apiEvent.InnerEvent.Data.(type) {
	case *slackevents.FileSharedEvent:
		if err := r.manager.HandleFileShared(ctx, ev.ChannelID, ev.FileID); err != nil {
			r.logger.Error("chat.socket.file_shared_failed", "file_id", ev.FileID, "error", err.Error())
		}
	case *slackevents.MessageEvent:
		if ev.SubType != "" || ev.BotID != "" {
			return
		}
		if err := r.manager.HandleMessage(ctx, ev.Channel, ev.TimeStamp, ev.Text); err != nil {
			r.logger.Error("chat.socket.message_failed", "channel", ev.Channel, "error", err.Error())
		}
	}
}

func (r *SocketRunner) handleInteractive(ctx context.Context, callback slack.InteractionCallback) {
	if callback.Type != slack.InteractionTypeBlockActions || len(callback.ActionCallback.BlockActions) == 0 {
		return
	}
	action := callback.ActionCallback.BlockActions[0]

	var invoiceType constants.InvoiceType
	switch action.ActionID {
	case ActionInvoiceTypePayPal:
		invoiceType = constants.InvoiceTypePayPal
	case ActionInvoiceTypeBank:
		invoiceType = constants.InvoiceTypeBankTransfer
	default:
		return
	}

	a := Action{
		FileID:      action.Value,
		ChannelID:   callback.Channel.ID,
		MessageTS:   callback.Message.Timestamp,
		UserID:      callback.User.ID,
		InvoiceType: invoiceType,
	}
	if err := r.manager.HandleAction(ctx, a); err != nil {
		r.logger.Error("chat.socket.action_failed", "file_id", a.FileID, "error", fmt.Sprintf("%v", err))
	}
}
