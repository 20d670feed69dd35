// Package telegram connects the bot to the Telegram Bot API by long polling.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-llm-proxy/bot"
	"tg-llm-proxy/utils"
)

const (
	maxMessageLength = 4096
	maxDownloadBytes = 20 << 20 // Bot API limit for getFile
	truncatedSuffix  = "…"
)

// Adapter implements bot.Messenger on top of the Bot API
type Adapter struct {
	api         *tgbotapi.BotAPI
	log         *utils.Logger
	client      *http.Client
	pollTimeout int
}

// Options configures the adapter
type Options struct {
	Token       string
	Endpoint    string // Bot API endpoint format, defaults to tgbotapi.APIEndpoint
	PollTimeout int    // seconds
	Debug       bool
}

// New connects to the Bot API and verifies the token
func New(opts Options, log *utils.Logger) (*Adapter, error) {
	_ = tgbotapi.SetLogger(botLogger{log: log})

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(opts.Token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	api.Debug = opts.Debug

	return &Adapter{
		api:         api,
		log:         log,
		client:      &http.Client{Timeout: 60 * time.Second},
		pollTimeout: opts.PollTimeout,
	}, nil
}

// Username returns the bot's @username without the @
func (a *Adapter) Username() string {
	return a.api.Self.UserName
}

// Run polls for updates until ctx is done, handling each one in its own
// goroutine. In-flight handlers are allowed to finish before Run returns.
func (a *Adapter) Run(ctx context.Context, handle func(context.Context, bot.Update)) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = a.pollTimeout
	updates := a.api.GetUpdatesChan(cfg)

	group := utils.NewSafeGroup(a.log)
	defer group.Wait()

	handlerCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			a.api.StopReceivingUpdates()
			return
		case u, ok := <-updates:
			if !ok {
				a.log.Info("Telegram updates channel closed")
				return
			}
			upd, ok := toUpdate(u.Message, a.api.Self.ID, a.api.Self.UserName)
			if !ok {
				continue
			}
			group.Go(fmt.Sprintf("update %d", u.UpdateID), func() {
				handle(handlerCtx, upd)
			})
		}
	}
}

// toUpdate converts a Telegram message. It reports false for messages the
// bot has nothing to do with.
func toUpdate(msg *tgbotapi.Message, botID int64, botName string) (bot.Update, bool) {
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return bot.Update{}, false
	}

	upd := bot.Update{
		UserID:    msg.From.ID,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Text:      strings.TrimSpace(msg.Text),
	}
	if msg.Voice != nil {
		upd.VoiceFileID = msg.Voice.FileID
	}
	if r := msg.ReplyToMessage; r != nil && r.From != nil && r.From.ID == botID {
		upd.IsReplyToBot = true
	}

	if msg.IsCommand() {
		if target := commandTarget(msg.CommandWithAt()); target != "" && !strings.EqualFold(target, botName) {
			return bot.Update{}, false
		}
		upd.Command = strings.ToLower(msg.Command())
		upd.ArgText = strings.TrimSpace(msg.CommandArguments())
		upd.Args = strings.Fields(upd.ArgText)
		upd.Text = ""
		return upd, true
	}

	if upd.Text == "" && upd.VoiceFileID == "" {
		return bot.Update{}, false
	}
	return upd, true
}

func commandTarget(withAt string) string {
	if i := strings.Index(withAt, "@"); i >= 0 {
		return withAt[i+1:]
	}
	return ""
}

// Reply sends a text message
func (a *Adapter) Reply(ctx context.Context, chatID int64, replyTo int, text string, markdown bool) (int, error) {
	msg := tgbotapi.NewMessage(chatID, truncate(text))
	msg.ReplyToMessageID = replyTo
	if markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}

	sent, err := a.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return sent.MessageID, nil
}

// Edit replaces the text of a message. Editing to identical text succeeds.
func (a *Adapter) Edit(ctx context.Context, chatID int64, messageID int, text string, markdown bool) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, truncate(text))
	if markdown {
		edit.ParseMode = tgbotapi.ModeMarkdown
	}

	if _, err := a.api.Request(edit); err != nil {
		if isNotModified(err) {
			return nil
		}
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

// Delete removes a message
func (a *Adapter) Delete(ctx context.Context, chatID int64, messageID int) error {
	if _, err := a.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// SendVoice uploads Opus audio as a voice note
func (a *Adapter) SendVoice(ctx context.Context, chatID int64, replyTo int, audio []byte) error {
	voice := tgbotapi.NewVoice(chatID, tgbotapi.FileBytes{Name: "reply.ogg", Bytes: audio})
	voice.ReplyToMessageID = replyTo

	if _, err := a.api.Send(voice); err != nil {
		return fmt.Errorf("failed to send voice: %w", err)
	}
	return nil
}

// SendPhoto sends an image by URL; Telegram fetches it
func (a *Adapter) SendPhoto(ctx context.Context, chatID int64, replyTo int, url string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(url))
	photo.ReplyToMessageID = replyTo

	if _, err := a.api.Send(photo); err != nil {
		return fmt.Errorf("failed to send photo: %w", err)
	}
	return nil
}

// Download fetches an uploaded file by its file id
func (a *Adapter) Download(ctx context.Context, fileID string) ([]byte, error) {
	link, err := a.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file: %w", err)
	}
	return a.fetch(ctx, link)
}

func (a *Adapter) fetch(ctx context.Context, link string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > maxDownloadBytes {
		return nil, errors.New("file is too large")
	}
	return data, nil
}

func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

// truncate keeps text within Telegram's message length, counted in runes
func truncate(text string) string {
	if utf8.RuneCountInString(text) <= maxMessageLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxMessageLength-utf8.RuneCountInString(truncatedSuffix)]) + truncatedSuffix
}

// botLogger routes the library's own logging into ours
type botLogger struct {
	log *utils.Logger
}

func (l botLogger) Println(v ...interface{}) {
	l.log.Debug("%s", strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l botLogger) Printf(format string, v ...interface{}) {
	l.log.Debug(format, v...)
}
