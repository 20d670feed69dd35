// Package bot turns incoming chat updates into LLM requests and replies.
// It owns no transport: everything goes through a Messenger.
package bot

import (
	"context"
	"time"

	"tg-llm-proxy/access"
	"tg-llm-proxy/llm"
	"tg-llm-proxy/prefs"
	"tg-llm-proxy/registry"
	"tg-llm-proxy/session"
	"tg-llm-proxy/utils"
)

// Update is one incoming message, already stripped of transport details
type Update struct {
	UserID       int64
	ChatID       int64
	MessageID    int
	Text         string
	VoiceFileID  string
	IsReplyToBot bool

	// Set for commands; Command has no slash or @botname
	Command string
	Args    []string
	ArgText string
}

// IsVoice reports whether the update carries a voice note
func (u Update) IsVoice() bool {
	return u.VoiceFileID != ""
}

// Messenger sends and edits messages on the chat platform
type Messenger interface {
	// Reply sends text in reply to replyTo and returns the new message id
	Reply(ctx context.Context, chatID int64, replyTo int, text string, markdown bool) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string, markdown bool) error
	Delete(ctx context.Context, chatID int64, messageID int) error
	SendVoice(ctx context.Context, chatID int64, replyTo int, audio []byte) error
	SendPhoto(ctx context.Context, chatID int64, replyTo int, url string) error
	// Download fetches the contents of an uploaded file
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Options tunes presentation
type Options struct {
	ChunkSize  int           // characters revealed per streamed edit
	ChunkDelay time.Duration // pause between streamed edits
}

// DefaultOptions reveals 100 characters every half second
func DefaultOptions() Options {
	return Options{ChunkSize: 100, ChunkDelay: 500 * time.Millisecond}
}

// Deps are the collaborators a Bot needs
type Deps struct {
	Messenger Messenger
	LLM       llm.Provider
	Prefs     *prefs.Store
	Sessions  *session.Manager
	Access    *access.Control
	Registry  *registry.Registry
	Logger    *utils.Logger
	Options   Options
}

type handlerFunc func(ctx context.Context, upd Update) *Error

// Bot routes updates to command handlers or the conversation flow
type Bot struct {
	msgr     Messenger
	llm      llm.Provider
	prefs    *prefs.Store
	sessions *session.Manager
	access   *access.Control
	registry *registry.Registry
	log      *utils.Logger
	opts     Options
	commands map[string]handlerFunc
}

// New creates a Bot
func New(deps Deps) *Bot {
	opts := deps.Options
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultOptions().ChunkSize
	}
	if opts.ChunkDelay < 0 {
		opts.ChunkDelay = 0
	}

	b := &Bot{
		msgr:     deps.Messenger,
		llm:      deps.LLM,
		prefs:    deps.Prefs,
		sessions: deps.Sessions,
		access:   deps.Access,
		registry: deps.Registry,
		log:      deps.Logger,
		opts:     opts,
	}
	b.commands = map[string]handlerFunc{
		"start":            b.allowed(b.cmdStart),
		"help":             b.allowed(b.cmdHelp),
		"redo":             b.allowed(b.cmdRedo),
		"set_model":        b.allowed(b.cmdSetModel),
		"list_models":      b.allowed(b.cmdListModels),
		"current_settings": b.allowed(b.cmdCurrentSettings),
		"set_voice":        b.allowed(b.cmdSetVoice),
		"toggle_stream":    b.allowed(b.cmdToggleStream),
		"draw":             b.allowed(b.cmdDraw),
		"chat":             b.allowed(b.cmdChat),

		"set_api_key":  b.adminOnly(b.cmdSetAPIKey),
		"add_user":     b.adminOnly(b.cmdAddUser),
		"remove_user":  b.adminOnly(b.cmdRemoveUser),
		"add_model":    b.adminOnly(b.cmdAddModel),
		"remove_model": b.adminOnly(b.cmdRemoveModel),
		"list_users":   b.adminOnly(b.cmdListUsers),
	}
	return b
}

// Handle processes one update. Unknown commands are ignored.
func (b *Bot) Handle(ctx context.Context, upd Update) {
	var err *Error
	if upd.Command != "" {
		h, ok := b.commands[upd.Command]
		if !ok {
			b.log.Debug("Ignoring unknown command /%s from %d", upd.Command, upd.UserID)
			return
		}
		err = h(ctx, upd)
	} else {
		err = b.handleMessage(ctx, upd)
	}

	if err != nil {
		b.report(ctx, upd, err)
	}
}

func (b *Bot) report(ctx context.Context, upd Update, e *Error) {
	text := e.Message
	switch e.Kind {
	case KindRemote:
		b.log.Error("Request from user %d in chat %d failed: %v", upd.UserID, upd.ChatID, e.Err)
		if e.Err != nil && b.access.IsAdmin(upd.UserID) {
			text += "\n\n" + e.Err.Error()
		}
	case KindAuthorization:
		b.log.Info("Denied user %d in chat %d", upd.UserID, upd.ChatID)
	}

	if e.editID != 0 {
		if err := b.msgr.Edit(ctx, upd.ChatID, e.editID, text, false); err == nil {
			return
		}
	}
	if _, err := b.msgr.Reply(ctx, upd.ChatID, upd.MessageID, text, false); err != nil {
		b.log.Error("Failed to send reply to chat %d: %v", upd.ChatID, err)
	}
}

func (b *Bot) reply(ctx context.Context, upd Update, text string) *Error {
	if _, err := b.msgr.Reply(ctx, upd.ChatID, upd.MessageID, text, false); err != nil {
		return failed(err)
	}
	return nil
}

func (b *Bot) allowed(handler handlerFunc) handlerFunc {
	return func(ctx context.Context, upd Update) *Error {
		if !b.access.IsAllowed(upd.UserID, upd.ChatID) {
			return denied(textDenied)
		}
		return handler(ctx, upd)
	}
}

func (b *Bot) adminOnly(handler handlerFunc) handlerFunc {
	return func(ctx context.Context, upd Update) *Error {
		if !b.access.IsAdmin(upd.UserID) {
			return denied(textAdminOnly)
		}
		return handler(ctx, upd)
	}
}
