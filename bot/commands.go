package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tg-llm-proxy/registry"
	"tg-llm-proxy/session"
)

func (b *Bot) cmdStart(ctx context.Context, upd Update) *Error {
	return b.reply(ctx, upd, "Welcome to the GPT bot!\n\n"+help(b.access.IsAdmin(upd.UserID)))
}

func (b *Bot) cmdHelp(ctx context.Context, upd Update) *Error {
	return b.reply(ctx, upd, help(b.access.IsAdmin(upd.UserID)))
}

func (b *Bot) cmdRedo(ctx context.Context, upd Update) *Error {
	key := session.KeyFor(upd.UserID, upd.ChatID)
	unlock := b.sessions.Lock(key)
	defer unlock()

	if _, err := b.sessions.Redo(key); err != nil {
		if errors.Is(err, session.ErrNothingToRedo) {
			return info(textNothingToRedo)
		}
		return failed(err)
	}
	return b.generate(ctx, upd, key, textRegenerating, false)
}

func (b *Bot) cmdChat(ctx context.Context, upd Update) *Error {
	text := strings.TrimSpace(upd.ArgText)
	if text == "" {
		return invalid("Usage: /chat <message>")
	}

	key := session.KeyFor(upd.UserID, upd.ChatID)
	unlock := b.sessions.Lock(key)
	defer unlock()

	b.sessions.Start(key)
	b.sessions.Append(key, session.RoleUser, text)
	return b.generate(ctx, upd, key, textProcessing, false)
}

func (b *Bot) cmdDraw(ctx context.Context, upd Update) *Error {
	prompt := strings.TrimSpace(upd.ArgText)
	if prompt == "" {
		return invalid("Usage: /draw <prompt>")
	}

	placeholder, err := b.msgr.Reply(ctx, upd.ChatID, upd.MessageID, textDrawing, false)
	if err != nil {
		return failed(err)
	}

	url, err := b.llm.Draw(ctx, prompt)
	if err != nil {
		return failed(err).in(placeholder)
	}
	if err := b.msgr.SendPhoto(ctx, upd.ChatID, upd.MessageID, url); err != nil {
		return failed(err).in(placeholder)
	}
	b.deletePlaceholder(ctx, upd.ChatID, placeholder)
	return nil
}

func (b *Bot) modelsHint() string {
	return "Please choose a valid model: " + strings.Join(b.registry.List(), ", ")
}

func (b *Bot) cmdSetModel(ctx context.Context, upd Update) *Error {
	if len(upd.Args) != 1 || !b.registry.Contains(upd.Args[0]) {
		return invalid(b.modelsHint())
	}

	model := upd.Args[0]
	if err := b.prefs.SetModel(upd.UserID, upd.ChatID, model); err != nil {
		return failed(err)
	}
	return b.reply(ctx, upd, fmt.Sprintf("Your model%s has been changed to %s.", scopeSuffix(upd.UserID, upd.ChatID), model))
}

func (b *Bot) cmdListModels(ctx context.Context, upd Update) *Error {
	return b.reply(ctx, upd, "Available models: "+strings.Join(b.registry.List(), ", "))
}

func (b *Bot) cmdCurrentSettings(ctx context.Context, upd Update) *Error {
	model := b.prefs.Model(upd.UserID, upd.ChatID, b.registry.Default())
	voice := b.prefs.Voice(upd.UserID, upd.ChatID, registry.DefaultVoice)
	stream := b.prefs.StreamOutput(upd.UserID, upd.ChatID, false)
	return b.reply(ctx, upd, currentSettings(model, voice, stream))
}

func (b *Bot) cmdSetVoice(ctx context.Context, upd Update) *Error {
	hint := "Please choose a valid voice: " + strings.Join(registry.Voices, ", ")
	if len(upd.Args) != 1 {
		return invalid(hint)
	}
	voice := strings.ToLower(upd.Args[0])
	if err := registry.ValidateVoice(voice); err != nil {
		return invalid("Invalid voice. " + hint)
	}

	if err := b.prefs.SetVoice(upd.UserID, upd.ChatID, voice); err != nil {
		return failed(err)
	}
	return b.reply(ctx, upd, fmt.Sprintf("Your voice%s has been changed to %s.", scopeSuffix(upd.UserID, upd.ChatID), voice))
}

func (b *Bot) cmdToggleStream(ctx context.Context, upd Update) *Error {
	on, err := b.prefs.ToggleStreamOutput(upd.UserID, upd.ChatID)
	if err != nil {
		return failed(err)
	}
	return b.reply(ctx, upd, fmt.Sprintf("Streamed output%s is now %s.", scopeSuffix(upd.UserID, upd.ChatID), onOff(on)))
}
