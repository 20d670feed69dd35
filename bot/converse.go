package bot

import (
	"context"
	"fmt"
	"time"

	"tg-llm-proxy/llm"
	"tg-llm-proxy/registry"
	"tg-llm-proxy/session"
)

// handleMessage runs the conversation flow for plain text and voice notes
func (b *Bot) handleMessage(ctx context.Context, upd Update) *Error {
	if session.Decide(upd.IsReplyToBot, upd.ChatID) == session.Drop {
		return nil
	}
	if !b.access.IsAllowed(upd.UserID, upd.ChatID) {
		return denied(textDenied)
	}

	text := upd.Text
	if upd.IsVoice() {
		transcript, err := b.transcribe(ctx, upd.VoiceFileID)
		if err != nil {
			return failed(err)
		}
		text = transcript
	}
	if text == "" {
		return nil
	}

	key := session.KeyFor(upd.UserID, upd.ChatID)
	unlock := b.sessions.Lock(key)
	defer unlock()

	b.sessions.Begin(key, upd.IsReplyToBot, upd.ChatID)
	b.sessions.Append(key, session.RoleUser, text)
	return b.generate(ctx, upd, key, textProcessing, upd.IsVoice())
}

func (b *Bot) transcribe(ctx context.Context, fileID string) (string, error) {
	audio, err := b.msgr.Download(ctx, fileID)
	if err != nil {
		return "", fmt.Errorf("failed to download voice: %w", err)
	}
	return b.llm.Transcribe(ctx, audio, "voice.ogg")
}

// generate asks the model for the next assistant turn of the session and
// renders it. The caller holds the session lock. On failure the session is
// left as is so a later /redo still has the user turn.
func (b *Bot) generate(ctx context.Context, upd Update, key session.Key, waiting string, speak bool) *Error {
	placeholder, err := b.msgr.Reply(ctx, upd.ChatID, upd.MessageID, waiting, false)
	if err != nil {
		return failed(err)
	}

	model := b.prefs.Model(upd.UserID, upd.ChatID, b.registry.Default())
	turns := b.sessions.Turns(key)
	b.log.Debug("Asking %s with %d turns for session %s", model, len(turns), key)

	reply, err := b.llm.Chat(ctx, model, toMessages(turns))
	if err != nil {
		return failed(err).in(placeholder)
	}
	b.sessions.Append(key, session.RoleAssistant, reply)

	return b.render(ctx, upd, placeholder, reply, speak)
}

func (b *Bot) render(ctx context.Context, upd Update, placeholder int, reply string, speak bool) *Error {
	if speak {
		voice := b.prefs.Voice(upd.UserID, upd.ChatID, registry.DefaultVoice)
		audio, err := b.llm.Speak(ctx, voice, reply)
		if err != nil {
			return failed(err).in(placeholder)
		}
		if err := b.msgr.SendVoice(ctx, upd.ChatID, upd.MessageID, audio); err != nil {
			return failed(err).in(placeholder)
		}
		b.deletePlaceholder(ctx, upd.ChatID, placeholder)
		return nil
	}

	if b.prefs.StreamOutput(upd.UserID, upd.ChatID, false) {
		if err := b.reveal(ctx, upd.ChatID, placeholder, reply); err != nil {
			return failed(err).in(placeholder)
		}
		return nil
	}

	if err := b.editFormatted(ctx, upd.ChatID, placeholder, reply); err != nil {
		return failed(err).in(placeholder)
	}
	return nil
}

// reveal edits the message with a growing prefix of text, ChunkSize
// characters more each time, pausing ChunkDelay between edits. The last
// edit carries the full text with formatting.
func (b *Bot) reveal(ctx context.Context, chatID int64, messageID int, text string) error {
	runes := []rune(text)
	for end := b.opts.ChunkSize; end < len(runes); end += b.opts.ChunkSize {
		if err := b.msgr.Edit(ctx, chatID, messageID, string(runes[:end]), false); err != nil {
			b.log.Warn("Streamed edit in chat %d failed: %v", chatID, err)
		}
		if err := sleep(ctx, b.opts.ChunkDelay); err != nil {
			return err
		}
	}
	return b.editFormatted(ctx, chatID, messageID, text)
}

// editFormatted tries Markdown first and falls back to plain text when the
// platform rejects the markup
func (b *Bot) editFormatted(ctx context.Context, chatID int64, messageID int, text string) error {
	err := b.msgr.Edit(ctx, chatID, messageID, text, true)
	if err == nil {
		return nil
	}
	b.log.Debug("Markdown edit in chat %d failed, retrying as plain text: %v", chatID, err)
	return b.msgr.Edit(ctx, chatID, messageID, text, false)
}

func (b *Bot) deletePlaceholder(ctx context.Context, chatID int64, messageID int) {
	if err := b.msgr.Delete(ctx, chatID, messageID); err != nil {
		b.log.Warn("Failed to delete message %d in chat %d: %v", messageID, chatID, err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func toMessages(turns []session.Turn) []llm.Message {
	messages := make([]llm.Message, len(turns))
	for i, t := range turns {
		messages[i] = llm.Message{Role: string(t.Role), Content: t.Content}
	}
	return messages
}
