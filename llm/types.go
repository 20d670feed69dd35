package llm

import (
	"context"
	"strings"
)

// Message represents a chat message
type Message struct {
	Role    string `json:"role"` // "user" or "assistant" or "system"
	Content string `json:"content"`
}

// Provider is everything the bot asks of the language-model service
type Provider interface {
	// Chat sends the conversation and returns the complete reply
	Chat(ctx context.Context, model string, messages []Message) (string, error)

	// Transcribe turns recorded audio into text
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)

	// Speak synthesizes text with the given voice and returns Opus audio
	Speak(ctx context.Context, voice, text string) ([]byte, error)

	// Draw generates an image and returns its URL
	Draw(ctx context.Context, prompt string) (string, error)

	// SetAPIKey swaps the credentials used by subsequent calls
	SetAPIKey(key string)
}

// Config represents provider configuration
type Config struct {
	APIKey             string
	BaseURL            string
	TranscriptionModel string
	SpeechModel        string
	ImageModel         string
	ImageSize          string
	Timeout            int // seconds
	MaxTokens          int
	Temperature        float64
}

// cleanReply trims whitespace and gives empty replies a placeholder so the
// messenger never has to send an empty message
func cleanReply(reply string) string {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "(empty response)"
	}
	return reply
}
