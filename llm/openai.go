package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Defaults applied by NewOpenAIProvider
const (
	DefaultBaseURL            = "https://api.openai.com/v1"
	DefaultTranscriptionModel = openai.Whisper1
	DefaultSpeechModel        = "tts-1"
	DefaultImageModel         = "dall-e-3"
	DefaultImageSize          = openai.CreateImageSize1024x1024
	DefaultTimeout            = 120
)

// OpenAIProvider implements Provider against an OpenAI-compatible API
type OpenAIProvider struct {
	mu     sync.RWMutex
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.TranscriptionModel == "" {
		config.TranscriptionModel = DefaultTranscriptionModel
	}
	if config.SpeechModel == "" {
		config.SpeechModel = DefaultSpeechModel
	}
	if config.ImageModel == "" {
		config.ImageModel = DefaultImageModel
	}
	if config.ImageSize == "" {
		config.ImageSize = DefaultImageSize
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	p := &OpenAIProvider{config: config}
	p.client = p.newClient(config.APIKey)
	return p, nil
}

func (p *OpenAIProvider) newClient(apiKey string) *openai.Client {
	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = p.config.BaseURL
	clientConfig.HTTPClient = &http.Client{Timeout: time.Duration(p.config.Timeout) * time.Second}
	return openai.NewClientWithConfig(clientConfig)
}

func (p *OpenAIProvider) current() *openai.Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// SetAPIKey rebuilds the client with a new key
func (p *OpenAIProvider) SetAPIKey(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config.APIKey = key
	p.client = p.newClient(key)
}

// Chat implements non-streaming chat
func (p *OpenAIProvider) Chat(ctx context.Context, model string, messages []Message) (string, error) {
	openaiMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    openaiMessages,
		MaxTokens:   p.config.MaxTokens,
		Temperature: float32(p.config.Temperature),
	}

	resp, err := p.current().CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	return cleanReply(resp.Choices[0].Message.Content), nil
}

// Transcribe sends audio to the transcription endpoint
func (p *OpenAIProvider) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	req := openai.AudioRequest{
		Model:    p.config.TranscriptionModel,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
	}

	resp, err := p.current().CreateTranscription(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", errors.New("transcription is empty")
	}
	return text, nil
}

// Speak synthesizes speech as Opus, which Telegram plays as a voice note
func (p *OpenAIProvider) Speak(ctx context.Context, voice, text string) ([]byte, error) {
	req := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(p.config.SpeechModel),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatOpus,
	}

	resp, err := p.current().CreateSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech: %w", err)
	}
	return audio, nil
}

// Draw generates one image and returns its URL
func (p *OpenAIProvider) Draw(ctx context.Context, prompt string) (string, error) {
	req := openai.ImageRequest{
		Prompt:         prompt,
		Model:          p.config.ImageModel,
		N:              1,
		Size:           p.config.ImageSize,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	}

	resp, err := p.current().CreateImage(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create image: %w", err)
	}

	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", errors.New("no image from OpenAI")
	}
	return resp.Data[0].URL, nil
}
