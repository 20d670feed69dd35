package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Environment variables read by LoadConfig
const (
	EnvTelegramToken  = "TELEGRAM_BOT_TOKEN"
	EnvOpenAIKey      = "OPENAI_API_KEY"
	EnvOpenAIBaseURL  = "OPENAI_BASE_URL"
	EnvAdminID        = "ADMIN_ID"
	EnvDataDir        = "DATA_DIR"
	EnvStorageBackend = "STORAGE_BACKEND"
	EnvLogLevel       = "LOG_LEVEL"
)

// Config represents the application configuration
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	OpenAI   OpenAIConfig   `json:"openai"`
	AdminID  int64          `json:"admin_id" validate:"required"`
	Data     DataConfig     `json:"data"`
	Stream   StreamConfig   `json:"stream"`
	Log      LogConfig      `json:"log"`
}

// TelegramConfig represents the messaging platform configuration
type TelegramConfig struct {
	Token       string `json:"token" validate:"required"`
	PollTimeout int    `json:"poll_timeout" validate:"gte=0"` // seconds
	Debug       bool   `json:"debug"`
}

// OpenAIConfig represents LLM provider configuration
type OpenAIConfig struct {
	APIKey             string  `json:"api_key" validate:"required"`
	BaseURL            string  `json:"base_url" validate:"required,url"`
	TranscriptionModel string  `json:"transcription_model"`
	SpeechModel        string  `json:"speech_model"`
	ImageModel         string  `json:"image_model"`
	ImageSize          string  `json:"image_size"`
	Timeout            int     `json:"timeout" validate:"gte=0"` // seconds
	MaxTokens          int     `json:"max_tokens,omitempty" validate:"gte=0"`
	Temperature        float64 `json:"temperature,omitempty" validate:"gte=0,lte=2"`
}

// DataConfig represents data storage configuration
type DataConfig struct {
	Dir     string `json:"dir" validate:"required"`
	Backend string `json:"backend" validate:"oneof=json sqlite"`
}

// StreamConfig controls the incremental reveal of streamed replies
type StreamConfig struct {
	ChunkSize int `json:"chunk_size" validate:"gt=0"` // characters
	DelayMS   int `json:"delay_ms" validate:"gte=0"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level string `json:"level" validate:"oneof=debug info warn error"`
	Path  string `json:"path"`
}

// DefaultConfig returns the configuration used when nothing overrides it
func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{PollTimeout: 30},
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com/v1",
			Timeout: 120,
		},
		Data: DataConfig{
			Dir:     "./data",
			Backend: "json",
		},
		Stream: StreamConfig{
			ChunkSize: 100,
			DelayMS:   500,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig builds the configuration from defaults, an optional JSON file,
// an optional .env file and the process environment, in increasing order of
// precedence, then validates it.
func LoadConfig(configPath, envFile string) (*Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if envFile != "" {
		// godotenv never overrides variables that are already set
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	config.Data.Dir = expandPath(config.Data.Dir)
	if config.Log.Path != "" {
		config.Log.Path = expandPath(config.Log.Path)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() error {
	if v, ok := lookupEnv(EnvTelegramToken); ok {
		c.Telegram.Token = v
	}
	if v, ok := lookupEnv(EnvOpenAIKey); ok {
		c.OpenAI.APIKey = v
	}
	if v, ok := lookupEnv(EnvOpenAIBaseURL); ok {
		c.OpenAI.BaseURL = v
	}
	if v, ok := lookupEnv(EnvAdminID); ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvAdminID, v, err)
		}
		c.AdminID = id
	}
	if v, ok := lookupEnv(EnvDataDir); ok {
		c.Data.Dir = v
	}
	if v, ok := lookupEnv(EnvStorageBackend); ok {
		c.Data.Backend = v
	}
	if v, ok := lookupEnv(EnvLogLevel); ok {
		c.Log.Level = strings.ToLower(v)
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks required settings. A missing token, API key or admin id
// is reported by the environment variable that supplies it.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describeField(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
}

func describeField(fe validator.FieldError) string {
	switch fe.StructNamespace() {
	case "Config.Telegram.Token":
		return EnvTelegramToken + " is required"
	case "Config.OpenAI.APIKey":
		return EnvOpenAIKey + " is required"
	case "Config.AdminID":
		return EnvAdminID + " is required and must be nonzero"
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
}

// expandPath expands ~ and relative paths
func expandPath(path string) string {
	if len(path) == 0 {
		return path
	}

	// Expand ~
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	// Make absolute
	absPath, err := filepath.Abs(path)
	if err == nil {
		return absPath
	}

	return path
}
