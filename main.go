package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tg-llm-proxy/access"
	"tg-llm-proxy/bot"
	"tg-llm-proxy/db"
	"tg-llm-proxy/llm"
	"tg-llm-proxy/prefs"
	"tg-llm-proxy/registry"
	"tg-llm-proxy/session"
	"tg-llm-proxy/telegram"
	"tg-llm-proxy/utils"
)

var (
	version = "0.1.0"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath, envFile string

	cmd := &cobra.Command{
		Use:           "tg-llm-proxy",
		Short:         "Telegram bot that relays chat and voice to an OpenAI-compatible API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, configPath, envFile)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to JSON configuration file")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Path to .env file")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tg-llm-proxy v%s\n", version)
		},
	})
	return cmd
}

func run(ctx context.Context, configPath, envFile string) error {
	config, err := utils.LoadConfig(configPath, envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return err
	}

	logPath := config.Log.Path
	if logPath == "" {
		logPath = utils.GetLogPath()
	}
	logger, err := utils.NewLogger(logPath, config.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return err
	}
	defer logger.Close()

	logger.Info("Starting tg-llm-proxy v%s", version)

	docs, err := db.Open(config.Data.Backend, config.Data.Dir)
	if err != nil {
		logger.Error("Failed to open %s store: %v", config.Data.Backend, err)
		return err
	}
	defer docs.Close()
	logger.Info("Data store initialized: %s (%s)", config.Data.Dir, config.Data.Backend)

	settings, err := prefs.Load(docs)
	if err != nil {
		logger.Error("Failed to load settings: %v", err)
		return err
	}
	control, err := access.Load(docs, config.AdminID)
	if err != nil {
		logger.Error("Failed to load allowed users: %v", err)
		return err
	}
	models, err := registry.Load(docs, settings)
	if err != nil {
		logger.Error("Failed to load models: %v", err)
		return err
	}

	provider, err := llm.NewOpenAIProvider(llm.Config{
		APIKey:             config.OpenAI.APIKey,
		BaseURL:            config.OpenAI.BaseURL,
		TranscriptionModel: config.OpenAI.TranscriptionModel,
		SpeechModel:        config.OpenAI.SpeechModel,
		ImageModel:         config.OpenAI.ImageModel,
		ImageSize:          config.OpenAI.ImageSize,
		Timeout:            config.OpenAI.Timeout,
		MaxTokens:          config.OpenAI.MaxTokens,
		Temperature:        config.OpenAI.Temperature,
	})
	if err != nil {
		logger.Error("Failed to create LLM provider: %v", err)
		return err
	}

	adapter, err := telegram.New(telegram.Options{
		Token:       config.Telegram.Token,
		PollTimeout: config.Telegram.PollTimeout,
		Debug:       config.Telegram.Debug,
	}, logger)
	if err != nil {
		logger.Error("Failed to start Telegram client: %v", err)
		return err
	}
	logger.Info("Authorized as @%s", adapter.Username())

	b := bot.New(bot.Deps{
		Messenger: adapter,
		LLM:       provider,
		Prefs:     settings,
		Sessions:  session.NewManager(),
		Access:    control,
		Registry:  models,
		Logger:    logger,
		Options: bot.Options{
			ChunkSize:  config.Stream.ChunkSize,
			ChunkDelay: time.Duration(config.Stream.DelayMS) * time.Millisecond,
		},
	})

	logger.Info("Bot started")
	adapter.Run(ctx, b.Handle)
	logger.Info("Bot stopped")
	return nil
}
