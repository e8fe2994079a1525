// Package main provides the tunecard CLI application entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"tunecard/internal/chat/telegram"
	"tunecard/internal/core"
	httpserver "tunecard/internal/http"
	"tunecard/pkg/musicembed"
)

const defaultServerHost = "0.0.0.0"

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tunecard",
	Short: "tunecard - music link summary cards for chat groups",
	Long: `tunecard is a service that listens to chat group messages, detects music
links (Bandcamp, SoundCloud, Spotify, YouTube, YouTube Music), and replies
with a formatted metadata summary card for each.`,
	RunE: runTunecard,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("telegram-enabled", true, "Enable Telegram integration")
	rootCmd.PersistentFlags().String("telegram-bot-token", "", "Telegram bot token")
	rootCmd.PersistentFlags().Int64("telegram-group-id", 0, "Telegram group ID (0 listens everywhere)")
	rootCmd.PersistentFlags().String("bandcamp-relay-endpoint", "", "Relay endpoint for Bandcamp page fetches")
	rootCmd.PersistentFlags().String("spotify-client-id", "", "Spotify client ID")
	rootCmd.PersistentFlags().String("spotify-client-secret", "", "Spotify client secret")
	rootCmd.PersistentFlags().String("youtube-api-key", "", "YouTube Data API key (optional)")
	rootCmd.PersistentFlags().String("server-host", defaultServerHost, "HTTP server host")
	rootCmd.PersistentFlags().Int("server-port", 8080, "HTTP server port")
	rootCmd.PersistentFlags().Bool("include-hidden-links", false, "Also card links wrapped in code spans or angle brackets")
	rootCmd.PersistentFlags().Int("flood-limit-per-minute", core.DefaultFloodLimitPerMinute, "Maximum messages per user per minute")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	// Load .env file explicitly using gotenv
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix("TUNECARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	cfg.Telegram.Enabled = viper.GetBool("telegram-enabled")
	cfg.Telegram.BotToken = viper.GetString("telegram-bot-token")
	cfg.Telegram.GroupID = viper.GetInt64("telegram-group-id")

	cfg.Bandcamp.RelayEndpoint = viper.GetString("bandcamp-relay-endpoint")
	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	cfg.YouTube.APIKey = viper.GetString("youtube-api-key")

	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultServerHost
	}
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Log.Level = viper.GetString("log-level")

	cfg.App.IncludeHiddenLinks = viper.GetBool("include-hidden-links")
	cfg.App.FloodLimitPerMinute = viper.GetInt("flood-limit-per-minute")
	if cfg.App.FloodLimitPerMinute <= 0 {
		cfg.App.FloodLimitPerMinute = core.DefaultFloodLimitPerMinute
	}

	return cfg
}

func buildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runTunecard(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting tunecard",
		zap.Bool("telegram_enabled", config.Telegram.Enabled),
		zap.Int64("telegram_group_id", config.Telegram.GroupID))

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	extractors := musicembed.NewManager(musicembed.Config{
		BandcampRelayEndpoint: config.Bandcamp.RelayEndpoint,
		SpotifyClientID:       config.Spotify.ClientID,
		SpotifyClientSecret:   config.Spotify.ClientSecret,
		YouTubeAPIKey:         config.YouTube.APIKey,
	}, logger.Named("musicembed"))

	frontend := telegram.NewFrontend(&telegram.Config{
		Enabled:             config.Telegram.Enabled,
		BotToken:            config.Telegram.BotToken,
		GroupID:             config.Telegram.GroupID,
		FloodLimitPerMinute: config.App.FloodLimitPerMinute,
	}, logger.Named("telegram"))
	defer frontend.Stop()

	httpServer := httpserver.NewServer(&config.Server, logger.Named("http"))

	dispatcher := core.NewDispatcher(config, frontend, extractors, httpServer, logger.Named("dispatcher"))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpServer.Start(gCtx)
	})

	g.Go(func() error {
		return dispatcher.Start(gCtx)
	})

	logger.Info("tunecard started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("tunecard stopped with error", zap.Error(err))
		return err
	}

	logger.Info("tunecard stopped gracefully")
	return nil
}

func validateConfig() error {
	if config.Telegram.Enabled && config.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token is required")
	}

	if config.Spotify.ClientID == "" || config.Spotify.ClientSecret == "" {
		logger.Warn("Spotify credentials missing, Spotify links will not be carded")
	}

	if config.YouTube.APIKey == "" {
		logger.Info("YouTube API key missing, supplementary description fields are disabled")
	}

	return nil
}
