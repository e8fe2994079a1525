package core

import (
	"time"
)

type Config struct {
	Telegram TelegramConfig
	Bandcamp BandcampConfig
	Spotify  SpotifyConfig
	YouTube  YouTubeConfig
	Server   ServerConfig
	Log      LogConfig
	App      AppConfig
}

type TelegramConfig struct {
	Enabled  bool
	BotToken string
	GroupID  int64
}

type BandcampConfig struct {
	// RelayEndpoint is an optional relay used when a direct page fetch
	// is refused. Empty disables the fallback.
	RelayEndpoint string
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
}

type YouTubeConfig struct {
	// APIKey enables the supplementary video-description fetch. Empty
	// disables only that feature.
	APIKey string
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	// IncludeHiddenLinks also cards links the sender wrapped in code
	// spans or angle brackets.
	IncludeHiddenLinks  bool
	FloodLimitPerMinute int
}

const DefaultFloodLimitPerMinute = 6

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		App: AppConfig{
			FloodLimitPerMinute: DefaultFloodLimitPerMinute,
		},
	}
}
