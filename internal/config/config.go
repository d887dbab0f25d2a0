package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type LobbyConfig struct {
	MinPlayers  int           `mapstructure:"min_players"`
	MaxPlayers  int           `mapstructure:"max_players"`
	ChatHistory int           `mapstructure:"chat_history"`
	EmoteTTL    time.Duration `mapstructure:"emote_ttl"`
	ChatLimit   int           `mapstructure:"chat_limit"`
	ChatWindow  time.Duration `mapstructure:"chat_window"`
}

type MongoConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	Lobby      LobbyConfig   `mapstructure:"lobby"`
	Mongo      MongoConfig   `mapstructure:"mongo"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "safequest-dev-secret")
	v.SetDefault("lobby.min_players", 2)
	v.SetDefault("lobby.max_players", 6)
	v.SetDefault("lobby.chat_history", 50)
	v.SetDefault("lobby.emote_ttl", "3s")
	v.SetDefault("lobby.chat_limit", 10)
	v.SetDefault("lobby.chat_window", "5s")
	v.SetDefault("mongo.enabled", false)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "safequest")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().Str("mode", cfg.Mode).Int("port", cfg.Port).Str("static", cfg.StaticPath).Msg("config ready")
	return &cfg, nil
}
