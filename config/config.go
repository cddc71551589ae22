package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the TurboTalk service
type Config struct {
	General      GeneralConfig      `mapstructure:"general"`
	Completion   CompletionConfig   `mapstructure:"completion"`
	Scraper      ScraperConfig      `mapstructure:"scraper"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Listen string `mapstructure:"listen"`
	Debug  bool   `mapstructure:"debug"`
}

// CompletionConfig contains settings for the upstream completion endpoint
type CompletionConfig struct {
	APIURL     string        `mapstructure:"api_url"`
	Model      string        `mapstructure:"model"`
	MaxRetries int           `mapstructure:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Backoff    time.Duration `mapstructure:"backoff"`
}

func (c CompletionConfig) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("completion.api_url required")
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("completion.max_retries must be > 0")
	}
	return nil
}

// ScraperConfig contains web search and page extraction settings
type ScraperConfig struct {
	Engines          []string      `mapstructure:"engines"`
	MaxEngines       int           `mapstructure:"max_engines"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxContentLength int           `mapstructure:"max_content_length"`
	Fetcher          string        `mapstructure:"fetcher"` // http or chromedp
}

func (s ScraperConfig) Validate() error {
	switch s.Fetcher {
	case "http", "chromedp":
	default:
		return fmt.Errorf("scraper.fetcher must be http or chromedp, got %q", s.Fetcher)
	}
	if s.MaxContentLength <= 0 {
		return fmt.Errorf("scraper.max_content_length must be > 0")
	}
	return nil
}

// ConversationConfig contains session history and expiry settings
type ConversationConfig struct {
	SessionTimeout  time.Duration `mapstructure:"session_timeout"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	CleanupCooldown time.Duration `mapstructure:"cleanup_cooldown"`
	HistoryWindow   int           `mapstructure:"history_window"`
}

// LoggingConfig contains rotating log file settings
type LoggingConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// LoadConfig loads config from file, falling back to built-in defaults
// when no config file is present. Environment variables with the
// TURBOTALK_ prefix override file values (e.g. TURBOTALK_GENERAL_LISTEN).
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.SetDefault("general.listen", ":8080")
	viper.SetDefault("general.debug", false)
	viper.SetDefault("completion.api_url", "https://https.extension.phind.com/agent/")
	viper.SetDefault("completion.model", "GPT 4o")
	viper.SetDefault("completion.max_retries", 3)
	viper.SetDefault("completion.timeout", 30*time.Second)
	viper.SetDefault("completion.backoff", time.Second)
	viper.SetDefault("scraper.engines", []string{"google", "duckduckgo", "bing"})
	viper.SetDefault("scraper.max_engines", 2)
	viper.SetDefault("scraper.timeout", 10*time.Second)
	viper.SetDefault("scraper.max_content_length", 1000)
	viper.SetDefault("scraper.fetcher", "http")
	viper.SetDefault("conversation.session_timeout", 24*time.Hour)
	viper.SetDefault("conversation.cleanup_interval", time.Hour)
	viper.SetDefault("conversation.cleanup_cooldown", time.Minute)
	viper.SetDefault("conversation.history_window", 10)
	viper.SetDefault("logging.file", "logs/turbotalk.log")
	viper.SetDefault("logging.max_size_mb", 1)
	viper.SetDefault("logging.max_backups", 5)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("TURBOTALK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// no config file: defaults + env are enough
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := config.Completion.Validate(); err != nil {
		return nil, err
	}
	if err := config.Scraper.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}
