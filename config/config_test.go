package config

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.General.Listen != ":8080" {
		t.Errorf("unexpected listen default: %q", cfg.General.Listen)
	}
	if cfg.Completion.MaxRetries != 3 {
		t.Errorf("unexpected max_retries default: %d", cfg.Completion.MaxRetries)
	}
	if cfg.Completion.Timeout != 30*time.Second {
		t.Errorf("unexpected completion timeout default: %v", cfg.Completion.Timeout)
	}
	if cfg.Scraper.MaxContentLength != 1000 {
		t.Errorf("unexpected max_content_length default: %d", cfg.Scraper.MaxContentLength)
	}
	if cfg.Scraper.Fetcher != "http" {
		t.Errorf("unexpected fetcher default: %q", cfg.Scraper.Fetcher)
	}
	if cfg.Conversation.SessionTimeout != 24*time.Hour {
		t.Errorf("unexpected session_timeout default: %v", cfg.Conversation.SessionTimeout)
	}
	if cfg.Conversation.CleanupInterval != time.Hour {
		t.Errorf("unexpected cleanup_interval default: %v", cfg.Conversation.CleanupInterval)
	}
	if len(cfg.Scraper.Engines) != 3 {
		t.Errorf("unexpected engines default: %v", cfg.Scraper.Engines)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("TURBOTALK_GENERAL_LISTEN", ":9999")
	t.Setenv("TURBOTALK_SCRAPER_TIMEOUT", "5s")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.General.Listen != ":9999" {
		t.Errorf("env override ignored: %q", cfg.General.Listen)
	}
	if cfg.Scraper.Timeout != 5*time.Second {
		t.Errorf("duration env override ignored: %v", cfg.Scraper.Timeout)
	}
}

func TestScraperConfig_Validate(t *testing.T) {
	bad := ScraperConfig{Fetcher: "selenium", MaxContentLength: 1000}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unknown fetcher")
	}
	ok := ScraperConfig{Fetcher: "chromedp", MaxContentLength: 1000}
	if err := ok.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
