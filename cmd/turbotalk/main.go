package main

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/rango-productions/turbotalk/config"
	"github.com/rango-productions/turbotalk/internal/completion"
	"github.com/rango-productions/turbotalk/internal/conversation"
	"github.com/rango-productions/turbotalk/internal/pipeline"
	"github.com/rango-productions/turbotalk/internal/server"
	"github.com/rango-productions/turbotalk/internal/telemetry"
	"github.com/rango-productions/turbotalk/tools/web_search"
)

func main() {
	root := &cobra.Command{Use: "turbotalk"}
	root.AddCommand(serveCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCMD() *cobra.Command {
	var serveAddr string
	var cfgPath string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the TurboTalk chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			if serveAddr != "" {
				cfg.General.Listen = serveAddr
			}
			setupLogging(cfg.Logging)

			store := conversation.NewStore(
				cfg.Conversation.SessionTimeout,
				cfg.Conversation.CleanupInterval,
				log.New(log.Writer(), "[CONV] ", log.LstdFlags),
				conversation.WithCooldown(cfg.Conversation.CleanupCooldown),
			)
			store.Start()
			defer store.Stop()

			completer := completion.NewClient(
				cfg.Completion.APIURL,
				cfg.Completion.Model,
				cfg.Completion.MaxRetries,
				cfg.Conversation.HistoryWindow,
				cfg.Completion.Timeout,
				cfg.Completion.Backoff,
				log.New(log.Writer(), "[COMPLETION] ", log.LstdFlags),
			)
			searcher := web_search.NewSearcher(web_search.Options{
				Engines:          cfg.Scraper.Engines,
				MaxEngines:       cfg.Scraper.MaxEngines,
				Timeout:          cfg.Scraper.Timeout,
				MaxContentLength: cfg.Scraper.MaxContentLength,
				Fetcher:          web_search.FetcherType(cfg.Scraper.Fetcher),
			}, log.New(log.Writer(), "[SCRAPER] ", log.LstdFlags))

			tele := telemetry.New()
			pl := pipeline.New(completer, searcher, tele, log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags))
			srv := server.New(store, pl, tele, log.New(log.Writer(), "[HTTP] ", log.LstdFlags))
			return srv.Run(cfg)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	serve.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")
	return serve
}

// setupLogging mirrors process logs to stdout and a size-capped
// rotating file.
func setupLogging(cfg config.LoggingConfig) {
	if cfg.File == "" {
		return
	}
	rotating := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotating))
}
