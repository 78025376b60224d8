package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"newswatch/monitor/internal/archive"
	"newswatch/monitor/internal/config"
	"newswatch/monitor/internal/database"
	"newswatch/monitor/internal/ledger"
	"newswatch/monitor/internal/monitor"
	"newswatch/monitor/internal/notify"
	"newswatch/monitor/internal/scraper"
	"newswatch/monitor/internal/server"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func usage() {
	fmt.Println("Usage: newswatch [command] [options]")
	fmt.Println("Commands: start, dump, serve")
	fmt.Println("\nFor command-specific options, use: newswatch [command] -h")
}

func main() {
	cfg := config.DefaultConfig()

	startCmd := flag.NewFlagSet("start", flag.ExitOnError)
	startCmd.StringVar(&cfg.DBPath, "db", config.GetEnvString("NEWSWATCH_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite archive database (env: NEWSWATCH_DB_PATH)")
	startCmd.StringVar(&cfg.NewsURL, "url", config.GetEnvString("NEWSWATCH_NEWS_URL", config.DefaultNewsURL),
		"News listing page to monitor (env: NEWSWATCH_NEWS_URL)")
	startCmd.StringVar(&cfg.WebhookURL, "webhook", config.GetEnvString("NEWSWATCH_WEBHOOK_URL", ""),
		"Discord webhook URL receiving new records (env: NEWSWATCH_WEBHOOK_URL)")
	startCmd.StringVar(&cfg.LedgerPath, "ledger", config.GetEnvString("NEWSWATCH_LEDGER_PATH", config.DefaultLedgerPath),
		"Path to the JSONL ledger mirroring the archive, empty to disable (env: NEWSWATCH_LEDGER_PATH)")
	startCmd.BoolVar(&cfg.DryRun, "dry-run", config.GetEnvBool("NEWSWATCH_DRY_RUN", false),
		"Fetch and archive without delivering notifications (env: NEWSWATCH_DRY_RUN)")

	var intervalSeconds int
	startCmd.IntVar(&intervalSeconds, "interval", config.GetEnvInt("NEWSWATCH_INTERVAL", config.DefaultIntervalSeconds),
		"Interval in seconds between polls, 0 for one-shot mode (env: NEWSWATCH_INTERVAL)")

	var startLogLevelStr string
	startCmd.StringVar(&startLogLevelStr, "log-level", config.GetEnvString("NEWSWATCH_LOG_LEVEL", config.DefaultLogLevel),
		"Log level: debug, info, warn, error (env: NEWSWATCH_LOG_LEVEL)")

	dumpCmd := flag.NewFlagSet("dump", flag.ExitOnError)
	dumpCmd.StringVar(&cfg.DBPath, "db", config.GetEnvString("NEWSWATCH_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite archive database (env: NEWSWATCH_DB_PATH)")

	var dumpLimit int
	dumpCmd.IntVar(&dumpLimit, "limit", 0, "Optional limit when dumping the archive, 0 for everything")

	var dumpLogLevelStr string
	dumpCmd.StringVar(&dumpLogLevelStr, "log-level", config.GetEnvString("NEWSWATCH_LOG_LEVEL", "warn"),
		"Log level: debug, info, warn, error (env: NEWSWATCH_LOG_LEVEL)")

	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
	serveCmd.StringVar(&cfg.DBPath, "db", config.GetEnvString("NEWSWATCH_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite archive database (env: NEWSWATCH_DB_PATH)")
	serveCmd.StringVar(&cfg.ServerHost, "host", config.GetEnvString("NEWSWATCH_HOST", config.DefaultServerHost),
		"Host to bind the server to (env: NEWSWATCH_HOST)")
	serveCmd.IntVar(&cfg.ServerPort, "port", config.GetEnvInt("NEWSWATCH_PORT", config.DefaultServerPort),
		"Port to listen on (env: NEWSWATCH_PORT)")

	var serveLogLevelStr string
	serveCmd.StringVar(&serveLogLevelStr, "log-level", config.GetEnvString("NEWSWATCH_LOG_LEVEL", config.DefaultLogLevel),
		"Log level: debug, info, warn, error (env: NEWSWATCH_LOG_LEVEL)")

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "start":
		startCmd.Parse(os.Args[2:])

		if level, err := zerolog.ParseLevel(startLogLevelStr); err == nil {
			cfg.LogLevel = level
		}
		zerolog.SetGlobalLevel(cfg.LogLevel)

		cfg.Interval = time.Duration(intervalSeconds) * time.Second

		if err := runStart(cfg); err != nil {
			log.Error().Err(err).Msg("Monitor failed")
			os.Exit(1)
		}

	case "dump":
		dumpCmd.Parse(os.Args[2:])

		if level, err := zerolog.ParseLevel(dumpLogLevelStr); err == nil {
			cfg.LogLevel = level
		}
		zerolog.SetGlobalLevel(cfg.LogLevel)

		if err := runDump(cfg, dumpLimit); err != nil {
			log.Error().Err(err).Msg("Dump failed")
			os.Exit(1)
		}

	case "serve":
		serveCmd.Parse(os.Args[2:])

		if level, err := zerolog.ParseLevel(serveLogLevelStr); err == nil {
			cfg.LogLevel = level
		}
		zerolog.SetGlobalLevel(cfg.LogLevel)

		if err := runServe(cfg); err != nil {
			log.Error().Err(err).Msg("Server failed")
			os.Exit(1)
		}

	case "-h", "--help", "help":
		usage()
		os.Exit(0)

	default:
		log.Error().Str("command", os.Args[1]).Msg("Unknown command")
		usage()
		os.Exit(1)
	}
}

// runStart executes the monitor either once or periodically based on
// configuration.
func runStart(cfg *config.Config) error {
	if cfg.WebhookURL == "" && !cfg.DryRun {
		return errors.New("a webhook URL is required (use -webhook or NEWSWATCH_WEBHOOK_URL, or enable -dry-run)")
	}

	if cfg.Interval <= 0 {
		log.Info().Msg("Running in one-shot mode")
	} else {
		log.Info().Dur("interval", cfg.Interval).Msg("Running in periodic mode")
	}

	db, err := database.NewDB(database.NewConfig(cfg.DBPath))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	fetcher, err := scraper.New(cfg.NewsURL)
	if err != nil {
		return fmt.Errorf("failed to initialize scraper: %w", err)
	}

	var notifier monitor.Notifier
	if cfg.WebhookURL != "" {
		notifier = notify.NewWebhook(cfg.WebhookURL)
	}

	ledgerWriter := ledger.NewWriter(cfg.LedgerPath)
	if ledgerWriter.Enabled() {
		log.Info().Str("ledger", ledgerWriter.Path()).Msg("Mirroring archive to JSONL ledger")
	} else {
		log.Info().Msg("Ledger mirror disabled")
	}

	store := archive.NewSQLiteStore(db)
	engine := archive.NewEngine(store, ledgerWriter)
	m := monitor.New(engine, fetcher, notifier, cfg.Interval, cfg.DryRun)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-shutdown
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	if err := m.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info().Msg("Monitor canceled by shutdown signal")
			return nil
		}
		return err
	}
	return nil
}

// runDump prints the archive most-recent-first for operational
// verification.
func runDump(cfg *config.Config, limit int) error {
	dbCfg := database.NewConfig(cfg.DBPath)
	dbCfg.ReadOnly = true

	db, err := database.NewDB(dbCfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	store := archive.NewSQLiteStore(db)
	records, err := store.ListAll(context.Background(), limit)
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}

	for _, rec := range records {
		stamp := rec.FirstSeenAt
		if rec.PublishedAt != nil {
			stamp = *rec.PublishedAt
		}
		fmt.Printf("%s | %s -> %s\n", stamp.UTC().Format(time.RFC3339), rec.Title, rec.Link)
	}
	return nil
}

// runServe starts the read-only inspection API.
func runServe(cfg *config.Config) error {
	dbCfg := database.NewConfig(cfg.DBPath)
	dbCfg.ReadOnly = true

	db, err := database.NewDB(dbCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	return server.RunServer(db, cfg.ListenAddr(), log.Logger, cfg.APIKey)
}
