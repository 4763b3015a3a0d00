package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"fundwatch/internal/alerting"
	"fundwatch/internal/config"
	"fundwatch/internal/directory"
	"fundwatch/internal/feed"
	"fundwatch/internal/fetch"
	"fundwatch/internal/scheduler"
	"fundwatch/internal/service"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newClient() *fetch.Client {
	return fetch.New(fetch.Options{
		UserAgent:   a.Config.Sources.UserAgent,
		BackoffStep: a.Config.Fetch.BackoffStep,
	}, a.Logger)
}

func (a *App) newDirectoryManager(client *fetch.Client) *directory.Manager {
	return directory.New(directory.Options{
		URL:          a.Config.Sources.DirectoryURL,
		SnapshotPath: a.Config.Cache.SnapshotPath(),
		Timeout:      a.Config.Fetch.DirectoryTimeout,
		MaxRetries:   a.Config.Fetch.DirectoryRetries,
	}, client, a.Logger)
}

func (a *App) newFeed() *feed.Feed {
	client := a.newClient()
	dir := a.newDirectoryManager(client)
	return feed.New(feed.Options{
		ValuationURL:     a.Config.Sources.ValuationURL,
		NavURL:           a.Config.Sources.NavURL,
		ValuationTimeout: a.Config.Fetch.ValuationTimeout,
		ValuationRetries: a.Config.Fetch.ValuationRetries,
		NavTimeout:       a.Config.Fetch.NavTimeout,
		NavRetries:       a.Config.Fetch.NavRetries,
		SoftSleep:        a.Config.Fetch.SoftSleep,
		DirectoryTTL:     a.Config.Cache.DirectoryTTL,
		ValuationTTL:     a.Config.Cache.ValuationTTL,
		NavTTL:           a.Config.Cache.NavTTL,
	}, client, dir, nil, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

// Run executes the long-running watch service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if len(a.Config.Watch.Codes) == 0 {
		a.Logger.Warn().Msg("watch.codes is empty; only the directory snapshot will be kept warm")
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Watch.Interval,
		AlignToStart: a.Config.Watch.AlignToTick,
		StartupDelay: a.Config.Watch.StartupDelay,
	}, a.Logger)

	notifier := a.newNotifier()
	if a.Config.Alerting.Enabled && notifier == nil {
		a.Logger.Warn().Msg("alerting enabled but no channel configured; alerts will be dropped")
	}

	svc := service.New(a.Config, sched, a.newFeed(), notifier, a.Logger)

	a.Logger.Info().Msg("starting watch service")
	err := svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch service terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch service stopped")
	return nil
}

// SearchOptions configure the search command.
type SearchOptions struct {
	Query string
	Limit int
}

// DetailOptions configure the detail command.
type DetailOptions struct {
	Code string
	Tail int
}

// DiagOptions configure the diagnostics command.
type DiagOptions struct {
	Code string
}

// ExportOptions hold parameters for exporting a NAV history.
type ExportOptions struct {
	Code      string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
