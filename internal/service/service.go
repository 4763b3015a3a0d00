package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"fundwatch/internal/alerting"
	"fundwatch/internal/config"
	"fundwatch/internal/fund"
	"fundwatch/internal/risk"
	"fundwatch/internal/scheduler"
)

// Feed exposes the data entry points the watch loop consumes.
type Feed interface {
	LoadDirectory(ctx context.Context) ([]fund.Record, string, error)
	NavHistory(ctx context.Context, code string) fund.NavSeries
}

// Service orchestrates the periodic watch: directory refresh, watchlist
// risk scoring, and alert dispatch.
type Service struct {
	scheduler *scheduler.Scheduler
	feed      Feed
	notifier  alerting.Notifier
	logger    zerolog.Logger

	codes     []string
	threshold int
	channels  []string
	alertsOn  bool
	cooldown  time.Duration

	now       func() time.Time
	lastAlert map[string]time.Time
}

// New constructs the watch service.
func New(cfg *config.Config, sched *scheduler.Scheduler, feed Feed, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	return &Service{
		scheduler: sched,
		feed:      feed,
		notifier:  notifier,
		logger:    logger.With().Str("component", "service").Logger(),
		codes:     cfg.Watch.Codes,
		threshold: cfg.Alerting.ScoreThreshold,
		channels:  cfg.Alerting.Channels,
		alertsOn:  cfg.Alerting.Enabled,
		cooldown:  cfg.Alerting.Cooldown,
		now:       time.Now,
		lastAlert: make(map[string]time.Time),
	}
}

// Run begins the periodic watch loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessTick)
}

// ProcessTick 执行单次巡检：刷新目录快照并为关注列表打分。
func (s *Service) ProcessTick(ctx context.Context, tick time.Time) error {
	records, provenance, err := s.feed.LoadDirectory(ctx)
	if err != nil {
		return fmt.Errorf("refresh directory: %w", err)
	}
	s.logger.Info().Int("records", len(records)).Str("provenance", provenance).Msg("directory refreshed")

	names := make(map[string]string, len(records))
	for _, r := range records {
		names[r.Code] = r.Name
	}

	for _, code := range s.codes {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s.assessCode(ctx, tick, code, names[code])
	}

	return nil
}

func (s *Service) assessCode(ctx context.Context, tick time.Time, code, name string) {
	series := s.feed.NavHistory(ctx, code)
	if len(series) == 0 {
		// soft feed: skip this code, the next tick retries
		s.logger.Warn().Str("code", code).Msg("nav history unavailable, skipping")
		return
	}

	assessment := risk.Assess(series)
	s.logger.Info().Str("code", code).
		Int("score", assessment.Score).
		Str("action", string(assessment.Action)).
		Float64("volatility", assessment.Volatility).
		Float64("max_drawdown", assessment.MaxDrawdown).
		Msg("fund assessed")

	if !s.alertsOn || s.notifier == nil || assessment.Score < s.threshold {
		return
	}
	if last, ok := s.lastAlert[code]; ok && s.now().Sub(last) < s.cooldown {
		s.logger.Debug().Str("code", code).Msg("alert suppressed by cooldown")
		return
	}

	note := alerting.Notification{
		Tick:        tick,
		Code:        code,
		Name:        name,
		Score:       assessment.Score,
		Threshold:   s.threshold,
		Action:      string(assessment.Action),
		Volatility:  assessment.Volatility,
		MaxDrawdown: assessment.MaxDrawdown,
		Channels:    s.channels,
	}
	if latest, ok := series.Latest(); ok {
		note.LatestNAV = latest.UnitNAV
		note.LatestDate = latest.Date
	}

	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Str("code", code).Msg("failed to dispatch alert")
		return
	}
	s.lastAlert[code] = s.now()
}
