// Package feed exposes the data entry points the rest of the application
// consumes: directory load, per-fund valuation, and per-fund NAV history.
// Each is memoised with its own TTL; valuation and NAV are soft-optional
// and degrade to nil/empty instead of failing.
package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fundwatch/internal/fund"
	"fundwatch/internal/memo"
	"fundwatch/internal/parser"
)

// Getter abstracts the resilient HTTP client.
type Getter interface {
	Get(ctx context.Context, url string, timeout time.Duration, maxRetries int) ([]byte, error)
}

// DirectoryLoader abstracts the snapshot-backed directory manager.
type DirectoryLoader interface {
	Load(ctx context.Context) ([]fund.Record, string, error)
}

// Options parameterise the feed.
type Options struct {
	// ValuationURL and NavURL are fmt templates with one %s for the fund
	// code.
	ValuationURL     string
	NavURL           string
	ValuationTimeout time.Duration
	ValuationRetries int
	NavTimeout       time.Duration
	NavRetries       int
	// SoftSleep is a blocking delay before each optional-feed request,
	// keeping the request rate under the source's limits.
	SoftSleep time.Duration

	DirectoryTTL time.Duration
	ValuationTTL time.Duration
	NavTTL       time.Duration
}

func (o *Options) applyDefaults() {
	if o.ValuationTimeout <= 0 {
		o.ValuationTimeout = 10 * time.Second
	}
	if o.ValuationRetries < 1 {
		o.ValuationRetries = 3
	}
	if o.NavTimeout <= 0 {
		o.NavTimeout = 15 * time.Second
	}
	if o.NavRetries < 1 {
		o.NavRetries = 4
	}
	if o.DirectoryTTL <= 0 {
		o.DirectoryTTL = 24 * time.Hour
	}
	if o.ValuationTTL <= 0 {
		o.ValuationTTL = 30 * time.Second
	}
	if o.NavTTL <= 0 {
		o.NavTTL = time.Hour
	}
}

type directoryResult struct {
	records    []fund.Record
	provenance string
}

// Feed wires fetcher, parsers, and memo caches behind the entry points.
type Feed struct {
	opts      Options
	client    Getter
	directory DirectoryLoader
	logger    zerolog.Logger
	sleep     func(ctx context.Context, d time.Duration) error

	dirCache   *memo.Cache[directoryResult]
	quoteCache *memo.Cache[*fund.ValuationQuote]
	navCache   *memo.Cache[fund.NavSeries]
}

// New constructs a Feed. A nil clock uses time.Now.
func New(opts Options, client Getter, dir DirectoryLoader, clock memo.Clock, logger zerolog.Logger) *Feed {
	opts.applyDefaults()
	return &Feed{
		opts:       opts,
		client:     client,
		directory:  dir,
		logger:     logger.With().Str("component", "feed").Logger(),
		sleep:      sleepCtx,
		dirCache:   memo.New[directoryResult](opts.DirectoryTTL, clock),
		quoteCache: memo.New[*fund.ValuationQuote](opts.ValuationTTL, clock),
		navCache:   memo.New[fund.NavSeries](opts.NavTTL, clock),
	}
}

// LoadDirectory returns the fund directory and its provenance tag. The
// result is memoised for the directory TTL; failures are not cached, so
// the next call retries.
func (f *Feed) LoadDirectory(ctx context.Context) ([]fund.Record, string, error) {
	result, err := f.dirCache.Get("directory", func() (directoryResult, error) {
		records, provenance, err := f.directory.Load(ctx)
		if err != nil {
			return directoryResult{}, err
		}
		return directoryResult{records: records, provenance: provenance}, nil
	})
	if err != nil {
		return nil, "", err
	}
	return result.records, result.provenance, nil
}

// Valuation returns the estimated-NAV quote for code, or nil when the
// code is invalid or the feed is unavailable. The nil outcome is cached
// for the valuation TTL just like a hit, to avoid hammering a blocked
// endpoint.
func (f *Feed) Valuation(ctx context.Context, code string) *fund.ValuationQuote {
	code, ok := normalizeCode(code)
	if !ok {
		return nil
	}

	quote, _ := f.quoteCache.Get(code, func() (*fund.ValuationQuote, error) {
		if err := f.sleep(ctx, f.opts.SoftSleep); err != nil {
			return nil, nil
		}
		url := fmt.Sprintf(f.opts.ValuationURL, code)
		body, err := f.client.Get(ctx, url, f.opts.ValuationTimeout, f.opts.ValuationRetries)
		if err != nil {
			f.logger.Debug().Err(err).Str("code", code).Msg("valuation fetch failed, degrading to nil")
			return nil, nil
		}
		return parser.ParseValuation(body), nil
	})
	return quote
}

// NavHistory returns the NAV series for code oldest-first, or an empty
// series when the code is invalid or the feed is unavailable. Empty
// results are cached for the NAV TTL.
func (f *Feed) NavHistory(ctx context.Context, code string) fund.NavSeries {
	code, ok := normalizeCode(code)
	if !ok {
		return nil
	}

	series, _ := f.navCache.Get(code, func() (fund.NavSeries, error) {
		if err := f.sleep(ctx, f.opts.SoftSleep); err != nil {
			return nil, nil
		}
		url := fmt.Sprintf(f.opts.NavURL, code)
		body, err := f.client.Get(ctx, url, f.opts.NavTimeout, f.opts.NavRetries)
		if err != nil {
			f.logger.Debug().Err(err).Str("code", code).Msg("nav fetch failed, degrading to empty")
			return nil, nil
		}
		return parser.ParseNavHistory(body), nil
	})
	return series
}

func normalizeCode(code string) (string, bool) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "", false
	}
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return trimmed, true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
