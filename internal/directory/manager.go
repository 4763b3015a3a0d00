// Package directory loads the fund directory online-first with a
// last-known-good snapshot on local disk as fallback. The snapshot is the
// only durable state in the whole system.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"fundwatch/internal/fund"
	"fundwatch/internal/parser"
)

// Getter abstracts the resilient HTTP client.
type Getter interface {
	Get(ctx context.Context, url string, timeout time.Duration, maxRetries int) ([]byte, error)
}

// A cached snapshot is only trusted when it holds more than this many
// records, mirroring the online parser's sanity threshold.
const minCachedRecords = 1000

// ErrUnavailable means the directory could not be loaded online and no
// usable snapshot exists. This is the only caller-fatal condition in the
// data layer; everything downstream depends on the directory.
var ErrUnavailable = errors.New("fund directory unavailable online and no usable cache")

// Options parameterise the manager.
type Options struct {
	URL          string
	SnapshotPath string
	Timeout      time.Duration
	MaxRetries   int
	ProbeRetries int
}

// Manager wraps fetch+parse of the directory with snapshot persistence.
type Manager struct {
	opts   Options
	client Getter
	logger zerolog.Logger
}

// New constructs a Manager.
func New(opts Options, client Getter, logger zerolog.Logger) *Manager {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 4
	}
	if opts.ProbeRetries < 1 {
		opts.ProbeRetries = 2
	}
	return &Manager{
		opts:   opts,
		client: client,
		logger: logger.With().Str("component", "directory").Logger(),
	}
}

// Load returns the directory records and a provenance tag: "online" when
// the upstream fetch succeeded (refreshing the snapshot as a side effect),
// or "cache (reason: ...)" when the snapshot had to stand in. When both
// paths fail the returned error wraps ErrUnavailable with the online
// cause.
func (m *Manager) Load(ctx context.Context) ([]fund.Record, string, error) {
	records, onlineErr := m.loadOnline(ctx)
	if onlineErr == nil {
		if err := m.writeSnapshot(records); err != nil {
			m.logger.Warn().Err(err).Str("path", m.opts.SnapshotPath).Msg("snapshot refresh failed")
		}
		return records, "online", nil
	}

	m.logger.Warn().Err(onlineErr).Msg("online directory load failed, trying snapshot")

	cached, cacheErr := m.readSnapshot()
	if cacheErr == nil && len(cached.Records) > minCachedRecords {
		m.logger.Info().Int("records", len(cached.Records)).Time("snapshot_ts", cached.TS).Msg("serving directory from snapshot")
		return cached.Records, fmt.Sprintf("cache (reason: %v)", onlineErr), nil
	}
	if cacheErr != nil {
		m.logger.Warn().Err(cacheErr).Msg("snapshot unusable")
	}

	return nil, "", fmt.Errorf("%w: %v", ErrUnavailable, onlineErr)
}

// Probe performs a single online fetch+parse without touching the
// snapshot. Used by diagnostics.
func (m *Manager) Probe(ctx context.Context) error {
	body, err := m.client.Get(ctx, m.opts.URL, m.opts.Timeout, m.opts.ProbeRetries)
	if err != nil {
		return err
	}
	_, err = parser.ParseDirectory(body)
	return err
}

func (m *Manager) loadOnline(ctx context.Context) ([]fund.Record, error) {
	body, err := m.client.Get(ctx, m.opts.URL, m.opts.Timeout, m.opts.MaxRetries)
	if err != nil {
		return nil, err
	}
	return parser.ParseDirectory(body)
}

// writeSnapshot persists atomically: readers either see the previous
// snapshot or the complete new one, never a partial write.
func (m *Manager) writeSnapshot(records []fund.Record) error {
	snapshot := fund.Snapshot{TS: time.Now().UTC(), Records: records}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(m.opts.SnapshotPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(m.opts.SnapshotPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, m.opts.SnapshotPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}

	m.logger.Debug().Int("records", len(records)).Str("path", m.opts.SnapshotPath).Msg("snapshot refreshed")
	return nil
}

func (m *Manager) readSnapshot() (fund.Snapshot, error) {
	var snapshot fund.Snapshot
	data, err := os.ReadFile(m.opts.SnapshotPath)
	if err != nil {
		return snapshot, err
	}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return snapshot, fmt.Errorf("decode snapshot: %w", err)
	}
	return snapshot, nil
}
