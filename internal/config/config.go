package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"fundwatch/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// SourcesConfig points at the upstream endpoints. The valuation and NAV
// URLs are fmt templates with one %s for the fund code.
type SourcesConfig struct {
	DirectoryURL string `mapstructure:"directory_url"`
	ValuationURL string `mapstructure:"valuation_url"`
	NavURL       string `mapstructure:"nav_url"`
	UserAgent    string `mapstructure:"user_agent"`
}

// FetchConfig tunes the resilient HTTP layer per endpoint.
type FetchConfig struct {
	DirectoryTimeout time.Duration `mapstructure:"directory_timeout"`
	DirectoryRetries int           `mapstructure:"directory_retries"`
	ValuationTimeout time.Duration `mapstructure:"valuation_timeout"`
	ValuationRetries int           `mapstructure:"valuation_retries"`
	NavTimeout       time.Duration `mapstructure:"nav_timeout"`
	NavRetries       int           `mapstructure:"nav_retries"`
	BackoffStep      time.Duration `mapstructure:"backoff_step"`
	SoftSleep        time.Duration `mapstructure:"soft_sleep"`
}

// CacheConfig governs the snapshot location and memo TTL windows.
type CacheConfig struct {
	Dir          string        `mapstructure:"dir"`
	SnapshotFile string        `mapstructure:"snapshot_file"`
	DirectoryTTL time.Duration `mapstructure:"directory_ttl"`
	ValuationTTL time.Duration `mapstructure:"valuation_ttl"`
	NavTTL       time.Duration `mapstructure:"nav_ttl"`
}

// SnapshotPath resolves the on-disk location of the directory snapshot.
func (c CacheConfig) SnapshotPath() string {
	return filepath.Join(c.Dir, c.SnapshotFile)
}

// WatchConfig governs the watch service cadence and watchlist.
type WatchConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	AlignToTick  bool          `mapstructure:"align_to_tick"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
	Codes        []string      `mapstructure:"codes"`
}

// AlertingConfig defines alert thresholds and routing.
type AlertingConfig struct {
	Enabled        bool           `mapstructure:"enabled"`
	ScoreThreshold int            `mapstructure:"score_threshold"`
	Cooldown       time.Duration  `mapstructure:"cooldown"`
	Channels       []string       `mapstructure:"channels"`
	Telegram       TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FUNDWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "fundwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("sources.directory_url", "https://fund.eastmoney.com/js/fundcode_search.js")
	v.SetDefault("sources.valuation_url", "https://fundgz.1234567.com.cn/js/%s.js")
	v.SetDefault("sources.nav_url", "https://fundf10.eastmoney.com/F10DataApi.aspx?type=lsjz&code=%s&page=1&per=200")
	v.SetDefault("sources.user_agent", "")

	v.SetDefault("fetch.directory_timeout", "15s")
	v.SetDefault("fetch.directory_retries", 4)
	v.SetDefault("fetch.valuation_timeout", "10s")
	v.SetDefault("fetch.valuation_retries", 3)
	v.SetDefault("fetch.nav_timeout", "15s")
	v.SetDefault("fetch.nav_retries", 4)
	v.SetDefault("fetch.backoff_step", "800ms")
	v.SetDefault("fetch.soft_sleep", "250ms")

	v.SetDefault("cache.dir", ".cache")
	v.SetDefault("cache.snapshot_file", "funds_cache.json")
	v.SetDefault("cache.directory_ttl", "24h")
	v.SetDefault("cache.valuation_ttl", "30s")
	v.SetDefault("cache.nav_ttl", "1h")

	v.SetDefault("watch.interval", "1h")
	v.SetDefault("watch.align_to_tick", true)
	v.SetDefault("watch.startup_delay", "0s")
	v.SetDefault("watch.codes", []string{})

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.score_threshold", 70)
	v.SetDefault("alerting.cooldown", "4h")
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 1000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Sources.DirectoryURL == "" {
		return fmt.Errorf("sources.directory_url is required")
	}
	if !strings.Contains(c.Sources.ValuationURL, "%s") {
		return fmt.Errorf("sources.valuation_url must contain a %%s code placeholder")
	}
	if !strings.Contains(c.Sources.NavURL, "%s") {
		return fmt.Errorf("sources.nav_url must contain a %%s code placeholder")
	}
	if c.Fetch.DirectoryRetries < 1 || c.Fetch.ValuationRetries < 1 || c.Fetch.NavRetries < 1 {
		return fmt.Errorf("fetch retries must be at least 1")
	}
	if c.Fetch.DirectoryTimeout <= 0 || c.Fetch.ValuationTimeout <= 0 || c.Fetch.NavTimeout <= 0 {
		return fmt.Errorf("fetch timeouts must be positive")
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be greater than zero")
	}
	if c.Alerting.ScoreThreshold < 0 || c.Alerting.ScoreThreshold > 100 {
		return fmt.Errorf("alerting.score_threshold must be within [0,100]")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
