// Package config loads Watch-Dog Sentinel's settings from a TOML file plus
// env-var overrides, following the teacher's precedence (env wins, then
// file, then default) and bootstrap-on-first-run behavior, but parsed with
// a real TOML decoder since this config has nested notifier/rate-limit
// sections instead of the teacher's flat key=value scanner.
package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// RateLimit bounds per-token pulse ingestion (§ domain stack: a noisy or
// misconfigured client must not starve ingest for other projects).
type RateLimit struct {
	RequestsPerMinute int
	Burst             int
}

// Notifier seeds the settings table on first run; after that, the admin
// collaborator (out of core scope) owns these values and config no longer
// overwrites them.
type Notifier struct {
	APIToken        string
	ChannelCritical string
	ChannelSuccess  string
	ChannelWarning  string
	ChannelInfo     string
	SilencePeriod   int64
}

// Config is Watch-Dog Sentinel's resolved runtime configuration.
type Config struct {
	ListenAddr     string
	DataDir        string
	LogLevel       string
	AllowedOrigins []string
	SweepInterval  time.Duration
	RateLimit      RateLimit
	Notifier       Notifier
}

// fileConfig mirrors the on-disk TOML shape; zero values mean "not set" so
// Load can tell an absent key apart from an explicit zero.
type fileConfig struct {
	Listen         string   `toml:"listen"`
	DataDir        string   `toml:"data_dir"`
	LogLevel       string   `toml:"log_level"`
	AllowedOrigins []string `toml:"allowed_origins"`
	SweepInterval  string   `toml:"sweep_interval"`

	RateLimit struct {
		RequestsPerMinute int `toml:"requests_per_minute"`
		Burst             int `toml:"burst"`
	} `toml:"rate_limit"`

	Notifier struct {
		APIToken        string `toml:"api_token"`
		ChannelCritical string `toml:"channel_critical"`
		ChannelSuccess  string `toml:"channel_success"`
		ChannelWarning  string `toml:"channel_warning"`
		ChannelInfo     string `toml:"channel_info"`
		SilencePeriod   int64  `toml:"silence_period_seconds"`
	} `toml:"notifier"`
}

const defaultConfigContent = `# Watch-Dog Sentinel configuration
# All values shown are defaults. Uncomment and edit to customize.

# Address the pulse/config/maintenance/status API listens on.
# Environment variable: WATCHDOG_LISTEN
# listen = "127.0.0.1:8089"

# List of allowed CORS origins for the read-only status API.
# Environment variable: WATCHDOG_ALLOWED_ORIGINS (comma-separated)
# allowed_origins = ["https://dashboard.example.com"]

# Log level: debug, info, warn, error.
# Environment variable: WATCHDOG_LOG_LEVEL
# log_level = "info"

# How often the in-process scheduler ticks the Sweeper when running
# "watchdogd serve" standalone (an external cron invoking "watchdogd sweep"
# is the alternative deployment named in spec §6.5).
# Environment variable: WATCHDOG_SWEEP_INTERVAL
# sweep_interval = "1m"

[rate_limit]
# Per-token pulse ingestion budget.
# requests_per_minute = 120
# burst = 30

[notifier]
# Seeded into the settings table on first run only; once present, the
# admin collaborator owns these values and config no longer overwrites them.
# api_token = ""
# channel_critical = ""
# channel_success = ""
# channel_warning = ""
# channel_info = ""
# silence_period_seconds = 3600
`

var (
	osUserHomeDir = os.UserHomeDir
	osCurrentUser = user.Current
	osGeteuid     = os.Geteuid
	osTempDir     = os.TempDir
)

// Load resolves Config from $WATCHDOG_DATA_DIR/watchdog.toml (bootstrapped
// with commented defaults on first run) plus env-var overrides, which win
// over the file.
func Load() Config {
	cfg := Config{
		ListenAddr:    "127.0.0.1:8089",
		LogLevel:      "info",
		SweepInterval: time.Minute,
		RateLimit:     RateLimit{RequestsPerMinute: 120, Burst: 30},
		Notifier:      Notifier{SilencePeriod: 3600},
	}

	cfg.DataDir = resolveDataDir()
	configPath := filepath.Join(cfg.DataDir, "watchdog.toml")
	ensureDefaultConfig(configPath)

	file := loadFile(configPath)
	applyFile(&cfg, file)
	applyEnv(&cfg)
	return cfg
}

func applyFile(cfg *Config, file fileConfig) {
	if file.Listen != "" {
		cfg.ListenAddr = file.Listen
	}
	if file.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(file.LogLevel)
	}
	if len(file.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = file.AllowedOrigins
	}
	if file.SweepInterval != "" {
		if d, err := time.ParseDuration(file.SweepInterval); err == nil && d > 0 {
			cfg.SweepInterval = d
		}
	}
	if file.RateLimit.RequestsPerMinute > 0 {
		cfg.RateLimit.RequestsPerMinute = file.RateLimit.RequestsPerMinute
	}
	if file.RateLimit.Burst > 0 {
		cfg.RateLimit.Burst = file.RateLimit.Burst
	}
	if file.Notifier.APIToken != "" {
		cfg.Notifier.APIToken = file.Notifier.APIToken
	}
	if file.Notifier.ChannelCritical != "" {
		cfg.Notifier.ChannelCritical = file.Notifier.ChannelCritical
	}
	if file.Notifier.ChannelSuccess != "" {
		cfg.Notifier.ChannelSuccess = file.Notifier.ChannelSuccess
	}
	if file.Notifier.ChannelWarning != "" {
		cfg.Notifier.ChannelWarning = file.Notifier.ChannelWarning
	}
	if file.Notifier.ChannelInfo != "" {
		cfg.Notifier.ChannelInfo = file.Notifier.ChannelInfo
	}
	if file.Notifier.SilencePeriod > 0 {
		cfg.Notifier.SilencePeriod = file.Notifier.SilencePeriod
	}
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("WATCHDOG_LISTEN")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("WATCHDOG_LOG_LEVEL")); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("WATCHDOG_ALLOWED_ORIGINS")); v != "" {
		cfg.AllowedOrigins = splitCSV(v)
	}
	if v := strings.TrimSpace(os.Getenv("WATCHDOG_SWEEP_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SweepInterval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("WATCHDOG_RATE_LIMIT_RPM")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimit.RequestsPerMinute = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("WATCHDOG_API_TOKEN")); v != "" {
		cfg.Notifier.APIToken = v
	}
	if v := strings.TrimSpace(os.Getenv("WATCHDOG_CHANNEL_CRITICAL")); v != "" {
		cfg.Notifier.ChannelCritical = v
	}
	if v := strings.TrimSpace(os.Getenv("WATCHDOG_CHANNEL_SUCCESS")); v != "" {
		cfg.Notifier.ChannelSuccess = v
	}
	if v := strings.TrimSpace(os.Getenv("WATCHDOG_CHANNEL_WARNING")); v != "" {
		cfg.Notifier.ChannelWarning = v
	}
	if v := strings.TrimSpace(os.Getenv("WATCHDOG_CHANNEL_INFO")); v != "" {
		cfg.Notifier.ChannelInfo = v
	}
	if v := strings.TrimSpace(os.Getenv("WATCHDOG_SILENCE_PERIOD_SECONDS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Notifier.SilencePeriod = n
		}
	}
}

func resolveDataDir() string {
	if v := strings.TrimSpace(os.Getenv("WATCHDOG_DATA_DIR")); v != "" {
		return v
	}
	if home, err := resolveHomeDir(); err == nil {
		return filepath.Join(home, ".watchdog")
	}
	return filepath.Join(osTempDir(), "watchdog")
}

func ensureDefaultConfig(configPath string) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		writeDefaultConfig(configPath)
	}
}

func writeDefaultConfig(path string) {
	_ = os.MkdirAll(filepath.Dir(path), 0o700)
	_ = os.WriteFile(path, []byte(defaultConfigContent), 0o600) //nolint:gosec // fixed content, not user input
}

// loadFile decodes the TOML config file, returning a zero-valued fileConfig
// (every field absent) if the file doesn't exist or fails to parse — a
// malformed config file falls back to defaults rather than refusing to start.
func loadFile(path string) fileConfig {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fileConfig{}
	}
	return fc
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func resolveHomeDir() (string, error) {
	if home := strings.TrimSpace(os.Getenv("HOME")); home != "" {
		return home, nil
	}
	if home, err := osUserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
		return strings.TrimSpace(home), nil
	}
	if current, err := osCurrentUser(); err == nil && current != nil {
		if home := strings.TrimSpace(current.HomeDir); home != "" {
			return home, nil
		}
	}
	if osGeteuid() == 0 {
		if runtime.GOOS == "darwin" {
			return "/var/root", nil
		}
		return "/root", nil
	}
	return "", os.ErrNotExist
}
