package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lcalzada-xor/vmscout/internal/adapters/kev"
	"github.com/lcalzada-xor/vmscout/internal/adapters/nvd"
	"github.com/lcalzada-xor/vmscout/internal/core/services/feeds"
	"github.com/lcalzada-xor/vmscout/internal/core/services/matching"
)

// Config holds all application configuration.
type Config struct {
	Addr   string
	DBPath string

	NVDURL      string
	NVDAPIKey   string
	NVDPageSize int
	KEVURL      string

	WindowDays   int
	FallbackDays int
	SyncInterval time.Duration
	SyncDays     int

	TopK       int
	Workers    int
	TablesPath string

	APIKeyHash     string
	AllowedOrigins []string
	Debug          bool
}

// Load parses command line flags and environment variables to populate Config.
// Flags take precedence over environment variables.
func Load() (*Config, error) {
	return LoadArgs(flag.CommandLine, os.Args[1:])
}

// LoadArgs is Load over an explicit flag set and argument list.
func LoadArgs(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}

	// Defaults and Environment Variables
	cfg.Addr = getEnv("VMSCOUT_ADDR", ":8080")
	cfg.DBPath = getEnv("VMSCOUT_DB", "")
	cfg.NVDURL = getEnv("VMSCOUT_NVD_URL", nvd.DefaultBaseURL)
	cfg.NVDAPIKey = getEnv("VMSCOUT_NVD_API_KEY", "")
	cfg.NVDPageSize = getEnvInt("VMSCOUT_NVD_PAGE_SIZE", 0)
	cfg.KEVURL = getEnv("VMSCOUT_KEV_URL", kev.DefaultURL)
	cfg.WindowDays = getEnvInt("VMSCOUT_WINDOW_DAYS", feeds.DefaultWindowDays)
	cfg.FallbackDays = getEnvInt("VMSCOUT_FALLBACK_DAYS", feeds.DefaultFallbackDays)
	cfg.SyncInterval = getEnvDuration("VMSCOUT_SYNC_INTERVAL", 0)
	cfg.SyncDays = getEnvInt("VMSCOUT_SYNC_DAYS", 2)
	cfg.TopK = getEnvInt("VMSCOUT_TOPK", matching.DefaultTopK)
	cfg.Workers = getEnvInt("VMSCOUT_WORKERS", 0)
	cfg.TablesPath = getEnv("VMSCOUT_TABLES", "")
	cfg.APIKeyHash = getEnv("VMSCOUT_API_KEY_HASH", "")
	cfg.AllowedOrigins = splitList(getEnv("VMSCOUT_ALLOWED_ORIGINS", ""))
	cfg.Debug = getEnvBool("VMSCOUT_DEBUG", false)

	var origins string
	// Command Line Flags (Override Env)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP server address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite database (default ~/.vmscout/vmscout.db)")
	fs.StringVar(&cfg.NVDURL, "nvd-url", cfg.NVDURL, "NVD CVE API 2.0 endpoint")
	fs.StringVar(&cfg.NVDAPIKey, "nvd-api-key", cfg.NVDAPIKey, "NVD API key")
	fs.IntVar(&cfg.NVDPageSize, "nvd-page-size", cfg.NVDPageSize, "NVD results per page (0 uses the server default)")
	fs.StringVar(&cfg.KEVURL, "kev-url", cfg.KEVURL, "CISA KEV catalog URL")
	fs.IntVar(&cfg.WindowDays, "window-days", cfg.WindowDays, "NVD query window in days")
	fs.IntVar(&cfg.FallbackDays, "fallback-days", cfg.FallbackDays, "NVD fallback sub-window in days")
	fs.DurationVar(&cfg.SyncInterval, "sync-interval", cfg.SyncInterval, "Periodic feed sync interval (0 disables)")
	fs.IntVar(&cfg.SyncDays, "sync-days", cfg.SyncDays, "Days covered by each periodic NVD sync")
	fs.IntVar(&cfg.TopK, "topk", cfg.TopK, "Ranges kept per software after scoring")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Parallel asset matches (0 uses the CPU count)")
	fs.StringVar(&cfg.TablesPath, "tables", cfg.TablesPath, "Path to alias/product tables JSON (empty uses built-in)")
	fs.StringVar(&cfg.APIKeyHash, "api-key-hash", cfg.APIKeyHash, "bcrypt hash of the API key for mutating endpoints")
	fs.StringVar(&origins, "origins", "", "Comma separated websocket origins")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable verbose debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if origins != "" {
		cfg.AllowedOrigins = splitList(origins)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = getDefaultDBPath()
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	if c.WindowDays < 1 {
		errs = append(errs, fmt.Errorf("window days must be positive, got %d", c.WindowDays))
	}
	if c.FallbackDays < 1 {
		errs = append(errs, fmt.Errorf("fallback days must be positive, got %d", c.FallbackDays))
	} else if c.FallbackDays > c.WindowDays {
		errs = append(errs, fmt.Errorf("fallback days (%d) exceed window days (%d)", c.FallbackDays, c.WindowDays))
	}
	if c.TopK < 1 {
		errs = append(errs, fmt.Errorf("topk must be at least 1, got %d", c.TopK))
	}
	if c.NVDPageSize < 0 || c.NVDPageSize > 2000 {
		errs = append(errs, fmt.Errorf("nvd page size must be between 0 and 2000, got %d", c.NVDPageSize))
	}
	if c.SyncInterval < 0 {
		errs = append(errs, errors.New("sync interval must not be negative"))
	}
	if c.SyncInterval > 0 && c.SyncDays < 1 {
		errs = append(errs, fmt.Errorf("sync days must be positive, got %d", c.SyncDays))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getDefaultDBPath returns the default database path in user's home directory.
// Creates the directory if it doesn't exist.
func getDefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Warn("could not get user home directory, using current dir", "error", err)
		return "vmscout.db"
	}

	dir := filepath.Join(home, ".vmscout")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("could not create .vmscout directory, using current dir", "error", err)
		return "vmscout.db"
	}

	return filepath.Join(dir, "vmscout.db")
}
