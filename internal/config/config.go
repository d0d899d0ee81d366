package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// TokenEnvVar is the environment variable holding the epilot bearer token.
const TokenEnvVar = "EPILOT_API_TOKEN"

// TokenHint tells the operator how to supply a missing token.
const TokenHint = TokenEnvVar + " not set. Please:\n" +
	"1. Copy .env.example to .env\n" +
	"2. Add your epilot API token\n" +
	"3. Run the command again"

// Config holds the application configuration loaded from .env files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	Tenant   string `mapstructure:"tenant"`
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`

	APIToken          string        `mapstructure:"epilot_api_token"`
	APITimeoutSeconds int64         `mapstructure:"api_timeout_seconds"`
	APIKeepAlive      bool          `mapstructure:"api_keep_alive"`
	APITimeout        time.Duration `mapstructure:"-"`
	RequestDelayMs    int64         `mapstructure:"request_delay_ms"`
	RequestDelay      time.Duration `mapstructure:"-"`

	ServicesFile   string `mapstructure:"services_file"`
	PublishersFile string `mapstructure:"publishers_file"`
	OutputDir      string `mapstructure:"output_dir"`

	LedgerType           string        `mapstructure:"ledger_type"`
	LedgerPath           string        `mapstructure:"ledger_path"`
	LedgerTTLSeconds     int64         `mapstructure:"ledger_ttl_seconds"`
	LedgerCleanupSeconds int64         `mapstructure:"ledger_cleanup_interval_seconds"`
	LedgerTTL            time.Duration `mapstructure:"-"`
	LedgerCleanup        time.Duration `mapstructure:"-"`
}

// Load reads configuration from the given .env files (missing files are
// ignored), then environment variables. Without files it tries .env and configs/.env.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env", "configs/.env"}
	}
	for _, f := range envFiles {
		if strings.TrimSpace(f) == "" {
			continue
		}
		_ = godotenv.Load(f)
	}

	v := viper.New()

	v.SetDefault("app_name", "epilot-provisioner")
	v.SetDefault("app_env", "development")
	v.SetDefault("tenant", "stadtwerke-wuelfrath")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("epilot_api_token", "")
	v.SetDefault("api_timeout_seconds", 30)
	v.SetDefault("api_keep_alive", false)
	v.SetDefault("request_delay_ms", 500)
	v.SetDefault("services_file", "")
	v.SetDefault("publishers_file", "")
	v.SetDefault("output_dir", "./data/output")
	v.SetDefault("ledger_type", "bbolt")
	v.SetDefault("ledger_path", "./data/ledger.db")
	v.SetDefault("ledger_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("ledger_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.APITimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid api_timeout_seconds (must be positive seconds)")
	}
	cfg.APITimeout = time.Duration(cfg.APITimeoutSeconds) * time.Second

	if cfg.RequestDelayMs < 0 {
		return nil, fmt.Errorf("invalid request_delay_ms (must not be negative)")
	}
	cfg.RequestDelay = time.Duration(cfg.RequestDelayMs) * time.Millisecond

	if cfg.LedgerTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid ledger_ttl_seconds (must be positive seconds)")
	}
	if cfg.LedgerCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid ledger_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.LedgerTTL = time.Duration(cfg.LedgerTTLSeconds) * time.Second
	cfg.LedgerCleanup = time.Duration(cfg.LedgerCleanupSeconds) * time.Second

	cfg.APIToken = strings.TrimSpace(cfg.APIToken)
	return &cfg, nil
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.APIToken != "" {
		c.APIToken = "***"
	}
	return c
}
