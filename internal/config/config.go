package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/shehryarbajwa/gridstatus/internal/grid"
	"github.com/shehryarbajwa/gridstatus/internal/observability"
	"github.com/shehryarbajwa/gridstatus/internal/reporter"
	"github.com/shehryarbajwa/gridstatus/pkg/models"
)

const appName = "gridstatus"

// GridConfig holds the grid endpoint and account
type GridConfig struct {
	Username          string `mapstructure:"username"`
	AccessKey         string `mapstructure:"access_key"`
	BaseURL           string `mapstructure:"base_url"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

// ReportConfig controls how results are reported
type ReportConfig struct {
	MaxWait        time.Duration `mapstructure:"max_wait"`
	RetryCount     int           `mapstructure:"retry_count"`
	UnknownOutcome string        `mapstructure:"unknown_outcome"`
	Workers        int           `mapstructure:"workers"`
}

// SimConfig configures the local grid simulator
type SimConfig struct {
	Addr              string        `mapstructure:"addr"`
	Delay             time.Duration `mapstructure:"delay"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Accounts          string        `mapstructure:"accounts"`
}

// Config is loaded once at startup and passed down explicitly
type Config struct {
	Grid   GridConfig              `mapstructure:"grid"`
	Report ReportConfig            `mapstructure:"report"`
	Sim    SimConfig               `mapstructure:"sim"`
	Log    observability.LogConfig `mapstructure:"log"`
}

// Credentials returns the grid account pair
func (c *Config) Credentials() models.Credentials {
	return models.Credentials{Username: c.Grid.Username, AccessKey: c.Grid.AccessKey}
}

// UnknownPolicy returns the parsed unknown-outcome policy
func (c *Config) UnknownPolicy() models.UnknownPolicy {
	p, err := models.ParseUnknownPolicy(c.Report.UnknownOutcome)
	if err != nil {
		return models.UnknownSkip
	}
	return p
}

// Validate rejects values the reporter cannot work with
func (c *Config) Validate() error {
	if _, err := models.ParseUnknownPolicy(c.Report.UnknownOutcome); err != nil {
		return err
	}
	if c.Report.RetryCount < 1 {
		return fmt.Errorf("report.retry_count must be at least 1, got %d", c.Report.RetryCount)
	}
	if c.Report.Workers < 1 {
		return fmt.Errorf("report.workers must be at least 1, got %d", c.Report.Workers)
	}
	if c.Report.MaxWait < 0 {
		return fmt.Errorf("report.max_wait must not be negative")
	}
	return c.Sim.Validate()
}

// Validate rejects negative simulator timings and rates
func (s *SimConfig) Validate() error {
	if s.Delay < 0 {
		return fmt.Errorf("sim.delay must not be negative")
	}
	if s.IdleTimeout < 0 {
		return fmt.Errorf("sim.idle_timeout must not be negative")
	}
	if s.RequestsPerMinute < 0 {
		return fmt.Errorf("sim.requests_per_minute must not be negative, got %d", s.RequestsPerMinute)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("grid.username", "")
	v.SetDefault("grid.access_key", "")
	v.SetDefault("grid.base_url", grid.DefaultBaseURL)
	v.SetDefault("grid.requests_per_minute", 120)
	v.SetDefault("report.max_wait", reporter.DefaultMaxWait)
	v.SetDefault("report.retry_count", reporter.DefaultRetryCount)
	v.SetDefault("report.unknown_outcome", string(models.UnknownSkip))
	v.SetDefault("report.workers", 4)
	v.SetDefault("sim.addr", ":8080")
	v.SetDefault("sim.delay", 3*time.Second)
	v.SetDefault("sim.idle_timeout", 30*time.Minute)
	v.SetDefault("sim.requests_per_minute", 600)
	v.SetDefault("sim.accounts", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

func bindEnv(v *viper.Viper) {
	v.BindEnv("grid.username", "BROWSERSTACK_USERNAME")
	v.BindEnv("grid.access_key", "BROWSERSTACK_ACCESS_KEY")
	v.BindEnv("grid.base_url", "BROWSERSTACK_API_URL")
	v.BindEnv("grid.requests_per_minute", "GRID_REQUESTS_PER_MINUTE")
	v.BindEnv("report.max_wait", "REPORT_MAX_WAIT")
	v.BindEnv("report.retry_count", "REPORT_RETRY_COUNT")
	v.BindEnv("report.unknown_outcome", "REPORT_UNKNOWN_OUTCOME")
	v.BindEnv("report.workers", "REPORT_WORKERS")
	v.BindEnv("sim.addr", "GRIDSIM_ADDR")
	v.BindEnv("sim.delay", "GRIDSIM_DELAY")
	v.BindEnv("sim.idle_timeout", "GRIDSIM_IDLE_TIMEOUT")
	v.BindEnv("sim.requests_per_minute", "GRIDSIM_REQUESTS_PER_MINUTE")
	v.BindEnv("sim.accounts", "GRIDSIM_ACCOUNTS")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.format", "LOG_FORMAT")
}

// LoadDotEnv loads a .env file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error reading %s: %w", path, err)
	}
	return nil
}

// Load merges defaults, an optional config file and the environment.
// An explicit configPath must exist; otherwise gridstatus.yaml is searched for
// in the working directory, the XDG config home and /etc/gridstatus.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(appName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, appName))
		v.AddConfigPath(filepath.Join("/etc", appName))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
