// Package config handles loading and validating homepulse configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} placeholders in config values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ErrConfigFileNotFound is returned by Load when the specified config file does not exist.
var ErrConfigFileNotFound = errors.New("config file not found")

// Config is the top-level homepulse configuration.
type Config struct {
	Listen        string               `yaml:"listen"`
	DBPath        string               `yaml:"db_path"`
	LogLevel      string               `yaml:"log_level"`
	LogFormat     string               `yaml:"log_format"`
	Analysis      AnalysisConfig       `yaml:"analysis"`
	SMART         *SMARTConfig         `yaml:"smart,omitempty"`
	Notifications []NotificationConfig `yaml:"notifications"`
	Pricing       PricingConfig        `yaml:"pricing"`
}

// AnalysisConfig tunes the periodic monitor sweep.
type AnalysisConfig struct {
	Interval      Duration `yaml:"interval"`
	LookbackHours int      `yaml:"lookback_hours"`
	TrendDays     int      `yaml:"trend_days"`
	Cooldown      Duration `yaml:"cooldown"`
}

// SMARTConfig describes the SSH-based SMART collector. Optional: samples
// can also arrive through the ingestion API.
type SMARTConfig struct {
	Host         string   `yaml:"host"`
	User         string   `yaml:"user"`
	KeyPath      string   `yaml:"key_path"`
	Devices      []string `yaml:"devices"`
	PollInterval Duration `yaml:"poll_interval"`
}

// NotificationConfig describes a notification target.
type NotificationConfig struct {
	Type    string            `yaml:"type"` // "ntfy" or "webhook"
	URL     string            `yaml:"url"`
	Topic   string            `yaml:"topic,omitempty"`   // ntfy only
	Method  string            `yaml:"method,omitempty"`  // webhook only
	Headers map[string]string `yaml:"headers,omitempty"` // webhook only
}

// PricingConfig feeds the cost optimizer's power model.
type PricingConfig struct {
	PricePerKWh       float64 `yaml:"price_per_kwh"`
	BaseWatts         float64 `yaml:"base_watts"`
	WattsPerTB        float64 `yaml:"watts_per_tb"`
	WattsPerContainer float64 `yaml:"watts_per_container"`
}

// Duration wraps time.Duration with YAML string parsing support.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Load reads configuration from a YAML file. An empty path runs on
// defaults plus environment overrides. If a path is given and the file
// does not exist, ErrConfigFileNotFound is returned.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(expandEnvVars(data), cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.LogFormat] {
		return fmt.Errorf("log_format must be one of: text, json")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.Analysis.Interval.Duration <= 0 {
		return fmt.Errorf("analysis.interval must be > 0")
	}
	if c.Analysis.LookbackHours < 1 {
		return fmt.Errorf("analysis.lookback_hours must be >= 1")
	}
	if c.Analysis.TrendDays < 1 {
		return fmt.Errorf("analysis.trend_days must be >= 1")
	}
	if c.Analysis.Cooldown.Duration <= 0 {
		return fmt.Errorf("analysis.cooldown must be > 0")
	}

	if s := c.SMART; s != nil {
		if s.Host == "" {
			return fmt.Errorf("smart: host is required")
		}
		if s.User == "" {
			return fmt.Errorf("smart: user is required")
		}
		if s.KeyPath == "" {
			return fmt.Errorf("smart: key_path is required")
		}
		if len(s.Devices) == 0 {
			return fmt.Errorf("smart: at least one device is required")
		}
	}

	for i, n := range c.Notifications {
		switch n.Type {
		case "ntfy":
			if n.URL == "" {
				return fmt.Errorf("notifications[%d]: url is required for ntfy", i)
			}
			if n.Topic == "" {
				return fmt.Errorf("notifications[%d]: topic is required for ntfy", i)
			}
		case "webhook":
			if n.URL == "" {
				return fmt.Errorf("notifications[%d]: url is required for webhook", i)
			}
		default:
			return fmt.Errorf("notifications[%d]: unknown type %q (expected ntfy or webhook)", i, n.Type)
		}
	}

	if c.Pricing.PricePerKWh <= 0 {
		return fmt.Errorf("pricing.price_per_kwh must be > 0")
	}
	if c.Pricing.BaseWatts <= 0 {
		return fmt.Errorf("pricing.base_watts must be > 0")
	}

	return nil
}

func defaults() *Config {
	return &Config{
		Listen:    ":3900",
		DBPath:    "/data/homepulse.db",
		LogLevel:  "info",
		LogFormat: "text",
		Analysis: AnalysisConfig{
			Interval:      Duration{15 * time.Minute},
			LookbackHours: 24,
			TrendDays:     30,
			Cooldown:      Duration{6 * time.Hour},
		},
		Pricing: PricingConfig{
			PricePerKWh:       0.15,
			BaseWatts:         45,
			WattsPerTB:        8,
			WattsPerContainer: 2,
		},
	}
}

// expandEnvVars replaces ${VAR_NAME} placeholders in raw YAML with the
// corresponding environment variable values. Unset variables are replaced
// with an empty string, which will then fail validation with a clear error.
func expandEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		key := string(match[2 : len(match)-1]) // strip ${ and }
		return []byte(os.Getenv(key))
	})
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOMEPULSE_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("HOMEPULSE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("HOMEPULSE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("HOMEPULSE_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("HOMEPULSE_LOOKBACK_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.LookbackHours = n
		}
	}
	if v := os.Getenv("HOMEPULSE_PRICE_PER_KWH"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Pricing.PricePerKWh = f
		}
	}

	// Single ntfy target from env vars (only if no YAML notifications configured).
	if len(cfg.Notifications) == 0 {
		if ntfyURL := os.Getenv("HOMEPULSE_NTFY_URL"); ntfyURL != "" {
			topic := os.Getenv("HOMEPULSE_NTFY_TOPIC")
			if topic == "" {
				topic = "homepulse-alerts"
			}
			cfg.Notifications = append(cfg.Notifications, NotificationConfig{
				Type:  "ntfy",
				URL:   ntfyURL,
				Topic: topic,
			})
		}
	}
}
