package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/yapay-ai/llm-cost-advisor/pkg/rules"
)

// Config holds all LLM Cost Advisor configuration.
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
	Proxy    ProxyConfig    `mapstructure:"proxy"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
	Rules    RulesConfig    `mapstructure:"rules"`
	ABTest   ABTestConfig   `mapstructure:"abtest"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Listen       string        `mapstructure:"listen"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ProxyConfig defines ingestion proxy settings.
type ProxyConfig struct {
	Enabled        bool  `mapstructure:"enabled"`
	MaxBodySize    int64 `mapstructure:"max_body_size"`
	AddCostHeaders bool  `mapstructure:"add_cost_headers"`
}

// PricingConfig defines pricing data settings. An empty Dir uses the embedded tables only.
type PricingConfig struct {
	Dir string `mapstructure:"dir"`
}

// DefaultsConfig defines default values.
type DefaultsConfig struct {
	OrgID string `mapstructure:"org_id"`
}

// RulesConfig defines suggestion rule settings.
type RulesConfig struct {
	rules.Assumptions `mapstructure:",squash"`

	// Disabled lists rule ids switched off at startup.
	Disabled []string `mapstructure:"disabled"`
}

// ABTestConfig defines A/B estimator settings.
type ABTestConfig struct {
	DefaultSampleSize int     `mapstructure:"default_sample_size"`
	Seed              uint64  `mapstructure:"seed"`
	MaxQualityLossPct float64 `mapstructure:"max_quality_loss_pct"`
}

// AlertsConfig defines alerting integrations.
type AlertsConfig struct {
	MinMonthlyImpact      float64       `mapstructure:"min_monthly_impact"`
	CriticalMonthlyImpact float64       `mapstructure:"critical_monthly_impact"`
	Slack                 SlackConfig   `mapstructure:"slack"`
	Webhook               WebhookConfig `mapstructure:"webhook"`
}

// SlackConfig defines Slack webhook settings. Alerts are sent when WebhookURL is set.
type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines generic webhook settings. Alerts are sent when URL is set.
type WebhookConfig struct {
	URL    string `mapstructure:"url"`
	Secret string `mapstructure:"secret"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// MetricsConfig defines Prometheus settings.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from a .env file, the config file and environment variables.
func Load(cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".lca"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("LCA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	assumptions := rules.DefaultAssumptions()

	v.SetDefault("storage.path", filepath.Join(home, ".lca", "advisor.db"))
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("proxy.enabled", true)
	v.SetDefault("proxy.max_body_size", 10*1024*1024) // 10 MB
	v.SetDefault("proxy.add_cost_headers", true)
	v.SetDefault("pricing.dir", "")
	v.SetDefault("defaults.org_id", "default")
	v.SetDefault("rules.disabled", []string{})
	v.SetDefault("rules.model_switch_monthly_calls", assumptions.ModelSwitchMonthlyCalls)
	v.SetDefault("rules.context_trim_monthly_calls", assumptions.ContextTrimMonthlyCalls)
	v.SetDefault("rules.idle_hourly_rate", assumptions.IdleHourlyRate)
	v.SetDefault("rules.idle_hours", assumptions.IdleHours)
	v.SetDefault("abtest.default_sample_size", 10)
	v.SetDefault("abtest.seed", 0)
	v.SetDefault("abtest.max_quality_loss_pct", 5.0)
	v.SetDefault("alerts.min_monthly_impact", 50.0)
	v.SetDefault("alerts.critical_monthly_impact", 500.0)
	v.SetDefault("alerts.slack.webhook_url", "")
	v.SetDefault("alerts.slack.channel", "#llm-costs")
	v.SetDefault("alerts.webhook.url", "")
	v.SetDefault("alerts.webhook.secret", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("metrics.enabled", true)
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Storage.Path) == "":
		return errors.New("config: storage.path is required")
	case c.ABTest.DefaultSampleSize < 1:
		return fmt.Errorf("config: abtest.default_sample_size must be at least 1, got %d", c.ABTest.DefaultSampleSize)
	case c.ABTest.MaxQualityLossPct < 0:
		return fmt.Errorf("config: abtest.max_quality_loss_pct must not be negative, got %g", c.ABTest.MaxQualityLossPct)
	case c.Alerts.MinMonthlyImpact < 0 || c.Alerts.CriticalMonthlyImpact < 0:
		return errors.New("config: alert thresholds must not be negative")
	case c.Alerts.CriticalMonthlyImpact < c.Alerts.MinMonthlyImpact:
		return fmt.Errorf("config: alerts.critical_monthly_impact (%g) is below alerts.min_monthly_impact (%g)",
			c.Alerts.CriticalMonthlyImpact, c.Alerts.MinMonthlyImpact)
	case c.Rules.ModelSwitchMonthlyCalls < 0 || c.Rules.ContextTrimMonthlyCalls < 0 ||
		c.Rules.IdleHourlyRate < 0 || c.Rules.IdleHours < 0:
		return errors.New("config: rule assumptions must not be negative")
	}

	switch c.Logging.Format {
	case "json", "text", "pretty":
	default:
		return fmt.Errorf("config: unknown logging.format %q", c.Logging.Format)
	}
	return nil
}
