// Package config provides configuration management for the trading application.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Trading       TradingConfig      `mapstructure:"trading"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Credentials   Credentials        `mapstructure:"-"` // Loaded separately
}

// TradingConfig holds the strategy parameters.
type TradingConfig struct {
	Mode          string  `mapstructure:"mode"`           // "live", "virtual"
	Underlying    string  `mapstructure:"underlying"`     // spot symbol, e.g. "NSE:NIFTY 50"
	ChainName     string  `mapstructure:"chain_name"`     // NFO instrument name, e.g. "NIFTY"
	LotSize       int     `mapstructure:"lot_size"`       // per-leg quantity
	StrikeStep    float64 `mapstructure:"strike_step"`    // strike interval, 50 for NIFTY
	ChainWindow   int     `mapstructure:"chain_window"`   // strikes fetched either side of ATM
	EvalTime      string  `mapstructure:"eval_time"`      // daily expiry re-evaluation, HH:MM:SS
	ExitTime      string  `mapstructure:"exit_time"`      // expiry-day exit, HH:MM:SS
	SelectionTime string  `mapstructure:"selection_time"` // strike selection, HH:MM:SS
	EntryTime     string  `mapstructure:"entry_time"`     // order placement, HH:MM:SS
	TargetPnl     float64 `mapstructure:"target_pnl"`
	StopLossPnl   float64 `mapstructure:"stop_loss_pnl"` // negative
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Level    string         `mapstructure:"level"` // all, trades_only, errors_only
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// Credentials holds API credentials.
type Credentials struct {
	Zerodha ZerodhaCredentials `mapstructure:"zerodha"`
}

// ZerodhaCredentials holds Zerodha API credentials.
type ZerodhaCredentials struct {
	APIKey      string `mapstructure:"api_key"`
	APISecret   string `mapstructure:"api_secret"`
	AccessToken string `mapstructure:"access_token"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/condor-trader"
	}
	return filepath.Join(home, ".config", "condor-trader")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setTradingDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if werr := createTemplateConfig(configDir); werr != nil {
				return werr
			}
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func setTradingDefaults(v *viper.Viper) {
	v.SetDefault("trading.mode", "virtual")
	v.SetDefault("trading.underlying", "NSE:NIFTY 50")
	v.SetDefault("trading.chain_name", "NIFTY")
	v.SetDefault("trading.lot_size", 50)
	v.SetDefault("trading.strike_step", 50.0)
	v.SetDefault("trading.chain_window", 12)
	v.SetDefault("trading.eval_time", "09:00:00")
	v.SetDefault("trading.exit_time", "12:45:00")
	v.SetDefault("trading.selection_time", "12:59:30")
	v.SetDefault("trading.entry_time", "13:00:00")
	v.SetDefault("trading.target_pnl", 3000.0)
	v.SetDefault("trading.stop_loss_pnl", -2000.0)
	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.level", "all")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ZERODHA_API_KEY"); v != "" {
		cfg.Credentials.Zerodha.APIKey = v
	}
	if v := os.Getenv("ZERODHA_API_SECRET"); v != "" {
		cfg.Credentials.Zerodha.APISecret = v
	}
	if v := os.Getenv("ZERODHA_ACCESS_TOKEN"); v != "" {
		cfg.Credentials.Zerodha.AccessToken = v
	}
	if v := os.Getenv("TRADING_MODE"); v != "" {
		cfg.Trading.Mode = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Trading.Mode != "" && c.Trading.Mode != "live" && c.Trading.Mode != "virtual" {
		return fmt.Errorf("invalid trading mode: %s (must be 'live' or 'virtual')", c.Trading.Mode)
	}
	if c.Trading.LotSize <= 0 {
		return fmt.Errorf("lot_size must be positive")
	}
	if c.Trading.StrikeStep <= 0 {
		return fmt.Errorf("strike_step must be positive")
	}
	if c.Trading.StopLossPnl > 0 {
		return fmt.Errorf("stop_loss_pnl must be zero or negative")
	}
	for _, t := range []struct{ name, value string }{
		{"eval_time", c.Trading.EvalTime},
		{"exit_time", c.Trading.ExitTime},
		{"selection_time", c.Trading.SelectionTime},
		{"entry_time", c.Trading.EntryTime},
	} {
		if _, _, _, err := ParseClock(t.value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", t.name, t.value, err)
		}
	}
	return nil
}

// IsVirtual returns true if virtual (paper) trading mode is enabled.
func (c *Config) IsVirtual() bool {
	return c.Trading.Mode != "live"
}

// ParseClock parses a wall-clock string in HH:MM or HH:MM:SS form.
func ParseClock(s string) (hour, min, sec int, err error) {
	n, err := fmt.Sscanf(s, "%d:%d:%d", &hour, &min, &sec)
	if err != nil || n < 3 {
		sec = 0
		n, err = fmt.Sscanf(s, "%d:%d", &hour, &min)
		if err != nil || n < 2 {
			return 0, 0, 0, fmt.Errorf("expected HH:MM or HH:MM:SS")
		}
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 || sec < 0 || sec > 59 {
		return 0, 0, 0, fmt.Errorf("clock value out of range")
	}
	return hour, min, sec, nil
}
