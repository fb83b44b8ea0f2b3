package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rustyeddy/papertrader/market"
	"gopkg.in/yaml.v3"
)

// Config represents the complete papertrader configuration
type Config struct {
	Account    AccountConfig    `json:"account" yaml:"account"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Strategy   StrategyConfig   `json:"strategy" yaml:"strategy"`
	Feed       FeedConfig       `json:"feed" yaml:"feed"`
	Advisor    AdvisorConfig    `json:"advisor" yaml:"advisor"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Collector  CollectorConfig  `json:"collector" yaml:"collector"`
	Server     ServerConfig     `json:"server" yaml:"server"`
	Log        LogConfig        `json:"log" yaml:"log"`
}

// AccountConfig contains the paper account's starting state
type AccountConfig struct {
	Currency    string  `json:"currency" yaml:"currency"`
	InitialCash float64 `json:"initial_cash" yaml:"initial_cash"`
	FeeRate     float64 `json:"fee_rate" yaml:"fee_rate"`
}

// SimulationConfig contains scheduler parameters
type SimulationConfig struct {
	Symbol      string `json:"symbol" yaml:"symbol"`
	Interval    string `json:"interval" yaml:"interval"`         // e.g. "1m", "30s"
	TickTimeout string `json:"tick_timeout" yaml:"tick_timeout"` // bounds feed and advisor calls
}

type StrategyConfig struct {
	Name        string  `json:"name" yaml:"name"` // "advisory" or "noop"
	BuyFraction float64 `json:"buy_fraction" yaml:"buy_fraction"`
}

type FeedConfig struct {
	Type    string `json:"type" yaml:"type"` // "binance" or "random"
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Seed    int64  `json:"seed,omitempty" yaml:"seed,omitempty"`
}

type AdvisorConfig struct {
	Type      string   `json:"type" yaml:"type"` // "deepseek", "gemini" or "scripted"
	APIKey    string   `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL   string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model     string   `json:"model,omitempty" yaml:"model,omitempty"`
	Responses []string `json:"responses,omitempty" yaml:"responses,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type   string `json:"type" yaml:"type"` // "sqlite", "postgres", "csv" or "none"
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	DSN    string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// CollectorConfig controls periodic archiving of all coins
type CollectorConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Interval string `json:"interval" yaml:"interval"`
	Parallel int    `json:"parallel,omitempty" yaml:"parallel,omitempty"`
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // text or json
}

// Environment variables consulted by ApplyEnv.
const (
	EnvDeepSeekKey = "DEEPSEEK_API_KEY"
	EnvGeminiKey   = "GEMINI_API_KEY"
	EnvPostgresDSN = "PAPERTRADER_POSTGRES_DSN"
)

// LoadFromFile loads configuration from a file. Fields missing from the
// file keep their Default value.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// ApplyEnv fills secrets that are not set in the file from the
// environment.
func (c *Config) ApplyEnv() {
	if c.Advisor.APIKey == "" {
		switch c.Advisor.Type {
		case "deepseek":
			c.Advisor.APIKey = os.Getenv(EnvDeepSeekKey)
		case "gemini":
			c.Advisor.APIKey = os.Getenv(EnvGeminiKey)
		}
	}
	if c.Journal.DSN == "" {
		c.Journal.DSN = os.Getenv(EnvPostgresDSN)
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.InitialCash <= 0 {
		return fmt.Errorf("account.initial_cash must be positive")
	}
	if c.Account.FeeRate < 0 || c.Account.FeeRate >= 1 {
		return fmt.Errorf("account.fee_rate must be in [0, 1)")
	}

	if _, err := market.PresetCoins.Lookup(c.Simulation.Symbol); err != nil {
		return fmt.Errorf("simulation.symbol: %w", err)
	}
	if _, err := positive("simulation.interval", c.Simulation.Interval); err != nil {
		return err
	}
	if _, err := positive("simulation.tick_timeout", c.Simulation.TickTimeout); err != nil {
		return err
	}

	switch c.Strategy.Name {
	case "advisory", "noop":
	default:
		return fmt.Errorf("strategy.name must be 'advisory' or 'noop'")
	}
	if c.Strategy.BuyFraction <= 0 || c.Strategy.BuyFraction > 1 {
		return fmt.Errorf("strategy.buy_fraction must be in (0, 1]")
	}

	switch c.Feed.Type {
	case "binance", "random":
	default:
		return fmt.Errorf("feed.type must be 'binance' or 'random'")
	}
	if c.Feed.Timeout != "" {
		if _, err := positive("feed.timeout", c.Feed.Timeout); err != nil {
			return err
		}
	}

	switch c.Advisor.Type {
	case "deepseek", "gemini", "scripted":
	default:
		return fmt.Errorf("advisor.type must be 'deepseek', 'gemini' or 'scripted'")
	}

	switch c.Journal.Type {
	case "none":
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "postgres":
		if c.Journal.DSN == "" {
			return fmt.Errorf("journal dsn (or %s) required for Postgres type", EnvPostgresDSN)
		}
	case "csv":
		if c.Journal.Dir == "" {
			return fmt.Errorf("journal dir required for CSV type")
		}
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'postgres', 'csv' or 'none'")
	}

	if c.Collector.Enabled {
		if _, err := positive("collector.interval", c.Collector.Interval); err != nil {
			return err
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}
	return nil
}

func positive(name, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return d, nil
}

// duration parses s, returning def when s is empty or invalid. Callers
// run Validate first.
func duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func (s SimulationConfig) IntervalDuration() time.Duration {
	return duration(s.Interval, time.Minute)
}

func (s SimulationConfig) TickTimeoutDuration() time.Duration {
	return duration(s.TickTimeout, 30*time.Second)
}

func (f FeedConfig) TimeoutDuration() time.Duration {
	return duration(f.Timeout, 10*time.Second)
}

func (c CollectorConfig) IntervalDuration() time.Duration {
	return duration(c.Interval, 30*time.Minute)
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Currency:    "USD",
			InitialCash: 10000,
			FeeRate:     0.001,
		},
		Simulation: SimulationConfig{
			Symbol:      "bitcoin",
			Interval:    "1m",
			TickTimeout: "30s",
		},
		Strategy: StrategyConfig{
			Name:        "advisory",
			BuyFraction: 0.1,
		},
		Feed: FeedConfig{
			Type:    "binance",
			Timeout: "10s",
		},
		Advisor: AdvisorConfig{
			Type: "deepseek",
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./papertrader.db",
		},
		Collector: CollectorConfig{
			Enabled:  true,
			Interval: "30m",
		},
		Server: ServerConfig{
			Addr: ":3000",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
