// Package config handles configuration loading for krfin.
// It supports YAML config files, a .env file and environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/seenimoa/krfin/pkg/models"
)

// Config represents the complete application configuration.
type Config struct {
	DART       DARTConfig       `mapstructure:"dart"       yaml:"dart"`
	FMP        FMPConfig        `mapstructure:"fmp"        yaml:"fmp"`
	KRX        KRXConfig        `mapstructure:"krx"        yaml:"krx"`
	SEC        SECConfig        `mapstructure:"sec"        yaml:"sec"`
	YFinance   YFinanceConfig   `mapstructure:"yfinance"   yaml:"yfinance"`
	Resolver   ResolverConfig   `mapstructure:"resolver"   yaml:"resolver"`
	Directory  DirectoryConfig  `mapstructure:"directory"  yaml:"directory"`
	Session    SessionConfig    `mapstructure:"session"    yaml:"session"`
	Statements StatementsConfig `mapstructure:"statements" yaml:"statements"`
	Export     ExportConfig     `mapstructure:"export"     yaml:"export"`
	API        APIConfig        `mapstructure:"api"        yaml:"api"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
}

// DARTConfig holds OpenDART settings. Several keys are rotated in order.
type DARTConfig struct {
	APIKeys    []string `mapstructure:"api_keys"    yaml:"api_keys"`
	BaseURL    string   `mapstructure:"base_url"    yaml:"base_url"`
	RSSURL     string   `mapstructure:"rss_url"     yaml:"rss_url"`
	TimeoutSec int      `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// FMPConfig holds Financial Modeling Prep settings.
type FMPConfig struct {
	APIKeys    []string `mapstructure:"api_keys"    yaml:"api_keys"`
	BaseURL    string   `mapstructure:"base_url"    yaml:"base_url"`
	TimeoutSec int      `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// KRXConfig holds KRX market-data and KIND listing endpoints.
type KRXConfig struct {
	DataURL    string `mapstructure:"data_url"    yaml:"data_url"`
	KindURL    string `mapstructure:"kind_url"    yaml:"kind_url"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// SECConfig holds SEC EDGAR settings. SEC requires a contact User-Agent.
type SECConfig struct {
	BaseURL   string `mapstructure:"base_url"   yaml:"base_url"`
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
}

// YFinanceConfig toggles the Yahoo Finance price-history fallback.
type YFinanceConfig struct {
	Enabled bool   `mapstructure:"enabled"  yaml:"enabled"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// ResolverConfig tunes entity matching.
type ResolverConfig struct {
	CodeWidth        int  `mapstructure:"code_width"         yaml:"code_width"`
	Bidirectional    bool `mapstructure:"bidirectional"      yaml:"bidirectional"`
	CodeMissFallback bool `mapstructure:"code_miss_fallback" yaml:"code_miss_fallback"`
	PreferExactName  bool `mapstructure:"prefer_exact_name"  yaml:"prefer_exact_name"`
}

// DirectoryConfig lists the markets loaded into a session directory.
type DirectoryConfig struct {
	Markets []string `mapstructure:"markets" yaml:"markets"`
}

// SessionConfig holds session lifecycle settings.
type SessionConfig struct {
	IdleTTLMin int `mapstructure:"idle_ttl_min" yaml:"idle_ttl_min"`
}

// StatementsConfig holds the statement-division fallback order.
type StatementsConfig struct {
	Variants []string `mapstructure:"variants" yaml:"variants"`
}

// ExportConfig holds export settings.
type ExportConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"  yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.krfin/config.yaml (home directory)
//  3. /etc/krfin/config.yaml (system)
//
// A .env file in the working directory is loaded first if present.
// Environment variables override config file values.
// Format: KRFIN_<SECTION>_<KEY>, e.g., KRFIN_DART_API_KEYS
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".krfin"))
	v.AddConfigPath("/etc/krfin")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	_ = godotenv.Load()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("KRFIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	cfg.DART.APIKeys = splitList(cfg.DART.APIKeys)
	cfg.FMP.APIKeys = splitList(cfg.FMP.APIKeys)
	cfg.Directory.Markets = splitList(cfg.Directory.Markets)
	cfg.Statements.Variants = splitList(cfg.Statements.Variants)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Upstreams
	v.SetDefault("dart.base_url", "https://opendart.fss.or.kr/api")
	v.SetDefault("dart.rss_url", "https://dart.fss.or.kr/api/todayRSS.xml")
	v.SetDefault("dart.timeout_sec", 20)
	v.SetDefault("fmp.base_url", "https://financialmodelingprep.com/api/v3")
	v.SetDefault("fmp.timeout_sec", 10)
	v.SetDefault("krx.data_url", "http://data.krx.co.kr/comm/bldAttendant/getJsonData.cmd")
	v.SetDefault("krx.kind_url", "https://kind.krx.co.kr/corpgeneral/corpList.do")
	v.SetDefault("krx.timeout_sec", 15)
	v.SetDefault("sec.base_url", "https://www.sec.gov")
	v.SetDefault("sec.user_agent", "krfin research contact@example.com")
	v.SetDefault("yfinance.enabled", true)
	v.SetDefault("yfinance.base_url", "https://query1.finance.yahoo.com")

	// Resolution
	v.SetDefault("resolver.code_width", 6)
	v.SetDefault("resolver.bidirectional", true)
	v.SetDefault("resolver.code_miss_fallback", false)
	v.SetDefault("resolver.prefer_exact_name", false)
	v.SetDefault("directory.markets", []string{"KRX"})

	// Sessions and retrieval
	v.SetDefault("session.idle_ttl_min", 30)
	v.SetDefault("statements.variants", []string{"CFS", "OFS"})
	v.SetDefault("export.dir", ".")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads credential lists from environment variables.
func overrideFromEnv(cfg *Config) {
	if keys := os.Getenv("KRFIN_DART_API_KEYS"); keys != "" {
		cfg.DART.APIKeys = []string{keys}
	}
	if keys := os.Getenv("KRFIN_FMP_API_KEYS"); keys != "" {
		cfg.FMP.APIKeys = []string{keys}
	}
}

// splitList flattens comma-separated items and drops blanks.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Validate rejects settings the rest of the program cannot work with.
func (c *Config) Validate() error {
	if c.Resolver.CodeWidth <= 0 {
		return fmt.Errorf("resolver.code_width must be positive, got %d", c.Resolver.CodeWidth)
	}
	if len(c.Statements.Variants) == 0 {
		return fmt.Errorf("statements.variants must list at least one division")
	}
	for _, v := range c.Statements.Variants {
		switch models.StatementDivision(strings.ToUpper(v)) {
		case models.DivisionConsolidated, models.DivisionSeparate:
		default:
			return fmt.Errorf("statements.variants: unknown division %q", v)
		}
	}
	if _, err := c.Markets(); err != nil {
		return err
	}
	return nil
}

// Markets returns the configured directory markets.
func (c *Config) Markets() ([]models.Market, error) {
	out := make([]models.Market, 0, len(c.Directory.Markets))
	for _, m := range c.Directory.Markets {
		market, err := models.ParseMarket(m)
		if err != nil {
			return nil, fmt.Errorf("directory.markets: %w", err)
		}
		out = append(out, market)
	}
	return out, nil
}

// Divisions returns the statement fallback order.
func (c *Config) Divisions() []models.StatementDivision {
	out := make([]models.StatementDivision, 0, len(c.Statements.Variants))
	for _, v := range c.Statements.Variants {
		out = append(out, models.StatementDivision(strings.ToUpper(v)))
	}
	return out
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
