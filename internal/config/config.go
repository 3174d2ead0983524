// Package config loads application configuration from file and
// environment, and owns global logger setup.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Crawl     CrawlConfig     `yaml:"crawl" mapstructure:"crawl"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Score     ScoreConfig     `yaml:"score" mapstructure:"score"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings. An empty key disables
// LLM extraction and the pipeline runs rule-based only.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// SearchConfig configures candidate discovery.
type SearchConfig struct {
	Connector    string `yaml:"connector" mapstructure:"connector"`
	DefaultLimit int    `yaml:"default_limit" mapstructure:"default_limit"`
}

// CrawlConfig configures company website crawling.
type CrawlConfig struct {
	UserAgent         string   `yaml:"user_agent" mapstructure:"user_agent"`
	RequestIntervalMS int      `yaml:"request_interval_ms" mapstructure:"request_interval_ms"`
	MaxPages          int      `yaml:"max_pages" mapstructure:"max_pages"`
	PagePaths         []string `yaml:"page_paths" mapstructure:"page_paths"`
	CacheTTLHours     int      `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// EnrichConfig configures the enrichment phase.
type EnrichConfig struct {
	Workers                int     `yaml:"workers" mapstructure:"workers"`
	LLMConfidenceThreshold float64 `yaml:"llm_confidence_threshold" mapstructure:"llm_confidence_threshold"`
}

// ScoreConfig configures the scoring phase.
type ScoreConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// ServerConfig configures the API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MADISCO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "ma_discovery.db")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("search.connector", "websearch")
	v.SetDefault("search.default_limit", 50)
	v.SetDefault("crawl.user_agent", "MATargetBot/1.0 (+contact@example.com)")
	v.SetDefault("crawl.request_interval_ms", 1000)
	v.SetDefault("crawl.max_pages", 5)
	v.SetDefault("crawl.page_paths", []string{"", "about", "product", "pricing", "careers"})
	v.SetDefault("crawl.cache_ttl_hours", 24)
	v.SetDefault("enrich.workers", 4)
	v.SetDefault("enrich.llm_confidence_threshold", 0.6)
	v.SetDefault("score.workers", 8)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
