package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/askroute/askroute/pkg/models"
)

// Provider adapter types.
const (
	ProviderTypeOpenAI    = "openai"
	ProviderTypeAnthropic = "anthropic"
)

// Config holds all askroute configuration. It is loaded once at process
// start and never mutated at runtime.
type Config struct {
	Listen      string           `yaml:"listen"`
	CallTimeout time.Duration    `yaml:"call_timeout"`
	Providers   []ProviderConfig `yaml:"providers"`
	Chains      ChainsConfig     `yaml:"chains"`
	Keywords    KeywordsConfig   `yaml:"keywords"`
	RequestLog  RequestLogConfig `yaml:"request_log"`
	Client      ClientConfig     `yaml:"client"`
}

// ProviderConfig defines one upstream LLM provider.
type ProviderConfig struct {
	ID        string          `yaml:"id"`
	Type      string          `yaml:"type"`
	Model     string          `yaml:"model"`
	Endpoint  string          `yaml:"endpoint"`
	APIKey    string          `yaml:"api_key"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig is a fixed-window request cap for one provider.
type RateLimitConfig struct {
	WindowSeconds int `yaml:"window_seconds"`
	MaxRequests   int `yaml:"max_requests"`
}

// ChainsConfig maps each category to an ordered failover chain of provider ids.
type ChainsConfig struct {
	FinancialAnalysis []string `yaml:"financial_analysis"`
	BusinessNews      []string `yaml:"business_news"`
	Creative          []string `yaml:"creative"`
	GeneralKnowledge  []string `yaml:"general_knowledge"`
}

// For returns the chain configured for a category.
func (c ChainsConfig) For(cat models.Category) []string {
	switch cat {
	case models.CategoryFinancialAnalysis:
		return c.FinancialAnalysis
	case models.CategoryBusinessNews:
		return c.BusinessNews
	case models.CategoryCreative:
		return c.Creative
	default:
		return c.GeneralKnowledge
	}
}

// KeywordsConfig holds the classifier keyword lists. The lists are
// configuration, not derived data.
type KeywordsConfig struct {
	Financial []string `yaml:"financial"`
	Creative  []string `yaml:"creative"`
	News      []string `yaml:"news"`
}

// RequestLogConfig controls the server-side request log.
type RequestLogConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DBPath        string `yaml:"db_path"`
	RetentionDays int    `yaml:"retention_days"`
	MaxQueryBytes int    `yaml:"max_query_bytes"`
}

// ClientConfig controls the client-side cache, offline queue, and sync.
type ClientConfig struct {
	ServerURL      string        `yaml:"server_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CachePath      string        `yaml:"cache_path"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	CacheMaxBytes  int64         `yaml:"cache_max_bytes"`
	QueuePath      string        `yaml:"queue_path"`
}

// Default returns a Config with sensible defaults. Providers and chains have
// no defaults; they must come from the config file.
func Default() *Config {
	return &Config{
		Listen:      ":8080",
		CallTimeout: 10 * time.Second,
		Keywords: KeywordsConfig{
			Financial: []string{
				"stock", "invest", "portfolio", "dividend", "earnings",
				"valuation", "bond", "etf", "interest rate", "market cap",
			},
			Creative: []string{
				"write a poem", "write a story", "imagine", "compose",
				"lyrics", "fiction", "brainstorm", "slogan",
			},
			News: []string{
				"news", "headline", "latest", "today", "breaking",
				"current events", "this week",
			},
		},
		RequestLog: RequestLogConfig{
			Enabled:       true,
			DBPath:        "askroute.db",
			RetentionDays: 30,
			MaxQueryBytes: 2048,
		},
		Client: ClientConfig{
			ServerURL:      "http://localhost:8080",
			RequestTimeout: 15 * time.Second,
			CachePath:      "askroute-cache.db",
			CacheTTL:       7 * 24 * time.Hour,
			CacheMaxBytes:  50 << 20,
			QueuePath:      "askroute-queue.db",
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Validate checks provider types and chain references so that a bad config
// fails at startup, not mid-request.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("no providers configured")
	}

	known := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if p.ID == "" {
			return fmt.Errorf("provider with empty id")
		}
		if known[p.ID] {
			return fmt.Errorf("duplicate provider id %q", p.ID)
		}
		known[p.ID] = true

		switch p.Type {
		case ProviderTypeOpenAI, ProviderTypeAnthropic:
		default:
			return fmt.Errorf("provider %q: unknown type %q", p.ID, p.Type)
		}
		if p.RateLimit.WindowSeconds <= 0 || p.RateLimit.MaxRequests <= 0 {
			return fmt.Errorf("provider %q: rate_limit window_seconds and max_requests must be positive", p.ID)
		}
	}

	for _, cat := range models.Categories {
		chain := c.Chains.For(cat)
		if len(chain) == 0 {
			return fmt.Errorf("category %s: empty failover chain", cat)
		}
		for _, id := range chain {
			if !known[id] {
				return fmt.Errorf("category %s: chain references unknown provider %q", cat, id)
			}
		}
	}

	return nil
}
