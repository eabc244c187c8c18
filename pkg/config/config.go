package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const Version = "0.3.0"

// Config holds application configuration
type Config struct {
	// Server configuration
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Canonical ontology file (N-Triples)
	DataFile string `yaml:"data_file"`

	// Text generation oracle
	OracleProvider string        `yaml:"oracle_provider"` // "gemini" or "openai"
	GeminiAPIKey   string        `yaml:"gemini_api_key"`
	GeminiModel    string        `yaml:"gemini_model"`
	OpenAIAPIKey   string        `yaml:"openai_api_key"`
	OpenAIBaseURL  string        `yaml:"openai_base_url"`
	OpenAIModel    string        `yaml:"openai_model"`
	OracleTimeout  time.Duration `yaml:"oracle_timeout"`

	// Remote SPARQL endpoint
	UseFuseki      bool   `yaml:"use_fuseki"`
	FusekiEndpoint string `yaml:"fuseki_endpoint"`
	FusekiPingURL  string `yaml:"fuseki_ping_url"`

	// Catalog cache configuration
	CacheType string `yaml:"cache_type"` // "memory", "redis" or "none"
	CacheTTL  int    `yaml:"cache_ttl"`  // seconds
	CacheSize int    `yaml:"cache_size"`
	RedisHost string `yaml:"redis_host"`
	RedisPort int    `yaml:"redis_port"`

	// Mutation journal
	JournalType string `yaml:"journal_type"` // "memory", "jsonfile" or "sqlite"
	JournalPath string `yaml:"journal_path"`

	// Debug
	Debug bool `yaml:"debug"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Host:           "0.0.0.0",
		Port:           5000,
		DataFile:       "data/ontology.nt",
		OracleProvider: "gemini",
		GeminiModel:    "gemini-2.5-flash",
		OpenAIModel:    "gpt-4o-mini",
		OracleTimeout:  30 * time.Second,
		UseFuseki:      false,
		FusekiEndpoint: "http://localhost:3030/tourisme/sparql",
		FusekiPingURL:  "http://localhost:3030",
		CacheType:      "memory",
		CacheTTL:       300,
		CacheSize:      128,
		RedisHost:      "localhost",
		RedisPort:      6379,
		JournalType:    "jsonfile",
		JournalPath:    "data/journal.jsonl",
		Debug:          false,
	}
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current values.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv(cfg *Config) {
	if val := os.Getenv("HOST"); val != "" {
		cfg.Host = val
	}
	if val := os.Getenv("PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Port = port
		}
	}
	if val := os.Getenv("DATA_FILE"); val != "" {
		cfg.DataFile = val
	}
	if val := os.Getenv("ORACLE_PROVIDER"); val != "" {
		cfg.OracleProvider = strings.ToLower(val)
	}
	if val := os.Getenv("GEMINI_API_KEY"); val != "" {
		cfg.GeminiAPIKey = val
	}
	if val := os.Getenv("GEMINI_MODEL"); val != "" {
		cfg.GeminiModel = val
	}
	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		cfg.OpenAIAPIKey = val
	}
	if val := os.Getenv("OPENAI_BASE_URL"); val != "" {
		cfg.OpenAIBaseURL = val
	}
	if val := os.Getenv("OPENAI_MODEL"); val != "" {
		cfg.OpenAIModel = val
	}
	if val := os.Getenv("ORACLE_TIMEOUT"); val != "" {
		if d, err := parseDuration(val); err == nil {
			cfg.OracleTimeout = d
		}
	}
	if val := os.Getenv("USE_FUSEKI"); val != "" {
		cfg.UseFuseki = parseBool(val)
	}
	if val := os.Getenv("FUSEKI_ENDPOINT"); val != "" {
		cfg.FusekiEndpoint = val
	}
	if val := os.Getenv("FUSEKI_PING_URL"); val != "" {
		cfg.FusekiPingURL = val
	}
	if val := os.Getenv("CACHE_TYPE"); val != "" {
		cfg.CacheType = val
	}
	if val := os.Getenv("CACHE_TTL"); val != "" {
		if ttl, err := strconv.Atoi(val); err == nil {
			cfg.CacheTTL = ttl
		}
	}
	if val := os.Getenv("CACHE_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			cfg.CacheSize = size
		}
	}
	if val := os.Getenv("REDIS_HOST"); val != "" {
		cfg.RedisHost = val
	}
	if val := os.Getenv("REDIS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.RedisPort = port
		}
	}
	if val := os.Getenv("JOURNAL_TYPE"); val != "" {
		cfg.JournalType = val
	}
	if val := os.Getenv("JOURNAL_PATH"); val != "" {
		cfg.JournalPath = val
	}
	if val := os.Getenv("DEBUG"); val != "" {
		cfg.Debug = parseBool(val)
	}
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DataFile == "" {
		return fmt.Errorf("data file must be set")
	}
	switch c.CacheType {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("unknown cache type %q", c.CacheType)
	}
	switch c.OracleProvider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unknown oracle provider %q", c.OracleProvider)
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 128
	}
	if c.OracleTimeout <= 0 {
		c.OracleTimeout = 30 * time.Second
	}
	return nil
}

// OracleEnabled reports whether the selected provider is configured. An
// OpenAI-compatible server reached through a base URL needs no key.
func (c *Config) OracleEnabled() bool {
	if c.OracleProvider == "openai" {
		return c.OpenAIAPIKey != "" || c.OpenAIBaseURL != ""
	}
	return c.GeminiAPIKey != ""
}

func parseBool(val string) bool {
	val = strings.ToLower(val)
	return val == "true" || val == "1" || val == "yes"
}

// parseDuration accepts Go durations ("45s") and bare seconds ("45").
func parseDuration(val string) (time.Duration, error) {
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(val)
}
