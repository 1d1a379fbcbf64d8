package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the atticus API configuration.
type Config struct {
	Debug          bool                 `yaml:"debug"`
	HTTP           HTTPConfig           `yaml:"http"`
	Database       DatabaseConfig       `yaml:"database"`
	Embedding      EmbeddingConfig      `yaml:"embedding"`
	Auth           AuthConfig           `yaml:"auth"`
	CORS           CORSConfig           `yaml:"cors"`
	Index          IndexConfig          `yaml:"index"`
	Search         SearchConfig         `yaml:"search"`
	Representation RepresentationConfig `yaml:"representation"`
	Logging        LoggingConfig        `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// CORSConfig holds cross-origin settings for the browser frontend.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds HNSW index settings.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// SearchConfig holds retrieval funnel and pagination settings.
type SearchConfig struct {
	DefaultLimit     int     `yaml:"default_limit"`
	MaxLimit         int     `yaml:"max_limit"`
	PrefetchLimit    int     `yaml:"prefetch_limit"`
	RerankLimit      int     `yaml:"rerank_limit"`
	ScoreThreshold   float64 `yaml:"score_threshold"`
	EmbedTimeoutSec  int     `yaml:"embed_timeout_sec"`
	QueryTimeoutSec  int     `yaml:"query_timeout_sec"`
	CatalogScanLimit int     `yaml:"catalog_scan_limit"`
}

// RepresentationConfig holds text preparation limits.
type RepresentationConfig struct {
	MaxChars   int `yaml:"max_chars"`
	ChunkChars int `yaml:"chunk_chars"`
	MaxChunks  int `yaml:"max_chunks"`
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Providers   map[string]ProviderConfig   `yaml:"providers"`
	Vectorizers map[string]VectorizerConfig `yaml:"vectorizers"`
}

// ProviderConfig holds embedding provider settings.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// VectorizerConfig holds vectorizer settings.
type VectorizerConfig struct {
	Provider            string `yaml:"provider"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// Vectorizer roles wired by the composition root. Coarse is mandatory;
// fine and chunk are optional refinement stages.
const (
	VectorizerCoarse = "coarse"
	VectorizerFine   = "fine"
	VectorizerChunk  = "chunk"
)

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 32
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 400
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 20
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 100
	}
	if c.Search.PrefetchLimit <= 0 {
		c.Search.PrefetchLimit = 1000
	}
	if c.Search.RerankLimit <= 0 {
		c.Search.RerankLimit = 100
	}
	if c.Search.ScoreThreshold <= 0 {
		c.Search.ScoreThreshold = 0.3
	}
	if c.Search.EmbedTimeoutSec <= 0 {
		c.Search.EmbedTimeoutSec = 10
	}
	if c.Search.QueryTimeoutSec <= 0 {
		c.Search.QueryTimeoutSec = 10
	}
	if c.Search.CatalogScanLimit <= 0 {
		c.Search.CatalogScanLimit = 1000
	}
	if c.Representation.MaxChars <= 0 {
		c.Representation.MaxChars = 2000
	}
	if c.Representation.ChunkChars <= 0 {
		c.Representation.ChunkChars = 200
	}
	if c.Representation.MaxChunks <= 0 {
		c.Representation.MaxChunks = 8
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Search.ScoreThreshold < 0 || c.Search.ScoreThreshold > 1 {
		return fmt.Errorf("search.score_threshold must be within [0, 1], got %g", c.Search.ScoreThreshold)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("search.max_limit must not be below search.default_limit")
	}
	for name, v := range c.Embedding.Vectorizers {
		if v.Model == "" {
			return fmt.Errorf("embedding.vectorizers.%s.model is required", name)
		}
		if _, ok := c.Embedding.Providers[v.Provider]; !ok {
			return fmt.Errorf("embedding.vectorizers.%s references unknown provider %q", name, v.Provider)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
