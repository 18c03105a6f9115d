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

// Vision providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds the refurnish API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
	Vision   VisionConfig   `yaml:"vision"`
	Cache    CacheConfig    `yaml:"cache"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// VisionConfig holds vision provider settings.
type VisionConfig struct {
	Provider   string            `yaml:"provider"` // openai, gemini (default: openai)
	APIKey     string            `yaml:"api_key"`
	BaseURL    string            `yaml:"base_url"`
	Model      string            `yaml:"model"`
	Models     map[string]string `yaml:"models"` // task -> model
	TimeoutSec int               `yaml:"timeout_sec"`
	Retry      RetryConfig       `yaml:"retry"`
	Budget     BudgetConfig      `yaml:"budget"`
}

// RetryConfig bounds retries of transient provider failures.
type RetryConfig struct {
	MaxRetries        int `yaml:"max_retries"`
	InitialIntervalMs int `yaml:"initial_interval_ms"`
	MaxIntervalMs     int `yaml:"max_interval_ms"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// CacheConfig holds the Redis connection used for the answer cache and budget counters.
type CacheConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// CatalogConfig overrides the embedded static data.
type CatalogConfig struct {
	ProductsPath   string `yaml:"products_path"`
	ReferencesPath string `yaml:"references_path"`
}

// PipelineConfig tunes pipeline runs.
type PipelineConfig struct {
	Language           string  `yaml:"language"` // en, zh (default: en)
	MaxRecommendations int     `yaml:"max_recommendations"`
	SearchTolerance    float64 `yaml:"search_tolerance"`
	ParallelAnalysis   *bool   `yaml:"parallel_analysis"`
	ParallelMatching   *bool   `yaml:"parallel_matching"`
	MatchingWorkers    int     `yaml:"matching_workers"`
	UploadDir          string  `yaml:"upload_dir"`
	MaxPhotos          int     `yaml:"max_photos"`
	MaxUploadMB        int     `yaml:"max_upload_mb"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML with ${VAR} expansion, applies defaults and validates.
func Parse(data []byte) (Config, error) {
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
		c.HTTP.ReadTimeoutSec = 30
	}
	// A placement run makes several sequential vision calls.
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 600
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Vision.Provider == "" {
		c.Vision.Provider = ProviderOpenAI
	}
	if c.Vision.TimeoutSec <= 0 {
		c.Vision.TimeoutSec = 120
	}
	if c.Vision.Retry.MaxRetries < 0 {
		c.Vision.Retry.MaxRetries = 0
	}
	if c.Vision.Retry.InitialIntervalMs <= 0 {
		c.Vision.Retry.InitialIntervalMs = 500
	}
	if c.Vision.Retry.MaxIntervalMs <= 0 {
		c.Vision.Retry.MaxIntervalMs = 5000
	}
	if c.Vision.Budget.Action == "" {
		c.Vision.Budget.Action = "warn"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 86400
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Pipeline.Language == "" {
		c.Pipeline.Language = "en"
	}
	if c.Pipeline.MaxRecommendations <= 0 {
		c.Pipeline.MaxRecommendations = 5
	}
	if c.Pipeline.SearchTolerance <= 0 {
		c.Pipeline.SearchTolerance = 0.2
	}
	if c.Pipeline.ParallelAnalysis == nil {
		c.Pipeline.ParallelAnalysis = boolPtr(true)
	}
	if c.Pipeline.ParallelMatching == nil {
		c.Pipeline.ParallelMatching = boolPtr(true)
	}
	if c.Pipeline.MatchingWorkers <= 0 {
		c.Pipeline.MatchingWorkers = 4
	}
	if c.Pipeline.MaxPhotos <= 0 {
		c.Pipeline.MaxPhotos = 3
	}
	if c.Pipeline.MaxUploadMB <= 0 {
		c.Pipeline.MaxUploadMB = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Vision.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("vision.provider must be %q or %q, got %q", ProviderOpenAI, ProviderGemini, c.Vision.Provider)
	}
	if c.Vision.APIKey == "" {
		return fmt.Errorf("vision.api_key is required")
	}
	for task := range c.Vision.Models {
		switch task {
		case "calibration", "profiling", "concepts", "render":
		default:
			return fmt.Errorf("vision.models: unknown task %q", task)
		}
	}
	switch c.Vision.Budget.Action {
	case "warn", "reject":
		// ok
	default:
		return fmt.Errorf("vision.budget.action must be \"warn\" or \"reject\", got %q", c.Vision.Budget.Action)
	}
	if c.Vision.Budget.DailyTokenLimit < 0 || c.Vision.Budget.MonthlyTokenLimit < 0 {
		return fmt.Errorf("vision.budget limits must not be negative")
	}
	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required when cache is enabled")
	}
	switch c.Pipeline.Language {
	case "en", "zh":
	default:
		return fmt.Errorf("pipeline.language must be \"en\" or \"zh\", got %q", c.Pipeline.Language)
	}
	if c.Pipeline.SearchTolerance > 1 {
		return fmt.Errorf("pipeline.search_tolerance must be in (0,1], got %v", c.Pipeline.SearchTolerance)
	}
	if c.Pipeline.MaxPhotos < 2 {
		return fmt.Errorf("pipeline.max_photos must be at least 2, got %d", c.Pipeline.MaxPhotos)
	}
	return nil
}

func boolPtr(v bool) *bool { return &v }

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
