package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Text provider names.
const (
	TextProviderCLIP   = "clip"
	TextProviderOpenAI = "openai"
)

// Image store drivers.
const (
	ImageDriverFS     = "fs"
	ImageDriverBadger = "badger"
)

// Config holds the posedex API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Logging  LoggingConfig  `yaml:"logging"`
	Auth     AuthConfig     `yaml:"auth"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Images   ImagesConfig   `yaml:"images"`
	Pose     PoseConfig     `yaml:"pose"`
	Semantic SemanticConfig `yaml:"semantic"`
	Cache    CacheConfig    `yaml:"cache"`
	Search   SearchConfig   `yaml:"search"`
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

// CorpusConfig locates the precomputed embedding corpus.
type CorpusConfig struct {
	Path string `yaml:"path"`
}

// ImagesConfig selects where result images are read from.
type ImagesConfig struct {
	Driver    string `yaml:"driver"` // fs (default), badger
	Root      string `yaml:"root"`
	BadgerDir string `yaml:"badger_dir"`
}

// PoseConfig holds pose inference service settings.
type PoseConfig struct {
	BaseURL         string `yaml:"base_url"`
	TimeoutSec      int    `yaml:"timeout_sec"`
	Dimensions      int    `yaml:"dimensions"` // 0 = accept whatever the service returns
	UseBBoxDetector *bool  `yaml:"use_bbox_detector"`
}

// OpenAIConfig holds settings of an OpenAI-compatible text embedding provider.
// Query vectors are compared with the corpus clip_embedding vectors, so the
// server at BaseURL must host the same CLIP model that built the corpus. There
// is no default model.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// SemanticConfig holds semantic embedding settings.
type SemanticConfig struct {
	BaseURL      string       `yaml:"base_url"`
	TimeoutSec   int          `yaml:"timeout_sec"`
	Dimensions   int          `yaml:"dimensions"`
	TextProvider string       `yaml:"text_provider"` // clip (default), openai
	TextPrompt   string       `yaml:"text_prompt"`
	OpenAI       OpenAIConfig `yaml:"openai"`
}

// CacheConfig holds the Redis text embedding cache settings.
type CacheConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig tunes the query pipeline.
type SearchConfig struct {
	ConcurrentTextEmbedding bool `yaml:"concurrent_text_embedding"`
	ParallelThreshold       int  `yaml:"parallel_threshold"`
	Workers                 int  `yaml:"workers"` // 0 or 1 = sequential scoring
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads, expands and validates the configuration file at path.
func LoadFile(configPath string) (Config, error) {
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

// LoadDotEnv loads variables from a .env file into the process environment.
// A missing file is not an error; variables already set are kept.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
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
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Corpus.Path == "" {
		c.Corpus.Path = "embeddings.json"
	}
	if c.Images.Driver == "" {
		c.Images.Driver = ImageDriverFS
	}
	if c.Images.Root == "" {
		c.Images.Root = "."
	}
	if c.Pose.TimeoutSec <= 0 {
		c.Pose.TimeoutSec = 60
	}
	if c.Pose.UseBBoxDetector == nil {
		on := true
		c.Pose.UseBBoxDetector = &on
	}
	if c.Semantic.TimeoutSec <= 0 {
		c.Semantic.TimeoutSec = 30
	}
	if c.Semantic.TextProvider == "" {
		c.Semantic.TextProvider = TextProviderCLIP
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 7 * 24 * 3600
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Search.ParallelThreshold <= 0 {
		c.Search.ParallelThreshold = 20000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Images.Driver {
	case ImageDriverFS:
	case ImageDriverBadger:
		if c.Images.BadgerDir == "" {
			return fmt.Errorf("images.badger_dir is required for the badger driver")
		}
	default:
		return fmt.Errorf("images.driver must be %q or %q, got %q", ImageDriverFS, ImageDriverBadger, c.Images.Driver)
	}
	if c.Pose.BaseURL == "" {
		return fmt.Errorf("pose.base_url is required")
	}
	if c.Semantic.BaseURL == "" {
		return fmt.Errorf("semantic.base_url is required")
	}
	if c.Pose.Dimensions < 0 || c.Semantic.Dimensions < 0 {
		return fmt.Errorf("dimensions must not be negative")
	}
	switch c.Semantic.TextProvider {
	case TextProviderCLIP:
	case TextProviderOpenAI:
		o := c.Semantic.OpenAI
		if o.APIKey == "" {
			return fmt.Errorf("semantic.openai.api_key is required for the openai text provider")
		}
		if o.BaseURL == "" || o.Model == "" {
			return fmt.Errorf("semantic.openai.base_url and semantic.openai.model are required: " +
				"the openai text provider must serve the CLIP model behind the corpus clip_embedding vectors")
		}
	default:
		return fmt.Errorf("semantic.text_provider must be %q or %q, got %q",
			TextProviderCLIP, TextProviderOpenAI, c.Semantic.TextProvider)
	}
	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required when the cache is enabled")
	}
	if c.Search.Workers < 0 {
		return fmt.Errorf("search.workers must not be negative, got %d", c.Search.Workers)
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
