package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/vecquery/internal/domain/distance"
)

// Config holds the vecquery server configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Query     QueryConfig     `yaml:"query"`
	Index     IndexConfig     `yaml:"index"`
	Inference InferenceConfig `yaml:"inference"`
	Usage     UsageConfig     `yaml:"usage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. With no keys at all every
// request gets full access.
type AuthConfig struct {
	APIKeys         []string `yaml:"api_keys"`
	ReadOnlyAPIKeys []string `yaml:"read_only_api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the replica stores. Addrs is the primary replica;
// every entry of Replicas is one more full copy of the data.
type DatabaseConfig struct {
	Driver           string     `yaml:"driver"` // redis (default)
	Addrs            []string   `yaml:"addrs"`
	Replicas         [][]string `yaml:"replicas"`
	Password         string     `yaml:"password"`
	ReadinessTimeout int        `yaml:"readiness_timeout_sec"`
}

// ReplicaAddrs returns the address list of every replica, primary first.
func (d DatabaseConfig) ReplicaAddrs() [][]string {
	out := make([][]string, 0, 1+len(d.Replicas))
	out = append(out, d.Addrs)
	return append(out, d.Replicas...)
}

// QueryConfig tunes read requests and score explanations.
type QueryConfig struct {
	DefaultTimeoutMs        int    `yaml:"default_timeout_ms"` // 0 = no timeout
	MaxTimeoutMs            int    `yaml:"max_timeout_ms"`     // 0 = unbounded
	ExplainTopDimensions    int    `yaml:"explain_top_dimensions"`
	ExplainFallbackDistance string `yaml:"explain_fallback_distance"`
	ExplainStrictDistance   bool   `yaml:"explain_strict_distance"`
	MaxBatchSize            int    `yaml:"max_batch_size"`
	MaxParallelShards       int    `yaml:"max_parallel_shards"`
}

// DefaultTimeout returns the read timeout applied when a request sets none.
func (q QueryConfig) DefaultTimeout() time.Duration {
	return time.Duration(q.DefaultTimeoutMs) * time.Millisecond
}

// MaxTimeout returns the upper bound of a requested read timeout.
func (q QueryConfig) MaxTimeout() time.Duration {
	return time.Duration(q.MaxTimeoutMs) * time.Millisecond
}

// IndexConfig holds HNSW index settings.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// InferenceConfig holds the provider that embeds document query inputs.
// An empty Provider disables inference.
type InferenceConfig struct {
	Provider          string  `yaml:"provider"`
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	Dimensions        int     `yaml:"dimensions"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
	CacheTTLHours     int     `yaml:"cache_ttl_hours"`     // 0 = no expiry
	DailyTokenLimit   int64   `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64   `yaml:"monthly_token_limit"` // 0 = unlimited
	BudgetAction      string  `yaml:"budget_action"`       // "warn" (default) | "reject"
}

// Enabled reports whether a provider is configured.
func (i InferenceConfig) Enabled() bool { return i.Provider != "" }

// UsageConfig holds the retention of the hardware usage buckets.
type UsageConfig struct {
	DailyTTLHours   int `yaml:"daily_ttl_hours"`
	MonthlyTTLHours int `yaml:"monthly_ttl_hours"`
}

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
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Query.ExplainTopDimensions <= 0 {
		c.Query.ExplainTopDimensions = 10
	}
	if c.Query.ExplainFallbackDistance == "" {
		c.Query.ExplainFallbackDistance = "cosine"
	}
	if c.Query.MaxBatchSize <= 0 {
		c.Query.MaxBatchSize = 100
	}
	if c.Query.MaxParallelShards <= 0 {
		c.Query.MaxParallelShards = 8
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Inference.BudgetAction == "" {
		c.Inference.BudgetAction = "warn"
	}
	if c.Usage.DailyTTLHours <= 0 {
		c.Usage.DailyTTLHours = 48
	}
	if c.Usage.MonthlyTTLHours <= 0 {
		c.Usage.MonthlyTTLHours = 62 * 24
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Database.Driver != "redis" {
		return fmt.Errorf("database.driver must be \"redis\", got %q", c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	for i, r := range c.Database.Replicas {
		if len(r) == 0 {
			return fmt.Errorf("database.replicas[%d] has no addresses", i)
		}
	}
	if c.Query.DefaultTimeoutMs < 0 || c.Query.MaxTimeoutMs < 0 {
		return fmt.Errorf("query timeouts must not be negative")
	}
	if c.Query.MaxTimeoutMs > 0 && c.Query.DefaultTimeoutMs > c.Query.MaxTimeoutMs {
		return fmt.Errorf("query.default_timeout_ms (%d) exceeds query.max_timeout_ms (%d)",
			c.Query.DefaultTimeoutMs, c.Query.MaxTimeoutMs)
	}
	if _, err := distance.Parse(c.Query.ExplainFallbackDistance); err != nil {
		return fmt.Errorf("query.explain_fallback_distance: %w", err)
	}
	if c.Inference.Enabled() && c.Inference.Model == "" {
		return fmt.Errorf("inference.model is required when inference.provider is set")
	}
	if c.Inference.RequestsPerSecond < 0 {
		return fmt.Errorf("inference.requests_per_second must not be negative")
	}
	switch c.Inference.BudgetAction {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf("inference.budget_action must be \"warn\" or \"reject\", got %q", c.Inference.BudgetAction)
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
