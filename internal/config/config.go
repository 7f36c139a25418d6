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

// Config holds the segmatch configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Behavior  BehaviorConfig  `yaml:"behavior"`
	Generator GeneratorConfig `yaml:"generator"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Cache     CacheConfig     `yaml:"cache"`
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

// DatabaseConfig holds key-value store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis (valkey speaks the same protocol)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// PostgresConfig holds the behavioral dataset connection. Empty DSN disables it.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
	MinConns int32  `yaml:"min_conns"`
}

// Catalog and behavior sources.
const (
	SourceRedis    = "redis"
	SourceFile     = "file"
	SourcePostgres = "postgres"
	SourceNone     = "none"
)

// CatalogConfig selects where segments are read from.
type CatalogConfig struct {
	Source string `yaml:"source"` // redis | file
	File   string `yaml:"file"`
}

// BehaviorConfig selects the behavioral dataset used by the enricher.
type BehaviorConfig struct {
	Source      string `yaml:"source"` // postgres | file | none
	File        string `yaml:"file"`
	LookupLimit int    `yaml:"lookup_limit"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// GeneratorConfig holds text generator settings. Empty APIKey disables the generator.
type GeneratorConfig struct {
	Provider     string       `yaml:"provider"`
	APIKey       string       `yaml:"api_key"`
	BaseURL      string       `yaml:"base_url"`
	Model        string       `yaml:"model"`
	Temperature  float32      `yaml:"temperature"`
	MaxTokens    int          `yaml:"max_tokens"`
	TimeoutSec   int          `yaml:"timeout_sec"`
	SystemPrompt string       `yaml:"system_prompt"`
	Budget       BudgetConfig `yaml:"budget"`
}

// WindowsConfig sizes the result tiers.
type WindowsConfig struct {
	BestFit   int `yaml:"best_fit"`
	HighValue int `yaml:"high_value"`
	Related   int `yaml:"related"`
}

// WeightsConfig tunes the keyword fallback score.
type WeightsConfig struct {
	Keyword  int `yaml:"keyword"`
	Commerce int `yaml:"commerce"`
	Active   int `yaml:"active"`
	Cap      int `yaml:"cap"`
}

// LabelsConfig names the data sources attached to enriched cards.
type LabelsConfig struct {
	Catalog    string `yaml:"catalog"`
	Behavioral string `yaml:"behavioral"`
	Geographic string `yaml:"geographic"`
}

// PipelineConfig holds relevance pipeline tuning.
type PipelineConfig struct {
	BatchSize         int           `yaml:"batch_size"`
	ScoreConcurrency  int           `yaml:"score_concurrency"`
	MaxHistory        int           `yaml:"max_history"`
	MaxQueryLength    int           `yaml:"max_query_length"`
	DeadlineSec       int           `yaml:"deadline_sec"`
	Windows           WindowsConfig `yaml:"windows"`
	FallbackWeights   WeightsConfig `yaml:"fallback_weights"`
	EnrichConcurrency int           `yaml:"enrich_concurrency"`
	TopGeoGroups      int           `yaml:"top_geo_groups"`
	Labels            LabelsConfig  `yaml:"labels"`
}

// Cache backends.
const (
	CacheRedis  = "redis"
	CacheMemory = "memory"
	CacheNone   = "none"
)

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Backend   string `yaml:"backend"` // redis | memory | none
	TTLSec    int    `yaml:"ttl_sec"`
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

func setDefault[T int | int32 | int64](v *T, def T) {
	if *v <= 0 {
		*v = def
	}
}

func setDefaultString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	setDefault(&c.HTTP.ReadTimeoutSec, 10)
	// A cache miss runs the whole pipeline.
	setDefault(&c.HTTP.WriteTimeoutSec, 90)
	setDefault(&c.HTTP.ShutdownSec, 10)

	setDefaultString(&c.Database.Driver, "redis")
	setDefault(&c.Database.ReadinessTimeout, 10)

	setDefaultString(&c.Catalog.Source, SourceRedis)
	if c.Behavior.Source == "" {
		c.Behavior.Source = SourceNone
		if c.Postgres.DSN != "" {
			c.Behavior.Source = SourcePostgres
		}
	}
	setDefault(&c.Behavior.LookupLimit, 500)

	setDefaultString(&c.Generator.Provider, "openai")
	setDefaultString(&c.Generator.Model, "gpt-4o-mini")
	setDefault(&c.Generator.MaxTokens, 4096)
	setDefault(&c.Generator.TimeoutSec, 30)
	setDefaultString(&c.Generator.Budget.Action, "warn")

	p := &c.Pipeline
	setDefault(&p.BatchSize, 50)
	setDefault(&p.ScoreConcurrency, 4)
	setDefault(&p.MaxHistory, 6)
	setDefault(&p.MaxQueryLength, 1000)
	// Leaves room for enrichment and the response write.
	setDefault(&p.DeadlineSec, c.HTTP.WriteTimeoutSec*2/3)
	setDefault(&p.Windows.BestFit, 8)
	setDefault(&p.Windows.HighValue, 5)
	setDefault(&p.Windows.Related, 5)
	setDefault(&p.FallbackWeights.Keyword, 20)
	setDefault(&p.FallbackWeights.Commerce, 10)
	setDefault(&p.FallbackWeights.Active, 5)
	setDefault(&p.FallbackWeights.Cap, 100)
	setDefault(&p.EnrichConcurrency, 8)
	setDefault(&p.TopGeoGroups, 3)
	setDefaultString(&p.Labels.Catalog, "segment-catalog")
	setDefaultString(&p.Labels.Behavioral, "behavioral-signals")
	setDefaultString(&p.Labels.Geographic, "geographic-concentration")

	setDefaultString(&c.Cache.Backend, CacheRedis)
	setDefault(&c.Cache.TTLSec, 3600)
	setDefaultString(&c.Cache.KeyPrefix, "segmatch:cache:")
}

// NeedsRedis reports whether any configured component reads the key-value store.
func (c *Config) NeedsRedis() bool {
	return c.Catalog.Source == SourceRedis || c.Cache.Backend == CacheRedis ||
		c.Generator.Budget.DailyTokenLimit > 0 || c.Generator.Budget.MonthlyTokenLimit > 0
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Database.Driver != "redis" {
		return fmt.Errorf("database.driver must be \"redis\", got %q", c.Database.Driver)
	}
	if c.NeedsRedis() && len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}

	switch c.Catalog.Source {
	case SourceRedis:
	case SourceFile:
		if c.Catalog.File == "" {
			return fmt.Errorf("catalog.file is required when catalog.source is %q", SourceFile)
		}
	default:
		return fmt.Errorf("catalog.source must be \"redis\" or \"file\", got %q", c.Catalog.Source)
	}

	switch c.Behavior.Source {
	case SourceNone:
	case SourcePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required when behavior.source is %q", SourcePostgres)
		}
	case SourceFile:
		if c.Behavior.File == "" && c.Catalog.File == "" {
			return fmt.Errorf("behavior.file is required when behavior.source is %q", SourceFile)
		}
	default:
		return fmt.Errorf("behavior.source must be \"postgres\", \"file\" or \"none\", got %q", c.Behavior.Source)
	}

	switch c.Generator.Budget.Action {
	case "warn", "reject":
	default:
		return fmt.Errorf("generator.budget.action must be \"warn\" or \"reject\", got %q", c.Generator.Budget.Action)
	}
	if c.Generator.Temperature < 0 || c.Generator.Temperature > 2 {
		return fmt.Errorf("generator.temperature must be between 0 and 2, got %g", c.Generator.Temperature)
	}

	switch c.Cache.Backend {
	case CacheRedis, CacheMemory, CacheNone:
	default:
		return fmt.Errorf("cache.backend must be \"redis\", \"memory\" or \"none\", got %q", c.Cache.Backend)
	}

	if c.Pipeline.DeadlineSec >= c.HTTP.WriteTimeoutSec {
		return fmt.Errorf("pipeline.deadline_sec must be below http.write_timeout_sec (%d), got %d",
			c.HTTP.WriteTimeoutSec, c.Pipeline.DeadlineSec)
	}

	w := c.Pipeline.FallbackWeights
	if w.Cap > 100 {
		return fmt.Errorf("pipeline.fallback_weights.cap must be at most 100, got %d", w.Cap)
	}
	return nil
}

// BehaviorFile returns the behavioral fixture path, defaulting to the catalog file.
func (c *Config) BehaviorFile() string {
	if c.Behavior.File != "" {
		return c.Behavior.File
	}
	return c.Catalog.File
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
