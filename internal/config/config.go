package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/chronicle-dev/chronicle/internal/models"
)

// Config holds all configuration settings. Layered sources (flags > env >
// config file > defaults) are resolved once by Load; no component re-derives
// priority order afterwards. Treat the resolved value as immutable.
type Config struct {
	// Repository to analyze
	Repo RepoConfig `yaml:"repo" mapstructure:"repo"`

	// Period planning settings
	Periods PeriodConfig `yaml:"periods" mapstructure:"periods"`

	// Artifact matching settings
	Matching MatchingConfig `yaml:"matching" mapstructure:"matching"`

	// Execution settings
	Execution ExecutionConfig `yaml:"execution" mapstructure:"execution"`

	// Cache settings
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// External API credentials
	API APIConfig `yaml:"api" mapstructure:"api"`
}

type RepoConfig struct {
	Path  string `yaml:"path" mapstructure:"path"`
	Owner string `yaml:"owner" mapstructure:"owner"`
	Name  string `yaml:"name" mapstructure:"name"`
	// VersionFiles are scanned for version bumps when building release events
	VersionFiles []string `yaml:"version_files" mapstructure:"version_files"`
}

type PeriodConfig struct {
	// Strategy is one of daily, weekly, monthly, release, auto
	Strategy string `yaml:"strategy" mapstructure:"strategy"`
	// WeekStart is the weekday a weekly window opens on (default Monday)
	WeekStart string `yaml:"week_start" mapstructure:"week_start"`
	// DailyThreshold / WeeklyThreshold are commits-per-week cutoffs for
	// auto-detection. Approximations, not optima.
	DailyThreshold  float64 `yaml:"daily_threshold" mapstructure:"daily_threshold"`
	WeeklyThreshold float64 `yaml:"weekly_threshold" mapstructure:"weekly_threshold"`
	// MatureAge is the project age past which auto-detection prefers
	// monthly windows over release windows
	MatureAge time.Duration `yaml:"mature_age" mapstructure:"mature_age"`
	// SummaryThreshold marks the earliest period mode=summary when its
	// commit count exceeds this
	SummaryThreshold int `yaml:"summary_threshold" mapstructure:"summary_threshold"`
	// SkipMergeOnly omits windows whose commits are all merges
	SkipMergeOnly bool `yaml:"skip_merge_only" mapstructure:"skip_merge_only"`
}

type MatchingConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// ConfidenceThreshold gates which references survive scoring
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	// TemporalWindowDays bounds temporal correlation; artifacts outside the
	// window are not evaluated further
	TemporalWindowDays int `yaml:"temporal_window_days" mapstructure:"temporal_window_days"`
	// SemanticFloor discards artifacts whose evaluated semantic score falls
	// below it; 0 keeps pure max-fusion
	SemanticFloor float64 `yaml:"semantic_floor" mapstructure:"semantic_floor"`
	// Bonus magnitudes for the composite combination
	BothSignalsBonus  float64 `yaml:"both_signals_bonus" mapstructure:"both_signals_bonus"`
	BranchMatchBonus  float64 `yaml:"branch_match_bonus" mapstructure:"branch_match_bonus"`
	MultiSignalsBonus float64 `yaml:"multi_signals_bonus" mapstructure:"multi_signals_bonus"`
	// Per-strategy enable flags
	ExplicitEnabled bool `yaml:"explicit_enabled" mapstructure:"explicit_enabled"`
	TemporalEnabled bool `yaml:"temporal_enabled" mapstructure:"temporal_enabled"`
	SemanticEnabled bool `yaml:"semantic_enabled" mapstructure:"semantic_enabled"`
}

type ExecutionConfig struct {
	// MaxConcurrency bounds jobs per batch; capped at MaxConcurrencyCap
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	// MaxRetries bounds retry attempts for transient failures
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`
	// RetryBackoff is the initial backoff, doubled per attempt
	RetryBackoff time.Duration `yaml:"retry_backoff" mapstructure:"retry_backoff"`
	// CallTimeout bounds every external call
	CallTimeout time.Duration `yaml:"call_timeout" mapstructure:"call_timeout"`
}

type CacheConfig struct {
	Directory string `yaml:"directory" mapstructure:"directory"`
	// TTL applies per artifact kind; period analyses never expire, they are
	// invalidated by fingerprint change
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

type APIConfig struct {
	GitHubToken     string `yaml:"github_token" mapstructure:"github_token"`
	GitHubRateLimit int    `yaml:"github_rate_limit" mapstructure:"github_rate_limit"`
	OpenAIKey       string `yaml:"openai_key" mapstructure:"openai_key"`
	OpenAIModel     string `yaml:"openai_model" mapstructure:"openai_model"`
	EmbeddingModel  string `yaml:"embedding_model" mapstructure:"embedding_model"`
}

// MaxConcurrencyCap is the hard upper bound on jobs per batch.
const MaxConcurrencyCap = 5

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Repo: RepoConfig{
			Path:         ".",
			VersionFiles: []string{"package.json", "pyproject.toml", "Cargo.toml", "VERSION"},
		},
		Periods: PeriodConfig{
			Strategy:         string(models.StrategyAuto),
			WeekStart:        "monday",
			DailyThreshold:   50,
			WeeklyThreshold:  10,
			MatureAge:        26 * 7 * 24 * time.Hour, // ~6 months
			SummaryThreshold: 100,
			SkipMergeOnly:    true,
		},
		Matching: MatchingConfig{
			Enabled:             true,
			ConfidenceThreshold: 0.85,
			TemporalWindowDays:  30,
			SemanticFloor:       0,
			BothSignalsBonus:    0.15,
			BranchMatchBonus:    0.10,
			MultiSignalsBonus:   0.20,
			ExplicitEnabled:     true,
			TemporalEnabled:     true,
			SemanticEnabled:     true,
		},
		Execution: ExecutionConfig{
			MaxConcurrency: 3,
			MaxRetries:     3,
			RetryBackoff:   500 * time.Millisecond,
			CallTimeout:    30 * time.Second,
		},
		Cache: CacheConfig{
			Directory: filepath.Join(homeDir, ".chronicle", "cache"),
			TTL:       24 * time.Hour,
		},
		API: APIConfig{
			GitHubRateLimit: 10,
			OpenAIModel:     "gpt-4o-mini",
			EmbeddingModel:  "text-embedding-3-small",
		},
	}
}

// Load resolves configuration from file, environment, and defaults.
// A .env in the working directory (or any parent) is loaded first so secrets
// come from a single source.
func Load(cfgFile string) (*Config, error) {
	loadDotEnv()

	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".chronicle")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".chronicle"))
		}
	}

	v.SetEnvPrefix("CHRONICLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return nil, err
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// Well-known env vars win over the config file for secrets
	if tok := os.Getenv("GITHUB_TOKEN"); tok != "" {
		cfg.API.GitHubToken = tok
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.API.OpenAIKey = key
	}

	cfg.clamp()
	return cfg, nil
}

// clamp enforces hard bounds the rest of the engine relies on
func (c *Config) clamp() {
	if c.Execution.MaxConcurrency < 1 {
		c.Execution.MaxConcurrency = 1
	}
	if c.Execution.MaxConcurrency > MaxConcurrencyCap {
		c.Execution.MaxConcurrency = MaxConcurrencyCap
	}
	if c.Matching.ConfidenceThreshold < 0 {
		c.Matching.ConfidenceThreshold = 0
	}
	if c.Matching.ConfidenceThreshold > 1 {
		c.Matching.ConfidenceThreshold = 1
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("repo.path", d.Repo.Path)
	v.SetDefault("repo.version_files", d.Repo.VersionFiles)
	v.SetDefault("periods.strategy", d.Periods.Strategy)
	v.SetDefault("periods.week_start", d.Periods.WeekStart)
	v.SetDefault("periods.daily_threshold", d.Periods.DailyThreshold)
	v.SetDefault("periods.weekly_threshold", d.Periods.WeeklyThreshold)
	v.SetDefault("periods.mature_age", d.Periods.MatureAge)
	v.SetDefault("periods.summary_threshold", d.Periods.SummaryThreshold)
	v.SetDefault("periods.skip_merge_only", d.Periods.SkipMergeOnly)
	v.SetDefault("matching.enabled", d.Matching.Enabled)
	v.SetDefault("matching.confidence_threshold", d.Matching.ConfidenceThreshold)
	v.SetDefault("matching.temporal_window_days", d.Matching.TemporalWindowDays)
	v.SetDefault("matching.semantic_floor", d.Matching.SemanticFloor)
	v.SetDefault("matching.both_signals_bonus", d.Matching.BothSignalsBonus)
	v.SetDefault("matching.branch_match_bonus", d.Matching.BranchMatchBonus)
	v.SetDefault("matching.multi_signals_bonus", d.Matching.MultiSignalsBonus)
	v.SetDefault("matching.explicit_enabled", d.Matching.ExplicitEnabled)
	v.SetDefault("matching.temporal_enabled", d.Matching.TemporalEnabled)
	v.SetDefault("matching.semantic_enabled", d.Matching.SemanticEnabled)
	v.SetDefault("execution.max_concurrency", d.Execution.MaxConcurrency)
	v.SetDefault("execution.max_retries", d.Execution.MaxRetries)
	v.SetDefault("execution.retry_backoff", d.Execution.RetryBackoff)
	v.SetDefault("execution.call_timeout", d.Execution.CallTimeout)
	v.SetDefault("cache.directory", d.Cache.Directory)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("api.github_rate_limit", d.API.GitHubRateLimit)
	v.SetDefault("api.openai_model", d.API.OpenAIModel)
	v.SetDefault("api.embedding_model", d.API.EmbeddingModel)
}

// loadDotEnv walks up from the working directory looking for a .env file.
// Absence is not an error.
func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for {
		candidate := filepath.Join(dir, ".env")
		if _, err := os.Stat(candidate); err == nil {
			godotenv.Load(candidate)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// WeekStartDay maps the configured week start name to a time.Weekday.
// Unrecognized values fall back to Monday.
func (c *Config) WeekStartDay() time.Weekday {
	switch strings.ToLower(c.Periods.WeekStart) {
	case "sunday":
		return time.Sunday
	case "monday":
		return time.Monday
	case "tuesday":
		return time.Tuesday
	case "wednesday":
		return time.Wednesday
	case "thursday":
		return time.Thursday
	case "friday":
		return time.Friday
	case "saturday":
		return time.Saturday
	default:
		return time.Monday
	}
}
