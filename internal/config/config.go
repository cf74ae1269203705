// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the full application configuration. Values come from the
// config file, environment variables (TASKER_ prefix) and flags, merged by
// viper; Validate rejects unusable configurations before a run starts.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Actor   ActorConfig   `mapstructure:"actor" yaml:"actor"`
	Run     RunConfig     `mapstructure:"run" yaml:"run"`
	Retry   RetryConfig   `mapstructure:"retry" yaml:"retry"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Checker CheckerConfig `mapstructure:"checker" yaml:"checker"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig maps log levels to terminal color names.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// ActorConfig configures the remote actor model that decides each step.
// Model-selection parameters are passed through to the client unchanged.
type ActorConfig struct {
	Endpoint          string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey            string        `mapstructure:"api_key" yaml:"-"`
	Model             string        `mapstructure:"model" yaml:"model"`
	Temperature       float32       `mapstructure:"temperature" yaml:"temperature"`
	APITimeout        time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// RunConfig bounds a single task execution.
type RunConfig struct {
	MaxStepsPerTodo   int    `mapstructure:"max_steps_per_todo" yaml:"max_steps_per_todo"`
	ArtifactDir       string `mapstructure:"artifact_dir" yaml:"artifact_dir"`
	ExportFormat      string `mapstructure:"export_format" yaml:"export_format"`
	ContinueOnFailure bool   `mapstructure:"continue_on_failure" yaml:"continue_on_failure"`
}

// RetryConfig shapes the full-run resilience policy.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
}

// BrowserConfig holds settings for the headless browser the run drives.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	WindowWidth       int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight      int           `mapstructure:"window_height" yaml:"window_height"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	StartURL          string        `mapstructure:"start_url" yaml:"start_url"`
	Args              []string      `mapstructure:"args" yaml:"args"`
}

// CheckerConfig configures the optional vision model used for post-hoc
// verification of completed todos.
type CheckerConfig struct {
	Enabled    bool          `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey     string        `mapstructure:"api_key" yaml:"-"`
	Model      string        `mapstructure:"model" yaml:"model"`
	APITimeout time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "tasker-cli")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Actor --
	v.SetDefault("actor.endpoint", "https://api.agiopen.org")
	v.SetDefault("actor.model", "lux-actor-1")
	v.SetDefault("actor.temperature", 0.0)
	v.SetDefault("actor.api_timeout", "60s")
	v.SetDefault("actor.requests_per_second", 2.0)

	// -- Run --
	v.SetDefault("run.max_steps_per_todo", 24)
	v.SetDefault("run.artifact_dir", "~/.tasker/results")
	v.SetDefault("run.export_format", "html")
	v.SetDefault("run.continue_on_failure", false)

	// -- Retry --
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "2s")
	v.SetDefault("retry.max_delay", "30s")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 800)
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.start_url", "about:blank")

	// -- Checker --
	v.SetDefault("checker.enabled", false)
	v.SetDefault("checker.endpoint", "")
	v.SetDefault("checker.model", "gemini-2.0-flash")
	v.SetDefault("checker.api_timeout", "30s")
}

// NewDefaultConfig returns a configuration populated with defaults only.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static; failing to unmarshal them is a bug.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper builds and validates a configuration from a viper
// instance that has already read file, env and flag sources.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Sensitive values come from the environment, never the config file.
	v.BindEnv("actor.api_key", "TASKER_ACTOR_API_KEY")
	v.BindEnv("checker.api_key", "TASKER_CHECKER_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	expanded, err := homedir.Expand(cfg.Run.ArtifactDir)
	if err != nil {
		return nil, fmt.Errorf("cannot expand artifact_dir %q: %w", cfg.Run.ArtifactDir, err)
	}
	cfg.Run.ArtifactDir = expanded

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
// Anything it rejects would otherwise surface mid-run; rejecting here keeps
// run failures limited to genuine domain errors.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Actor.Endpoint) == "" {
		return fmt.Errorf("actor.endpoint is required")
	}
	if strings.TrimSpace(c.Actor.Model) == "" {
		return fmt.Errorf("actor.model is required")
	}
	if c.Actor.APITimeout <= 0 {
		return fmt.Errorf("actor.api_timeout must be a positive duration")
	}
	if c.Actor.RequestsPerSecond <= 0 {
		return fmt.Errorf("actor.requests_per_second must be positive")
	}
	if c.Run.MaxStepsPerTodo <= 0 {
		return fmt.Errorf("run.max_steps_per_todo must be a positive integer")
	}
	if f := c.Run.ExportFormat; f != "html" && f != "json" {
		return fmt.Errorf("run.export_format must be html or json, got %q", f)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1")
	}
	if c.Retry.BaseDelay < 0 {
		return fmt.Errorf("retry.base_delay must be >= 0")
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("retry.max_delay must be >= retry.base_delay")
	}
	if c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0 {
		return fmt.Errorf("browser window dimensions must be positive")
	}
	if c.Checker.Enabled {
		if strings.TrimSpace(c.Checker.Endpoint) == "" {
			return fmt.Errorf("checker.endpoint is required when checker.enabled is true")
		}
		if strings.TrimSpace(c.Checker.Model) == "" {
			return fmt.Errorf("checker.model is required when checker.enabled is true")
		}
	}
	return nil
}
