package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/tasker-cli/internal/config"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := config.NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "https://api.agiopen.org", cfg.Actor.Endpoint)
	assert.Equal(t, "lux-actor-1", cfg.Actor.Model)
	assert.Equal(t, 60*time.Second, cfg.Actor.APITimeout)
	assert.Equal(t, 24, cfg.Run.MaxStepsPerTodo)
	assert.Equal(t, "html", cfg.Run.ExportFormat)
	assert.False(t, cfg.Run.ContinueOnFailure)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxDelay)
	assert.True(t, cfg.Browser.Headless)
	assert.False(t, cfg.Checker.Enabled)
}

func TestNewConfigFromViper(t *testing.T) {
	t.Setenv("TASKER_ACTOR_API_KEY", "secret-from-env")

	v := viper.New()
	config.SetDefaults(v)
	v.Set("run.artifact_dir", t.TempDir())

	cfg, err := config.NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "secret-from-env", cfg.Actor.APIKey, "the API key must come from the environment")
}

func TestNewConfigFromViper_ExpandsArtifactDir(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)

	cfg, err := config.NewConfigFromViper(v)
	require.NoError(t, err)
	assert.NotContains(t, cfg.Run.ArtifactDir, "~", "the home shorthand must be expanded")
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config { return config.NewDefaultConfig() }

	testCases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing actor endpoint", func(c *config.Config) { c.Actor.Endpoint = " " }},
		{"missing actor model", func(c *config.Config) { c.Actor.Model = "" }},
		{"non-positive api timeout", func(c *config.Config) { c.Actor.APITimeout = 0 }},
		{"non-positive request rate", func(c *config.Config) { c.Actor.RequestsPerSecond = 0 }},
		{"zero step budget", func(c *config.Config) { c.Run.MaxStepsPerTodo = 0 }},
		{"negative step budget", func(c *config.Config) { c.Run.MaxStepsPerTodo = -1 }},
		{"unknown export format", func(c *config.Config) { c.Run.ExportFormat = "pdf" }},
		{"zero retry attempts", func(c *config.Config) { c.Retry.MaxAttempts = 0 }},
		{"negative base delay", func(c *config.Config) { c.Retry.BaseDelay = -time.Second }},
		{"max delay below base", func(c *config.Config) {
			c.Retry.BaseDelay = time.Minute
			c.Retry.MaxDelay = time.Second
		}},
		{"zero window width", func(c *config.Config) { c.Browser.WindowWidth = 0 }},
		{"checker enabled without endpoint", func(c *config.Config) {
			c.Checker.Enabled = true
			c.Checker.Endpoint = ""
		}},
	}

	require.NoError(t, valid().Validate(), "the default configuration must validate")

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
