package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("GITHUB_USERNAME", "octocat")
	t.Setenv("OPENAI_API_KEY", "sk-test")
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://api.github.com", cfg.GitHubAPIURL)
	assert.Equal(t, "github.io", cfg.PagesHost)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
	}, cfg.RetryDelays)
	assert.Equal(t, 30*time.Second, cfg.EvaluationTimeout)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("ALLOWED_SECRETS", "alpha, beta ,,gamma")
	t.Setenv("EVALUATION_MAX_RETRIES", "3")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, cfg.AllowedSecrets)
	assert.Equal(t, 3, cfg.MaxRetries)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("port: \"7777\"\npages_host: pages.example.net\nlog_dir: /tmp/dep-logs\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7777", cfg.Port)
	assert.Equal(t, "pages.example.net", cfg.PagesHost)
	assert.Equal(t, "/tmp/dep-logs", cfg.LogDir)
}

func TestLoadEnvWinsOverFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "6060")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"7777\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "6060", cfg.Port)
}

func TestLoadMissingFileIsIgnored(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
}

func TestValidateRejectsMissingCredentials(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing token", func(c *Config) { c.GitHubToken = "" }, "GITHUB_TOKEN"},
		{"missing username", func(c *Config) { c.GitHubUsername = "" }, "GITHUB_USERNAME"},
		{"missing model key", func(c *Config) { c.OpenAIAPIKey = "" }, "OPENAI_API_KEY"},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }, "max_retries"},
		{"short delay schedule", func(c *Config) { c.RetryDelays = c.RetryDelays[:2] }, "retry_delays"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.GitHubToken = "ghp_test"
			cfg.GitHubUsername = "octocat"
			cfg.OpenAIAPIKey = "sk-test"
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRetryDelayClampsOutOfRange(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 1*time.Second, cfg.RetryDelay(0))
	assert.Equal(t, 16*time.Second, cfg.RetryDelay(4))
	assert.Equal(t, 16*time.Second, cfg.RetryDelay(99))
	assert.Equal(t, 16*time.Second, cfg.RetryDelay(-1))
}
