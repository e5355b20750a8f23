// Package config loads the immutable service configuration. Values come from
// built-in defaults, an optional YAML file, and finally environment
// variables, in that order. The resulting Config is passed explicitly to
// every component at construction and never mutated afterwards.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings for the service.
type Config struct {
	// HTTP server
	Host string `yaml:"host"`
	Port string `yaml:"port"`

	// Code-hosting platform (GitHub)
	GitHubToken    string `yaml:"github_token"`
	GitHubUsername string `yaml:"github_username"`
	GitHubAPIURL   string `yaml:"github_api_url"`
	PagesHost      string `yaml:"pages_host"`

	// Generative model API (OpenAI-compatible)
	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OpenAIModel   string `yaml:"openai_model"`

	// Shared secrets accepted on inbound requests. Entries prefixed with
	// "$2" are bcrypt hashes; anything else is compared verbatim.
	AllowedSecrets []string `yaml:"allowed_secrets"`

	// Evaluation callback delivery
	MaxRetries        int             `yaml:"max_retries"`
	RetryDelays       []time.Duration `yaml:"retry_delays"`
	EvaluationTimeout time.Duration   `yaml:"evaluation_timeout"`

	// Remote-system settle delays. The hosting platform propagates repo
	// creation, commits and Pages enablement asynchronously; these mask the
	// lag. Tests shrink them to zero.
	RepoSettleDelay time.Duration `yaml:"repo_settle_delay"`
	CommitSyncDelay time.Duration `yaml:"commit_sync_delay"`
	PagesInitDelay  time.Duration `yaml:"pages_init_delay"`

	// Local directories
	LogDir         string `yaml:"log_dir"`
	AttachmentsDir string `yaml:"attachments_dir"`
}

// Default returns the built-in configuration baseline.
func Default() *Config {
	return &Config{
		Host:              "0.0.0.0",
		Port:              "8080",
		GitHubAPIURL:      "https://api.github.com",
		PagesHost:         "github.io",
		OpenAIBaseURL:     "https://api.openai.com/v1",
		OpenAIModel:       "gpt-4o-mini",
		MaxRetries:        5,
		RetryDelays:       []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second},
		EvaluationTimeout: 30 * time.Second,
		RepoSettleDelay:   2 * time.Second,
		CommitSyncDelay:   1 * time.Second,
		PagesInitDelay:    5 * time.Second,
		LogDir:            "logs",
		AttachmentsDir:    "attachments",
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty and the file exists), and environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Host, "API_HOST")
	setString(&c.Port, "PORT")
	setString(&c.GitHubToken, "GITHUB_TOKEN")
	setString(&c.GitHubUsername, "GITHUB_USERNAME")
	setString(&c.GitHubAPIURL, "GITHUB_API_URL")
	setString(&c.PagesHost, "PAGES_HOST")
	setString(&c.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&c.OpenAIModel, "OPENAI_MODEL")
	setString(&c.LogDir, "LOG_DIR")
	setString(&c.AttachmentsDir, "ATTACHMENTS_DIR")

	if v := os.Getenv("ALLOWED_SECRETS"); v != "" {
		var secrets []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				secrets = append(secrets, s)
			}
		}
		c.AllowedSecrets = secrets
	}

	if v := os.Getenv("EVALUATION_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxRetries = n
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks that the settings required to reach the remote systems are
// present.
func (c *Config) Validate() error {
	if c.GitHubToken == "" {
		return fmt.Errorf("GITHUB_TOKEN is required")
	}
	if c.GitHubUsername == "" {
		return fmt.Errorf("GITHUB_USERNAME is required")
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be positive")
	}
	if len(c.RetryDelays) < c.MaxRetries-1 {
		return fmt.Errorf("retry_delays must cover max_retries-1 waits (%d configured, need %d)",
			len(c.RetryDelays), c.MaxRetries-1)
	}
	return nil
}

// RetryDelay returns the wait before the next attempt after the given
// zero-based attempt index.
func (c *Config) RetryDelay(attempt int) time.Duration {
	if attempt < 0 || attempt >= len(c.RetryDelays) {
		return c.RetryDelays[len(c.RetryDelays)-1]
	}
	return c.RetryDelays[attempt]
}
