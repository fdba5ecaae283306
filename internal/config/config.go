// Package config loads analyzer and viewer settings.
//
// Precedence, lowest first: built-in defaults, the YAML file, environment
// variables. Command-line flags are applied on top by the commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "config.yaml"
	DefaultInput      = "calls.csv"
	DefaultOutput     = "call_analysis_results.csv"
	DefaultViewerHost = "0.0.0.0"
	DefaultViewerPort = 4000
	DefaultTimeout    = 120 * time.Second
	DefaultDebounce   = 2 * time.Second
)

type Config struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`

	LLM LLM `yaml:"llm"`

	RequestTimeout time.Duration `yaml:"request_timeout"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
	PromptPrefix   string        `yaml:"prompt_prefix"`

	Viewer  Viewer  `yaml:"viewer"`
	Watch   Watch   `yaml:"watch"`
	Publish Publish `yaml:"s3"`

	LogLevel string `yaml:"log_level"`

	// Source is the config file that was loaded, empty when none was.
	Source string `yaml:"-"`
}

type LLM struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	// APIKey applies to whichever provider is selected.
	APIKey          string `yaml:"api_key"`
	GeminiAPIKey    string `yaml:"gemini_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
}

type Viewer struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Store is the result file to serve. Empty falls back to Output.
	Store string `yaml:"store"`
}

type Watch struct {
	Schedule string        `yaml:"schedule"`
	Debounce time.Duration `yaml:"debounce"`
}

// Publish configures the optional upload of the result file to S3.
type Publish struct {
	Bucket          string `yaml:"bucket"`
	Key             string `yaml:"key"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// Enabled reports whether an upload target is configured.
func (p Publish) Enabled() bool {
	return strings.TrimSpace(p.Bucket) != ""
}

// Load reads the YAML file at path (or CONFIG_PATH, or config.yaml when
// present), then applies environment overrides and defaults. An explicitly
// named file must exist.
func Load(path string) (Config, error) {
	var cfg Config

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		if envPath := strings.TrimSpace(os.Getenv("CONFIG_PATH")); envPath != "" {
			path, explicit = envPath, true
		} else {
			path = DefaultConfigPath
		}
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
		cfg.Source = path
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	envOverride(&cfg.Input, "ANALYZER_INPUT")
	envOverride(&cfg.Output, "ANALYZER_OUTPUT")
	envOverride(&cfg.PromptPrefix, "PROMPT_PREFIX")
	envOverride(&cfg.LLM.Provider, "LLM_PROVIDER")
	envOverride(&cfg.LLM.Model, "LLM_MODEL")
	envOverride(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	envOverride(&cfg.LLM.APIKey, "LLM_API_KEY")
	envOverride(&cfg.LLM.GeminiAPIKey, "GEMINI_API_KEY")
	envOverride(&cfg.LLM.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.Viewer.Host, "VIEWER_HOST")
	envOverride(&cfg.Viewer.Store, "VIEWER_STORE")
	envOverride(&cfg.Watch.Schedule, "WATCH_SCHEDULE")
	envOverride(&cfg.Publish.Bucket, "S3_BUCKET")
	envOverride(&cfg.Publish.Key, "S3_KEY")
	envOverride(&cfg.Publish.Region, "S3_REGION")
	envOverride(&cfg.Publish.Endpoint, "S3_ENDPOINT")
	envOverride(&cfg.Publish.AccessKeyID, "S3_ACCESS_KEY_ID")
	envOverride(&cfg.Publish.SecretAccessKey, "S3_SECRET_ACCESS_KEY")
	envOverride(&cfg.LogLevel, "LOG_LEVEL")

	if strings.TrimSpace(os.Getenv("LLM_API_KEY_FILE")) != "" {
		key, err := readFileEnv("LLM_API_KEY_FILE")
		if err != nil {
			return err
		}
		cfg.LLM.APIKey = key
	}
	if err := envOverrideDuration(&cfg.RequestTimeout, "REQUEST_TIMEOUT"); err != nil {
		return err
	}
	if err := envOverrideDuration(&cfg.Watch.Debounce, "WATCH_DEBOUNCE"); err != nil {
		return err
	}
	if err := envOverrideFloat(&cfg.RateLimitRPS, "RATE_LIMIT_RPS"); err != nil {
		return err
	}
	if err := envOverrideInt(&cfg.Viewer.Port, "VIEWER_PORT"); err != nil {
		return err
	}
	return envOverrideBool(&cfg.Publish.UsePathStyle, "S3_USE_PATH_STYLE")
}

func (c *Config) applyDefaults() {
	if c.Input == "" {
		c.Input = DefaultInput
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "ollama"
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultTimeout
	}
	if c.Viewer.Host == "" {
		c.Viewer.Host = DefaultViewerHost
	}
	if c.Viewer.Port == 0 {
		c.Viewer.Port = DefaultViewerPort
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = DefaultDebounce
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
}

// Validate checks ranges. Provider names are checked when the client is built.
func (c Config) Validate() error {
	if c.RequestTimeout < 0 {
		return fmt.Errorf("invalid request_timeout %s: must be >= 0", c.RequestTimeout)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("invalid rate_limit_rps %g: must be >= 0", c.RateLimitRPS)
	}
	if c.Viewer.Port < 1 || c.Viewer.Port > 65535 {
		return fmt.Errorf("invalid viewer port %d", c.Viewer.Port)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("invalid watch debounce %s: must be >= 0", c.Watch.Debounce)
	}
	return nil
}

// StorePath returns the result file the viewer serves.
func (c Config) StorePath() string {
	if c.Viewer.Store != "" {
		return c.Viewer.Store
	}
	return c.Output
}

// APIKeyFor returns the key for provider: the generic key when set,
// otherwise the provider-specific one.
func (c Config) APIKeyFor(provider string) string {
	if k := strings.TrimSpace(c.LLM.APIKey); k != "" {
		return k
	}
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gemini", "google":
		return strings.TrimSpace(c.LLM.GeminiAPIKey)
	case "anthropic", "claude":
		return strings.TrimSpace(c.LLM.AnthropicAPIKey)
	}
	return ""
}

func envOverride(field *string, envKey string) {
	if val := strings.TrimSpace(os.Getenv(envKey)); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	v := strings.TrimSpace(os.Getenv(envKey))
	if v == "" {
		return nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", envKey, v, err)
	}
	*field = out
	return nil
}

func envOverrideFloat(field *float64, envKey string) error {
	v := strings.TrimSpace(os.Getenv(envKey))
	if v == "" {
		return nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", envKey, v, err)
	}
	*field = out
	return nil
}

func envOverrideDuration(field *time.Duration, envKey string) error {
	v := strings.TrimSpace(os.Getenv(envKey))
	if v == "" {
		return nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", envKey, v, err)
	}
	*field = out
	return nil
}

func envOverrideBool(field *bool, envKey string) error {
	v := strings.TrimSpace(os.Getenv(envKey))
	if v == "" {
		return nil
	}
	out, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", envKey, v, err)
	}
	*field = out
	return nil
}

// readFileEnv reads a secret from the file named by varName.
func readFileEnv(varName string) (string, error) {
	path := strings.TrimSpace(os.Getenv(varName))
	if path == "" {
		return "", fmt.Errorf("%s is required", varName)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s file: %w", varName, err)
	}
	return strings.TrimSpace(string(b)), nil
}
