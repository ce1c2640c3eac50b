package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/noah-isme/gema-rubric-evaluator/internal/credential"
	"github.com/noah-isme/gema-rubric-evaluator/internal/rubric"
)

// EnvironmentKeyVariable is the unprefixed variable holding the environment credential.
const EnvironmentKeyVariable = "OPENAI_API_KEY"

// Config holds runtime configuration values for the evaluator service and CLI.
type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	LogLevel zerolog.Level

	OpenAIBaseURL             string
	OpenAITimeout             time.Duration
	OpenAIJSONMode            bool
	OpenAIMaxCompletionTokens int
	DefaultModel              string

	SecretsFile   string
	SessionSecret string

	RedisURL          string
	NATSURL           string
	EventsSubjectBase string
	JWTSecret         string

	RateLimitMax    int
	RateLimitWindow time.Duration
	UploadMaxBytes  int64

	// RubricCredentials holds per-rubric credential policy overrides.
	RubricCredentials map[string]credential.Policy
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// EnvironmentAPIKey reads the environment credential at call time.
func (c Config) EnvironmentAPIKey() string {
	return os.Getenv(EnvironmentKeyVariable)
}

// Rubrics returns the built-in rubric registry with deployment overrides applied.
func (c Config) Rubrics() *rubric.Registry {
	registry := rubric.Default()
	for id, policy := range c.RubricCredentials {
		registry = registry.WithCredentials(id, policy)
	}
	return registry
}

// Load reads configuration values from environment variables, an optional
// .env file and the optional secrets file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	v.SetDefault("app.name", "GEMA Rubric Evaluator")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("openai.timeout", "60s")
	v.SetDefault("openai.json_mode", true)
	v.SetDefault("openai.max_completion_tokens", 0)
	v.SetDefault("model.default", rubric.DefaultModel)
	v.SetDefault("secrets.file", "secrets.toml")
	v.SetDefault("events.subject_base", "gema.rubric")
	v.SetDefault("rate_limit.max", 10)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("upload.max_bytes", 256*1024)

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(v.GetString("log.level"))))
	if err != nil {
		return Config{}, fmt.Errorf("invalid log level: %w", err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	timeout, err := time.ParseDuration(v.GetString("openai.timeout"))
	if err != nil || timeout <= 0 {
		return Config{}, fmt.Errorf("invalid openai timeout %q", v.GetString("openai.timeout"))
	}

	window, err := time.ParseDuration(v.GetString("rate_limit.window"))
	if err != nil || window <= 0 {
		return Config{}, fmt.Errorf("invalid rate limit window %q", v.GetString("rate_limit.window"))
	}

	cfg := Config{
		AppName:                   v.GetString("app.name"),
		AppEnv:                    v.GetString("app.env"),
		AppPort:                   v.GetString("app.port"),
		LogLevel:                  level,
		OpenAIBaseURL:             strings.TrimSpace(v.GetString("openai.base_url")),
		OpenAITimeout:             timeout,
		OpenAIJSONMode:            v.GetBool("openai.json_mode"),
		OpenAIMaxCompletionTokens: v.GetInt("openai.max_completion_tokens"),
		DefaultModel:              strings.TrimSpace(v.GetString("model.default")),
		SecretsFile:               v.GetString("secrets.file"),
		RedisURL:                  v.GetString("redis.url"),
		NATSURL:                   v.GetString("nats.url"),
		EventsSubjectBase:         v.GetString("events.subject_base"),
		JWTSecret:                 v.GetString("jwt.secret"),
		RateLimitMax:              v.GetInt("rate_limit.max"),
		RateLimitWindow:           window,
		UploadMaxBytes:            v.GetInt64("upload.max_bytes"),
		RubricCredentials:         make(map[string]credential.Policy),
	}

	if cfg.DefaultModel == "" {
		cfg.DefaultModel = rubric.DefaultModel
	}
	if cfg.RateLimitMax <= 0 {
		return Config{}, fmt.Errorf("rate limit max must be positive")
	}
	if cfg.UploadMaxBytes <= 0 {
		return Config{}, fmt.Errorf("upload max bytes must be positive")
	}
	if cfg.OpenAIMaxCompletionTokens < 0 {
		return Config{}, fmt.Errorf("openai max completion tokens must not be negative")
	}

	cfg.SessionSecret, err = loadSessionSecret(cfg.SecretsFile)
	if err != nil {
		return Config{}, err
	}

	for _, r := range rubric.Default().List() {
		raw := strings.TrimSpace(v.GetString("rubrics." + r.ID + ".credentials"))
		if raw == "" {
			continue
		}
		policy, err := credential.ParsePolicy(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid credential policy for rubric %s: %w", r.ID, err)
		}
		cfg.RubricCredentials[r.ID] = policy
	}

	return cfg, nil
}

// loadSessionSecret reads OPENAI_API_KEY from the deployment secrets file.
// A missing file yields an empty secret.
func loadSessionSecret(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("unable to read secrets file: %w", err)
	}

	secrets := viper.New()
	secrets.SetConfigFile(path)
	if err := secrets.ReadInConfig(); err != nil {
		return "", fmt.Errorf("unable to parse secrets file: %w", err)
	}

	return strings.TrimSpace(secrets.GetString(strings.ToLower(EnvironmentKeyVariable))), nil
}
