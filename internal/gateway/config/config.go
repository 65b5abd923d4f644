package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Completion providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderFake   = "fake"
)

type Config struct {
	Port       string
	Env        string
	LogLevel   string
	Database   DatabaseConfig
	Completion CompletionConfig
	Cache      CacheConfig
	Artifact   ArtifactConfig
}

type DatabaseConfig struct {
	// URL is empty when records are kept in memory.
	URL         string
	AutoMigrate bool
}

type CompletionConfig struct {
	Provider      string
	OpenAIKey     string
	OpenAIBaseURL string
	GeminiKey     string
	Model         string
	Timeout       time.Duration
	RPS           float64
	Burst         int
}

// Configured reports whether the selected provider has the credentials it
// needs to serve a run.
func (c CompletionConfig) Configured() bool {
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAIKey != "" && c.OpenAIBaseURL != ""
	case ProviderGemini:
		return c.GeminiKey != ""
	case ProviderFake:
		return true
	default:
		return false
	}
}

type CacheConfig struct {
	Size int
	TTL  time.Duration
}

type ArtifactConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func (a ArtifactConfig) Enabled() bool {
	return a.Endpoint != "" && a.Bucket != ""
}

// Load reads a .env file if present and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	env := firstNonEmpty(get("APP_ENV"), "local")
	cfg := &Config{
		Port:     normalizePort(firstNonEmpty(get("PORT"), ":8081")),
		Env:      env,
		LogLevel: firstNonEmpty(get("LOG_LEVEL"), "info"),
		Database: DatabaseConfig{
			URL:         get("DATABASE_URL"),
			AutoMigrate: parseBool(get("DB_AUTO_MIGRATE"), true),
		},
		Completion: CompletionConfig{
			Provider:      strings.ToLower(firstNonEmpty(get("COMPLETION_PROVIDER"), ProviderOpenAI)),
			OpenAIKey:     firstNonEmpty(get("AI_INTEGRATIONS_OPENAI_API_KEY"), get("OPENAI_API_KEY")),
			OpenAIBaseURL: firstNonEmpty(get("AI_INTEGRATIONS_OPENAI_BASE_URL"), get("OPENAI_BASE_URL")),
			GeminiKey:     get("GEMINI_API_KEY"),
			Model:         get("COMPLETION_MODEL"),
			Timeout:       parseDuration(get("COMPLETION_TIMEOUT"), 120*time.Second),
			RPS:           parseFloat(get("COMPLETION_RPS"), 0),
			Burst:         parseInt(get("COMPLETION_BURST"), 1),
		},
		Cache: CacheConfig{
			Size: parseInt(get("RECORD_CACHE_SIZE"), 256),
			TTL:  parseDuration(get("RECORD_CACHE_TTL"), 5*time.Minute),
		},
		Artifact: ArtifactConfig{
			Endpoint:  get("ARTIFACT_S3_ENDPOINT"),
			Region:    firstNonEmpty(get("ARTIFACT_S3_REGION"), "us-east-1"),
			AccessKey: get("ARTIFACT_S3_ACCESS_KEY"),
			SecretKey: get("ARTIFACT_S3_SECRET_KEY"),
			Bucket:    get("ARTIFACT_S3_BUCKET"),
			UseSSL:    parseBool(get("ARTIFACT_S3_USE_SSL"), true),
		},
	}
	if strings.EqualFold(env, "local") {
		applyLocalDefaults(cfg, get)
	}

	switch cfg.Completion.Provider {
	case ProviderOpenAI, ProviderGemini, ProviderFake:
	default:
		return nil, fmt.Errorf("unknown COMPLETION_PROVIDER %q", cfg.Completion.Provider)
	}
	return cfg, nil
}

func normalizePort(port string) string {
	if strings.HasPrefix(port, ":") || strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

func parseBool(raw string, def bool) bool {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func parseFloat(raw string, def float64) float64 {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func parseDuration(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
