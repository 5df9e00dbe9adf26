package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"

	BackendMemory = "memory"
	BackendRedis  = "redis"

	defaultOpenRouterModel = "qwen/qwen3-4b:free"
	defaultGeminiModel     = "gemini-2.0-flash"
)

type Config struct {
	HTTPAddr string
	LogLevel slog.Level

	LLMProvider       string
	LLMModel          string
	GeminiAPIKey      string
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	LLMTimeout        time.Duration

	DatabaseDriver string
	DatabaseURL    string
	AutoMigrate    bool

	SessionBackend string
	SessionTTL     time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	JWTSecret        string
	ContentAPISecret string
	RateLimitRPS     float64
	RateLimitBurst   int
}

// fileConfig is the optional TOML file named by CONFIG_FILE. Its values sit
// between the built-in defaults and the environment.
type fileConfig struct {
	Server struct {
		Addr     string `toml:"addr"`
		LogLevel string `toml:"log_level"`
	} `toml:"server"`
	LLM struct {
		Provider          string `toml:"provider"`
		Model             string `toml:"model"`
		Timeout           string `toml:"timeout"`
		OpenRouterBaseURL string `toml:"openrouter_base_url"`
	} `toml:"llm"`
	Database struct {
		Driver      string `toml:"driver"`
		URL         string `toml:"url"`
		AutoMigrate *bool  `toml:"auto_migrate"`
	} `toml:"database"`
	Sessions struct {
		Backend   string `toml:"backend"`
		TTL       string `toml:"ttl"`
		RedisAddr string `toml:"redis_addr"`
		RedisDB   *int   `toml:"redis_db"`
	} `toml:"sessions"`
	RateLimit struct {
		RPS   float64 `toml:"rps"`
		Burst int     `toml:"burst"`
	} `toml:"rate_limit"`
}

// Load builds the configuration from defaults, the optional CONFIG_FILE and
// the environment, in increasing precedence. Secrets come from the
// environment only.
func Load() (Config, error) {
	raw := map[string]string{
		"HTTP_ADDR":           ":8080",
		"LOG_LEVEL":           "info",
		"LLM_PROVIDER":        ProviderGemini,
		"LLM_TIMEOUT":         "30s",
		"OPENROUTER_BASE_URL": "https://openrouter.ai/api/v1",
		"DATABASE_DRIVER":     "sqlite",
		"DATABASE_URL":        "innerspell.db",
		"AUTO_MIGRATE":        "true",
		"SESSION_BACKEND":     BackendMemory,
		"SESSION_TTL":         "2h",
		"REDIS_ADDR":          "localhost:6379",
		"REDIS_DB":            "0",
		"RATE_LIMIT_RPS":      "0.5",
		"RATE_LIMIT_BURST":    "5",
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(path, raw); err != nil {
			return Config{}, err
		}
	}
	for key, fallback := range raw {
		raw[key] = envOr(key, fallback)
	}

	c := Config{
		HTTPAddr:          raw["HTTP_ADDR"],
		LLMProvider:       strings.ToLower(raw["LLM_PROVIDER"]),
		LLMModel:          envOr("LLM_MODEL", raw["LLM_MODEL"]),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL: raw["OPENROUTER_BASE_URL"],
		DatabaseDriver:    raw["DATABASE_DRIVER"],
		DatabaseURL:       raw["DATABASE_URL"],
		SessionBackend:    strings.ToLower(raw["SESSION_BACKEND"]),
		RedisAddr:         raw["REDIS_ADDR"],
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		ContentAPISecret:  os.Getenv("CONTENT_API_SECRET"),
	}

	var err error
	if c.LogLevel, err = parseLogLevel(raw["LOG_LEVEL"]); err != nil {
		return Config{}, err
	}
	if c.LLMTimeout, err = parseDuration("LLM_TIMEOUT", raw["LLM_TIMEOUT"]); err != nil {
		return Config{}, err
	}
	if c.SessionTTL, err = parseDuration("SESSION_TTL", raw["SESSION_TTL"]); err != nil {
		return Config{}, err
	}
	if c.AutoMigrate, err = strconv.ParseBool(raw["AUTO_MIGRATE"]); err != nil {
		return Config{}, fmt.Errorf("invalid AUTO_MIGRATE %q: %w", raw["AUTO_MIGRATE"], err)
	}
	if c.RedisDB, err = strconv.Atoi(raw["REDIS_DB"]); err != nil {
		return Config{}, fmt.Errorf("invalid REDIS_DB %q: %w", raw["REDIS_DB"], err)
	}
	if c.RateLimitRPS, err = strconv.ParseFloat(raw["RATE_LIMIT_RPS"], 64); err != nil || c.RateLimitRPS <= 0 {
		return Config{}, fmt.Errorf("invalid RATE_LIMIT_RPS %q", raw["RATE_LIMIT_RPS"])
	}
	if c.RateLimitBurst, err = strconv.Atoi(raw["RATE_LIMIT_BURST"]); err != nil || c.RateLimitBurst < 1 {
		return Config{}, fmt.Errorf("invalid RATE_LIMIT_BURST %q", raw["RATE_LIMIT_BURST"])
	}

	switch c.LLMProvider {
	case ProviderGemini:
		if c.LLMModel == "" {
			c.LLMModel = defaultGeminiModel
		}
	case ProviderOpenRouter:
		if c.LLMModel == "" {
			c.LLMModel = defaultOpenRouterModel
		}
	default:
		return Config{}, fmt.Errorf("invalid LLM_PROVIDER %q", c.LLMProvider)
	}
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return Config{}, fmt.Errorf("invalid DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.SessionBackend {
	case BackendMemory, BackendRedis:
	default:
		return Config{}, fmt.Errorf("invalid SESSION_BACKEND %q", c.SessionBackend)
	}

	return c, nil
}

// ValidateServer checks the settings only the API server needs.
func (c Config) ValidateServer() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.LLMProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required when LLM_PROVIDER=gemini"))
		}
	case ProviderOpenRouter:
		if c.OpenRouterAPIKey == "" {
			errs = append(errs, errors.New("OPENROUTER_API_KEY is required when LLM_PROVIDER=openrouter"))
		}
	}
	return errors.Join(errs...)
}

func applyFile(path string, raw map[string]string) error {
	var f fileConfig
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	set := func(key, v string) {
		if v != "" {
			raw[key] = v
		}
	}
	set("HTTP_ADDR", f.Server.Addr)
	set("LOG_LEVEL", f.Server.LogLevel)
	set("LLM_PROVIDER", f.LLM.Provider)
	set("LLM_MODEL", f.LLM.Model)
	set("LLM_TIMEOUT", f.LLM.Timeout)
	set("OPENROUTER_BASE_URL", f.LLM.OpenRouterBaseURL)
	set("DATABASE_DRIVER", f.Database.Driver)
	set("DATABASE_URL", f.Database.URL)
	if f.Database.AutoMigrate != nil {
		raw["AUTO_MIGRATE"] = strconv.FormatBool(*f.Database.AutoMigrate)
	}
	set("SESSION_BACKEND", f.Sessions.Backend)
	set("SESSION_TTL", f.Sessions.TTL)
	set("REDIS_ADDR", f.Sessions.RedisAddr)
	if f.Sessions.RedisDB != nil {
		raw["REDIS_DB"] = strconv.Itoa(*f.Sessions.RedisDB)
	}
	if f.RateLimit.RPS > 0 {
		raw["RATE_LIMIT_RPS"] = strconv.FormatFloat(f.RateLimit.RPS, 'f', -1, 64)
	}
	if f.RateLimit.Burst > 0 {
		raw["RATE_LIMIT_BURST"] = strconv.Itoa(f.RateLimit.Burst)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, s)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
}
