// Package config loads service settings from the environment, an optional
// .env file (outside production) and an optional kiosk.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"kiosk-backend/internal/i18n"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	RegistryMemory   = "memory"
	RegistrySQLite   = "sqlite"
	RegistryPostgres = "postgres"

	BackendMock   = "mock"
	BackendGemini = "gemini"
)

type Config struct {
	Port           string
	AppEnv         string
	AllowedOrigins []string
	BaseURL        string
	UploadDir      string

	RegistryDriver   string
	DatabaseURL      string
	SQLitePath       string
	SeedDemoSessions bool
	ChecklistFile    string

	Backend          string
	MockLatencyScale float64
	GoogleProject    string
	GoogleLocation   string
	GoogleCreds      string
	GeminiModel      string
	MinConfidence    float64
	PivotLanguage    string
	RetryMaxAttempts int

	ChallengeTTL    time.Duration
	TokenTTL        time.Duration
	AuthMaxAttempts int
}

func (c Config) Production() bool {
	return c.AppEnv == "production"
}

// Load reads .env in dev only; production injects env vars through infra.
func Load() (Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	v.SetConfigName("kiosk")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	if dir := os.Getenv("KIOSK_CONFIG_DIR"); dir != "" {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := FromViper(v)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8083")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("BASE_URL", "")
	v.SetDefault("UPLOAD_DIR", "./uploads")

	v.SetDefault("REGISTRY_DRIVER", RegistryMemory)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SQLITE_PATH", "kiosk.sqlite")
	v.SetDefault("SEED_DEMO_SESSIONS", true)
	v.SetDefault("CHECKLIST_FILE", "")

	v.SetDefault("BACKEND", BackendMock)
	v.SetDefault("MOCK_LATENCY_SCALE", 1.0)
	v.SetDefault("GOOGLE_CLOUD_PROJECT", "")
	v.SetDefault("GOOGLE_CLOUD_LOCATION", "us-central1")
	v.SetDefault("GOOGLE_APPLICATION_CREDENTIALS", "")
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash-001")
	v.SetDefault("TRANSCRIPTION_MIN_CONFIDENCE", 0.5)
	v.SetDefault("PIVOT_LANGUAGE", "en")
	v.SetDefault("RETRY_MAX_ATTEMPTS", 3)

	v.SetDefault("AUTH_CHALLENGE_TTL", "10m")
	v.SetDefault("AUTH_TOKEN_TTL", "12h")
	v.SetDefault("AUTH_MAX_ATTEMPTS", 5)
}

func FromViper(v *viper.Viper) Config {
	return Config{
		Port:           v.GetString("PORT"),
		AppEnv:         v.GetString("APP_ENV"),
		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		BaseURL:        strings.TrimRight(v.GetString("BASE_URL"), "/"),
		UploadDir:      v.GetString("UPLOAD_DIR"),

		RegistryDriver:   strings.ToLower(v.GetString("REGISTRY_DRIVER")),
		DatabaseURL:      v.GetString("DATABASE_URL"),
		SQLitePath:       v.GetString("SQLITE_PATH"),
		SeedDemoSessions: v.GetBool("SEED_DEMO_SESSIONS"),
		ChecklistFile:    v.GetString("CHECKLIST_FILE"),

		Backend:          strings.ToLower(v.GetString("BACKEND")),
		MockLatencyScale: v.GetFloat64("MOCK_LATENCY_SCALE"),
		GoogleProject:    v.GetString("GOOGLE_CLOUD_PROJECT"),
		GoogleLocation:   v.GetString("GOOGLE_CLOUD_LOCATION"),
		GoogleCreds:      v.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
		GeminiModel:      v.GetString("GEMINI_MODEL"),
		MinConfidence:    v.GetFloat64("TRANSCRIPTION_MIN_CONFIDENCE"),
		PivotLanguage:    languageCode(v.GetString("PIVOT_LANGUAGE")),
		RetryMaxAttempts: v.GetInt("RETRY_MAX_ATTEMPTS"),

		ChallengeTTL:    v.GetDuration("AUTH_CHALLENGE_TTL"),
		TokenTTL:        v.GetDuration("AUTH_TOKEN_TTL"),
		AuthMaxAttempts: v.GetInt("AUTH_MAX_ATTEMPTS"),
	}
}

func (c Config) Validate() error {
	var errs []error

	switch c.RegistryDriver {
	case RegistryMemory, RegistrySQLite:
	case RegistryPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres registry"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown REGISTRY_DRIVER %q", c.RegistryDriver))
	}

	switch c.Backend {
	case BackendMock:
	case BackendGemini:
		if c.GoogleProject == "" {
			errs = append(errs, errors.New("GOOGLE_CLOUD_PROJECT is required for the gemini backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown BACKEND %q", c.Backend))
	}

	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("TRANSCRIPTION_MIN_CONFIDENCE must be within [0,1], got %v", c.MinConfidence))
	}
	if c.RetryMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.RetryMaxAttempts))
	}
	if c.ChallengeTTL <= 0 || c.TokenTTL <= 0 {
		errs = append(errs, errors.New("AUTH_CHALLENGE_TTL and AUTH_TOKEN_TTL must be positive"))
	}
	if c.AuthMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("AUTH_MAX_ATTEMPTS must be at least 1, got %d", c.AuthMaxAttempts))
	}
	if _, ok := i18n.Lookup(c.PivotLanguage); !ok {
		errs = append(errs, fmt.Errorf("PIVOT_LANGUAGE %q is not a supported language", c.PivotLanguage))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}

	return errors.Join(errs...)
}

// languageCode maps a language code or name to its code. Unknown values are
// kept for Validate to report.
func languageCode(value string) string {
	if l, ok := i18n.Resolve(value); ok {
		return l.Code
	}
	return strings.TrimSpace(value)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
