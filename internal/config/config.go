package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/HimanshuPBohra/chatbotfrontend/internal/hrms"
)

type Config struct {
	Port          string
	AllowedOrigin string
	LogLevel      string
	LogConsole    bool
	// HRMS backend
	BackendURL  string
	HRMSTimeout time.Duration
	UserID      string
	OAuth       hrms.CredentialsConfig
	// Database (optional submission audit)
	DatabaseURL   string
	MigrationsDir string
	AutoMigrate   bool
	// Conversation
	PromptsFile string
	SessionTTL  time.Duration
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Port:          getEnvDefault("PORT", "8080"),
		AllowedOrigin: getEnvDefault("ALLOWED_ORIGIN", "*"),
		LogLevel:      getEnvDefault("LOG_LEVEL", "info"),
		LogConsole:    getEnvBoolDefault("LOG_CONSOLE", false),
		BackendURL:    getEnvDefault("HRMS_BACKEND_URL", "http://127.0.0.1:5000"),
		HRMSTimeout:   getEnvDurationDefault("HRMS_TIMEOUT", 20*time.Second),
		UserID:        getEnvDefault("HRMS_USER_ID", "169"),
		OAuth: hrms.CredentialsConfig{
			TokenURL:     os.Getenv("HRMS_OAUTH_TOKEN_URL"),
			ClientID:     os.Getenv("HRMS_OAUTH_CLIENT_ID"),
			ClientSecret: os.Getenv("HRMS_OAUTH_CLIENT_SECRET"),
			Scopes:       getEnvListDefault("HRMS_OAUTH_SCOPES", nil),
		},
		DatabaseURL:   os.Getenv("DB_URL"),
		MigrationsDir: getEnvDefault("MIGRATIONS_DIR", "./migrations"),
		AutoMigrate:   getEnvBoolDefault("DB_AUTO_MIGRATE", true),
		PromptsFile:   os.Getenv("PROMPTS_FILE"),
		SessionTTL:    getEnvDurationDefault("SESSION_TTL", 15*time.Minute),
	}
	return cfg
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvListDefault(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			s := strings.TrimSpace(p)
			if s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

// getEnvDurationDefault accepts Go durations ("30s") or a bare number of
// seconds.
func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if d, err := time.ParseDuration(v + "s"); err == nil && d > 0 {
		return d
	}
	log.Warn().Str("key", key).Str("value", v).Msg("invalid duration, using default")
	return def
}
