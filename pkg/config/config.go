package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env  string
	Port int

	Upstream  UpstreamConfig
	Search    SearchConfig
	Catalogs  CatalogConfig
	Documents DocumentConfig
	Session   SessionConfig
	Audit     AuditConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Export    ExportConfig
}

// UpstreamConfig points the gateway at the EDMS backend origin.
type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SearchConfig tunes the debounced search sources.
type SearchConfig struct {
	DebounceInterval time.Duration
	PageSize         int
}

// CatalogConfig controls catalog caching.
type CatalogConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// DocumentConfig governs attachment validation on the form engine.
type DocumentConfig struct {
	AllowedMIMEs     []string
	MaxFileSizeBytes int64
}

// SessionConfig verifies the backend-issued session token.
type SessionConfig struct {
	Secret             string
	CookieName         string
	EditorMinimumLevel int
}

// AuditConfig toggles the gateway-side audit trail.
type AuditConfig struct {
	Enabled bool
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ExportConfig toggles dashboard list exports.
type ExportConfig struct {
	Enabled bool
	Title   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.Upstream = UpstreamConfig{
		BaseURL: strings.TrimRight(v.GetString("UPSTREAM_BASE_URL"), "/"),
		Timeout: parseDuration(v.GetString("UPSTREAM_TIMEOUT"), 30*time.Second),
	}

	cfg.Search = SearchConfig{
		DebounceInterval: parseDuration(v.GetString("SEARCH_DEBOUNCE"), 300*time.Millisecond),
		PageSize:         v.GetInt("SEARCH_PAGE_SIZE"),
	}

	cfg.Catalogs = CatalogConfig{
		CacheEnabled: v.GetBool("CATALOG_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("CATALOG_CACHE_TTL"), 10*time.Minute),
	}

	maxFileSize := v.GetInt64("DOCUMENT_MAX_FILE_SIZE")
	if maxFileSize <= 0 {
		maxFileSize = 10 * 1024 * 1024
	}
	cfg.Documents = DocumentConfig{
		AllowedMIMEs:     splitAndTrim(v.GetString("DOCUMENT_ALLOWED_MIME_TYPES")),
		MaxFileSizeBytes: maxFileSize,
	}

	cfg.Session = SessionConfig{
		Secret:             v.GetString("SESSION_SECRET"),
		CookieName:         v.GetString("SESSION_COOKIE_NAME"),
		EditorMinimumLevel: v.GetInt("SESSION_EDITOR_MIN_LEVEL"),
	}

	cfg.Audit = AuditConfig{
		Enabled: v.GetBool("ENABLE_AUDIT"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Export = ExportConfig{
		Enabled: v.GetBool("ENABLE_EXPORT"),
		Title:   v.GetString("EXPORT_TITLE"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)

	v.SetDefault("UPSTREAM_BASE_URL", "")
	v.SetDefault("UPSTREAM_TIMEOUT", "30s")

	v.SetDefault("SEARCH_DEBOUNCE", "300ms")
	v.SetDefault("SEARCH_PAGE_SIZE", 20)

	v.SetDefault("CATALOG_CACHE_ENABLED", false)
	v.SetDefault("CATALOG_CACHE_TTL", "10m")

	v.SetDefault("DOCUMENT_ALLOWED_MIME_TYPES", "image/jpeg,image/png,application/pdf")
	v.SetDefault("DOCUMENT_MAX_FILE_SIZE", 10*1024*1024)

	v.SetDefault("SESSION_SECRET", "")
	v.SetDefault("SESSION_COOKIE_NAME", "edms_session")
	v.SetDefault("SESSION_EDITOR_MIN_LEVEL", 2)

	v.SetDefault("ENABLE_AUDIT", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "edms_gateway")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_EXPORT", true)
	v.SetDefault("EXPORT_TITLE", "Employee Document Archive")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
