package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Repository and storage backend names.
const (
	RepositoryPostgres = "postgres"
	RepositoryMemory   = "memory"
	StorageMinIO       = "minio"
	StorageMock        = "mock"
)

// StorageConfig selects the object store backend once at startup.
type StorageConfig struct {
	Backend string
	// MockSecret signs mock storage URLs. Empty means a random per-process secret.
	MockSecret string
}

// VaultConfig holds the document vault rules. Immutable for the process lifetime.
type VaultConfig struct {
	AllowedMimeTypes  []string
	TextLikeMimeTypes []string
	MaxFileSize       int64
	UploadURLTTL      time.Duration
	DownloadURLTTL    time.Duration
	SniffBytes        int64
	DefaultPageSize   int
	MaxPageSize       int
	RecentDocuments   int
}

// DefaultAllowedMimeTypes are accepted when VAULT_ALLOWED_MIME_TYPES is unset.
var DefaultAllowedMimeTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"text/plain",
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost           string
	Port              string
	PublicBaseURL     string
	LogLevel          string
	RepositoryBackend string
	Database          DatabaseConfig
	MinIO             MinIOConfig
	Storage           StorageConfig
	Vault             VaultConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	port := getEnv("PORT", "8080")
	cfg := &AppConfig{
		AppHost:           getEnv("APP_HOST", "localhost:8080"),
		Port:              port,
		PublicBaseURL:     getEnv("PUBLIC_BASE_URL", "http://localhost:"+port),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		RepositoryBackend: getEnv("REPOSITORY_BACKEND", RepositoryPostgres),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			Region:    getEnv("MINIO_REGION", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Storage: StorageConfig{
			MockSecret: getEnv("MOCK_STORAGE_SECRET", ""),
		},
		Vault: VaultConfig{
			AllowedMimeTypes:  getEnvList("VAULT_ALLOWED_MIME_TYPES", DefaultAllowedMimeTypes),
			TextLikeMimeTypes: getEnvList("VAULT_TEXT_LIKE_MIME_TYPES", []string{"text/plain"}),
			MaxFileSize:       int64(getEnvInt("VAULT_MAX_FILE_SIZE", 10*1024*1024)),
			UploadURLTTL:      getEnvDuration("VAULT_UPLOAD_URL_TTL", 30*time.Minute),
			DownloadURLTTL:    getEnvDuration("VAULT_DOWNLOAD_URL_TTL", 60*time.Minute),
			SniffBytes:        int64(getEnvInt("VAULT_SNIFF_BYTES", 8192)),
			DefaultPageSize:   getEnvInt("VAULT_DEFAULT_PAGE_SIZE", 20),
			MaxPageSize:       getEnvInt("VAULT_MAX_PAGE_SIZE", 100),
			RecentDocuments:   getEnvInt("VAULT_RECENT_DOCUMENTS", 5),
		},
	}

	// Without an object store endpoint the mock backend is the only usable choice.
	defaultStorage := StorageMinIO
	if cfg.MinIO.Endpoint == "" {
		defaultStorage = StorageMock
	}
	cfg.Storage.Backend = getEnv("STORAGE_BACKEND", defaultStorage)

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil && d > 0 {
			return d
		}
	}
	return def
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
