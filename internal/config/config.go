package config

import (
	"os"
	"strconv"
)

// Storage backends.
const (
	StorageLocal = "local"
	StorageMinIO = "minio"
)

// Index backends.
const (
	IndexMemory   = "memory"
	IndexPostgres = "postgres"
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
	Prefix    string
	UseSSL    bool
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string
	Format string // "json" or "console"
	File   string // optional rotating log file
}

// DatasetConfig tunes the catalog service.
type DatasetConfig struct {
	StorageBackend  string
	UploadDir       string
	IndexBackend    string
	PreviewRows     int
	CacheSize       int
	CacheTTLSec     int
	ListConcurrency int
	BodyLimitMB     int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	Log      LogConfig
	Dataset  DatasetConfig
	Database DatabaseConfig
	MinIO    MinIOConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", ""),
		},
		Dataset: DatasetConfig{
			StorageBackend:  getEnv("STORAGE_BACKEND", StorageLocal),
			UploadDir:       getEnv("UPLOAD_DIR", "public/uploads/datasets"),
			IndexBackend:    getEnv("INDEX_BACKEND", IndexMemory),
			PreviewRows:     getEnvInt("DATASET_PREVIEW_ROWS", 3),
			CacheSize:       getEnvInt("DATASET_CACHE_SIZE", 128),
			CacheTTLSec:     getEnvInt("DATASET_CACHE_TTL_SEC", 300),
			ListConcurrency: getEnvInt("LIST_CONCURRENCY", 8),
			BodyLimitMB:     getEnvInt("BODY_LIMIT_MB", 512),
		},
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
			Prefix:    getEnv("MINIO_PREFIX", "datasets"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
	}
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
