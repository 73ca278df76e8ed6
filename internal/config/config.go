package config

import (
	"os"
	"strconv"
	"strings"
)

// Database backend selection values.
const (
	DatabaseMemory   = "memory"
	DatabaseFile     = "file"
	DatabasePostgres = "postgres"
)

// Storage backend selection values.
const (
	StorageFilesystem = "filesystem"
	StorageS3         = "s3"
)

// DatabaseConfig holds metadata persistence settings. Type selects the
// backend; the remaining fields apply to the backend they name.
type DatabaseConfig struct {
	Type     string // memory | file | postgres
	FilePath string // json database location for the file backend

	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	PingTimeoutSec     int // startup connectivity check; 0 uses the built-in default
}

// StorageConfig holds binary content adapter settings.
type StorageConfig struct {
	Type          string // filesystem | s3
	Path          string // filesystem root for objects
	ServePrefix   string // HTTP prefix static download URLs are built under
	MaxUploadSize int64  // bytes; uploads above this are rejected before any write
}

// MinIOConfig holds object storage settings for the S3-compatible backend.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// PaginationConfig bounds the public listing API.
type PaginationConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost     string
	Port        string
	CORSOrigins string
	LogLevel    string
	Database    DatabaseConfig
	Storage     StorageConfig
	MinIO       MinIOConfig
	Pagination  PaginationConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:     getEnv("APP_HOST", "localhost:8080"),
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Type:               getEnv("DB_TYPE", DatabaseMemory),
			FilePath:           getEnv("DB_FILE_PATH", "data/documents.json"),
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			PingTimeoutSec:     getEnvInt("DB_PING_TIMEOUT_SEC", 5),
		},
		Storage: StorageConfig{
			Type:          getEnv("STORAGE_TYPE", StorageFilesystem),
			Path:          getEnv("STORAGE_PATH", "data/uploads"),
			ServePrefix:   getEnv("STORAGE_SERVE_PREFIX", "/files"),
			MaxUploadSize: getEnvInt64("MAX_UPLOAD_SIZE", 50<<20),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Pagination: PaginationConfig{
			DefaultLimit: getEnvInt("PAGINATION_DEFAULT_LIMIT", 20),
			MaxLimit:     getEnvInt("PAGINATION_MAX_LIMIT", 100),
		},
	}
}

// CORSOriginList splits the configured origins into a trimmed list.
func (c *AppConfig) CORSOriginList() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
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

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}
