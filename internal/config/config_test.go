package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	// Save current env and restore later
	origHost := os.Getenv("DB_HOST")
	defer os.Setenv("DB_HOST", origHost)

	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_MAX_OPEN_CONNS", "20")
	os.Setenv("MINIO_USE_SSL", "true")
	os.Setenv("DB_TYPE", "postgres")
	os.Setenv("STORAGE_PATH", "/srv/uploads")
	os.Setenv("MAX_UPLOAD_SIZE", "1048576")
	os.Setenv("DB_PING_TIMEOUT_SEC", "15")
	defer func() {
		os.Unsetenv("DB_TYPE")
		os.Unsetenv("STORAGE_PATH")
		os.Unsetenv("MAX_UPLOAD_SIZE")
		os.Unsetenv("DB_PING_TIMEOUT_SEC")
	}()

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, DatabasePostgres, cfg.Database.Type)
	assert.Equal(t, "/srv/uploads", cfg.Storage.Path)
	assert.Equal(t, int64(1048576), cfg.Storage.MaxUploadSize)
	assert.Equal(t, 15, cfg.Database.PingTimeoutSec)
	assert.Equal(t, 20, cfg.Pagination.DefaultLimit)
	assert.Equal(t, 100, cfg.Pagination.MaxLimit)
}

func TestCORSOriginList(t *testing.T) {
	cfg := &AppConfig{CORSOrigins: "http://localhost:3000, https://docs.example.com ,"}
	assert.Equal(t, []string{"http://localhost:3000", "https://docs.example.com"}, cfg.CORSOriginList())
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}

func TestGetEnvInt64(t *testing.T) {
	key := "TEST_INT64_VAR"

	os.Setenv(key, "5368709120")
	assert.Equal(t, int64(5368709120), getEnvInt64(key, 0))

	os.Unsetenv(key)
	assert.Equal(t, int64(7), getEnvInt64(key, 7))
}
