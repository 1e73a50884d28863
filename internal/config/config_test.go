package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "twmap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 1, cfg.Jobs)
	assert.Empty(t, cfg.Database)
	assert.True(t, cfg.S3.Secure)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
log_format: json
jobs: 8
database: results.db
verify_data: true
s3:
  endpoint: localhost:9000
  access_key: minioadmin
  secure: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 8, cfg.Jobs)
	assert.Equal(t, "results.db", cfg.Database)
	assert.True(t, cfg.VerifyData)
	assert.Equal(t, "localhost:9000", cfg.S3.Endpoint)
	assert.Equal(t, "minioadmin", cfg.S3.AccessKey)
	assert.False(t, cfg.S3.Secure)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("TWMAP_S3_SECRET_KEY", "hunter2")
	t.Setenv("TWMAP_JOBS", "3")

	cfg, err := Load(writeConfig(t, "s3:\n  endpoint: example.com\n"))
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.S3.SecretKey)
	assert.Equal(t, 3, cfg.Jobs)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"log level":  "log_level: loud\n",
		"log format": "log_format: xml\n",
		"jobs":       "jobs: 0\n",
		"yaml":       "jobs: [\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}
