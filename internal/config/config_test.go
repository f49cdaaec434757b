package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Address)
	assert.Equal(t, BackendMemory, cfg.DocumentBackend)
	assert.Equal(t, NotifyDirect, cfg.NotifyMode)
	assert.Equal(t, 1025, cfg.SMTPPort)
	assert.Equal(t, 10*time.Second, cfg.EmailWait)
	assert.False(t, cfg.KafkaEnabled())
}

func TestLoad_FromEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "DOCUMENT_BACKEND=Postgres\nADMIN_EMAILS=a@example.com,b@example.com\nKAFKA_BROKERS=k1:9092,k2:9092\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("ENV_FILE", path)

	// godotenv does not override variables that are already set
	t.Cleanup(func() {
		os.Unsetenv("DOCUMENT_BACKEND")
		os.Unsetenv("ADMIN_EMAILS")
		os.Unsetenv("KAFKA_BROKERS")
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.DocumentBackend)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.AdminEmails)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
}

func TestRequireJWTSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"empty", "", true},
		{"short", "short-secret", true},
		{"exactly 32", "0123456789abcdef0123456789abcdef", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{JWTSecret: tt.secret}
			err := cfg.RequireJWTSecret()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrWeakJWTSecret)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
