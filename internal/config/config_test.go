package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"database": {"driver": "sqlite", "dsn": "file:test.db"},
		"jwt_secret": "secret",
		"port": 8080,
		"file_store": {"type": "local", "data": {"dir": "/tmp/blobs"}}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, DriverSQLite, cfg.Database.Driver)
	require.Equal(t, "http://127.0.0.1:8080", cfg.BaseURL)
	require.Equal(t, 4, cfg.Share.PasswordMinLength)
	require.Equal(t, 50, cfg.Share.PasswordMaxLength)
	require.Equal(t, 32, cfg.Share.TokenBytes)
	require.Equal(t, 3, cfg.Share.IssueAttempts)
	require.Positive(t, cfg.Share.VerifyConcurrency)
	require.Equal(t, "0 3 * * *", cfg.Cleanup.Spec)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.EqualValues(t, 100*1024*1024, cfg.UploadMaxBytes)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "missing secret",
			body: `{"database":{"driver":"sqlite","dsn":"x"},"port":1,"file_store":{"data":{}}}`,
		},
		{
			name: "unknown driver",
			body: `{"database":{"driver":"mysql","dsn":"x"},"jwt_secret":"s","port":1,"file_store":{"data":{}}}`,
		},
		{
			name: "short token",
			body: `{"database":{"driver":"sqlite","dsn":"x"},"jwt_secret":"s","port":1,"file_store":{"data":{}},"share":{"token_bytes":8}}`,
		},
		{
			name: "inverted password bounds",
			body: `{"database":{"driver":"sqlite","dsn":"x"},"jwt_secret":"s","port":1,"file_store":{"data":{}},"share":{"password_min_length":10,"password_max_length":5}}`,
		},
		{
			name: "negative retention",
			body: `{"database":{"driver":"sqlite","dsn":"x"},"jwt_secret":"s","port":1,"file_store":{"data":{}},"cleanup":{"retain_days":-1}}`,
		},
		{
			name: "unknown store",
			body: `{"database":{"driver":"sqlite","dsn":"x"},"jwt_secret":"s","port":1,"file_store":{"type":"ftp","data":{}}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestDefaultShareConfig(t *testing.T) {
	cfg := DefaultShareConfig()
	require.NoError(t, cfg.validate())
	require.Equal(t, 300, cfg.DownloadURLTTLSec)
	require.Equal(t, 1024, cfg.FileCacheSize)
}
