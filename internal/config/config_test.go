package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
env: dev
store:
  driver: redis
  key: team-profiles
  redis:
    addr: redis:6379
    prefix: "pk:"
http_server:
  address: 0.0.0.0:9090
  timeout: 5s
grpc:
  port: 50051
launcher:
  command: firefox
  args: ["-P", "{name}"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, DriverRedis, cfg.Store.Driver)
	assert.Equal(t, "team-profiles", cfg.Store.Key)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, "pk:", cfg.Store.Redis.Prefix)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTPServer.Address)
	assert.Equal(t, 5*time.Second, cfg.HTTPServer.Timeout)
	assert.Equal(t, 60*time.Second, cfg.HTTPServer.IdleTimeout)
	assert.Equal(t, int64(32<<20), cfg.HTTPServer.MaxImportSize)
	assert.Equal(t, 50051, cfg.GRPC.Port)
	assert.Equal(t, "firefox", cfg.Launcher.Command)
	assert.Equal(t, []string{"-P", "{name}"}, cfg.Launcher.Args)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "env: local\n"))
	require.NoError(t, err)

	assert.Equal(t, DriverFile, cfg.Store.Driver)
	assert.Equal(t, "profiles", cfg.Store.Key)
	assert.Equal(t, "./data", cfg.Store.Dir)
	assert.Equal(t, 44044, cfg.GRPC.Port)
	assert.Equal(t, []string{"-P", "{name}", "-no-remote"}, cfg.Launcher.Args)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("STORE_KEY", "from-env")

	cfg, err := Load(writeConfig(t, "store:\n  key: from-file\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Store.Key)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown driver", body: "store:\n  driver: s3\n"},
		{name: "postgres without dsn", body: "store:\n  driver: postgres\n"},
		{name: "watch on redis", body: "store:\n  driver: redis\n  watch: true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
