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
	t.Setenv("GRAYLAKE_AUTH_JWT_SECRET", "test-secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "localhost", cfg.Database.Postgres.Host)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.NATS.Enabled)
	assert.Equal(t, 168*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 256, cfg.Detection.QueueSize)
	assert.Equal(t, 2, cfg.Detection.Workers)
	assert.Equal(t, 60*time.Second, cfg.Detection.Window)
	assert.Equal(t, 5, cfg.Detection.Threshold)
	assert.Equal(t, 10, cfg.Detection.MaxMatchedLogs)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("GRAYLAKE_AUTH_JWT_SECRET", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GRAYLAKE_AUTH_JWT_SECRET", "test-secret")
	t.Setenv("GRAYLAKE_SERVER_PORT", "9090")
	t.Setenv("GRAYLAKE_DETECTION_THRESHOLD", "3")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Detection.Threshold)
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Setenv("GRAYLAKE_AUTH_JWT_SECRET", "test-secret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7070
database:
  postgres:
    host: db.internal
    database: graylake_prod
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	assert.Equal(t, "graylake_prod", cfg.Database.Postgres.Database)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("GRAYLAKE_AUTH_JWT_SECRET", "test-secret")

	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestPostgresConnString(t *testing.T) {
	p := PostgresConfig{
		Host: "localhost", Port: 5432, User: "graylake",
		Password: "pw", Database: "graylake", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://graylake:pw@localhost:5432/graylake?sslmode=disable", p.ConnString())
}
