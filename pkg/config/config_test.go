package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndNestedSections(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret-value")
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("CREDENTIAL_LENGTH", "6")
	t.Setenv("EVENTBUS_DRIVER", "redis")

	cfg, err := Load("definitely-missing.env")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "test-secret-value", cfg.Auth.Jwt.Secret)
	assert.Equal(t, 15*time.Minute, cfg.Auth.Jwt.Expiry)
	assert.Equal(t, 6, cfg.Credential.Length)
	assert.Equal(t, 10, cfg.Ledger.HistoryDefaultLimit)
	assert.Equal(t, 100, cfg.Ledger.HistoryMaxLimit)
	assert.Equal(t, "redis", cfg.EventBus.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
	assert.True(t, cfg.DB.Migrate)
	assert.False(t, cfg.SeedDemo)
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	_ = os.Unsetenv("AUTH_JWT_SECRET")

	_, err := Load("definitely-missing.env")
	assert.Error(t, err)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env.unit")
	require.NoError(t, os.WriteFile(path, []byte("AUTH_JWT_SECRET=from-file-secret\nSEED_DEMO=true\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Cleanup(func() {
		_ = os.Unsetenv("AUTH_JWT_SECRET")
		_ = os.Unsetenv("SEED_DEMO")
	})

	cfg, err := Load(".env.unit")
	require.NoError(t, err)
	assert.Equal(t, "from-file-secret", cfg.Auth.Jwt.Secret)
	assert.True(t, cfg.SeedDemo)
}

func TestFindEnvTest(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.find"), nil, 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	found, err := FindEnvTest(".env.find")
	require.NoError(t, err)
	assert.Equal(t, ".env.find", filepath.Base(found))

	_, err = FindEnvTest(".env.nowhere-to-be-found")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMaskValue(t *testing.T) {
	assert.Equal(t, "", maskValue(""))
	assert.Equal(t, "****", maskValue("abc"))
	assert.Equal(t, "po****able", maskValue("postgres://u:p@h/db?sslmode=disable"))
}
