package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openmined/marksync/internal/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoot() *cobra.Command {
	cmd := &cobra.Command{Use: "marksync"}
	cmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "")
	cmd.PersistentFlags().StringP("datadir", "d", config.DefaultDataDir, "")
	cmd.PersistentFlags().String("scope", "", "")
	cmd.PersistentFlags().String("log-backend", config.LogBackendSQLite, "")
	return cmd
}

func TestResolveConfigPath(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		t.Setenv("MARKSYNC_CONFIG_PATH", "/tmp/env.json")
		cmd := newTestRoot()
		require.NoError(t, cmd.PersistentFlags().Set("config", "/tmp/flag.json"))
		assert.Equal(t, "/tmp/flag.json", resolveConfigPath(cmd))
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("MARKSYNC_CONFIG_PATH", "/tmp/env.json")
		assert.Equal(t, "/tmp/env.json", resolveConfigPath(newTestRoot()))
	})
}

func TestLoadConfigEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MARKSYNC_CONFIG_PATH", filepath.Join(dir, "missing.json"))
	t.Setenv("MARKSYNC_DATA_DIR", dir)
	t.Setenv("MARKSYNC_SCOPE", "work")
	t.Setenv("MARKSYNC_LOG_BACKEND", "memory")
	t.Setenv("MARKSYNC_DEFAULT_RETENTION", "7")
	t.Setenv("MARKSYNC_DEFAULT_STRATEGY", "local-wins")
	t.Setenv("MARKSYNC_AUTH_TOKEN", "secret")
	t.Setenv("MARKSYNC_POLICY_CACHE_TTL", "30s")
	t.Setenv("MARKSYNC_S3_BUCKET", "bookmarks")

	cfg, err := loadConfig(newTestRoot())
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, "work", cfg.Scope)
	assert.Equal(t, config.LogBackendMemory, cfg.LogBackend)
	assert.Equal(t, 7, cfg.DefaultRetention)
	assert.Equal(t, "local-wins", cfg.DefaultStrategy)
	assert.Equal(t, "secret", cfg.AuthToken)
	assert.Equal(t, 30*time.Second, cfg.PolicyCacheTTL)
	assert.Equal(t, "bookmarks", cfg.S3.BucketName)
	assert.Equal(t, filepath.Join(dir, "missing.json"), cfg.Path)
}

func TestLoadConfigJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	data := `{
	"data_dir": "` + filepath.ToSlash(dir) + `",
	"scope": "laptop",
	"log_backend": "sqlite",
	"default_retention": 3,
	"default_strategy": "remote-wins",
	"server_addr": "127.0.0.1:9000"
}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cmd := newTestRoot()
	require.NoError(t, cmd.PersistentFlags().Set("config", path))
	require.NoError(t, cmd.PersistentFlags().Set("scope", "desktop"))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, "desktop", cfg.Scope, "flag overrides file")
	assert.Equal(t, 3, cfg.DefaultRetention)
	assert.Equal(t, "remote-wins", cfg.DefaultStrategy)
	assert.Equal(t, "127.0.0.1:9000", cfg.ServerAddr)
	assert.Equal(t, filepath.Join(cfg.DataDir, "backups.db"), cfg.DBPath)
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	cmd := newTestRoot()
	require.NoError(t, cmd.PersistentFlags().Set("config", path))

	_, err := loadConfig(cmd)
	require.Error(t, err)
}
