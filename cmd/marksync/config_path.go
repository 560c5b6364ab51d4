package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openmined/marksync/internal/config"
	"github.com/openmined/marksync/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var home, _ = os.UserHomeDir()

// resolveConfigPath determines which config file path to use, honoring (in order):
// 1) An explicitly set --config flag
// 2) MARKSYNC_CONFIG_PATH environment variable
// 3) Existing config files in common locations
// 4) The default path
func resolveConfigPath(cmd *cobra.Command) string {
	if cfgFlag := cmd.Flag("config"); cfgFlag != nil && cfgFlag.Changed {
		return cfgFlag.Value.String()
	}

	if envPath := os.Getenv("MARKSYNC_CONFIG_PATH"); envPath != "" {
		return envPath
	}

	candidates := []string{
		config.DefaultConfigPath,
		filepath.Join(home, ".config", "marksync", "config.json"),
	}

	for _, candidate := range candidates {
		if utils.FileExists(candidate) {
			return candidate
		}
	}

	return config.DefaultConfigPath
}

// loadConfig layers defaults, the config file, MARKSYNC_* env vars and flags, in
// increasing priority. The result is not validated yet.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()

	defaults := config.Default()
	v.SetDefault("data_dir", defaults.DataDir)
	v.SetDefault("scope", defaults.Scope)
	v.SetDefault("log_backend", defaults.LogBackend)
	v.SetDefault("db_path", defaults.DBPath)
	v.SetDefault("object_log_key", defaults.ObjectLogKey)
	v.SetDefault("schedules_file", defaults.SchedulesFile)
	v.SetDefault("default_retention", defaults.DefaultRetention)
	v.SetDefault("default_strategy", defaults.DefaultStrategy)
	v.SetDefault("prune_content", defaults.PruneContent)
	v.SetDefault("content_prefix", defaults.ContentPrefix)
	v.SetDefault("policy_cache_ttl", defaults.PolicyCacheTTL)
	v.SetDefault("server_addr", defaults.ServerAddr)
	v.SetDefault("auth_token", defaults.AuthToken)
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.accelerate", false)

	configPath := resolveConfigPath(cmd)
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, ok := err.(viper.ConfigFileNotFoundError)
		if !enoent && !ok {
			return nil, fmt.Errorf("config read '%s': %w", configPath, err)
		}
	}

	v.SetEnvPrefix("MARKSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindFlag(v, cmd, "data_dir", "datadir")
	bindFlag(v, cmd, "scope", "scope")
	bindFlag(v, cmd, "log_backend", "log-backend")

	cfg := config.Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	cfg.Path = configPath
	return cfg, nil
}

// bindFlag only lets a flag override the file and env when it was set explicitly.
func bindFlag(v *viper.Viper, cmd *cobra.Command, key, name string) {
	if f := cmd.Flag(name); f != nil && f.Changed {
		v.Set(key, f.Value.String())
	}
}
