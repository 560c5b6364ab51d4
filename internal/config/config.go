package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/openmined/marksync/internal/blob"
	"github.com/openmined/marksync/internal/codec"
	"github.com/openmined/marksync/internal/conflict"
	"github.com/openmined/marksync/internal/snapshot"
	"github.com/openmined/marksync/internal/utils"
)

const (
	LogBackendSQLite = "sqlite"
	LogBackendObject = "object"
	LogBackendMemory = "memory"
)

var (
	home, _              = os.UserHomeDir()
	DefaultConfigPath    = filepath.Join(home, ".marksync", "config.json")
	DefaultDataDir       = filepath.Join(home, ".marksync")
	DefaultLogFilePath   = filepath.Join(home, ".marksync", "logs", "marksync.log")
	DefaultServerAddr    = "localhost:7939"
	DefaultCacheTTL      = 5 * time.Minute
	DefaultContentPrefix = "backups/"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
	// Scope is the default sync scope. Empty means this machine.
	Scope string `json:"scope,omitempty" mapstructure:"scope"`
	// LogBackend selects where the backup log lives: sqlite, object or memory.
	LogBackend       string        `json:"log_backend" mapstructure:"log_backend"`
	DBPath           string        `json:"db_path,omitempty" mapstructure:"db_path"`
	ObjectLogKey     string        `json:"object_log_key,omitempty" mapstructure:"object_log_key"`
	SchedulesFile    string        `json:"schedules_file,omitempty" mapstructure:"schedules_file"`
	DefaultRetention int           `json:"default_retention" mapstructure:"default_retention"`
	DefaultStrategy  string        `json:"default_strategy" mapstructure:"default_strategy"`
	PruneContent     bool          `json:"prune_content,omitempty" mapstructure:"prune_content"`
	// ContentPrefix is the object key prefix swept for content no backup references.
	ContentPrefix    string        `json:"content_prefix,omitempty" mapstructure:"content_prefix"`
	PolicyCacheTTL   time.Duration `json:"-" mapstructure:"policy_cache_ttl"`
	ServerAddr       string        `json:"server_addr" mapstructure:"server_addr"`
	AuthToken        string        `json:"-" mapstructure:"auth_token"`
	S3               blob.S3Config `json:"s3" mapstructure:"s3"`
	Path             string        `json:"-" mapstructure:"-"`
}

// Default returns a config with every optional field filled in.
func Default() *Config {
	return &Config{
		DataDir:          DefaultDataDir,
		LogBackend:       LogBackendSQLite,
		DefaultRetention: -1,
		DefaultStrategy:  string(conflict.StrategyMerge),
		PolicyCacheTTL:   DefaultCacheTTL,
		ContentPrefix:    DefaultContentPrefix,
		ServerAddr:       DefaultServerAddr,
		Path:             DefaultConfigPath,
	}
}

// Validate normalizes paths, fills derived defaults and rejects unusable values.
func (c *Config) Validate() error {
	var err error

	if c.DataDir, err = utils.ResolvePath(c.DataDir); err != nil {
		return fmt.Errorf("%w: data dir: %w", ErrInvalidConfig, err)
	}
	if c.Path != "" {
		if c.Path, err = utils.ResolvePath(c.Path); err != nil {
			return fmt.Errorf("%w: config path: %w", ErrInvalidConfig, err)
		}
	}

	if c.Scope == "" {
		if c.Scope, err = MachineScope(); err != nil {
			return fmt.Errorf("%w: default scope: %w", ErrInvalidConfig, err)
		}
	}
	if err := snapshot.ValidateScope(c.Scope); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	c.LogBackend = strings.ToLower(strings.TrimSpace(c.LogBackend))
	switch c.LogBackend {
	case "":
		c.LogBackend = LogBackendSQLite
	case LogBackendSQLite, LogBackendObject, LogBackendMemory:
	default:
		return fmt.Errorf("%w: unknown log backend %q", ErrInvalidConfig, c.LogBackend)
	}

	if c.LogBackend == LogBackendSQLite {
		if c.DBPath == "" {
			c.DBPath = filepath.Join(c.DataDir, "backups.db")
		} else if c.DBPath, err = utils.ResolvePath(c.DBPath); err != nil {
			return fmt.Errorf("%w: db path: %w", ErrInvalidConfig, err)
		}
	}

	if (c.LogBackend == LogBackendObject || c.PruneContent) && !c.S3.Enabled() {
		return fmt.Errorf("%w: s3 bucket required for the object log and content pruning", ErrInvalidConfig)
	}

	if c.ContentPrefix == "" {
		c.ContentPrefix = DefaultContentPrefix
	}

	if c.SchedulesFile != "" {
		if c.SchedulesFile, err = utils.ResolvePath(c.SchedulesFile); err != nil {
			return fmt.Errorf("%w: schedules file: %w", ErrInvalidConfig, err)
		}
	}
	if c.DefaultRetention < -1 {
		return fmt.Errorf("%w: default retention must be >= -1, got %d", ErrInvalidConfig, c.DefaultRetention)
	}

	if c.DefaultStrategy == "" {
		c.DefaultStrategy = string(conflict.StrategyMerge)
	}
	strategy, err := conflict.ParseStrategy(c.DefaultStrategy)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if !strategy.Automatic() {
		return fmt.Errorf("%w: default strategy %q cannot be applied in batch", ErrInvalidConfig, strategy)
	}

	if c.PolicyCacheTTL <= 0 {
		c.PolicyCacheTTL = DefaultCacheTTL
	}

	if c.ServerAddr == "" {
		c.ServerAddr = DefaultServerAddr
	}
	if _, _, err := net.SplitHostPort(c.ServerAddr); err != nil {
		return fmt.Errorf("%w: server addr: %w", ErrInvalidConfig, err)
	}

	return nil
}

// SnapshotDir is the root under which each scope keeps its snapshots.
func (c *Config) SnapshotDir() string {
	return filepath.Join(c.DataDir, "snapshots")
}

func (c *Config) Save() error {
	if c.Path == "" {
		return fmt.Errorf("%w: config path not set", ErrInvalidConfig)
	}
	data, err := codec.MarshalIndent(c)
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(c.Path, data)
}

func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := codec.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// MachineScope derives a stable scope name from the machine id.
func MachineScope() (string, error) {
	id, err := machineid.ProtectedID("marksync")
	if err != nil {
		return "", err
	}
	return "machine-" + id[:12], nil
}
