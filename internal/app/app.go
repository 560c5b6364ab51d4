package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openmined/marksync/internal/backup"
	"github.com/openmined/marksync/internal/blob"
	"github.com/openmined/marksync/internal/config"
	"github.com/openmined/marksync/internal/preview"
	"github.com/openmined/marksync/internal/schedule"
	"github.com/openmined/marksync/internal/snapshot"
)

// App wires the sync preview, conflict resolution and backup services from one config.
type App struct {
	config   *config.Config
	blob     blob.Client
	policies *schedule.Table
	cached   *schedule.Cached
	Backups  *backup.Store
	Previews *preview.Builder
}

type Option func(*options)

type options struct {
	blob blob.Client
}

// WithBlobClient replaces the S3 client built from the config.
func WithBlobClient(c blob.Client) Option {
	return func(o *options) {
		o.blob = c
	}
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	blobClient := o.blob
	if blobClient == nil && cfg.S3.Enabled() {
		s3c, err := blob.NewS3ClientWithConfig(ctx, &cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to create blob client: %w", err)
		}
		blobClient = s3c
	}

	policies, err := loadPolicies(cfg)
	if err != nil {
		return nil, err
	}
	cached := schedule.NewCached(policies, cfg.PolicyCacheTTL)

	log, err := openLog(ctx, cfg, blobClient)
	if err != nil {
		return nil, err
	}

	storeOpts := []backup.StoreOption{backup.WithPolicySource(cached)}
	if cfg.PruneContent && blobClient != nil {
		storeOpts = append(storeOpts, backup.WithContentStore(blobClient))
	}

	snapshotRoot := cfg.SnapshotDir()
	resolver := func(scope string) (preview.SnapshotStore, error) {
		return snapshot.Open(snapshotRoot, scope)
	}

	slog.Info("marksync init", "datadir", cfg.DataDir, "scope", cfg.Scope, "log", cfg.LogBackend, "schedules", len(policies.List()))

	return &App{
		config:   cfg,
		blob:     blobClient,
		policies: policies,
		cached:   cached,
		Backups:  backup.NewStore(log, storeOpts...),
		Previews: preview.NewBuilder(resolver),
	}, nil
}

func (a *App) Config() *config.Config {
	return a.config
}

// Policies lists the configured schedules.
func (a *App) Policies() []schedule.Policy {
	return a.policies.List()
}

// Policy returns the effective policy of a schedule, falling back to the default retention.
func (a *App) Policy(ctx context.Context, scheduleID string) (schedule.Policy, error) {
	return a.cached.Policy(ctx, scheduleID)
}

// DefaultSweepMinAge keeps content uploaded within the last hour out of a sweep.
const DefaultSweepMinAge = time.Hour

// SweepContent deletes unreferenced objects under the configured content prefix.
func (a *App) SweepContent(ctx context.Context, minAge time.Duration) (int, error) {
	return a.Backups.SweepContent(ctx, a.config.ContentPrefix, minAge)
}

// ContentPrefix is the object key prefix SweepContent works on.
func (a *App) ContentPrefix() string {
	return a.config.ContentPrefix
}

func (a *App) Close() error {
	return a.Backups.Close()
}

func loadPolicies(cfg *config.Config) (*schedule.Table, error) {
	table := schedule.NewTable()
	if cfg.SchedulesFile != "" {
		loaded, err := schedule.LoadFile(cfg.SchedulesFile)
		if err != nil {
			return nil, err
		}
		table = loaded
	}
	// a default_retention in the schedule file wins over the config value
	if !table.HasDefault() {
		table.WithDefault(cfg.DefaultRetention)
	}
	return table, nil
}

func openLog(ctx context.Context, cfg *config.Config, blobClient blob.Client) (backup.LogBackend, error) {
	switch cfg.LogBackend {
	case config.LogBackendObject:
		if blobClient == nil {
			return nil, fmt.Errorf("object log needs a blob client")
		}
		return backup.NewObjectLog(blobClient, cfg.ObjectLogKey), nil
	case config.LogBackendMemory:
		return backup.NewMemoryLog(), nil
	default:
		log, err := backup.OpenSQLiteLog(ctx, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open backup log: %w", err)
		}
		return log, nil
	}
}
