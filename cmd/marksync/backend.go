package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openmined/marksync/internal/apiclient"
	"github.com/openmined/marksync/internal/app"
	"github.com/openmined/marksync/internal/backup"
	"github.com/openmined/marksync/internal/controlplane/handlers"
	"github.com/openmined/marksync/internal/preview"
	"github.com/spf13/cobra"
)

// backend is what the commands run against: the local data dir, or a running control plane.
type backend interface {
	Preview(ctx context.Context, scope string) (*preview.Result, error)
	Resolve(ctx context.Context, req *app.ResolveRequest) (*app.ResolveResult, error)
	ListBackups(ctx context.Context, scheduleID string) (*handlers.BackupListResponse, error)
	CreateBackup(ctx context.Context, req *handlers.CreateBackupRequest) (*backup.Record, error)
	DeleteBackup(ctx context.Context, id string) error
	EnforceRetention(ctx context.Context, req *handlers.EnforceRetentionRequest) (*handlers.EnforceRetentionResponse, error)
	SweepContent(ctx context.Context, req *handlers.SweepContentRequest) (*handlers.SweepContentResponse, error)
	Close() error
}

func openBackend(cmd *cobra.Command) (backend, error) {
	server, _ := cmd.Flags().GetString("server")
	if server != "" {
		token, _ := cmd.Flags().GetString("token")
		client, err := apiclient.New(server, token)
		if err != nil {
			return nil, err
		}
		return &remoteBackend{Client: client}, nil
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	return &localBackend{app: a}, nil
}

type remoteBackend struct {
	*apiclient.Client
}

func (r *remoteBackend) Close() error {
	return nil
}

type localBackend struct {
	app *app.App
}

func (l *localBackend) Preview(ctx context.Context, scope string) (*preview.Result, error) {
	if scope == "" {
		scope = l.app.Config().Scope
	}
	return l.app.Previews.Preview(ctx, scope), nil
}

func (l *localBackend) Resolve(ctx context.Context, req *app.ResolveRequest) (*app.ResolveResult, error) {
	return l.app.Resolve(ctx, *req)
}

func (l *localBackend) ListBackups(ctx context.Context, scheduleID string) (*handlers.BackupListResponse, error) {
	var records []*backup.Record
	var err error
	if scheduleID == "" {
		records, err = l.app.Backups.ListBackups(ctx)
	} else {
		records, err = l.app.Backups.GetBackupsBySchedule(ctx, scheduleID)
	}
	if err != nil {
		return nil, err
	}
	return &handlers.BackupListResponse{ScheduleID: scheduleID, Backups: records}, nil
}

func (l *localBackend) CreateBackup(ctx context.Context, req *handlers.CreateBackupRequest) (*backup.Record, error) {
	saved, err := l.app.Backups.SaveBackup(ctx, &backup.Record{
		Type:       req.Type,
		ScheduleID: req.ScheduleID,
		Status:     req.Status,
		Timestamp:  req.Timestamp,
		ContentRef: req.ContentRef,
	})
	if err != nil && saved != nil {
		return saved, fmt.Errorf("backup %s saved: %w", saved.ID, err)
	}
	return saved, err
}

func (l *localBackend) DeleteBackup(ctx context.Context, id string) error {
	return l.app.Backups.DeleteBackup(ctx, id)
}

func (l *localBackend) EnforceRetention(ctx context.Context, req *handlers.EnforceRetentionRequest) (*handlers.EnforceRetentionResponse, error) {
	if req.ScheduleID == "" {
		return nil, errors.New("schedule id required")
	}

	var count int
	if req.RetentionCount != nil {
		count = *req.RetentionCount
	} else {
		policy, err := l.app.Policy(ctx, req.ScheduleID)
		if err != nil {
			return nil, err
		}
		count = policy.RetentionCount
	}

	removed, err := l.app.Backups.EnforceRetentionPolicy(ctx, req.ScheduleID, count)
	if err != nil {
		return nil, err
	}
	return &handlers.EnforceRetentionResponse{
		ScheduleID:     req.ScheduleID,
		RetentionCount: count,
		Removed:        removed,
	}, nil
}

func (l *localBackend) SweepContent(ctx context.Context, req *handlers.SweepContentRequest) (*handlers.SweepContentResponse, error) {
	minAge := app.DefaultSweepMinAge
	if req.MinAge != "" {
		d, err := time.ParseDuration(req.MinAge)
		if err != nil {
			return nil, fmt.Errorf("min age: %w", err)
		}
		minAge = d
	}

	removed, err := l.app.SweepContent(ctx, minAge)
	if err != nil {
		return nil, err
	}
	return &handlers.SweepContentResponse{
		Prefix:  l.app.ContentPrefix(),
		MinAge:  minAge.String(),
		Removed: removed,
	}, nil
}

func (l *localBackend) Close() error {
	return l.app.Close()
}
