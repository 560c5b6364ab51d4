package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openmined/marksync/internal/bookmark"
	"github.com/openmined/marksync/internal/changes"
	"github.com/openmined/marksync/internal/conflict"
	"golang.org/x/sync/errgroup"
)

var ErrScopeMismatch = errors.New("session belongs to another scope")

// Builder produces dry-run sync plans. Only Commit writes.
type Builder struct {
	stores StoreResolver
	now    func() time.Time
}

func NewBuilder(stores StoreResolver) *Builder {
	return &Builder{
		stores: stores,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Preview diffs the snapshots of scope and classifies every modified pair.
// Failures are reported in the result, never returned.
func (b *Builder) Preview(ctx context.Context, scope string) *Result {
	p, err := b.build(ctx, scope)
	if err != nil {
		slog.Error("preview", "scope", scope, "error", err)
		return &Result{Success: false, Message: err.Error()}
	}
	return &Result{Success: true, Preview: p}
}

// NewSession builds a preview and opens a resolution session over its conflicts.
func (b *Builder) NewSession(ctx context.Context, scope string) (*Preview, *conflict.Session, error) {
	p, err := b.build(ctx, scope)
	if err != nil {
		return nil, nil, err
	}
	return p, conflict.NewSession(scope, p.Details.Conflicts), nil
}

// Commit hands the preview's changes and the session's resolutions to the snapshot store.
// Conflicts still pending stay diverged until a later cycle.
func (b *Builder) Commit(ctx context.Context, p *Preview, session *conflict.Session) error {
	if session != nil && session.Scope() != p.Scope {
		return fmt.Errorf("%w: %s != %s", ErrScopeMismatch, session.Scope(), p.Scope)
	}

	store, err := b.stores(p.Scope)
	if err != nil {
		return fmt.Errorf("snapshot store for %s: %w", p.Scope, err)
	}

	var resolutions []conflict.Resolution
	if session != nil {
		resolutions = session.Resolutions()
	}
	if err := store.Commit(ctx, p.changes, resolutions); err != nil {
		return fmt.Errorf("commit %s: %w", p.Scope, err)
	}

	slog.Info("preview", "op", "commit", "scope", p.Scope, "resolved", len(resolutions),
		"added", len(p.changes.Added), "remoteAdded", len(p.changes.RemoteAdded), "removed", len(p.changes.Removed))
	return nil
}

func (b *Builder) build(ctx context.Context, scope string) (*Preview, error) {
	store, err := b.stores(scope)
	if err != nil {
		return nil, fmt.Errorf("snapshot store for %s: %w", scope, err)
	}

	var local, remote, baseline []*bookmark.Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		local, err = store.LocalSnapshot(gctx)
		if err != nil {
			return fmt.Errorf("local snapshot: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		remote, err = store.RemoteSnapshot(gctx)
		if err != nil {
			return fmt.Errorf("remote snapshot: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		baseline, err = store.BaselineSnapshot(gctx)
		if err != nil {
			return fmt.Errorf("baseline snapshot: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := validate(local, remote, baseline); err != nil {
		return nil, err
	}

	cs := changes.Diff(local, remote, baseline)
	conflicts := conflict.ClassifyAll(cs)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slog.Debug("preview", "scope", scope, "added", len(cs.Added), "remoteAdded", len(cs.RemoteAdded),
		"removed", len(cs.Removed), "modified", len(cs.Modified), "conflicts", len(conflicts))

	return &Preview{
		Scope:       scope,
		GeneratedAt: b.now(),
		Details: Details{
			Conflicts:   conflicts,
			Added:       cs.Added,
			RemoteAdded: cs.RemoteAdded,
			Removed:     cs.Removed,
			Modified:    cs.Modified,
			Unchanged:   cs.Unchanged,
		},
		changes: cs,
	}, nil
}

func validate(local, remote, baseline []*bookmark.Record) error {
	if err := bookmark.ValidateAll(local); err != nil {
		return fmt.Errorf("local snapshot: %w", err)
	}
	if err := bookmark.ValidateAll(remote); err != nil {
		return fmt.Errorf("remote snapshot: %w", err)
	}
	if err := bookmark.ValidateAll(baseline); err != nil {
		return fmt.Errorf("baseline snapshot: %w", err)
	}
	return nil
}
