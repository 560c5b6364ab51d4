package preview

import (
	"context"
	"time"

	"github.com/openmined/marksync/internal/bookmark"
	"github.com/openmined/marksync/internal/changes"
	"github.com/openmined/marksync/internal/conflict"
)

// SnapshotStore provides consistent reads of the three snapshots of a scope and
// applies the outcome of a cycle.
type SnapshotStore interface {
	LocalSnapshot(ctx context.Context) ([]*bookmark.Record, error)
	RemoteSnapshot(ctx context.Context) ([]*bookmark.Record, error)
	BaselineSnapshot(ctx context.Context) ([]*bookmark.Record, error)
	Commit(ctx context.Context, cs *changes.ChangeSet, resolutions []conflict.Resolution) error
}

// StoreResolver returns the snapshot store of a scope.
type StoreResolver func(scope string) (SnapshotStore, error)

// Static serves the same store for every scope.
func Static(store SnapshotStore) StoreResolver {
	return func(string) (SnapshotStore, error) {
		return store, nil
	}
}

type Details struct {
	// Conflicts are ordered high to low severity, then by id.
	Conflicts   []*conflict.Conflict   `json:"conflicts"`
	Added       []*bookmark.Record     `json:"added"`
	RemoteAdded []*bookmark.Record     `json:"remoteAdded"`
	Removed     []changes.Removal      `json:"removed"`
	Modified    []changes.ModifiedPair `json:"modified"`
	Unchanged   int                    `json:"unchanged"`
}

type Preview struct {
	Scope       string    `json:"scope"`
	GeneratedAt time.Time `json:"generatedAt"`
	Details     Details   `json:"details"`

	changes *changes.ChangeSet
}

// ChangeSet returns the diff the preview was built from.
func (p *Preview) ChangeSet() *changes.ChangeSet {
	return p.changes
}

// Result is what a caller renders. A failed preview carries Success false and a
// message instead of an error.
type Result struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Preview *Preview `json:"preview,omitempty"`
}
