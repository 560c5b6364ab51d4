package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/openmined/marksync/internal/bookmark"
	"github.com/openmined/marksync/internal/changes"
	"github.com/openmined/marksync/internal/codec"
	"github.com/openmined/marksync/internal/conflict"
	"github.com/openmined/marksync/internal/utils"
)

// Kind names one of the snapshot files of a scope.
type Kind string

const (
	KindLocal    Kind = "local"
	KindRemote   Kind = "remote"
	KindBaseline Kind = "baseline"

	lockFile      = "snapshots.lock"
	lockRetryWait = 50 * time.Millisecond
)

var (
	ErrInvalidScope = errors.New("invalid scope")
	ErrStale        = errors.New("snapshots changed since the preview")
)

// FileStore keeps the snapshots of one scope as JSON arrays under a directory:
//
//	<root>/<scope>/local.json
//	<root>/<scope>/remote.json
//	<root>/<scope>/baseline.json
//
// A missing file reads as an empty snapshot. Commit holds a file lock so two
// processes never interleave their writes.
type FileStore struct {
	dir   string
	flock *flock.Flock
}

func Open(root, scope string) (*FileStore, error) {
	if err := ValidateScope(scope); err != nil {
		return nil, err
	}
	root, err := utils.ResolvePath(root)
	if err != nil {
		return nil, fmt.Errorf("resolve snapshot root: %w", err)
	}
	dir := filepath.Join(root, scope)
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create snapshot dir %s: %w", dir, err)
	}
	return &FileStore{
		dir:   dir,
		flock: flock.New(filepath.Join(dir, lockFile)),
	}, nil
}

// ValidateScope rejects scopes that cannot be used as a single directory name.
func ValidateScope(scope string) error {
	if scope == "" || scope == "." || scope == ".." || strings.ContainsAny(scope, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
	return nil
}

func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) LocalSnapshot(ctx context.Context) ([]*bookmark.Record, error) {
	return s.Read(ctx, KindLocal)
}

func (s *FileStore) RemoteSnapshot(ctx context.Context) ([]*bookmark.Record, error) {
	return s.Read(ctx, KindRemote)
}

func (s *FileStore) BaselineSnapshot(ctx context.Context) ([]*bookmark.Record, error) {
	return s.Read(ctx, KindBaseline)
}

// Read loads and validates one snapshot.
func (s *FileStore) Read(ctx context.Context, kind Kind) ([]*bookmark.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.path(kind)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []*bookmark.Record{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("read %s snapshot: %w", kind, err)
	}

	var records []*bookmark.Record
	if err := codec.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s snapshot: %w", kind, err)
	}
	if err := bookmark.ValidateAll(records); err != nil {
		return nil, fmt.Errorf("%s snapshot: %w", kind, err)
	}
	return records, nil
}

// Write replaces one snapshot. It is used to import snapshots handed over by the browser side.
func (s *FileStore) Write(ctx context.Context, kind Kind, records []*bookmark.Record) error {
	if err := bookmark.ValidateAll(records); err != nil {
		return fmt.Errorf("%s snapshot: %w", kind, err)
	}
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()
	return s.write(kind, records)
}

// Commit applies a sync cycle to the stored snapshots. The change set must still
// match the stored snapshots; otherwise nothing is written and ErrStale is returned.
func (s *FileStore) Commit(ctx context.Context, cs *changes.ChangeSet, resolutions []conflict.Resolution) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	var current Set
	var err error
	if current.Local, err = s.Read(ctx, KindLocal); err != nil {
		return err
	}
	if current.Remote, err = s.Read(ctx, KindRemote); err != nil {
		return err
	}
	if current.Baseline, err = s.Read(ctx, KindBaseline); err != nil {
		return err
	}

	if !changes.Diff(current.Local, current.Remote, current.Baseline).Equal(cs) {
		return fmt.Errorf("%w: %s", ErrStale, s.dir)
	}

	next := Apply(current, cs, resolutions)

	// baseline last: a crash in between leaves a baseline that still describes the previous cycle
	if err := s.write(KindLocal, next.Local); err != nil {
		return err
	}
	if err := s.write(KindRemote, next.Remote); err != nil {
		return err
	}
	if err := s.write(KindBaseline, next.Baseline); err != nil {
		return err
	}

	slog.Info("snapshot", "op", "commit", "dir", s.dir,
		"local", len(next.Local), "remote", len(next.Remote), "baseline", len(next.Baseline))
	return nil
}

func (s *FileStore) write(kind Kind, records []*bookmark.Record) error {
	if records == nil {
		records = []*bookmark.Record{}
	}
	data, err := codec.MarshalIndent(records)
	if err != nil {
		return fmt.Errorf("encode %s snapshot: %w", kind, err)
	}
	if err := utils.WriteFileAtomic(s.path(kind), data); err != nil {
		return fmt.Errorf("write %s snapshot: %w", kind, err)
	}
	return nil
}

func (s *FileStore) lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	locked, err := s.flock.TryLockContext(ctx, lockRetryWait)
	if err != nil {
		return fmt.Errorf("lock snapshots: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock snapshots: %s is held by another process", s.flock.Path())
	}
	return nil
}

func (s *FileStore) unlock() {
	if err := s.flock.Unlock(); err != nil {
		slog.Warn("snapshot", "op", "unlock", "path", s.flock.Path(), "error", err)
	}
}

func (s *FileStore) path(kind Kind) string {
	return filepath.Join(s.dir, string(kind)+".json")
}
