package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openmined/marksync/internal/bookmark"
	"github.com/openmined/marksync/internal/changes"
	"github.com/openmined/marksync/internal/conflict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(id, title, url string, modified int64) *bookmark.Record {
	return &bookmark.Record{
		ID:           id,
		Title:        title,
		URL:          url,
		ParentID:     "root",
		DateAdded:    time.Unix(1_700_000_000, 0).UTC(),
		DateModified: time.Unix(1_700_000_000+modified, 0).UTC(),
		Kind:         bookmark.KindLeaf,
	}
}

func recordIDs(records []*bookmark.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestOpen_Scope(t *testing.T) {
	root := t.TempDir()

	for _, scope := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := Open(root, scope)
		assert.ErrorIs(t, err, ErrInvalidScope, scope)
	}

	s, err := Open(root, "laptop")
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(root, "laptop"))
	assert.Equal(t, filepath.Join(root, "laptop"), s.Dir())
}

func TestFileStore_ReadMissing(t *testing.T) {
	s, err := Open(t.TempDir(), "laptop")
	require.NoError(t, err)

	records, err := s.BaselineSnapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFileStore_WriteRead(t *testing.T) {
	ctx := context.Background()
	s, err := Open(t.TempDir(), "laptop")
	require.NoError(t, err)

	in := []*bookmark.Record{leaf("b", "B", "https://b", 0), leaf("a", "A", "https://a", 0)}
	require.NoError(t, s.Write(ctx, KindLocal, in))

	out, err := s.LocalSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFileStore_RejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s, err := Open(t.TempDir(), "laptop")
	require.NoError(t, err)

	err = s.Write(ctx, KindLocal, []*bookmark.Record{leaf("a", "A", "", 0), leaf("a", "A", "", 0)})
	assert.ErrorIs(t, err, bookmark.ErrInvalidRecord)

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "remote.json"), []byte(`[{"id":"","kind":"leaf"}]`), 0o644))
	_, err = s.RemoteSnapshot(ctx)
	assert.ErrorIs(t, err, bookmark.ErrInvalidRecord)

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "remote.json"), []byte(`{not json`), 0o644))
	_, err = s.RemoteSnapshot(ctx)
	assert.Error(t, err)
}

func TestFileStore_Commit(t *testing.T) {
	ctx := context.Background()
	s, err := Open(t.TempDir(), "laptop")
	require.NoError(t, err)

	base := []*bookmark.Record{leaf("keep", "Keep", "https://k", 0), leaf("edit", "Old", "https://e", 0), leaf("gone", "Gone", "https://g", 0)}
	local := []*bookmark.Record{leaf("keep", "Keep", "https://k", 0), leaf("edit", "Local", "https://e", 10), leaf("new", "New", "https://n", 0)}
	remote := []*bookmark.Record{leaf("keep", "Keep", "https://k", 0), leaf("edit", "Remote", "https://e", 20), leaf("gone", "Gone", "https://g", 0)}
	require.NoError(t, s.Write(ctx, KindBaseline, base))
	require.NoError(t, s.Write(ctx, KindLocal, local))
	require.NoError(t, s.Write(ctx, KindRemote, remote))

	cs := changes.Diff(local, remote, base)
	conflicts := conflict.ClassifyAll(cs)
	require.Len(t, conflicts, 1)
	res, err := conflict.Resolve(conflicts[0], conflict.StrategyMerge)
	require.NoError(t, err)

	require.NoError(t, s.Commit(ctx, cs, []conflict.Resolution{res}))

	gotLocal, err := s.LocalSnapshot(ctx)
	require.NoError(t, err)
	gotRemote, err := s.RemoteSnapshot(ctx)
	require.NoError(t, err)
	gotBase, err := s.BaselineSnapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"edit", "keep", "new"}, recordIDs(gotLocal))
	assert.Equal(t, gotLocal, gotRemote)
	assert.Equal(t, gotLocal, gotBase)
	assert.Equal(t, "Remote", gotLocal[0].Title)

	// a second cycle finds nothing to do
	again := changes.Diff(gotLocal, gotRemote, gotBase)
	assert.False(t, again.HasChanges())
}

func TestFileStore_CommitStale(t *testing.T) {
	ctx := context.Background()
	s, err := Open(t.TempDir(), "laptop")
	require.NoError(t, err)

	local := []*bookmark.Record{leaf("a", "A", "https://a", 0), leaf("b", "B", "https://b", 0)}
	require.NoError(t, s.Write(ctx, KindLocal, local))
	cs := changes.Diff(local, nil, nil)
	require.Len(t, cs.Added, 2)

	// "b" deleted locally after the preview was built
	require.NoError(t, s.Write(ctx, KindLocal, local[:1]))

	err = s.Commit(ctx, cs, nil)
	require.ErrorIs(t, err, ErrStale)

	remote, err := s.RemoteSnapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, remote)
}

func TestFileStore_CommitCancelled(t *testing.T) {
	s, err := Open(t.TempDir(), "laptop")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, s.Commit(ctx, changes.NewChangeSet(), nil))
}
