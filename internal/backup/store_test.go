package backup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/openmined/marksync/internal/blob"
	"github.com/openmined/marksync/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRemover struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (r *recordingRemover) DeleteObject(_ context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	return r.err == nil, r.err
}

func (r *recordingRemover) ListObjects(context.Context, string) ([]*blob.ObjectInfo, error) {
	return nil, nil
}

type failingLog struct {
	*MemoryLog
	err error
}

func (f *failingLog) Remove(context.Context, []string) (int, error) {
	return 0, f.err
}

func sequentialIDs() func() (string, error) {
	var n int
	return func() (string, error) {
		n++
		return fmt.Sprintf("id-%03d", n), nil
	}
}

func TestStore_EnforceRetentionPolicy_Isolation(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog(fixture()...)
	store := NewStore(log)

	removed, err := store.EnforceRetentionPolicy(ctx, "A", 10)
	require.NoError(t, err)
	assert.Equal(t, 5, removed)

	a, err := store.GetBackupsBySchedule(ctx, "A")
	require.NoError(t, err)
	assert.Len(t, a, 10)
	assert.Equal(t, "a05", a[0].ID)

	b, err := store.GetBackupsBySchedule(ctx, "B")
	require.NoError(t, err)
	assert.Len(t, b, 8)

	all, err := store.ListBackups(ctx)
	require.NoError(t, err)
	var manuals int
	for _, r := range all {
		if r.Type == TypeManual {
			manuals++
		}
	}
	assert.Equal(t, 3, manuals)
}

func TestStore_EnforceRetentionPolicy_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryLog(fixture()...))

	removed, err := store.EnforceRetentionPolicy(ctx, "A", 10)
	require.NoError(t, err)
	assert.Equal(t, 5, removed)

	removed, err = store.EnforceRetentionPolicy(ctx, "A", 10)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestStore_EnforceRetentionPolicy_Unlimited(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog(fixture()...)
	store := NewStore(log)

	removed, err := store.EnforceRetentionPolicy(ctx, "A", schedule.Unlimited)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Zero(t, log.Writes())

	all, err := store.ListBackups(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 26)
}

func TestStore_EnforceRetentionPolicy_SingleWrite(t *testing.T) {
	log := NewMemoryLog(fixture()...)
	store := NewStore(log)

	_, err := store.EnforceRetentionPolicy(context.Background(), "A", 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, log.Writes())

	// nothing to do, nothing written
	_, err = store.EnforceRetentionPolicy(context.Background(), "A", 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, log.Writes())
}

func TestStore_EnforceRetentionPolicy_BackendError(t *testing.T) {
	boom := errors.New("disk full")
	log := &failingLog{MemoryLog: NewMemoryLog(fixture()...), err: boom}
	store := NewStore(log)

	removed, err := store.EnforceRetentionPolicy(context.Background(), "A", 10)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, removed)
}

func TestStore_EnforceRetentionPolicy_PrunesContent(t *testing.T) {
	remover := &recordingRemover{err: errors.New("unreachable")}
	store := NewStore(NewMemoryLog(fixture()...), WithContentStore(remover))

	// prune failures never fail the log write
	removed, err := store.EnforceRetentionPolicy(context.Background(), "A", 13)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"content/a00", "content/a01"}, remover.keys)
}

func TestStore_SaveBackup(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(NewMemoryLog(), WithIDGenerator(sequentialIDs()), WithClock(func() time.Time { return now }))

	saved, err := store.SaveBackup(ctx, &Record{Type: TypeManual, Status: StatusSuccess, ContentRef: "content/x"})
	require.NoError(t, err)
	assert.Equal(t, "id-001", saved.ID)
	assert.Equal(t, now, saved.Timestamp)

	explicit := now.Add(-time.Hour)
	saved, err = store.SaveBackup(ctx, &Record{ID: "mine", Type: TypeManual, Status: StatusFailed, Timestamp: explicit})
	require.NoError(t, err)
	assert.Equal(t, "mine", saved.ID)
	assert.Equal(t, explicit, saved.Timestamp)

	all, err := store.ListBackups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"mine", "id-001"}, ids(all))
}

func TestStore_SaveBackup_DefaultIDs(t *testing.T) {
	store := NewStore(NewMemoryLog())
	saved, err := store.SaveBackup(context.Background(), &Record{Type: TypeManual, Status: StatusSuccess})
	require.NoError(t, err)
	assert.Len(t, saved.ID, 36)
	assert.False(t, saved.Timestamp.IsZero())
}

func TestStore_SaveBackup_Invalid(t *testing.T) {
	log := NewMemoryLog()
	store := NewStore(log)

	tests := []struct {
		name string
		rec  *Record
	}{
		{"nil", nil},
		{"bad type", &Record{Type: "hourly", Status: StatusSuccess}},
		{"bad status", &Record{Type: TypeManual, Status: "pending"}},
		{"scheduled without schedule", &Record{Type: TypeScheduled, Status: StatusSuccess}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.SaveBackup(context.Background(), tt.rec)
			assert.ErrorIs(t, err, ErrInvalidBackup)
		})
	}
	assert.Zero(t, log.Writes())
}

func TestStore_SaveBackup_EnforcesPolicy(t *testing.T) {
	ctx := context.Background()
	policies := schedule.NewTable(schedule.Policy{ScheduleID: "daily", RetentionCount: 3})
	store := NewStore(NewMemoryLog(), WithPolicySource(policies), WithIDGenerator(sequentialIDs()))

	for i := 0; i < 5; i++ {
		_, err := store.SaveBackup(ctx, scheduled("", "daily", StatusSuccess, i))
		require.NoError(t, err)
	}
	_, err := store.SaveBackup(ctx, manual("", 0))
	require.NoError(t, err)

	daily, err := store.GetBackupsBySchedule(ctx, "daily")
	require.NoError(t, err)
	assert.Equal(t, []string{"id-003", "id-004", "id-005"}, ids(daily))

	// unknown schedules are saved untrimmed
	for i := 0; i < 3; i++ {
		_, err := store.SaveBackup(ctx, scheduled("", "adhoc", StatusSuccess, i))
		require.NoError(t, err)
	}
	adhoc, err := store.GetBackupsBySchedule(ctx, "adhoc")
	require.NoError(t, err)
	assert.Len(t, adhoc, 3)
}

func TestStore_SaveBackup_RetentionFailure(t *testing.T) {
	boom := errors.New("disk full")
	log := &failingLog{MemoryLog: NewMemoryLog(), err: boom}
	policies := schedule.NewTable().WithDefault(0)
	store := NewStore(log, WithPolicySource(policies))

	saved, err := store.SaveBackup(context.Background(), scheduled("", "daily", StatusSuccess, 1))
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, saved)
	assert.NotEmpty(t, saved.ID)
}

func TestStore_DeleteBackup(t *testing.T) {
	ctx := context.Background()
	remover := &recordingRemover{}
	store := NewStore(NewMemoryLog(fixture()...), WithContentStore(remover))

	require.NoError(t, store.DeleteBackup(ctx, "b03"))
	assert.Equal(t, []string{"content/b03"}, remover.keys)

	err := store.DeleteBackup(ctx, "b03")
	assert.ErrorIs(t, err, ErrNotFound)

	b, err := store.GetBackupsBySchedule(ctx, "B")
	require.NoError(t, err)
	assert.Len(t, b, 7)
}

func TestStore_ConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	policies := schedule.NewTable(schedule.Policy{ScheduleID: "A", RetentionCount: 4})
	store := NewStore(NewMemoryLog(), WithPolicySource(policies))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.SaveBackup(ctx, scheduled("", "A", StatusSuccess, i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	a, err := store.GetBackupsBySchedule(ctx, "A")
	require.NoError(t, err)
	assert.Len(t, a, 4)
}

func TestStore_SweepContent(t *testing.T) {
	ctx := context.Background()
	mem := blob.NewMemoryClient()
	store := NewStore(NewObjectLog(mem, "content/log.json"), WithContentStore(mem))

	_, err := store.SaveBackup(ctx, &Record{Type: TypeManual, Status: StatusSuccess, ContentRef: "content/kept"})
	require.NoError(t, err)
	for _, key := range []string{"content/kept", "content/orphan", "other/orphan"} {
		_, err := mem.PutObject(ctx, &blob.PutObjectParams{Key: key, Body: strings.NewReader(key), Size: int64(len(key))})
		require.NoError(t, err)
	}

	// too young to be swept
	removed, err := store.SweepContent(ctx, "content/", time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = store.SweepContent(ctx, "content/", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	objs, err := mem.ListObjects(ctx, "")
	require.NoError(t, err)
	keys := make([]string, len(objs))
	for i, o := range objs {
		keys[i] = o.Key
	}
	assert.Equal(t, []string{"content/kept", "content/log.json", "other/orphan"}, keys)

	_, err = store.SweepContent(ctx, "", 0)
	assert.ErrorIs(t, err, ErrNoPrefix)
	_, err = NewStore(NewMemoryLog()).SweepContent(ctx, "content/", 0)
	assert.ErrorIs(t, err, ErrNoContentStore)
}
