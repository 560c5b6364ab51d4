package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/openmined/marksync/internal/blob"
	"github.com/openmined/marksync/internal/schedule"
)

var (
	ErrNoContentStore = errors.New("backup content store not configured")
	ErrNoPrefix       = errors.New("content prefix required")
)

// PolicySource looks up the retention policy of a schedule.
type PolicySource interface {
	Policy(ctx context.Context, scheduleID string) (schedule.Policy, error)
}

// ContentStore holds the backup content a record's ContentRef points at.
type ContentStore interface {
	DeleteObject(ctx context.Context, key string) (bool, error)
	ListObjects(ctx context.Context, prefix string) ([]*blob.ObjectInfo, error)
}

type StoreOption func(*Store)

func WithPolicySource(source PolicySource) StoreOption {
	return func(s *Store) {
		s.policies = source
	}
}

// WithContentStore prunes the ContentRef of every record removed by retention or delete,
// and enables SweepContent.
func WithContentStore(content ContentStore) StoreOption {
	return func(s *Store) {
		s.content = content
	}
}

func WithIDGenerator(fn func() (string, error)) StoreOption {
	return func(s *Store) {
		s.newID = fn
	}
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// Store is the backup metadata store. It owns the log backend and serializes
// every mutation of it.
type Store struct {
	log      LogBackend
	policies PolicySource
	content  ContentStore
	newID    func() (string, error)
	now      func() time.Time
	mu       sync.Mutex
}

func NewStore(log LogBackend, opts ...StoreOption) *Store {
	s := &Store{
		log:   log,
		newID: newUUIDv7,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// SaveBackup appends rec to the log and, for scheduled backups, trims the schedule
// to its retention policy. When trimming fails the saved record is still returned
// alongside the error.
func (s *Store) SaveBackup(ctx context.Context, rec *Record) (*Record, error) {
	if err := Validate(rec); err != nil {
		return nil, err
	}

	saved := *rec
	if saved.ID == "" {
		id, err := s.newID()
		if err != nil {
			return nil, fmt.Errorf("generate backup id: %w", err)
		}
		saved.ID = id
	}
	if saved.Timestamp.IsZero() {
		saved.Timestamp = s.now()
	}

	s.mu.Lock()
	err := s.log.Append(ctx, &saved)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("save backup: %w", err)
	}
	slog.Info("backup", "op", "save", "id", saved.ID, "type", saved.Type, "schedule", saved.ScheduleID, "status", saved.Status)

	if !saved.Scheduled() || s.policies == nil {
		return &saved, nil
	}

	policy, err := s.policies.Policy(ctx, saved.ScheduleID)
	if errors.Is(err, schedule.ErrUnknownSchedule) {
		slog.Warn("backup", "op", "retention", "schedule", saved.ScheduleID, "error", err)
		return &saved, nil
	} else if err != nil {
		return &saved, fmt.Errorf("retention policy for %s: %w", saved.ScheduleID, err)
	}

	if _, err := s.EnforceRetentionPolicy(ctx, saved.ScheduleID, policy.RetentionCount); err != nil {
		return &saved, err
	}
	return &saved, nil
}

// GetBackupsBySchedule returns every record of scheduleID, oldest first.
func (s *Store) GetBackupsBySchedule(ctx context.Context, scheduleID string) ([]*Record, error) {
	records, err := s.log.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	out := make([]*Record, 0, len(records))
	for _, r := range records {
		if r.ScheduleID == scheduleID {
			out = append(out, r)
		}
	}
	sortOldestFirst(out)
	return out, nil
}

// ListBackups returns the whole log, oldest first.
func (s *Store) ListBackups(ctx context.Context) ([]*Record, error) {
	records, err := s.log.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	sortOldestFirst(records)
	return records, nil
}

// DeleteBackup removes a single record regardless of its type.
func (s *Store) DeleteBackup(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.log.List(ctx)
	if err != nil {
		return fmt.Errorf("list backups: %w", err)
	}

	var target *Record
	for _, r := range records {
		if r.ID == id {
			target = r
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if _, err := s.log.Remove(ctx, []string{id}); err != nil {
		return fmt.Errorf("delete backup %s: %w", id, err)
	}
	slog.Info("backup", "op", "delete", "id", id)

	s.pruneContent(ctx, []*Record{target})
	return nil
}

// EnforceRetentionPolicy trims scheduleID down to its newest retentionCount successful
// backups and returns how many records were removed. A negative count means unlimited
// and returns before touching the log.
func (s *Store) EnforceRetentionPolicy(ctx context.Context, scheduleID string, retentionCount int) (int, error) {
	if retentionCount < 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.log.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("retention %s: %w", scheduleID, err)
	}

	expired := selectExpired(records, scheduleID, retentionCount)
	if len(expired) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	ids := make([]string, len(expired))
	for i, r := range expired {
		ids[i] = r.ID
	}

	removed, err := s.log.Remove(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("retention %s: %w", scheduleID, err)
	}
	slog.Info("backup", "op", "retention", "schedule", scheduleID, "keep", retentionCount, "removed", removed)

	s.pruneContent(ctx, expired)
	return removed, nil
}

// SweepContent deletes objects under prefix that no record references and that
// are at least minAge old. The age guard leaves content alone whose record is
// still being saved. It returns how many objects were deleted.
func (s *Store) SweepContent(ctx context.Context, prefix string, minAge time.Duration) (int, error) {
	if s.content == nil {
		return 0, ErrNoContentStore
	}
	if prefix == "" {
		return 0, ErrNoPrefix
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.log.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("sweep %s: %w", prefix, err)
	}
	referenced := mapset.NewThreadUnsafeSetWithSize[string](len(records))
	for _, r := range records {
		if r.ContentRef != "" {
			referenced.Add(r.ContentRef)
		}
	}
	if keyed, ok := s.log.(interface{ Key() string }); ok {
		referenced.Add(keyed.Key())
	}

	objects, err := s.content.ListObjects(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("sweep %s: %w", prefix, err)
	}

	cutoff := s.now().Add(-minAge)
	removed := 0
	for _, obj := range objects {
		if referenced.Contains(obj.Key) || obj.LastModified.After(cutoff) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if _, err := s.content.DeleteObject(ctx, obj.Key); err != nil {
			slog.Warn("backup", "op", "sweep", "key", obj.Key, "error", err)
			continue
		}
		removed++
	}

	slog.Info("backup", "op", "sweep", "prefix", prefix, "objects", len(objects), "removed", removed)
	return removed, nil
}

func (s *Store) Close() error {
	return s.log.Close()
}

// pruneContent deletes stored content of removed records. Failures are logged only;
// the log write has already happened.
func (s *Store) pruneContent(ctx context.Context, records []*Record) {
	if s.content == nil {
		return
	}
	for _, r := range records {
		if r.ContentRef == "" {
			continue
		}
		if _, err := s.content.DeleteObject(ctx, r.ContentRef); err != nil {
			slog.Warn("backup", "op", "prune", "id", r.ID, "ref", r.ContentRef, "error", err)
		}
	}
}
