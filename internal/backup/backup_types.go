package backup

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrInvalidBackup = errors.New("invalid backup record")
	ErrNotFound      = errors.New("backup not found")
)

// Type tells who created a backup. Manual backups are never trimmed by retention.
type Type string

const (
	TypeManual    Type = "manual"
	TypeScheduled Type = "scheduled"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Record describes one backup. Records are append-only: they are created once
// and only ever removed, either by retention or by an explicit delete.
type Record struct {
	ID         string    `json:"id" db:"id"`
	Type       Type      `json:"type" db:"type"`
	ScheduleID string    `json:"scheduleId,omitempty" db:"schedule_id"`
	Status     Status    `json:"status" db:"status"`
	Timestamp  time.Time `json:"timestamp" db:"-"`
	ContentRef string    `json:"contentRef" db:"content_ref"`
}

func (r *Record) Scheduled() bool {
	return r.Type == TypeScheduled
}

func (r *Record) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Validate checks a record before it is appended. ID and Timestamp may be empty; the store assigns them.
func Validate(r *Record) error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidBackup)
	}
	switch r.Type {
	case TypeManual, TypeScheduled:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidBackup, r.Type)
	}
	switch r.Status {
	case StatusSuccess, StatusFailed:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidBackup, r.Status)
	}
	if r.Type == TypeScheduled && r.ScheduleID == "" {
		return fmt.Errorf("%w: scheduled backup without schedule id", ErrInvalidBackup)
	}
	return nil
}

// sortOldestFirst orders records by timestamp. Equal timestamps keep log order.
func sortOldestFirst(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
}
