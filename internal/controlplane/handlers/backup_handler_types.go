package handlers

import (
	"time"

	"github.com/openmined/marksync/internal/backup"
)

type CreateBackupRequest struct {
	Type       backup.Type   `json:"type" binding:"required"`
	ScheduleID string        `json:"scheduleId"`
	Status     backup.Status `json:"status" binding:"required"`
	Timestamp  time.Time     `json:"timestamp"`
	ContentRef string        `json:"contentRef"`
}

type BackupListResponse struct {
	ScheduleID string           `json:"scheduleId,omitempty"`
	Backups    []*backup.Record `json:"backups"`
}

type EnforceRetentionRequest struct {
	ScheduleID string `json:"scheduleId" binding:"required"`
	// RetentionCount overrides the schedule's policy when set.
	RetentionCount *int `json:"retentionCount"`
}

type EnforceRetentionResponse struct {
	ScheduleID     string `json:"scheduleId"`
	RetentionCount int    `json:"retentionCount"`
	Removed        int    `json:"removed"`
}

type SweepContentRequest struct {
	// MinAge is a Go duration. Empty means one hour.
	MinAge string `json:"minAge"`
}

type SweepContentResponse struct {
	Prefix  string `json:"prefix"`
	MinAge  string `json:"minAge"`
	Removed int    `json:"removed"`
}
