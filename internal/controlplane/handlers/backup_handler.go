package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openmined/marksync/internal/app"
	"github.com/openmined/marksync/internal/backup"
	"github.com/openmined/marksync/internal/schedule"
)

type BackupHandler struct {
	app *app.App
}

func NewBackupHandler(a *app.App) *BackupHandler {
	return &BackupHandler{app: a}
}

// List returns the backups of one schedule, or every backup when no schedule is given. Oldest first.
func (h *BackupHandler) List(c *gin.Context) {
	scheduleID := c.Query("schedule")

	var records []*backup.Record
	var err error
	if scheduleID == "" {
		records, err = h.app.Backups.ListBackups(c.Request.Context())
	} else {
		records, err = h.app.Backups.GetBackupsBySchedule(c.Request.Context(), scheduleID)
	}
	if err != nil {
		AbortWithError(c, http.StatusInternalServerError, ErrCodeBackupFailed, err)
		return
	}

	c.PureJSON(http.StatusOK, &BackupListResponse{ScheduleID: scheduleID, Backups: records})
}

// Create records a finished backup and trims its schedule.
func (h *BackupHandler) Create(c *gin.Context) {
	var req CreateBackupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err)
		return
	}

	saved, err := h.app.Backups.SaveBackup(c.Request.Context(), &backup.Record{
		Type:       req.Type,
		ScheduleID: req.ScheduleID,
		Status:     req.Status,
		Timestamp:  req.Timestamp,
		ContentRef: req.ContentRef,
	})
	switch {
	case errors.Is(err, backup.ErrInvalidBackup):
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err)
		return
	case err != nil && saved != nil:
		AbortWithError(c, http.StatusInternalServerError, ErrCodeRetentionFailed, fmt.Errorf("backup %s saved: %w", saved.ID, err))
		return
	case err != nil:
		AbortWithError(c, http.StatusInternalServerError, ErrCodeBackupFailed, err)
		return
	}

	c.PureJSON(http.StatusCreated, saved)
}

func (h *BackupHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	err := h.app.Backups.DeleteBackup(c.Request.Context(), id)
	if errors.Is(err, backup.ErrNotFound) {
		AbortWithError(c, http.StatusNotFound, ErrCodeBackupNotFound, err)
		return
	} else if err != nil {
		AbortWithError(c, http.StatusInternalServerError, ErrCodeBackupFailed, err)
		return
	}

	c.PureJSON(http.StatusOK, &ControlPlaneResponse{Code: CodeOk})
}

// EnforceRetention trims a schedule to an explicit count or to its configured policy.
func (h *BackupHandler) EnforceRetention(c *gin.Context) {
	var req EnforceRetentionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err)
		return
	}

	var count int
	if req.RetentionCount != nil {
		count = *req.RetentionCount
	} else {
		policy, err := h.app.Policy(c.Request.Context(), req.ScheduleID)
		if errors.Is(err, schedule.ErrUnknownSchedule) {
			AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err)
			return
		} else if err != nil {
			AbortWithError(c, http.StatusInternalServerError, ErrCodeRetentionFailed, err)
			return
		}
		count = policy.RetentionCount
	}

	removed, err := h.app.Backups.EnforceRetentionPolicy(c.Request.Context(), req.ScheduleID, count)
	if err != nil {
		AbortWithError(c, http.StatusInternalServerError, ErrCodeRetentionFailed, err)
		return
	}

	c.PureJSON(http.StatusOK, &EnforceRetentionResponse{
		ScheduleID:     req.ScheduleID,
		RetentionCount: count,
		Removed:        removed,
	})
}

// SweepContent deletes stored content that no backup record references.
func (h *BackupHandler) SweepContent(c *gin.Context) {
	var req SweepContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err)
		return
	}

	minAge := app.DefaultSweepMinAge
	if req.MinAge != "" {
		d, err := time.ParseDuration(req.MinAge)
		if err != nil || d < 0 {
			AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Errorf("invalid min age %q", req.MinAge))
			return
		}
		minAge = d
	}

	removed, err := h.app.SweepContent(c.Request.Context(), minAge)
	if errors.Is(err, backup.ErrNoContentStore) {
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err)
		return
	} else if err != nil {
		AbortWithError(c, http.StatusInternalServerError, ErrCodeBackupFailed, err)
		return
	}

	c.PureJSON(http.StatusOK, &SweepContentResponse{
		Prefix:  h.app.ContentPrefix(),
		MinAge:  minAge.String(),
		Removed: removed,
	})
}
