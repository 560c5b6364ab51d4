package handlers

import "github.com/gin-gonic/gin"

const (
	CodeOk                 string = "OK"
	ErrCodeBadRequest      string = "ERR_BAD_REQUEST"
	ErrCodeUnknownError    string = "ERR_UNKNOWN_ERROR"
	ErrCodeResolveFailed   string = "ERR_RESOLVE_FAILED"
	ErrCodeStalePreview    string = "ERR_STALE_PREVIEW"
	ErrCodeBackupFailed    string = "ERR_BACKUP_FAILED"
	ErrCodeBackupNotFound  string = "ERR_BACKUP_NOT_FOUND"
	ErrCodeRetentionFailed string = "ERR_RETENTION_FAILED"
)

type ControlPlaneResponse struct {
	Code string `json:"code"`
}

type ControlPlaneError struct {
	ErrorCode string `json:"code"`
	Error     string `json:"error"`
}

func AbortWithError(c *gin.Context, status int, code string, err error) {
	c.Abort()
	c.Error(err) //nolint:errcheck
	c.PureJSON(status, ControlPlaneError{
		ErrorCode: code,
		Error:     err.Error(),
	})
}
