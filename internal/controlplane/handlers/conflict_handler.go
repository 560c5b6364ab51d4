package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openmined/marksync/internal/app"
	"github.com/openmined/marksync/internal/bookmark"
	"github.com/openmined/marksync/internal/conflict"
	"github.com/openmined/marksync/internal/snapshot"
)

type ConflictHandler struct {
	app *app.App
}

func NewConflictHandler(a *app.App) *ConflictHandler {
	return &ConflictHandler{app: a}
}

// Resolve runs one resolution pass over the conflicts of a scope and optionally commits it.
func (h *ConflictHandler) Resolve(c *gin.Context) {
	var req app.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err)
		return
	}

	result, err := h.app.Resolve(c.Request.Context(), req)
	if err != nil {
		switch {
		case isInputError(err):
			AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err)
		case errors.Is(err, snapshot.ErrStale):
			AbortWithError(c, http.StatusConflict, ErrCodeStalePreview, err)
		default:
			AbortWithError(c, http.StatusInternalServerError, ErrCodeResolveFailed, err)
		}
		return
	}

	c.PureJSON(http.StatusOK, result)
}

func isInputError(err error) bool {
	return errors.Is(err, conflict.ErrInvalidStrategy) ||
		errors.Is(err, conflict.ErrIDMismatch) ||
		errors.Is(err, conflict.ErrUnknownConflict) ||
		errors.Is(err, conflict.ErrInvalidTransition) ||
		errors.Is(err, bookmark.ErrInvalidRecord) ||
		errors.Is(err, snapshot.ErrInvalidScope)
}
