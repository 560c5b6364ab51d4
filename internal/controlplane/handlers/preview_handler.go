package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openmined/marksync/internal/app"
)

type PreviewHandler struct {
	app *app.App
}

func NewPreviewHandler(a *app.App) *PreviewHandler {
	return &PreviewHandler{app: a}
}

// Preview returns the dry-run plan of a scope. The scope query parameter defaults to the configured scope.
// A preview that could not be built is still a 200 with success false and a message.
func (h *PreviewHandler) Preview(c *gin.Context) {
	scope := c.DefaultQuery("scope", h.app.Config().Scope)

	result := h.app.Previews.Preview(c.Request.Context(), scope)
	c.PureJSON(http.StatusOK, result)
}
