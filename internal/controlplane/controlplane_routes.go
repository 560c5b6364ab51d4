package controlplane

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openmined/marksync/internal/app"
	"github.com/openmined/marksync/internal/controlplane/handlers"
	"github.com/openmined/marksync/internal/controlplane/middleware"
	"github.com/openmined/marksync/internal/version"
)

func SetupRoutes(a *app.App, cfg *Config) (http.Handler, error) {
	r := gin.New()

	previewH := handlers.NewPreviewHandler(a)
	conflictH := handlers.NewConflictHandler(a)
	backupH := handlers.NewBackupHandler(a)
	statusH := handlers.NewStatusHandler(a)

	r.Use(middleware.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.SecureHeaders())
	r.Use(middleware.CORS())
	r.Use(middleware.Gzip())
	if cfg.RateLimit != "" {
		limit, err := middleware.RateLimiter(cfg.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("rate limit %q: %w", cfg.RateLimit, err)
		}
		r.Use(limit)
	}

	r.GET("/", IndexHandler)
	r.GET("/healthz", HealthHandler)

	v1 := r.Group("/v1")
	v1.Use(middleware.TokenAuth(middleware.TokenAuthConfig{Token: cfg.AuthToken}))
	{
		v1.GET("/status", statusH.Status)
		v1.GET("/preview", previewH.Preview)
		v1.POST("/conflicts/resolve", conflictH.Resolve)

		v1.GET("/backups", backupH.List)
		v1.POST("/backups", backupH.Create)
		v1.POST("/backups/sweep", backupH.SweepContent)
		v1.DELETE("/backups/:id", backupH.Delete)

		v1.POST("/retention/enforce", backupH.EnforceRetention)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "not found",
		})
	})

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error": "method not allowed",
		})
	})

	return r.Handler(), nil
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

func IndexHandler(c *gin.Context) {
	c.JSON(http.StatusOK, version.Current())
}

func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
