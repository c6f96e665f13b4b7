package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Wikid82/warden/internal/version"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check responds with service metadata for uptime checks. It reports 503
// when the database cannot be reached.
func (h *HealthHandler) Check(c *gin.Context) {
	status, code, database := "ok", http.StatusOK, "ok"
	if err := h.ping(c.Request.Context()); err != nil {
		status, code, database = "degraded", http.StatusServiceUnavailable, "unavailable"
	}

	c.JSON(code, gin.H{
		"status":     status,
		"service":    version.Name,
		"version":    version.Version,
		"git_commit": version.GitCommit,
		"build_time": version.BuildTime,
		"database":   database,
	})
}

func (h *HealthHandler) ping(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
