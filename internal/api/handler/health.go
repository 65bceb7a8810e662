package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/verustcode/materiality/consts"
	"github.com/verustcode/materiality/internal/report"
	"github.com/verustcode/materiality/internal/store"
)

// HealthHandler reports service readiness
type HealthHandler struct {
	store  store.Store
	tables report.TablesSource
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(s store.Store, tables report.TablesSource) *HealthHandler {
	return &HealthHandler{store: s, tables: tables}
}

// Health handles GET /api/v1/health. The service is degraded (503) while the
// database is unreachable or no mapping tables are loaded.
func (h *HealthHandler) Health(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{"database": "ok", "mappings": "ok"}

	if err := h.ping(); err != nil {
		status = http.StatusServiceUnavailable
		checks["database"] = err.Error()
	}
	if h.tables == nil || h.tables.Tables() == nil {
		status = http.StatusServiceUnavailable
		checks["mappings"] = "not loaded"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":  state,
		"build":  consts.BuildInfo(),
		"uptime": consts.GetUptime().Round(time.Second).String(),
		"checks": checks,
	})
}

func (h *HealthHandler) ping() error {
	sqlDB, err := h.store.DB().DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
