package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/materiality/internal/api/middleware"
	"github.com/verustcode/materiality/internal/check"
	"github.com/verustcode/materiality/internal/content"
	"github.com/verustcode/materiality/internal/mapping"
	"github.com/verustcode/materiality/pkg/errors"
	"github.com/verustcode/materiality/pkg/logger"
)

// AdminHandler serves the maintenance endpoints behind JWT auth
type AdminHandler struct {
	mappings *mapping.Store
	repo     content.Repository
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(mappings *mapping.Store, repo content.Repository) *AdminHandler {
	return &AdminHandler{mappings: mappings, repo: repo}
}

// MappingSummary describes the loaded mapping snapshot
type MappingSummary struct {
	Source          string `json:"source"`
	ExportedAt      string `json:"exported_at,omitempty"`
	LoadedAt        string `json:"loaded_at"`
	Exposures       int    `json:"exposures"`
	Scenarios       int    `json:"scenarios"`
	OutputStructure int    `json:"output_structure"`
}

func summarize(t *mapping.Tables) MappingSummary {
	return MappingSummary{
		Source:          t.Source,
		ExportedAt:      t.ExportedAt,
		LoadedAt:        t.LoadedAt.Format("2006-01-02T15:04:05Z07:00"),
		Exposures:       len(t.Exposures),
		Scenarios:       len(t.Scenarios),
		OutputStructure: len(t.OutputStructure),
	}
}

// ReloadMappings handles POST /api/v1/admin/mappings/reload.
// A failed reload keeps the previous tables in service.
func (h *AdminHandler) ReloadMappings(c *gin.Context) {
	tables, err := h.mappings.Reload(c.Request.Context())
	if err != nil {
		abortWithError(c, errors.Wrap(errors.ErrCodeMappingInvalid, "mapping reload failed, previous tables kept", err).
			WithDetails(map[string]string{"path": h.mappings.Path()}))
		return
	}
	if tables == nil {
		abortWithError(c, errors.New(errors.ErrCodeMappingNotFound, "mapping tables are not loaded"))
		return
	}

	logger.Info("Mappings reloaded by admin",
		zap.String("username", c.GetString(middleware.ContextUsername)),
		zap.String("source", tables.Source),
	)
	c.JSON(http.StatusOK, summarize(tables))
}

// Coverage handles GET /api/v1/admin/coverage
func (h *AdminHandler) Coverage(c *gin.Context) {
	tables, ok := requireTables(c, h.mappings)
	if !ok {
		return
	}
	coverage := check.Audit(c.Request.Context(), tables, h.repo)
	c.JSON(http.StatusOK, gin.H{
		"mappings":     summarize(tables),
		"errors":       coverage.Count(check.SeverityError),
		"warnings":     coverage.Count(check.SeverityWarning),
		"unreferenced": coverage.Count(check.SeverityInfo),
		"coverage":     coverage,
	})
}
