package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/materiality/internal/content"
	"github.com/verustcode/materiality/internal/report"
	"github.com/verustcode/materiality/internal/selection"
	"github.com/verustcode/materiality/internal/store"
	"github.com/verustcode/materiality/pkg/errors"
	"github.com/verustcode/materiality/pkg/logger"
)

// OptionsHandler serves the choices each questionnaire page offers
type OptionsHandler struct {
	tables report.TablesSource
	repo   content.Repository
	store  store.Store
}

// NewOptionsHandler creates a new options handler
func NewOptionsHandler(tables report.TablesSource, repo content.Repository, s store.Store) *OptionsHandler {
	return &OptionsHandler{tables: tables, repo: repo, store: s}
}

// ReportTypes handles GET /api/v1/options/report-types
func (h *OptionsHandler) ReportTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": selection.ReportTypes()})
}

// Institutions handles GET /api/v1/options/institutions
func (h *OptionsHandler) Institutions(c *gin.Context) {
	tables, ok := requireTables(c, h.tables)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tables.Institutions()})
}

// Steps handles GET /api/v1/options/steps?report_type=&institution=
func (h *OptionsHandler) Steps(c *gin.Context) {
	rt, err := selection.ParseReportType(c.Query("report_type"))
	if err != nil {
		abortWithError(c, errors.New(errors.ErrCodeValidation, err.Error()))
		return
	}
	tables, ok := requireTables(c, h.tables)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": selection.Steps(rt, c.Query("institution"), tables)})
}

// Exposures handles GET /api/v1/options/exposures/:exposure?institution=&session_id=
// With a session id the stored ratings become the defaults.
func (h *OptionsHandler) Exposures(c *gin.Context) {
	tables, ok := requireTables(c, h.tables)
	if !ok {
		return
	}
	exposure := c.Param("exposure")
	institution := c.Query("institution")

	var stored []selection.Record
	if sessionID := c.Query("session_id"); sessionID != "" {
		sel, err := h.store.Selection().Load(sessionID)
		if err != nil {
			abortWithError(c, errors.Wrap(errors.ErrCodeDBQuery, "failed to load selections", err))
			return
		}
		stored = sel.Get(exposure)
	}

	items := selection.ExposureItems(tables, institution, exposure, stored)
	if len(items) == 0 {
		abortWithError(c, errors.New(errors.ErrCodeNotFound, "exposure has no rows for this institution").
			WithDetails(map[string]string{"exposure": exposure, "institution": institution}))
		return
	}
	c.JSON(http.StatusOK, gin.H{"exposure": exposure, "data": items})
}

// Sectors handles GET /api/v1/options/sectors
// Labels come from the sector files' names; unreadable files fall back to the mapping's sector.
func (h *OptionsHandler) Sectors(c *gin.Context) {
	tables, ok := requireTables(c, h.tables)
	if !ok {
		return
	}

	cache := content.NewCache(h.repo)
	displayName := func(file string) string {
		entry, err := content.LoadEntry(c.Request.Context(), cache, content.CategoryExposureClass, file)
		if err != nil {
			logger.Debug("Sector file unavailable for label", zap.String("file", file), zap.Error(err))
			return ""
		}
		return entry.Name
	}

	c.JSON(http.StatusOK, gin.H{"data": selection.SectorGroups(tables, displayName)})
}

// Scenarios handles GET /api/v1/options/scenarios
func (h *OptionsHandler) Scenarios(c *gin.Context) {
	tables, ok := requireTables(c, h.tables)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tables.ScenarioNames()})
}

// MaterialityOption is one rating with its display colour
type MaterialityOption struct {
	Label selection.Materiality `json:"label"`
	Color string                `json:"color"`
}

// Materiality handles GET /api/v1/options/materiality
func (h *OptionsHandler) Materiality(c *gin.Context) {
	all := selection.Materialities()
	out := make([]MaterialityOption, len(all))
	for i, m := range all {
		out[i] = MaterialityOption{Label: m, Color: m.Color()}
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}
