package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/materiality/internal/check"
	"github.com/verustcode/materiality/internal/mapping"
	"github.com/verustcode/materiality/pkg/errors"
)

func TestAdminHandler_Coverage(t *testing.T) {
	env := newTestEnv(t)

	var resp struct {
		Errors   int            `json:"errors"`
		Warnings int            `json:"warnings"`
		Coverage check.Coverage `json:"coverage"`
	}
	w := env.do(http.MethodGet, "/admin/coverage", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	DecodeJSON(t, w, &resp)
	assert.Zero(t, resp.Errors)
	assert.Equal(t, 3, resp.Coverage.FilesChecked)
}

func TestAdminHandler_Coverage_MissingFile(t *testing.T) {
	tables := testTables()
	tables.Exposures = append(tables.Exposures, mapping.ExposureRow{
		Institution: "All", Exposure: "Energy", Sector: "Coal", Type: "Exposure",
		SectorFile: "sector/coal", ProductFile: "product/mortgage",
	})
	router := SetupTestRouter()
	h := NewAdminHandler(mapping.NewStaticStore(tables), testContent())
	router.GET("/admin/coverage", h.Coverage)

	var resp struct {
		Errors   int            `json:"errors"`
		Coverage check.Coverage `json:"coverage"`
	}
	DecodeJSON(t, Serve(router, CreateTestRequest(http.MethodGet, "/admin/coverage", nil)), &resp)
	assert.Equal(t, 1, resp.Errors)
	require.NotEmpty(t, resp.Coverage.Findings)
	assert.Equal(t, "sector/coal", resp.Coverage.Findings[0].File)
}

func TestAdminHandler_ReloadMappings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.json")
	write := func(sector string) {
		data := `{"exported_at": "2026-01-01T00:00:00Z", "sheets": {
  "exposure_sector_product_mapping": [{"institution": "Bank", "exposure": "Real Estate", "sector": "` + sector + `", "type": "Loan", "sector_yml_file": "sector/office", "product_yml_file": "product/mortgage"}],
  "scenario_mapping": [{"scenario_name": "Orderly Transition", "scenario_yml_file": "scenario/orderly", "risk_type": "transition", "risk_level": "low"}],
  "output_structure_mapping": [{"report_type": "Institutional", "output_structure": "Executive Summary", "materiality": "All", "scenario_content_id": "summary"}]
}}`
		require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	}
	write("Office")

	store, err := mapping.Open(path)
	require.NoError(t, err)
	router := SetupTestRouter()
	h := NewAdminHandler(store, testContent())
	router.POST("/reload", h.ReloadMappings)

	write("Retail")
	w := Serve(router, CreateTestRequest(http.MethodPost, "/reload", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary MappingSummary
	DecodeJSON(t, w, &summary)
	assert.Equal(t, 1, summary.Exposures)
	assert.Equal(t, "Retail", store.Tables().Exposures[0].Sector)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	AssertErrorResponse(t, Serve(router, CreateTestRequest(http.MethodPost, "/reload", nil)),
		http.StatusInternalServerError, string(errors.ErrCodeMappingInvalid))
	assert.Equal(t, "Retail", store.Tables().Exposures[0].Sector, "failed reload keeps the previous tables")
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t)
	AssertJSONResponse(t, env.do(http.MethodGet, "/health", nil), http.StatusOK,
		map[string]interface{}{"status": "ok"})

	router := SetupTestRouter()
	h := NewHealthHandler(env.store, mapping.NewStaticStore(nil))
	router.GET("/health", h.Health)
	AssertJSONResponse(t, Serve(router, CreateTestRequest(http.MethodGet, "/health", nil)),
		http.StatusServiceUnavailable, map[string]interface{}{"status": "degraded"})
}
