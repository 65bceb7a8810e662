package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/materiality/internal/api/middleware"
	"github.com/verustcode/materiality/internal/model"
	"github.com/verustcode/materiality/internal/report"
	"github.com/verustcode/materiality/internal/report/exporter"
	"github.com/verustcode/materiality/internal/selection"
	"github.com/verustcode/materiality/internal/store"
	"github.com/verustcode/materiality/pkg/errors"
	"github.com/verustcode/materiality/pkg/logger"
)

// ReportHandler generates, renders and exports session reports
type ReportHandler struct {
	store     store.Store
	generator *report.Generator
	exports   *exporter.ExportManager
}

// NewReportHandler creates a new report handler
func NewReportHandler(s store.Store, generator *report.Generator, exports *exporter.ExportManager) *ReportHandler {
	return &ReportHandler{store: s, generator: generator, exports: exports}
}

// GenerateResponse is the body of POST /sessions/:id/report
type GenerateResponse struct {
	ReportID     string            `json:"report_id"`
	Title        string            `json:"title"`
	TOC          []report.TOCGroup `json:"toc"`
	Tree         report.Node       `json:"tree"`
	Warnings     []report.Warning  `json:"warnings"`
	ErrorFlag    bool              `json:"error_flag"`
	ErrorMessage string            `json:"error_message,omitempty"`
	ErrorCode    errors.ErrorCode  `json:"error_code,omitempty"`
}

// Generate handles POST /api/v1/sessions/:id/report.
// Every attempt is recorded in the session's run history.
func (h *ReportHandler) Generate(c *gin.Context) {
	res, ok := h.generate(c, true)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, GenerateResponse{
		ReportID:     res.ReportID,
		Title:        res.Title,
		TOC:          res.TOC,
		Tree:         res.Tree,
		Warnings:     res.Warnings,
		ErrorFlag:    res.ErrorFlag,
		ErrorMessage: res.ErrorMessage,
		ErrorCode:    res.ErrorCode,
	})
}

// HTML handles GET /api/v1/sessions/:id/report/html
func (h *ReportHandler) HTML(c *gin.Context) {
	res, ok := h.generate(c, false)
	if !ok {
		return
	}

	body := []byte(res.Document)
	etag := computeContentHash(body)
	c.Header("ETag", etag)
	c.Header("Cache-Control", "no-cache")
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", body)
}

// Export handles GET /api/v1/sessions/:id/report/export?format=html|pdf|markdown|json.
// A PDF that cannot be rendered is served as HTML with X-Export-Fallback set.
func (h *ReportHandler) Export(c *gin.Context) {
	format, err := exporter.ParseFormat(c.Query("format"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	res, ok := h.generate(c, false)
	if !ok {
		return
	}

	out, err := h.exports.Export(c.Request.Context(), res, format)
	if err != nil {
		abortWithError(c, err)
		return
	}

	setAttachment(c, out.Filename)
	c.Header(middleware.HeaderExportFormat, string(out.Format))
	if out.Fallback {
		c.Header(middleware.HeaderFallback, "true")
	}
	c.Data(http.StatusOK, out.ContentType, out.Data)
}

// History handles GET /api/v1/sessions/:id/reports
func (h *ReportHandler) History(c *gin.Context) {
	session, _, ok := loadSession(c, h.store)
	if !ok {
		return
	}
	page, pageSize := parsePagination(c)

	runs, total, err := h.store.ReportRun().ListBySession(session.ID, pageSize, (page-1)*pageSize)
	if err != nil {
		abortWithError(c, errors.Wrap(errors.ErrCodeDBQuery, "failed to list report runs", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      runs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// generate runs the pipeline over the session's stored selections.
// With record set the outcome is persisted as a report run.
func (h *ReportHandler) generate(c *gin.Context, record bool) (*report.Result, bool) {
	session, sel, ok := loadSession(c, h.store)
	if !ok {
		return nil, false
	}

	req := &report.Request{
		SessionID:   session.ID,
		ReportType:  selection.ReportType(session.ReportType),
		Institution: session.Institution,
		Selections:  sel,
	}
	res, err := h.generator.Generate(c.Request.Context(), req)
	if record {
		h.recordRun(session, req, res, err)
	}
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}
	if err := h.store.Session().Touch(session.ID); err != nil {
		logger.Warn("Failed to touch session", zap.String("session_id", session.ID), zap.Error(err))
	}
	return res, true
}

func (h *ReportHandler) recordRun(session *model.Session, req *report.Request, res *report.Result, genErr error) {
	run := &model.ReportRun{
		ID:          req.ReportID,
		SessionID:   session.ID,
		ReportType:  session.ReportType,
		Institution: session.Institution,
		Status:      model.ReportRunStatusCompleted,
	}
	if genErr != nil {
		run.Status = model.ReportRunStatusFailed
		run.Failure = truncateContent(genErr.Error(), maxErrorMessage)
	}
	if res != nil {
		run.ErrorFlag = res.ErrorFlag
		run.ErrorMessage = res.ErrorMessage
		run.SectionCount = len(res.TOC)
		run.WarningCount = len(res.Warnings)
		run.Duration = res.Duration.Milliseconds()
		gaps := model.JSONMap{}
		for _, w := range res.Warnings {
			run.Warnings = append(run.Warnings, w.Message)
			n, _ := gaps[w.Kind].(int)
			gaps[w.Kind] = n + 1
		}
		run.GapCounts = gaps
	}

	if err := h.store.ReportRun().Create(run); err != nil {
		logger.Error("Failed to record report run",
			zap.String("report_id", run.ID),
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		return
	}
	logger.Debug("Report run recorded",
		zap.String("report_id", run.ID),
		zap.String("status", string(run.Status)),
		zap.Int("warnings", run.WarningCount),
	)
}
