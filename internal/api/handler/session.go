package handler

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/materiality/internal/model"
	"github.com/verustcode/materiality/internal/report"
	"github.com/verustcode/materiality/internal/selection"
	"github.com/verustcode/materiality/internal/store"
	"github.com/verustcode/materiality/pkg/errors"
	"github.com/verustcode/materiality/pkg/idgen"
	"github.com/verustcode/materiality/pkg/logger"
)

// SessionHandler handles the wizard session endpoints
type SessionHandler struct {
	store  store.Store
	tables report.TablesSource
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(s store.Store, tables report.TablesSource) *SessionHandler {
	return &SessionHandler{store: s, tables: tables}
}

// CreateSessionRequest is the body of POST /sessions
type CreateSessionRequest struct {
	ReportType  string `json:"report_type" binding:"required"`
	Institution string `json:"institution"`
}

// SessionResponse is a session with its questionnaire pages
type SessionResponse struct {
	*model.Session
	Steps []selection.Step `json:"steps"`
}

// SelectionsRequest is the body of PUT /sessions/:id/selections/:category
type SelectionsRequest struct {
	Values []string `json:"values"`
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.New(errors.ErrCodeValidation, "invalid request body: "+err.Error()))
		return
	}

	rt, err := selection.ParseReportType(req.ReportType)
	if err != nil {
		abortWithError(c, errors.New(errors.ErrCodeValidation, err.Error()))
		return
	}
	tables, ok := requireTables(c, h.tables)
	if !ok {
		return
	}

	institution := strings.TrimSpace(req.Institution)
	if rt == selection.ReportInstitutional {
		if institution == "" {
			abortWithError(c, errors.New(errors.ErrCodeValidation, "institution is required for an institutional report"))
			return
		}
		if !slices.Contains(tables.Institutions(), institution) {
			abortWithError(c, errors.New(errors.ErrCodeValidation, "institution is not in the mapping").
				WithDetails(map[string]string{"institution": institution}))
			return
		}
	} else {
		institution = selection.NotApplicable
	}

	session := &model.Session{
		ID:           idgen.NewSessionID(),
		ReportType:   string(rt),
		Institution:  institution,
		LastActiveAt: time.Now(),
	}
	if err := h.store.Session().Create(session); err != nil {
		abortWithError(c, errors.Wrap(errors.ErrCodeDBQuery, "failed to create session", err))
		return
	}

	logger.Info("Session created",
		zap.String("session_id", session.ID),
		zap.String("report_type", session.ReportType),
		zap.String("institution", session.Institution),
	)
	c.JSON(http.StatusCreated, SessionResponse{
		Session: session,
		Steps:   selection.Steps(rt, institution, tables),
	})
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	session, _, ok := loadSession(c, h.store)
	if !ok {
		return
	}
	tables, ok := requireTables(c, h.tables)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, SessionResponse{
		Session: session,
		Steps:   selection.Steps(selection.ReportType(session.ReportType), session.Institution, tables),
	})
}

// PutSelections handles PUT /api/v1/sessions/:id/selections/:category.
// The category's records are replaced; an empty value list removes the category.
func (h *SessionHandler) PutSelections(c *gin.Context) {
	session, _, ok := loadSession(c, h.store)
	if !ok {
		return
	}
	tables, ok := requireTables(c, h.tables)
	if !ok {
		return
	}

	var req SelectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.New(errors.ErrCodeValidation, "invalid request body: "+err.Error()))
		return
	}

	rt := selection.ReportType(session.ReportType)
	category := c.Param("category")
	if !hasStep(selection.Steps(rt, session.Institution, tables), category) {
		abortWithError(c, errors.New(errors.ErrCodeSessionInvalid, "category is not a step of this session").
			WithDetails(map[string]string{"category": category, "report_type": session.ReportType}))
		return
	}

	records, err := selection.BuildRecords(rt, session.Institution, category, req.Values)
	if err != nil {
		abortWithError(c, errors.New(errors.ErrCodeValidation, err.Error()).
			WithDetails(map[string]string{"category": category}))
		return
	}

	if err := h.store.Selection().ReplaceCategory(session.ID, category, records); err != nil {
		abortWithError(c, errors.Wrap(errors.ErrCodeDBQuery, "failed to store selections", err))
		return
	}
	h.touch(session.ID)

	c.JSON(http.StatusOK, gin.H{"category": category, "records": records})
}

// GetSelections handles GET /api/v1/sessions/:id/selections
func (h *SessionHandler) GetSelections(c *gin.Context) {
	_, sel, ok := loadSession(c, h.store)
	if !ok {
		return
	}

	out := make(map[string][]selection.Record)
	for _, category := range sel.Categories() {
		out[category] = sel.Get(category)
	}
	c.JSON(http.StatusOK, gin.H{"categories": sel.Categories(), "selections": out})
}

// ClearSelections handles DELETE /api/v1/sessions/:id/selections (restart)
func (h *SessionHandler) ClearSelections(c *gin.Context) {
	session, _, ok := loadSession(c, h.store)
	if !ok {
		return
	}
	if err := h.store.Selection().Clear(session.ID); err != nil {
		abortWithError(c, errors.Wrap(errors.ErrCodeDBQuery, "failed to clear selections", err))
		return
	}
	h.touch(session.ID)

	logger.Info("Session restarted", zap.String("session_id", session.ID))
	c.Status(http.StatusNoContent)
}

// ReviewResponse is the summary table with the selection error flag
type ReviewResponse struct {
	selection.Review
	ErrorFlag    bool   `json:"error_flag"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Review handles GET /api/v1/sessions/:id/review
func (h *SessionHandler) Review(c *gin.Context) {
	session, sel, ok := loadSession(c, h.store)
	if !ok {
		return
	}
	tables, ok := requireTables(c, h.tables)
	if !ok {
		return
	}

	rt := selection.ReportType(session.ReportType)
	flag, message := selection.ErrorFlag(sel, rt)
	c.JSON(http.StatusOK, ReviewResponse{
		Review:       selection.BuildReview(sel, rt, session.Institution, tables),
		ErrorFlag:    flag,
		ErrorMessage: message,
	})
}

func (h *SessionHandler) touch(id string) {
	if err := h.store.Session().Touch(id); err != nil {
		logger.Warn("Failed to touch session", zap.String("session_id", id), zap.Error(err))
	}
}

func hasStep(steps []selection.Step, category string) bool {
	for _, s := range steps {
		if s.Category == category {
			return true
		}
	}
	return false
}
