// Package handler provides HTTP handlers for the API.
package handler

import (
	"crypto/sha256"
	stderrors "errors"
	"fmt"
	"mime"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/verustcode/materiality/internal/mapping"
	"github.com/verustcode/materiality/internal/model"
	"github.com/verustcode/materiality/internal/report"
	"github.com/verustcode/materiality/internal/selection"
	"github.com/verustcode/materiality/internal/store"
	"github.com/verustcode/materiality/pkg/errors"
	"github.com/verustcode/materiality/pkg/logger"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	// maxErrorMessage bounds failure messages persisted in run history
	maxErrorMessage = 500
)

// abortWithError hands err to the ErrorHandler middleware.
// Errors that are not AppErrors are logged and reported as internal.
func abortWithError(c *gin.Context, err error) {
	if _, ok := errors.AsAppError(err); !ok {
		logger.Error("Unhandled handler error", zap.String("path", c.FullPath()), zap.Error(err))
		err = errors.ErrInternal("internal error", err)
	}
	_ = c.Error(err)
	c.Abort()
}

// sessionError converts a store error for session id into an AppError.
func sessionError(id string, err error) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.New(errors.ErrCodeSessionNotFound, "session not found").
			WithDetails(map[string]string{"session_id": id})
	}
	return errors.Wrap(errors.ErrCodeDBQuery, "failed to load session", err)
}

// loadSession fetches the session named by the :id parameter.
func loadSession(c *gin.Context, s store.Store) (*model.Session, *selection.Selections, bool) {
	id := c.Param("id")
	session, err := s.Session().GetByID(id)
	if err != nil {
		abortWithError(c, sessionError(id, err))
		return nil, nil, false
	}
	sel, err := s.Selection().Load(id)
	if err != nil {
		abortWithError(c, errors.Wrap(errors.ErrCodeDBQuery, "failed to load selections", err))
		return nil, nil, false
	}
	return session, sel, true
}

// requireTables returns the current mapping snapshot or aborts with 503.
func requireTables(c *gin.Context, src report.TablesSource) (*mapping.Tables, bool) {
	t := src.Tables()
	if t == nil {
		abortWithError(c, errors.New(errors.ErrCodeMappingNotFound, "mapping tables are not loaded"))
		return nil, false
	}
	return t, true
}

// parsePagination reads page and page_size, clamping both to sane values.
func parsePagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	return page, pageSize
}

// setAttachment sets Content-Disposition for a download. Only the base name is kept.
func setAttachment(c *gin.Context, filename string) {
	if i := strings.LastIndexAny(filename, `/\`); i >= 0 {
		filename = filename[i+1:]
	}
	if !validateFilename(filename) {
		filename = "report"
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
}

// validateFilename rejects names that could escape a directory or confuse a header
func validateFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00\r\n\"")
}

// truncateContent truncates content for persistence.
// Uses rune-based truncation to avoid breaking multi-byte UTF-8 characters.
func truncateContent(content string, maxLen int) string {
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen]) + "..."
}

// computeContentHash returns a strong ETag for a response body
func computeContentHash(content []byte) string {
	h := sha256.Sum256(content)
	return fmt.Sprintf(`"%x"`, h[:16])
}
