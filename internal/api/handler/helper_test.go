package handler

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/verustcode/materiality/pkg/errors"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query    string
		page     int
		pageSize int
	}{
		{"", 1, defaultPageSize},
		{"page=3&page_size=10", 3, 10},
		{"page=0&page_size=0", 1, defaultPageSize},
		{"page=-2&page_size=1000", 1, defaultPageSize},
		{"page=abc", 1, defaultPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request, _ = http.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			page, size := parsePagination(c)
			if page != tt.page || size != tt.pageSize {
				t.Errorf("parsePagination(%q) = %d,%d want %d,%d", tt.query, page, size, tt.page, tt.pageSize)
			}
		})
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Institutional_Report.pdf", true},
		{"", false},
		{"..", false},
		{"a/b.html", false},
		{`a\b.html`, false},
		{"quote\".html", false},
		{"line\nbreak", false},
	}
	for _, tt := range tests {
		if got := validateFilename(tt.name); got != tt.want {
			t.Errorf("validateFilename(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSetAttachment(t *testing.T) {
	router := SetupTestRouter()
	router.GET("/a", func(c *gin.Context) { setAttachment(c, "../../Sector_Report.html") })
	router.GET("/b", func(c *gin.Context) { setAttachment(c, "") })

	w := Serve(router, CreateTestRequest(http.MethodGet, "/a", nil))
	if got := w.Header().Get("Content-Disposition"); got != "attachment; filename=Sector_Report.html" {
		t.Errorf("Content-Disposition = %q", got)
	}
	w = Serve(router, CreateTestRequest(http.MethodGet, "/b", nil))
	if got := w.Header().Get("Content-Disposition"); got != "attachment; filename=report" {
		t.Errorf("Content-Disposition = %q", got)
	}
}

func TestTruncateContent(t *testing.T) {
	if got := truncateContent("short", 10); got != "short" {
		t.Errorf("truncateContent() = %q", got)
	}
	if got := truncateContent("ééééé", 2); got != "éé..." {
		t.Errorf("truncateContent() = %q, want rune-safe cut", got)
	}
}

func TestComputeContentHash(t *testing.T) {
	a := computeContentHash([]byte("<html>a</html>"))
	b := computeContentHash([]byte("<html>b</html>"))
	if a == b {
		t.Error("different content should hash differently")
	}
	if a != computeContentHash([]byte("<html>a</html>")) {
		t.Error("hash should be stable")
	}
	if !strings.HasPrefix(a, `"`) || !strings.HasSuffix(a, `"`) || len(a) != 34 {
		t.Errorf("ETag %s should be a quoted 32-char hex string", a)
	}
}

func TestSessionError(t *testing.T) {
	err := sessionError("abc", gorm.ErrRecordNotFound)
	if !errors.HasCode(err, errors.ErrCodeSessionNotFound) {
		t.Errorf("record not found should map to SessionNotFound, got %v", err)
	}
	err = sessionError("abc", stderrors.New("disk I/O error"))
	if !errors.HasCode(err, errors.ErrCodeDBQuery) {
		t.Errorf("other errors should map to DBQuery, got %v", err)
	}
}

func TestAbortWithError_PlainError(t *testing.T) {
	router := SetupTestRouter()
	router.GET("/x", func(c *gin.Context) { abortWithError(c, stderrors.New("boom")) })

	AssertErrorResponse(t, Serve(router, CreateTestRequest(http.MethodGet, "/x", nil)),
		http.StatusInternalServerError, string(errors.ErrCodeInternal))
}
