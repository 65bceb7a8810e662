package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/materiality/pkg/errors"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestLogger(t *testing.T) {
	for _, cfg := range []*LoggerConfig{nil, {AccessLog: true}, {AccessLog: false}} {
		r := newRouter(RequestID(), Logger(cfg))
		r.GET("/sessions/:id/report/export", func(c *gin.Context) {
			c.Header(HeaderExportFormat, "pdf")
			c.Status(http.StatusOK)
		})
		r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

		w := serve(r, httptest.NewRequest(http.MethodGet, "/sessions/s1/report/export", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		w = serve(r, httptest.NewRequest(http.MethodGet, "/fail", nil))
		assert.Equal(t, http.StatusBadGateway, w.Code)
	}
}

func TestRecovery(t *testing.T) {
	r := newRouter(RequestID(), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, string(errors.ErrCodeInternal), decode(t, w)["code"])
}

func TestCORS(t *testing.T) {
	r := newRouter(CORS([]string{"http://localhost:3000"}))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{"allowed", http.MethodGet, "http://localhost:3000", http.StatusOK, "http://localhost:3000"},
		{"not allowed", http.MethodGet, "http://evil.example", http.StatusOK, ""},
		{"preflight allowed", http.MethodOptions, "http://localhost:3000", http.StatusNoContent, "http://localhost:3000"},
		{"preflight rejected", http.MethodOptions, "http://evil.example", http.StatusForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			req.Header.Set("Origin", tt.origin)
			w := serve(r, req)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantAllow, w.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantAllow != "" {
				assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), HeaderFallback)
				assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	r := newRouter(RequestID())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRequestID))
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	assert.Equal(t, w.Header().Get(HeaderRequestID), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	w = serve(r, req)
	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name        string
		debug       bool
		err         error
		wantStatus  int
		wantCode    errors.ErrorCode
		wantMessage string
		wantDetails bool
	}{
		{
			name:        "client error keeps details",
			err:         errors.New(errors.ErrCodeValidation, "unknown report type").WithDetails(map[string]string{"report_type": "x"}),
			wantStatus:  http.StatusBadRequest,
			wantCode:    errors.ErrCodeValidation,
			wantMessage: "unknown report type",
			wantDetails: true,
		},
		{
			name:        "session not found",
			err:         errors.New(errors.ErrCodeSessionNotFound, "session not found"),
			wantStatus:  http.StatusNotFound,
			wantCode:    errors.ErrCodeSessionNotFound,
			wantMessage: "session not found",
		},
		{
			name:        "mapping not loaded keeps message",
			err:         errors.New(errors.ErrCodeMappingNotFound, "mapping tables are not loaded"),
			wantStatus:  http.StatusServiceUnavailable,
			wantCode:    errors.ErrCodeMappingNotFound,
			wantMessage: "mapping tables are not loaded",
		},
		{
			name:        "internal error hidden in production",
			err:         errors.ErrInternal("sensitive", nil).WithDetails("stack"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    errors.ErrCodeInternal,
			wantMessage: "Internal server error",
		},
		{
			name:        "internal error shown in debug",
			debug:       true,
			err:         errors.ErrInternal("sensitive", nil),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    errors.ErrCodeInternal,
			wantMessage: "sensitive",
		},
		{
			name:        "plain error",
			err:         fmt.Errorf("disk full"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    errors.ErrCodeInternal,
			wantMessage: "Internal server error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(RequestID(), ErrorHandler(tt.debug))
			r.GET("/test", func(c *gin.Context) { _ = c.Error(tt.err) })

			w := serve(r, httptest.NewRequest(http.MethodGet, "/test", nil))
			assert.Equal(t, tt.wantStatus, w.Code)
			body := decode(t, w)
			assert.Equal(t, string(tt.wantCode), body["code"])
			assert.Equal(t, tt.wantMessage, body["message"])
			_, hasDetails := body["details"]
			assert.Equal(t, tt.wantDetails, hasDetails)
			assert.NotEmpty(t, body["request_id"])
		})
	}
}

func TestErrorHandler_ResponseAlreadyWritten(t *testing.T) {
	r := newRouter(ErrorHandler(false))
	r.GET("/test", func(c *gin.Context) {
		_ = c.Error(errors.ErrInternal("logged only", nil))
		c.JSON(http.StatusAccepted, gin.H{"ok": true})
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, true, decode(t, w)["ok"])
}

// mockValidator accepts the tokens it was given
type mockValidator map[string]string

func (m mockValidator) ValidateToken(token string) (string, error) {
	username, ok := m[token]
	if !ok {
		return "", errors.New(errors.ErrCodeUnauthorized, "invalid token")
	}
	return username, nil
}

func TestJWTAuth(t *testing.T) {
	r := newRouter(JWTAuth(mockValidator{"valid-token": "admin"}))
	r.GET("/admin", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUsername))
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid", "Bearer valid-token", http.StatusOK},
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic valid-token", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer other", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "admin", w.Body.String())
			}
		})
	}
}
