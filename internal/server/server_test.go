package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/materiality/internal/config"
	"github.com/verustcode/materiality/internal/mapping"
	"github.com/verustcode/materiality/internal/shared"
	"github.com/verustcode/materiality/internal/store"
	"github.com/verustcode/materiality/pkg/logger"
)

func init() {
	logger.Init(logger.Config{
		Level:  "error",
		Format: "text",
	})
}

func testConfig(port int, debug bool) *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "localhost"
	cfg.Server.Port = port
	cfg.Server.Debug = debug
	cfg.Content.Dir = "testdata/content"
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	testStore, cleanup := store.SetupTestDB(t)
	t.Cleanup(cleanup)

	svc, err := shared.InitServicesWithMappings(cfg, mapping.NewStaticStore(&mapping.Tables{
		Exposures: []mapping.ExposureRow{
			{Institution: "Bank", Exposure: "Real Estate", Sector: "Office", Type: "Loan", SectorFile: "sector/office"},
		},
	}))
	require.NoError(t, err)

	srv := New(cfg, "", svc, testStore)
	t.Cleanup(func() { _ = srv.Stop() })
	return srv
}

func TestServer_New(t *testing.T) {
	cfg := testConfig(8080, false)
	srv := newTestServer(t, cfg)

	require.NotNil(t, srv)
	assert.Equal(t, cfg, srv.cfg)
	assert.Equal(t, config.ConfigPath, srv.configPath)
	assert.NotNil(t, srv.router)
	assert.NotNil(t, srv.cleanup)
}

func TestServer_SetupRoutes(t *testing.T) {
	srv := newTestServer(t, testConfig(8080, false))
	srv.SetupRoutes()

	for _, path := range []string{"/health", "/api/v1/options/institutions"} {
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestServer_StartStop(t *testing.T) {
	srv := newTestServer(t, testConfig(0, false))
	srv.SetupRoutes()

	// Stop without starting should not error
	require.NoError(t, srv.Stop())

	require.NoError(t, srv.Start())
	assert.NotNil(t, srv.httpServer)
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- srv.Stop() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("Stop() timed out")
	}
}

func TestServer_StartBackground(t *testing.T) {
	cfg := testConfig(0, false)
	cfg.Sessions.CleanupSchedule = "@every 1h"
	srv := newTestServer(t, cfg)

	require.NoError(t, srv.StartBackground())
	require.NoError(t, srv.Stop())
}

func TestServer_StartBackground_InvalidSchedule(t *testing.T) {
	cfg := testConfig(0, false)
	cfg.Sessions.CleanupSchedule = "every now and then"
	srv := newTestServer(t, cfg)

	assert.Error(t, srv.StartBackground())
}

func TestServer_DebugMode(t *testing.T) {
	tests := []struct {
		name     string
		debug    bool
		expected string
	}{
		{"debug mode enabled", true, gin.DebugMode},
		{"debug mode disabled", false, gin.ReleaseMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = newTestServer(t, testConfig(8080, tt.debug))
			assert.Equal(t, tt.expected, gin.Mode())
		})
	}
}

func TestServer_HTTPTimeouts(t *testing.T) {
	srv := newTestServer(t, testConfig(0, false))
	srv.SetupRoutes()

	require.NoError(t, srv.Start())

	assert.Equal(t, defaultReadTimeout, srv.httpServer.ReadTimeout)
	assert.Equal(t, defaultWriteTimeout, srv.httpServer.WriteTimeout)
	assert.Equal(t, defaultIdleTimeout, srv.httpServer.IdleTimeout)
}

func TestServer_RouterConfiguration(t *testing.T) {
	srv := newTestServer(t, testConfig(8080, false))

	assert.False(t, srv.router.RedirectTrailingSlash)
	assert.False(t, srv.router.RedirectFixedPath)
	assert.Equal(t, srv.router, srv.Router())
}
