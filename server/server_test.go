package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"trackcrate/db"
	"trackcrate/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	apiHandler := NewAPIHandler(gdb,
		repository.NewUserRepository(gdb),
		repository.NewTrackRepository(gdb),
		nil)
	return newRouter(apiHandler)
}

// Browsers preflight every authenticated call, so OPTIONS must succeed
// with CORS headers on method-restricted routes without hitting auth.
func TestPreflightCarriesCORSHeaders(t *testing.T) {
	router := newTestRouter(t)

	paths := []string{
		"/api/tracks",
		"/api/tracks/import",
		"/api/tracks/123",
		"/api/tracks/123/related/456",
		"/api/playlists",
		"/api/playlists/123",
		"/api/playlists/123/tracks",
		"/api/playlists/123/tracks/456",
		"/api/auth/login",
	}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Authorization")

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, "preflight to %s", path)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"), "preflight to %s", path)
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization", "preflight to %s", path)
	}
}

func TestProtectedRouteStillRequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/tracks", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
