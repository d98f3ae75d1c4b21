package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halolight/halolight/internal/common/config"
	"github.com/halolight/halolight/internal/common/logger"
	"github.com/halolight/halolight/internal/db"
	"github.com/halolight/halolight/internal/events/bus"
	"github.com/halolight/halolight/internal/fixtures"
	"github.com/halolight/halolight/internal/identity"
	"github.com/halolight/halolight/internal/identity/auth"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "api_test.db")
	writer, err := db.OpenSQLite(dbPath)
	require.NoError(t, err)
	reader, err := db.OpenSQLiteReader(dbPath)
	require.NoError(t, err)
	pool := db.NewPool(writer, reader)
	t.Cleanup(func() {
		_ = pool.Close()
	})

	log, err := logger.NewLogger(logger.LoggingConfig{Level: "error", Format: "console", OutputPath: "stdout"})
	require.NoError(t, err)

	ctx := context.Background()
	store, err := identity.NewStore(ctx, pool, log)
	require.NoError(t, err)
	require.NoError(t, store.Seed(ctx))

	tokens := auth.NewTokenManager(config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  3600,
		RefreshTokenTTL: 7200,
		Issuer:          "halolight-test",
	})
	eventBus := bus.NewMemoryEventBus(log)
	t.Cleanup(eventBus.Close)
	ids := identity.NewService(store, tokens, eventBus, log)

	auditor, err := identity.NewAuditor(eventBus, log)
	require.NoError(t, err)
	t.Cleanup(auditor.Close)

	data, err := fixtures.NewStore(config.FixturesConfig{Seed: 42}, log)
	require.NoError(t, err)

	return NewRouter(Deps{Identity: ids, Fixtures: data, Audit: auditor, Log: log})
}

// doJSON issues a request with an optional JSON body and bearer token, and
// decodes the response envelope.
func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) (int, Response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "body: %s", rec.Body.String())
	return rec.Code, resp
}

// loginDemo signs in with the seeded demo account and returns its tokens.
func loginDemo(t *testing.T, router *gin.Engine) (string, string) {
	t.Helper()

	status, resp := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "demo@example.com", "password": "demo123",
	})
	require.Equal(t, http.StatusOK, status)

	data := resp.Data.(map[string]interface{})
	return data["accessToken"].(string), data["refreshToken"].(string)
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_LoginAndProfile(t *testing.T) {
	router := newTestRouter(t)
	token, _ := loginDemo(t, router)

	status, resp := doJSON(t, router, http.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, resp.Code)

	user := resp.Data.(map[string]interface{})
	assert.Equal(t, "demo@example.com", user["email"])
	_, leaked := user["passwordHash"]
	assert.False(t, leaked)
}

func TestRouter_LoginFailure(t *testing.T) {
	router := newTestRouter(t)

	status, resp := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "demo@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRouter_ProtectedRequiresToken(t *testing.T) {
	router := newTestRouter(t)

	status, _ := doJSON(t, router, http.MethodGet, "/api/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, router, http.MethodGet, "/api/users", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRouter_RefreshRotatesPair(t *testing.T) {
	router := newTestRouter(t)
	_, refresh := loginDemo(t, router)

	status, resp := doJSON(t, router, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refreshToken": refresh,
	})
	require.Equal(t, http.StatusOK, status)
	data := resp.Data.(map[string]interface{})
	assert.NotEmpty(t, data["accessToken"])

	// An access token is not a refresh token.
	access, _ := loginDemo(t, router)
	status, _ = doJSON(t, router, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refreshToken": access,
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRouter_UserCRUD(t *testing.T) {
	router := newTestRouter(t)
	token, _ := loginDemo(t, router)

	status, resp := doJSON(t, router, http.MethodPost, "/api/users", token, map[string]string{
		"displayName": "New Person", "email": "new@example.com", "role": "viewer", "password": "hunter22",
	})
	require.Equal(t, http.StatusOK, status)
	created := resp.Data.(map[string]interface{})
	id := created["id"].(string)
	require.NotEmpty(t, id)

	// Duplicate email conflicts.
	status, _ = doJSON(t, router, http.MethodPost, "/api/users", token, map[string]string{
		"displayName": "Dupe", "email": "new@example.com", "password": "hunter22",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, resp = doJSON(t, router, http.MethodPut, "/api/users/"+id, token, map[string]string{
		"displayName": "Renamed Person",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Renamed Person", resp.Data.(map[string]interface{})["displayName"])

	status, _ = doJSON(t, router, http.MethodDelete, "/api/users/"+id, token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, router, http.MethodGet, "/api/users/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

// Identity mutations flow through the event bus into the audit trail, and
// /api/audit exposes it newest first.
func TestRouter_AuditTrail(t *testing.T) {
	router := newTestRouter(t)
	token, _ := loginDemo(t, router)

	status, resp := doJSON(t, router, http.MethodPost, "/api/users", token, map[string]string{
		"displayName": "Audited Person", "email": "audited@example.com", "role": "viewer", "password": "hunter22",
	})
	require.Equal(t, http.StatusOK, status)
	id := resp.Data.(map[string]interface{})["id"].(string)

	status, _ = doJSON(t, router, http.MethodDelete, "/api/users/"+id, token, nil)
	require.Equal(t, http.StatusOK, status)

	status, resp = doJSON(t, router, http.MethodGet, "/api/audit?limit=2", token, nil)
	require.Equal(t, http.StatusOK, status)

	entries := resp.Data.([]interface{})
	require.Len(t, entries, 2)
	assert.Equal(t, "user.deleted", entries[0].(map[string]interface{})["type"])
	assert.Equal(t, "user.created", entries[1].(map[string]interface{})["type"])
}

func TestRouter_UserListPaging(t *testing.T) {
	router := newTestRouter(t)
	token, _ := loginDemo(t, router)

	status, resp := doJSON(t, router, http.MethodGet, "/api/users?page=1&pageSize=2", token, nil)
	require.Equal(t, http.StatusOK, status)

	data := resp.Data.(map[string]interface{})
	assert.Len(t, data["list"], 2)
	assert.Equal(t, float64(5), data["total"])
	assert.Equal(t, float64(2), data["pageSize"])
}

func TestRouter_Roles(t *testing.T) {
	router := newTestRouter(t)
	token, _ := loginDemo(t, router)

	status, resp := doJSON(t, router, http.MethodGet, "/api/roles", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, resp.Data, 3)
}

func TestRouter_DashboardAndActivities(t *testing.T) {
	router := newTestRouter(t)
	token, _ := loginDemo(t, router)

	status, resp := doJSON(t, router, http.MethodGet, "/api/dashboard/stats", token, nil)
	require.Equal(t, http.StatusOK, status)
	stats := resp.Data.(map[string]interface{})
	assert.Greater(t, stats["totalUsers"], float64(0))

	status, resp = doJSON(t, router, http.MethodGet, "/api/dashboard/activities?pageSize=5", token, nil)
	require.Equal(t, http.StatusOK, status)
	data := resp.Data.(map[string]interface{})
	assert.Len(t, data["list"], 5)
	assert.Equal(t, float64(20), data["total"])
}

func TestRouter_CalendarCRUD(t *testing.T) {
	router := newTestRouter(t)
	token, _ := loginDemo(t, router)

	status, resp := doJSON(t, router, http.MethodPost, "/api/calendar/events", token, map[string]interface{}{
		"title": "Launch review",
		"start": "2026-09-01T10:00:00Z",
		"end":   "2026-09-01T11:00:00Z",
	})
	require.Equal(t, http.StatusOK, status)
	id := resp.Data.(map[string]interface{})["id"].(string)

	// End before start is rejected.
	status, _ = doJSON(t, router, http.MethodPost, "/api/calendar/events", token, map[string]interface{}{
		"title": "Backwards",
		"start": "2026-09-01T11:00:00Z",
		"end":   "2026-09-01T10:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, router, http.MethodDelete, "/api/calendar/events/"+id, token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, router, http.MethodGet, "/api/calendar/events?from=not-a-time", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRouter_FileCRUD(t *testing.T) {
	router := newTestRouter(t)
	token, _ := loginDemo(t, router)

	status, resp := doJSON(t, router, http.MethodPost, "/api/files", token, map[string]interface{}{
		"name": "Q3 Report.pdf", "kind": "file", "path": "/reports/Q3 Report.pdf", "sizeBytes": 2048,
	})
	require.Equal(t, http.StatusOK, status)
	id := resp.Data.(map[string]interface{})["id"].(string)

	status, _ = doJSON(t, router, http.MethodPost, "/api/files", token, map[string]interface{}{
		"name": "bad", "kind": "device",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp = doJSON(t, router, http.MethodPut, "/api/files/"+id, token, map[string]interface{}{
		"name": "Q3 Report final.pdf", "path": "/reports/Q3 Report final.pdf",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Q3 Report final.pdf", resp.Data.(map[string]interface{})["name"])

	status, _ = doJSON(t, router, http.MethodDelete, "/api/files/"+id, token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, router, http.MethodDelete, "/api/files/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRouter_Notifications(t *testing.T) {
	router := newTestRouter(t)
	token, _ := loginDemo(t, router)

	status, resp := doJSON(t, router, http.MethodGet, "/api/notifications", token, nil)
	require.Equal(t, http.StatusOK, status)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(10), data["total"])
	assert.Equal(t, float64(4), data["unread"])

	status, _ = doJSON(t, router, http.MethodPost, "/api/notifications/read-all", token, nil)
	require.Equal(t, http.StatusOK, status)

	_, resp = doJSON(t, router, http.MethodGet, "/api/notifications", token, nil)
	assert.Equal(t, float64(0), resp.Data.(map[string]interface{})["unread"])

	status, _ = doJSON(t, router, http.MethodDelete, "/api/notifications", token, nil)
	require.Equal(t, http.StatusOK, status)

	_, resp = doJSON(t, router, http.MethodGet, "/api/notifications", token, nil)
	assert.Equal(t, float64(0), resp.Data.(map[string]interface{})["total"])
}

func TestRouter_Conversations(t *testing.T) {
	router := newTestRouter(t)
	token, _ := loginDemo(t, router)

	status, resp := doJSON(t, router, http.MethodGet, "/api/conversations", token, nil)
	require.Equal(t, http.StatusOK, status)
	conversations := resp.Data.([]interface{})
	require.NotEmpty(t, conversations)
	convID := conversations[0].(map[string]interface{})["id"].(string)

	status, resp = doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/conversations/%s/messages", convID), token,
		map[string]string{"body": "on my way"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "on my way", resp.Data.(map[string]interface{})["body"])

	status, _ = doJSON(t, router, http.MethodGet, "/api/conversations/nope/messages", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRouter_SettingsAndProfile(t *testing.T) {
	router := newTestRouter(t)
	token, _ := loginDemo(t, router)

	status, resp := doJSON(t, router, http.MethodPut, "/api/settings", token, map[string]interface{}{
		"language": "de-DE", "timezone": "Europe/Berlin", "emailNotifications": true,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "de-DE", resp.Data.(map[string]interface{})["language"])

	status, _ = doJSON(t, router, http.MethodPut, "/api/profile", token, map[string]string{
		"displayName": "",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp = doJSON(t, router, http.MethodPut, "/api/profile", token, map[string]string{
		"displayName": "Demo Admin", "email": "demo@example.com", "location": "Lisbon",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Lisbon", resp.Data.(map[string]interface{})["location"])
}

// The settings and profile bodies run through the shared rule sets before
// anything is persisted.
func TestRouter_SettingsAndProfileValidation(t *testing.T) {
	router := newTestRouter(t)
	token, _ := loginDemo(t, router)

	status, _ := doJSON(t, router, http.MethodPut, "/api/profile", token, map[string]string{
		"displayName": "Demo Admin", "email": "not-an-address",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, router, http.MethodPut, "/api/settings", token, map[string]interface{}{
		"language": "en-US",
	})
	assert.Equal(t, http.StatusBadRequest, status, "missing timezone must be rejected")

	// A rejected update must not partially apply.
	_, resp := doJSON(t, router, http.MethodGet, "/api/profile", token, nil)
	assert.NotEqual(t, "not-an-address", resp.Data.(map[string]interface{})["email"])
}
