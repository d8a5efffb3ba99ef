package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	ts := setupTestServer(t, testServerOptions{})

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":        "reader@example.com",
		"password":     "correct-horse-battery",
		"display_name": "Reader",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var registered AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &registered))
	assert.Equal(t, "reader@example.com", registered.User.Email)
	assert.Equal(t, "Reader", registered.User.DisplayName)
	assert.NotEmpty(t, registered.AccessToken)
	assert.NotEmpty(t, registered.RefreshToken)
	assert.Equal(t, "Bearer", registered.TokenType)

	resp = ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "reader@example.com",
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var loggedIn AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &loggedIn))
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)
	assert.NotEmpty(t, loggedIn.SessionID)
}

func TestRegisterWithoutOptionalFields(t *testing.T) {
	ts := setupTestServer(t, testServerOptions{})

	// display_name and timezone are optional and must not be demanded by
	// the request schema.
	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":    "minimal@example.com",
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var registered AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &registered))
	assert.Empty(t, registered.User.DisplayName)
	assert.Equal(t, "UTC", registered.User.Timezone)

	// Same for a device's platform.
	resp = ts.api.Post("/api/v1/devices",
		"Authorization: Bearer "+registered.AccessToken,
		map[string]any{"name": "bare device"},
	)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}

func TestLoginWrongPassword(t *testing.T) {
	ts := setupTestServer(t, testServerOptions{})
	ts.registerTestUser(t, "reader@example.com")

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "reader@example.com",
		"password": "not-the-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ts := setupTestServer(t, testServerOptions{})
	ts.registerTestUser(t, "reader@example.com")

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":    "reader@example.com",
		"password": "correct-horse-battery",
	})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestGetCurrentUser(t *testing.T) {
	ts := setupTestServer(t, testServerOptions{})
	token, userID := ts.registerTestUser(t, "reader@example.com")

	resp := ts.api.Get("/api/v1/users/me", "Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var user UserResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &user))
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "reader@example.com", user.Email)
}

func TestGetCurrentUserNoAuth(t *testing.T) {
	ts := setupTestServer(t, testServerOptions{})

	resp := ts.api.Get("/api/v1/users/me")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.api.Get("/api/v1/users/me", "Authorization: Bearer not-a-real-token")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRefreshRotatesTokens(t *testing.T) {
	ts := setupTestServer(t, testServerOptions{})

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":    "reader@example.com",
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var registered AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &registered))

	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{
		"refresh_token": registered.RefreshToken,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var refreshed AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &refreshed))
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, registered.RefreshToken, refreshed.RefreshToken)

	// The old refresh token is single use
	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{
		"refresh_token": registered.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestLogoutRevokesSession(t *testing.T) {
	ts := setupTestServer(t, testServerOptions{})

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":    "reader@example.com",
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var registered AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &registered))

	resp = ts.api.Post("/api/v1/auth/logout",
		"Authorization: Bearer "+registered.AccessToken,
		map[string]any{"session_id": registered.SessionID},
	)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// The session's refresh token no longer works
	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{
		"refresh_token": registered.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestListSessions(t *testing.T) {
	ts := setupTestServer(t, testServerOptions{})
	token, _ := ts.registerTestUser(t, "reader@example.com")

	ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":       "reader@example.com",
		"password":    "correct-horse-battery",
		"client_name": "laptop",
	})

	resp := ts.api.Get("/api/v1/auth/sessions", "Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body struct {
		Sessions []SessionResponse `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Len(t, body.Sessions, 2)
}
