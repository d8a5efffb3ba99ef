package api

import (
	"crypto/rand"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/phmapp/phm-server/internal/auth"
	"github.com/phmapp/phm-server/internal/ratelimit"
	"github.com/phmapp/phm-server/internal/service"
	"github.com/phmapp/phm-server/internal/store/sqlite"
	"github.com/phmapp/phm-server/internal/validation"
)

// testServer wraps the API server with a humatest client.
type testServer struct {
	*Server
	api humatest.TestAPI
}

type testServerOptions struct {
	// deviceMax overrides the per-device request quota. Zero means a high
	// limit that tests never hit.
	deviceMax int
}

// setupTestServer creates a server backed by a fresh SQLite database.
func setupTestServer(t *testing.T, opts testServerOptions) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	tokenKey := make([]byte, 32)
	_, err = rand.Read(tokenKey)
	require.NoError(t, err)
	pepper := make([]byte, 32)
	_, err = rand.Read(pepper)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(tokenKey, 15*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)
	keys, err := auth.NewDeviceKeyService(pepper)
	require.NoError(t, err)

	deviceMax := opts.deviceMax
	if deviceMax == 0 {
		deviceMax = 10000
	}
	deviceLimiter := ratelimit.NewFixedWindow(time.Minute, deviceMax)
	loginLimiter := ratelimit.New(100, 100)

	validator := validation.New()

	sessions := service.NewSessionService(st, tokens, logger)
	sources := service.NewSourceService(st, validator, logger)

	services := &Services{
		Auth:       service.NewAuthService(st, tokens, sessions, validator, loginLimiter, logger),
		Session:    sessions,
		Device:     service.NewDeviceService(st, keys, deviceLimiter, validator, logger),
		Source:     sources,
		Highlight:  service.NewHighlightService(st, sources, validator, logger),
		Tag:        service.NewTagService(st, logger),
		Link:       service.NewLinkService(st, logger),
		Collection: service.NewCollectionService(st, validator, logger),
		Digest:     service.NewDigestService(st, validator, logger),
		Reminder:   service.NewReminderService(st, validator, logger),
	}

	s := NewServer(st, services, logger)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.api),
	}
}

// registerTestUser registers an account and returns its access token and user ID.
func (ts *testServer) registerTestUser(t *testing.T, email string) (token, userID string) {
	t.Helper()

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":    email,
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, resp.Code, "register failed: %s", resp.Body.String())

	var body AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.AccessToken, body.User.ID
}

// registerTestDevice registers a capture device and returns its raw key and ID.
func (ts *testServer) registerTestDevice(t *testing.T, token, name string) (key, deviceID string) {
	t.Helper()

	resp := ts.api.Post("/api/v1/devices",
		"Authorization: Bearer "+token,
		map[string]any{"name": name, "platform": "browser-extension"},
	)
	require.Equal(t, http.StatusOK, resp.Code, "device registration failed: %s", resp.Body.String())

	var body DeviceKeyResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.Key, body.Device.ID
}

// ingestTestHighlight captures a highlight with the given credential.
func (ts *testServer) ingestTestHighlight(t *testing.T, credential, text string) HighlightResponse {
	t.Helper()

	resp := ts.api.Post("/api/v1/highlights",
		"Authorization: Bearer "+credential,
		map[string]any{
			"source_url":   "https://example.com/article",
			"source_title": "Article",
			"text":         text,
		},
	)
	require.Equal(t, http.StatusOK, resp.Code, "ingest failed: %s", resp.Body.String())

	var body IngestOutput
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body.Body))
	return body.Body.Highlight
}
