package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phmapp/phm-server/internal/domain"
	"github.com/phmapp/phm-server/internal/store/sqlite"
)

func newServiceTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := sqlite.Open(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedTestUser(t *testing.T, s *sqlite.Store, userID string) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	user := &domain.User{
		ID:           userID,
		Email:        userID + "@example.com",
		PasswordHash: "x",
		DisplayName:  "User " + userID,
		Timezone:     "UTC",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.CreateUser(context.Background(), user))
	return user
}

func seedTestSource(t *testing.T, s *sqlite.Store, userID, sourceID string) *domain.Source {
	t.Helper()
	now := time.Now().UTC()
	src := &domain.Source{
		ID:          sourceID,
		UserID:      userID,
		Type:        domain.SourceWeb,
		IdentityKey: sourceID + ".example.com",
		Title:       "Source " + sourceID,
		URL:         "https://" + sourceID + ".example.com/page",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.CreateSource(context.Background(), src))
	return src
}

// seedTestHighlight inserts a highlight created at the given instant with
// optional tag rows.
func seedTestHighlight(t *testing.T, s *sqlite.Store, userID, sourceID, highlightID string, createdAt time.Time, tagIDs ...string) *domain.Highlight {
	t.Helper()
	h := &domain.Highlight{
		ID:        highlightID,
		UserID:    userID,
		SourceID:  sourceID,
		Text:      "passage " + highlightID,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	require.NoError(t, s.CreateHighlightWithTags(context.Background(), h, tagIDs))
	return h
}
