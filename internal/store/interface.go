// Package store defines the persistence interface for the PHM server.
package store

import (
	"context"
	"time"

	"github.com/phmapp/phm-server/internal/domain"
)

// Highlight status filter values.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
	StatusAll      = "all"
)

// HighlightFilter narrows ListHighlights results. Zero values mean "no
// filter", except Status where empty means active-only.
type HighlightFilter struct {
	SourceID string
	TagID    string
	DeviceID string
	Favorite *bool
	Status   string // active (default), archived, or all
	Query    string // substring match against text and note
	Limit    int    // 0 means the store default
	Offset   int
}

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	ListUsers(ctx context.Context) ([]*domain.User, error)
	CountUsers(ctx context.Context) (int, error)

	// Auth sessions
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSessionByRefreshToken(ctx context.Context, tokenHash string) (*domain.Session, error)
	UpdateSession(ctx context.Context, session *domain.Session) error
	DeleteSession(ctx context.Context, id string) error
	ListUserSessions(ctx context.Context, userID string) ([]*domain.Session, error)
	DeleteExpiredSessions(ctx context.Context) (int, error)

	// Devices
	CreateDevice(ctx context.Context, device *domain.Device) error
	GetDevice(ctx context.Context, userID, id string) (*domain.Device, error)
	GetDeviceByKeyDigest(ctx context.Context, digest string) (*domain.Device, error)
	UpdateDevice(ctx context.Context, device *domain.Device) error
	ListDevices(ctx context.Context, userID string) ([]*domain.Device, error)
	TouchDeviceLastUsed(ctx context.Context, id string, at time.Time) error

	// Sources
	CreateSource(ctx context.Context, source *domain.Source) error
	GetSource(ctx context.Context, userID, id string) (*domain.Source, error)
	GetSourceByIdentity(ctx context.Context, userID string, sourceType domain.SourceType, identityKey string) (*domain.Source, error)
	UpdateSource(ctx context.Context, source *domain.Source) error
	ListSources(ctx context.Context, userID string) ([]*domain.Source, error)
	DeleteOrphanedSources(ctx context.Context, userID string) (int, error)

	// Tags
	CreateTag(ctx context.Context, tag *domain.Tag) error
	GetTag(ctx context.Context, userID, id string) (*domain.Tag, error)
	GetTagByNameNorm(ctx context.Context, userID, nameNorm string) (*domain.Tag, error)
	FindOrCreateTag(ctx context.Context, userID, name string) (*domain.Tag, bool, error)
	UpdateTag(ctx context.Context, tag *domain.Tag) error
	ListTags(ctx context.Context, userID string) ([]*domain.Tag, error)
	DeleteTag(ctx context.Context, userID, id string) error

	// Highlights
	CreateHighlightWithTags(ctx context.Context, highlight *domain.Highlight, tagIDs []string) error
	GetHighlight(ctx context.Context, userID, id string) (*domain.Highlight, error)
	GetHighlightByFingerprint(ctx context.Context, userID, fingerprint string) (*domain.Highlight, error)
	UpdateHighlight(ctx context.Context, highlight *domain.Highlight) error
	SetHighlightTags(ctx context.Context, highlightID string, tagIDs []string) error
	ArchiveHighlight(ctx context.Context, userID, id string) error
	UnarchiveHighlight(ctx context.Context, userID, id string) error
	ListHighlights(ctx context.Context, userID string, filter HighlightFilter) ([]*domain.Highlight, error)
	ListHighlightsWithTags(ctx context.Context, userID string) ([]*domain.Highlight, error)
	ListHighlightsCreatedBetween(ctx context.Context, userID string, from, to time.Time) ([]*domain.Highlight, error)
	CountHighlightsReviewedBetween(ctx context.Context, userID string, from, to time.Time) (int, error)
	TagCountsBetween(ctx context.Context, userID string, from, to time.Time) ([]domain.TagCount, error)
	SourceCountsBetween(ctx context.Context, userID string, from, to time.Time) ([]domain.SourceCount, error)

	// Links
	CreateLink(ctx context.Context, link *domain.Link) error
	DeleteLink(ctx context.Context, userID, id string) error
	ListLinksForHighlight(ctx context.Context, userID, highlightID string) ([]*domain.Link, error)
	GetLinkDegrees(ctx context.Context, userID string) (map[string]int, error)

	// Collections
	CreateCollection(ctx context.Context, collection *domain.Collection) error
	GetCollection(ctx context.Context, userID, id string) (*domain.Collection, error)
	UpdateCollection(ctx context.Context, collection *domain.Collection) error
	DeleteCollection(ctx context.Context, userID, id string) error
	ListCollections(ctx context.Context, userID string) ([]*domain.Collection, error)
	AddToCollection(ctx context.Context, collectionID, highlightID string, position int) error
	RemoveFromCollection(ctx context.Context, collectionID, highlightID string) error
	ListCollectionHighlights(ctx context.Context, userID, collectionID string) ([]*domain.Highlight, error)

	// Digest config
	GetDigestConfig(ctx context.Context, userID string) (*domain.DigestConfig, error)
	UpsertDigestConfig(ctx context.Context, config *domain.DigestConfig) error

	// Reminders
	CreateReminder(ctx context.Context, reminder *domain.Reminder) error
	GetReminder(ctx context.Context, userID, id string) (*domain.Reminder, error)
	ListReminders(ctx context.Context, userID string) ([]*domain.Reminder, error)
	ListDueReminders(ctx context.Context, before time.Time) ([]*domain.Reminder, error)
	MarkReminderFired(ctx context.Context, id string, at time.Time) error
	DeleteReminder(ctx context.Context, userID, id string) error
	DeleteRemindersForHighlight(ctx context.Context, highlightID string) (int, error)
}
