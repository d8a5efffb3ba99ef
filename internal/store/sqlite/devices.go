package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/phmapp/phm-server/internal/domain"
	"github.com/phmapp/phm-server/internal/store"
)

const deviceColumns = `id, user_id, name, platform, key_digest, key_prefix, created_at, updated_at, last_used_at, revoked_at`

func scanDevice(scanner interface{ Scan(dest ...any) error }) (*domain.Device, error) {
	var d domain.Device

	var (
		createdAt  string
		updatedAt  string
		lastUsedAt sql.NullString
		revokedAt  sql.NullString
	)

	err := scanner.Scan(
		&d.ID,
		&d.UserID,
		&d.Name,
		&d.Platform,
		&d.KeyDigest,
		&d.KeyPrefix,
		&createdAt,
		&updatedAt,
		&lastUsedAt,
		&revokedAt,
	)
	if err != nil {
		return nil, err
	}

	d.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	d.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	d.LastUsedAt, err = parseNullableTime(lastUsedAt)
	if err != nil {
		return nil, err
	}
	d.RevokedAt, err = parseNullableTime(revokedAt)
	if err != nil {
		return nil, err
	}

	return &d, nil
}

// CreateDevice inserts a new device registration.
func (s *Store) CreateDevice(ctx context.Context, d *domain.Device) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO devices (id, user_id, name, platform, key_digest, key_prefix, created_at, updated_at, last_used_at, revoked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID,
		d.UserID,
		d.Name,
		d.Platform,
		d.KeyDigest,
		d.KeyPrefix,
		formatTime(d.CreatedAt),
		formatTime(d.UpdatedAt),
		nullTimeString(d.LastUsedAt),
		nullTimeString(d.RevokedAt),
	)
	return err
}

// GetDevice retrieves a device by ID, scoped to its owner.
// Returns store.ErrNotFound if the device does not exist or belongs to another user.
func (s *Store) GetDevice(ctx context.Context, userID, id string) (*domain.Device, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id = ? AND user_id = ?`, id, userID)

	d, err := scanDevice(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// GetDeviceByKeyDigest retrieves a device by its key digest.
// This is the hot path for device key authentication: one indexed lookup.
// Returns store.ErrNotFound if no device has this digest.
func (s *Store) GetDeviceByKeyDigest(ctx context.Context, digest string) (*domain.Device, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE key_digest = ?`, digest)

	d, err := scanDevice(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateDevice persists changes to an existing device (rename, revoke, key roll).
func (s *Store) UpdateDevice(ctx context.Context, d *domain.Device) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE devices
		SET name = ?, platform = ?, key_digest = ?, key_prefix = ?, updated_at = ?, last_used_at = ?, revoked_at = ?
		WHERE id = ?`,
		d.Name,
		d.Platform,
		d.KeyDigest,
		d.KeyPrefix,
		formatTime(d.UpdatedAt),
		nullTimeString(d.LastUsedAt),
		nullTimeString(d.RevokedAt),
		d.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListDevices returns all devices for a user, newest first.
func (s *Store) ListDevices(ctx context.Context, userID string) ([]*domain.Device, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []*domain.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if devices == nil {
		devices = []*domain.Device{}
	}
	return devices, nil
}

// TouchDeviceLastUsed records a successful authentication without touching
// updated_at, so key usage doesn't look like a config change.
func (s *Store) TouchDeviceLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE devices SET last_used_at = ? WHERE id = ?`, formatTime(at), id)
	return err
}
