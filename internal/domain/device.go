package domain

import "time"

// Device represents a registered capture client (browser extension, e-reader
// companion, CLI importer) identified by a bearer device key.
//
// The raw key is shown exactly once at registration; only a salted digest is
// stored. KeyPrefix keeps the first characters of the raw key so the UI can
// show "phm_live_a1b2…" when listing devices.
type Device struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	Platform   string     `json:"platform,omitempty"` // browser-extension, kindle, cli, other
	KeyDigest  string     `json:"-"`                  // salted digest of the raw key, never serialized
	KeyPrefix  string     `json:"key_prefix"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// Touch updates the UpdatedAt timestamp.
func (d *Device) Touch() {
	d.UpdatedAt = time.Now()
}

// IsRevoked returns true if the device key has been revoked.
// Revoked devices fail authentication but remain listed for audit.
func (d *Device) IsRevoked() bool {
	return d.RevokedAt != nil
}

// MarkUsed records a successful authentication with this device's key.
func (d *Device) MarkUsed() {
	now := time.Now()
	d.LastUsedAt = &now
}

// IdentityKind distinguishes how a request was authenticated.
type IdentityKind string

const (
	// IdentityUISession is a browser/app session authenticated with a session token.
	IdentityUISession IdentityKind = "ui_session"
	// IdentityDeviceKey is a capture client authenticated with a device key.
	IdentityDeviceKey IdentityKind = "device_key"
)

// Identity is the resolved caller of an authenticated request.
type Identity struct {
	UserID   string       `json:"user_id"`
	DeviceID string       `json:"device_id,omitempty"` // set only for device-key callers
	Kind     IdentityKind `json:"kind"`
}

// CanManage reports whether this identity may perform management operations
// (device registration, key revocation, review actions, deletes). Device keys
// are capture-scoped and cannot manage the account.
func (i Identity) CanManage() bool {
	return i.Kind == IdentityUISession
}
