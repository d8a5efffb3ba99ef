package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// DeviceKeyPrefix marks raw device keys on the wire. Anything without it
	// is not a device key and falls through to session token auth.
	DeviceKeyPrefix = "phm_live_"

	// deviceKeyEntropy is the number of random bytes behind each key.
	// Keys carrying less decoded entropy are rejected as malformed.
	deviceKeyEntropy = 32

	// displayPrefixLength is how much of the raw key the UI may show
	// when listing devices ("phm_live_a1b…").
	displayPrefixLength = len(DeviceKeyPrefix) + 4
)

// DeviceKeyService generates and digests device keys.
//
// Digests are HMAC-SHA256 over the raw key using a per-install server pepper,
// so they are deterministic (a single indexed lookup finds the device) yet
// useless to an attacker who only has the database. The raw key itself is
// never stored.
type DeviceKeyService struct {
	pepper []byte
}

// NewDeviceKeyService creates a device key service with the given pepper.
// The pepper must be the 32-byte secret from LoadOrGenerateKey.
func NewDeviceKeyService(pepper []byte) (*DeviceKeyService, error) {
	if len(pepper) != keyLength {
		return nil, fmt.Errorf("device key pepper must be %d bytes, got %d", keyLength, len(pepper))
	}
	return &DeviceKeyService{pepper: pepper}, nil
}

// Generate creates a new raw device key: the fixed prefix followed by
// base64url-encoded random bytes. The caller shows it to the user once and
// stores only the digest.
func (s *DeviceKeyService) Generate() (string, error) {
	b := make([]byte, deviceKeyEntropy)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate device key: %w", err)
	}
	return DeviceKeyPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// Validate checks that a presented key is well-formed: correct prefix and at
// least deviceKeyEntropy bytes of decoded payload. It does not touch the
// database; malformed keys should be rejected before any lookup happens.
func (s *DeviceKeyService) Validate(raw string) error {
	if !strings.HasPrefix(raw, DeviceKeyPrefix) {
		return fmt.Errorf("missing %q prefix", DeviceKeyPrefix)
	}
	payload := strings.TrimPrefix(raw, DeviceKeyPrefix)
	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("payload is not valid base64url: %w", err)
	}
	if len(decoded) < deviceKeyEntropy {
		return fmt.Errorf("payload too short: %d bytes, need at least %d", len(decoded), deviceKeyEntropy)
	}
	return nil
}

// Digest computes the stored digest for a raw key.
func (s *DeviceKeyService) Digest(raw string) string {
	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// DisplayPrefix returns the short leading fragment of a raw key that is safe
// to keep for display purposes.
func DisplayPrefix(raw string) string {
	if len(raw) < displayPrefixLength {
		return raw
	}
	return raw[:displayPrefixLength]
}

// IsDeviceKey reports whether a bearer credential looks like a device key
// (as opposed to a session token).
func IsDeviceKey(credential string) bool {
	return strings.HasPrefix(credential, DeviceKeyPrefix)
}
