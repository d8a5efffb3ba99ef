// Package auth provides authentication and authorization functionality.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// Both the PASETO v4 symmetric key and the device-key pepper are
	// 256-bit (32-byte) secrets stored hex-encoded on disk.
	keyLength = 32
	// Expected hex-encoded length (32 bytes = 64 hex characters).
	keyHexLength = 64
)

// LoadOrGenerateKey loads or generates a 256-bit server secret stored as
// <dataPath>/<name> (hex-encoded). Used for both the PASETO session token key
// ("auth.key") and the device-key digest pepper ("device.key").
// If the file doesn't exist, a new key is generated and saved.
// Returns the decoded 32-byte key ready for use.
func LoadOrGenerateKey(dataPath, name string) ([]byte, error) {
	keyPath := filepath.Join(dataPath, name)

	// Try to load existing key.
	//#nosec G304 -- Key path is derived from validated data path
	if keyBytes, err := os.ReadFile(keyPath); err == nil {
		keyHex := strings.TrimSpace(string(keyBytes))

		if len(keyHex) != keyHexLength {
			return nil, fmt.Errorf("invalid key %s: expected %d hex chars, got %d", name, keyHexLength, len(keyHex))
		}

		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("invalid key %s: not valid hex: %w", name, err)
		}

		return key, nil
	}

	// Generate new key.
	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key %s: %w", name, err)
	}

	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Save key to file with restricted permissions.
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(key)), 0o600); err != nil {
		return nil, fmt.Errorf("failed to save key %s: %w", name, err)
	}

	return key, nil
}
