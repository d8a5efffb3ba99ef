// Package normalize provides utilities for normalizing and sanitizing data.
//
// Source identity keys derived here decide whether two captures refer to the
// same source, so the rules are deliberately conservative: lower-case host
// with a single leading "www." stripped for web sources, casefolded
// whitespace-collapsed title for book sources. Author is display metadata and
// never participates in identity.
package normalize

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// fingerprintNamespace is the UUIDv5 namespace for import fingerprints.
// Changing it invalidates every stored fingerprint, so it is fixed forever.
//
//nolint:gochecknoglobals // Static namespace constant
var fingerprintNamespace = uuid.MustParse("8f3c1a52-9d0e-4b47-8c11-2e5a6f9b0d34")

// SourceDomain derives the identity key for a web source from a raw URL.
// The key is the lower-cased host with a single leading "www." and any port
// stripped. Accepts bare domains ("Example.COM") as well as full URLs.
// Returns empty string when no host can be extracted.
func SourceDomain(raw string) string {
	s := strings.TrimSpace(sanitizeString(raw))
	if s == "" {
		return ""
	}

	host := s
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil || u.Host == "" {
			return ""
		}
		host = u.Host
	} else {
		// Bare domain, possibly with a path tacked on.
		if idx := strings.IndexByte(host, '/'); idx >= 0 {
			host = host[:idx]
		}
	}

	host = strings.ToLower(host)
	if idx := strings.LastIndexByte(host, ':'); idx >= 0 && !strings.Contains(host, "]") {
		host = host[:idx]
	}
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimSuffix(host, ".")
	return host
}

// SourceTitle derives the identity key for a book source from its title:
// casefolded with runs of whitespace collapsed to single spaces. Author is
// intentionally not part of the key.
func SourceTitle(raw string) string {
	s := sanitizeString(raw)
	fields := strings.Fields(strings.ToLower(s))
	return strings.Join(fields, " ")
}

// TagName canonicalizes a tag name: trimmed, lower-cased, inner whitespace
// collapsed. Two names with the same canonical form are the same tag.
func TagName(raw string) string {
	fields := strings.Fields(strings.ToLower(sanitizeString(raw)))
	return strings.Join(fields, " ")
}

// HighlightText trims surrounding whitespace and strips null bytes from
// captured text. Inner whitespace is preserved verbatim.
func HighlightText(raw string) string {
	return strings.TrimSpace(sanitizeString(raw))
}

// Fingerprint computes a deterministic import fingerprint for a highlight so
// repeated imports of the same capture can be detected. The fingerprint is a
// UUIDv5 over the source identity key and the normalized text.
func Fingerprint(sourceKey, text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	return uuid.NewSHA1(fingerprintNamespace, []byte(sourceKey+"\x00"+normalized)).String()
}

// sanitizeString removes null bytes from strings, which can cause
// issues in databases and JSON parsing. Some capture clients include
// null terminators in strings.
func sanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 { // null byte
			return -1 // drop it
		}
		return r
	}, s)
}
