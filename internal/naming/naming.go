// Package naming derives safe on-disk and wire-facing names for fetched media.
package naming

import (
	"crypto/sha1"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultMaxFilenameLength bounds sanitized filenames handed out to clients.
const DefaultMaxFilenameLength = 100

var (
	unsafeChars    = regexp.MustCompile(`[^\w\s-]`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// Fingerprint returns the stable storage key for a source URL: the first
// 8 hex characters of its SHA-1 digest. The truncated output space is only
// 2^32, so collisions across distinct URLs are possible and accepted.
func Fingerprint(url string) string {
	sum := sha1.Sum([]byte(url))

	return hex.EncodeToString(sum[:])[:8]
}

// Sanitize strips a media title down to a filesystem-legal name. Characters
// outside [A-Za-z0-9_-] and whitespace are removed, whitespace runs collapse
// to a single underscore, and the result is truncated to maxLength with any
// extension preserved intact.
func Sanitize(title string, maxLength int) string {
	name := unsafeChars.ReplaceAllString(title, "")
	name = whitespaceRuns.ReplaceAllString(name, "_")

	if len(name) > maxLength {
		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)

		keep := maxLength - len(ext)
		if keep < 0 {
			keep = 0
		}

		name = base[:keep] + ext
	}

	return name
}

// attrChar reports whether c belongs to the attr-char set of RFC 5987,
// i.e. may appear unescaped inside a filename* header value.
func attrChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}

	switch c {
	case '!', '#', '$', '&', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}

	return false
}

// EncodeRFC5987 percent-encodes a filename for use in an extended
// `filename*=UTF-8''...` header parameter. Every byte outside the RFC 5987
// attr-char set is emitted as %XX, which keeps non-ASCII titles intact for
// clients that decode the extended form.
func EncodeRFC5987(name string) string {
	const upperhex = "0123456789ABCDEF"

	var b strings.Builder

	b.Grow(len(name))

	for i := 0; i < len(name); i++ {
		c := name[i]
		if attrChar(c) {
			b.WriteByte(c)

			continue
		}

		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0xf])
	}

	return b.String()
}
