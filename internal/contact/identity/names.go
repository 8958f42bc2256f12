package identity

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var displayNameRe = regexp.MustCompile(`^"?([^"<]+)"?\s*<`)

// ExtractName returns the display name of a header like `"Jane Doe" <jane@x.com>`.
// Headers without a bracketed address yield "".
func ExtractName(raw string) string {
	m := displayNameRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return ""
	}
	name := strings.TrimSpace(m[1])
	if len(name) >= 2 && strings.HasPrefix(name, `"`) && strings.HasSuffix(name, `"`) {
		name = name[1 : len(name)-1]
	}
	return name
}

// BestName picks the longer of two names, keeping existing on a tie.
func BestName(existing, candidate string) string {
	if existing == "" {
		return candidate
	}
	if candidate == "" {
		return existing
	}
	if utf8.RuneCountInString(candidate) > utf8.RuneCountInString(existing) {
		return candidate
	}
	return existing
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsAddress reports whether s looks like a usable mail address.
func IsAddress(s string) bool {
	at := strings.IndexByte(s, '@')
	return at > 0 && at < len(s)-1
}
