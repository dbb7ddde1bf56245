// Package validate holds input sanitization and format validation for
// identity fields. Sanitization transforms input so it is safe to render;
// validation rejects input that fails a structural or strength rule. The two
// are separate on purpose: running both lets stored data be safe-to-render
// while structurally invalid identifiers are still refused before they reach
// storage.
package validate

import (
	"regexp"
	"strings"
)

var (
	tagPattern      = regexp.MustCompile(`<[^>]*>`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)
	emailPattern    = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
)

// specialChars is the set a password must draw at least one character from.
const specialChars = `!@#$%^&*(),.?":{}|<>`

// escaper neutralizes the characters meaningful to HTML rendering contexts.
// The ampersand is intentionally not escaped: it is inert without an
// adjacent tag, and escaping it would make Sanitize non-idempotent.
var escaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	`"`, "&#34;",
	"'", "&#39;",
)

// Sanitize strips markup-like substrings, trims surrounding whitespace and
// escapes the remaining characters meaningful to HTML. It is idempotent and
// passes empty input through unchanged.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	s = tagPattern.ReplaceAllString(s, "")
	return escaper.Replace(strings.TrimSpace(s))
}

// Username reports whether s is 3-20 characters of letters, digits and
// underscores.
func Username(s string) bool {
	return usernamePattern.MatchString(s)
}

// Email reports whether s has a standard local@domain.tld shape with a TLD
// of at least two letters.
func Email(s string) bool {
	return emailPattern.MatchString(s)
}

// PasswordStrength reports whether s is at least 8 characters and contains
// at least one special character.
func PasswordStrength(s string) bool {
	return len(s) >= 8 && strings.ContainsAny(s, specialChars)
}
