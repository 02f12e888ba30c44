// Package mask redacts contact identifiers before they reach log output.
// Mobile numbers, emails and usernames must never appear in full in logs.
package mask

import "strings"

// Contact masks an identifier down to its first two and last two characters.
// Anything four characters or shorter is fully redacted.
func Contact(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + "****" + s[len(s)-2:]
}

// Email masks the local part of an email address, keeping the domain.
// Falls back to Contact for values without an "@".
func Email(s string) string {
	at := strings.LastIndex(s, "@")
	if at <= 0 {
		return Contact(s)
	}
	local, dom := s[:at], s[at+1:]
	if len(local) <= 2 {
		return "****@" + dom
	}
	return local[:2] + "****@" + dom
}
