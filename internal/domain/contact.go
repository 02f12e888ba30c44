package domain

import "regexp"

// mobilePattern matches Indian mobile numbers: 10 digits starting with 6-9.
var mobilePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

// IsMobileNumber reports whether s looks like a mobile number. Login
// identifiers that don't match are treated as email addresses.
func IsMobileNumber(s string) bool {
	return mobilePattern.MatchString(s)
}
