package auth

import "crypto/subtle"

// CheckAdminPassword compares a candidate against the configured operator
// password. Length mismatch rejects before any byte comparison; equal-length
// candidates are compared in constant time.
func CheckAdminPassword(candidate, configured string) bool {
	if configured == "" {
		return false
	}
	if len(candidate) != len(configured) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(configured)) == 1
}
