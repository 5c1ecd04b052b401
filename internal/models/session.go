package models

import "time"

// expiry values below this are interpreted as epoch seconds, not milliseconds.
// Any millisecond timestamp after Sep 2001 clears the threshold untouched.
const msThreshold = 1_000_000_000_000

// AuthSession represents the authenticated identity the transport acts under
type AuthSession struct {
	IDToken       string `json:"idToken"`
	SessionExpiry int64  `json:"sessionExpiry"` // epoch ms
	UserAddress   string `json:"userAddress"`
	VendorAddress string `json:"vendorAddress"`
}

// NormalizeExpiry converts a seconds-resolution expiry to milliseconds.
// Comparisons must only ever see millisecond values.
func NormalizeExpiry(expiry int64) int64 {
	if expiry > 0 && expiry < msThreshold {
		return expiry * 1000
	}
	return expiry
}

// Valid reports whether the session can still authenticate requests at now.
// A session whose expiry has passed is treated as absent regardless of its
// other fields.
func (s *AuthSession) Valid(now time.Time) bool {
	if s == nil || s.IDToken == "" {
		return false
	}
	return NormalizeExpiry(s.SessionExpiry) > now.UnixMilli()
}
