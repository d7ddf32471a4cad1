package util

import (
	"net/mail"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone strips formatting and returns the E.164 form of raw.
// Returns ("", false) when raw is not a valid, dialable number.
func NormalizePhone(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if strings.HasPrefix(s, "00") {
		s = "+" + s[2:]
	}

	num, err := phonenumbers.Parse(s, "")
	if err != nil {
		return "", false
	}
	if !phonenumbers.IsPossibleNumber(num) || !phonenumbers.IsValidNumber(num) {
		return "", false
	}

	return phonenumbers.Format(num, phonenumbers.E164), true
}

// ValidEmail reports whether raw is a bare email address (no display name).
func ValidEmail(raw string) bool {
	s := strings.TrimSpace(raw)
	if s == "" || len(s) > 320 || !strings.Contains(s, "@") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s
}
