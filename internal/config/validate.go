package config

import (
	"fmt"
	"strings"
)

const (
	accountSIDLen    = 34
	accountSIDPrefix = "AC"
	authTokenLen     = 32
)

// FieldError names one failing configuration field and why it failed.
type FieldError struct {
	Field  string
	Reason string
}

// ValidationError aggregates every failing field so a single Load reports the
// whole shape of the problem at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Reason))
	}
	return "config: invalid settings: " + strings.Join(parts, "; ")
}

// checkAccountSID validates the shape of a Twilio account identifier.
// Credentials are never normalized: they are exactly correct or rejected.
func checkAccountSID(sid string) string {
	if len(sid) != accountSIDLen {
		return fmt.Sprintf("invalid length: %d chars (want %d)", len(sid), accountSIDLen)
	}
	if !strings.HasPrefix(sid, accountSIDPrefix) {
		return fmt.Sprintf("invalid format: missing %q prefix", accountSIDPrefix)
	}
	return ""
}

// checkAuthToken validates the shape of a Twilio auth token.
func checkAuthToken(token string) string {
	if len(token) != authTokenLen {
		return fmt.Sprintf("invalid length: %d chars (want %d)", len(token), authTokenLen)
	}
	for _, r := range token {
		if !isHexDigit(r) {
			return "invalid charset: not hexadecimal"
		}
	}
	return ""
}

func isHexDigit(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r >= 'a' && r <= 'f':
		return true
	case r >= 'A' && r <= 'F':
		return true
	}
	return false
}
