// Package phone canonicalizes North American phone numbers into E.164 form.
package phone

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidNumber reports input that cannot be canonicalized.
var ErrInvalidNumber = errors.New("phone: invalid number format")

// Compiled once, matched in order of specificity.
var (
	e164PlusOne = regexp.MustCompile(`^\+1[1-9]\d{1,10}$`)
	e164One     = regexp.MustCompile(`^1[1-9]\d{1,10}$`)
	e164Bare    = regexp.MustCompile(`^[1-9]\d{1,10}$`)

	strictNational = regexp.MustCompile(`^[1-9]\d{9}$`)
)

func stripSeparators(raw string) string {
	r := strings.NewReplacer("-", "", " ", "", "(", "", ")", "")
	return r.Replace(raw)
}

// Normalize canonicalizes raw input into '+1##########' E.164 form.
// Spaces, hyphens, and parentheses are stripped; a bare national number or a
// number with a leading '1' gains the '+1' country prefix. Input that matches
// none of the accepted shapes returns ErrInvalidNumber, never a truncated value.
func Normalize(raw string) (string, error) {
	digits := stripSeparators(strings.TrimSpace(raw))
	switch {
	case e164PlusOne.MatchString(digits):
		// example: +13609871234, already canonical
		return digits, nil
	case e164One.MatchString(digits):
		// example: 13609871234, add '+'
		return "+" + digits, nil
	case e164Bare.MatchString(digits):
		// example: 3609871234, add '+1'
		return "+1" + digits, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
}

// StrictNational enforces the command-line gate: after separator stripping and
// removal of a leading trunk '1' from an 11-digit value, exactly 10 national
// digits must remain (area code, prefix, and line number only). This is a
// stricter rule than Normalize and is intentionally kept separate.
func StrictNational(raw string) (string, error) {
	digits := stripSeparators(strings.TrimSpace(raw))
	digits = strings.TrimPrefix(digits, "+")
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if !strictNational.MatchString(digits) {
		return "", fmt.Errorf("%w: %q is not 10 national digits", ErrInvalidNumber, raw)
	}
	return "+1" + digits, nil
}
