package common

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidPhone is returned for numbers that cannot be normalized to the
// canonical 2547XXXXXXXX form.
var ErrInvalidPhone = errors.New("invalid phone number")

var canonicalPhone = regexp.MustCompile(`^2547\d{8}$`)

// NormalizePhone converts Kenyan subscriber numbers to the 12-digit
// international form M-Pesa expects. Accepted inputs: 07XXXXXXXX, 7XXXXXXXX
// and 2547XXXXXXXX, with or without a leading + and surrounding whitespace.
func NormalizePhone(input string) (string, error) {
	p := strings.TrimSpace(input)
	p = strings.TrimPrefix(p, "+")
	p = strings.ReplaceAll(p, " ", "")
	p = strings.ReplaceAll(p, "-", "")

	switch {
	case len(p) == 10 && strings.HasPrefix(p, "07"):
		p = "254" + p[1:]
	case len(p) == 9 && strings.HasPrefix(p, "7"):
		p = "254" + p
	}

	if !canonicalPhone.MatchString(p) {
		return "", ErrInvalidPhone
	}
	return p, nil
}
