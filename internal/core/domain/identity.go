package domain

import (
	"fmt"
	"math"
	"strings"
)

// Identity is an account identifier. Callers, managers, approvers and
// recipients are all identities.
type Identity string

// ParseIdentity normalises raw into an Identity. Surrounding whitespace is
// removed and the value is lowercased so that "0xAB" and "0xab" refer to the
// same account.
func ParseIdentity(raw string) (Identity, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidIdentity)
	}
	if strings.ContainsAny(s, " \t\r\n/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentity, raw)
	}
	return Identity(s), nil
}

// Amount is a value in the smallest currency unit.
type Amount int64

// Validate reports ErrInvalidAmount for negative values.
func (a Amount) Validate() error {
	if a < 0 {
		return fmt.Errorf("%w: %d is negative", ErrInvalidAmount, a)
	}
	return nil
}

// add returns a+b, failing instead of overflowing.
func (a Amount) add(b Amount) (Amount, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, fmt.Errorf("%w: balance overflow", ErrInvalidAmount)
	}
	return a + b, nil
}
