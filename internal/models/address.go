package models

import (
	"fmt"
	"strings"
)

// addressHexLen is the number of hex digits after the 0x prefix.
const addressHexLen = 40

// Address identifies a ledger account. Values produced by ParseAddress and
// NormalizeAddress are lowercased, so == is node identity.
type Address string

// NormalizeAddress trims and lowercases s without validating it.
func NormalizeAddress(s string) Address {
	return Address(strings.ToLower(strings.TrimSpace(s)))
}

// ParseAddress normalizes s and checks it is a 0x-prefixed 20-byte hex address.
func ParseAddress(s string) (Address, error) {
	a := NormalizeAddress(s)
	if err := a.Validate(); err != nil {
		return "", err
	}

	return a, nil
}

// Validate checks the syntax of an already normalized address.
func (a Address) Validate() error {
	s := string(a)
	if len(s) != addressHexLen+2 || !strings.HasPrefix(s, "0x") {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}

	for _, r := range s[2:] {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
	}

	return nil
}

// String implements fmt.Stringer.
func (a Address) String() string { return string(a) }

// Short returns an abbreviated form for logs and tables, e.g. 0x1234…abcd.
func (a Address) Short() string {
	s := string(a)
	if len(s) <= 12 {
		return s
	}

	return s[:6] + "…" + s[len(s)-4:]
}
