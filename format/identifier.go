package format

import (
	"encoding/hex"
	"strings"

	"github.com/wippyai/move-binary-format/errors"
)

// SelfIdentifier is the reserved name scripts use for their own module handle.
const SelfIdentifier = "<SELF>"

// Identifier is a validated name.
type Identifier string

// IsValidIdentifier reports whether s is an identifier: a letter followed by
// letters, digits and underscores, or an underscore followed by at least one
// of those. The reserved SelfIdentifier is also accepted.
func IsValidIdentifier(s string) bool {
	if s == SelfIdentifier {
		return true
	}
	if s == "" || len(s) > IdentifierSizeMax {
		return false
	}
	first := s[0]
	switch {
	case isLetter(first):
	case first == '_':
		if len(s) == 1 {
			return false
		}
	default:
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !isLetter(c) && !isDigit(c) && c != '_' {
			return false
		}
	}
	return true
}

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }

// NewIdentifier validates s.
func NewIdentifier(s string) (Identifier, error) {
	if !IsValidIdentifier(s) {
		return "", errors.New(errors.PhaseBuild, errors.KindMalformed).
			Path("identifiers").
			Detail("invalid identifier %q", s).
			Build()
	}
	return Identifier(s), nil
}

func (id Identifier) String() string { return string(id) }

// AccountAddress is a fixed-width account address.
type AccountAddress [AddressLength]byte

// ParseAddress parses a hex address with an optional 0x prefix. Short forms
// are left-padded with zeros, so "0x1" is the address ending in 01.
func ParseAddress(s string) (AccountAddress, error) {
	var a AccountAddress
	h := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if h == "" || len(h) > 2*AddressLength {
		return a, errors.InvalidInput(errors.PhaseBuild, "invalid address "+s)
	}
	if len(h)%2 == 1 {
		h = "0" + h
	}
	raw, err := hex.DecodeString(h)
	if err != nil {
		return a, errors.Wrap(errors.PhaseBuild, errors.KindInvalidInput, err, "invalid address "+s)
	}
	copy(a[AddressLength-len(raw):], raw)
	return a, nil
}

// MustParseAddress is ParseAddress that panics on error. Intended for
// constants and tests.
func MustParseAddress(s string) AccountAddress {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Hex returns the full-width lowercase hex form with a 0x prefix.
func (a AccountAddress) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// ShortString returns the hex form with leading zeros trimmed, at least one digit.
func (a AccountAddress) ShortString() string {
	s := strings.TrimLeft(hex.EncodeToString(a[:]), "0")
	if s == "" {
		s = "0"
	}
	return "0x" + s
}

func (a AccountAddress) String() string { return a.ShortString() }

// ModuleID names a module globally: its address and name.
type ModuleID struct {
	Address AccountAddress
	Name    Identifier
}

func (id ModuleID) String() string {
	return id.Address.ShortString() + "::" + string(id.Name)
}
