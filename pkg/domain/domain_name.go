package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxDomainLength is the longest textual domain name accepted, in characters.
const MaxDomainLength = 253

// DomainName is a validated, lower-cased, trimmed domain name.
// Resolvers accept only this type so malformed input never reaches network code.
//
// Invariants:
//   - Non-empty
//   - At most 253 characters
//   - Dot-separated labels matching [a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?
type DomainName struct {
	value string
}

var domainNamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)*$`)

// ErrInvalidDomain indicates the input failed domain name validation.
var ErrInvalidDomain = errors.New("invalid domain")

// ParseDomainName trims and lower-cases raw, then validates it.
// The returned error wraps ErrInvalidDomain and carries a human-readable reason.
func ParseDomainName(raw string) (DomainName, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return DomainName{}, fmt.Errorf("%w: domain is required", ErrInvalidDomain)
	}
	if len(value) > MaxDomainLength {
		return DomainName{}, fmt.Errorf("%w: domain name too long", ErrInvalidDomain)
	}
	if !domainNamePattern.MatchString(value) {
		return DomainName{}, fmt.Errorf("%w: invalid domain format", ErrInvalidDomain)
	}
	return DomainName{value: value}, nil
}

// MustDomainName parses raw, panicking if invalid.
// Use only in tests or when the value is known to be valid.
func MustDomainName(raw string) DomainName {
	d, err := ParseDomainName(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// String returns the normalized domain name.
func (d DomainName) String() string {
	return d.value
}

// IsZero returns true if this is the zero value (uninitialized).
func (d DomainName) IsZero() bool {
	return d.value == ""
}

// Labels returns the dot-separated labels in order.
func (d DomainName) Labels() []string {
	if d.value == "" {
		return nil
	}
	return strings.Split(d.value, ".")
}

// TopLevel returns the rightmost label ("com" in "www.example.com").
func (d DomainName) TopLevel() string {
	if i := strings.LastIndexByte(d.value, '.'); i >= 0 {
		return d.value[i+1:]
	}
	return d.value
}

// Remainder returns everything left of the top-level label
// ("www.example" in "www.example.com"), or "" for a single-label name.
func (d DomainName) Remainder() string {
	if i := strings.LastIndexByte(d.value, '.'); i >= 0 {
		return d.value[:i]
	}
	return ""
}

// IsPublicHost reports whether d can name a host on the public internet.
// Single-label names, names under a local-use top-level label, and names a
// URL parser reads as an IPv4 address ("127.0.0.1", "0x7f.1") are not.
func (d DomainName) IsPublicHost() bool {
	if d.value == "" || !strings.Contains(d.value, ".") {
		return false
	}
	tld := d.TopLevel()
	switch tld {
	case "localhost", "local", "internal", "lan", "home", "arpa":
		return false
	}
	return !isNumericLabel(tld)
}

// isNumericLabel matches the decimal and hex forms URL parsers accept as the
// last component of an IPv4 address.
func isNumericLabel(label string) bool {
	digits := label
	hex := false
	if strings.HasPrefix(label, "0x") {
		digits, hex = label[2:], true
		if digits == "" {
			return true
		}
	}
	for _, c := range digits {
		switch {
		case c >= '0' && c <= '9':
		case hex && c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}

// Reason returns the human-readable part of a validation error.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimPrefix(err.Error(), ErrInvalidDomain.Error()+": ")
}
