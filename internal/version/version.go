package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is an ordered tuple of non-negative integer components,
// e.g. 3.1.0. Comparison pads the shorter tuple with trailing zeros,
// so 1.2 and 1.2.0 compare equal. That rule is load-bearing: diff
// packages match on exact version equality.
type Version struct {
	parts []uint64
}

type ParseError struct {
	Input string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed version %q: %v", e.Input, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// New builds a Version from explicit components.
func New(parts ...uint64) Version {
	return Version{parts: parts}
}

// Parse reads a dotted version string like "2.5.0".
func Parse(text string) (Version, error) {
	if strings.TrimSpace(text) == "" {
		return Version{}, &ParseError{Input: text, Cause: fmt.Errorf("empty string")}
	}

	raw := strings.Split(strings.TrimSpace(text), ".")
	parts := make([]uint64, 0, len(raw))

	for _, r := range raw {
		n, err := strconv.ParseUint(r, 10, 64)
		if err != nil {
			return Version{}, &ParseError{Input: text, Cause: err}
		}
		parts = append(parts, n)
	}

	return Version{parts: parts}, nil
}

// MustParse is for literals in tests and configuration defaults.
func MustParse(text string) Version {
	v, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return v
}

// Compare returns -1, 0 or 1. Total and transitive: missing trailing
// components count as zero.
func (v Version) Compare(other Version) int {
	n := len(v.parts)
	if len(other.parts) > n {
		n = len(other.parts)
	}

	for i := 0; i < n; i++ {
		a, b := v.at(i), other.at(i)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}
	return 0
}

func (v Version) at(i int) uint64 {
	if i < len(v.parts) {
		return v.parts[i]
	}
	return 0
}

func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }
func (v Version) Less(other Version) bool  { return v.Compare(other) == -1 }

// IsZero reports whether the version carries no components at all,
// i.e. the zero value. A parsed "0.0.0" is not zero.
func (v Version) IsZero() bool { return len(v.parts) == 0 }

func (v Version) String() string {
	if len(v.parts) == 0 {
		return "0"
	}

	s := make([]string, len(v.parts))
	for i, p := range v.parts {
		s[i] = strconv.FormatUint(p, 10)
	}
	return strings.Join(s, ".")
}
