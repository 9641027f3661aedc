package iprange

import (
	"fmt"
	"strings"
)

// Version selects one of the two supported IP families.
type Version int

const (
	IPv4 Version = iota
	IPv6
)

// String returns the label form used in blocklist output lines.
func (v Version) String() string {
	switch v {
	case IPv4:
		return "IPv4"
	case IPv6:
		return "IPv6"
	}
	return fmt.Sprintf("Version(%d)", int(v))
}

// ParseVersion resolves a configuration value into a Version,
// case-insensitively.
func ParseVersion(s string) (Version, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ipv4":
		return IPv4, nil
	case "ipv6":
		return IPv6, nil
	}
	return 0, fmt.Errorf("unknown ip version %q", s)
}

// FromCIDR dispatches to the range converter for this family.
func (v Version) FromCIDR(cidr string) (string, string, error) {
	switch v {
	case IPv4:
		return RangeFromCIDR4(cidr)
	case IPv6:
		return RangeFromCIDR6(cidr)
	}
	return "", "", fmt.Errorf("%w: unsupported ip version %d", ErrInvalidCIDR, int(v))
}
