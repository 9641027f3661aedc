package iprange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCIDR reports a malformed address or prefix length. Callers skip
// the offending line and continue.
var ErrInvalidCIDR = errors.New("invalid cidr")

// RangeFromCIDR4 converts an IPv4 CIDR into the inclusive start/end
// addresses of its block, both rendered dotted-decimal. The start address
// has all host bits cleared, the end address has them all set.
func RangeFromCIDR4(cidr string) (string, string, error) {
	addrPart, n, err := splitCIDR(cidr, 32)
	if err != nil {
		return "", "", err
	}
	octets := strings.Split(addrPart, ".")
	if len(octets) != 4 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidCIDR, cidr)
	}
	var addr uint32
	for _, oct := range octets {
		v, err := strconv.ParseUint(oct, 10, 8)
		if err != nil {
			return "", "", fmt.Errorf("%w: %q", ErrInvalidCIDR, cidr)
		}
		addr = addr<<8 | uint32(v)
	}
	// Shifting a uint32 by 32 is not what we want for /0, guard it.
	var mask uint32
	if n > 0 {
		mask = ^uint32(0) << (32 - n)
	}
	start := addr & mask
	end := addr | ^mask
	return formatIPv4(start), formatIPv4(end), nil
}

func formatIPv4(v uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func splitCIDR(cidr string, maxPrefix int) (string, int, error) {
	addr, prefix, ok := strings.Cut(strings.TrimSpace(cidr), "/")
	if !ok {
		return "", 0, fmt.Errorf("%w: missing prefix length in %q", ErrInvalidCIDR, cidr)
	}
	n, err := strconv.Atoi(prefix)
	if err != nil || n < 0 || n > maxPrefix {
		return "", 0, fmt.Errorf("%w: bad prefix length in %q", ErrInvalidCIDR, cidr)
	}
	return addr, n, nil
}
