package iprange

import (
	"fmt"
	"strconv"
	"strings"
)

// RangeFromCIDR6 converts an IPv6 CIDR into the inclusive start/end
// addresses of its block. Results are fully expanded: eight lowercase hex
// words zero-padded to four digits, no "::" compression. The fixed width
// keeps lexicographic ordering of the output equivalent to numeric
// ordering, which the sort discipline depends on.
//
// The prefix is consumed word by word (up to 16 bits each), so no 128-bit
// arithmetic is needed.
func RangeFromCIDR6(cidr string) (string, string, error) {
	addrPart, n, err := splitCIDR(cidr, 128)
	if err != nil {
		return "", "", err
	}
	words, err := expandIPv6(addrPart)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q: %v", ErrInvalidCIDR, cidr, err)
	}
	remaining := n
	var startWords, endWords [8]uint16
	for i, w := range words {
		wb := remaining
		if wb > 16 {
			wb = 16
		}
		var mask uint16
		if wb > 0 {
			mask = ^uint16(0) << (16 - wb)
		}
		startWords[i] = w & mask
		endWords[i] = w | ^mask
		remaining -= wb
	}
	return formatIPv6(startWords), formatIPv6(endWords), nil
}

// expandIPv6 resolves at most one "::" elision and parses the eight
// 16-bit words of the address.
func expandIPv6(addr string) ([8]uint16, error) {
	var words [8]uint16
	if strings.Count(addr, "::") > 1 {
		return words, fmt.Errorf("more than one :: elision")
	}
	var groups []string
	if left, right, ok := strings.Cut(addr, "::"); ok {
		var head, tail []string
		if left != "" {
			head = strings.Split(left, ":")
		}
		if right != "" {
			tail = strings.Split(right, ":")
		}
		pad := 8 - len(head) - len(tail)
		if pad < 1 {
			return words, fmt.Errorf(":: expands to no groups")
		}
		groups = append(groups, head...)
		for i := 0; i < pad; i++ {
			groups = append(groups, "0")
		}
		groups = append(groups, tail...)
	} else {
		groups = strings.Split(addr, ":")
	}
	if len(groups) != 8 {
		return words, fmt.Errorf("got %d groups, want 8", len(groups))
	}
	for i, g := range groups {
		v, err := strconv.ParseUint(g, 16, 16)
		if err != nil {
			return words, fmt.Errorf("bad group %q", g)
		}
		words[i] = uint16(v)
	}
	return words, nil
}

func formatIPv6(words [8]uint16) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = fmt.Sprintf("%04x", w)
	}
	return strings.Join(parts, ":")
}
