package iprange

import "sort"

// CompareLines orders blocklist lines so that embedded numeric runs compare
// by magnitude rather than byte value: "2.0.0.0" sorts after
// "1.255.255.255". Non-digit stretches compare byte-wise. Merges apply this
// ordering uniformly since IPv4 entries dominate volume.
func CompareLines(a, b string) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			ia, ib := i, j
			for ia < len(a) && isDigit(a[ia]) {
				ia++
			}
			for ib < len(b) && isDigit(b[ib]) {
				ib++
			}
			da := trimLeadingZeros(a[i:ia])
			db := trimLeadingZeros(b[j:ib])
			if len(da) != len(db) {
				if len(da) < len(db) {
					return -1
				}
				return 1
			}
			if da != db {
				if da < db {
					return -1
				}
				return 1
			}
			i, j = ia, ib
			continue
		}
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		i++
		j++
	}
	switch {
	case i < len(a):
		return 1
	case j < len(b):
		return -1
	}
	return 0
}

// SortLines sorts lines in place using CompareLines ordering.
func SortLines(lines []string) {
	sort.Slice(lines, func(i, j int) bool {
		return CompareLines(lines[i], lines[j]) < 0
	})
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func trimLeadingZeros(s string) string {
	for len(s) > 1 && s[0] == '0' {
		s = s[1:]
	}
	return s
}
