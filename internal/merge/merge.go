// Package merge turns raw blocklist line groups into one canonical file
// body: sorted, deduplicated, free of blanks and comments.
package merge

import (
	"strings"

	"github.com/TanyaEleventhGoddess/ipfilter/internal/iprange"
)

// Merge concatenates the given line groups in caller order, sorts the whole
// set with version-aware ordering, removes duplicate lines and strips blank
// lines and lines starting with '#'. The result is canonical: running Merge
// on its own output returns identical content.
func Merge(groups ...[]string) []string {
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	all := make([]string, 0, total)
	for _, g := range groups {
		for _, line := range g {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			all = append(all, line)
		}
	}
	iprange.SortLines(all)
	// Input is sorted, so dropping consecutive duplicates dedups globally.
	out := all[:0]
	var prev string
	for i, line := range all {
		if i == 0 || line != prev {
			out = append(out, line)
		}
		prev = line
	}
	return out
}
