package geolite

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TanyaEleventhGoddess/ipfilter/internal/iprange"
)

// BlockRow is one (network, geoname_id) row from a per-version blocks table.
// Extra columns in the source CSV are ignored.
type BlockRow struct {
	CIDR      string
	GeonameID string
}

// ReadBlocks parses a GeoLite2 blocks CSV. The header row is skipped; rows
// narrower than two fields are logged and dropped.
func ReadBlocks(ctx context.Context, r io.Reader) ([]BlockRow, error) {
	logger := logutil.GetLogger(ctx)
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	var rows []BlockRow
	header := true
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read blocks table: %w", err)
		}
		if header {
			header = false
			continue
		}
		if len(row) < 2 {
			logger.Warn("skip malformed block row", zap.String("row", strings.Join(row, ",")))
			continue
		}
		rows = append(rows, BlockRow{CIDR: row[0], GeonameID: row[1]})
	}
	return rows, nil
}

// Generate derives labeled range lines for the requested countries, one
// group per request, in request order. Countries missing from the index are
// logged and skipped; their group stays empty. The index is read-only here,
// so generation fans out across a bounded worker group with one output
// buffer per country.
func Generate(ctx context.Context, idx *Index, countries []string, versions []iprange.Version, blocks map[iprange.Version][]BlockRow, concurrency int) [][]string {
	if concurrency <= 0 {
		concurrency = 1
	}
	groups := make([][]string, len(countries))
	eg := errgroup.Group{}
	eg.SetLimit(concurrency)
	for i, name := range countries {
		eg.Go(func() error {
			groups[i] = generateCountry(ctx, idx, name, versions, blocks)
			return nil
		})
	}
	// Workers warn and skip, they never fail the group.
	_ = eg.Wait()
	return groups
}

func generateCountry(ctx context.Context, idx *Index, name string, versions []iprange.Version, blocks map[iprange.Version][]BlockRow) []string {
	logger := logutil.GetLogger(ctx)
	entry, ok := idx.Lookup(name)
	if !ok {
		logger.Warn("country not found in geolite index, skipping", zap.String("country", name))
		return nil
	}
	var group []string
	for _, version := range versions {
		rows, ok := blocks[version]
		if !ok {
			logger.Warn("no block table loaded for ip version, skipping",
				zap.Stringer("version", version), zap.String("country", entry.Name))
			continue
		}
		var lines []string
		for _, row := range rows {
			if row.GeonameID != entry.GeonameID {
				continue
			}
			start, end, err := version.FromCIDR(row.CIDR)
			if err != nil {
				logger.Warn("skip invalid cidr", zap.String("cidr", row.CIDR), zap.Error(err))
				continue
			}
			lines = append(lines, fmt.Sprintf("%s %s:%s-%s", entry.Name, version, start, end))
		}
		group = append(group, dedupSorted(lines, version)...)
	}
	return group
}

// dedupSorted sorts one (country, version) set and drops exact duplicates,
// in place. IPv4 lines order numerically; IPv6 lines order lexicographically,
// which matches numeric order word by word because the range converter emits
// fixed-width hex.
func dedupSorted(lines []string, version iprange.Version) []string {
	if version == iprange.IPv6 {
		sort.Strings(lines)
	} else {
		sort.Slice(lines, func(i, j int) bool {
			return iprange.CompareLines(lines[i], lines[j]) < 0
		})
	}
	out := lines[:0]
	var prev string
	for i, line := range lines {
		if i == 0 || line != prev {
			out = append(out, line)
		}
		prev = line
	}
	return out
}
