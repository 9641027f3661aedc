package geolite

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Locations table layout: geoname_id, locale_code, continent_code,
// continent_name, country_iso_code, country_name, is_in_european_union.
const locationFieldCount = 7

const (
	fieldGeonameID     = 0
	fieldContinentName = 3
	fieldCountryName   = 5
)

// Entry is one resolvable country (or continent) in the index.
type Entry struct {
	GeonameID string
	// Name keeps the display casing from the source table; output labels
	// use it verbatim regardless of how the country was requested.
	Name string
}

// Index maps lowercase country and continent names to geoname entries.
// It is immutable after construction and safe for concurrent readers.
type Index struct {
	entries map[string]Entry
}

// BuildIndex parses a GeoLite2 locations table. The header row is skipped.
// Rows with an unexpected field count are logged and dropped rather than
// aborting the run. Continent names stand in for countries whose name field
// is empty. On duplicate names the last row wins.
func BuildIndex(ctx context.Context, r io.Reader) (*Index, error) {
	logger := logutil.GetLogger(ctx)
	cr := csv.NewReader(r)
	// Field counts are checked per row so a bad row skips instead of failing
	// the whole table.
	cr.FieldsPerRecord = -1
	entries := make(map[string]Entry)
	header := true
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read locations table: %w", err)
		}
		if header {
			header = false
			continue
		}
		if len(row) != locationFieldCount {
			logger.Warn("skip malformed location row",
				zap.Int("fields", len(row)), zap.String("row", strings.Join(row, ",")))
			continue
		}
		name := row[fieldCountryName]
		if name == "" {
			name = row[fieldContinentName]
		}
		if name == "" {
			logger.Warn("skip unnamed location row", zap.String("geoname_id", row[fieldGeonameID]))
			continue
		}
		entries[strings.ToLower(name)] = Entry{GeonameID: row[fieldGeonameID], Name: name}
	}
	return &Index{entries: entries}, nil
}

// Lookup resolves a country or continent name case-insensitively.
func (i *Index) Lookup(name string) (Entry, bool) {
	e, ok := i.entries[strings.ToLower(strings.TrimSpace(name))]
	return e, ok
}

// Len reports the number of indexed names.
func (i *Index) Len() int {
	return len(i.entries)
}
