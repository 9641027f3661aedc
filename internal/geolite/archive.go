package geolite

import (
	"archive/zip"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/schema"

	"github.com/TanyaEleventhGoddess/ipfilter/internal/iprange"
)

const (
	// DefaultEndpoint is the MaxMind permalink for license-keyed downloads.
	DefaultEndpoint = "https://download.maxmind.com/app/geoip_download"

	editionID = "GeoLite2-Country-CSV"

	locationsSuffix  = "-Locations-en.csv"
	blocksIPv4Suffix = "-Blocks-IPv4.csv"
	blocksIPv6Suffix = "-Blocks-IPv6.csv"
)

type downloadParams struct {
	EditionID  string `schema:"edition_id"`
	LicenseKey string `schema:"license_key"`
	Suffix     string `schema:"suffix"`
}

// DownloadURL builds the country database download link for the given
// license key. An empty endpoint selects the MaxMind permalink.
func DownloadURL(endpoint, licenseKey string) (string, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	values := url.Values{}
	params := &downloadParams{
		EditionID:  editionID,
		LicenseKey: licenseKey,
		Suffix:     "zip",
	}
	if err := schema.NewEncoder().Encode(params, values); err != nil {
		return "", fmt.Errorf("encode geolite download params: %w", err)
	}
	return endpoint + "?" + values.Encode(), nil
}

// Database holds the CSV paths extracted from one GeoLite2 snapshot.
type Database struct {
	Locations  string
	blocksIPv4 string
	blocksIPv6 string
}

// Blocks returns the extracted blocks table path for the given family, or
// empty when the archive did not carry one.
func (d *Database) Blocks(v iprange.Version) string {
	switch v {
	case iprange.IPv4:
		return d.blocksIPv4
	case iprange.IPv6:
		return d.blocksIPv6
	}
	return ""
}

// ExtractDatabase unpacks the CSVs we need from a GeoLite2 zip archive into
// destDir. Entries are located by basename suffix, so the dated top-level
// folder inside the archive does not matter. A missing locations table is
// fatal; missing blocks tables are reported by Blocks returning empty.
func ExtractDatabase(zipPath, destDir string) (*Database, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open geolite archive %s: %w", zipPath, err)
	}
	defer zr.Close()

	db := &Database{}
	for _, f := range zr.File {
		base := filepath.Base(f.Name)
		var dest *string
		switch {
		case strings.HasSuffix(base, locationsSuffix):
			dest = &db.Locations
		case strings.HasSuffix(base, blocksIPv4Suffix):
			dest = &db.blocksIPv4
		case strings.HasSuffix(base, blocksIPv6Suffix):
			dest = &db.blocksIPv6
		default:
			continue
		}
		out := filepath.Join(destDir, base)
		if err := extractFile(f, out); err != nil {
			return nil, fmt.Errorf("extract %s: %w", f.Name, err)
		}
		*dest = out
	}
	if db.Locations == "" {
		return nil, fmt.Errorf("locations table not found in %s", zipPath)
	}
	return db, nil
}

func extractFile(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
