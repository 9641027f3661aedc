package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/TanyaEleventhGoddess/ipfilter/internal/iprange"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
output: /tmp/ipfilter.p2p
compression: gzip
download:
  attempts: 2
  timeout_sec: 10
  concurrency: 4
sources:
  - name: level1
    type: iblocklist
    data:
      list: ydxerpxkpcfqjaybcssw
geolite:
  license_key: abc
  countries: [germany, france]
  versions: [ipv4]
log:
  level: info
  console: true
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Output != "/tmp/ipfilter.p2p" || cfg.Compression != "gzip" {
		t.Errorf("unexpected output config: %+v", cfg)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].Type != "iblocklist" {
		t.Errorf("unexpected sources: %+v", cfg.Sources)
	}
	if !cfg.GeoLite.Enabled() {
		t.Error("geolite should be enabled")
	}
	versions := cfg.GeoLite.ParsedVersions()
	if len(versions) != 1 || versions[0] != iprange.IPv4 {
		t.Errorf("versions = %v, want [IPv4]", versions)
	}
	if got := cfg.Download.RetryPolicy(); got.Attempts != 2 {
		t.Errorf("retry attempts = %d, want 2", got.Attempts)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"missing output": `
sources: [{name: a, type: url, data: {url: "http://x"}}]
`,
		"bad compression": `
output: /tmp/x
compression: lzma
sources: [{name: a, type: url, data: {url: "http://x"}}]
`,
		"bad version": `
output: /tmp/x
geolite: {license_key: k, countries: [germany], versions: [ipv5]}
`,
		"no sources at all": `
output: /tmp/x
`,
		"source without type": `
output: /tmp/x
sources: [{name: a}]
`,
	}
	for name, content := range cases {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestGeoLiteDefaults(t *testing.T) {
	g := GeoLiteConfig{LicenseKey: "k", Countries: []string{"germany"}}
	versions := g.ParsedVersions()
	if len(versions) != 2 || versions[0] != iprange.IPv4 || versions[1] != iprange.IPv6 {
		t.Errorf("default versions = %v, want both families", versions)
	}
	if (GeoLiteConfig{Countries: []string{"x"}}).Enabled() {
		t.Error("geolite must stay disabled without a license key")
	}
	if (GeoLiteConfig{LicenseKey: "k"}).Enabled() {
		t.Error("geolite must stay disabled without countries")
	}
}
