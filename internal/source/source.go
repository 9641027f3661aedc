// Package source holds the blocklist source registry. Source types register
// a factory; configuration picks them by type name and supplies free-form
// args decoded per factory.
package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/TanyaEleventhGoddess/ipfilter/internal/fetch"
)

// Source produces one group of raw blocklist lines in p2p format.
type Source interface {
	Name() string
	Type() string
	Fetch(ctx context.Context, f *fetch.Fetcher) ([]string, error)
}

type Factory func(name string, args interface{}) (Source, error)

var m = make(map[string]Factory)

func Register(typ string, fac Factory) {
	m[typ] = fac
}

func Make(typ string, name string, args interface{}) (Source, error) {
	fac, ok := m[typ]
	if !ok {
		return nil, fmt.Errorf("source type:%s not found", typ)
	}
	return fac(name, args)
}

// splitLines breaks a downloaded payload into trimmed lines. Blank and
// comment lines survive here; the merge step strips them.
func splitLines(body []byte) ([]string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("split payload: %w", err)
	}
	return lines, nil
}
