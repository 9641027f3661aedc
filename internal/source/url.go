package source

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/utils"

	"github.com/TanyaEleventhGoddess/ipfilter/internal/fetch"
)

func init() {
	Register("url", newURLSource)
}

type urlConfig struct {
	// URL points at a p2p-format list, optionally gzip compressed.
	URL  string `json:"url"`
	Gzip bool   `json:"gzip"`
}

type urlSource struct {
	name    string
	link    string
	gzipped bool
}

func newURLSource(name string, args interface{}) (Source, error) {
	c := &urlConfig{}
	if err := utils.ConvStructJson(args, c); err != nil {
		return nil, fmt.Errorf("decode url source args: %w", err)
	}
	if c.URL == "" {
		return nil, fmt.Errorf("url source %q requires a url", name)
	}
	return &urlSource{name: name, link: c.URL, gzipped: c.Gzip}, nil
}

func (s *urlSource) Name() string { return s.name }
func (s *urlSource) Type() string { return "url" }

func (s *urlSource) Fetch(ctx context.Context, f *fetch.Fetcher) ([]string, error) {
	var body []byte
	var err error
	if s.gzipped {
		body, err = f.FetchGzip(ctx, s.link)
	} else {
		body, err = f.Fetch(ctx, s.link)
	}
	if err != nil {
		return nil, err
	}
	return splitLines(body)
}
