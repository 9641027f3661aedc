package source

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gorilla/schema"
	"github.com/xxxsen/common/utils"

	"github.com/TanyaEleventhGoddess/ipfilter/internal/fetch"
)

const iblocklistEndpoint = "https://list.iblocklist.com/"

func init() {
	Register("iblocklist", newIBlocklistSource)
}

type iblocklistConfig struct {
	// List is the I-BlockList list id, e.g. "ydxerpxkpcfqjaybcssw".
	List string `json:"list"`
	// Endpoint overrides the download host, mainly for tests.
	Endpoint string `json:"endpoint"`
}

type iblocklistParams struct {
	List          string `schema:"list"`
	FileFormat    string `schema:"fileformat"`
	ArchiveFormat string `schema:"archiveformat"`
}

type iblocklistSource struct {
	name string
	link string
}

func newIBlocklistSource(name string, args interface{}) (Source, error) {
	c := &iblocklistConfig{}
	if err := utils.ConvStructJson(args, c); err != nil {
		return nil, fmt.Errorf("decode iblocklist source args: %w", err)
	}
	if c.List == "" {
		return nil, fmt.Errorf("iblocklist source %q requires a list id", name)
	}
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = iblocklistEndpoint
	}
	values := url.Values{}
	params := &iblocklistParams{List: c.List, FileFormat: "p2p", ArchiveFormat: "gz"}
	if err := schema.NewEncoder().Encode(params, values); err != nil {
		return nil, fmt.Errorf("encode iblocklist params: %w", err)
	}
	return &iblocklistSource{name: name, link: endpoint + "?" + values.Encode()}, nil
}

func (s *iblocklistSource) Name() string { return s.name }
func (s *iblocklistSource) Type() string { return "iblocklist" }

func (s *iblocklistSource) Fetch(ctx context.Context, f *fetch.Fetcher) ([]string, error) {
	body, err := f.FetchGzip(ctx, s.link)
	if err != nil {
		return nil, err
	}
	return splitLines(body)
}
