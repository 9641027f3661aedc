// Package pipeline sequences one blocklist build run: source ingestion,
// country range generation, per-group merging and installation.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TanyaEleventhGoddess/ipfilter/internal/config"
	"github.com/TanyaEleventhGoddess/ipfilter/internal/fetch"
	"github.com/TanyaEleventhGoddess/ipfilter/internal/geolite"
	"github.com/TanyaEleventhGoddess/ipfilter/internal/iprange"
	"github.com/TanyaEleventhGoddess/ipfilter/internal/merge"
	"github.com/TanyaEleventhGoddess/ipfilter/internal/output"
	"github.com/TanyaEleventhGoddess/ipfilter/internal/source"
)

type state int

const (
	stateInit state = iota
	stateFetchingIBL
	stateFetchingGL2
	stateMerging
	stateInstalling
	stateDone
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "Init"
	case stateFetchingIBL:
		return "FetchingIBL"
	case stateFetchingGL2:
		return "FetchingGL2"
	case stateMerging:
		return "Merging"
	case stateInstalling:
		return "Installing"
	case stateDone:
		return "Done"
	case stateFailed:
		return "Failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Pipeline executes one build run. Runs are strictly linear and single
// pass; no step is re-entered.
type Pipeline struct {
	cfg         *config.Config
	fetcher     *fetch.Fetcher
	sources     []source.Source
	compression output.Compression
	concurrency int
	state       state
}

// New resolves configuration into a runnable pipeline. All configuration
// errors surface here, before any network traffic.
func New(cfg *config.Config) (*Pipeline, error) {
	fetcher, err := fetch.New(cfg.Download.RetryPolicy(), cfg.Download.CacheSize)
	if err != nil {
		return nil, err
	}
	sources := make([]source.Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		src, err := source.Make(sc.Type, sc.Name, sc.Data)
		if err != nil {
			return nil, fmt.Errorf("build source %q: %w", sc.Name, err)
		}
		sources = append(sources, src)
	}
	comp, err := output.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	concurrency := cfg.Download.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Pipeline{
		cfg:         cfg,
		fetcher:     fetcher,
		sources:     sources,
		compression: comp,
		concurrency: concurrency,
		state:       stateInit,
	}, nil
}

// Run drives the pipeline through its linear state sequence and installs
// the merged blocklist.
func (p *Pipeline) Run(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)

	tempDir, err := os.MkdirTemp("", "ipfilter-*")
	if err != nil {
		return p.fail(ctx, fmt.Errorf("create temp dir: %w", err))
	}
	if p.cfg.KeepTemp {
		logger.Info("keeping temporary files", zap.String("dir", tempDir))
	} else {
		defer os.RemoveAll(tempDir)
	}

	p.transition(ctx, stateFetchingIBL)
	sourceGroups, err := p.fetchSources(ctx)
	if err != nil {
		return p.fail(ctx, err)
	}

	var countryGroups [][]string
	if p.cfg.GeoLite.Enabled() {
		p.transition(ctx, stateFetchingGL2)
		countryGroups, err = p.buildGeoLite(ctx, tempDir)
		if err != nil {
			return p.fail(ctx, err)
		}
	}

	p.transition(ctx, stateMerging)
	ibl := merge.Merge(sourceGroups...)
	gl2 := merge.Merge(countryGroups...)
	// The two groups are independently authoritative: concatenate IBL
	// first, no re-sort and no cross-group dedup.
	final := make([]string, 0, len(ibl)+len(gl2))
	final = append(final, ibl...)
	final = append(final, gl2...)

	p.transition(ctx, stateInstalling)
	if err := output.Install(final, p.cfg.Output, p.compression); err != nil {
		return p.fail(ctx, err)
	}

	p.transition(ctx, stateDone)
	logger.Info("blocklist installed",
		zap.String("path", p.cfg.Output),
		zap.Int("iblocklist_lines", len(ibl)),
		zap.Int("geolite_lines", len(gl2)))
	return nil
}

func (p *Pipeline) transition(ctx context.Context, next state) {
	logutil.GetLogger(ctx).Debug("pipeline state change",
		zap.Stringer("from", p.state), zap.Stringer("to", next))
	p.state = next
}

func (p *Pipeline) fail(ctx context.Context, err error) error {
	p.transition(ctx, stateFailed)
	return err
}

// fetchSources downloads every configured source's line group, in parallel
// with bounded concurrency, keeping configuration order in the result.
func (p *Pipeline) fetchSources(ctx context.Context) ([][]string, error) {
	groups := make([][]string, len(p.sources))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.concurrency)
	for i, src := range p.sources {
		eg.Go(func() error {
			lines, err := src.Fetch(gctx, p.fetcher)
			if err != nil {
				return fmt.Errorf("source %s: %w", src.Name(), err)
			}
			logutil.GetLogger(gctx).Info("source fetched",
				zap.String("source", src.Name()), zap.Int("lines", len(lines)))
			groups[i] = lines
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return groups, nil
}

// buildGeoLite downloads and extracts the country database, builds the name
// index and generates per-country range groups.
func (p *Pipeline) buildGeoLite(ctx context.Context, tempDir string) ([][]string, error) {
	versions := p.cfg.GeoLite.ParsedVersions()

	link, err := geolite.DownloadURL(p.cfg.GeoLite.Endpoint, p.cfg.GeoLite.LicenseKey)
	if err != nil {
		return nil, err
	}
	archive := filepath.Join(tempDir, "geolite2-country-csv.zip")
	if err := p.fetcher.FetchFile(ctx, link, archive); err != nil {
		return nil, err
	}
	db, err := geolite.ExtractDatabase(archive, tempDir)
	if err != nil {
		return nil, err
	}

	idx, err := buildIndexFromFile(ctx, db.Locations)
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("geolite index built", zap.Int("names", idx.Len()))

	blocks := make(map[iprange.Version][]geolite.BlockRow, len(versions))
	for _, v := range versions {
		path := db.Blocks(v)
		if path == "" {
			return nil, fmt.Errorf("blocks table for %s not found in archive", v)
		}
		rows, err := readBlocksFromFile(ctx, path)
		if err != nil {
			return nil, err
		}
		blocks[v] = rows
	}

	return geolite.Generate(ctx, idx, p.cfg.GeoLite.Countries, versions, blocks, p.concurrency), nil
}

func buildIndexFromFile(ctx context.Context, path string) (*geolite.Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open locations table: %w", err)
	}
	defer f.Close()
	return geolite.BuildIndex(ctx, f)
}

func readBlocksFromFile(ctx context.Context, path string) ([]geolite.BlockRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open blocks table: %w", err)
	}
	defer f.Close()
	return geolite.ReadBlocks(ctx, f)
}
