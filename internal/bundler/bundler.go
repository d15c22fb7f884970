// Package bundler assembles self-contained Markdown bundles: it resolves
// remote image references through the Local API, stores the assets next to
// the document, and rewrites the text to point at the local copies.
package bundler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/bindrune/internal/apperr"
	"github.com/starford/bindrune/internal/assetcache"
	"github.com/starford/bindrune/internal/extract"
	"github.com/starford/bindrune/internal/namer"
	"github.com/starford/bindrune/internal/normalize"
	"github.com/starford/bindrune/internal/roamapi"
)

// BundleExt is the marker extension of output directories.
const BundleExt = ".mdbundle"

// Replacement records one resolved link: the remote locator and the local
// file name that now stands in for it.
type Replacement struct {
	URL           string
	LocalFileName string
}

// Result summarizes one pipeline run.
type Result struct {
	Source       string
	BundleDir    string
	MarkdownPath string
	Links        int
	Resolved     int
	Failed       int
	NoLinks      bool
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Builder runs the bundling pipeline. Construct with New; the logger is
// injected so tests can run silent.
type Builder struct {
	fetcher roamapi.Fetcher
	cache   *assetcache.Cache
	outRoot string
	logger  *slog.Logger
}

// New returns a Builder writing bundles under outRoot. cache may be
// disabled (assetcache.New("")), in which case every asset is fetched fresh
// and kept only inside the bundle.
func New(fetcher roamapi.Fetcher, cache *assetcache.Cache, outRoot string, logger *slog.Logger) *Builder {
	return &Builder{fetcher: fetcher, cache: cache, outRoot: outRoot, logger: logger}
}

// Run bundles the Markdown document at sourcePath.
//
// Per-link fetch failures are logged and skipped; the remote URL stays in
// the output text. Missing source, unwritable directories, and file write
// failures are fatal and returned.
func (b *Builder) Run(ctx context.Context, sourcePath string) (*Result, error) {
	res := &Result{Source: sourcePath, StartedAt: time.Now()}

	if _, err := os.Stat(sourcePath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrFileNotFound, sourcePath)
		}
		return nil, fmt.Errorf("bundler: stat source: %w", err)
	}

	stem := namer.Normalize(strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath)))
	bundleDir := filepath.Join(b.outRoot, stem+BundleExt)
	if err := os.MkdirAll(bundleDir, 0o755); err != nil {
		return nil, fmt.Errorf("bundler: create bundle dir: %w", err)
	}
	res.BundleDir = bundleDir
	b.logger.Info("bundle directory ready", slog.String("dir", bundleDir))

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("bundler: read source: %w", err)
	}
	text := string(data)

	links, err := extract.Links(text)
	if err != nil {
		return nil, err
	}
	res.Links = len(links)
	if len(links) == 0 {
		b.logger.Info("no remote image links found", slog.String("source", sourcePath))
		res.NoLinks = true
		res.FinishedAt = time.Now()
		return res, nil
	}
	b.logger.Info("found image links", slog.Int("count", len(links)))

	replacements, failed, err := b.resolveAll(ctx, links, bundleDir)
	if err != nil {
		return nil, err
	}
	res.Resolved = len(replacements)
	res.Failed = failed

	if len(replacements) == 0 {
		b.logger.Warn("no assets were resolved, markdown output skipped",
			slog.String("source", sourcePath))
		res.FinishedAt = time.Now()
		return res, nil
	}

	for _, r := range replacements {
		text = strings.ReplaceAll(text, r.URL, r.LocalFileName)
	}
	text = normalize.Apply(text)

	outPath := filepath.Join(bundleDir, stem+".md")
	if err := os.WriteFile(outPath, []byte(text), 0o644); err != nil {
		return nil, fmt.Errorf("bundler: write markdown: %w", err)
	}
	res.MarkdownPath = outPath
	res.FinishedAt = time.Now()
	b.logger.Info("bundle complete",
		slog.String("markdown", outPath),
		slog.Int("resolved", res.Resolved),
		slog.Int("failed", res.Failed))
	return res, nil
}

// resolveAll works through links in document order, consulting the cache
// before the network and copying every resolved asset into bundleDir.
// It returns the replacements in the same order plus the failure count.
func (b *Builder) resolveAll(ctx context.Context, links []extract.ImageLink, bundleDir string) ([]Replacement, int, error) {
	var (
		replacements []Replacement
		failed       int
	)
	for _, link := range links {
		cached, hit, err := b.cache.Lookup(link.URL)
		if err != nil {
			return nil, 0, err
		}
		if hit {
			name := filepath.Base(cached)
			if err := copyFile(cached, filepath.Join(bundleDir, name)); err != nil {
				return nil, 0, fmt.Errorf("bundler: copy cached asset: %w", err)
			}
			b.logger.Info("cache hit", slog.String("url", link.URL), slog.String("file", name))
			replacements = append(replacements, Replacement{URL: link.URL, LocalFileName: name})
			continue
		}

		asset, err := b.fetcher.Fetch(ctx, link.URL)
		if err != nil {
			if apperr.IsFetchFailure(err) {
				b.logger.Error("fetch failed, leaving remote link in place",
					slog.String("url", link.URL),
					slog.String("error", err.Error()))
				failed++
				continue
			}
			return nil, 0, err
		}

		name := asset.FileName
		if b.cache.Enabled() {
			// Store under the cache key first so that repeated runs against
			// the same cache converge on identical local names no matter
			// what file name the remote side reports.
			stored, err := b.cache.Store(link.URL, asset.Contents, filepath.Ext(asset.FileName))
			if err != nil {
				return nil, 0, err
			}
			name = filepath.Base(stored)
		}
		if err := os.WriteFile(filepath.Join(bundleDir, name), asset.Contents, 0o644); err != nil {
			return nil, 0, fmt.Errorf("bundler: write asset: %w", err)
		}
		b.logger.Info("fetched asset", slog.String("url", link.URL), slog.String("file", name))
		replacements = append(replacements, Replacement{URL: link.URL, LocalFileName: name})
	}
	return replacements, failed, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
