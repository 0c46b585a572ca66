// Package ingest loads an inventory feed into the listing store.
package ingest

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/carvalue/internal/config"
	"github.com/sells-group/carvalue/internal/fetcher"
	"github.com/sells-group/carvalue/internal/model"
	"github.com/sells-group/carvalue/internal/monitoring"
	"github.com/sells-group/carvalue/internal/store"
)

// ErrEmptyImport is returned when a feed yields no storable listings.
var ErrEmptyImport = eris.New("ingest: feed contained no valid listings")

var errEmptyFeed = eris.New("ingest: feed is empty")

// Options controls a single import run.
type Options struct {
	// Source overrides the configured feed URL or path.
	Source string
	// Replace swaps out existing listings instead of skipping the import.
	Replace bool
}

// Result summarizes an import run.
type Result struct {
	Source   string        `json:"source"`
	Skipped  bool          `json:"skipped"`
	Imported int64         `json:"imported"`
	Rejected int64         `json:"rejected"`
	Bytes    int64         `json:"bytes"`
	Duration time.Duration `json:"duration"`
}

// Importer downloads a feed, parses its rows and writes them in batches.
type Importer struct {
	store      store.Store
	cfg        config.ImportConfig
	metrics    *monitoring.Metrics
	newFetcher func(source string, opts fetcher.Options) (fetcher.Fetcher, error)
}

// NewImporter creates an Importer. metrics may be nil.
func NewImporter(st store.Store, cfg config.ImportConfig, metrics *monitoring.Metrics) *Importer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.Delimiter == "" {
		cfg.Delimiter = "|"
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Importer{store: st, cfg: cfg, metrics: metrics, newFetcher: fetcher.New}
}

// Import runs one import. When the store already holds listings and
// opts.Replace is false the feed is not downloaded and Result.Skipped is set.
func (im *Importer) Import(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	source := opts.Source
	if source == "" {
		source = im.cfg.URL
	}
	res := &Result{Source: source}
	log := zap.L().With(zap.String("source", source))

	if !opts.Replace {
		n, err := im.store.CountListings(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "ingest: count existing listings")
		}
		if n > 0 {
			log.Info("ingest: listings already present, skipping import", zap.Int64("existing", n))
			res.Skipped = true
			im.metrics.ObserveImport(monitoring.ImportSkipped, 0, 0, 0)
			return res, nil
		}
	}

	err := im.run(ctx, source, opts.Replace, res)
	res.Duration = time.Since(start)
	if err != nil {
		im.metrics.ObserveImport(monitoring.ImportFailed, res.Imported, res.Rejected, res.Duration)
		return nil, err
	}

	im.metrics.ObserveImport(monitoring.ImportSucceeded, res.Imported, res.Rejected, res.Duration)
	log.Info("ingest: import complete",
		zap.Int64("imported", res.Imported),
		zap.Int64("rejected", res.Rejected),
		zap.Int64("bytes", res.Bytes),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (im *Importer) run(ctx context.Context, source string, replace bool, res *Result) error {
	f, err := im.newFetcher(source, fetcher.Options{
		Timeout:    time.Duration(im.cfg.TimeoutSecs) * time.Second,
		MaxRetries: im.cfg.MaxRetries,
	})
	if err != nil {
		return eris.Wrap(err, "ingest: fetcher")
	}

	tmp, err := os.CreateTemp(im.cfg.TempDir, "carvalue-feed-*"+feedExt(source))
	if err != nil {
		return eris.Wrap(err, "ingest: create temp file")
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath) //nolint:errcheck

	zap.L().Info("ingest: downloading feed", zap.String("source", source))
	res.Bytes, err = f.DownloadToFile(ctx, source, tmpPath)
	if err != nil {
		return eris.Wrap(err, "ingest: download")
	}

	// Cancelling stops the parser goroutine if loading fails early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed, err := im.stream(ctx, source, tmpPath)
	if err != nil {
		return err
	}
	defer feed.close()

	return im.load(ctx, feed, replace, res)
}

// feedStream is an open feed: the header row on its own channel, then data
// rows. The streamers send the header before any data row.
type feedStream struct {
	headerCh <-chan []string
	rowCh    <-chan []string
	errCh    <-chan error
	close    func()
}

// stream opens the downloaded feed as rows. Workbooks go through the XLSX
// reader, everything else is delimited text.
func (im *Importer) stream(ctx context.Context, source, file string) (*feedStream, error) {
	headerCh := make(chan []string, 1)

	if feedExt(source) == ".xlsx" {
		rowCh, errCh := fetcher.StreamXLSX(ctx, file, fetcher.XLSXOptions{
			SheetName: im.cfg.Sheet,
			HasHeader: true,
			HeaderCh:  headerCh,
		})
		return &feedStream{headerCh: headerCh, rowCh: rowCh, errCh: errCh, close: func() {}}, nil
	}

	fh, err := os.Open(file)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open feed")
	}
	delim, _ := utf8.DecodeRuneInString(im.cfg.Delimiter)
	rowCh, errCh := fetcher.StreamCSV(ctx, fh, fetcher.CSVOptions{
		Delimiter: delim,
		Charset:   im.cfg.Charset,
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})
	return &feedStream{headerCh: headerCh, rowCh: rowCh, errCh: errCh, close: func() { _ = fh.Close() }}, nil
}

// awaitHeader returns the header row and, when a data row won the race to
// arrive, that row too. A stream that ends without a header yields errEmptyFeed.
func awaitHeader(ctx context.Context, feed *feedStream) (header, first []string, err error) {
	select {
	case header = <-feed.headerCh:
		return header, nil, nil
	case row, ok := <-feed.rowCh:
		select {
		case header = <-feed.headerCh:
		default:
			return nil, nil, errEmptyFeed
		}
		if ok {
			first = row
		}
		return header, first, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// feedExt returns the lowercased extension of the source's path component.
func feedExt(source string) string {
	if u, err := url.Parse(source); err == nil {
		source = u.Path
	}
	return strings.ToLower(path.Ext(source))
}

// load parses rows into batches on one goroutine and writes them on another.
// A replacing import is written in one call so readers never see a partial set.
func (im *Importer) load(ctx context.Context, feed *feedStream, replace bool, res *Result) error {
	g, gctx := errgroup.WithContext(ctx)
	batchCh := make(chan []model.Listing, 4)

	g.Go(func() error {
		defer close(batchCh)

		record, first, err := awaitHeader(gctx, feed)
		if errors.Is(err, errEmptyFeed) {
			if rerr := <-feed.errCh; rerr != nil {
				return eris.Wrap(rerr, "ingest: read feed")
			}
		}
		if err != nil {
			return err
		}
		header, err := ParseHeader(record)
		if err != nil {
			return err
		}

		batch := make([]model.Listing, 0, im.cfg.BatchSize)
		add := func(record []string) error {
			l, ok := header.ParseRow(record)
			if !ok {
				res.Rejected++
				return nil
			}
			batch = append(batch, l)
			if len(batch) < im.cfg.BatchSize {
				return nil
			}
			select {
			case batchCh <- batch:
			case <-gctx.Done():
				return gctx.Err()
			}
			batch = make([]model.Listing, 0, im.cfg.BatchSize)
			return nil
		}

		if first != nil {
			if err := add(first); err != nil {
				return err
			}
		}
		for record := range feed.rowCh {
			if err := add(record); err != nil {
				return err
			}
		}
		if err := <-feed.errCh; err != nil {
			return eris.Wrap(err, "ingest: read feed")
		}
		if len(batch) > 0 {
			select {
			case batchCh <- batch:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		var pending []model.Listing
		for batch := range batchCh {
			if replace {
				pending = append(pending, batch...)
				continue
			}
			n, err := im.store.InsertListings(gctx, batch)
			if err != nil {
				return eris.Wrap(err, "ingest: insert batch")
			}
			res.Imported += n
			zap.L().Debug("ingest: batch stored", zap.Int64("rows", n), zap.Int64("total", res.Imported))
		}
		if replace && len(pending) > 0 {
			n, err := im.store.ReplaceListings(gctx, pending)
			if err != nil {
				return eris.Wrap(err, "ingest: replace listings")
			}
			res.Imported = n
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if res.Imported == 0 {
		return ErrEmptyImport
	}
	return nil
}
