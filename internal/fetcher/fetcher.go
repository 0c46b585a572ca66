// Package fetcher retrieves inventory feeds over HTTP, FTP or the local
// filesystem and decodes them into rows.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/rotisserie/eris"
)

// Fetcher downloads a feed.
type Fetcher interface {
	// Download returns the feed body. The caller closes it.
	Download(ctx context.Context, source string) (io.ReadCloser, error)

	// DownloadToFile writes the feed to path and returns the bytes written.
	DownloadToFile(ctx context.Context, source string, path string) (int64, error)
}

// Options configures the fetcher returned by New.
type Options struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
}

// New returns the fetcher for the scheme of source: http and https use
// HTTPFetcher, ftp uses FTPFetcher, and a bare path or file:// URL reads
// from disk.
func New(source string, opts Options) (Fetcher, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse source %q", source)
	}

	switch u.Scheme {
	case "http", "https":
		return NewHTTPFetcher(HTTPOptions{
			UserAgent:  opts.UserAgent,
			Timeout:    opts.Timeout,
			MaxRetries: opts.MaxRetries,
		}), nil
	case "ftp":
		return NewFTPFetcher(FTPOptions{Timeout: opts.Timeout}), nil
	case "", "file":
		return FileFetcher{}, nil
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
}

// FileFetcher reads feeds from the local filesystem.
type FileFetcher struct{}

func (FileFetcher) Download(_ context.Context, source string) (io.ReadCloser, error) {
	f, err := os.Open(localPath(source))
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: open file")
	}
	return f, nil
}

func (ff FileFetcher) DownloadToFile(ctx context.Context, source string, path string) (int64, error) {
	rc, err := ff.Download(ctx, source)
	if err != nil {
		return 0, err
	}
	return copyToFile(rc, path)
}

func localPath(source string) string {
	if u, err := url.Parse(source); err == nil && u.Scheme == "file" {
		return u.Path
	}
	return source
}

// copyToFile drains rc into a new file at path and closes rc.
func copyToFile(rc io.ReadCloser, path string) (int64, error) {
	defer rc.Close() //nolint:errcheck

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: create file")
	}

	n, err := io.Copy(file, rc)
	if err != nil {
		_ = file.Close()
		return n, eris.Wrap(err, "fetcher: write file")
	}
	if err := file.Close(); err != nil {
		return n, eris.Wrap(err, "fetcher: close file")
	}
	return n, nil
}
