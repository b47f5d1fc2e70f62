// Package download acquires flashable artifacts: LineageOS nightly
// ROMs, recovery/boot/vbmeta images from the mirror network, archived
// builds for retired devices, and the Magisk APK. The flashing core
// never fetches anything itself; it consumes the local paths this
// package produces.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/r0man1an/LibreFlash/pkg/errors"
	"github.com/r0man1an/LibreFlash/pkg/logging"
)

const (
	defaultUserAgent      = "LibreFlash"
	defaultNightlyAPI     = "https://download.lineageos.org/api/v1"
	defaultMirrorbitsBase = "https://mirrorbits.lineageos.org/full"
	defaultArchiveBase    = "https://lineage-archive.timschumi.net"
	defaultMagiskAPI      = "https://api.github.com/repos/topjohnwu/Magisk/releases/latest"
)

// Artifact is one downloadable file resolved from an upstream index.
type Artifact struct {
	URL      string
	Filename string
	// Source names the index that produced the URL: "nightly",
	// "mirrorbits", "archive" or "github".
	Source string
}

// ProgressFunc receives byte counts while a fetch runs. total is -1
// when the server does not announce a Content-Length.
type ProgressFunc func(done, total int64)

// Client talks to the artifact indexes. Endpoints are configurable so
// tests can point it at local servers.
type Client struct {
	http      *retryablehttp.Client
	userAgent string

	nightlyAPI     string
	mirrorbitsBase string
	archiveBase    string
	// archiveFileBases are tried in order before the by-id download
	// endpoint; the archive serves files from more than one host.
	archiveFileBases []string
	magiskAPI        string
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithEndpoints overrides the LineageOS index endpoints. Empty values
// keep the defaults.
func WithEndpoints(nightlyAPI, mirrorbitsBase, archiveBase string) Option {
	return func(c *Client) {
		if nightlyAPI != "" {
			c.nightlyAPI = nightlyAPI
		}
		if mirrorbitsBase != "" {
			c.mirrorbitsBase = mirrorbitsBase
		}
		if archiveBase != "" {
			c.archiveBase = archiveBase
			c.archiveFileBases = []string{archiveBase}
		}
	}
}

// WithMagiskAPI overrides the GitHub releases endpoint.
func WithMagiskAPI(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.magiskAPI = url
		}
	}
}

// New creates a Client. Transient upstream failures (429 and 5xx) are
// retried with backoff; 4xx answers are not.
func New(opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 6
	rc.RetryWaitMin = 600 * time.Millisecond
	rc.RetryWaitMax = 15 * time.Second
	rc.Logger = nil

	c := &Client{
		http:           rc,
		userAgent:      defaultUserAgent,
		nightlyAPI:     defaultNightlyAPI,
		mirrorbitsBase: defaultMirrorbitsBase,
		archiveBase:    defaultArchiveBase,
		archiveFileBases: []string{
			"https://b4.timschumi.net/lineage-archive",
			defaultArchiveBase,
		},
		magiskAPI: defaultMagiskAPI,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get issues a GET with the client's User-Agent.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrDownloadFailed, "bad url %s", url)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrDownloadFailed, "GET %s failed", url)
	}
	return resp, nil
}

// head probes a URL and reports whether it answers below 400.
func (c *Client) head(ctx context.Context, url string) bool {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode < 400
}

// Fetch downloads url into dest. The transfer goes through a .part
// temp file next to dest and is renamed atomically on completion, so a
// partially written file is never mistaken for a finished artifact.
// Cancelling the context removes the partial.
func (c *Client) Fetch(ctx context.Context, url, dest string, progress ProgressFunc) error {
	logger := logging.GetLogger("download")

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrDownloadFailed, "cannot create %s", filepath.Dir(dest))
	}

	resp, err := c.get(ctx, url)
	if err != nil {
		// Cancellation can land while the request is still in flight.
		if ctx.Err() != nil {
			return errors.New(errors.ErrCancelled, "download cancelled")
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errors.Newf(errors.ErrDownloadFailed, "GET %s answered %s", url, resp.Status)
	}

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, errors.ErrDownloadFailed, "cannot create %s", tmp)
	}

	total := resp.ContentLength
	logger.Info().Str("url", url).Int64("bytes", total).Msg("Downloading")

	writer := io.Writer(f)
	if progress != nil {
		writer = io.MultiWriter(f, &progressWriter{total: total, fn: progress})
	}

	_, copyErr := io.Copy(writer, resp.Body)
	closeErr := f.Close()

	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp)
		if ctx.Err() != nil {
			return errors.New(errors.ErrCancelled, "download cancelled")
		}
		if copyErr == nil {
			copyErr = closeErr
		}
		return errors.Wrapf(copyErr, errors.ErrDownloadFailed, "transfer from %s failed", url)
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, errors.ErrDownloadFailed, "cannot finalize %s", dest)
	}

	logger.Info().Str("dest", dest).Msg("Download complete")
	return nil
}

type progressWriter struct {
	total int64
	done  int64
	fn    ProgressFunc
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.done += int64(len(p))
	total := w.total
	if total <= 0 {
		total = -1
	}
	w.fn(w.done, total)
	return len(p), nil
}

// String implements fmt.Stringer for log output.
func (a Artifact) String() string {
	return fmt.Sprintf("%s (%s)", a.Filename, a.Source)
}
