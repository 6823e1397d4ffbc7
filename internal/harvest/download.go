package harvest

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/crypto/sha3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Defaults for Downloader settings.
const (
	DefaultConcurrency = 4
	DefaultMaxBodySize = 100 * 1024 * 1024
)

// Recorder receives the outcome of every download. The crawl database
// implements it.
type Recorder interface {
	RecordDownload(ctx context.Context, runID string, d *model.Download) error
}

// Downloader fetches resources in a bounded worker pool.
type Downloader struct {
	client      *http.Client
	concurrency int
	limiter     *rate.Limiter
	maxBodySize int64
	logger      *slog.Logger
	recorder    Recorder
	runID       string

	// counter names saved files. It only grows, so names never repeat
	// within one Downloader.
	counter atomic.Int64
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithConcurrency sets how many downloads run at once.
func WithConcurrency(n int) DownloaderOption {
	return func(d *Downloader) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithRateLimit allows at most perSecond request starts per second, with
// bursts of burst. A non-positive perSecond disables the limit.
func WithRateLimit(perSecond float64, burst int) DownloaderOption {
	return func(d *Downloader) {
		if perSecond <= 0 {
			d.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithMaxBodySize limits the decoded size of one resource.
func WithMaxBodySize(n int64) DownloaderOption {
	return func(d *Downloader) {
		if n > 0 {
			d.maxBodySize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) DownloaderOption {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// WithRecorder records every download.
func WithRecorder(r Recorder, runID string) DownloaderOption {
	return func(d *Downloader) {
		d.recorder = r
		d.runID = runID
	}
}

// NewDownloader creates a Downloader using client.
func NewDownloader(client *http.Client, opts ...DownloaderOption) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	d := &Downloader{
		client:      client,
		concurrency: DefaultConcurrency,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download fetches every path, resolved against base, into destDir.
// Results are returned in the order of paths, one per path. A failed
// download is reported in its result and does not affect the others.
// The error is non-nil only when ctx is cancelled.
func (d *Downloader) Download(ctx context.Context, base string, paths []string, destDir string) ([]model.Download, error) {
	if err := os.MkdirAll(destDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create resource directory: %w", err)
	}

	d.logger.Info("starting downloads",
		"total", len(paths),
		"concurrency", d.concurrency,
		"base", base,
	)
	start := time.Now()

	// One buffered channel per task keeps results in input order.
	channels := make([]chan model.Download, len(paths))

	g := new(errgroup.Group)
	g.SetLimit(d.concurrency)

	for i, p := range paths {
		ch := make(chan model.Download, 1)
		channels[i] = ch
		g.Go(func() error {
			ch <- d.fetch(ctx, base, p, destDir)
			return nil
		})
	}
	_ = g.Wait()

	results := make([]model.Download, 0, len(paths))
	ok := 0
	for _, ch := range channels {
		r := <-ch
		if r.OK() {
			ok++
		}
		results = append(results, r)
	}

	d.logger.Info("downloads complete",
		"total", len(paths),
		"saved", ok,
		"failed", len(paths)-ok,
		"elapsed", time.Since(start).String(),
	)
	return results, ctx.Err()
}

// fetch downloads one path and saves it under the next counter value.
func (d *Downloader) fetch(ctx context.Context, base, rawPath, destDir string) model.Download {
	result := model.Download{Path: rawPath}
	fail := func(target string, err error) model.Download {
		err = fmt.Errorf("%w: %s: %v", ErrDownloadFailure, target, err)
		result.Err = err.Error()
		result.FinishedAt = time.Now()
		d.logger.Warn("download failed", "path", rawPath, "error", err)
		d.record(ctx, &result)
		return result
	}

	target, err := ResolveResource(base, rawPath)
	if err != nil {
		return fail(rawPath, err)
	}
	result.URL = target

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return fail(target, err)
		}
	}

	body, err := d.get(ctx, target)
	if err != nil {
		return fail(target, err)
	}

	n := d.counter.Add(1)
	name := fmt.Sprintf("%d%s", n, resourceExt(rawPath))
	if err := os.WriteFile(filepath.Join(destDir, name), body, 0600); err != nil {
		return fail(target, err)
	}

	sum := sha3.Sum256(body)
	result.File = name
	result.Bytes = int64(len(body))
	result.Digest = hex.EncodeToString(sum[:])
	result.FinishedAt = time.Now()

	d.logger.Debug("download saved", "url", target, "file", name, "bytes", result.Bytes)
	d.record(ctx, &result)
	return result
}

// get performs the request and returns the decoded body.
func (d *Downloader) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return d.readBody(resp)
}

// readBody decodes the response according to its Content-Encoding.
func (d *Downloader) readBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)
	closers := []io.Closer{resp.Body}

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		reader = fl
		closers = append(closers, fl)
	}

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	body, err := io.ReadAll(io.LimitReader(reader, d.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > d.maxBodySize {
		return nil, fmt.Errorf("response body exceeds limit of %d bytes", d.maxBodySize)
	}
	return body, nil
}

func (d *Downloader) record(ctx context.Context, result *model.Download) {
	if d.recorder == nil {
		return
	}
	// Record even when the download was cancelled.
	if err := d.recorder.RecordDownload(context.WithoutCancel(ctx), d.runID, result); err != nil {
		d.logger.Warn("failed to record download", "path", result.Path, "error", err)
	}
}

// ResolveResource turns a harvested path into an absolute URL.
// Absolute http(s) paths are used as they are; anything else is resolved
// against base. Backslashes are treated as path separators.
func ResolveResource(base, rawPath string) (string, error) {
	p := strings.ReplaceAll(strings.TrimSpace(rawPath), `\`, "/")
	if p == "" {
		return "", errors.New("empty path")
	}

	ref, err := url.Parse(p)
	if err != nil {
		return "", err
	}
	if ref.Scheme == "http" || ref.Scheme == "https" {
		if ref.Host == "" {
			return "", fmt.Errorf("%q has no host", rawPath)
		}
		return ref.String(), nil
	}

	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() || b.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrNoResourceBase, base)
	}
	if !strings.HasSuffix(b.Path, "/") {
		b.Path += "/"
	}
	if ref.Scheme != "" {
		// e.g. "C:/docs/a.pdf"; keep it as a path below base.
		ref = &url.URL{Path: strings.TrimPrefix(p, "/")}
	}
	return b.ResolveReference(ref).String(), nil
}

// resourceExt returns the lower-cased extension of a harvested path.
func resourceExt(rawPath string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(rawPath, `\`, "/")))
	if ext == "" {
		return ".pdf"
	}
	return ext
}
