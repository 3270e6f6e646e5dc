// Package images mirrors remote profile images into a local directory and
// reports the URL to local path mapping used to rewrite the page.
package images

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/profilekit/internal/fetch"
)

// DefaultConcurrency is the number of downloads in flight at once.
const DefaultConcurrency = 5

// LocalPrefix is how the page refers to the images directory.
const LocalPrefix = "./images/"

// Status describes what happened to one URL.
type Status string

const (
	StatusDownloaded Status = "downloaded"
	StatusReused     Status = "reused"
	StatusFailed     Status = "failed"
	// StatusMissing is an offline run with no local copy.
	StatusMissing Status = "missing"
)

// Result is the outcome for one image URL.
type Result struct {
	URL string
	// Path is the page-relative local path, empty unless Status is
	// StatusDownloaded or StatusReused.
	Path   string
	Status Status
	Err    error
}

// Downloader fetches images into Dir.
type Downloader struct {
	Client      *fetch.Client
	Dir         string
	Concurrency int
	// Offline maps only images already present in Dir.
	Offline bool
}

// NewDownloader returns a Downloader with an image-only fetch client.
func NewDownloader(dir, userAgent string, concurrency int) *Downloader {
	return &Downloader{
		Client: &fetch.Client{
			UserAgent:         userAgent,
			MaxAttempts:       2,
			PerRequestTimeout: 30 * time.Second,
			AllowedTypes:      fetch.ImageTypes,
			MaxBytes:          20 << 20,
		},
		Dir:         dir,
		Concurrency: concurrency,
	}
}

// Filename returns the stable local name for u: the first 10 hex digits of
// md5(u) followed by the URL path's extension, or ".jpg" when it has none.
func Filename(u string) string {
	sum := md5.Sum([]byte(u))
	ext := ".jpg"
	if parsed, err := url.Parse(u); err == nil {
		if e := path.Ext(parsed.Path); e != "" {
			ext = e
		}
	}
	return hex.EncodeToString(sum[:])[:10] + ext
}

// Decode turns the &amp; entities of a copied attribute into plain ampersands.
func Decode(u string) string {
	return strings.ReplaceAll(u, "&amp;", "&")
}

// Encode is the inverse of Decode.
func Encode(u string) string {
	return strings.ReplaceAll(Decode(u), "&", "&amp;")
}

// HTTPOnly keeps the http and https URLs of urls.
func HTTPOnly(urls []string) []string {
	var out []string
	for _, u := range urls {
		l := strings.ToLower(u)
		if strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://") {
			out = append(out, u)
		}
	}
	return out
}

// Localize downloads every http(s) URL in urls and returns the URL map along
// with per-URL results. Individual failures are logged and skipped; the
// returned error is only set when the directory cannot be created or ctx is
// cancelled.
func (d *Downloader) Localize(ctx context.Context, urls []string) (map[string]string, []Result, error) {
	targets := HTTPOnly(urls)
	urlMap := make(map[string]string)
	if len(targets) == 0 {
		return urlMap, nil, nil
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create images dir: %w", err)
	}
	limit := d.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	log.Info().Int("count", len(targets)).Bool("offline", d.Offline).Msg("localizing images")

	results := make([]Result, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, u := range targets {
		g.Go(func() error {
			results[i] = d.one(gctx, u)
			if r := results[i]; r.Status == StatusFailed {
				log.Warn().Err(r.Err).Str("url", truncate(u, 80)).Msg("image download failed")
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, results, err
	}

	for _, r := range results {
		if r.Path == "" {
			continue
		}
		urlMap[r.URL] = r.Path
		urlMap[Decode(r.URL)] = r.Path
		urlMap[Encode(r.URL)] = r.Path
	}
	log.Info().Int("localized", countLocal(results)).Int("total", len(targets)).Msg("images done")
	return urlMap, results, nil
}

func (d *Downloader) one(ctx context.Context, raw string) Result {
	clean := Decode(raw)
	name := Filename(clean)
	local := filepath.Join(d.Dir, name)
	rel := LocalPrefix + name
	if _, err := os.Stat(local); err == nil {
		return Result{URL: raw, Path: rel, Status: StatusReused}
	}
	if d.Offline {
		return Result{URL: raw, Status: StatusMissing}
	}
	if d.Client == nil {
		return Result{URL: raw, Status: StatusFailed, Err: errors.New("no http client")}
	}
	body, _, err := d.Client.Get(ctx, clean)
	if err != nil {
		return Result{URL: raw, Status: StatusFailed, Err: err}
	}
	if err := writeAtomic(local, body); err != nil {
		return Result{URL: raw, Status: StatusFailed, Err: err}
	}
	return Result{URL: raw, Path: rel, Status: StatusDownloaded}
}

// writeAtomic never leaves a partial file under the final name, so a later
// run cannot mistake it for a finished download.
func writeAtomic(dst string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(dst), ".download-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

func countLocal(results []Result) int {
	seen := make(map[string]bool)
	for _, r := range results {
		if r.Path != "" {
			seen[r.Path] = true
		}
	}
	return len(seen)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
