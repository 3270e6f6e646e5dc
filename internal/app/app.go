// Package app wires the profile tooling together: it resolves the profile
// folder layout and runs the update, inline, minify, shorten, analyze and
// history operations on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/profilekit/internal/cache"
	"github.com/hyperifyio/profilekit/internal/images"
	"github.com/hyperifyio/profilekit/internal/minify"
	"github.com/hyperifyio/profilekit/internal/profile"
	"github.com/hyperifyio/profilekit/internal/render"
	"github.com/hyperifyio/profilekit/internal/shorten"
	"github.com/hyperifyio/profilekit/internal/store"
)

// ErrNoSource is returned by Update when there is no captured page to read.
// custom.html may still have been inlined.
var ErrNoSource = errors.New("no source HTML found")

// ErrNoTemplate is returned when the profile template is missing.
var ErrNoTemplate = errors.New("profile template not found")

// Output names written next to the custom files by Shorten.
const (
	ShortCSSName  = "custom.short.css"
	ShortHTMLName = "custom.short.html"
	LegendName    = "shortening-legend.md"
)

type App struct {
	cfg       Config
	httpCache *cache.HTTPCache
}

// New resolves cfg and applies the cache invalidation controls.
func New(_ context.Context, cfg Config) (*App, error) {
	cfg = cfg.Resolve()
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	a := &App{cfg: cfg}
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			if n, err := cache.PurgeHTTPCacheByAge(cfg.CacheDir, cfg.CacheMaxAge); err != nil {
				log.Warn().Err(err).Msg("cache purge failed")
			} else if n > 0 {
				log.Debug().Int("removed", n).Msg("purged stale cache entries")
			}
		}
		a.httpCache = &cache.HTTPCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
	}
	return a, nil
}

// Config returns the resolved configuration.
func (a *App) Config() Config { return a.cfg }

func (a *App) Close() error { return nil }

// Summary describes one Update.
type Summary struct {
	Source        string
	Template      string
	DisplayName   string
	Username      string
	Friends       int
	Albums        int
	Groups        int
	Comments      int
	SocialLinks   int
	Badges        int
	Images        int
	CustomInlined bool
	RunID         int64
}

// Update reads the captured page, renders it into the template, localizes
// images and writes the template back.
func (a *App) Update(ctx context.Context) (Summary, error) {
	started := time.Now()
	cfg := a.cfg
	sum := Summary{Source: cfg.SourcePath, Template: cfg.TemplatePath}

	source, err := readOptional(cfg.SourcePath)
	if err != nil {
		return sum, err
	}
	if strings.TrimSpace(source) == "" {
		inlined, err := a.Inline()
		if err != nil && !errors.Is(err, ErrNoTemplate) {
			return sum, err
		}
		sum.CustomInlined = inlined
		return sum, ErrNoSource
	}
	log.Info().Str("source", cfg.SourcePath).Msg("reading source")

	tmpl, err := a.readTemplate()
	if err != nil {
		return sum, err
	}
	custom, err := readOptional(cfg.CustomHTMLPath)
	if err != nil {
		return sum, err
	}
	hasCustom := fileExists(cfg.CustomHTMLPath)

	data := profile.Extract(source)

	dl := a.downloader()
	urlMap, results, err := dl.Localize(ctx, data.ImageURLs())
	if err != nil {
		return sum, fmt.Errorf("localize images: %w", err)
	}

	page := render.Render(tmpl, data, render.Options{
		CustomHTML:   custom,
		InlineCustom: hasCustom,
		Images:       urlMap,
	})
	if err := os.WriteFile(cfg.TemplatePath, []byte(page), 0o644); err != nil {
		return sum, fmt.Errorf("write template: %w", err)
	}

	sum.DisplayName = data.DisplayName
	sum.Username = data.Username
	sum.Friends = len(data.Friends)
	sum.Albums = len(data.Albums)
	sum.Groups = len(data.Groups)
	sum.Comments = len(data.Comments)
	sum.SocialLinks = len(data.SocialLinks)
	sum.Badges = len(data.Badges)
	sum.CustomInlined = hasCustom
	for _, r := range results {
		if r.Path != "" {
			sum.Images++
		}
	}

	if !cfg.NoHistory {
		id, err := a.record(ctx, started, sum, results)
		if err != nil {
			log.Warn().Err(err).Msg("history not recorded")
		}
		sum.RunID = id
	}
	if a.httpCache != nil && (cfg.CacheMaxBytes > 0 || cfg.CacheMaxCount > 0) {
		if _, err := cache.EnforceHTTPCacheLimits(cfg.CacheDir, cfg.CacheMaxBytes, cfg.CacheMaxCount); err != nil {
			log.Warn().Err(err).Msg("cache limits not enforced")
		}
	}

	log.Info().
		Str("template", cfg.TemplatePath).
		Str("displayName", sum.DisplayName).
		Str("username", "@"+sum.Username).
		Int("friends", sum.Friends).
		Int("albums", sum.Albums).
		Int("groups", sum.Groups).
		Int("comments", sum.Comments).
		Int("socialLinks", sum.SocialLinks).
		Int("badges", sum.Badges).
		Int("images", sum.Images).
		Bool("customInlined", sum.CustomInlined).
		Msg("profile updated")
	return sum, nil
}

func (a *App) downloader() *images.Downloader {
	cfg := a.cfg
	dl := images.NewDownloader(cfg.ImagesDir, cfg.UserAgent, cfg.DownloadConcurrency)
	dl.Offline = cfg.Offline
	dl.Client.HTTPClient = newDownloadHTTPClient(cfg.DownloadConcurrency)
	dl.Client.MaxConcurrent = cfg.DownloadConcurrency
	dl.Client.Cache = a.httpCache
	return dl
}

func (a *App) record(ctx context.Context, started time.Time, sum Summary, results []images.Result) (int64, error) {
	db, err := store.Open(a.cfg.HistoryPath)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	imgs := make([]store.Image, 0, len(results))
	for _, r := range results {
		img := store.Image{URL: r.URL, LocalPath: r.Path, Status: string(r.Status)}
		if r.Err != nil {
			img.Error = r.Err.Error()
		}
		imgs = append(imgs, img)
	}
	return db.RecordRun(ctx, store.Run{
		StartedAt:     started,
		Source:        sum.Source,
		Username:      sum.Username,
		DisplayName:   sum.DisplayName,
		Friends:       sum.Friends,
		Albums:        sum.Albums,
		Groups:        sum.Groups,
		Comments:      sum.Comments,
		SocialLinks:   sum.SocialLinks,
		Badges:        sum.Badges,
		Images:        sum.Images,
		CustomInlined: sum.CustomInlined,
	}, imgs)
}

// Inline copies custom.html into the template's custom blurb. It reports
// false without error when there is no custom.html.
func (a *App) Inline() (bool, error) {
	custom, err := readOptional(a.cfg.CustomHTMLPath)
	if err != nil {
		return false, err
	}
	if !fileExists(a.cfg.CustomHTMLPath) {
		return false, nil
	}
	tmpl, err := a.readTemplate()
	if err != nil {
		return false, err
	}
	page := render.InlineCustomHTML(tmpl, custom)
	if err := os.WriteFile(a.cfg.TemplatePath, []byte(page), 0o644); err != nil {
		return false, fmt.Errorf("write template: %w", err)
	}
	log.Info().Str("template", a.cfg.TemplatePath).Msg("inlined custom.html")
	return true, nil
}

// Minify writes custom.min.css and custom.min.html next to their sources.
func (a *App) Minify() ([]minify.Report, error) {
	reports, err := minify.Run(minify.ProfileJobs(a.cfg.CustomCSSPath, a.cfg.CustomHTMLPath), a.cfg.Budget)
	if err != nil {
		return reports, err
	}
	if len(reports) == 0 {
		log.Info().Str("dir", a.cfg.ProfileDir).Msg("no custom.css or custom.html to minify")
	}
	for _, r := range reports {
		ev := log.Info()
		if r.Over() {
			ev = log.Warn()
		}
		ev.Str("file", r.Name).Int("chars", r.Minified).Int("saved", r.Saved).Int("remaining", r.Remaining).Msg("minified")
	}
	return reports, nil
}

// Shorten applies the shortening plan to custom.css and custom.html and
// writes the results with a legend beside them.
func (a *App) Shorten() (shorten.Result, error) {
	plan, err := shorten.LoadPlan(a.cfg.PlanPath)
	if err != nil {
		return shorten.Result{}, err
	}
	css, err := os.ReadFile(a.cfg.CustomCSSPath)
	if err != nil {
		return shorten.Result{}, fmt.Errorf("read stylesheet: %w", err)
	}
	html, err := readOptional(a.cfg.CustomHTMLPath)
	if err != nil {
		return shorten.Result{}, err
	}
	res := plan.Apply(string(css), html, a.cfg.Budget)

	dir := filepath.Dir(a.cfg.CustomCSSPath)
	outputs := map[string]string{
		ShortCSSName: res.CSS,
		LegendName:   res.Legend,
	}
	if html != "" {
		outputs[ShortHTMLName] = res.HTML
	}
	for name, body := range outputs {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			return res, fmt.Errorf("write %s: %w", name, err)
		}
	}
	log.Info().Int("css", res.Report.FinalCSS).Int("html", res.Report.FinalHTML).Int("budget", res.Report.Budget).Msg("shortened")
	return res, nil
}

// Analyze reports where custom.css spends its characters.
func (a *App) Analyze() (shorten.Analysis, error) {
	plan, err := shorten.LoadPlan(a.cfg.PlanPath)
	if err != nil {
		return shorten.Analysis{}, err
	}
	css, err := os.ReadFile(a.cfg.CustomCSSPath)
	if err != nil {
		return shorten.Analysis{}, fmt.Errorf("read stylesheet: %w", err)
	}
	return shorten.Analyze(string(css), plan.Patterns, a.cfg.Budget), nil
}

// History lists recorded update runs, newest first.
func (a *App) History(ctx context.Context, limit int) ([]store.Run, error) {
	if !fileExists(a.cfg.HistoryPath) {
		return nil, nil
	}
	db, err := store.Open(a.cfg.HistoryPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.ListRuns(ctx, limit)
}

// RunImages lists the images handled by one recorded run.
func (a *App) RunImages(ctx context.Context, runID int64) ([]store.Image, error) {
	if !fileExists(a.cfg.HistoryPath) {
		return nil, nil
	}
	db, err := store.Open(a.cfg.HistoryPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.RunImages(ctx, runID)
}

// ClearCache removes the HTTP cache directory.
func (a *App) ClearCache() error {
	if err := cache.ClearDir(a.cfg.CacheDir); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	log.Info().Str("dir", a.cfg.CacheDir).Msg("cache cleared")
	return nil
}

func (a *App) readTemplate() (string, error) {
	b, err := os.ReadFile(a.cfg.TemplatePath)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNoTemplate, a.cfg.TemplatePath)
	}
	if err != nil {
		return "", fmt.Errorf("read template: %w", err)
	}
	return string(b), nil
}

// readOptional returns "" for a missing file.
func readOptional(path string) (string, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
