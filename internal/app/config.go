package app

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperifyio/profilekit/internal/images"
	"github.com/hyperifyio/profilekit/internal/minify"
	"github.com/hyperifyio/profilekit/internal/store"
)

// Defaults applied by Resolve. Relative paths are taken from the profile
// directory.
const (
	DefaultSource    = ".tools/source.html"
	DefaultTemplate  = "profile.html"
	DefaultImagesDir = "images"
	DefaultCacheDir  = ".tools/cache"
	DefaultUserAgent = "profilekit/1.0 (+https://github.com/hyperifyio/profilekit)"
)

// Config holds runtime configuration for the application.
type Config struct {
	// ProfileDir is the folder holding the template and custom files.
	ProfileDir string
	SourcePath string
	// TemplatePath is rewritten in place by Update.
	TemplatePath   string
	CustomHTMLPath string
	CustomCSSPath  string
	ImagesDir      string

	// Downloads
	UserAgent           string
	DownloadConcurrency int
	Offline             bool

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool
	CacheMaxBytes    int64
	CacheMaxCount    int

	// Budget is the character limit reported by minify, shorten and analyze.
	Budget int
	// PlanPath is an optional YAML shortening plan.
	PlanPath string

	HistoryPath string
	NoHistory   bool

	Verbose bool
}

// Resolve fills unset fields with defaults and makes every path absolute
// with respect to ProfileDir.
func (c Config) Resolve() Config {
	if strings.TrimSpace(c.ProfileDir) == "" {
		c.ProfileDir = "."
	}
	if abs, err := filepath.Abs(c.ProfileDir); err == nil {
		c.ProfileDir = abs
	}
	in := func(p, def string) string {
		if strings.TrimSpace(p) == "" {
			p = def
		}
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(c.ProfileDir, p)
	}
	c.SourcePath = in(c.SourcePath, DefaultSource)
	c.TemplatePath = in(c.TemplatePath, DefaultTemplate)
	c.CustomHTMLPath = in(c.CustomHTMLPath, "custom.html")
	c.CustomCSSPath = in(c.CustomCSSPath, "custom.css")
	c.ImagesDir = in(c.ImagesDir, DefaultImagesDir)
	c.CacheDir = in(c.CacheDir, DefaultCacheDir)
	c.HistoryPath = in(c.HistoryPath, store.DefaultName)
	if c.PlanPath != "" {
		c.PlanPath = in(c.PlanPath, "")
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.DownloadConcurrency == 0 {
		c.DownloadConcurrency = images.DefaultConcurrency
	}
	if c.Budget == 0 {
		c.Budget = minify.DefaultBudget
	}
	return c
}

// ValidateConfig rejects settings no command can work with.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.ProfileDir) == "" {
		return errors.New("config: profile directory is required")
	}
	if strings.TrimSpace(cfg.TemplatePath) == "" {
		return errors.New("config: template path is required")
	}
	if cfg.DownloadConcurrency < 0 || cfg.Budget < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.CacheMaxAge < 0 || cfg.CacheMaxBytes < 0 || cfg.CacheMaxCount < 0 {
		return errors.New("config: negative cache limits are not allowed")
	}
	return nil
}
