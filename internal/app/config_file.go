package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
type FileConfig struct {
	ProfileDir string `yaml:"profileDir" json:"profileDir"`
	Source     string `yaml:"source" json:"source"`
	Template   string `yaml:"template" json:"template"`
	ImagesDir  string `yaml:"imagesDir" json:"imagesDir"`

	Download struct {
		UserAgent   string `yaml:"userAgent" json:"userAgent"`
		Concurrency int    `yaml:"concurrency" json:"concurrency"`
		Offline     bool   `yaml:"offline" json:"offline"`
	} `yaml:"download" json:"download"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
		MaxBytes    int64         `yaml:"maxBytes" json:"maxBytes"`
		MaxCount    int           `yaml:"maxCount" json:"maxCount"`
	} `yaml:"cache" json:"cache"`

	Budget int    `yaml:"budget" json:"budget"`
	Plan   string `yaml:"plan" json:"plan"`

	History struct {
		Path    string `yaml:"path" json:"path"`
		Disable bool   `yaml:"disable" json:"disable"`
	} `yaml:"history" json:"history"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig copies values from fc into any field of cfg that is still
// unset, so values already present in cfg win over the file.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	setStr := func(dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
		}
	}
	setStr(&cfg.ProfileDir, fc.ProfileDir)
	setStr(&cfg.SourcePath, fc.Source)
	setStr(&cfg.TemplatePath, fc.Template)
	setStr(&cfg.ImagesDir, fc.ImagesDir)
	setStr(&cfg.UserAgent, fc.Download.UserAgent)
	setStr(&cfg.CacheDir, fc.Cache.Dir)
	setStr(&cfg.PlanPath, fc.Plan)
	setStr(&cfg.HistoryPath, fc.History.Path)

	if cfg.DownloadConcurrency == 0 && fc.Download.Concurrency > 0 {
		cfg.DownloadConcurrency = fc.Download.Concurrency
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if cfg.CacheMaxBytes == 0 && fc.Cache.MaxBytes > 0 {
		cfg.CacheMaxBytes = fc.Cache.MaxBytes
	}
	if cfg.CacheMaxCount == 0 && fc.Cache.MaxCount > 0 {
		cfg.CacheMaxCount = fc.Cache.MaxCount
	}
	if cfg.Budget == 0 && fc.Budget > 0 {
		cfg.Budget = fc.Budget
	}

	cfg.Offline = cfg.Offline || fc.Download.Offline
	cfg.CacheClear = cfg.CacheClear || fc.Cache.Clear
	cfg.CacheStrictPerms = cfg.CacheStrictPerms || fc.Cache.StrictPerms
	cfg.NoHistory = cfg.NoHistory || fc.History.Disable
	cfg.Verbose = cfg.Verbose || fc.Verbose
}
