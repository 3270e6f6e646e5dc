package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperifyio/profilekit/internal/images"
	"github.com/hyperifyio/profilekit/internal/minify"
)

func TestConfigResolve_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{ProfileDir: dir, ImagesDir: "/abs/images"}.Resolve()
	tests := []struct{ name, got, want string }{
		{"source", cfg.SourcePath, filepath.Join(dir, ".tools", "source.html")},
		{"template", cfg.TemplatePath, filepath.Join(dir, "profile.html")},
		{"custom html", cfg.CustomHTMLPath, filepath.Join(dir, "custom.html")},
		{"custom css", cfg.CustomCSSPath, filepath.Join(dir, "custom.css")},
		{"images", cfg.ImagesDir, "/abs/images"},
		{"history", cfg.HistoryPath, filepath.Join(dir, ".profilekit.db")},
		{"plan", cfg.PlanPath, ""},
		{"user agent", cfg.UserAgent, DefaultUserAgent},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q want %q", tt.name, tt.got, tt.want)
		}
	}
	if cfg.DownloadConcurrency != images.DefaultConcurrency || cfg.Budget != minify.DefaultBudget {
		t.Errorf("numeric defaults: %+v", cfg)
	}
}

func TestValidateConfig(t *testing.T) {
	good := Config{ProfileDir: "."}.Resolve()
	if err := ValidateConfig(good); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no dir", Config{TemplatePath: "p.html"}},
		{"negative concurrency", Config{ProfileDir: ".", TemplatePath: "p.html", DownloadConcurrency: -1}},
		{"negative cache age", Config{ProfileDir: ".", TemplatePath: "p.html", CacheMaxAge: -time.Second}},
	}
	for _, tt := range tests {
		if err := ValidateConfig(tt.cfg); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestLoadConfigFile_YAMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "profilekit.yaml")
	if err := os.WriteFile(yml, []byte("profileDir: profiles/lady\ndownload:\n  concurrency: 3\n  offline: true\ncache:\n  maxAge: 36h\nhistory:\n  disable: true\nbudget: 1200\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	fc, err := LoadConfigFile(yml)
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	cfg := Config{DownloadConcurrency: 7}
	ApplyFileConfig(&cfg, fc)
	if cfg.ProfileDir != "profiles/lady" || cfg.Budget != 1200 || cfg.CacheMaxAge != 36*time.Hour {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.DownloadConcurrency != 7 {
		t.Errorf("explicit concurrency overwritten: %d", cfg.DownloadConcurrency)
	}
	if !cfg.Offline || !cfg.NoHistory {
		t.Errorf("booleans not applied: %+v", cfg)
	}

	js := filepath.Join(dir, "profilekit.json")
	if err := os.WriteFile(js, []byte(`{"template":"index.html","plan":"plan.yaml"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	fc, err = LoadConfigFile(js)
	if err != nil {
		t.Fatalf("load json: %v", err)
	}
	if fc.Template != "index.html" || fc.Plan != "plan.yaml" {
		t.Errorf("json config: %+v", fc)
	}

	bad := filepath.Join(dir, "broken.conf")
	if err := os.WriteFile(bad, []byte("{: nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigFile(bad); err == nil {
		t.Error("expected parse error")
	}
}
