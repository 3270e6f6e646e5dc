package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperifyio/profilekit/internal/app"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{"PROFILEKIT_DIR", "PROFILEKIT_SOURCE", "CACHE_DIR", "VERBOSE", "OFFLINE", "NO_HISTORY"} {
		t.Setenv(k, "")
	}
	var out bytes.Buffer
	c := newCLI()
	c.Writer = &out
	c.ErrWriter = &out
	err := c.Run(append([]string{"profilekit", "--env-file", ""}, args...))
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, app.BuildVersion) {
		t.Fatalf("version output %q", out)
	}
}

func TestUpdate_NoSourceReturnsSentinel(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, "--dir", dir, "update")
	if !errors.Is(err, app.ErrNoSource) {
		t.Fatalf("err=%v, want ErrNoSource", err)
	}
}

func TestMinifyCommand(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "custom.css"), []byte(".a { top: 0; }"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := runCLI(t, "--dir", dir, "--budget", "100", "minify")
	if err != nil {
		t.Fatalf("minify: %v", err)
	}
	if !strings.Contains(out, "remaining") {
		t.Errorf("missing report: %q", out)
	}
	b, err := os.ReadFile(filepath.Join(dir, "custom.min.css"))
	if err != nil || string(b) != ".a{top:0}" {
		t.Fatalf("custom.min.css=%q err=%v", b, err)
	}
}

func TestMinifyCommand_NothingToDo(t *testing.T) {
	out, err := runCLI(t, "--dir", t.TempDir(), "minify")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Nothing to minify") {
		t.Errorf("output %q", out)
	}
}

func TestHistoryCommand_Empty(t *testing.T) {
	out, err := runCLI(t, "--dir", t.TempDir(), "history")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No runs recorded.") {
		t.Errorf("output %q", out)
	}
}

func TestConfigFileAndFlagsLayering(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "profilekit.yaml")
	content := "profileDir: " + dir + "\nbudget: 10\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "custom.css"), []byte(".abc{top:0}"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := runCLI(t, "--config", cfgPath, "analyze")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out, "Budget remaining: -1") {
		t.Errorf("file budget not applied: %q", out)
	}
	out, err = runCLI(t, "--config", cfgPath, "--budget", "20", "analyze")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Budget remaining: 9") {
		t.Errorf("flag should win over file: %q", out)
	}
}
