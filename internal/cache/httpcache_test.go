package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestHTTPCache_SaveLoad(t *testing.T) {
	t.Parallel()
	c := &HTTPCache{Dir: filepath.Join(t.TempDir(), "http")}
	url := "https://cdn.example.com/a.png?w=64&h=64"
	if err := c.Save(context.Background(), url, "image/png", `"v1"`, "Mon, 01 Jan 2024 00:00:00 GMT", []byte("png")); err != nil {
		t.Fatalf("save: %v", err)
	}
	meta, err := c.LoadMeta(context.Background(), url)
	if err != nil {
		t.Fatalf("load meta: %v", err)
	}
	if meta.URL != url || meta.ContentType != "image/png" || meta.ETag != `"v1"` {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	body, err := c.LoadBody(context.Background(), url)
	if err != nil || string(body) != "png" {
		t.Fatalf("load body: %q %v", body, err)
	}
	if _, err := c.LoadBody(context.Background(), "https://cdn.example.com/other.png"); err == nil {
		t.Fatalf("expected miss for unknown url")
	}
}

func TestHTTPCache_ConcurrentSaveSameURL(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "http")
	c := &HTTPCache{Dir: dir}
	url := "https://cdn.example.com/same.png"
	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Save(context.Background(), url, "image/png", fmt.Sprintf(`"v%d"`, i), "", []byte(fmt.Sprintf("body-%d", i)))
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	meta, err := c.LoadMeta(context.Background(), url)
	if err != nil {
		t.Fatalf("load meta: %v", err)
	}
	if meta.URL != url {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	body, err := c.LoadBody(context.Background(), url)
	if err != nil || !strings.HasPrefix(string(body), "body-") {
		t.Fatalf("load body: %q %v", body, err)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range ents {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
	if len(ents) != 2 {
		t.Errorf("expected body and meta only, got %d entries", len(ents))
	}
}

func TestKey_StableAndDistinct(t *testing.T) {
	a := Key("https://a.com/1")
	if a != Key("https://a.com/1") {
		t.Fatalf("key not deterministic")
	}
	if a == Key("https://a.com/2") {
		t.Fatalf("distinct urls share a key")
	}
	if len(a) != 32 {
		t.Fatalf("expected 32 hex chars, got %d", len(a))
	}
}

func TestHTTPCache_LRUEnforcement_Count(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	urls := []string{"https://a.com/1", "https://a.com/2", "https://a.com/3"}
	for i, u := range urls {
		if err := c.Save(context.Background(), u, "text/html", "", "", []byte(fmt.Sprintf("body-%d", i))); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	// Touch second to make it MRU compared to first
	if _, err := c.LoadBody(context.Background(), urls[1]); err != nil {
		t.Fatalf("touch body: %v", err)
	}
	removed, err := EnforceHTTPCacheLimits(dir, 0, 2)
	if err != nil {
		t.Fatalf("enforce: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := c.LoadBody(context.Background(), urls[0]); err == nil {
		t.Fatalf("expected oldest evicted")
	}
	if _, err := c.LoadBody(context.Background(), urls[1]); err != nil {
		t.Fatalf("expected touched entry kept: %v", err)
	}
}

func TestHTTPCache_LRUEnforcement_Bytes(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	if err := c.Save(context.Background(), "https://b.com/1", "text/html", "", "", []byte("1111111111")); err != nil {
		t.Fatalf("save 1: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := c.Save(context.Background(), "https://b.com/2", "text/html", "", "", []byte("22")); err != nil {
		t.Fatalf("save 2: %v", err)
	}
	removed, err := EnforceHTTPCacheLimits(dir, 5, 0)
	if err != nil {
		t.Fatalf("enforce: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
}

func TestPurgeHTTPCacheByAge(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	ctx := context.Background()
	if err := c.Save(ctx, "https://old.example/x", "image/png", "", "", []byte("old")); err != nil {
		t.Fatal(err)
	}
	if err := c.Save(ctx, "https://new.example/x", "image/png", "", "", []byte("new")); err != nil {
		t.Fatal(err)
	}
	// Backdate the first entry
	metaPath := filepath.Join(dir, Key("https://old.example/x")+".meta.json")
	b, err := os.ReadFile(metaPath)
	if err != nil {
		t.Fatal(err)
	}
	var e HTTPEntry
	if err := json.Unmarshal(b, &e); err != nil {
		t.Fatal(err)
	}
	e.SavedAt = time.Now().Add(-48 * time.Hour).UTC()
	b, _ = json.Marshal(e)
	if err := os.WriteFile(metaPath, b, 0o644); err != nil {
		t.Fatal(err)
	}

	removed, err := PurgeHTTPCacheByAge(dir, 24*time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := c.LoadBody(ctx, "https://old.example/x"); err == nil {
		t.Fatalf("expected old body removed")
	}
	if _, err := c.LoadBody(ctx, "https://new.example/x"); err != nil {
		t.Fatalf("expected new body kept: %v", err)
	}
}

func TestClearDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "x.body"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ClearDir(dir); err != nil {
		t.Fatalf("clear: %v", err)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("dir should exist after clear: %v", err)
	}
	if len(ents) != 0 {
		t.Fatalf("expected empty dir, got %d entries", len(ents))
	}
	if err := ClearDir("  "); err == nil {
		t.Fatalf("expected error for blank dir")
	}
}
