package images

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sync/atomic"
	"testing"
	"time"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		name string
		url  string
		ext  string
	}{
		{"png", "https://cdn.example.com/a/b.png", ".png"},
		{"query ignored", "https://cdn.example.com/a/b.webp?w=64&h=64", ".webp"},
		{"no extension", "https://cdn.example.com/avatar/123", ".jpg"},
		{"unparseable", "https://cdn.example.com/%zz", ".jpg"},
	}
	stem := regexp.MustCompile(`^[0-9a-f]{10}\.`)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filename(tt.url)
			if !stem.MatchString(got) {
				t.Fatalf("bad stem: %q", got)
			}
			if filepath.Ext(got) != tt.ext {
				t.Fatalf("ext: got %q want %q", filepath.Ext(got), tt.ext)
			}
			if got != Filename(tt.url) {
				t.Fatalf("not deterministic")
			}
		})
	}
	if Filename("https://a.example/1.png") == Filename("https://a.example/2.png") {
		t.Fatal("distinct urls share a filename")
	}
}

func TestEncodeDecode(t *testing.T) {
	raw := "https://a.example/x?w=1&amp;h=2&q=3"
	if got := Decode(raw); got != "https://a.example/x?w=1&h=2&q=3" {
		t.Errorf("decode: %q", got)
	}
	if got := Encode(raw); got != "https://a.example/x?w=1&amp;h=2&amp;q=3" {
		t.Errorf("encode: %q", got)
	}
}

func TestHTTPOnly(t *testing.T) {
	got := HTTPOnly([]string{"https://a/x.png", "data:image/png;base64,AA", "/local.png", "HTTP://b/y.png"})
	if len(got) != 2 || got[0] != "https://a/x.png" || got[1] != "HTTP://b/y.png" {
		t.Fatalf("got %v", got)
	}
}

func imageServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		switch r.URL.Path {
		case "/missing.png":
			w.WriteHeader(http.StatusNotFound)
		case "/page.html":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		default:
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("img:" + r.URL.RawQuery))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLocalize_DownloadsAndMapsVariants(t *testing.T) {
	var hits int32
	srv := imageServer(t, &hits)
	dir := filepath.Join(t.TempDir(), "images")
	d := NewDownloader(dir, "profilekit-test", 2)

	withQuery := srv.URL + "/a.png?w=1&amp;h=2"
	urls := []string{srv.URL + "/avatar.png", withQuery, srv.URL + "/missing.png", srv.URL + "/page.html", "data:x"}
	m, results, err := d.Localize(context.Background(), urls)
	if err != nil {
		t.Fatalf("localize: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 http results, got %d", len(results))
	}

	avatar := m[srv.URL+"/avatar.png"]
	if avatar != LocalPrefix+Filename(srv.URL+"/avatar.png") {
		t.Fatalf("avatar path: %q", avatar)
	}
	want := LocalPrefix + Filename(Decode(withQuery))
	for _, k := range []string{withQuery, Decode(withQuery), Encode(withQuery)} {
		if m[k] != want {
			t.Errorf("variant %q: got %q want %q", k, m[k], want)
		}
	}
	b, err := os.ReadFile(filepath.Join(dir, Filename(Decode(withQuery))))
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(b) != "img:w=1&h=2" {
		t.Errorf("decoded url should be fetched, body %q", b)
	}
	if _, ok := m[srv.URL+"/missing.png"]; ok {
		t.Error("failed download must not be mapped")
	}
	if _, ok := m[srv.URL+"/page.html"]; ok {
		t.Error("non-image response must not be mapped")
	}
	var failed int
	for _, r := range results {
		if r.Status == StatusFailed {
			failed++
			if r.Err == nil {
				t.Errorf("failed result without error: %+v", r)
			}
		}
	}
	if failed != 2 {
		t.Errorf("expected 2 failures, got %d", failed)
	}
}

func TestLocalize_ReusesExistingFiles(t *testing.T) {
	var hits int32
	srv := imageServer(t, &hits)
	dir := t.TempDir()
	u := srv.URL + "/cached.png"
	if err := os.WriteFile(filepath.Join(dir, Filename(u)), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	d := NewDownloader(dir, "", 0)
	m, results, err := d.Localize(context.Background(), []string{u})
	if err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("existing file should not be fetched")
	}
	if results[0].Status != StatusReused || m[u] == "" {
		t.Fatalf("unexpected result %+v", results[0])
	}
}

func TestLocalize_Offline(t *testing.T) {
	var hits int32
	srv := imageServer(t, &hits)
	dir := t.TempDir()
	present := srv.URL + "/present.png"
	if err := os.WriteFile(filepath.Join(dir, Filename(present)), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	d := NewDownloader(dir, "", 0)
	d.Offline = true
	m, results, err := d.Localize(context.Background(), []string{present, srv.URL + "/absent.png"})
	if err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("offline mode must not touch the network")
	}
	if m[present] == "" {
		t.Error("present file should be mapped")
	}
	if results[1].Status != StatusMissing {
		t.Errorf("absent file: got %s", results[1].Status)
	}
}

func TestLocalize_NoURLsCreatesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	d := NewDownloader(dir, "", 0)
	m, _, err := d.Localize(context.Background(), []string{"data:x", ""})
	if err != nil || len(m) != 0 {
		t.Fatalf("got %v %v", m, err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("images dir should not be created")
	}
}

func TestLocalize_BoundedConcurrency(t *testing.T) {
	var inFlight, maxSeen int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxSeen)
			if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	var urls []string
	for i := 0; i < 12; i++ {
		urls = append(urls, srv.URL+"/img"+string(rune('a'+i))+".png")
	}
	d := NewDownloader(t.TempDir(), "", 3)
	if _, _, err := d.Localize(context.Background(), urls); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&maxSeen); got > 3 {
		t.Fatalf("expected at most 3 concurrent downloads, saw %d", got)
	}
}
