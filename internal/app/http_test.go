package app

import (
	"net/http"
	"testing"
)

func TestNewDownloadHTTPClient_Config(t *testing.T) {
	c := newDownloadHTTPClient(8)
	if c.Timeout == 0 {
		t.Fatalf("expected non-zero timeout")
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected http.Transport")
	}
	if tr.MaxIdleConnsPerHost != 8 {
		t.Fatalf("MaxIdleConnsPerHost=%d, want 8", tr.MaxIdleConnsPerHost)
	}
	if tr == http.DefaultTransport {
		t.Fatalf("transport should not be default")
	}
	if got := newDownloadHTTPClient(0).Transport.(*http.Transport).MaxIdleConnsPerHost; got != 1 {
		t.Fatalf("zero concurrency should clamp to 1, got %d", got)
	}
}
