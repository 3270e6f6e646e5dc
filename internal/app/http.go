package app

import (
	"net"
	"net/http"
	"time"
)

// newDownloadHTTPClient returns the transport shared by image downloads. The
// per-host pool is sized for the download concurrency; the fetch client's
// own limiter does the throttling.
func newDownloadHTTPClient(concurrency int) *http.Client {
	if concurrency <= 0 {
		concurrency = 1
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   concurrency,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}
