package httpclient

import (
	"net"
	"net/http"
	"time"
)

// NewClient returns an HTTP client sized for maxWorkers concurrent callers
// against a single host. A non-positive maxWorkers keeps the default pool.
func NewClient(timeout time.Duration, maxWorkers int) *http.Client {
	if timeout < 0 {
		timeout = 0
	}
	perHost := 32
	if maxWorkers > perHost {
		perHost = maxWorkers
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          perHost * 2,
		MaxIdleConnsPerHost:   perHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
