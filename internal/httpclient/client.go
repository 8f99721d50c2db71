package httpclient

import (
	"net"
	"net/http"
	"time"
)

const (
	defaultIdleConnsPerHost = 32
	minIdleConns            = 256
)

// NewTransport returns a transport tuned for many concurrent sessions against a
// single host. idlePerHost should be at least the highest concurrency level that
// will run through it, otherwise finished sessions churn connections.
func NewTransport(idlePerHost int) *http.Transport {
	if idlePerHost <= 0 {
		idlePerHost = defaultIdleConnsPerHost
	}
	maxIdle := idlePerHost
	if maxIdle < minIdleConns {
		maxIdle = minIdleConns
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          maxIdle,
		MaxIdleConnsPerHost:   idlePerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
