// Package httpclient configures the HTTP client used for boundary, data and detail fetches.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

const DefaultTimeout = 10 * time.Second

// NewOutbound creates the shared outbound client; timeout <= 0 uses DefaultTimeout.
func NewOutbound(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
