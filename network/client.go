// Package network provides the tuned HTTP clients used by the fetch tiers.
package network

import (
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds a single request when the caller passes zero.
const DefaultTimeout = 30 * time.Second

// NewTransport returns a pooled transport tuned for many concurrent scraping requests.
func NewTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = 100
	t.MaxConnsPerHost = 200
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = 30 * time.Second
	t.ExpectContinueTimeout = 30 * time.Second
	return t
}

// NewClient wraps rt in a client with the given timeout. A nil rt uses NewTransport.
func NewClient(rt http.RoundTripper, timeout time.Duration) *http.Client {
	if rt == nil {
		rt = NewTransport()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout, Transport: rt}
}

// NewProxyClient routes every request through proxyURL. Keep-alives are off so
// each request gets a fresh exit connection.
func NewProxyClient(proxyURL *url.URL, timeout time.Duration) *http.Client {
	t := NewTransport()
	t.Proxy = http.ProxyURL(proxyURL)
	t.DisableKeepAlives = true
	return NewClient(t, timeout)
}
