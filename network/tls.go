package network

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// ChromeTransport performs requests with a Chrome 120 TLS ClientHello, so
// fingerprinting CDNs see a browser rather than Go's crypto/tls.
//
// HTTP/2 is tried first. When that fails the request is replayed over an
// HTTP/1.1 connection.
type ChromeTransport struct {
	h2 *http2.Transport
	h1 *http.Transport
}

// NewChromeTransport builds a transport whose dials are bounded by dialTimeout.
func NewChromeTransport(dialTimeout time.Duration) *ChromeTransport {
	if dialTimeout <= 0 {
		dialTimeout = DefaultTimeout
	}

	return &ChromeTransport{
		h2: &http2.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dialChrome(ctx, network, addr, dialTimeout, nil)
			},
		},
		h1: &http.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialChrome(ctx, network, addr, dialTimeout, []string{"http/1.1"})
			},
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     30 * time.Second,
		},
	}
}

// RoundTrip implements http.RoundTripper. Plain http URLs bypass the fingerprint.
func (t *ChromeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.h1.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}

	retry := req.Clone(req.Context())
	if req.Body != nil && req.GetBody != nil {
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return nil, fmt.Errorf("h2 failed (%v), rewind body: %w", err, bodyErr)
		}
		retry.Body = body
	}

	resp, h1Err := t.h1.RoundTrip(retry)
	if h1Err != nil {
		return nil, fmt.Errorf("h2: %v; h1: %w", err, h1Err)
	}
	return resp, nil
}

// CloseIdleConnections releases pooled connections of both transports.
func (t *ChromeTransport) CloseIdleConnections() {
	t.h2.CloseIdleConnections()
	t.h1.CloseIdleConnections()
}

func dialChrome(ctx context.Context, network, addr string, timeout time.Duration, protos []string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	tlsConn := utls.UClient(conn, &utls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
		NextProtos: protos,
	}, utls.HelloChrome_120)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}
