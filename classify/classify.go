// Package classify decides whether a fetched response carries real content or an anti-bot page.
package classify

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"
)

// Verdict is the outcome of classifying one response.
type Verdict int

const (
	OK Verdict = iota
	Blocked
	RedirectSuspicious
	AuthError
	NetworkError
)

func (v Verdict) String() string {
	switch v {
	case OK:
		return "ok"
	case Blocked:
		return "blocked"
	case RedirectSuspicious:
		return "redirect_suspicious"
	case AuthError:
		return "auth_error"
	case NetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// Failed reports whether the verdict should make a tier give up on the response.
func (v Verdict) Failed() bool {
	return v != OK
}

// Reason strings returned by Explain.
const (
	ReasonStatus     = "status"
	ReasonRedirect   = "redirect"
	ReasonCaptcha    = "captcha"
	ReasonDenied     = "access denied"
	ReasonDDoS       = "ddos protection"
	ReasonCloudflare = "cloudflare challenge"
	ReasonSecurity   = "security block"
	ReasonTooShort   = "body too short"
	ReasonProxyAuth  = "proxy auth"
)

// Defaults used by New.
const (
	DefaultMinBody    = 500
	DefaultScanLength = 16 << 10
)

// Classifier applies the block page rules. The zero value is not usable; use New.
type Classifier struct {
	suspicious []string
	minBody    int
	scan       int
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithMinBody sets the length below which a 200 response is considered a block page.
func WithMinBody(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.minBody = n
		}
	}
}

// WithScanLength sets how many leading body bytes are searched for block markers.
func WithScanLength(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.scan = n
		}
	}
}

// WithSuspiciousDomains sets the substrings that mark a redirect target as suspicious.
func WithSuspiciousDomains(domains []string) Option {
	return func(c *Classifier) {
		c.suspicious = c.suspicious[:0]
		for _, d := range domains {
			if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
				c.suspicious = append(c.suspicious, d)
			}
		}
	}
}

// New returns a classifier with the default thresholds, adjusted by opts.
func New(opts ...Option) *Classifier {
	c := &Classifier{minBody: DefaultMinBody, scan: DefaultScanLength}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the verdict for a response.
func (c *Classifier) Classify(status int, header http.Header, body []byte) Verdict {
	v, _ := c.Explain(status, header, body)
	return v
}

// Explain returns the verdict together with the rule that produced it.
// The rules are evaluated in a fixed order and the first match wins.
func (c *Classifier) Explain(status int, header http.Header, body []byte) (Verdict, string) {
	switch {
	case status == http.StatusProxyAuthRequired:
		return AuthError, ReasonProxyAuth
	case status == http.StatusForbidden, status == http.StatusTooManyRequests:
		return Blocked, ReasonStatus
	case isRedirect(status) && c.IsSuspicious(header.Get("Location")):
		return RedirectSuspicious, ReasonRedirect
	case status != http.StatusOK:
		return NetworkError, ReasonStatus
	}

	if strings.Contains(strings.ToLower(header.Get("Content-Type")), "text/html") {
		if reason, ok := c.marker(body); ok {
			return Blocked, reason
		}
	}

	if len(body) < c.minBody {
		return Blocked, ReasonTooShort
	}

	return OK, ""
}

func (c *Classifier) marker(body []byte) (string, bool) {
	sample := body
	if len(sample) > c.scan {
		sample = sample[:c.scan]
	}
	sample = bytes.ToLower(sample)

	has := func(s string) bool { return bytes.Contains(sample, []byte(s)) }

	switch {
	case has("captcha"):
		return ReasonCaptcha, true
	case has("access denied"):
		return ReasonDenied, true
	case has("ddos protection"):
		return ReasonDDoS, true
	case has("cloudflare") && has("challenge"):
		return ReasonCloudflare, true
	case has("blocked") && has("security"):
		return ReasonSecurity, true
	}
	return "", false
}

// IsSuspicious reports whether a redirect target points at a configured suspicious domain.
// Relative locations stay on the same host and are never suspicious.
func (c *Classifier) IsSuspicious(location string) bool {
	if location == "" {
		return false
	}

	host := strings.ToLower(location)
	if u, err := url.Parse(location); err == nil {
		if u.Host == "" {
			return false
		}
		host = strings.ToLower(u.Host + u.Path)
	}

	for _, s := range c.suspicious {
		if strings.Contains(host, s) {
			return true
		}
	}
	return false
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}
