package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/reelscout/reelscout/classify"
	"github.com/reelscout/reelscout/network"
	"github.com/reelscout/reelscout/provider"
	"github.com/reelscout/reelscout/proxy"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of a listing page is read into memory.
const maxBodyBytes = 8 << 20

// Renderer turns a URL into fully rendered HTML. The browser tier and the
// rendering API tier both implement it.
type Renderer interface {
	Render(ctx context.Context, target string, profile *provider.Profile) ([]byte, error)
}

// forgetter is implemented by renderers that cache their output.
type forgetter interface {
	Forget(target string)
}

// ProxyClientFunc builds the client used to route one request through ep.
type ProxyClientFunc func(ep proxy.Endpoint) *http.Client

// Result is a successfully acquired page.
type Result struct {
	HTML     []byte
	Tier     Tier
	URL      string
	Attempts []Attempt
}

// Fetcher runs the tier ladder for one URL at a time. It is safe for
// concurrent use as long as its collaborators are.
type Fetcher struct {
	classifier     *classify.Classifier
	direct         *http.Client
	pool           *proxy.Pool
	proxyClient    ProxyClientFunc
	browser        Renderer
	render         Renderer
	limiter        *rate.Limiter
	directAttempts int
	proxyAttempts  int
	maxRedirects   int
	observer       func(Attempt)
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithDirectClient sets the client of the direct tier.
func WithDirectClient(c *http.Client) Option {
	return func(f *Fetcher) { f.direct = c }
}

// WithProxyPool enables the proxy tier. A nil build func uses network.NewProxyClient.
func WithProxyPool(pool *proxy.Pool, build ProxyClientFunc) Option {
	return func(f *Fetcher) {
		f.pool = pool
		if build != nil {
			f.proxyClient = build
		}
	}
}

// WithBrowser enables the headless browser tier.
func WithBrowser(r Renderer) Option {
	return func(f *Fetcher) { f.browser = r }
}

// WithRenderAPI enables the paid rendering tier.
func WithRenderAPI(r Renderer) Option {
	return func(f *Fetcher) { f.render = r }
}

// WithRateLimit throttles HTTP attempts of the direct and proxy tiers.
func WithRateLimit(l *rate.Limiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// WithAttempts sets the per-tier budgets. Non-positive values keep the defaults.
func WithAttempts(direct, proxied int) Option {
	return func(f *Fetcher) {
		if direct > 0 {
			f.directAttempts = direct
		}
		if proxied > 0 {
			f.proxyAttempts = proxied
		}
	}
}

// WithMaxRedirects bounds the redirect chain followed by HTTP tiers.
func WithMaxRedirects(n int) Option {
	return func(f *Fetcher) {
		if n >= 0 {
			f.maxRedirects = n
		}
	}
}

// WithObserver registers a callback receiving every attempt.
func WithObserver(fn func(Attempt)) Option {
	return func(f *Fetcher) { f.observer = fn }
}

// New builds a fetcher. Only the direct tier is enabled by default.
func New(classifier *classify.Classifier, opts ...Option) *Fetcher {
	f := &Fetcher{
		classifier:     classifier,
		direct:         network.NewClient(nil, 0),
		directAttempts: 2,
		proxyAttempts:  3,
		maxRedirects:   5,
		proxyClient: func(ep proxy.Endpoint) *http.Client {
			return network.NewProxyClient(ep.URL(), 0)
		},
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.classifier == nil {
		f.classifier = classify.New()
	}
	f.direct = f.guard(f.direct)
	return f
}

// guard returns a copy of c that re-checks every redirect hop. A hop to a
// suspicious domain or past the depth limit stops the chain, and the redirect
// response itself is handed to the classifier.
func (f *Fetcher) guard(c *http.Client) *http.Client {
	guarded := *c
	guarded.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > f.maxRedirects || f.classifier.IsSuspicious(req.URL.String()) {
			return http.ErrUseLastResponse
		}
		return nil
	}
	return &guarded
}

// Tiers returns the ladder that would run for a profile.
func (f *Fetcher) Tiers(p *provider.Profile) []Tier {
	var tiers []Tier
	if !p.RequiresBrowser {
		tiers = append(tiers, Direct)
	}
	if f.pool != nil && f.pool.Len() > 0 {
		tiers = append(tiers, Proxy)
	}
	if f.browser != nil {
		tiers = append(tiers, Browser)
	}
	if f.render != nil {
		tiers = append(tiers, RenderAPI)
	}
	return tiers
}

// Fetch climbs the ladder until one tier returns a page the classifier accepts.
// It returns an ExhaustedError when every tier failed, or the context error if
// ctx ends first.
func (f *Fetcher) Fetch(ctx context.Context, target string, p *provider.Profile) (*Result, error) {
	var trail []Attempt

	record := func(a Attempt) {
		a.log()
		if f.observer != nil {
			f.observer(a)
		}
		trail = append(trail, a)
	}

	for _, tier := range f.Tiers(p) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var body []byte
		switch tier {
		case Direct:
			body = f.runDirect(ctx, target, record)
		case Proxy:
			body = f.runProxy(ctx, target, record)
		case Browser:
			body = f.runRenderer(ctx, Browser, f.browser, target, p, record)
		case RenderAPI:
			body = f.runRenderer(ctx, RenderAPI, f.render, target, p, record)
		}

		if body != nil {
			return &Result{HTML: body, Tier: tier, URL: target, Attempts: trail}, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, &ExhaustedError{URL: target, Attempts: trail}
}

func (f *Fetcher) runDirect(ctx context.Context, target string, record func(Attempt)) []byte {
	for i := 0; i < f.directAttempts; i++ {
		body, a := f.get(ctx, Direct, f.direct, target)
		record(a)

		if a.Outcome == Success {
			return body
		}
		if !a.Outcome.retryable() || ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

func (f *Fetcher) runProxy(ctx context.Context, target string, record func(Attempt)) []byte {
	for i := 0; i < f.proxyAttempts; i++ {
		ep, err := f.pool.Acquire()
		if err != nil {
			return nil
		}

		body, a := f.get(ctx, Proxy, f.guard(f.proxyClient(ep)), target)
		a.Proxy = ep.String()
		if a.Verdict == classify.AuthError {
			a.Err = &AuthError{Proxy: ep.String()}
		}
		record(a)

		if a.Outcome == Success {
			f.pool.ReportSuccess(ep)
			return body
		}
		f.pool.ReportFailure(ep)

		if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

func (f *Fetcher) runRenderer(ctx context.Context, tier Tier, r Renderer, target string, p *provider.Profile, record func(Attempt)) []byte {
	start := time.Now()
	a := Attempt{Tier: tier, URL: target}

	body, err := r.Render(ctx, target, p)
	a.Duration = time.Since(start)
	if err != nil {
		a.Outcome = outcomeOfErr(err)
		a.Verdict = classify.NetworkError
		a.Err = err
		record(a)
		return nil
	}

	header := http.Header{}
	header.Set("Content-Type", "text/html; charset=utf-8")
	a.Status = http.StatusOK
	a.Verdict, a.Outcome = f.judge(tier, http.StatusOK, header, body, &a.Err)
	record(a)

	if a.Outcome != Success {
		if c, ok := r.(forgetter); ok {
			c.Forget(target)
		}
		return nil
	}
	return body
}

// get issues one GET through client and classifies the response.
func (f *Fetcher) get(ctx context.Context, tier Tier, client *http.Client, target string) ([]byte, Attempt) {
	start := time.Now()
	a := Attempt{Tier: tier, URL: target, Verdict: classify.NetworkError}
	fail := func(err error) ([]byte, Attempt) {
		a.Duration = time.Since(start)
		a.Outcome = outcomeOfErr(err)
		a.Err = err
		return nil, a
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return fail(err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fail(err)
	}
	network.SetBrowserHeaders(req, "")

	resp, err := client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fail(fmt.Errorf("read body: %w", err))
	}

	a.Duration = time.Since(start)
	a.Status = resp.StatusCode
	a.Verdict, a.Outcome = f.judge(tier, resp.StatusCode, resp.Header, body, &a.Err)
	return bytes.TrimSpace(body), a
}

func (f *Fetcher) judge(tier Tier, status int, header http.Header, body []byte, errOut *error) (classify.Verdict, Outcome) {
	verdict, reason := f.classifier.Explain(status, header, body)
	outcome := outcomeOf(verdict, reason)

	switch verdict {
	case classify.OK:
	case classify.NetworkError:
		*errOut = &StatusError{Tier: tier, Status: status}
	default:
		*errOut = &BlockedError{Tier: tier, Verdict: verdict, Reason: reason}
	}
	return verdict, outcome
}
