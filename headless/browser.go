// Package headless drives a stealth Chromium through go-rod for the browser
// fetch tier and for stream capture.
package headless

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/reelscout/reelscout/filesystem"
	"github.com/reelscout/reelscout/log"
	"github.com/reelscout/reelscout/network"
	"github.com/reelscout/reelscout/provider"
	"github.com/reelscout/reelscout/proxy"
	"github.com/reelscout/reelscout/util"
	"github.com/samber/mo"
)

// Options configures every session a Browser opens.
type Options struct {
	Bin          string
	Headless     bool
	NavTimeout   time.Duration
	WaitFallback time.Duration
	ScrollSteps  int
	// ScreenshotDir receives a capture whenever a wait selector times out. Empty disables it.
	ScreenshotDir string
	// Proxies, when non-empty, routes each session through one acquired endpoint.
	Proxies *proxy.Pool
}

func (o Options) withDefaults() Options {
	if o.NavTimeout <= 0 {
		o.NavTimeout = 30 * time.Second
	}
	if o.WaitFallback <= 0 {
		o.WaitFallback = 3 * time.Second
	}
	if o.ScrollSteps < 0 {
		o.ScrollSteps = 0
	}
	return o
}

// PageBlockList keeps images, fonts, stylesheets and trackers out of rendered listing pages.
var PageBlockList = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg", "*.ico", "*.avif",
	"*.woff", "*.woff2", "*.ttf", "*.eot", "*.otf",
	"*.css",
	"*.mp4", "*.webm", "*.m3u8", "*.mp3",
	"*google-analytics*", "*googletagmanager*", "*doubleclick*", "*facebook*",
	"*hotjar*", "*sentry*", "*adservice*", "*popads*",
}

// Browser launches an isolated Chromium per session. The zero value is not usable; use New.
type Browser struct {
	opts Options
}

// New returns a browser that launches sessions with opts.
func New(opts Options) *Browser {
	return &Browser{opts: opts.withDefaults()}
}

// Render implements the browser fetch tier: it loads target in a fresh
// stealth session and returns the rendered DOM.
func (b *Browser) Render(ctx context.Context, target string, profile *provider.Profile) (html []byte, err error) {
	session, err := b.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			log.Warnf("close browser session: %v", closeErr)
		}
	}()

	if err := session.Block(PageBlockList); err != nil {
		log.Warnf("set blocked urls: %v", err)
	}

	if err := session.Navigate(ctx, target); err != nil {
		session.report(false)
		return nil, err
	}

	if profile != nil && profile.WaitSelector != "" {
		session.WaitFor(ctx, profile.WaitSelector, profile.Name)
	}
	if profile != nil && profile.Scroll {
		session.Scroll(ctx, b.opts.ScrollSteps)
	}

	rendered, err := session.HTML()
	if err != nil {
		return nil, err
	}
	session.report(true)
	return []byte(rendered), nil
}

// Session is one launched browser with a single stealth page. It must be closed.
type Session struct {
	opts      Options
	launcher  *launcher.Launcher
	browser   *rod.Browser
	incognito *rod.Browser
	page      *rod.Page
	proxy     mo.Option[proxy.Endpoint]
}

// Open launches a browser, opens an incognito context and a stealth page in it.
// On failure everything launched so far is released.
func (b *Browser) Open(ctx context.Context) (_ *Session, err error) {
	s := &Session{opts: b.opts}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	s.launcher = launcher.New().
		Context(ctx).
		Headless(b.opts.Headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled")
	if b.opts.Bin != "" {
		s.launcher = s.launcher.Bin(b.opts.Bin)
	}
	if b.opts.Proxies != nil && b.opts.Proxies.Len() > 0 {
		if ep, err := b.opts.Proxies.Acquire(); err == nil {
			s.proxy = mo.Some(ep)
			s.launcher = s.launcher.Proxy(ProxyServer(ep))
		}
	}

	controlURL, err := s.launcher.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	s.browser = rod.New().ControlURL(controlURL).Context(ctx)
	if err := s.browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	if ep, ok := s.proxy.Get(); ok && ep.Username != "" {
		answer := s.browser.HandleAuth(ep.Username, ep.Password)
		go func() {
			if err := answer(); err != nil {
				log.Debugf("proxy auth for %s: %v", ep, err)
			}
		}()
	}

	if s.incognito, err = s.browser.Incognito(); err != nil {
		return nil, fmt.Errorf("open incognito context: %w", err)
	}

	if s.page, err = stealth.Page(s.incognito); err != nil {
		return nil, fmt.Errorf("open stealth page: %w", err)
	}

	if err := s.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: network.RandomUserAgent()}); err != nil {
		log.Warnf("set user agent: %v", err)
	}

	return s, nil
}

// ProxyServer formats ep for Chromium's --proxy-server flag, which takes no credentials.
func ProxyServer(ep proxy.Endpoint) string {
	u := ep.URL()
	return u.Scheme + "://" + u.Host
}

// report credits or charges the session's proxy, if it has one.
func (s *Session) report(ok bool) {
	ep, has := s.proxy.Get()
	if !has {
		return
	}
	if ok {
		s.opts.Proxies.ReportSuccess(ep)
	} else {
		s.opts.Proxies.ReportFailure(ep)
	}
}

// Page exposes the underlying page for callers that subscribe to events.
func (s *Session) Page() *rod.Page {
	return s.page
}

// Block stops the page from loading URLs matching any of the patterns.
func (s *Session) Block(patterns []string) error {
	return proto.NetworkSetBlockedURLs{Urls: patterns}.Call(s.page)
}

// Navigate loads target and waits for the load event, bounded by the navigation timeout.
func (s *Session) Navigate(ctx context.Context, target string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.opts.NavTimeout)
	defer cancel()

	page := s.page.Context(navCtx)
	if err := page.Navigate(target); err != nil {
		return fmt.Errorf("navigate %s: %w", target, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", target, err)
	}
	return nil
}

// WaitFor waits for selector. When it never shows up the session sleeps for the
// fallback delay instead and, if configured, saves a screenshot. It reports
// whether the selector appeared.
func (s *Session) WaitFor(ctx context.Context, selector, label string) bool {
	waitCtx, cancel := context.WithTimeout(ctx, s.opts.NavTimeout)
	defer cancel()

	if _, err := s.page.Context(waitCtx).Element(selector); err == nil {
		return true
	}

	log.Warnf("wait selector %q timed out on %s", selector, label)
	select {
	case <-ctx.Done():
		return false
	case <-time.After(s.opts.WaitFallback):
	}

	if s.opts.ScreenshotDir != "" {
		if path, err := s.screenshot(label); err != nil {
			log.Warnf("screenshot: %v", err)
		} else {
			log.Infof("saved screenshot %s", path)
		}
	}
	return false
}

func (s *Session) screenshot(label string) (string, error) {
	data, err := s.page.Screenshot(true, nil)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.opts.ScreenshotDir, ScreenshotName(label, time.Now()))
	return path, filesystem.API().WriteFile(path, data, 0644)
}

// ScreenshotName builds a filesystem-safe, time-ordered file name.
func ScreenshotName(label string, at time.Time) string {
	name := util.SanitizeFilename(label)
	if name == "" {
		name = "page"
	}
	return fmt.Sprintf("%s-%s.png", name, at.Format("20060102-150405"))
}

// Scroll scrolls the viewport steps times to trigger lazy-loaded content.
func (s *Session) Scroll(ctx context.Context, steps int) {
	for i := 0; i < steps; i++ {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.page.Eval(`() => window.scrollBy(0, window.innerHeight)`); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(400 * time.Millisecond):
		}
	}
}

// HTML returns the current DOM serialized.
func (s *Session) HTML() (string, error) {
	return s.page.HTML()
}

// Close releases the page, the incognito context, the browser and its process.
// It is safe to call on a partially opened session and more than once.
func (s *Session) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if s.page != nil {
		keep(s.page.Close())
		s.page = nil
	}
	if s.incognito != nil {
		keep(s.incognito.Close())
		s.incognito = nil
	}
	if s.browser != nil {
		keep(s.browser.Close())
		s.browser = nil
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
		s.launcher = nil
	}
	return firstErr
}
