package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/reelscout/reelscout/classify"
	"github.com/reelscout/reelscout/filesystem"
	"github.com/reelscout/reelscout/internal/cache"
	"github.com/reelscout/reelscout/provider"
	"github.com/reelscout/reelscout/proxy"
	. "github.com/smartystreets/goconvey/convey"
)

var (
	goodPage    = "<html><body>" + strings.Repeat(`<div class="item"><a href="/x">Show</a></div>`, 20) + "</body></html>"
	captchaPage = "<html><body>Please complete the captcha" + strings.Repeat(" ", 600) + "</body></html>"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"text/html"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// calls is a concurrency-safe log of which tier touched the network.
type calls struct {
	mu  sync.Mutex
	log []string
}

func (c *calls) add(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = append(c.log, s)
}

func (c *calls) client(name string, status int, body string) *http.Client {
	return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		c.add(name)
		return respond(status, body), nil
	})}
}

type fakeRenderer struct {
	name  string
	calls *calls
	body  string
	err   error
}

func (f *fakeRenderer) Render(ctx context.Context, target string, _ *provider.Profile) ([]byte, error) {
	f.calls.add(f.name)
	return []byte(f.body), f.err
}

func profile(requiresBrowser bool) *provider.Profile {
	return &provider.Profile{
		Name:            "test",
		Domains:         []string{"https://test.example"},
		RequiresBrowser: requiresBrowser,
		Pagination:      "{base}/?p={page}",
		Strategies:      []provider.Selectors{{Item: ".item"}},
	}
}

func pool() *proxy.Pool {
	return proxy.NewPool([]proxy.Endpoint{
		{Address: "10.0.0.1", Port: 8080},
		{Address: "10.0.0.2", Port: 8080},
	})
}

func TestEscalation(t *testing.T) {
	Convey("Given every tier but the last returns a block page", t, func() {
		c := &calls{}
		f := New(classify.New(),
			WithDirectClient(c.client("direct", 200, captchaPage)),
			WithProxyPool(pool(), func(proxy.Endpoint) *http.Client { return c.client("proxy", 403, "") }),
			WithBrowser(&fakeRenderer{name: "browser", calls: c, body: captchaPage}),
			WithRenderAPI(&fakeRenderer{name: "render", calls: c, body: goodPage}),
		)

		Convey("The tiers run strictly in order", func() {
			res, err := f.Fetch(context.Background(), "https://test.example/?p=1", profile(false))
			So(err, ShouldBeNil)
			So(res.Tier, ShouldEqual, RenderAPI)
			So(c.log, ShouldResemble, []string{"direct", "proxy", "proxy", "proxy", "browser", "render"})
			So(res.Attempts[0].Outcome, ShouldEqual, Captcha)
			So(res.Attempts[1].Outcome, ShouldEqual, Blocked)
			So(len(res.Attempts), ShouldEqual, 6)
		})

		Convey("A browser-only profile never touches the direct tier", func() {
			_, err := f.Fetch(context.Background(), "https://test.example/?p=1", profile(true))
			So(err, ShouldBeNil)
			So(c.log, ShouldNotContain, "direct")
			So(c.log[0], ShouldEqual, "proxy")
		})
	})

	Convey("Given the direct tier succeeds", t, func() {
		c := &calls{}
		f := New(nil,
			WithDirectClient(c.client("direct", 200, goodPage)),
			WithBrowser(&fakeRenderer{name: "browser", calls: c, body: goodPage}),
		)

		res, err := f.Fetch(context.Background(), "https://test.example/", profile(false))
		So(err, ShouldBeNil)
		So(res.Tier, ShouldEqual, Direct)
		So(c.log, ShouldResemble, []string{"direct"})
		So(string(res.HTML), ShouldEqual, goodPage)
	})

	Convey("Given every tier fails", t, func() {
		c := &calls{}
		var observed []Attempt
		f := New(classify.New(),
			WithDirectClient(c.client("direct", 429, "")),
			WithBrowser(&fakeRenderer{name: "browser", calls: c, err: errors.New("chrome crashed")}),
			WithObserver(func(a Attempt) { observed = append(observed, a) }),
		)

		_, err := f.Fetch(context.Background(), "https://test.example/", profile(false))

		Convey("The error is an ExhaustedError with the full trail", func() {
			So(errors.Is(err, ErrAcquisitionExhausted), ShouldBeTrue)

			var exhausted *ExhaustedError
			So(errors.As(err, &exhausted), ShouldBeTrue)
			So(len(exhausted.Attempts), ShouldEqual, 2)
			So(exhausted.Attempts[1].Outcome, ShouldEqual, NetworkError)
			So(err.Error(), ShouldContainSubstring, "direct=blocked")
			So(len(observed), ShouldEqual, 2)
		})
	})
}

func TestDirectRetries(t *testing.T) {
	Convey("Network errors are retried on the direct tier", t, func() {
		c := &calls{}
		failing := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			c.add("direct")
			return nil, errors.New("connection reset")
		})}
		f := New(nil, WithDirectClient(failing), WithAttempts(3, 0))

		_, err := f.Fetch(context.Background(), "https://test.example/", profile(false))
		So(errors.Is(err, ErrAcquisitionExhausted), ShouldBeTrue)
		So(len(c.log), ShouldEqual, 3)
	})

	Convey("A cancelled context stops the ladder", t, func() {
		c := &calls{}
		f := New(nil, WithDirectClient(c.client("direct", 200, goodPage)))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := f.Fetch(ctx, "https://test.example/", profile(false))
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
		So(c.log, ShouldBeEmpty)
	})
}

func TestProxyReporting(t *testing.T) {
	Convey("Given proxies that demand authentication", t, func() {
		p := pool()
		c := &calls{}
		f := New(nil,
			WithProxyPool(p, func(proxy.Endpoint) *http.Client { return c.client("proxy", 407, "") }),
		)

		_, err := f.Fetch(context.Background(), "https://test.example/", profile(true))
		So(errors.Is(err, ErrAcquisitionExhausted), ShouldBeTrue)

		var exhausted *ExhaustedError
		errors.As(err, &exhausted)

		Convey("Every attempt is an AuthError and every proxy was reported", func() {
			So(len(exhausted.Attempts), ShouldEqual, 3)
			var authErr *AuthError
			So(errors.As(exhausted.Attempts[0].Err, &authErr), ShouldBeTrue)

			failures := 0
			for _, s := range p.Stats() {
				failures += s.FailureCount
			}
			So(failures, ShouldEqual, 3)
		})
	})

	Convey("Given proxies that answer 200 with a captcha page", t, func() {
		p := pool()
		c := &calls{}
		f := New(nil,
			WithProxyPool(p, func(proxy.Endpoint) *http.Client { return c.client("proxy", 200, captchaPage) }),
			WithBrowser(&fakeRenderer{name: "browser", calls: c, body: goodPage}),
		)

		res, err := f.Fetch(context.Background(), "https://test.example/", profile(true))

		Convey("Each proxy is charged a failure and the ladder moves on", func() {
			So(err, ShouldBeNil)
			So(res.Tier, ShouldEqual, Browser)
			So(c.log, ShouldResemble, []string{"proxy", "proxy", "proxy", "browser"})

			So(res.Attempts[0].Outcome, ShouldEqual, Captcha)
			var blocked *BlockedError
			So(errors.As(res.Attempts[0].Err, &blocked), ShouldBeTrue)

			failures, successes := 0, 0
			for _, s := range p.Stats() {
				failures += s.FailureCount
				successes += s.SuccessCount
			}
			So(failures, ShouldEqual, 3)
			So(successes, ShouldEqual, 0)
		})
	})

	Convey("A successful proxy is credited", t, func() {
		p := pool()
		c := &calls{}
		f := New(nil, WithProxyPool(p, func(proxy.Endpoint) *http.Client { return c.client("proxy", 200, goodPage) }))

		res, err := f.Fetch(context.Background(), "https://test.example/", profile(true))
		So(err, ShouldBeNil)
		So(res.Tier, ShouldEqual, Proxy)

		successes := 0
		for _, s := range p.Stats() {
			successes += s.SuccessCount
		}
		So(successes, ShouldEqual, 1)
	})
}

func TestRedirects(t *testing.T) {
	Convey("Given a server redirecting to an ad domain", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/ad":
				http.Redirect(w, r, "https://ads.doubleclick.net/click", http.StatusFound)
			case "/hop":
				http.Redirect(w, r, "/final", http.StatusFound)
			default:
				w.Header().Set("Content-Type", "text/html")
				w.Write([]byte(goodPage))
			}
		}))
		defer server.Close()

		f := New(classify.New(classify.WithSuspiciousDomains([]string{"doubleclick"})),
			WithDirectClient(server.Client()))

		Convey("The suspicious hop is not followed", func() {
			_, err := f.Fetch(context.Background(), server.URL+"/ad", profile(false))
			var exhausted *ExhaustedError
			So(errors.As(err, &exhausted), ShouldBeTrue)
			So(exhausted.Attempts[0].Verdict, ShouldEqual, classify.RedirectSuspicious)
			So(len(exhausted.Attempts), ShouldEqual, 1)
		})

		Convey("Same-site hops are followed", func() {
			res, err := f.Fetch(context.Background(), server.URL+"/hop", profile(false))
			So(err, ShouldBeNil)
			So(res.Tier, ShouldEqual, Direct)
		})

		Convey("The redirect depth is bounded", func() {
			bounded := New(nil, WithDirectClient(server.Client()), WithMaxRedirects(0))
			_, err := bounded.Fetch(context.Background(), server.URL+"/hop", profile(false))
			So(errors.Is(err, ErrAcquisitionExhausted), ShouldBeTrue)
		})
	})
}

func TestRenderClient(t *testing.T) {
	Convey("Given a rendering service", t, func() {
		filesystem.SetMemMapFs()
		var hits int
		var query map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			query = map[string]string{
				"api_key":       r.URL.Query().Get("api_key"),
				"url":           r.URL.Query().Get("url"),
				"javascript":    r.URL.Query().Get("javascript"),
				"premium_proxy": r.URL.Query().Get("premium_proxy"),
			}
			w.Write([]byte(goodPage))
		}))
		defer server.Close()

		api, err := NewRenderClient(server.URL, "secret", server.Client(), cache.New("/rendered", time.Hour))
		So(err, ShouldBeNil)

		Convey("It asks for javascript rendering and premium proxies", func() {
			body, err := api.Render(context.Background(), "https://test.example/", nil)
			So(err, ShouldBeNil)
			So(string(body), ShouldEqual, goodPage)
			So(query, ShouldResemble, map[string]string{
				"api_key":       "secret",
				"url":           "https://test.example/",
				"javascript":    "true",
				"premium_proxy": "true",
			})
		})

		Convey("A second render is served from the cache", func() {
			_, _ = api.Render(context.Background(), "https://test.example/", nil)
			_, _ = api.Render(context.Background(), "https://test.example/", nil)
			So(hits, ShouldEqual, 1)

			api.Forget("https://test.example/")
			_, _ = api.Render(context.Background(), "https://test.example/", nil)
			So(hits, ShouldEqual, 2)
		})

		Convey("A missing key is a configuration error", func() {
			_, err := NewRenderClient(server.URL, "", nil, nil)
			So(err, ShouldEqual, ErrMissingAPIKey)
		})
	})
}

func TestNames(t *testing.T) {
	Convey("Tiers and outcomes have stable names", t, func() {
		So(Direct.String(), ShouldEqual, "direct")
		So(RenderAPI.String(), ShouldEqual, "render")
		So(Timeout.String(), ShouldEqual, "timeout")
		So(Attempt{Duration: 1500 * time.Millisecond}.DurationMs(), ShouldEqual, 1500)
	})
}
