package cmd

import (
	"net/http"
	"time"

	"github.com/reelscout/reelscout/auth"
	"github.com/reelscout/reelscout/classify"
	"github.com/reelscout/reelscout/collect"
	"github.com/reelscout/reelscout/fetch"
	"github.com/reelscout/reelscout/headless"
	"github.com/reelscout/reelscout/internal/cache"
	"github.com/reelscout/reelscout/key"
	"github.com/reelscout/reelscout/network"
	"github.com/reelscout/reelscout/provider"
	"github.com/reelscout/reelscout/proxy"
	"github.com/reelscout/reelscout/where"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

func seconds(k string) time.Duration {
	return time.Duration(viper.GetInt(k)) * time.Second
}

func httpClient() *http.Client {
	timeout := seconds(key.FetchTimeout)
	if viper.GetBool(key.FetchTLSFingerprint) {
		return network.NewClient(network.NewChromeTransport(timeout), timeout)
	}
	return network.NewClient(network.NewTransport(), timeout)
}

func newPool() (*proxy.Pool, error) {
	endpoints, err := proxy.ParseEndpoints(viper.GetStringSlice(key.ProxyEndpoints))
	if err != nil {
		return nil, err
	}
	return proxy.NewPool(endpoints), nil
}

// newBrowser returns nil when the browser tier is disabled. Sessions draw
// their proxy from pool when it has endpoints.
func newBrowser(pool *proxy.Pool) *headless.Browser {
	if !viper.GetBool(key.BrowserEnabled) {
		return nil
	}

	opts := headless.Options{
		Bin:          viper.GetString(key.BrowserBin),
		Headless:     viper.GetBool(key.BrowserHeadless),
		NavTimeout:   seconds(key.BrowserNavTimeout),
		WaitFallback: time.Duration(viper.GetInt(key.BrowserWaitFallback)) * time.Millisecond,
		ScrollSteps:  viper.GetInt(key.BrowserScrollSteps),
		Proxies:      pool,
	}
	if viper.GetBool(key.BrowserScreenshots) {
		opts.ScreenshotDir = where.Screenshots()
	}
	return headless.New(opts)
}

// newRenderAPI returns nil when the rendering tier is disabled and fails when
// it is enabled without a key.
func newRenderAPI() (*fetch.RenderClient, error) {
	enabled := viper.GetBool(key.RenderEnabled)
	if !enabled {
		return nil, nil
	}

	apiKey, err := auth.RenderKey()
	if err != nil {
		return nil, err
	}
	if err := collect.RequireRenderKey(enabled, apiKey); err != nil {
		return nil, err
	}

	store := cache.New(where.Rendered(), time.Duration(viper.GetInt(key.RenderCacheTTL))*time.Minute)
	return fetch.NewRenderClient(viper.GetString(key.RenderEndpoint), apiKey, network.NewClient(network.NewTransport(), 2*seconds(key.FetchTimeout)), store)
}

func newClassifier() *classify.Classifier {
	return classify.New(
		classify.WithMinBody(viper.GetInt(key.ClassifyMinBodyBytes)),
		classify.WithScanLength(viper.GetInt(key.ClassifyScanBytes)),
		classify.WithSuspiciousDomains(viper.GetStringSlice(key.ClassifySuspiciousDomains)),
	)
}

func newFetcher() (*fetch.Fetcher, error) {
	pool, err := newPool()
	if err != nil {
		return nil, err
	}

	render, err := newRenderAPI()
	if err != nil {
		return nil, err
	}

	timeout := seconds(key.FetchTimeout)
	opts := []fetch.Option{
		fetch.WithDirectClient(httpClient()),
		fetch.WithAttempts(viper.GetInt(key.FetchDirectAttempts), viper.GetInt(key.FetchProxyAttempts)),
		fetch.WithMaxRedirects(viper.GetInt(key.FetchMaxRedirects)),
	}

	if pool.Len() > 0 {
		opts = append(opts, fetch.WithProxyPool(pool, func(ep proxy.Endpoint) *http.Client {
			return network.NewProxyClient(ep.URL(), timeout)
		}))
	}
	if browser := newBrowser(pool); browser != nil {
		opts = append(opts, fetch.WithBrowser(browser))
	}
	if render != nil {
		opts = append(opts, fetch.WithRenderAPI(render))
	}
	if r := viper.GetFloat64(key.FetchRateLimit); r > 0 {
		opts = append(opts, fetch.WithRateLimit(rate.NewLimiter(rate.Limit(r), 1)))
	}

	return fetch.New(newClassifier(), opts...), nil
}

func newCollector(registry *provider.Registry) (*collect.Collector, error) {
	fetcher, err := newFetcher()
	if err != nil {
		return nil, err
	}

	return collect.New(
		registry,
		fetcher,
		collect.WithBackoff(seconds(key.CollectBackoff)),
		collect.WithConcurrency(viper.GetInt(key.CollectConcurrency)),
	), nil
}
