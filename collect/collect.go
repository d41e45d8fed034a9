// Package collect drives paginated acquisition runs and applies the synthetic
// fallback policy when a source under-delivers.
package collect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reelscout/reelscout/content"
	"github.com/reelscout/reelscout/extract"
	"github.com/reelscout/reelscout/fetch"
	"github.com/reelscout/reelscout/log"
	"github.com/reelscout/reelscout/normalize"
	"github.com/reelscout/reelscout/provider"
	"github.com/reelscout/reelscout/synthetic"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrInvalidBudget is returned for a non-positive target, page or attempt budget.
	ErrInvalidBudget = errors.New("invalid run budget")
	// ErrMissingCredentials is returned when an enabled tier has no credentials.
	ErrMissingCredentials = errors.New("missing credentials")
)

// DefaultBackoff is the pause after a failed page attempt.
const DefaultBackoff = 2 * time.Second

// Fetcher acquires the HTML of one page.
type Fetcher interface {
	Fetch(ctx context.Context, target string, p *provider.Profile) (*fetch.Result, error)
}

// Extractor turns page HTML into raw candidates.
type Extractor interface {
	Extract(html []byte, p *provider.Profile, limit int) ([]content.Candidate, string, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Collector runs collections against the sources of a registry.
type Collector struct {
	registry    *provider.Registry
	fetcher     Fetcher
	extractor   Extractor
	backoff     time.Duration
	sleep       SleepFunc
	concurrency int
}

type Option func(*Collector)

func WithExtractor(e Extractor) Option {
	return func(c *Collector) {
		c.extractor = e
	}
}

func WithBackoff(d time.Duration) Option {
	return func(c *Collector) {
		if d >= 0 {
			c.backoff = d
		}
	}
}

// WithSleep replaces the backoff sleep, mostly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(c *Collector) {
		c.sleep = fn
	}
}

// WithConcurrency bounds how many sources CollectAll runs at once.
func WithConcurrency(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// New returns a collector that resolves sources in registry and pages through
// fetcher. Sources run one at a time unless WithConcurrency says otherwise.
func New(registry *provider.Registry, fetcher Fetcher, opts ...Option) *Collector {
	c := &Collector{
		registry:    registry,
		fetcher:     fetcher,
		extractor:   extract.NewCascade(),
		backoff:     DefaultBackoff,
		sleep:       Sleep,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sleep waits for d unless ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RequireRenderKey fails when the rendering tier is enabled without an API key.
func RequireRenderKey(enabled bool, key string) error {
	if enabled && key == "" {
		return fmt.Errorf("%w: rendering API is enabled but no API key is set", ErrMissingCredentials)
	}
	return nil
}

func validateBudget(target, pages, attempts int) error {
	switch {
	case target <= 0:
		return fmt.Errorf("%w: target %d", ErrInvalidBudget, target)
	case pages <= 0:
		return fmt.Errorf("%w: max pages %d", ErrInvalidBudget, pages)
	case attempts <= 0:
		return fmt.Errorf("%w: max attempts %d", ErrInvalidBudget, attempts)
	}
	return nil
}

// Collect runs one source until target unique records are gathered, the page
// budget is spent, the attempt budget is spent or a page comes back empty.
//
// Only configuration problems are returned as errors. Fetch failures are
// absorbed, and a cancelled ctx yields the partial run.
func (c *Collector) Collect(ctx context.Context, source string, target, pages, attempts int) (*content.Run, error) {
	if err := validateBudget(target, pages, attempts); err != nil {
		return nil, err
	}

	profile, err := c.registry.Get(source)
	if err != nil {
		return nil, err
	}

	run := content.NewRun(profile.Name, target, pages, attempts)
	logger := log.WithFields(logrus.Fields{"source": profile.Name, "run": run.ID})

	page := 1
	for run.Unique() < target && page <= pages && run.Attempts < attempts {
		if ctx.Err() != nil {
			run.Cancelled = true
			break
		}

		records, raw, err := c.page(ctx, profile, page, target, run)
		if err != nil {
			if ctx.Err() != nil {
				run.Cancelled = true
				break
			}

			run.Attempts++
			logger.WithField("page", page).WithField("attempt", run.Attempts).Warnf("page failed: %v", err)

			if run.Attempts < attempts {
				if err := c.sleep(ctx, c.backoff); err != nil {
					run.Cancelled = true
					break
				}
			}
			continue
		}

		run.PagesFetched++
		page++

		if raw == 0 {
			logger.WithField("page", page-1).Info("no items, source exhausted")
			break
		}

		for _, rec := range records {
			if run.Unique() >= target {
				break
			}
			run.Add(rec)
		}
	}

	c.finish(run, profile)
	logger.WithFields(logrus.Fields{
		"records":   len(run.Records),
		"scraped":   run.Scraped(),
		"padded":    run.Padded,
		"mock":      run.IsMock,
		"pages":     run.PagesFetched,
		"attempts":  run.Attempts,
		"cancelled": run.Cancelled,
	}).Info("run finished")

	return run, nil
}

// page fetches one page, trying each domain of the profile in order, and
// returns its normalized records with the raw candidate count.
func (c *Collector) page(ctx context.Context, p *provider.Profile, page, limit int, run *content.Run) ([]content.Record, int, error) {
	var errs []error

	for _, target := range p.PageURLs(page) {
		result, err := c.fetcher.Fetch(ctx, target, p)
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}
			errs = append(errs, err)
			continue
		}
		run.Tiers = append(run.Tiers, result.Tier.String())

		candidates, strategy, err := c.extractor.Extract(result.HTML, p, limit)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		norm, err := normalize.New(result.URL, p.Name, p.ContentType)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		records := make([]content.Record, 0, len(candidates))
		for _, cand := range candidates {
			if rec := norm.Normalize(cand); rec != nil {
				records = append(records, *rec)
			}
		}

		log.Debugf("%s page %d: %d candidates via %s, %d records", p.Name, page, len(candidates), strategy, len(records))
		return records, len(candidates), nil
	}

	return nil, 0, errors.Join(errs...)
}

// finish replaces an empty run with placeholders, or pads a short one, then freezes it.
func (c *Collector) finish(run *content.Run, p *provider.Profile) {
	gen := synthetic.New(p.Name, p.BaseURL(), p.ContentType)

	switch unique := run.Unique(); {
	case unique == 0:
		run.Replace(gen.Generate(run.TargetCount, 0))
		run.IsMock = true
		run.Padded = len(run.Records)
	case unique < run.TargetCount:
		for _, rec := range gen.Generate(run.TargetCount-unique, 0) {
			if run.Add(rec) {
				run.Padded++
			}
		}
	}

	run.Freeze()
}

// CollectAll runs every source concurrently, bounded by the configured
// concurrency. Every source is resolved before any fetch starts.
func (c *Collector) CollectAll(ctx context.Context, sources []string, target, pages, attempts int) ([]*content.Run, error) {
	if err := validateBudget(target, pages, attempts); err != nil {
		return nil, err
	}

	var errs []error
	for _, s := range sources {
		if _, err := c.registry.Get(s); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	runs := make([]*content.Run, len(sources))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, s := range sources {
		g.Go(func() error {
			run, err := c.Collect(ctx, s, target, pages, attempts)
			if err != nil {
				return err
			}
			runs[i] = run
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return runs, nil
}
