package collect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/reelscout/reelscout/content"
	"github.com/reelscout/reelscout/fetch"
	"github.com/reelscout/reelscout/provider"
	"github.com/reelscout/reelscout/util"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeFetcher struct {
	mu     sync.Mutex
	calls  []string
	seen   map[string]int
	handle func(ctx context.Context, target string, n int) (string, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context, target string, _ *provider.Profile) (*fetch.Result, error) {
	f.mu.Lock()
	if f.seen == nil {
		f.seen = make(map[string]int)
	}
	f.calls = append(f.calls, target)
	n := f.seen[target]
	f.seen[target]++
	f.mu.Unlock()

	html, err := f.handle(ctx, target, n)
	if err != nil {
		return nil, err
	}
	return &fetch.Result{HTML: []byte(html), Tier: fetch.Direct, URL: target}, nil
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func listing(titles ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for _, t := range titles {
		fmt.Fprintf(&b, `<li class="item"><a href="/d/%s"><img src="/i/%s.jpg"><h3>%s</h3></a></li>`, util.Slugify(t), util.Slugify(t), t)
	}
	b.WriteString("</ul></body></html>")
	return b.String()
}

const emptyPage = `<html><body><p>the end</p></body></html>`

func profile(name string, domains ...string) *provider.Profile {
	return &provider.Profile{
		Name:       name,
		Domains:    domains,
		Pagination: "{base}/list/{page}",
		Strategies: []provider.Selectors{
			{Item: ".featured .slot"},
			{Item: "li.item", Title: "h3"},
		},
	}
}

func registry(profiles ...*provider.Profile) *provider.Registry {
	r, err := provider.NewRegistry(profiles...)
	if err != nil {
		panic(err)
	}
	return r
}

type sleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return nil
}

func titles(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("Title %d", i+1)
	}
	return out
}

func TestCollect(t *testing.T) {
	Convey("Given a collector over one source", t, func() {
		reg := registry(profile("site", "https://a.example"))
		sl := &sleeper{}
		ctx := context.Background()

		newCollector := func(f *fakeFetcher) *Collector {
			return New(reg, f, WithSleep(sl.Sleep))
		}

		Convey("It stops once the target is reached and the next page would be empty", func() {
			f := &fakeFetcher{handle: func(_ context.Context, target string, _ int) (string, error) {
				if strings.HasSuffix(target, "/list/1") {
					return listing(titles(5)...), nil
				}
				return emptyPage, nil
			}}

			run, err := newCollector(f).Collect(ctx, "site", 5, 5, 10)
			So(err, ShouldBeNil)
			So(run.Records, ShouldHaveLength, 5)
			So(run.IsMock, ShouldBeFalse)
			So(run.Padded, ShouldEqual, 0)
			So(len(f.Calls()), ShouldBeLessThanOrEqualTo, 2)
			So(run.Frozen(), ShouldBeTrue)
			So(run.Tiers, ShouldResemble, []string{"direct"})
		})

		Convey("Fully overlapping pages collapse and the shortfall is padded", func() {
			f := &fakeFetcher{handle: func(context.Context, string, int) (string, error) {
				return listing(titles(4)...), nil
			}}

			run, err := newCollector(f).Collect(ctx, "site", 10, 3, 10)
			So(err, ShouldBeNil)
			So(run.PagesFetched, ShouldEqual, 3)
			So(run.Scraped(), ShouldEqual, 4)
			So(run.Records, ShouldHaveLength, 10)
			So(run.Padded, ShouldEqual, 6)
			So(run.IsMock, ShouldBeFalse)

			for i, r := range run.Records {
				if i < 4 {
					So(r.Provenance, ShouldEqual, content.Scraped)
				} else {
					So(r.Provenance, ShouldEqual, content.Synthetic)
				}
			}
		})

		Convey("Every page blocked yields a fully synthetic mock run", func() {
			f := &fakeFetcher{handle: func(_ context.Context, target string, _ int) (string, error) {
				return "", &fetch.ExhaustedError{URL: target}
			}}

			run, err := newCollector(f).Collect(ctx, "site", 7, 5, 4)
			So(err, ShouldBeNil)
			So(run.IsMock, ShouldBeTrue)
			So(run.Records, ShouldHaveLength, 7)
			So(run.Attempts, ShouldEqual, 4)
			So(run.PagesFetched, ShouldEqual, 0)
			So(sl.waits, ShouldResemble, []time.Duration{DefaultBackoff, DefaultBackoff, DefaultBackoff})
			for _, r := range run.Records {
				So(r.Provenance, ShouldEqual, content.Synthetic)
			}

			Convey("Failed attempts never advance the page", func() {
				for _, c := range f.Calls() {
					So(c, ShouldEqual, "https://a.example/list/1")
				}
			})
		})

		Convey("A failed page is retried before the next one", func() {
			f := &fakeFetcher{handle: func(_ context.Context, target string, n int) (string, error) {
				switch {
				case strings.HasSuffix(target, "/list/1"):
					return listing("A", "B"), nil
				case strings.HasSuffix(target, "/list/2") && n == 0:
					return "", errors.New("boom")
				case strings.HasSuffix(target, "/list/2"):
					return listing("C"), nil
				}
				return emptyPage, nil
			}}

			run, err := newCollector(f).Collect(ctx, "site", 100, 5, 10)
			So(err, ShouldBeNil)
			So(f.Calls(), ShouldResemble, []string{
				"https://a.example/list/1",
				"https://a.example/list/2",
				"https://a.example/list/2",
				"https://a.example/list/3",
			})
			So(run.Attempts, ShouldEqual, 1)
			So(run.PagesFetched, ShouldEqual, 3)
			So(run.Scraped(), ShouldEqual, 3)
			So(sl.waits, ShouldHaveLength, 1)
		})

		Convey("The same page twice never doubles the unique count", func() {
			f := &fakeFetcher{handle: func(_ context.Context, target string, _ int) (string, error) {
				if strings.HasSuffix(target, "/list/3") {
					return emptyPage, nil
				}
				return listing("A", "B", "C"), nil
			}}

			run, err := newCollector(f).Collect(ctx, "site", 10, 5, 10)
			So(err, ShouldBeNil)
			So(run.Scraped(), ShouldEqual, 3)

			keys := make(map[string]bool)
			for _, r := range run.Records {
				So(keys[r.Key()], ShouldBeFalse)
				keys[r.Key()] = true
			}
		})

		Convey("Cancellation returns the partial run", func() {
			cctx, cancel := context.WithCancel(ctx)
			defer cancel()

			f := &fakeFetcher{handle: func(c context.Context, target string, _ int) (string, error) {
				if strings.HasSuffix(target, "/list/1") {
					return listing("A", "B", "C"), nil
				}
				cancel()
				return "", c.Err()
			}}

			run, err := newCollector(f).Collect(cctx, "site", 10, 5, 10)
			So(err, ShouldBeNil)
			So(run.Cancelled, ShouldBeTrue)
			So(run.Scraped(), ShouldEqual, 3)
			So(run.Attempts, ShouldEqual, 0)
			So(run.IsMock, ShouldBeFalse)
			So(run.Records, ShouldHaveLength, 10)
		})

		Convey("Configuration problems are returned before any fetch", func() {
			f := &fakeFetcher{handle: func(context.Context, string, int) (string, error) {
				return emptyPage, nil
			}}
			c := newCollector(f)

			_, err := c.Collect(ctx, "sitee", 5, 5, 5)
			var unknown *provider.UnknownSourceError
			So(errors.As(err, &unknown), ShouldBeTrue)
			So(unknown.Suggestion, ShouldEqual, "site")

			_, err = c.Collect(ctx, "site", 0, 5, 5)
			So(errors.Is(err, ErrInvalidBudget), ShouldBeTrue)
			_, err = c.Collect(ctx, "site", 5, 5, 0)
			So(errors.Is(err, ErrInvalidBudget), ShouldBeTrue)

			So(f.Calls(), ShouldBeEmpty)
		})
	})

	Convey("Alternate domains are tried in order within one page", t, func() {
		reg := registry(profile("mirrored", "https://down.example", "https://up.example"))
		f := &fakeFetcher{handle: func(_ context.Context, target string, _ int) (string, error) {
			if strings.HasPrefix(target, "https://down.example") {
				return "", &fetch.ExhaustedError{URL: target}
			}
			return listing("A", "B"), nil
		}}

		run, err := New(reg, f, WithSleep((&sleeper{}).Sleep)).Collect(context.Background(), "mirrored", 2, 5, 3)
		So(err, ShouldBeNil)
		So(run.Attempts, ShouldEqual, 0)
		So(run.Scraped(), ShouldEqual, 2)
		So(run.Records[0].SourceURL, ShouldEqual, "https://up.example/d/a")
		So(f.Calls(), ShouldResemble, []string{"https://down.example/list/1", "https://up.example/list/1"})
	})
}

func TestCollectAll(t *testing.T) {
	Convey("Given two sources", t, func() {
		reg := registry(profile("one", "https://one.example"), profile("two", "https://two.example"))
		f := &fakeFetcher{handle: func(_ context.Context, target string, _ int) (string, error) {
			if strings.HasSuffix(target, "/list/1") {
				return listing("X", "Y"), nil
			}
			return emptyPage, nil
		}}
		c := New(reg, f, WithSleep((&sleeper{}).Sleep), WithConcurrency(2))

		Convey("Runs are returned in source order", func() {
			runs, err := c.CollectAll(context.Background(), []string{"two", "one"}, 2, 3, 3)
			So(err, ShouldBeNil)
			So(runs, ShouldHaveLength, 2)
			So(runs[0].Source, ShouldEqual, "two")
			So(runs[1].Source, ShouldEqual, "one")
			So(runs[1].Scraped(), ShouldEqual, 2)
		})

		Convey("An unknown source aborts before any fetch", func() {
			_, err := c.CollectAll(context.Background(), []string{"one", "three"}, 2, 3, 3)
			So(err, ShouldNotBeNil)
			So(f.Calls(), ShouldBeEmpty)
		})
	})
}

func TestRequireRenderKey(t *testing.T) {
	Convey("RequireRenderKey", t, func() {
		So(errors.Is(RequireRenderKey(true, ""), ErrMissingCredentials), ShouldBeTrue)
		So(RequireRenderKey(true, "k"), ShouldBeNil)
		So(RequireRenderKey(false, ""), ShouldBeNil)
	})
}

func TestSleep(t *testing.T) {
	Convey("Sleep returns early on a done context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		So(Sleep(ctx, time.Hour), ShouldEqual, context.Canceled)
		So(Sleep(context.Background(), 0), ShouldBeNil)
	})
}

func TestQueryIdentifiedItems(t *testing.T) {
	Convey("Given a listing whose items differ only by query string", t, func() {
		reg := registry(profile("site", "https://a.example"))
		sl := &sleeper{}

		f := &fakeFetcher{handle: func(_ context.Context, target string, _ int) (string, error) {
			if !strings.HasSuffix(target, "/list/1") {
				return emptyPage, nil
			}
			var b strings.Builder
			b.WriteString("<html><body><ul>")
			for i := 1; i <= 5; i++ {
				fmt.Fprintf(&b, `<li class="item"><a href="/detail.php?id=%d"><img src="/i/%d.jpg"><h3>Show %d</h3></a></li>`, i, i, i)
			}
			b.WriteString("</ul></body></html>")
			return b.String(), nil
		}}

		run, err := New(reg, f, WithSleep(sl.Sleep)).Collect(context.Background(), "site", 5, 5, 10)

		Convey("Every item survives as its own scraped record", func() {
			So(err, ShouldBeNil)
			So(run.IsMock, ShouldBeFalse)
			So(run.Padded, ShouldEqual, 0)
			So(run.Scraped(), ShouldEqual, 5)
			So(run.Records, ShouldHaveLength, 5)
			So(run.Records[0].ID, ShouldEqual, "site:detail-id-1")
			So(run.Records[4].ID, ShouldEqual, "site:detail-id-5")
		})
	})
}
