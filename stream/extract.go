// Package stream captures playable media URLs from episode pages and keeps
// the resulting references.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/reelscout/reelscout/content"
	"github.com/reelscout/reelscout/log"
	"github.com/reelscout/reelscout/provider"
	"github.com/reelscout/reelscout/util"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
)

// ErrNoStreamFound is returned when neither the network nor the DOM exposed a stream.
var ErrNoStreamFound = errors.New("no stream found")

const (
	DefaultExpiry         = 24 * time.Hour
	DefaultReferrerPolicy = "strict-origin-when-cross-origin"
	DefaultMaxFrames      = 8
)

// Driver is a browser page the extractor steers.
type Driver interface {
	Navigate(ctx context.Context, target string) error
	// Observed returns the media responses captured since the driver opened.
	Observed() []Candidate
	HTML() (string, error)
	Close() error
}

// DriverFactory opens a fresh driver. The extractor owns and closes it.
type DriverFactory func(ctx context.Context) (Driver, error)

// State is a step of the extraction.
type State int

const (
	Navigate State = iota
	Iframes
	VideoTags
	SelectBest
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Navigate:
		return "navigate"
	case Iframes:
		return "iframes"
	case VideoTags:
		return "video_tags"
	case SelectBest:
		return "select"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Extractor walks a page, its iframes and its video tags looking for a stream.
type Extractor struct {
	open      DriverFactory
	capture   time.Duration
	poll      time.Duration
	maxFrames int
	expiry    time.Duration
	now       func() time.Time
}

type Option func(*Extractor)

// WithCapture sets how long to listen for media responses after each navigation.
func WithCapture(d time.Duration) Option {
	return func(e *Extractor) {
		if d >= 0 {
			e.capture = d
		}
	}
}

func WithMaxFrames(n int) Option {
	return func(e *Extractor) {
		if n >= 0 {
			e.maxFrames = n
		}
	}
}

// WithDefaultExpiry applies to sources that do not set their own expiry.
func WithDefaultExpiry(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.expiry = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

// NewExtractor returns an extractor that opens a driver per Extract call.
func NewExtractor(open DriverFactory, opts ...Option) *Extractor {
	e := &Extractor{
		open:      open,
		capture:   8 * time.Second,
		poll:      250 * time.Millisecond,
		maxFrames: DefaultMaxFrames,
		expiry:    DefaultExpiry,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// session carries the state of one extraction.
type session struct {
	driver  Driver
	page    string
	frames  util.Queue[string]
	visited map[string]bool
	videos  []Candidate
	found   []Candidate
	logger  *logrus.Entry
}

// Extract returns the best stream reachable from pageURL. The driver is closed
// on every path.
func (e *Extractor) Extract(ctx context.Context, p *provider.Profile, pageURL string) (ref *content.Stream, err error) {
	driver, err := e.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser: %w", err)
	}
	defer func() {
		if closeErr := driver.Close(); closeErr != nil {
			log.Warnf("close stream driver: %v", closeErr)
		}
	}()

	s := &session{
		driver:  driver,
		page:    pageURL,
		visited: map[string]bool{pageURL: true},
		logger:  log.WithFields(logrus.Fields{"url": pageURL}),
	}

	state := Navigate
	for state != Done && state != Failed {
		s.logger.WithField("state", state.String()).Debug("stream extraction")

		switch state {
		case Navigate:
			if err := driver.Navigate(ctx, pageURL); err != nil {
				return nil, err
			}
			s.inspect(pageURL)
			if e.await(ctx, s) {
				state = SelectBest
			} else {
				state = Iframes
			}

		case Iframes:
			state = VideoTags
			for s.frames.Len() > 0 && len(s.visited) <= e.maxFrames {
				frame, _ := s.frames.Pop()
				if s.visited[frame] {
					continue
				}
				s.visited[frame] = true

				if err := driver.Navigate(ctx, frame); err != nil {
					if ctx.Err() != nil {
						return nil, ctx.Err()
					}
					s.logger.WithField("iframe", frame).Warnf("iframe navigation failed: %v", err)
					continue
				}
				s.inspect(frame)
				if e.await(ctx, s) {
					state = SelectBest
					break
				}
			}

		case VideoTags:
			s.found = lo.UniqBy(s.videos, func(c Candidate) string { return c.URL })
			if len(s.found) > 0 {
				state = SelectBest
			} else {
				state = Failed
			}

		case SelectBest:
			best, ok := Select(s.found)
			if !ok {
				state = Failed
				continue
			}
			ref = e.reference(p, pageURL, best)
			state = Done
		}
	}

	if ref == nil {
		return nil, ErrNoStreamFound
	}
	s.logger.WithField("stream", ref.URL).Info("stream selected")
	return ref, nil
}

// await polls the driver for media responses for up to the capture window and
// reports whether any arrived.
func (e *Extractor) await(ctx context.Context, s *session) bool {
	deadline := e.now().Add(e.capture)
	for {
		s.found = lo.Filter(s.driver.Observed(), func(c Candidate, _ int) bool {
			return IsMedia(c.URL, c.ContentType)
		})
		if len(s.found) > 0 {
			return true
		}
		if !e.now().Before(deadline) || ctx.Err() != nil {
			return false
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(e.poll):
		}
	}
}

// inspect queues the iframes and records the video sources of the current document.
func (s *session) inspect(base string) {
	html, err := s.driver.HTML()
	if err != nil {
		s.logger.Warnf("read document: %v", err)
		return
	}

	frames, videos, err := Scan(html, base)
	if err != nil {
		s.logger.Warnf("scan document: %v", err)
		return
	}

	s.frames.Push(frames...)
	for _, v := range videos {
		s.videos = append(s.videos, Candidate{URL: v})
	}
}

// Scan lists the iframe sources and the video sources of a document, resolved
// against base. Blob and data URLs are skipped.
func Scan(html, base string) (frames, videos []string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, err
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, nil, err
	}

	resolve := func(raw string) string {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "blob:") || strings.HasPrefix(raw, "data:") || strings.HasPrefix(raw, "about:") {
			return ""
		}
		ref, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		return baseURL.ResolveReference(ref).String()
	}

	doc.Find("iframe").Each(func(_ int, s *goquery.Selection) {
		src := s.AttrOr("src", "")
		if src == "" {
			src = s.AttrOr("data-src", "")
		}
		if u := resolve(src); u != "" {
			frames = append(frames, u)
		}
	})

	doc.Find("video, video source").Each(func(_ int, s *goquery.Selection) {
		if u := resolve(s.AttrOr("src", "")); u != "" {
			videos = append(videos, u)
		}
	})

	return lo.Uniq(frames), lo.Uniq(videos), nil
}

func (e *Extractor) reference(p *provider.Profile, pageURL string, c Candidate) *content.Stream {
	now := e.now()

	expiry := e.expiry
	policy := DefaultReferrerPolicy
	referer := ""
	if p != nil {
		if p.Stream.ExpiryHours > 0 {
			expiry = time.Duration(p.Stream.ExpiryHours) * time.Hour
		}
		if p.Stream.ReferrerPolicy != "" {
			policy = p.Stream.ReferrerPolicy
		}
		referer = p.Stream.Referer
	}
	if referer == "" {
		if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
			referer = u.Scheme + "://" + u.Host + "/"
		}
	}

	quality := mo.None[string]()
	if label := c.Label(); label != "" {
		quality = mo.Some(label)
	}

	contentType := c.ContentType
	if contentType == "" {
		switch {
		case c.adaptive():
			contentType = "application/vnd.apple.mpegurl"
		case c.progressive():
			contentType = "video/mp4"
		}
	}

	return &content.Stream{
		ID:             uuid.NewString(),
		URL:            c.URL,
		Quality:        quality,
		ContentType:    contentType,
		ExpiresAt:      now.Add(expiry),
		ReferrerPolicy: policy,
		Referer:        referer,
		CreatedAt:      now,
	}
}
