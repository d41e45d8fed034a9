package stream

import (
	"context"
	"sync"

	"github.com/go-rod/rod/lib/proto"
	"github.com/reelscout/reelscout/headless"
	"github.com/reelscout/reelscout/log"
)

// CaptureBlockList blocks static assets but lets media through.
var CaptureBlockList = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg", "*.ico",
	"*.woff", "*.woff2", "*.ttf", "*.css",
	"*google-analytics*", "*googletagmanager*", "*doubleclick*", "*popads*", "*adservice*",
}

// rodDriver records media traffic of a headless session.
type rodDriver struct {
	session *headless.Session
	stop    context.CancelFunc

	mu       sync.Mutex
	observed []Candidate
	seen     map[string]bool
}

// Rod opens drivers backed by b. Each driver owns its own browser process.
func Rod(b *headless.Browser) DriverFactory {
	return func(ctx context.Context) (Driver, error) {
		session, err := b.Open(ctx)
		if err != nil {
			return nil, err
		}

		listenCtx, stop := context.WithCancel(ctx)
		d := &rodDriver{session: session, stop: stop, seen: make(map[string]bool)}

		if err := session.Block(CaptureBlockList); err != nil {
			log.Warnf("set blocked urls: %v", err)
		}
		if err := (proto.NetworkEnable{}).Call(session.Page()); err != nil {
			_ = d.Close()
			return nil, err
		}

		wait := session.Page().Context(listenCtx).EachEvent(
			func(e *proto.NetworkRequestWillBeSent) {
				d.record(Candidate{URL: e.Request.URL})
			},
			func(e *proto.NetworkResponseReceived) {
				d.record(Candidate{URL: e.Response.URL, ContentType: e.Response.MIMEType})
			},
		)
		go wait()

		return d, nil
	}
}

func (d *rodDriver) record(c Candidate) {
	if !IsMedia(c.URL, c.ContentType) {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.seen[c.URL] {
		// the response carries the content type the request lacked
		if c.ContentType != "" {
			for i := range d.observed {
				if d.observed[i].URL == c.URL && d.observed[i].ContentType == "" {
					d.observed[i].ContentType = c.ContentType
				}
			}
		}
		return
	}
	d.seen[c.URL] = true
	d.observed = append(d.observed, c)
}

func (d *rodDriver) Navigate(ctx context.Context, target string) error {
	return d.session.Navigate(ctx, target)
}

func (d *rodDriver) Observed() []Candidate {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Candidate(nil), d.observed...)
}

func (d *rodDriver) HTML() (string, error) {
	return d.session.HTML()
}

func (d *rodDriver) Close() error {
	d.stop()
	return d.session.Close()
}
