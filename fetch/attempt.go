// Package fetch implements the escalating acquisition ladder: direct HTTP,
// rotating proxies, a headless browser and a paid rendering API.
package fetch

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/reelscout/reelscout/classify"
	"github.com/reelscout/reelscout/log"
	"github.com/sirupsen/logrus"
)

// Tier is one rung of the ladder, in escalation order.
type Tier int

const (
	Direct Tier = iota
	Proxy
	Browser
	RenderAPI
)

func (t Tier) String() string {
	switch t {
	case Direct:
		return "direct"
	case Proxy:
		return "proxy"
	case Browser:
		return "browser"
	case RenderAPI:
		return "render"
	default:
		return "unknown"
	}
}

// Outcome summarizes how one attempt ended.
type Outcome int

const (
	Success Outcome = iota
	Blocked
	Captcha
	NetworkError
	Timeout
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Blocked:
		return "blocked"
	case Captcha:
		return "captcha"
	case NetworkError:
		return "network_error"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// retryable outcomes stay on the current tier while its budget lasts.
func (o Outcome) retryable() bool {
	return o == NetworkError || o == Timeout
}

// Attempt is the record of a single try at a single tier.
type Attempt struct {
	Tier     Tier
	URL      string
	Outcome  Outcome
	Duration time.Duration
	Status   int
	Verdict  classify.Verdict
	Proxy    string
	Err      error
}

func (a Attempt) DurationMs() int64 {
	return a.Duration.Milliseconds()
}

func (a Attempt) log() {
	entry := log.WithFields(logrus.Fields{
		"tier":        a.Tier.String(),
		"url":         a.URL,
		"outcome":     a.Outcome.String(),
		"duration_ms": a.DurationMs(),
		"status":      a.Status,
	})
	if a.Proxy != "" {
		entry = entry.WithField("proxy", a.Proxy)
	}

	if a.Outcome == Success {
		entry.Info("fetch attempt")
		return
	}
	entry.WithError(a.Err).Warn("fetch attempt")
}

// outcomeOf maps a classifier verdict onto an attempt outcome.
func outcomeOf(v classify.Verdict, reason string) Outcome {
	switch v {
	case classify.OK:
		return Success
	case classify.NetworkError:
		return NetworkError
	case classify.Blocked:
		if reason == classify.ReasonCaptcha {
			return Captcha
		}
		return Blocked
	default:
		return Blocked
	}
}

// outcomeOfErr maps a transport error onto an attempt outcome.
func outcomeOfErr(err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout
	}
	return NetworkError
}
