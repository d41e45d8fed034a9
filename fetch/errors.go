package fetch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reelscout/reelscout/classify"
)

// ErrAcquisitionExhausted matches every ExhaustedError via errors.Is.
var ErrAcquisitionExhausted = errors.New("acquisition exhausted")

// ExhaustedError is returned when every applicable tier failed for a URL.
type ExhaustedError struct {
	URL      string
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	tiers := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		tiers = append(tiers, a.Tier.String()+"="+a.Outcome.String())
	}
	return fmt.Sprintf("%s: %s [%s]", ErrAcquisitionExhausted, e.URL, strings.Join(tiers, " "))
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAcquisitionExhausted
}

// Unwrap exposes the error of the last attempt.
func (e *ExhaustedError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// BlockedError reports a response classified as a block page.
type BlockedError struct {
	Tier    Tier
	Verdict classify.Verdict
	Reason  string
}

func (e *BlockedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s tier: %s (%s)", e.Tier, e.Verdict, e.Reason)
	}
	return fmt.Sprintf("%s tier: %s", e.Tier, e.Verdict)
}

// AuthError reports a proxy rejecting our credentials with 407.
type AuthError struct {
	Proxy string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("proxy %s rejected credentials", e.Proxy)
}

// StatusError reports an unexpected HTTP status from a tier.
type StatusError struct {
	Tier   Tier
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s tier: unexpected status %d", e.Tier, e.Status)
}
