package content

import (
	"time"

	"github.com/samber/mo"
)

// Stream is a time-bounded pointer to a playable media URL.
// It is never mutated after creation; re-extraction produces a new one.
type Stream struct {
	ID             string            `json:"id"`
	URL            string            `json:"streamingUrl"`
	Quality        mo.Option[string] `json:"quality"`
	ContentType    string            `json:"contentTypeHeader"`
	ExpiresAt      time.Time         `json:"expiresAt"`
	ReferrerPolicy string            `json:"referrerPolicy"`
	Referer        string            `json:"referer,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// Expired reports whether the stream is past its expiry at t.
func (s *Stream) Expired(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}
