package content

import (
	"time"

	"github.com/google/uuid"
)

// Run is the outcome of one pagination run against one source.
//
// Records is append-only while the run is open. Freeze closes it and every
// later Add is rejected.
type Run struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	TargetCount  int       `json:"targetCount"`
	MaxPages     int       `json:"maxPages"`
	MaxAttempts  int       `json:"maxAttempts"`
	Records      []Record  `json:"records"`
	IsMock       bool      `json:"isMock"`
	Padded       int       `json:"padded"`
	PagesFetched int       `json:"pagesFetched"`
	Attempts     int       `json:"attempts"`
	Cancelled    bool      `json:"cancelled"`
	Tiers        []string  `json:"tiers,omitempty"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`

	keys   map[string]struct{}
	titles map[string]struct{}
	frozen bool
}

// NewRun opens a run for the given source and budgets.
func NewRun(source string, targetCount, maxPages, maxAttempts int) *Run {
	return &Run{
		ID:          uuid.NewString(),
		Source:      source,
		TargetCount: targetCount,
		MaxPages:    maxPages,
		MaxAttempts: maxAttempts,
		Records:     make([]Record, 0, targetCount),
		StartedAt:   time.Now(),
		keys:        make(map[string]struct{}),
		titles:      make(map[string]struct{}),
	}
}

// Add appends the record unless its dedup key or its title was already seen.
// It reports whether the record was appended.
func (r *Run) Add(record Record) bool {
	if r.frozen {
		return false
	}

	k := record.Key()
	if _, seen := r.keys[k]; seen {
		return false
	}
	if _, seen := r.titles[record.Title]; seen {
		return false
	}

	r.keys[k] = struct{}{}
	r.titles[record.Title] = struct{}{}
	r.Records = append(r.Records, record)
	return true
}

// Unique returns the number of distinct records in the run.
func (r *Run) Unique() int {
	return len(r.keys)
}

// Scraped counts the records that came from a real fetch.
func (r *Run) Scraped() int {
	var n int
	for _, rec := range r.Records {
		if rec.Provenance == Scraped {
			n++
		}
	}
	return n
}

// HasTitle reports whether a record with the given title is present.
func (r *Run) HasTitle(title string) bool {
	_, ok := r.titles[title]
	return ok
}

// Replace discards every record and starts over with the given ones.
// It is used when a run with no real records is swapped for placeholders.
func (r *Run) Replace(records []Record) {
	r.Records = make([]Record, 0, len(records))
	r.keys = make(map[string]struct{})
	r.titles = make(map[string]struct{})
	for _, rec := range records {
		r.Add(rec)
	}
}

// Freeze stamps the finish time and closes the run for writing.
func (r *Run) Freeze() {
	if r.frozen {
		return
	}
	r.FinishedAt = time.Now()
	r.frozen = true
}

func (r *Run) Frozen() bool {
	return r.frozen
}

// Duration is the wall time between opening and freezing the run.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
