// Package history keeps short summaries of past collection runs.
package history

import (
	"time"

	"github.com/metafates/gache"
	"github.com/reelscout/reelscout/content"
	"github.com/reelscout/reelscout/filesystem"
	"github.com/reelscout/reelscout/where"
	"github.com/samber/lo"
)

// MaxEntries is how many summaries are retained, newest last.
const MaxEntries = 200

var cacher = gache.New[[]*Summary](
	&gache.Options{
		Path:       where.History(),
		FileSystem: &filesystem.GacheFs{},
	},
)

// Summary is the persisted digest of one run.
type Summary struct {
	RunID     string         `json:"runId"`
	Source    string         `json:"source"`
	Target    int            `json:"target"`
	Records   int            `json:"records"`
	Scraped   int            `json:"scraped"`
	Padded    int            `json:"padded"`
	IsMock    bool           `json:"isMock"`
	Cancelled bool           `json:"cancelled"`
	Pages     int            `json:"pages"`
	Attempts  int            `json:"attempts"`
	Tiers     map[string]int `json:"tiers,omitempty"`
	StartedAt time.Time      `json:"startedAt"`
	Duration  time.Duration  `json:"duration"`
}

// Summarize digests a run.
func Summarize(run *content.Run) *Summary {
	return &Summary{
		RunID:     run.ID,
		Source:    run.Source,
		Target:    run.TargetCount,
		Records:   len(run.Records),
		Scraped:   run.Scraped(),
		Padded:    run.Padded,
		IsMock:    run.IsMock,
		Cancelled: run.Cancelled,
		Pages:     run.PagesFetched,
		Attempts:  run.Attempts,
		Tiers:     lo.CountValues(run.Tiers),
		StartedAt: run.StartedAt,
		Duration:  run.Duration(),
	}
}

// Get returns the stored summaries, oldest first.
func Get() ([]*Summary, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return []*Summary{}, nil
	}
	return cached, nil
}

// Save appends the summaries of runs and drops the oldest beyond MaxEntries.
func Save(runs ...*content.Run) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	for _, run := range runs {
		if run != nil {
			saved = append(saved, Summarize(run))
		}
	}
	if len(saved) > MaxEntries {
		saved = saved[len(saved)-MaxEntries:]
	}

	return cacher.Set(saved)
}

// Of returns the summaries of one source, oldest first.
func Of(source string) ([]*Summary, error) {
	saved, err := Get()
	if err != nil {
		return nil, err
	}
	return lo.Filter(saved, func(s *Summary, _ int) bool {
		return s.Source == source
	}), nil
}

// Clear forgets every summary.
func Clear() error {
	return cacher.Set([]*Summary{})
}
