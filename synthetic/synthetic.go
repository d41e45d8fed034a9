// Package synthetic generates placeholder records. It is only ever used to
// fill a run that fell short of its target, and every record it produces is
// tagged as synthetic.
package synthetic

import (
	"fmt"
	"strings"

	"github.com/reelscout/reelscout/content"
	"github.com/reelscout/reelscout/util"
	"github.com/samber/mo"
)

// Generator produces deterministic placeholders for one source.
type Generator struct {
	source      string
	baseURL     string
	contentType string
}

// New returns a generator for source. An empty baseURL gets a reserved .invalid host.
func New(source, baseURL, contentType string) *Generator {
	if baseURL == "" {
		baseURL = "https://" + util.Slugify(source) + ".invalid"
	}
	return &Generator{
		source:      source,
		baseURL:     strings.TrimRight(baseURL, "/"),
		contentType: contentType,
	}
}

// Generate returns n records numbered from offset+1. The same arguments always
// yield the same records.
func (g *Generator) Generate(n, offset int) []content.Record {
	if n <= 0 {
		return nil
	}

	records := make([]content.Record, 0, n)
	for i := offset + 1; i <= offset+n; i++ {
		records = append(records, g.record(i))
	}
	return records
}

func (g *Generator) record(i int) content.Record {
	label := util.Capitalize(g.contentType)
	if label == "" {
		label = "Item"
	}

	return content.Record{
		ID:          fmt.Sprintf("synthetic:%s:%d", g.source, i),
		Title:       fmt.Sprintf("%s Placeholder %s #%d", util.Capitalize(g.source), label, i),
		SourceURL:   fmt.Sprintf("%s/placeholder/%d", g.baseURL, i),
		ContentType: g.contentType,
		Rating:      mo.None[float64](),
		Year:        mo.None[int](),
		Source:      g.source,
		Provenance:  content.Synthetic,
	}
}
