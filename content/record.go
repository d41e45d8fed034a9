// Package content defines the records produced by a collection run and the
// candidates they are normalized from.
package content

import (
	"fmt"

	"github.com/samber/mo"
)

// Provenance tells downstream consumers whether a record was scraped or generated.
type Provenance string

const (
	Scraped   Provenance = "scraped"
	Synthetic Provenance = "synthetic"
)

// Candidate is a raw item as found in the DOM, before any cleanup.
type Candidate struct {
	Title      string            `json:"title"`
	LinkRaw    string            `json:"linkRaw"`
	ImageRaw   string            `json:"imageRaw"`
	RatingText mo.Option[string] `json:"ratingText"`
	YearText   string            `json:"yearText,omitempty"`
	// Text is the whole visible text of the item node, used as a last source for the year.
	Text     string `json:"-"`
	Source   string `json:"source"`
	Strategy string `json:"strategy"`
}

// Record is the canonical, normalized output of the pipeline.
type Record struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	SourceURL   string             `json:"sourceUrl"`
	Poster      string             `json:"poster"`
	ContentType string             `json:"contentType"`
	Rating      mo.Option[float64] `json:"rating"`
	Year        mo.Option[int]     `json:"year"`
	Source      string             `json:"source"`
	Provenance  Provenance         `json:"provenance"`
}

// Valid reports whether the record satisfies the minimum field requirements.
func (r *Record) Valid() bool {
	return r.Title != "" && r.SourceURL != ""
}

// Key returns the dedup key: the id, else the source URL, else the title.
func (r *Record) Key() string {
	switch {
	case r.ID != "":
		return "id:" + r.ID
	case r.SourceURL != "":
		return "url:" + r.SourceURL
	default:
		return "title:" + r.Title
	}
}

func (r *Record) String() string {
	return fmt.Sprintf("%s (%s)", r.Title, r.SourceURL)
}
