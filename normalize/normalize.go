// Package normalize converts raw candidates into canonical content records.
package normalize

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/reelscout/reelscout/content"
	"github.com/reelscout/reelscout/util"
	"github.com/samber/mo"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	number     = regexp.MustCompile(`\d+(\.\d+)?`)
	year       = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// Normalizer resolves candidates of one source against the page origin.
type Normalizer struct {
	origin      *url.URL
	source      string
	contentType string
}

// New returns a normalizer for baseURL. Only the scheme and host of baseURL are used.
func New(baseURL, source, contentType string) (*Normalizer, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q is not absolute", baseURL)
	}

	return &Normalizer{
		origin:      &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"},
		source:      source,
		contentType: contentType,
	}, nil
}

// Normalize returns nil when the candidate has no title or no resolvable link.
func (n *Normalizer) Normalize(c content.Candidate) *content.Record {
	title := Whitespace(c.Title)
	link := n.Link(c.LinkRaw)
	if title == "" || link == "" {
		return nil
	}

	source := c.Source
	if source == "" {
		source = n.source
	}

	return &content.Record{
		ID:          n.id(source, link, title),
		Title:       title,
		SourceURL:   link,
		Poster:      n.Image(c.ImageRaw),
		ContentType: n.contentType,
		Rating:      Rating(c.RatingText.OrEmpty()),
		Year:        Year(c.YearText, c.Text),
		Source:      source,
		Provenance:  content.Scraped,
	}
}

// Whitespace collapses every run of whitespace, newlines included, into one space.
func Whitespace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// Link resolves a relative link against the origin. Absolute links are returned unchanged.
func (n *Normalizer) Link(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "#" || strings.HasPrefix(strings.ToLower(raw), "javascript:") {
		return ""
	}
	if isAbsolute(raw) {
		return raw
	}
	if strings.HasPrefix(raw, "//") {
		return n.origin.Scheme + ":" + raw
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return n.origin.ResolveReference(ref).String()
}

// Image fixes protocol-relative and relative image URLs.
func (n *Normalizer) Image(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "", isAbsolute(raw):
		return raw
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "/"):
		return strings.TrimSuffix(n.origin.String(), "/") + raw
	default:
		return "https://" + raw
	}
}

// Rating parses the first number of text.
func Rating(text string) mo.Option[float64] {
	m := number.FindString(text)
	if m == "" {
		return mo.None[float64]()
	}

	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return mo.None[float64]()
	}
	return mo.Some(v)
}

// Year returns the first plausible year found in texts, checked in order.
func Year(texts ...string) mo.Option[int] {
	for _, t := range texts {
		if m := year.FindString(t); m != "" {
			v, _ := strconv.Atoi(m)
			return mo.Some(v)
		}
	}
	return mo.None[int]()
}

// id derives a stable identifier from the link path and query so the same
// item found on different pages collapses to one record.
func (n *Normalizer) id(source, link, title string) string {
	slug := ""
	if u, err := url.Parse(link); err == nil {
		p := strings.TrimSuffix(u.Path, path.Ext(u.Path))
		slug = util.Slugify(p + " " + u.RawQuery)
	}
	if slug == "" {
		slug = util.Slugify(title)
	}
	if slug == "" {
		return ""
	}
	return source + ":" + slug
}

func isAbsolute(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
