// Package extract turns listing HTML into raw candidates through an ordered
// cascade of strategies.
package extract

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/reelscout/reelscout/content"
	"github.com/reelscout/reelscout/provider"
	"github.com/samber/lo"
)

// Strategy extracts at most limit candidates from a document. A limit of zero
// or less means no limit.
type Strategy interface {
	Name() string
	Extract(doc *goquery.Document, limit int) []content.Candidate
}

// collect resolves candidates from the matched items until limit is reached.
func collect(items *goquery.Selection, limit int, name string, f fields) []content.Candidate {
	var out []content.Candidate
	items.EachWithBreak(func(_ int, item *goquery.Selection) bool {
		c, ok := resolve(item, f)
		if !ok {
			return true
		}
		c.Strategy = name
		out = append(out, c)
		return limit <= 0 || len(out) < limit
	})
	return out
}

// SiteStrategy applies one set of selectors from a source profile.
type SiteStrategy struct {
	index     int
	selectors provider.Selectors
}

// NewSiteStrategy wraps the index-th selector set of a profile.
func NewSiteStrategy(index int, s provider.Selectors) *SiteStrategy {
	return &SiteStrategy{index: index, selectors: s}
}

func (s *SiteStrategy) Name() string {
	if s.index == 0 {
		return "site"
	}
	return "site#" + strconv.Itoa(s.index)
}

func (s *SiteStrategy) Extract(doc *goquery.Document, limit int) []content.Candidate {
	return collect(doc.Find(s.selectors.Item), limit, s.Name(), fields{
		title:  s.selectors.Title,
		image:  s.selectors.Image,
		link:   s.selectors.Link,
		rating: s.selectors.Rating,
		year:   s.selectors.Year,
	})
}

const blockSelector = "li, article, div, section"

// GenericStrategy picks the innermost block elements that hold both an image and a link.
// It is shared by every source.
type GenericStrategy struct{}

func (GenericStrategy) Name() string { return "generic" }

func (GenericStrategy) Extract(doc *goquery.Document, limit int) []content.Candidate {
	items := doc.Find(blockSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return isCard(s) && s.Find(blockSelector).FilterFunction(func(_ int, inner *goquery.Selection) bool {
			return isCard(inner)
		}).Length() == 0
	})
	return collect(items, limit, "generic", fields{})
}

func isCard(s *goquery.Selection) bool {
	return s.Find("img").Length() > 0 && s.Find("a[href]").Length() > 0
}

// LastResortKeywords are matched against class attributes by LastResortStrategy.
var LastResortKeywords = []string{"item", "card", "drama", "movie", "series", "show"}

const (
	lastResortSelector = "div, li, article"
	headingSelector    = "h1, h2, h3, h4, h5, h6, .title"
	maxTextTitle       = 100
)

// LastResortStrategy scans keyword-classed elements and falls back to their
// text when no heading is found.
type LastResortStrategy struct{}

func (LastResortStrategy) Name() string { return "last-resort" }

func (LastResortStrategy) Extract(doc *goquery.Document, limit int) []content.Candidate {
	items := doc.Find(lastResortSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return hasKeywordClass(s) && s.Find(lastResortSelector).FilterFunction(func(_ int, inner *goquery.Selection) bool {
			return hasKeywordClass(inner)
		}).Length() == 0
	})

	var out []content.Candidate
	items.EachWithBreak(func(_ int, item *goquery.Selection) bool {
		c := content.Candidate{
			Title:      clean(item.Find(headingSelector).First().Text()),
			LinkRaw:    resolveLink(item, ""),
			ImageRaw:   resolveImage(item, ""),
			RatingText: resolveRating(item, ""),
			Text:       clean(item.Text()),
			Strategy:   "last-resort",
		}
		if c.Title == "" {
			c.Title = truncateTitle(c.Text)
		}
		if c.Title == "" && c.LinkRaw == "" {
			return true
		}

		out = append(out, c)
		return limit <= 0 || len(out) < limit
	})
	return out
}

func hasKeywordClass(s *goquery.Selection) bool {
	class := strings.ToLower(s.AttrOr("class", ""))
	if class == "" {
		return false
	}
	return lo.SomeBy(LastResortKeywords, func(k string) bool {
		return strings.Contains(class, k)
	})
}

// truncateTitle keeps at most maxTextTitle characters, the ellipsis included.
func truncateTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= maxTextTitle {
		return text
	}
	return strings.TrimSpace(string(runes[:maxTextTitle-3])) + "..."
}
