package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/reelscout/reelscout/content"
	"github.com/samber/mo"
)

var (
	ratingPattern = regexp.MustCompile(`(\d+(\.\d+)?)`)
	spaces        = regexp.MustCompile(`\s+`)
)

// Title selectors tried after the site-specific ones, first non-empty wins.
var defaultTitleChain = []string{"h3", "h2", "h4", ".title", ".name", "a[title]", "a"}

// Image attributes in order of preference. Lazy loaders keep the real URL out of src.
var imageAttrs = []string{"data-src", "data-original", "data-lazy-src", "src"}

var defaultRatingChain = []string{".rating", ".score", "[class*=rating]", "[class*=score]"}

// fields are the optional sub-selectors a resolver consults before its defaults.
type fields struct {
	title  string
	image  string
	link   string
	rating string
	year   string
}

// resolve builds a candidate from one item node. ok is false when the node has
// neither a title nor a link.
func resolve(item *goquery.Selection, f fields) (c content.Candidate, ok bool) {
	c.Title = resolveTitle(item, f.title)
	c.LinkRaw = resolveLink(item, f.link)
	c.ImageRaw = resolveImage(item, f.image)
	c.RatingText = resolveRating(item, f.rating)
	if f.year != "" {
		c.YearText = clean(item.Find(f.year).First().Text())
	}
	c.Text = clean(item.Text())

	return c, c.Title != "" || c.LinkRaw != ""
}

func resolveTitle(item *goquery.Selection, selector string) string {
	chain := append(splitChain(selector), defaultTitleChain...)
	for _, s := range chain {
		node := item.Find(s).First()
		if node.Length() == 0 {
			continue
		}
		if t := clean(node.Text()); t != "" {
			return t
		}
		if t := clean(node.AttrOr("title", "")); t != "" {
			return t
		}
	}

	if t := clean(item.AttrOr("title", "")); t != "" {
		return t
	}
	return clean(item.Find("img").First().AttrOr("alt", ""))
}

func resolveImage(item *goquery.Selection, selector string) string {
	chain := append(splitChain(selector), "img")
	for _, s := range chain {
		node := item.Find(s).First()
		if node.Length() == 0 {
			continue
		}
		for _, attr := range imageAttrs {
			if v := strings.TrimSpace(node.AttrOr(attr, "")); v != "" && !strings.HasPrefix(v, "data:") {
				return v
			}
		}
	}
	return ""
}

func resolveLink(item *goquery.Selection, selector string) string {
	if goquery.NodeName(item) == "a" {
		if href := strings.TrimSpace(item.AttrOr("href", "")); href != "" {
			return href
		}
	}

	chain := append(splitChain(selector), "a[href]")
	for _, s := range chain {
		if href := strings.TrimSpace(item.Find(s).First().AttrOr("href", "")); href != "" && href != "#" {
			return href
		}
	}
	return ""
}

func resolveRating(item *goquery.Selection, selector string) mo.Option[string] {
	chain := append(splitChain(selector), defaultRatingChain...)
	for _, s := range chain {
		text := clean(item.Find(s).First().Text())
		if m := ratingPattern.FindString(text); m != "" {
			return mo.Some(m)
		}
	}
	return mo.None[string]()
}

// splitChain splits a selector list on top level commas so each alternative is tried in order.
func splitChain(selector string) []string {
	var (
		parts []string
		depth int
		start int
	)

	for i, r := range selector {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, selector[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, selector[start:])

	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func clean(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}
