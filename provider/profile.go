// Package provider holds the per-site source profiles a collection run is driven by.
package provider

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Selectors is one site-specific extraction strategy.
type Selectors struct {
	Item   string `yaml:"item" json:"item" jsonschema:"required,description=CSS selector matching one listing item"`
	Title  string `yaml:"title,omitempty" json:"title,omitempty" jsonschema:"description=Selector for the title inside an item"`
	Image  string `yaml:"image,omitempty" json:"image,omitempty" jsonschema:"description=Selector for the poster image inside an item"`
	Link   string `yaml:"link,omitempty" json:"link,omitempty" jsonschema:"description=Selector for the detail link inside an item"`
	Rating string `yaml:"rating,omitempty" json:"rating,omitempty" jsonschema:"description=Selector for the rating text inside an item"`
	Year   string `yaml:"year,omitempty" json:"year,omitempty" jsonschema:"description=Selector for the release year inside an item"`
}

// StreamPolicy controls how stream references of a source are stored.
type StreamPolicy struct {
	ExpiryHours    int    `yaml:"expiryHours,omitempty" json:"expiryHours,omitempty" jsonschema:"minimum=0,description=Hours a captured stream URL stays valid"`
	ReferrerPolicy string `yaml:"referrerPolicy,omitempty" json:"referrerPolicy,omitempty" jsonschema:"description=Referrer-Policy to play the stream with"`
	Referer        string `yaml:"referer,omitempty" json:"referer,omitempty" jsonschema:"description=Referer header the stream host expects"`
}

// Profile is the static configuration of one source. It is validated when the
// registry is built and treated as read-only afterwards.
type Profile struct {
	Name            string       `yaml:"name" json:"name" jsonschema:"required,pattern=^[a-z0-9_-]+$"`
	Domains         []string     `yaml:"domains" json:"domains" jsonschema:"required,minItems=1,description=Base and alternate domains tried in order"`
	RequiresBrowser bool         `yaml:"requiresBrowser,omitempty" json:"requiresBrowser,omitempty" jsonschema:"description=Skip the direct tier"`
	ContentType     string       `yaml:"contentType,omitempty" json:"contentType,omitempty" jsonschema:"default=drama"`
	Pagination      string       `yaml:"pagination" json:"pagination" jsonschema:"required,description=Listing URL template with {base} and {page} placeholders"`
	FirstPage       string       `yaml:"firstPage,omitempty" json:"firstPage,omitempty" jsonschema:"description=Template used for page 1 instead of pagination"`
	WaitSelector    string       `yaml:"waitSelector,omitempty" json:"waitSelector,omitempty" jsonschema:"description=Selector the browser tier waits for"`
	Scroll          bool         `yaml:"scroll,omitempty" json:"scroll,omitempty" jsonschema:"description=Auto-scroll rendered pages to load lazy content"`
	Strategies      []Selectors  `yaml:"strategies" json:"strategies" jsonschema:"required,minItems=1"`
	Stream          StreamPolicy `yaml:"stream,omitempty" json:"stream,omitempty"`
}

// DefaultContentType is assigned to profiles that do not set one.
const DefaultContentType = "drama"

var (
	validName = regexp.MustCompile(`^[a-z0-9_-]+$`)

	referrerPolicies = []string{
		"no-referrer", "no-referrer-when-downgrade", "origin", "origin-when-cross-origin",
		"same-origin", "strict-origin", "strict-origin-when-cross-origin", "unsafe-url",
	}
)

func (p *Profile) String() string {
	return p.Name
}

// prepare fills defaults and canonicalizes domains to scheme://host.
func (p *Profile) prepare() {
	p.Name = strings.ToLower(strings.TrimSpace(p.Name))
	if p.ContentType == "" {
		p.ContentType = DefaultContentType
	}

	for i, d := range p.Domains {
		d = strings.TrimRight(strings.TrimSpace(d), "/")
		if d != "" && !strings.Contains(d, "://") {
			d = "https://" + d
		}
		p.Domains[i] = d
	}
}

// Validate checks the required fields. The returned error joins every problem found.
func (p *Profile) Validate() error {
	var errs []error

	if !validName.MatchString(p.Name) {
		errs = append(errs, fmt.Errorf("name %q must match %s", p.Name, validName))
	}

	if len(p.Domains) == 0 {
		errs = append(errs, errors.New("at least one domain is required"))
	}
	for _, d := range p.Domains {
		u, err := url.Parse(d)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("invalid domain %q", d))
		}
	}

	if p.Pagination == "" {
		errs = append(errs, errors.New("pagination template is required"))
	} else if !strings.Contains(p.Pagination, "{page}") {
		errs = append(errs, fmt.Errorf("pagination %q has no {page} placeholder", p.Pagination))
	}

	if len(p.Strategies) == 0 {
		errs = append(errs, errors.New("at least one extraction strategy is required"))
	}
	for i, s := range p.Strategies {
		if strings.TrimSpace(s.Item) == "" {
			errs = append(errs, fmt.Errorf("strategy %d has no item selector", i))
		}
	}

	if p.Stream.ExpiryHours < 0 {
		errs = append(errs, fmt.Errorf("stream expiry %d is negative", p.Stream.ExpiryHours))
	}
	if rp := p.Stream.ReferrerPolicy; rp != "" && !lo.Contains(referrerPolicies, rp) {
		errs = append(errs, fmt.Errorf("unknown referrer policy %q", rp))
	}

	if len(errs) > 0 {
		return fmt.Errorf("profile %q: %w", p.Name, errors.Join(errs...))
	}
	return nil
}

// BaseURL returns the primary domain.
func (p *Profile) BaseURL() string {
	if len(p.Domains) == 0 {
		return ""
	}
	return p.Domains[0]
}

// PageURL expands the pagination template for a page against one of the profile's domains.
func (p *Profile) PageURL(base string, page int) string {
	tmpl := p.Pagination
	if page == 1 && p.FirstPage != "" {
		tmpl = p.FirstPage
	}

	return strings.NewReplacer(
		"{base}", strings.TrimRight(base, "/"),
		"{page}", strconv.Itoa(page),
	).Replace(tmpl)
}

// PageURLs expands the template against every domain, in order.
func (p *Profile) PageURLs(page int) []string {
	return lo.Map(p.Domains, func(d string, _ int) string {
		return p.PageURL(d, page)
	})
}
