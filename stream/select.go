package stream

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/reelscout/reelscout/util"
)

// Candidate is one media URL seen on the network or in the DOM.
type Candidate struct {
	URL         string
	ContentType string
	// Quality is a label such as 720p. When empty it is detected from the URL.
	Quality string
}

// IsMedia reports whether a response looks like a playable stream.
func IsMedia(rawURL, contentType string) bool {
	ct := strings.ToLower(contentType)
	u := strings.ToLower(rawURL)
	return strings.Contains(ct, "mpegurl") ||
		strings.Contains(ct, "mp4") ||
		strings.Contains(u, ".m3u8") ||
		strings.Contains(u, ".mp4")
}

func (c Candidate) adaptive() bool {
	return strings.Contains(strings.ToLower(c.URL), ".m3u8") ||
		strings.Contains(strings.ToLower(c.ContentType), "mpegurl")
}

func (c Candidate) progressive() bool {
	return strings.Contains(strings.ToLower(c.URL), ".mp4") ||
		strings.Contains(strings.ToLower(c.ContentType), "mp4")
}

func (c Candidate) rank() int {
	switch {
	case c.adaptive():
		return 2
	case c.progressive():
		return 1
	default:
		return 0
	}
}

var qualityPattern = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(?P<label>(?P<height>\d{3,4})p|4k|uhd|fhd|hd|sd)(?:[^a-z0-9]|$)`)

var namedQualities = map[string]int{
	"4k":  2160,
	"uhd": 2160,
	"fhd": 1080,
	"hd":  720,
	"sd":  480,
}

// Label returns the quality label of the candidate, detected from the URL
// when not set explicitly.
func (c Candidate) Label() string {
	if c.Quality != "" {
		return strings.ToLower(c.Quality)
	}
	return strings.ToLower(util.ReGroups(qualityPattern, c.URL)["label"])
}

// Height converts the quality label to a vertical resolution. Unknown is 0.
func (c Candidate) Height() int {
	label := c.Label()
	if label == "" {
		return 0
	}
	if h, ok := namedQualities[label]; ok {
		return h
	}

	h, err := strconv.Atoi(strings.TrimSuffix(label, "p"))
	if err != nil {
		return 0
	}
	return h
}

// Select picks the best candidate: adaptive streams over progressive files,
// then the higher quality, then the earliest seen.
func Select(candidates []Candidate) (Candidate, bool) {
	var (
		best  Candidate
		found bool
	)

	for _, c := range candidates {
		if c.URL == "" {
			continue
		}
		if !found || better(c, best) {
			best, found = c, true
		}
	}
	return best, found
}

func better(a, b Candidate) bool {
	if a.rank() != b.rank() {
		return a.rank() > b.rank()
	}
	return a.Height() > b.Height()
}
