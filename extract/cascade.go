package extract

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/reelscout/reelscout/content"
	"github.com/reelscout/reelscout/provider"
)

// Cascade runs site-specific strategies first and then the shared fallbacks,
// stopping at the first strategy that yields anything.
type Cascade struct {
	fallbacks []Strategy
}

// NewCascade builds a cascade. Without arguments the fallbacks are the generic
// and last-resort strategies.
func NewCascade(fallbacks ...Strategy) *Cascade {
	if len(fallbacks) == 0 {
		fallbacks = []Strategy{GenericStrategy{}, LastResortStrategy{}}
	}
	return &Cascade{fallbacks: fallbacks}
}

// Strategies lists the strategies tried for a profile, in order.
func (c *Cascade) Strategies(p *provider.Profile) []Strategy {
	var strategies []Strategy
	if p != nil {
		for i, s := range p.Strategies {
			strategies = append(strategies, NewSiteStrategy(i, s))
		}
	}
	return append(strategies, c.fallbacks...)
}

// Extract parses html and returns the candidates of the first productive
// strategy along with its name. No candidates is not an error.
func (c *Cascade) Extract(html []byte, p *provider.Profile, limit int) ([]content.Candidate, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, "", fmt.Errorf("parse html: %w", err)
	}

	for _, s := range c.Strategies(p) {
		candidates := s.Extract(doc, limit)
		if len(candidates) == 0 {
			continue
		}

		if p != nil {
			for i := range candidates {
				candidates[i].Source = p.Name
			}
		}
		return candidates, s.Name(), nil
	}
	return nil, "", nil
}
