package provider

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
)

// UnknownSourceError is returned when a run names a source that is not registered.
type UnknownSourceError struct {
	Name       string
	Suggestion string
}

func (e *UnknownSourceError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown source %q, did you mean %q?", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("unknown source %q", e.Name)
}

// Registry is an immutable set of validated profiles keyed by name.
type Registry struct {
	byName map[string]*Profile
	names  []string
}

// NewRegistry validates every profile and rejects duplicate names.
func NewRegistry(profiles ...*Profile) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Profile, len(profiles))}

	var errs []error
	for _, p := range profiles {
		if p == nil {
			errs = append(errs, errors.New("nil profile"))
			continue
		}

		p.prepare()
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}

		if _, dup := r.byName[p.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate profile %q", p.Name))
			continue
		}

		r.byName[p.Name] = p
		r.names = append(r.names, p.Name)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	sort.Strings(r.names)
	return r, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Lookup returns the profile registered under name.
func (r *Registry) Lookup(name string) (*Profile, bool) {
	p, ok := r.byName[normalizeName(name)]
	return p, ok
}

// Get is Lookup with an UnknownSourceError carrying the closest registered name.
func (r *Registry) Get(name string) (*Profile, error) {
	if p, ok := r.Lookup(name); ok {
		return p, nil
	}
	return nil, &UnknownSourceError{Name: name, Suggestion: r.Suggest(name)}
}

// Suggest returns the registered name closest to name, or "" when nothing is close.
func (r *Registry) Suggest(name string) string {
	name = normalizeName(name)

	var (
		best     string
		bestDist = -1
	)
	for _, n := range r.names {
		d := levenshtein.Distance(name, n)
		if bestDist < 0 || d < bestDist {
			best, bestDist = n, d
		}
	}

	if bestDist < 0 || bestDist > max(2, len(name)/3) {
		return ""
	}
	return best
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// All returns every profile, sorted by name.
func (r *Registry) All() []*Profile {
	out := make([]*Profile, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.byName[n])
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.names)
}
