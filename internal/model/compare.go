package model

import (
	"slices"
	"time"
)

// Change directions reported by Compare.
const (
	DirectionImproved  = "improved"
	DirectionWorsened  = "worsened"
	DirectionUnchanged = "unchanged"
)

// Comparison holds the differences between two reports of the same site.
type Comparison struct {
	// Site is the compared site.
	Site string `json:"site"`

	// Previous summarizes the older report.
	Previous *Summary `json:"previous"`

	// Current summarizes the newer report.
	Current *Summary `json:"current"`

	// NewFindings are findings present only in the current report.
	NewFindings []Finding `json:"new_findings,omitempty"`

	// ResolvedFindings are findings present only in the previous report.
	ResolvedFindings []Finding `json:"resolved_findings,omitempty"`

	// UnchangedCount is the number of findings present in both reports.
	UnchangedCount int `json:"unchanged_count"`

	// SitemapChanged is true when the sitemap.xml check flipped.
	SitemapChanged bool `json:"sitemap_changed"`

	// RobotsChanged is true when the robots.txt check flipped.
	RobotsChanged bool `json:"robots_changed"`

	// GradesChanged is true when the TLS grade list differs.
	GradesChanged bool `json:"grades_changed"`

	// Direction is improved, worsened or unchanged.
	Direction string `json:"direction"`
}

// Compare computes the differences between previous and current.
func Compare(previous, current *Report) *Comparison {
	c := &Comparison{
		Site:     current.Site,
		Previous: NewSummary(previous),
		Current:  NewSummary(current),
	}

	prev := findingSet(previous)
	curr := findingSet(current)

	for _, f := range current.Issues.All() {
		if _, ok := prev[findingKey(f)]; !ok {
			c.NewFindings = append(c.NewFindings, f)
		}
	}
	for _, f := range previous.Issues.All() {
		if _, ok := curr[findingKey(f)]; ok {
			c.UnchangedCount++
			continue
		}
		c.ResolvedFindings = append(c.ResolvedFindings, f)
	}

	c.SitemapChanged = c.Previous.SitemapFound != c.Current.SitemapFound
	c.RobotsChanged = c.Previous.RobotsFound != c.Current.RobotsFound
	c.GradesChanged = !slices.Equal(c.Previous.TLSGrades, c.Current.TLSGrades)
	c.Direction = direction(c.Previous, c.Current)

	return c
}

// Span returns the time between the two compared reports.
func (c *Comparison) Span() time.Duration {
	return c.Current.GeneratedAt.Sub(c.Previous.GeneratedAt)
}

func findingSet(r *Report) map[string]struct{} {
	set := make(map[string]struct{})
	for _, f := range r.Issues.All() {
		set[findingKey(f)] = struct{}{}
	}
	return set
}

func findingKey(f Finding) string {
	return f.Rule + "|" + f.URL + "|" + f.Value
}

// direction weighs error findings above warnings above notices, and counts
// a missing sitemap or robots.txt as a warning.
func direction(previous, current *Summary) string {
	score := func(s *Summary) int {
		n := s.ErrorCount*100 + s.WarningCount*10 + s.NoticeCount
		if !s.SitemapFound {
			n += 10
		}
		if !s.RobotsFound {
			n += 10
		}
		return n
	}

	prev, curr := score(previous), score(current)
	switch {
	case curr < prev:
		return DirectionImproved
	case curr > prev:
		return DirectionWorsened
	default:
		return DirectionUnchanged
	}
}
