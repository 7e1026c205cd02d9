// Package gap derives visibility gap patterns from recent scan results:
// queries where AI models cited competitors but never the brand.
package gap

import (
	"github.com/citegap/citegap/internal/core"
)

// Analyzer computes gap patterns from a scan window. It is a pure function of
// its input and has no side effects.
type Analyzer struct{}

// NewAnalyzer creates a gap analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze groups scan results by query text and emits a GapPattern for every
// query where no scan mentioned the brand and at least one competitor was
// mentioned. Input order is preserved: patterns appear in the order their
// query first appears in the window. A zero-scan window yields an empty list
// and no error.
func (a *Analyzer) Analyze(scans []core.ScanResult) []core.GapPattern {
	type group struct {
		queryType      core.QueryType
		brandMentioned bool
		competitors    []string
		seen           map[string]bool
	}

	groups := make(map[string]*group)
	var order []string

	for _, scan := range scans {
		g, ok := groups[scan.QueryText]
		if !ok {
			g = &group{queryType: scan.QueryType, seen: make(map[string]bool)}
			groups[scan.QueryText] = g
			order = append(order, scan.QueryText)
		}
		if scan.BrandMentioned {
			g.brandMentioned = true
		}
		for _, name := range scan.CompetitorsMentioned {
			if !g.seen[name] {
				g.seen[name] = true
				g.competitors = append(g.competitors, name)
			}
		}
	}

	patterns := make([]core.GapPattern, 0, len(order))
	for _, text := range order {
		g := groups[text]
		if g.brandMentioned || len(g.competitors) == 0 {
			continue
		}
		patterns = append(patterns, core.GapPattern{
			QueryText:   text,
			QueryType:   g.queryType,
			Competitors: g.competitors,
		})
	}
	return patterns
}

// Top returns at most n patterns, preserving order. Callers cap the list
// before feeding it to downstream prompts to bound token cost.
func Top(patterns []core.GapPattern, n int) []core.GapPattern {
	if n <= 0 || len(patterns) <= n {
		return patterns
	}
	return patterns[:n]
}
