// Package discovery grows a brand's tracked surface from recent gap data: it
// proposes new non-branded queries and extracts unseen competitor names from
// raw scan text. Everything here is best-effort enrichment; failures degrade
// to empty results and are logged, never propagated.
package discovery

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/citegap/citegap/internal/core"
	"github.com/citegap/citegap/internal/gap"
	"github.com/citegap/citegap/internal/llm"
	"github.com/citegap/citegap/internal/logger"
	"github.com/citegap/citegap/internal/store"
)

const queryPromptTemplate = `You are growing the tracked-prompt set for the brand "%s" (%s).

These queries were recently answered by AI assistants citing competitors but not the brand:
%s

Propose 10-15 NEW queries a potential customer might ask an AI assistant. Requirements:
- Similar intent to the gaps above but textually distinct from them
- Non-branded: never mention "%s" or any competitor by name
- Natural language questions, the way real users phrase them

Respond with a JSON array. Each element must have:
"query" (string), "type" (one of: problem_solution, best_of, how_to, comparison, industry),
"intent" (one short phrase), "priority" (integer 70-90).

Return ONLY the JSON array, no other text.`

const competitorPromptTemplate = `The brand "%s" tracks these known competitors: %s.

Below are excerpts from AI assistant answers in the brand's market:
%s

List any OTHER brand or company names mentioned as products or vendors in these
excerpts that are NOT in the known list and are not "%s" itself.

Respond with a JSON array. Each element must have:
"name" (the company name) and "context" (one sentence on how it was mentioned).

Return ONLY the JSON array, no other text.`

// Result reports what a discovery pass produced.
type Result struct {
	NewQueries     int
	NewCompetitors int
}

// Discoverer runs the two enrichment calls of a pipeline pass.
type Discoverer struct {
	store      store.Store
	completion llm.CompletionService
	maxGaps    int
	maxSamples int
	log        zerolog.Logger
}

// New creates a discoverer. maxGaps bounds how many gap patterns feed the
// query prompt; maxSamples bounds how many scan excerpts feed the competitor
// prompt.
func New(st store.Store, completion llm.CompletionService, maxGaps, maxSamples int) *Discoverer {
	if maxGaps <= 0 {
		maxGaps = 10
	}
	if maxSamples <= 0 {
		maxSamples = 5
	}
	return &Discoverer{
		store:      st,
		completion: completion,
		maxGaps:    maxGaps,
		maxSamples: maxSamples,
		log:        logger.With("discovery"),
	}
}

// Run executes query generation and competitor extraction for one brand. The
// two calls are independent and independently failable. If either produced at
// least one new row, a single summary alert is written; otherwise nothing.
func (d *Discoverer) Run(ctx context.Context, brand *core.Brand, patterns []core.GapPattern, scans []core.ScanResult) (Result, error) {
	var res Result
	res.NewQueries = d.generateQueries(ctx, brand, gap.Top(patterns, d.maxGaps))
	res.NewCompetitors = d.extractCompetitors(ctx, brand, scans)

	if res.NewQueries == 0 && res.NewCompetitors == 0 {
		return res, nil
	}

	alert := &core.Alert{
		BrandID:  brand.ID,
		Type:     "discovery_summary",
		Title:    "Tracked surface expanded",
		Message:  fmt.Sprintf("Discovered %d new queries and %d new competitors from recent scans", res.NewQueries, res.NewCompetitors),
		Severity: core.SeverityInfo,
		Data: map[string]any{
			"new_queries":     res.NewQueries,
			"new_competitors": res.NewCompetitors,
		},
	}
	if err := d.store.InsertAlert(ctx, alert); err != nil {
		d.log.Error().Err(err).Str("brand", brand.ID).Msg("write discovery alert")
	}
	return res, nil
}

type proposedQuery struct {
	Query    string `json:"query"`
	Type     string `json:"type"`
	Intent   string `json:"intent"`
	Priority int    `json:"priority"`
}

func (d *Discoverer) generateQueries(ctx context.Context, brand *core.Brand, patterns []core.GapPattern) int {
	if len(patterns) == 0 {
		return 0
	}

	var lines []string
	for _, p := range patterns {
		lines = append(lines, fmt.Sprintf("- %q (type: %s, competitors cited: %s)",
			p.QueryText, p.QueryType, strings.Join(p.Competitors, ", ")))
	}

	prompt := fmt.Sprintf(queryPromptTemplate, brand.Name, brand.Domain,
		strings.Join(lines, "\n"), brand.Name)

	raw, err := d.completion.Complete(ctx, prompt, 0.8)
	if err != nil {
		d.log.Warn().Err(err).Str("brand", brand.ID).Msg("query generation call failed")
		return 0
	}

	var proposals []proposedQuery
	if err := llm.ExtractJSONArray(raw, &proposals); err != nil {
		d.log.Warn().Err(err).Str("brand", brand.ID).Msg("query generation parse failed")
		return 0
	}

	brandLower := strings.ToLower(brand.Name)
	var queries []core.Query
	for _, p := range proposals {
		text := strings.TrimSpace(p.Query)
		if text == "" || strings.Contains(strings.ToLower(text), brandLower) {
			continue
		}
		queries = append(queries, core.Query{
			BrandID:        brand.ID,
			Text:           text,
			Type:           normalizeQueryType(p.Type),
			Priority:       clampPriority(p.Priority),
			AutoDiscovered: true,
			IsActive:       true,
		})
	}
	if len(queries) == 0 {
		return 0
	}

	inserted, err := d.store.UpsertQueries(ctx, queries)
	if err != nil {
		d.log.Warn().Err(err).Str("brand", brand.ID).Msg("persist discovered queries")
		return inserted
	}
	return inserted
}

type extractedCompetitor struct {
	Name    string `json:"name"`
	Context string `json:"context"`
}

func (d *Discoverer) extractCompetitors(ctx context.Context, brand *core.Brand, scans []core.ScanResult) int {
	known, err := d.store.ListCompetitors(ctx, brand.ID, true)
	if err != nil {
		d.log.Warn().Err(err).Str("brand", brand.ID).Msg("list known competitors")
		return 0
	}

	knownSet := make(map[string]bool, len(known)+1)
	var knownNames []string
	for _, c := range known {
		knownSet[strings.ToLower(c.Name)] = true
		knownNames = append(knownNames, c.Name)
	}
	knownSet[strings.ToLower(brand.Name)] = true

	// Sample scans that mentioned any competitor, truncated to bound tokens.
	var samples []string
	for _, scan := range scans {
		if len(samples) >= d.maxSamples {
			break
		}
		if len(scan.CompetitorsMentioned) == 0 || scan.ResponseText == "" {
			continue
		}
		text := truncateText(scan.ResponseText, 500)
		samples = append(samples, "---\n"+text)
	}
	if len(samples) == 0 {
		return 0
	}

	knownList := strings.Join(knownNames, ", ")
	if knownList == "" {
		knownList = "(none yet)"
	}
	prompt := fmt.Sprintf(competitorPromptTemplate, brand.Name, knownList,
		strings.Join(samples, "\n"), brand.Name)

	raw, err := d.completion.Complete(ctx, prompt, 0.3)
	if err != nil {
		d.log.Warn().Err(err).Str("brand", brand.ID).Msg("competitor extraction call failed")
		return 0
	}

	var extracted []extractedCompetitor
	if err := llm.ExtractJSONArray(raw, &extracted); err != nil {
		d.log.Warn().Err(err).Str("brand", brand.ID).Msg("competitor extraction parse failed")
		return 0
	}

	// Re-filter against the known set: the model may echo names it was told
	// to exclude, or near-duplicates differing only in case.
	var competitors []core.Competitor
	for _, e := range extracted {
		name := strings.TrimSpace(e.Name)
		if name == "" || knownSet[strings.ToLower(name)] {
			continue
		}
		knownSet[strings.ToLower(name)] = true
		competitors = append(competitors, core.Competitor{
			BrandID:        brand.ID,
			Name:           name,
			AutoDiscovered: true,
			IsActive:       true,
		})
	}
	if len(competitors) == 0 {
		return 0
	}

	inserted, err := d.store.UpsertCompetitors(ctx, competitors)
	if err != nil {
		d.log.Warn().Err(err).Str("brand", brand.ID).Msg("persist discovered competitors")
		return inserted
	}
	return inserted
}

// truncateText caps a string at max bytes without splitting a multi-byte
// rune.
func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func normalizeQueryType(s string) core.QueryType {
	switch core.QueryType(strings.ToLower(strings.TrimSpace(s))) {
	case core.QueryProblemSolution, core.QueryBestOf, core.QueryHowTo, core.QueryComparison, core.QueryIndustry:
		return core.QueryType(strings.ToLower(strings.TrimSpace(s)))
	default:
		return core.QueryBestOf
	}
}

func clampPriority(p int) int {
	if p < 70 {
		return 70
	}
	if p > 90 {
		return 90
	}
	return p
}
