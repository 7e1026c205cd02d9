package discovery

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citegap/citegap/internal/core"
	"github.com/citegap/citegap/internal/store/storetest"
)

// discoveryStub answers the query prompt and the competitor prompt with
// canned JSON, keyed off distinctive prompt text.
type discoveryStub struct {
	queriesJSON     string
	competitorsJSON string
	calls           int
	prompts         []string
}

func (s *discoveryStub) Complete(_ context.Context, prompt string, _ float32) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if strings.Contains(prompt, "tracked-prompt set") {
		return s.queriesJSON, nil
	}
	return s.competitorsJSON, nil
}

func testBrand() *core.Brand {
	return &core.Brand{ID: "b1", Name: "Acme", Domain: "acme.example.com"}
}

func testPatterns() []core.GapPattern {
	return []core.GapPattern{
		{QueryText: "best crm for startups", QueryType: core.QueryBestOf, Competitors: []string{"HubSpot"}},
	}
}

func testScans() []core.ScanResult {
	return []core.ScanResult{
		{BrandID: "b1", QueryID: "q1", CompetitorsMentioned: []string{"HubSpot"},
			ResponseText: "For startups, HubSpot and Pipedrive are common picks."},
	}
}

func TestRunPersistsDiscoveries(t *testing.T) {
	st := storetest.New()
	_, err := st.UpsertCompetitors(context.Background(), []core.Competitor{
		{BrandID: "b1", Name: "HubSpot", IsActive: true},
	})
	require.NoError(t, err)

	stub := &discoveryStub{
		queriesJSON: "```json\n" + `[
			{"query": "what crm do small teams use", "type": "best_of", "intent": "tool selection", "priority": 80},
			{"query": "crm vs spreadsheet for sales tracking", "type": "comparison", "intent": "comparison", "priority": 95},
			{"query": "is Acme worth it", "type": "best_of", "intent": "branded", "priority": 75}
		]` + "\n```",
		competitorsJSON: `[
			{"name": "HubSpot", "context": "echoed back from the known list"},
			{"name": "Pipedrive", "context": "named as a common pick"}
		]`,
	}

	d := New(st, stub, 10, 5)
	res, err := d.Run(context.Background(), testBrand(), testPatterns(), testScans())
	require.NoError(t, err)

	// The branded proposal is filtered out; the known competitor echo is too.
	assert.Equal(t, 2, res.NewQueries)
	assert.Equal(t, 1, res.NewCompetitors)
	assert.Equal(t, 2, stub.calls)

	var discovered []core.Query
	for _, q := range st.Queries {
		discovered = append(discovered, *q)
	}
	require.Len(t, discovered, 2)
	for _, q := range discovered {
		assert.True(t, q.AutoDiscovered)
		assert.True(t, q.IsActive)
	}

	// Out-of-range priority clamps into 70-90.
	for _, q := range discovered {
		assert.GreaterOrEqual(t, q.Priority, 70)
		assert.LessOrEqual(t, q.Priority, 90)
	}

	alerts := st.AlertsOfType("discovery_summary")
	require.Len(t, alerts, 1)
	assert.Equal(t, core.SeverityInfo, alerts[0].Severity)
}

func TestRunTwiceInsertsNothingNew(t *testing.T) {
	st := storetest.New()
	stub := &discoveryStub{
		queriesJSON:     `[{"query": "what crm do small teams use", "type": "best_of", "intent": "x", "priority": 80}]`,
		competitorsJSON: `[{"name": "Pipedrive", "context": "mentioned"}]`,
	}

	d := New(st, stub, 10, 5)
	res, err := d.Run(context.Background(), testBrand(), testPatterns(), testScans())
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewQueries)
	assert.Equal(t, 1, res.NewCompetitors)

	res, err = d.Run(context.Background(), testBrand(), testPatterns(), testScans())
	require.NoError(t, err)
	assert.Zero(t, res.NewQueries)
	assert.Zero(t, res.NewCompetitors)

	assert.Len(t, st.Queries, 1)
	assert.Len(t, st.Competitors, 1)
	// Only the first pass produced anything worth announcing.
	assert.Len(t, st.AlertsOfType("discovery_summary"), 1)
}

func TestRunDegradesOnUnparsableOutput(t *testing.T) {
	st := storetest.New()
	stub := &discoveryStub{
		queriesJSON:     "Sorry, I cannot produce JSON for that.",
		competitorsJSON: "no list here either",
	}

	d := New(st, stub, 10, 5)
	res, err := d.Run(context.Background(), testBrand(), testPatterns(), testScans())
	require.NoError(t, err)
	assert.Zero(t, res.NewQueries)
	assert.Zero(t, res.NewCompetitors)
	assert.Empty(t, st.AlertsOfType("discovery_summary"))
}

func TestRunSkipsCompetitorCallWithoutSamples(t *testing.T) {
	st := storetest.New()
	stub := &discoveryStub{queriesJSON: `[]`, competitorsJSON: `[]`}

	d := New(st, stub, 10, 5)
	scans := []core.ScanResult{{BrandID: "b1", QueryID: "q1"}} // no competitors mentioned
	res, err := d.Run(context.Background(), testBrand(), testPatterns(), scans)
	require.NoError(t, err)
	assert.Zero(t, res.NewCompetitors)
	assert.Equal(t, 1, stub.calls)
}

func TestScanSampleTruncationKeepsRuneBoundary(t *testing.T) {
	st := storetest.New()
	stub := &discoveryStub{queriesJSON: `[]`, competitorsJSON: `[]`}

	// 600 bytes of 3-byte runes: a byte-index cut at 500 would land mid-rune.
	scans := []core.ScanResult{
		{BrandID: "b1", QueryID: "q1", CompetitorsMentioned: []string{"HubSpot"},
			ResponseText: strings.Repeat("日", 200)},
	}

	d := New(st, stub, 10, 5)
	_, err := d.Run(context.Background(), testBrand(), nil, scans)
	require.NoError(t, err)

	require.Len(t, stub.prompts, 1)
	assert.True(t, utf8.ValidString(stub.prompts[0]))
	assert.Equal(t, strings.Repeat("日", 166), truncateText(strings.Repeat("日", 200), 500))
	assert.Equal(t, "abc", truncateText("abc", 500))
}

func TestNormalizeQueryType(t *testing.T) {
	assert.Equal(t, core.QueryComparison, normalizeQueryType(" Comparison "))
	assert.Equal(t, core.QueryBestOf, normalizeQueryType("something_else"))
}
