package templates

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/citegap/citegap/internal/core"
)

func promptBrand() *core.Brand {
	b := &core.Brand{ID: "b1", Name: "Acme", Domain: "acme.example.com"}
	b.Context.Description = "Sales CRM for small teams"
	b.Context.Products = []string{"pipeline tracking"}
	b.Context.Tone = "plainspoken, no hype"
	return b
}

func TestRenderComparisonContract(t *testing.T) {
	today := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	prompt := Render(core.MemoComparison, PromptData{
		Brand:      promptBrand(),
		Competitor: &core.Competitor{Name: "HubSpot"},
		Title:      "Acme vs HubSpot: An Honest Comparison",
		Today:      today,
	})

	assert.Contains(t, prompt, "Acme and HubSpot")
	assert.Contains(t, prompt, "plainspoken, no hype")
	assert.Contains(t, prompt, fmt.Sprintf("%d words", WordTarget(core.MemoComparison)))
	// The byline keeps the article's freshness claim pinned to the render date.
	assert.Contains(t, prompt, "*Last verified: March 9, 2026*")
	assert.Contains(t, prompt, `"Acme vs HubSpot: An Honest Comparison"`)
	assert.Contains(t, prompt, "2026")
	for _, phrase := range BannedPhrases {
		assert.Contains(t, prompt, phrase)
	}
	assert.Contains(t, prompt, "## Sources")
}

func TestRenderQuotesOnlyWhenPresent(t *testing.T) {
	data := PromptData{Brand: promptBrand(), QueryText: "best crm for startups", Today: time.Now()}
	bare := Render(core.MemoResponse, data)
	assert.NotContains(t, bare, "Verified quotes")

	data.Quotes = []core.VoiceQuote{{Author: "Dana", Role: "Founder", Text: "Cut our admin time in half."}}
	quoted := Render(core.MemoResponse, data)
	assert.Contains(t, quoted, "Cut our admin time in half.")
}

func TestWordTargetsPerType(t *testing.T) {
	assert.Equal(t, 1200, WordTarget(core.MemoComparison))
	assert.Equal(t, 600, WordTarget(core.MemoResponse))
	assert.Equal(t, 800, WordTarget(core.MemoGapFill))
}
