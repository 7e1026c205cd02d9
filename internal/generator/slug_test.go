package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/citegap/citegap/internal/core"
)

func TestSanitizeSlug(t *testing.T) {
	assert.Equal(t, "whats-the-best-crm", sanitizeSlug("What's the Best CRM?"))
	assert.Equal(t, "acme-corp", sanitizeSlug("Acme Corp"))
	assert.Equal(t, "already-hyphenated", sanitizeSlug("already-hyphenated"))
}

func TestSanitizeSlugTrimsLongInput(t *testing.T) {
	long := strings.Repeat("abcd ", 11)
	got := sanitizeSlug(long)
	assert.LessOrEqual(t, len(got), 50)
	assert.False(t, strings.HasSuffix(got, "-"))
}

func TestDeriveComparisonAndAlternative(t *testing.T) {
	brand := &core.Brand{Name: "CiteGap"}
	comp := &core.Competitor{Name: "Acme Corp"}

	d := derive(core.MemoComparison, brand, comp, "", "")
	assert.Equal(t, "vs/acme-corp", d.Slug)
	assert.Equal(t, "CiteGap vs Acme Corp: An Honest Comparison", d.Title)

	d = derive(core.MemoAlternative, brand, comp, "", "")
	assert.Equal(t, "alternatives-to/acme-corp", d.Slug)
}

func TestDeriveIndustryResolution(t *testing.T) {
	brand := &core.Brand{Name: "CiteGap"}
	brand.Context.Markets = []string{"real estate"}

	// Explicit hint wins.
	d := derive(core.MemoIndustry, brand, nil, "best crm for logistics", "healthcare")
	assert.Equal(t, "for/healthcare", d.Slug)

	// Then the "for <industry>" tail of the query.
	d = derive(core.MemoIndustry, brand, nil, "best crm for property managers?", "")
	assert.Equal(t, "for/property-managers", d.Slug)
	assert.Equal(t, "CiteGap for Property Managers", d.Title)

	// Then the brand's first market.
	d = derive(core.MemoIndustry, brand, nil, "top crm tools", "")
	assert.Equal(t, "for/real-estate", d.Slug)

	// Then the literal fallback.
	d = derive(core.MemoIndustry, &core.Brand{Name: "CiteGap"}, nil, "top crm tools", "")
	assert.Equal(t, "for/business", d.Slug)
}

func TestImperativeTopic(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"How to reduce fleet costs?", "reduce fleet costs"},
		{"What are the best ways to improve driver safety?", "improve driver safety"},
		{"how can I automate invoice processing", "automate invoice processing"},
		{"effective methods for onboarding", "effectively onboarding"},
		{"fleet tracking software", "set up fleet tracking software"},
		{"SOC 2 compliance", "set up SOC 2 compliance"},
		{"IoT solutions for farms", "implement IoT solutions for farms"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, imperativeTopic(tc.in), "input %q", tc.in)
	}
}

func TestDeriveHowTo(t *testing.T) {
	brand := &core.Brand{Name: "CiteGap"}
	d := derive(core.MemoHowTo, brand, nil, "How to reduce fleet costs?", "")
	assert.Equal(t, "how/reduce-fleet-costs", d.Slug)
	assert.Equal(t, "How to reduce fleet costs", d.Title)
}

func TestDefaultValidate(t *testing.T) {
	long := strings.Repeat("Useful article content about visibility. ", 10)

	assert.NoError(t, DefaultValidate(long))
	assert.ErrorIs(t, DefaultValidate("too short"), ErrLowQuality)
	assert.ErrorIs(t, DefaultValidate("I'm sorry, but I cannot write this article. "+long), ErrLowQuality)
	// Refusal phrases past the first 200 characters do not trip the check.
	assert.NoError(t, DefaultValidate(long+" some buyers say \"please provide a demo\" before committing."))
}
