package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citegap/citegap/internal/alerts"
	"github.com/citegap/citegap/internal/core"
	"github.com/citegap/citegap/internal/redundancy"
	"github.com/citegap/citegap/internal/store/storetest"
)

type stubCompletion struct {
	response string
	err      error
	calls    int
}

func (s *stubCompletion) Complete(_ context.Context, _ string, _ float32) (string, error) {
	s.calls++
	return s.response, s.err
}

type stubSync struct {
	calls int
	err   error
}

func (s *stubSync) Push(_ context.Context, _ *core.Brand, _ *core.Memo) error {
	s.calls++
	return s.err
}

func validArticle() string {
	return "*Last verified: January 5, 2026*\n\n" +
		"CiteGap and Acme Corp approach citation tracking differently. " +
		strings.Repeat("Buyers comparing the two should weigh data freshness against breadth of coverage. ", 5) +
		"\n\n## Sources\n- https://acme.example.com/pricing\n- https://citegap.example.com/docs\n"
}

func seedBrand(f *storetest.Fake, autoPublish bool, pages []core.SitePage) *core.Brand {
	brand := &core.Brand{
		ID:          "brand-1",
		Name:        "CiteGap",
		Domain:      "citegap.example.com",
		AutoPublish: autoPublish,
	}
	brand.Context.ExistingPages = pages
	f.Brands[brand.ID] = brand
	return brand
}

func seedCompetitor(f *storetest.Fake, name string) *core.Competitor {
	c := &core.Competitor{ID: "comp-1", BrandID: "brand-1", Name: name, IsActive: true}
	f.Competitors[c.ID] = c
	return c
}

func TestGeneratePersistsAndPublishes(t *testing.T) {
	f := storetest.New()
	seedBrand(f, true, nil)
	seedCompetitor(f, "Acme Corp")
	completion := &stubCompletion{response: validArticle()}
	sync := &stubSync{}

	g := New(f, completion, redundancy.NewChecker(redundancy.DefaultWeights()))
	g.SetSync(sync)

	res, err := g.Generate(context.Background(), Request{
		BrandID:      "brand-1",
		MemoType:     core.MemoComparison,
		CompetitorID: "comp-1",
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeGenerated, res.Outcome)

	memo := res.Memo
	assert.Equal(t, "vs/acme-corp", memo.Slug)
	assert.Equal(t, core.MemoPublished, memo.Status)
	require.NotNil(t, memo.PublishedAt)
	assert.Equal(t, 1, memo.Version)
	assert.Len(t, memo.Sources, 2)
	assert.NotEmpty(t, memo.MetaDescription)
	assert.Equal(t, 1, sync.calls)

	require.Len(t, f.MemoVersions, 1)
	assert.Equal(t, "generated", f.MemoVersions[0].ChangeReason)
	assert.Len(t, f.AlertsOfType(alerts.TypeMemoPublished), 1)
	assert.Len(t, f.FeedEvents, 1)
}

func TestGenerateRegenerationIncrementsVersion(t *testing.T) {
	f := storetest.New()
	seedBrand(f, false, nil)
	seedCompetitor(f, "Acme Corp")
	completion := &stubCompletion{response: validArticle()}

	g := New(f, completion, redundancy.NewChecker(redundancy.DefaultWeights()))
	req := Request{BrandID: "brand-1", MemoType: core.MemoComparison, CompetitorID: "comp-1"}

	first, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	second, err := g.Generate(context.Background(), req)
	require.NoError(t, err)

	// Same row, bumped version, one memo total.
	assert.Equal(t, first.Memo.ID, second.Memo.ID)
	assert.Equal(t, 2, second.Memo.Version)
	assert.Len(t, f.Memos, 1)
	require.Len(t, f.MemoVersions, 2)
	assert.Equal(t, "regenerated", f.MemoVersions[1].ChangeReason)
	// Draft brand: no publish timestamp.
	assert.Equal(t, core.MemoDraft, second.Memo.Status)
	assert.Nil(t, second.Memo.PublishedAt)
}

func TestGenerateSkipsWhenPageAlreadyCovers(t *testing.T) {
	f := storetest.New()
	seedBrand(f, true, []core.SitePage{{Title: "Acme", URL: "/vs/acme"}})
	f.Competitors["comp-1"] = &core.Competitor{ID: "comp-1", BrandID: "brand-1", Name: "Acme", IsActive: true}
	completion := &stubCompletion{response: validArticle()}

	g := New(f, completion, redundancy.NewChecker(redundancy.DefaultWeights()))
	res, err := g.Generate(context.Background(), Request{
		BrandID:      "brand-1",
		MemoType:     core.MemoComparison,
		CompetitorID: "comp-1",
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.GreaterOrEqual(t, res.Score, 50)
	// No completion spent, no memo written, exactly one informational alert.
	assert.Zero(t, completion.calls)
	assert.Empty(t, f.Memos)
	skips := f.AlertsOfType(alerts.TypeMemoSkipped)
	require.Len(t, skips, 1)
	assert.Equal(t, core.SeverityInfo, skips[0].Severity)
}

func TestGenerateSkipsIndustryCoveredByMarketPage(t *testing.T) {
	f := storetest.New()
	// The page covers a brand market, not the resolved industry itself.
	brand := seedBrand(f, true, []core.SitePage{{
		Title:       "Logistics solutions",
		URL:         "/industries/logistics",
		Topics:      []string{"logistics"},
		ContentType: "industry",
	}})
	brand.Context.Markets = []string{"logistics"}
	completion := &stubCompletion{response: validArticle()}

	g := New(f, completion, redundancy.NewChecker(redundancy.DefaultWeights()))
	res, err := g.Generate(context.Background(), Request{
		BrandID:   "brand-1",
		MemoType:  core.MemoIndustry,
		TopicHint: "supply chain",
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.GreaterOrEqual(t, res.Score, 50)
	assert.Zero(t, completion.calls)
	assert.Empty(t, f.Memos)
}

func TestGenerateSkipsHowToCoveredByProductPage(t *testing.T) {
	f := storetest.New()
	brand := seedBrand(f, true, []core.SitePage{{
		Title:  "Fleet tracking guide",
		Topics: []string{"fleet tracking"},
	}})
	brand.Context.Products = []string{"fleet tracking"}
	completion := &stubCompletion{response: validArticle()}

	g := New(f, completion, redundancy.NewChecker(redundancy.DefaultWeights()))
	res, err := g.Generate(context.Background(), Request{
		BrandID:   "brand-1",
		MemoType:  core.MemoHowTo,
		TopicHint: "how to cut delivery delays",
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.Zero(t, completion.calls)
}

func TestRedundancyRequestCarriesContextKeywords(t *testing.T) {
	f := storetest.New()
	brand := seedBrand(f, true, nil)
	brand.Context.Markets = []string{"logistics"}
	brand.Context.Products = []string{"fleet tracking"}
	competitor := &core.Competitor{ID: "comp-1", BrandID: "brand-1", Name: "Acme Corp"}
	competitor.Context.Products = []string{"route optimizer"}

	g := New(f, &stubCompletion{}, redundancy.NewChecker(redundancy.DefaultWeights()))

	comp := g.redundancyRequest(core.MemoComparison, brand, competitor, derivation{Topic: "supply chain"}, "")
	assert.Contains(t, comp.Topics, "route optimizer")
	assert.Contains(t, comp.Topics, "CiteGap vs Acme Corp")

	ind := g.redundancyRequest(core.MemoIndustry, brand, nil, derivation{Topic: "supply chain"}, "")
	assert.Contains(t, ind.IndustryKeywords, "supply chain")
	assert.Contains(t, ind.IndustryKeywords, "logistics")

	howTo := g.redundancyRequest(core.MemoHowTo, brand, nil, derivation{Topic: "cut delivery delays"}, "how to cut delivery delays")
	assert.Contains(t, howTo.TopicKeywords, "fleet tracking")
	assert.Contains(t, howTo.Topics, "cut delivery delays")
}

func TestGenerateRejectsRefusal(t *testing.T) {
	f := storetest.New()
	seedBrand(f, true, nil)
	seedCompetitor(f, "Acme Corp")
	completion := &stubCompletion{response: "I'm sorry, I cannot write promotional content." + strings.Repeat(" padding", 40)}

	g := New(f, completion, redundancy.NewChecker(redundancy.DefaultWeights()))
	_, err := g.Generate(context.Background(), Request{
		BrandID:      "brand-1",
		MemoType:     core.MemoComparison,
		CompetitorID: "comp-1",
	})
	require.ErrorIs(t, err, ErrLowQuality)
	assert.Empty(t, f.Memos)
	assert.Empty(t, f.MemoVersions)
}

func TestGenerateSyncFailureDoesNotFailResult(t *testing.T) {
	f := storetest.New()
	seedBrand(f, true, nil)
	seedCompetitor(f, "Acme Corp")
	completion := &stubCompletion{response: validArticle()}
	sync := &stubSync{err: errors.New("webhook 503")}

	g := New(f, completion, redundancy.NewChecker(redundancy.DefaultWeights()))
	g.SetSync(sync)

	res, err := g.Generate(context.Background(), Request{
		BrandID:      "brand-1",
		MemoType:     core.MemoComparison,
		CompetitorID: "comp-1",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeGenerated, res.Outcome)
	assert.Equal(t, 1, sync.calls)
}

func TestGenerateRequiresCompetitorForComparison(t *testing.T) {
	f := storetest.New()
	seedBrand(f, true, nil)
	g := New(f, &stubCompletion{response: validArticle()}, redundancy.NewChecker(redundancy.DefaultWeights()))

	_, err := g.Generate(context.Background(), Request{BrandID: "brand-1", MemoType: core.MemoComparison})
	assert.Error(t, err)
}
