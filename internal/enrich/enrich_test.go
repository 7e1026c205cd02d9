package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citegap/citegap/internal/config"
	"github.com/citegap/citegap/internal/core"
	"github.com/citegap/citegap/internal/store/storetest"
)

const homepage = `<html><head>
<title>Acme Corp - Fleet Intelligence</title>
<meta name="description" content="Telematics for modern fleets">
</head><body>
<h1>Fleet tracking without the spreadsheet</h1>
<h2>Route optimization</h2>
<h2>Driver safety scores</h2>
</body></html>`

type stubCompletion struct {
	response string
	prompts  []string
}

func (s *stubCompletion) Complete(_ context.Context, prompt string, _ float32) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.response, nil
}

func TestEnrichBrandRefreshesContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(homepage))
	}))
	defer srv.Close()

	f := storetest.New()
	f.Competitors["c1"] = &core.Competitor{
		ID: "c1", BrandID: "brand-1", Name: "Acme Corp", Domain: srv.URL, IsActive: true,
		Context: core.CompetitorContext{EnrichmentVersion: 1},
	}
	// No domain: must be skipped, not failed.
	f.Competitors["c2"] = &core.Competitor{ID: "c2", BrandID: "brand-1", Name: "Globex", IsActive: true}

	completion := &stubCompletion{response: "```json\n" +
		`{"products":["Fleet tracking","Route optimization"],"differentiators":["spreadsheet-free telematics"]}` +
		"\n```"}

	e := New(f, completion, config.Enrichment{Concurrency: 2, RatePerMinute: 600})
	enriched, err := e.EnrichBrand(context.Background(), "brand-1")
	require.NoError(t, err)
	assert.Equal(t, 1, enriched)

	c1, err := f.GetCompetitor(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Fleet tracking", "Route optimization"}, c1.Context.Products)
	assert.Equal(t, []string{"spreadsheet-free telematics"}, c1.Context.Differentiators)
	assert.Equal(t, 2, c1.Context.EnrichmentVersion)
	assert.False(t, c1.Context.EnrichedAt.IsZero())

	// Extracted page text reaches the distill prompt.
	require.Len(t, completion.prompts, 1)
	assert.Contains(t, completion.prompts[0], "Fleet Intelligence")
	assert.Contains(t, completion.prompts[0], "Telematics for modern fleets")
	assert.Contains(t, completion.prompts[0], "Driver safety scores")
}

func TestEnrichBrandSurvivesFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := storetest.New()
	f.Competitors["c1"] = &core.Competitor{
		ID: "c1", BrandID: "brand-1", Name: "Acme Corp", Domain: srv.URL, IsActive: true,
	}

	e := New(f, &stubCompletion{response: "{}"}, config.Enrichment{Concurrency: 1, RatePerMinute: 600})
	enriched, err := e.EnrichBrand(context.Background(), "brand-1")
	require.NoError(t, err)
	assert.Zero(t, enriched)
}
