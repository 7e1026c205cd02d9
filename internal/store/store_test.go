package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citegap/citegap/internal/core"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "citegap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedTestBrand(t *testing.T, s *SQLiteStore) *core.Brand {
	t.Helper()
	b := &core.Brand{TenantID: "t1", Name: "CiteGap", Domain: "citegap.example.com"}
	b.Context.Products = []string{"citation tracking"}
	b.Context.ExistingPages = []core.SitePage{{URL: "/pricing", Title: "Pricing"}}
	require.NoError(t, s.UpsertBrand(context.Background(), b))
	return b
}

func TestBrandRoundTrip(t *testing.T) {
	s := newTestStore(t)
	b := seedTestBrand(t, s)

	got, err := s.GetBrand(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "CiteGap", got.Name)
	// The context blob survives the JSON column.
	assert.Equal(t, []string{"citation tracking"}, got.Context.Products)
	require.Len(t, got.Context.ExistingPages, 1)
	assert.Equal(t, "/pricing", got.Context.ExistingPages[0].URL)
}

func TestGetBrandNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetBrand(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertQueriesIgnoresDuplicates(t *testing.T) {
	s := newTestStore(t)
	b := seedTestBrand(t, s)
	ctx := context.Background()

	inserted, err := s.UpsertQueries(ctx, []core.Query{
		{BrandID: b.ID, Text: "best crm for startups", Type: core.QueryBestOf, IsActive: true},
		{BrandID: b.ID, Text: "crm vs spreadsheet", Type: core.QueryComparison, IsActive: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// One duplicate, one new: only the new row counts.
	inserted, err = s.UpsertQueries(ctx, []core.Query{
		{BrandID: b.ID, Text: "best crm for startups", Type: core.QueryBestOf, IsActive: true},
		{BrandID: b.ID, Text: "how to pick a crm", Type: core.QueryHowTo, IsActive: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	queries, err := s.ListQueries(ctx, QueryListOpts{BrandID: b.ID})
	require.NoError(t, err)
	assert.Len(t, queries, 3)
}

func TestUpsertCompetitorsCaseInsensitiveGuard(t *testing.T) {
	s := newTestStore(t)
	b := seedTestBrand(t, s)
	ctx := context.Background()

	inserted, err := s.UpsertCompetitors(ctx, []core.Competitor{
		{BrandID: b.ID, Name: "Acme Corp", IsActive: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	inserted, err = s.UpsertCompetitors(ctx, []core.Competitor{
		{BrandID: b.ID, Name: "ACME CORP", IsActive: true},
	})
	require.NoError(t, err)
	assert.Zero(t, inserted)

	competitors, err := s.ListCompetitors(ctx, b.ID, true)
	require.NoError(t, err)
	require.Len(t, competitors, 1)
	assert.Equal(t, "Acme Corp", competitors[0].Name)
}

func TestUpsertMemoIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	b := seedTestBrand(t, s)
	ctx := context.Background()

	first := &core.Memo{
		BrandID: b.ID, Type: core.MemoComparison, Slug: "vs/acme-corp",
		Title: "CiteGap vs Acme Corp", Content: "first draft",
		Status: core.MemoDraft, Version: 1, LastVerifiedAt: time.Now().UTC(),
	}
	require.NoError(t, s.UpsertMemo(ctx, first))

	second := &core.Memo{
		BrandID: b.ID, Type: core.MemoComparison, Slug: "vs/acme-corp",
		Title: "CiteGap vs Acme Corp", Content: "regenerated content",
		Status: core.MemoDraft, Version: 2, LastVerifiedAt: time.Now().UTC(),
	}
	require.NoError(t, s.UpsertMemo(ctx, second))

	// The original row id survives the conflict.
	assert.Equal(t, first.ID, second.ID)

	memos, err := s.ListMemos(ctx, MemoListOpts{BrandID: b.ID})
	require.NoError(t, err)
	require.Len(t, memos, 1)
	assert.Equal(t, "regenerated content", memos[0].Content)
	assert.Equal(t, 2, memos[0].Version)
}

func TestGetMemoBySlugAndUpdateContent(t *testing.T) {
	s := newTestStore(t)
	b := seedTestBrand(t, s)
	ctx := context.Background()

	m := &core.Memo{
		BrandID: b.ID, Type: core.MemoHowTo, Slug: "how/pick-a-crm",
		Title: "How to pick a CRM", Content: "original",
		Sources: []string{"https://example.com"},
		Status:  core.MemoPublished, Version: 1, LastVerifiedAt: time.Now().UTC(),
	}
	require.NoError(t, s.UpsertMemo(ctx, m))

	got, err := s.GetMemoBySlug(ctx, b.ID, "how/pick-a-crm")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com"}, got.Sources)

	require.NoError(t, s.UpdateMemoContent(ctx, m.ID, "relinked", 2))
	got, err = s.GetMemo(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "relinked", got.Content)
	assert.Equal(t, 2, got.Version)

	assert.ErrorIs(t, s.UpdateMemoContent(ctx, "missing", "x", 1), ErrNotFound)
}

func TestListScanResultsWindow(t *testing.T) {
	s := newTestStore(t)
	b := seedTestBrand(t, s)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.InsertScanResult(ctx, &core.ScanResult{
		BrandID: b.ID, QueryID: "q1", QueryText: "best crm", ScannedAt: now.Add(-time.Hour),
		CompetitorsMentioned: []string{"Acme"},
	}))
	require.NoError(t, s.InsertScanResult(ctx, &core.ScanResult{
		BrandID: b.ID, QueryID: "q1", QueryText: "best crm", ScannedAt: now.Add(-48 * time.Hour),
	}))

	results, err := s.ListScanResults(ctx, b.ID, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"Acme"}, results[0].CompetitorsMentioned)
}

func TestAlertsAndVersionsAppendOnly(t *testing.T) {
	s := newTestStore(t)
	b := seedTestBrand(t, s)
	ctx := context.Background()

	require.NoError(t, s.InsertAlert(ctx, &core.Alert{
		BrandID: b.ID, Type: "memo_skipped", Title: "skipped", Message: "existing page",
		Severity: core.SeverityInfo, Data: map[string]any{"score": 60},
	}))
	alerts, err := s.ListAlerts(ctx, b.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, float64(60), alerts[0].Data["score"])

	require.NoError(t, s.AddMemoVersion(ctx, &core.MemoVersion{
		MemoID: "m1", Version: 1, Content: "v1", ChangeReason: "generated",
	}))
	require.NoError(t, s.AddMemoVersion(ctx, &core.MemoVersion{
		MemoID: "m1", Version: 2, Content: "v2", ChangeReason: "regenerated",
	}))
}
