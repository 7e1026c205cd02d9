// Package storetest provides an in-memory Store for tests. It mirrors the
// SQLite implementation's natural-key upsert semantics so idempotency
// behavior can be asserted without a database file.
package storetest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/citegap/citegap/internal/core"
	"github.com/citegap/citegap/internal/store"
)

// Fake is an in-memory store.Store.
type Fake struct {
	mu           sync.Mutex
	Brands       map[string]*core.Brand
	Queries      map[string]*core.Query
	Competitors  map[string]*core.Competitor
	Scans        []core.ScanResult
	Memos        map[string]*core.Memo // keyed by id
	MemoVersions []core.MemoVersion
	Alerts       []core.Alert
	FeedEvents   []core.FeedEvent
	VoiceQuotes  []core.VoiceQuote
}

func New() *Fake {
	return &Fake{
		Brands:      map[string]*core.Brand{},
		Queries:     map[string]*core.Query{},
		Competitors: map[string]*core.Competitor{},
		Memos:       map[string]*core.Memo{},
	}
}

var _ store.Store = (*Fake)(nil)

func (f *Fake) UpsertBrand(_ context.Context, b *core.Brand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	cp := *b
	f.Brands[b.ID] = &cp
	return nil
}

func (f *Fake) GetBrand(_ context.Context, id string) (*core.Brand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.Brands[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *Fake) ListBrands(_ context.Context) ([]core.Brand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.Brand, 0, len(f.Brands))
	for _, b := range f.Brands {
		out = append(out, *b)
	}
	return out, nil
}

func (f *Fake) InsertScanResult(_ context.Context, r *core.ScanResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	f.Scans = append(f.Scans, *r)
	return nil
}

func (f *Fake) ListScanResults(_ context.Context, brandID string, since time.Time) ([]core.ScanResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.ScanResult
	for _, s := range f.Scans {
		if s.BrandID == brandID && !s.ScannedAt.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *Fake) GetQuery(_ context.Context, id string) (*core.Query, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.Queries[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (f *Fake) ListQueries(_ context.Context, opts store.QueryListOpts) ([]core.Query, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Query
	for _, q := range f.Queries {
		if q.BrandID != opts.BrandID {
			continue
		}
		if opts.ActiveOnly && !q.IsActive {
			continue
		}
		out = append(out, *q)
	}
	return out, nil
}

func (f *Fake) UpsertQueries(_ context.Context, queries []core.Query) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inserted := 0
	for i := range queries {
		q := queries[i]
		if f.queryExists(q.BrandID, q.Text) {
			continue
		}
		if q.ID == "" {
			q.ID = uuid.New().String()
		}
		f.Queries[q.ID] = &q
		inserted++
	}
	return inserted, nil
}

func (f *Fake) queryExists(brandID, text string) bool {
	for _, q := range f.Queries {
		if q.BrandID == brandID && q.Text == text {
			return true
		}
	}
	return false
}

func (f *Fake) GetCompetitor(_ context.Context, id string) (*core.Competitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.Competitors[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *Fake) ListCompetitors(_ context.Context, brandID string, activeOnly bool) ([]core.Competitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Competitor
	for _, c := range f.Competitors {
		if c.BrandID != brandID {
			continue
		}
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (f *Fake) UpsertCompetitors(_ context.Context, competitors []core.Competitor) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inserted := 0
	for i := range competitors {
		c := competitors[i]
		if f.competitorExists(c.BrandID, c.Name) {
			continue
		}
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		f.Competitors[c.ID] = &c
		inserted++
	}
	return inserted, nil
}

func (f *Fake) competitorExists(brandID, name string) bool {
	for _, c := range f.Competitors {
		if c.BrandID == brandID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (f *Fake) UpdateCompetitorContext(_ context.Context, id string, cc core.CompetitorContext) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.Competitors[id]
	if !ok {
		return store.ErrNotFound
	}
	c.Context = cc
	return nil
}

func (f *Fake) GetMemo(_ context.Context, id string) (*core.Memo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.Memos[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *Fake) GetMemoBySlug(_ context.Context, brandID, slug string) (*core.Memo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.Memos {
		if m.BrandID == brandID && m.Slug == slug {
			cp := *m
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *Fake) ListMemos(_ context.Context, opts store.MemoListOpts) ([]core.Memo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Memo
	for _, m := range f.Memos {
		if m.BrandID != opts.BrandID {
			continue
		}
		if opts.Status != "" && m.Status != opts.Status {
			continue
		}
		if !opts.CreatedSince.IsZero() && m.CreatedAt.Before(opts.CreatedSince) {
			continue
		}
		if !opts.PublishedSince.IsZero() && (m.PublishedAt == nil || m.PublishedAt.Before(opts.PublishedSince)) {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (f *Fake) UpsertMemo(_ context.Context, m *core.Memo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.Memos {
		if existing.BrandID == m.BrandID && existing.Slug == m.Slug {
			m.ID = existing.ID
			m.CreatedAt = existing.CreatedAt
			cp := *m
			f.Memos[existing.ID] = &cp
			return nil
		}
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	cp := *m
	f.Memos[m.ID] = &cp
	return nil
}

func (f *Fake) UpdateMemoContent(_ context.Context, id, content string, version int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.Memos[id]
	if !ok {
		return store.ErrNotFound
	}
	m.Content = content
	m.Version = version
	m.UpdatedAt = time.Now()
	return nil
}

func (f *Fake) AddMemoVersion(_ context.Context, v *core.MemoVersion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	f.MemoVersions = append(f.MemoVersions, *v)
	return nil
}

func (f *Fake) InsertAlert(_ context.Context, a *core.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	f.Alerts = append(f.Alerts, *a)
	return nil
}

func (f *Fake) ListAlerts(_ context.Context, brandID string, since time.Time) ([]core.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Alert
	for _, a := range f.Alerts {
		if a.BrandID == brandID && !a.CreatedAt.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *Fake) InsertFeedEvent(_ context.Context, e *core.FeedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	f.FeedEvents = append(f.FeedEvents, *e)
	return nil
}

func (f *Fake) ListVoiceQuotes(_ context.Context, brandID string, limit int) ([]core.VoiceQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.VoiceQuote
	for _, q := range f.VoiceQuotes {
		if q.BrandID != brandID || !q.IsActive || !q.Verified {
			continue
		}
		out = append(out, q)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *Fake) Close() error { return nil }

// AlertsOfType filters recorded alerts by type.
func (f *Fake) AlertsOfType(alertType string) []core.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Alert
	for _, a := range f.Alerts {
		if a.Type == alertType {
			out = append(out, a)
		}
	}
	return out
}
