package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/citegap/citegap/internal/core"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// QueryListOpts controls query listing.
type QueryListOpts struct {
	BrandID    string
	ActiveOnly bool
}

// MemoListOpts controls memo listing.
type MemoListOpts struct {
	BrandID        string
	Status         core.MemoStatus
	CreatedSince   time.Time
	PublishedSince time.Time
}

// Store is the persistence interface. Every write is an upsert keyed on a
// natural unique key, so retried stages never double-apply.
type Store interface {
	UpsertBrand(ctx context.Context, b *core.Brand) error
	GetBrand(ctx context.Context, id string) (*core.Brand, error)
	ListBrands(ctx context.Context) ([]core.Brand, error)

	InsertScanResult(ctx context.Context, r *core.ScanResult) error
	ListScanResults(ctx context.Context, brandID string, since time.Time) ([]core.ScanResult, error)

	GetQuery(ctx context.Context, id string) (*core.Query, error)
	ListQueries(ctx context.Context, opts QueryListOpts) ([]core.Query, error)
	UpsertQueries(ctx context.Context, queries []core.Query) (int, error)

	GetCompetitor(ctx context.Context, id string) (*core.Competitor, error)
	ListCompetitors(ctx context.Context, brandID string, activeOnly bool) ([]core.Competitor, error)
	UpsertCompetitors(ctx context.Context, competitors []core.Competitor) (int, error)
	UpdateCompetitorContext(ctx context.Context, id string, cc core.CompetitorContext) error

	GetMemo(ctx context.Context, id string) (*core.Memo, error)
	GetMemoBySlug(ctx context.Context, brandID, slug string) (*core.Memo, error)
	ListMemos(ctx context.Context, opts MemoListOpts) ([]core.Memo, error)
	UpsertMemo(ctx context.Context, m *core.Memo) error
	UpdateMemoContent(ctx context.Context, id, content string, version int) error
	AddMemoVersion(ctx context.Context, v *core.MemoVersion) error

	InsertAlert(ctx context.Context, a *core.Alert) error
	ListAlerts(ctx context.Context, brandID string, since time.Time) ([]core.Alert, error)
	InsertFeedEvent(ctx context.Context, e *core.FeedEvent) error
	ListVoiceQuotes(ctx context.Context, brandID string, limit int) ([]core.VoiceQuote, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertBrand(ctx context.Context, b *core.Brand) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	ctxJSON, _ := json.Marshal(b.Context)
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO brands (id, tenant_id, name, domain, subdomain, auto_publish, visibility_score, context, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			domain = excluded.domain,
			subdomain = excluded.subdomain,
			auto_publish = excluded.auto_publish,
			visibility_score = excluded.visibility_score,
			context = excluded.context,
			updated_at = excluded.updated_at
	`, b.ID, b.TenantID, b.Name, b.Domain, b.Subdomain, b.AutoPublish,
		b.VisibilityScore, string(ctxJSON), b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert brand %s: %w", b.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetBrand(ctx context.Context, id string) (*core.Brand, error) {
	var b core.Brand
	err := s.db.GetContext(ctx, &b, "SELECT * FROM brands WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("brand %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get brand %s: %w", id, err)
	}
	json.Unmarshal([]byte(b.ContextJSON), &b.Context)
	return &b, nil
}

func (s *SQLiteStore) ListBrands(ctx context.Context) ([]core.Brand, error) {
	var brands []core.Brand
	if err := s.db.SelectContext(ctx, &brands, "SELECT * FROM brands ORDER BY created_at"); err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	for i := range brands {
		json.Unmarshal([]byte(brands[i].ContextJSON), &brands[i].Context)
	}
	return brands, nil
}

func (s *SQLiteStore) InsertScanResult(ctx context.Context, r *core.ScanResult) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	compJSON, _ := json.Marshal(r.CompetitorsMentioned)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_results (id, brand_id, query_id, query_text, query_type, scanned_at,
			brand_mentioned, brand_in_citations, is_first_citation, competitors_mentioned, response_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.BrandID, r.QueryID, r.QueryText, r.QueryType, r.ScannedAt,
		r.BrandMentioned, r.BrandInCitations, r.IsFirstCitation, string(compJSON), r.ResponseText)
	if err != nil {
		return fmt.Errorf("insert scan result: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListScanResults(ctx context.Context, brandID string, since time.Time) ([]core.ScanResult, error) {
	var results []core.ScanResult
	err := s.db.SelectContext(ctx, &results, `
		SELECT * FROM scan_results
		WHERE brand_id = ? AND scanned_at >= ?
		ORDER BY scanned_at
	`, brandID, since)
	if err != nil {
		return nil, fmt.Errorf("list scan results: %w", err)
	}
	for i := range results {
		json.Unmarshal([]byte(results[i].CompetitorsMentionedJSON), &results[i].CompetitorsMentioned)
	}
	return results, nil
}

func (s *SQLiteStore) GetQuery(ctx context.Context, id string) (*core.Query, error) {
	var q core.Query
	err := s.db.GetContext(ctx, &q, "SELECT * FROM queries WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get query %s: %w", id, err)
	}
	return &q, nil
}

func (s *SQLiteStore) ListQueries(ctx context.Context, opts QueryListOpts) ([]core.Query, error) {
	query := "SELECT * FROM queries WHERE brand_id = ?"
	args := []any{opts.BrandID}
	if opts.ActiveOnly {
		query += " AND is_active = 1"
	}
	query += " ORDER BY priority DESC, created_at"

	var queries []core.Query
	if err := s.db.SelectContext(ctx, &queries, query, args...); err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	return queries, nil
}

// UpsertQueries inserts tracked queries with duplicate-ignore semantics on
// (brand_id, text). The returned count covers only rows actually inserted.
func (s *SQLiteStore) UpsertQueries(ctx context.Context, queries []core.Query) (int, error) {
	inserted := 0
	for i := range queries {
		q := &queries[i]
		if q.ID == "" {
			q.ID = uuid.New().String()
		}
		if q.CreatedAt.IsZero() {
			q.CreatedAt = time.Now().UTC()
		}
		if q.CurrentStatus == "" {
			q.CurrentStatus = core.QueryStatusPending
		}
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO queries (id, brand_id, text, type, priority, auto_discovered, is_active,
				related_competitor_id, current_status, citation_streak, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(brand_id, text) DO NOTHING
		`, q.ID, q.BrandID, q.Text, q.Type, q.Priority, q.AutoDiscovered, q.IsActive,
			q.RelatedCompetitorID, q.CurrentStatus, q.CitationStreak, q.CreatedAt)
		if err != nil {
			return inserted, fmt.Errorf("upsert query %q: %w", q.Text, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, nil
}

func (s *SQLiteStore) GetCompetitor(ctx context.Context, id string) (*core.Competitor, error) {
	var c core.Competitor
	err := s.db.GetContext(ctx, &c, "SELECT * FROM competitors WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("competitor %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get competitor %s: %w", id, err)
	}
	json.Unmarshal([]byte(c.ContextJSON), &c.Context)
	return &c, nil
}

func (s *SQLiteStore) ListCompetitors(ctx context.Context, brandID string, activeOnly bool) ([]core.Competitor, error) {
	query := "SELECT * FROM competitors WHERE brand_id = ?"
	if activeOnly {
		query += " AND is_active = 1"
	}
	query += " ORDER BY created_at"

	var competitors []core.Competitor
	if err := s.db.SelectContext(ctx, &competitors, query, brandID); err != nil {
		return nil, fmt.Errorf("list competitors: %w", err)
	}
	for i := range competitors {
		json.Unmarshal([]byte(competitors[i].ContextJSON), &competitors[i].Context)
	}
	return competitors, nil
}

// UpsertCompetitors inserts competitors with duplicate-ignore semantics. The
// unique index on (brand_id, name COLLATE NOCASE) rejects case-insensitive
// name collisions with existing rows.
func (s *SQLiteStore) UpsertCompetitors(ctx context.Context, competitors []core.Competitor) (int, error) {
	inserted := 0
	for i := range competitors {
		c := &competitors[i]
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now().UTC()
		}
		ctxJSON, _ := json.Marshal(c.Context)
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO competitors (id, brand_id, name, domain, context, auto_discovered, is_active, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, c.ID, c.BrandID, c.Name, c.Domain, string(ctxJSON), c.AutoDiscovered, c.IsActive, c.CreatedAt)
		if err != nil {
			return inserted, fmt.Errorf("upsert competitor %q: %w", c.Name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, nil
}

func (s *SQLiteStore) UpdateCompetitorContext(ctx context.Context, id string, cc core.CompetitorContext) error {
	ctxJSON, _ := json.Marshal(cc)
	res, err := s.db.ExecContext(ctx, "UPDATE competitors SET context = ? WHERE id = ?", string(ctxJSON), id)
	if err != nil {
		return fmt.Errorf("update competitor context %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("competitor %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) GetMemo(ctx context.Context, id string) (*core.Memo, error) {
	var m core.Memo
	err := s.db.GetContext(ctx, &m, "SELECT * FROM memos WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("memo %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get memo %s: %w", id, err)
	}
	unmarshalMemo(&m)
	return &m, nil
}

func (s *SQLiteStore) GetMemoBySlug(ctx context.Context, brandID, slug string) (*core.Memo, error) {
	var m core.Memo
	err := s.db.GetContext(ctx, &m, "SELECT * FROM memos WHERE brand_id = ? AND slug = ?", brandID, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("memo %s/%s: %w", brandID, slug, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get memo by slug %s: %w", slug, err)
	}
	unmarshalMemo(&m)
	return &m, nil
}

func (s *SQLiteStore) ListMemos(ctx context.Context, opts MemoListOpts) ([]core.Memo, error) {
	query := "SELECT * FROM memos WHERE brand_id = ?"
	args := []any{opts.BrandID}
	if opts.Status != "" {
		query += " AND status = ?"
		args = append(args, opts.Status)
	}
	if !opts.CreatedSince.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, opts.CreatedSince)
	}
	if !opts.PublishedSince.IsZero() {
		query += " AND published_at IS NOT NULL AND published_at >= ?"
		args = append(args, opts.PublishedSince)
	}
	query += " ORDER BY created_at"

	var memos []core.Memo
	if err := s.db.SelectContext(ctx, &memos, query, args...); err != nil {
		return nil, fmt.Errorf("list memos: %w", err)
	}
	for i := range memos {
		unmarshalMemo(&memos[i])
	}
	return memos, nil
}

// UpsertMemo writes a memo keyed on (brand_id, slug): regenerating the same
// slug overwrites in place, never duplicates. On conflict the existing row id
// survives and the caller's Memo is updated to match.
func (s *SQLiteStore) UpsertMemo(ctx context.Context, m *core.Memo) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	sdJSON, _ := json.Marshal(m.StructuredData)
	srcJSON, _ := json.Marshal(m.Sources)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memos (id, brand_id, source_query_id, memo_type, slug, title, content,
			meta_description, structured_data, sources, status, published_at, version,
			last_verified_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(brand_id, slug) DO UPDATE SET
			source_query_id = excluded.source_query_id,
			memo_type = excluded.memo_type,
			title = excluded.title,
			content = excluded.content,
			meta_description = excluded.meta_description,
			structured_data = excluded.structured_data,
			sources = excluded.sources,
			status = excluded.status,
			published_at = excluded.published_at,
			version = excluded.version,
			last_verified_at = excluded.last_verified_at,
			updated_at = excluded.updated_at
	`, m.ID, m.BrandID, m.SourceQueryID, m.Type, m.Slug, m.Title, m.Content,
		m.MetaDescription, string(sdJSON), string(srcJSON), m.Status, m.PublishedAt,
		m.Version, m.LastVerifiedAt, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert memo %s: %w", m.Slug, err)
	}

	// On conflict the insert id was discarded; read back the surviving row id.
	var id string
	if err := s.db.GetContext(ctx, &id, "SELECT id FROM memos WHERE brand_id = ? AND slug = ?", m.BrandID, m.Slug); err != nil {
		return fmt.Errorf("read back memo %s: %w", m.Slug, err)
	}
	m.ID = id
	return nil
}

func (s *SQLiteStore) UpdateMemoContent(ctx context.Context, id, content string, version int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE memos SET content = ?, version = ?, updated_at = ? WHERE id = ?
	`, content, version, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update memo content %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("memo %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) AddMemoVersion(ctx context.Context, v *core.MemoVersion) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memo_versions (id, memo_id, version, content, change_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, v.ID, v.MemoID, v.Version, v.Content, v.ChangeReason, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("add memo version: %w", err)
	}
	return nil
}

func (s *SQLiteStore) InsertAlert(ctx context.Context, a *core.Alert) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	dataJSON, _ := json.Marshal(a.Data)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, brand_id, type, title, message, severity, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.BrandID, a.Type, a.Title, a.Message, a.Severity, string(dataJSON), a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListAlerts(ctx context.Context, brandID string, since time.Time) ([]core.Alert, error) {
	var alerts []core.Alert
	err := s.db.SelectContext(ctx, &alerts, `
		SELECT * FROM alerts WHERE brand_id = ? AND created_at >= ? ORDER BY created_at
	`, brandID, since)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	for i := range alerts {
		json.Unmarshal([]byte(alerts[i].DataJSON), &alerts[i].Data)
	}
	return alerts, nil
}

func (s *SQLiteStore) InsertFeedEvent(ctx context.Context, e *core.FeedEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	dataJSON, _ := json.Marshal(e.Data)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feed_events (id, brand_id, type, title, description, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.BrandID, e.Type, e.Title, e.Description, string(dataJSON), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert feed event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListVoiceQuotes(ctx context.Context, brandID string, limit int) ([]core.VoiceQuote, error) {
	if limit <= 0 {
		limit = 10
	}
	var quotes []core.VoiceQuote
	err := s.db.SelectContext(ctx, &quotes, `
		SELECT * FROM voice_quotes
		WHERE brand_id = ? AND is_active = 1 AND verified = 1
		ORDER BY created_at DESC
		LIMIT ?
	`, brandID, limit)
	if err != nil {
		return nil, fmt.Errorf("list voice quotes: %w", err)
	}
	return quotes, nil
}

func unmarshalMemo(m *core.Memo) {
	json.Unmarshal([]byte(m.StructuredDataJSON), &m.StructuredData)
	json.Unmarshal([]byte(m.SourcesJSON), &m.Sources)
}
