package core

import "time"

// MemoType classifies the kind of reference article generated for a brand.
type MemoType string

const (
	MemoComparison  MemoType = "comparison"
	MemoAlternative MemoType = "alternative"
	MemoIndustry    MemoType = "industry"
	MemoHowTo       MemoType = "how_to"
	MemoResponse    MemoType = "response"
	MemoGapFill     MemoType = "gap_fill"
)

// MemoStatus is the publication state of a memo.
type MemoStatus string

const (
	MemoDraft     MemoStatus = "draft"
	MemoPublished MemoStatus = "published"
)

// QueryType classifies the intent of a tracked query.
type QueryType string

const (
	QueryProblemSolution QueryType = "problem_solution"
	QueryBestOf          QueryType = "best_of"
	QueryHowTo           QueryType = "how_to"
	QueryComparison      QueryType = "comparison"
	QueryIndustry        QueryType = "industry"
)

// QueryStatus tracks the latest citation outcome for a query.
type QueryStatus string

const (
	QueryStatusPending      QueryStatus = "pending"
	QueryStatusCited        QueryStatus = "cited"
	QueryStatusLostCitation QueryStatus = "lost_citation"
)

// Brand is a tenant-owned entity whose AI visibility is being tracked.
type Brand struct {
	ID              string       `json:"id" db:"id"`
	TenantID        string       `json:"tenant_id" db:"tenant_id"`
	Name            string       `json:"name" db:"name"`
	Domain          string       `json:"domain" db:"domain"`
	Subdomain       string       `json:"subdomain" db:"subdomain"`
	AutoPublish     bool         `json:"auto_publish" db:"auto_publish"`
	VisibilityScore float64      `json:"visibility_score" db:"visibility_score"` // Derived, updated by external score jobs
	Context         BrandContext `json:"context" db:"-"`
	ContextJSON     string       `json:"-" db:"context"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// BrandContext is the free-form context blob attached to a brand.
type BrandContext struct {
	Description   string     `json:"description"`
	Products      []string   `json:"products"`
	Markets       []string   `json:"markets"`
	Tone          string     `json:"tone"` // Tone instructions injected into generation prompts
	ExistingPages []SitePage `json:"existing_pages"`
}

// SitePage is an already-indexed page on the brand's site. The redundancy
// checker treats this snapshot as ground truth; refresh cadence is owned by
// an external crawler.
type SitePage struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Topics      []string `json:"topics"`
	ContentType string   `json:"content_type"`
}

// Query is a tracked natural-language question, unique per (brand_id, text).
type Query struct {
	ID                  string      `json:"id" db:"id"`
	BrandID             string      `json:"brand_id" db:"brand_id"`
	Text                string      `json:"text" db:"text"`
	Type                QueryType   `json:"type" db:"type"`
	Priority            int         `json:"priority" db:"priority"` // 0-100
	AutoDiscovered      bool        `json:"auto_discovered" db:"auto_discovered"`
	IsActive            bool        `json:"is_active" db:"is_active"`
	RelatedCompetitorID string      `json:"related_competitor_id,omitempty" db:"related_competitor_id"`
	CurrentStatus       QueryStatus `json:"current_status" db:"current_status"`
	CitationStreak      int         `json:"citation_streak" db:"citation_streak"`
	CreatedAt           time.Time   `json:"created_at" db:"created_at"`
}

// Competitor is a rival entity tracked per brand, unique per (brand_id, name).
type Competitor struct {
	ID             string            `json:"id" db:"id"`
	BrandID        string            `json:"brand_id" db:"brand_id"`
	Name           string            `json:"name" db:"name"`
	Domain         string            `json:"domain" db:"domain"`
	Context        CompetitorContext `json:"context" db:"-"`
	ContextJSON    string            `json:"-" db:"context"`
	AutoDiscovered bool              `json:"auto_discovered" db:"auto_discovered"`
	IsActive       bool              `json:"is_active" db:"is_active"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
}

// CompetitorContext holds best-effort enrichment data for a competitor.
type CompetitorContext struct {
	Products          []string  `json:"products,omitempty"`
	Differentiators   []string  `json:"differentiators,omitempty"`
	EnrichmentVersion int       `json:"enrichment_version,omitempty"`
	EnrichedAt        time.Time `json:"enriched_at,omitempty"`
}

// ScanResult is an immutable observation produced by the external scanning
// process. Query text and type are denormalized at scan time so the gap
// analyzer can group without a join.
type ScanResult struct {
	ID                       string    `json:"id" db:"id"`
	BrandID                  string    `json:"brand_id" db:"brand_id"`
	QueryID                  string    `json:"query_id" db:"query_id"`
	QueryText                string    `json:"query_text" db:"query_text"`
	QueryType                QueryType `json:"query_type" db:"query_type"`
	ScannedAt                time.Time `json:"scanned_at" db:"scanned_at"`
	BrandMentioned           bool      `json:"brand_mentioned" db:"brand_mentioned"`
	BrandInCitations         bool      `json:"brand_in_citations" db:"brand_in_citations"`
	IsFirstCitation          bool      `json:"is_first_citation" db:"is_first_citation"`
	CompetitorsMentioned     []string  `json:"competitors_mentioned" db:"-"`
	CompetitorsMentionedJSON string    `json:"-" db:"competitors_mentioned"`
	ResponseText             string    `json:"response_text" db:"response_text"`
}

// GapPattern is a derived pattern: a query where competitors were cited and
// the brand was not, within the lookback window. Computed per pipeline run,
// never persisted.
type GapPattern struct {
	QueryText   string    `json:"query_text"`
	QueryType   QueryType `json:"query_type"`
	Competitors []string  `json:"competitors"` // Union of competitor names, first-seen order
}

// Memo is an AI-optimized reference article. (brand_id, slug) is the
// idempotency key: regeneration upserts, never duplicates.
type Memo struct {
	ID                 string         `json:"id" db:"id"`
	BrandID            string         `json:"brand_id" db:"brand_id"`
	SourceQueryID      string         `json:"source_query_id,omitempty" db:"source_query_id"`
	Type               MemoType       `json:"memo_type" db:"memo_type"`
	Slug               string         `json:"slug" db:"slug"`
	Title              string         `json:"title" db:"title"`
	Content            string         `json:"content" db:"content"` // Markdown
	MetaDescription    string         `json:"meta_description" db:"meta_description"`
	StructuredData     map[string]any `json:"structured_data" db:"-"`
	StructuredDataJSON string         `json:"-" db:"structured_data"`
	Sources            []string       `json:"sources" db:"-"`
	SourcesJSON        string         `json:"-" db:"sources"`
	Status             MemoStatus     `json:"status" db:"status"`
	PublishedAt        *time.Time     `json:"published_at,omitempty" db:"published_at"`
	Version            int            `json:"version" db:"version"`
	LastVerifiedAt     time.Time      `json:"last_verified_at" db:"last_verified_at"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at" db:"updated_at"`
}

// MemoVersion is an append-only content snapshot for audit and rollback.
type MemoVersion struct {
	ID           string    `json:"id" db:"id"`
	MemoID       string    `json:"memo_id" db:"memo_id"`
	Version      int       `json:"version" db:"version"`
	Content      string    `json:"content" db:"content"`
	ChangeReason string    `json:"change_reason" db:"change_reason"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// AlertSeverity grades notification records.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Alert is an append-only notification record written by every stage on
// completion, read by the digest job and the external dashboard.
type Alert struct {
	ID        string         `json:"id" db:"id"`
	BrandID   string         `json:"brand_id" db:"brand_id"`
	Type      string         `json:"type" db:"type"`
	Title     string         `json:"title" db:"title"`
	Message   string         `json:"message" db:"message"`
	Severity  AlertSeverity  `json:"severity" db:"severity"`
	Data      map[string]any `json:"data" db:"-"`
	DataJSON  string         `json:"-" db:"data"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// FeedEvent is a structured activity-feed record for the dashboard.
type FeedEvent struct {
	ID          string         `json:"id" db:"id"`
	BrandID     string         `json:"brand_id" db:"brand_id"`
	Type        string         `json:"type" db:"type"`
	Title       string         `json:"title" db:"title"`
	Description string         `json:"description" db:"description"`
	Data        map[string]any `json:"data" db:"-"`
	DataJSON    string         `json:"-" db:"data"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// VoiceQuote is a verified human quote used to enrich generation prompts.
type VoiceQuote struct {
	ID        string    `json:"id" db:"id"`
	BrandID   string    `json:"brand_id" db:"brand_id"`
	Author    string    `json:"author" db:"author"`
	Role      string    `json:"role" db:"role"`
	Text      string    `json:"text" db:"text"`
	Verified  bool      `json:"verified" db:"verified"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CompetitorMentionCount pairs a competitor name with its mention count in a
// digest window.
type CompetitorMentionCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// StreakMilestone marks a query whose citation streak crossed the milestone
// threshold during the digest window.
type StreakMilestone struct {
	QueryText string `json:"query_text"`
	Streak    int    `json:"streak"`
}

// DigestSummary is the per-brand 24h rollup. QuietDay distinguishes a brand
// with nothing to report from a broken digest.
type DigestSummary struct {
	BrandID                   string                   `json:"brand_id"`
	BrandName                 string                   `json:"brand_name"`
	WindowStart               time.Time                `json:"window_start"`
	WindowEnd                 time.Time                `json:"window_end"`
	ScoreDelta                float64                  `json:"score_delta"`
	TotalScans                int                      `json:"total_scans"`
	MentionedScans            int                      `json:"mentioned_scans"`
	FirstCitations            int                      `json:"first_citations"`
	LostCitations             int                      `json:"lost_citations"`
	MemosGenerated            int                      `json:"memos_generated"`
	MemosPublished            int                      `json:"memos_published"`
	CompetitorContentDetected int                      `json:"competitor_content_detected"`
	TopCompetitors            []CompetitorMentionCount `json:"top_competitors"`
	ActivePrompts             int                      `json:"active_prompts"`
	CitedPrompts              int                      `json:"cited_prompts"`
	StreakMilestones          []StreakMilestone        `json:"streak_milestones"`
	QuietDay                  bool                     `json:"quiet_day"`
}
