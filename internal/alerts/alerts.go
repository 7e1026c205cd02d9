// Package alerts centralizes the typed notification records each pipeline
// stage writes on completion. Alert writes are best-effort: a failed insert is
// logged and never fails the stage that produced it.
package alerts

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/citegap/citegap/internal/core"
	"github.com/citegap/citegap/internal/logger"
	"github.com/citegap/citegap/internal/store"
)

// Alert type identifiers, read by the digest job and the dashboard feed.
const (
	TypeGapSummary       = "gap_summary"
	TypeDiscoverySummary = "discovery_summary"
	TypeMemoPublished    = "memo_published"
	TypeMemoDraft        = "memo_draft"
	TypeMemoSkipped      = "memo_skipped"
	TypeBacklinkUpdated  = "backlink_updated"
	TypeEnrichment       = "competitor_enriched"
	TypeDigestReady      = "digest_ready"
)

// Recorder writes alerts and feed events through the store, swallowing and
// logging write failures.
type Recorder struct {
	store store.Store
	log   zerolog.Logger
}

func NewRecorder(st store.Store) *Recorder {
	return &Recorder{store: st, log: logger.With("alerts")}
}

// Record inserts an alert; failure is logged, never returned.
func (r *Recorder) Record(ctx context.Context, a *core.Alert) {
	if err := r.store.InsertAlert(ctx, a); err != nil {
		r.log.Error().Err(err).Str("brand", a.BrandID).Str("type", a.Type).Msg("write alert")
	}
}

// RecordFeed inserts a feed event; failure is logged, never returned.
func (r *Recorder) RecordFeed(ctx context.Context, e *core.FeedEvent) {
	if err := r.store.InsertFeedEvent(ctx, e); err != nil {
		r.log.Error().Err(err).Str("brand", e.BrandID).Str("type", e.Type).Msg("write feed event")
	}
}

// GapSummary reports the gap patterns found for a brand in one pipeline run.
func GapSummary(brandID string, patterns []core.GapPattern) *core.Alert {
	names := make([]string, 0, len(patterns))
	for _, p := range patterns {
		names = append(names, p.QueryText)
	}
	return &core.Alert{
		BrandID:  brandID,
		Type:     TypeGapSummary,
		Title:    "Visibility gaps detected",
		Message:  fmt.Sprintf("%d queries cited competitors without mentioning the brand", len(patterns)),
		Severity: core.SeverityWarning,
		Data:     map[string]any{"pattern_count": len(patterns), "queries": names},
	}
}

// MemoOutcome reports a generated memo, graded by its publication status.
func MemoOutcome(m *core.Memo) *core.Alert {
	alertType := TypeMemoDraft
	title := "Memo drafted"
	if m.Status == core.MemoPublished {
		alertType = TypeMemoPublished
		title = "Memo published"
	}
	return &core.Alert{
		BrandID:  m.BrandID,
		Type:     alertType,
		Title:    title,
		Message:  fmt.Sprintf("%s memo %q (version %d)", m.Type, m.Title, m.Version),
		Severity: core.SeverityInfo,
		Data: map[string]any{
			"memo_id": m.ID,
			"slug":    m.Slug,
			"type":    string(m.Type),
			"version": m.Version,
		},
	}
}

// MemoFeed is the activity-feed counterpart of MemoOutcome.
func MemoFeed(m *core.Memo) *core.FeedEvent {
	eventType := "memo_drafted"
	desc := fmt.Sprintf("Drafted %s memo %q", m.Type, m.Title)
	if m.Status == core.MemoPublished {
		eventType = "memo_published"
		desc = fmt.Sprintf("Published %s memo %q", m.Type, m.Title)
	}
	return &core.FeedEvent{
		BrandID:     m.BrandID,
		Type:        eventType,
		Title:       m.Title,
		Description: desc,
		Data:        map[string]any{"memo_id": m.ID, "slug": m.Slug, "version": m.Version},
	}
}

// MemoSkipped reports a redundancy-gated skip. Informational, not an error:
// skipping is the gate working as intended.
func MemoSkipped(brandID string, memoType core.MemoType, page *core.SitePage, score int) *core.Alert {
	return &core.Alert{
		BrandID:  brandID,
		Type:     TypeMemoSkipped,
		Title:    "Memo generation skipped",
		Message:  fmt.Sprintf("Existing page %q already covers this %s memo (overlap score %d)", page.Title, memoType, score),
		Severity: core.SeverityInfo,
		Data: map[string]any{
			"memo_type":     string(memoType),
			"matching_page": page.URL,
			"score":         score,
		},
	}
}

// CompetitorEnriched reports a refreshed competitor context.
func CompetitorEnriched(c *core.Competitor) *core.Alert {
	return &core.Alert{
		BrandID:  c.BrandID,
		Type:     TypeEnrichment,
		Title:    "Competitor profile enriched",
		Message:  fmt.Sprintf("Refreshed context for %s (version %d)", c.Name, c.Context.EnrichmentVersion),
		Severity: core.SeverityInfo,
		Data:     map[string]any{"competitor_id": c.ID, "name": c.Name},
	}
}

// DigestReady reports a computed daily digest.
func DigestReady(s *core.DigestSummary) *core.Alert {
	msg := fmt.Sprintf("%d scans, %d memos generated, %d first citations", s.TotalScans, s.MemosGenerated, s.FirstCitations)
	if s.QuietDay {
		msg = "Quiet day: no scans or memo activity in the window"
	}
	return &core.Alert{
		BrandID:  s.BrandID,
		Type:     TypeDigestReady,
		Title:    "Daily digest ready",
		Message:  msg,
		Severity: core.SeverityInfo,
		Data:     map[string]any{"quiet_day": s.QuietDay, "total_scans": s.TotalScans},
	}
}
