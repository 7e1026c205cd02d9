// Package digest rolls a brand's trailing 24h of activity into a summary.
// The aggregator only reads; rendering and delivery belong to collaborators.
package digest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/citegap/citegap/internal/core"
	"github.com/citegap/citegap/internal/logger"
	"github.com/citegap/citegap/internal/store"
)

const streakMilestone = 5

// Aggregator computes per-brand digest summaries.
type Aggregator struct {
	store  store.Store
	window time.Duration
	log    zerolog.Logger
}

func New(st store.Store) *Aggregator {
	return &Aggregator{store: st, window: 24 * time.Hour, log: logger.With("digest")}
}

// Summarize rolls up the window ending at now. A brand with zero scans and
// zero memo activity yields a quiet-day summary, not an error.
func (a *Aggregator) Summarize(ctx context.Context, brand *core.Brand, now time.Time) (*core.DigestSummary, error) {
	start := now.Add(-a.window)

	scans, err := a.store.ListScanResults(ctx, brand.ID, start)
	if err != nil {
		return nil, fmt.Errorf("list scan results: %w", err)
	}
	queries, err := a.store.ListQueries(ctx, store.QueryListOpts{BrandID: brand.ID, ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	generated, err := a.store.ListMemos(ctx, store.MemoListOpts{BrandID: brand.ID, CreatedSince: start})
	if err != nil {
		return nil, fmt.Errorf("list generated memos: %w", err)
	}
	published, err := a.store.ListMemos(ctx, store.MemoListOpts{BrandID: brand.ID, PublishedSince: start})
	if err != nil {
		return nil, fmt.Errorf("list published memos: %w", err)
	}

	s := &core.DigestSummary{
		BrandID:        brand.ID,
		BrandName:      brand.Name,
		WindowStart:    start,
		WindowEnd:      now,
		TotalScans:     len(scans),
		MemosGenerated: len(generated),
		MemosPublished: len(published),
	}

	mentions := map[string]int{}
	scannedQueries := map[string]bool{}
	for i := range scans {
		scan := &scans[i]
		scannedQueries[scan.QueryID] = true
		if scan.BrandMentioned {
			s.MentionedScans++
		}
		if scan.IsFirstCitation {
			s.FirstCitations++
		}
		if !scan.BrandMentioned && len(scan.CompetitorsMentioned) > 0 {
			s.CompetitorContentDetected++
		}
		for _, name := range scan.CompetitorsMentioned {
			mentions[name]++
		}
	}
	s.TopCompetitors = topMentions(mentions, 5)

	for i := range queries {
		q := &queries[i]
		s.ActivePrompts++
		if q.CurrentStatus == core.QueryStatusCited {
			s.CitedPrompts++
		}
		if q.CurrentStatus == core.QueryStatusLostCitation && scannedQueries[q.ID] {
			s.LostCitations++
		}
		if q.CitationStreak >= streakMilestone && scannedQueries[q.ID] {
			s.StreakMilestones = append(s.StreakMilestones, core.StreakMilestone{
				QueryText: q.Text,
				Streak:    q.CitationStreak,
			})
		}
	}
	sort.Slice(s.StreakMilestones, func(i, j int) bool {
		return s.StreakMilestones[i].QueryText < s.StreakMilestones[j].QueryText
	})

	s.QuietDay = s.TotalScans == 0 && s.MemosGenerated == 0
	if s.QuietDay {
		a.log.Debug().Str("brand", brand.ID).Msg("quiet day, nothing to report")
	}
	return s, nil
}

// topMentions sorts by count descending, name ascending for ties, capped at n.
func topMentions(mentions map[string]int, n int) []core.CompetitorMentionCount {
	out := make([]core.CompetitorMentionCount, 0, len(mentions))
	for name, count := range mentions {
		out = append(out, core.CompetitorMentionCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
