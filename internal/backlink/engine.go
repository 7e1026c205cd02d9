// Package backlink cross-links a brand's published memos. Each pass scores
// every other published memo for relevance, turns bold competitor mentions
// into links, and regenerates the trailing Related Reading section. Passes are
// idempotent so the daily batch can re-run them safely.
package backlink

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/citegap/citegap/internal/alerts"
	"github.com/citegap/citegap/internal/core"
	"github.com/citegap/citegap/internal/logger"
	"github.com/citegap/citegap/internal/store"
)

type relevance int

const (
	relLow relevance = iota
	relMedium
	relHigh
)

type related struct {
	memo core.Memo
	rel  relevance
}

const (
	maxRelated     = 8
	maxSectionRows = 4

	// footerMarker anchors where the Related Reading section is inserted.
	footerMarker = "<!-- memo-footer -->"
)

// relatedSection matches an existing Related Reading (or legacy Related
// Memos) block, anchored on its leading separator, through end of document.
var relatedSection = regexp.MustCompile(`(?s)\n*-{3,}[ \t]*\n+##\s+Related (?:Reading|Memos)\b.*$`)

// Engine rewrites memo content with cross-links.
type Engine struct {
	store    store.Store
	recorder *alerts.Recorder
	log      zerolog.Logger
}

func New(st store.Store) *Engine {
	return &Engine{store: st, recorder: alerts.NewRecorder(st), log: logger.With("backlink")}
}

// Link runs the single-memo pass. Returns whether the memo content changed.
func (e *Engine) Link(ctx context.Context, memoID string) (bool, error) {
	memo, err := e.store.GetMemo(ctx, memoID)
	if err != nil {
		return false, fmt.Errorf("load memo %s: %w", memoID, err)
	}

	published, err := e.store.ListMemos(ctx, store.MemoListOpts{
		BrandID: memo.BrandID,
		Status:  core.MemoPublished,
	})
	if err != nil {
		return false, fmt.Errorf("list published memos: %w", err)
	}

	rel := rank(memo, published)

	content := relatedSection.ReplaceAllString(memo.Content, "")
	content = rewriteMentions(content, memo, rel)
	content = appendSection(content, rel)

	if content == memo.Content {
		return false, nil
	}

	version := memo.Version + 1
	if err := e.store.UpdateMemoContent(ctx, memo.ID, content, version); err != nil {
		return false, fmt.Errorf("update memo %s: %w", memo.ID, err)
	}
	if err := e.store.AddMemoVersion(ctx, &core.MemoVersion{
		MemoID:       memo.ID,
		Version:      version,
		Content:      content,
		ChangeReason: "backlinked",
	}); err != nil {
		return false, fmt.Errorf("record memo version: %w", err)
	}

	e.log.Info().Str("memo", memo.ID).Str("slug", memo.Slug).Int("related", len(rel)).
		Msg("memo backlinked")
	return true, nil
}

// Batch re-runs the single-memo pass over every published memo of a brand and
// returns how many memos changed.
func (e *Engine) Batch(ctx context.Context, brandID string) (int, error) {
	published, err := e.store.ListMemos(ctx, store.MemoListOpts{
		BrandID: brandID,
		Status:  core.MemoPublished,
	})
	if err != nil {
		return 0, fmt.Errorf("list published memos: %w", err)
	}

	updated := 0
	for i := range published {
		changed, err := e.Link(ctx, published[i].ID)
		if err != nil {
			e.log.Error().Err(err).Str("memo", published[i].ID).Msg("backlink pass failed")
			continue
		}
		if changed {
			updated++
		}
	}
	if updated > 0 {
		e.recorder.Record(ctx, &core.Alert{
			BrandID:  brandID,
			Type:     alerts.TypeBacklinkUpdated,
			Title:    "Memo cross-links refreshed",
			Message:  fmt.Sprintf("Updated links in %d of %d published memos", updated, len(published)),
			Severity: core.SeverityInfo,
			Data:     map[string]any{"updated": updated, "published": len(published)},
		})
	}
	return updated, nil
}

// competitorKey extracts the competitor identity from a slug, or "" when the
// slug carries no recognized prefix.
func competitorKey(slug string) string {
	if key, ok := strings.CutPrefix(slug, "vs/"); ok {
		return key
	}
	if key, ok := strings.CutPrefix(slug, "alternatives-to/"); ok {
		return key
	}
	return ""
}

func classify(current, other *core.Memo) relevance {
	curKey := competitorKey(current.Slug)
	otherKey := competitorKey(other.Slug)

	if curKey != "" {
		if curKey == otherKey && current.Type != other.Type {
			return relHigh
		}
		crossPair := (current.Type == core.MemoComparison && other.Type == core.MemoAlternative) ||
			(current.Type == core.MemoAlternative && other.Type == core.MemoComparison)
		if crossPair && strings.Contains(other.Slug, curKey) {
			return relHigh
		}
	}
	if current.Type == other.Type {
		return relMedium
	}
	howToIndustry := (current.Type == core.MemoHowTo && other.Type == core.MemoIndustry) ||
		(current.Type == core.MemoIndustry && other.Type == core.MemoHowTo)
	if howToIndustry {
		return relMedium
	}
	return relLow
}

// rank scores every other published memo, sorts High to Low preserving input
// order within a class, and caps the result.
func rank(current *core.Memo, published []core.Memo) []related {
	var out []related
	for i := range published {
		if published[i].ID == current.ID {
			continue
		}
		out = append(out, related{memo: published[i], rel: classify(current, &published[i])})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].rel > out[j].rel })
	if len(out) > maxRelated {
		out = out[:maxRelated]
	}
	return out
}

// nameVariants derives human-readable spellings from a slug key:
// "acme-corp" yields "acme corp", "Acme Corp" and "AcmeCorp".
func nameVariants(key string) []string {
	parts := strings.Split(key, "-")
	titled := make([]string, len(parts))
	for i, p := range parts {
		if p == "" {
			titled[i] = p
			continue
		}
		titled[i] = strings.ToUpper(p[:1]) + p[1:]
	}

	variants := []string{
		strings.Join(parts, " "),
		strings.Join(titled, " "),
		strings.Join(titled, ""),
	}
	seen := map[string]bool{}
	out := variants[:0]
	for _, v := range variants {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// rewriteMentions turns, per competitor, the first bold mention not already
// inside a link into a link to that competitor's preferred memo (comparison
// over alternative). One rewrite per competitor bounds link density.
func rewriteMentions(content string, current *core.Memo, rel []related) string {
	targets := map[string]*core.Memo{}
	var keys []string
	for i := range rel {
		m := &rel[i].memo
		key := competitorKey(m.Slug)
		if key == "" {
			continue
		}
		existing, ok := targets[key]
		if !ok {
			targets[key] = m
			keys = append(keys, key)
			continue
		}
		if existing.Type != core.MemoComparison && m.Type == core.MemoComparison {
			targets[key] = m
		}
	}

	for _, key := range keys {
		target := targets[key]
		for _, variant := range nameVariants(key) {
			if linked, ok := linkFirstBold(content, variant, "/"+target.Slug); ok {
				content = linked
				break
			}
		}
	}
	return content
}

// linkFirstBold replaces the first **variant** occurrence that is not already
// part of a markdown link.
func linkFirstBold(content, variant, href string) (string, bool) {
	needle := "**" + variant + "**"
	for from := 0; ; {
		idx := strings.Index(content[from:], needle)
		if idx < 0 {
			return content, false
		}
		idx += from
		end := idx + len(needle)
		insideLink := (idx > 0 && content[idx-1] == '[') || strings.HasPrefix(content[end:], "](")
		if !insideLink {
			return content[:idx] + "[" + needle + "](" + href + ")" + content[end:], true
		}
		from = end
	}
}

// appendSection regenerates the Related Reading block from the High and
// Medium results, inserted before the footer marker when one exists.
func appendSection(content string, rel []related) string {
	var rows []string
	for i := range rel {
		if rel[i].rel < relMedium {
			continue
		}
		m := &rel[i].memo
		rows = append(rows, fmt.Sprintf("- [%s](/%s) (%s)", m.Title, m.Slug, m.Type))
		if len(rows) == maxSectionRows {
			break
		}
	}
	if len(rows) == 0 {
		return content
	}

	section := "\n\n---\n\n## Related Reading\n\n" + strings.Join(rows, "\n") + "\n"
	if idx := strings.Index(content, footerMarker); idx >= 0 {
		return content[:idx] + strings.TrimLeft(section, "\n") + "\n" + content[idx:]
	}
	return strings.TrimRight(content, "\n") + section
}
