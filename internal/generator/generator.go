// Package generator turns a gap into a memo. Each invocation runs a fixed
// sequence: gather context, redundancy check, generate, validate, persist,
// version, notify, then best-effort external sync. The redundancy gate sits
// before the completion call so a skip costs nothing.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/citegap/citegap/internal/alerts"
	"github.com/citegap/citegap/internal/core"
	"github.com/citegap/citegap/internal/llm"
	"github.com/citegap/citegap/internal/logger"
	"github.com/citegap/citegap/internal/redundancy"
	"github.com/citegap/citegap/internal/store"
	"github.com/citegap/citegap/internal/templates"
)

// ExternalSync pushes a published memo to external surfaces (search index,
// CMS). Implementations must be safe to call concurrently.
type ExternalSync interface {
	Push(ctx context.Context, brand *core.Brand, memo *core.Memo) error
}

// Request identifies what to generate. QueryID and CompetitorID are optional;
// comparison and alternative memos need a competitor resolvable from one of
// them.
type Request struct {
	BrandID      string
	MemoType     core.MemoType
	QueryID      string
	CompetitorID string
	TopicHint    string
}

// Outcome distinguishes a generated memo from a redundancy skip.
type Outcome string

const (
	OutcomeGenerated Outcome = "generated"
	OutcomeSkipped   Outcome = "skipped"
)

// Result reports one generation. MatchingPage and Score are set only on skip.
type Result struct {
	Outcome      Outcome
	Memo         *core.Memo
	MatchingPage *core.SitePage
	Score        int
}

// Generator produces memos for a brand.
type Generator struct {
	store       store.Store
	completion  llm.CompletionService
	checker     *redundancy.Checker
	recorder    *alerts.Recorder
	sync        ExternalSync
	validate    ValidateFunc
	temperature float32
	now         func() time.Time
	log         zerolog.Logger
}

func New(st store.Store, completion llm.CompletionService, checker *redundancy.Checker) *Generator {
	return &Generator{
		store:       st,
		completion:  completion,
		checker:     checker,
		recorder:    alerts.NewRecorder(st),
		validate:    DefaultValidate,
		temperature: 0.7,
		now:         time.Now,
		log:         logger.With("generator"),
	}
}

// SetSync attaches an external sync target. Sync failures are logged, never
// returned.
func (g *Generator) SetSync(s ExternalSync) { g.sync = s }

// SetValidate replaces the output validation predicate.
func (g *Generator) SetValidate(v ValidateFunc) { g.validate = v }

// SetTemperature overrides the completion temperature.
func (g *Generator) SetTemperature(t float32) { g.temperature = t }

// Generate runs the full state machine for one memo request.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	brand, err := g.store.GetBrand(ctx, req.BrandID)
	if err != nil {
		return nil, fmt.Errorf("load brand %s: %w", req.BrandID, err)
	}

	query, err := g.resolveQuery(ctx, req.QueryID)
	if err != nil {
		return nil, err
	}
	competitor, err := g.resolveCompetitor(ctx, req, query)
	if err != nil {
		return nil, err
	}

	others := g.otherCompetitors(ctx, brand.ID, competitor)
	quotes, err := g.store.ListVoiceQuotes(ctx, brand.ID, 10)
	if err != nil {
		g.log.Warn().Err(err).Str("brand", brand.ID).Msg("load voice quotes")
	}

	queryText := req.TopicHint
	if query != nil {
		queryText = query.Text
	}
	d := derive(req.MemoType, brand, competitor, queryText, req.TopicHint)

	overlap := g.checker.Check(g.redundancyRequest(req.MemoType, brand, competitor, d, queryText), brand.Context.ExistingPages)
	if overlap.HasOverlap {
		g.log.Info().Str("brand", brand.ID).Str("slug", d.Slug).Int("score", overlap.Score).
			Msg("skipping generation, existing page covers topic")
		g.recorder.Record(ctx, alerts.MemoSkipped(brand.ID, req.MemoType, overlap.MatchingPage, overlap.Score))
		return &Result{Outcome: OutcomeSkipped, MatchingPage: overlap.MatchingPage, Score: overlap.Score}, nil
	}

	prompt := templates.Render(req.MemoType, templates.PromptData{
		Brand:      brand,
		Competitor: competitor,
		Others:     others,
		Topic:      d.Topic,
		QueryText:  queryText,
		Title:      d.Title,
		Quotes:     quotes,
		Today:      g.now(),
	})
	content, err := g.completion.Complete(ctx, prompt, g.temperature)
	if err != nil {
		return nil, fmt.Errorf("generate %s memo: %w", req.MemoType, err)
	}
	if err := g.validate(content); err != nil {
		return nil, fmt.Errorf("%s memo %s: %w", req.MemoType, d.Slug, err)
	}

	memo, err := g.persist(ctx, brand, query, req.MemoType, d, content)
	if err != nil {
		return nil, err
	}

	g.recorder.Record(ctx, alerts.MemoOutcome(memo))
	g.recorder.RecordFeed(ctx, alerts.MemoFeed(memo))

	if g.sync != nil && memo.Status == core.MemoPublished {
		if err := g.sync.Push(ctx, brand, memo); err != nil {
			g.log.Warn().Err(err).Str("slug", memo.Slug).Msg("external sync failed")
		}
	}

	return &Result{Outcome: OutcomeGenerated, Memo: memo}, nil
}

func (g *Generator) resolveQuery(ctx context.Context, queryID string) (*core.Query, error) {
	if queryID == "" {
		return nil, nil
	}
	q, err := g.store.GetQuery(ctx, queryID)
	if errors.Is(err, store.ErrNotFound) {
		g.log.Warn().Str("query", queryID).Msg("triggering query missing, generating without it")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load query %s: %w", queryID, err)
	}
	return q, nil
}

func (g *Generator) resolveCompetitor(ctx context.Context, req Request, query *core.Query) (*core.Competitor, error) {
	id := req.CompetitorID
	if id == "" && query != nil {
		id = query.RelatedCompetitorID
	}
	if id == "" {
		if req.MemoType == core.MemoComparison || req.MemoType == core.MemoAlternative {
			return nil, fmt.Errorf("%s memo requires a competitor", req.MemoType)
		}
		return nil, nil
	}
	c, err := g.store.GetCompetitor(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load competitor %s: %w", id, err)
	}
	return c, nil
}

func (g *Generator) otherCompetitors(ctx context.Context, brandID string, exclude *core.Competitor) []core.Competitor {
	all, err := g.store.ListCompetitors(ctx, brandID, true)
	if err != nil {
		g.log.Warn().Err(err).Str("brand", brandID).Msg("load competitors")
		return nil
	}
	if exclude == nil {
		return all
	}
	others := all[:0]
	for _, c := range all {
		if c.ID != exclude.ID {
			others = append(others, c)
		}
	}
	return others
}

func (g *Generator) redundancyRequest(memoType core.MemoType, brand *core.Brand, competitor *core.Competitor, d derivation, queryText string) redundancy.Request {
	req := redundancy.Request{MemoType: memoType}
	switch memoType {
	case core.MemoComparison, core.MemoAlternative:
		req.Competitor = competitor.Name
		req.Topics = append([]string{competitor.Name, brand.Name + " vs " + competitor.Name},
			competitor.Context.Products...)
	case core.MemoIndustry:
		req.IndustryKeywords = append([]string{d.Topic}, brand.Context.Markets...)
		req.Topics = req.IndustryKeywords
	case core.MemoHowTo:
		req.TopicKeywords = append([]string{d.Topic}, brand.Context.Products...)
		req.Topics = append([]string{d.Topic, queryText}, brand.Context.Products...)
	default:
		req.Topics = []string{queryText}
	}
	return req
}

func (g *Generator) persist(ctx context.Context, brand *core.Brand, query *core.Query, memoType core.MemoType, d derivation, content string) (*core.Memo, error) {
	version := 1
	changeReason := "generated"
	existing, err := g.store.GetMemoBySlug(ctx, brand.ID, d.Slug)
	switch {
	case err == nil:
		version = existing.Version + 1
		changeReason = "regenerated"
	case errors.Is(err, store.ErrNotFound):
	default:
		return nil, fmt.Errorf("check existing memo %s: %w", d.Slug, err)
	}

	now := g.now()
	memo := &core.Memo{
		BrandID:         brand.ID,
		Type:            memoType,
		Slug:            d.Slug,
		Title:           d.Title,
		Content:         content,
		MetaDescription: metaDescription(content),
		Sources:         extractSources(content),
		StructuredData: map[string]any{
			"@context":     "https://schema.org",
			"@type":        "Article",
			"headline":     d.Title,
			"dateModified": now.Format(time.RFC3339),
		},
		Status:         core.MemoDraft,
		Version:        version,
		LastVerifiedAt: now,
	}
	if query != nil {
		memo.SourceQueryID = query.ID
	}
	if brand.AutoPublish {
		memo.Status = core.MemoPublished
		memo.PublishedAt = &now
	}

	if err := g.store.UpsertMemo(ctx, memo); err != nil {
		return nil, fmt.Errorf("persist memo %s: %w", d.Slug, err)
	}
	if err := g.store.AddMemoVersion(ctx, &core.MemoVersion{
		MemoID:       memo.ID,
		Version:      version,
		Content:      content,
		ChangeReason: changeReason,
	}); err != nil {
		return nil, fmt.Errorf("record memo version: %w", err)
	}
	return memo, nil
}

// metaDescription takes the first body line of the article, skipping the
// byline and headers, trimmed to 160 characters on a word boundary.
func metaDescription(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "*Last verified") {
			continue
		}
		if len(line) <= 160 {
			return line
		}
		cut := strings.LastIndex(line[:160], " ")
		if cut < 0 {
			cut = 160
		}
		return line[:cut] + "…"
	}
	return ""
}

// extractSources pulls the list items of the trailing "## Sources" section.
func extractSources(content string) []string {
	_, section, found := strings.Cut(content, "## Sources")
	if !found {
		return nil
	}
	var sources []string
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "## ") {
			break
		}
		if rest, ok := strings.CutPrefix(line, "- "); ok {
			sources = append(sources, rest)
		}
	}
	return sources
}
