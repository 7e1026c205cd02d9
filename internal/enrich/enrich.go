// Package enrich refreshes competitor context by crawling competitor
// homepages and distilling the extracted text through the completion service.
// The whole job is best-effort: a competitor that cannot be crawled or parsed
// is skipped and logged, never failed.
package enrich

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/citegap/citegap/internal/alerts"
	"github.com/citegap/citegap/internal/config"
	"github.com/citegap/citegap/internal/core"
	"github.com/citegap/citegap/internal/llm"
	"github.com/citegap/citegap/internal/logger"
	"github.com/citegap/citegap/internal/store"
)

const distillPrompt = `You are profiling a software competitor from its homepage.

Company: %s
Page title: %s
Meta description: %s
Headings:
%s

Return a single JSON object with exactly two keys:
  "products": up to 5 short product or capability names
  "differentiators": up to 5 short phrases describing how the company positions itself

Return only JSON.`

// Enricher crawls competitor homepages and stores refreshed context.
type Enricher struct {
	store       store.Store
	completion  llm.CompletionService
	client      *resty.Client
	limiter     *rate.Limiter
	concurrency int
	recorder    *alerts.Recorder
	now         func() time.Time
	log         zerolog.Logger
}

func New(st store.Store, completion llm.CompletionService, cfg config.Enrichment) *Enricher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 5
	}
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "citegap-enricher/1.0").
		SetRetryCount(1)

	return &Enricher{
		store:       st,
		completion:  completion,
		client:      client,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RatePerMinute/60.0), 1),
		concurrency: cfg.Concurrency,
		recorder:    alerts.NewRecorder(st),
		now:         time.Now,
		log:         logger.With("enrich"),
	}
}

// EnrichBrand refreshes every active competitor of a brand that has a domain.
// Returns how many competitors were refreshed.
func (e *Enricher) EnrichBrand(ctx context.Context, brandID string) (int, error) {
	competitors, err := e.store.ListCompetitors(ctx, brandID, true)
	if err != nil {
		return 0, fmt.Errorf("list competitors: %w", err)
	}

	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup
	var enriched atomic.Int32

	for i := range competitors {
		c := competitors[i]
		if c.Domain == "" {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if err := e.limiter.Wait(ctx); err != nil {
				return
			}
			if err := e.enrichOne(ctx, &c); err != nil {
				e.log.Warn().Err(err).Str("competitor", c.Name).Msg("enrichment skipped")
				return
			}
			enriched.Add(1)
		}()
	}
	wg.Wait()
	return int(enriched.Load()), nil
}

func (e *Enricher) enrichOne(ctx context.Context, c *core.Competitor) error {
	resp, err := e.client.R().SetContext(ctx).Get(homepageURL(c.Domain))
	if err != nil {
		return fmt.Errorf("fetch %s: %w", c.Domain, err)
	}
	if resp.IsError() {
		return fmt.Errorf("fetch %s: status %d", c.Domain, resp.StatusCode())
	}

	title, meta, headings, err := extractPage(resp.Body())
	if err != nil {
		return fmt.Errorf("parse %s: %w", c.Domain, err)
	}

	prompt := fmt.Sprintf(distillPrompt, c.Name, title, meta, strings.Join(headings, "\n"))
	raw, err := e.completion.Complete(ctx, prompt, 0.2)
	if err != nil {
		return fmt.Errorf("distill %s: %w", c.Name, err)
	}

	var profile struct {
		Products        []string `json:"products"`
		Differentiators []string `json:"differentiators"`
	}
	if err := llm.ExtractJSONObject(raw, &profile); err != nil {
		return fmt.Errorf("distill %s: %w", c.Name, err)
	}

	cc := c.Context
	cc.Products = profile.Products
	cc.Differentiators = profile.Differentiators
	cc.EnrichmentVersion++
	cc.EnrichedAt = e.now()
	if err := e.store.UpdateCompetitorContext(ctx, c.ID, cc); err != nil {
		return fmt.Errorf("store context for %s: %w", c.Name, err)
	}

	c.Context = cc
	e.recorder.Record(ctx, alerts.CompetitorEnriched(c))
	e.log.Info().Str("competitor", c.Name).Int("version", cc.EnrichmentVersion).Msg("competitor enriched")
	return nil
}

func homepageURL(domain string) string {
	if strings.Contains(domain, "://") {
		return domain
	}
	return "https://" + domain
}

// extractPage pulls the title, meta description, and up to 12 h1/h2 headings
// from a homepage.
func extractPage(body []byte) (title, meta string, headings []string, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", "", nil, err
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	meta, _ = doc.Find(`meta[name="description"]`).First().Attr("content")
	meta = strings.TrimSpace(meta)

	doc.Find("h1, h2").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text != "" {
			headings = append(headings, text)
		}
		return len(headings) < 12
	})
	return title, meta, headings, nil
}
