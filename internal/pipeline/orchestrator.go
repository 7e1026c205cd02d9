// Package pipeline sequences the stages with bounded concurrency, bounded
// retries, and explicit fan-out. The event graph is finite: discovery fans
// out to generation, generation to the two backlink passes, and the backlink
// passes are leaves.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/citegap/citegap/internal/alerts"
	"github.com/citegap/citegap/internal/backlink"
	"github.com/citegap/citegap/internal/config"
	"github.com/citegap/citegap/internal/core"
	"github.com/citegap/citegap/internal/digest"
	"github.com/citegap/citegap/internal/discovery"
	"github.com/citegap/citegap/internal/gap"
	"github.com/citegap/citegap/internal/generator"
	"github.com/citegap/citegap/internal/logger"
	"github.com/citegap/citegap/internal/store"
)

// ErrQueueFull is returned by Emit when the bounded queue has no room.
var ErrQueueFull = errors.New("event queue full")

// DigestSink delivers a computed digest. Delivery failures never fail the
// digest stage.
type DigestSink interface {
	Deliver(ctx context.Context, summary *core.DigestSummary) error
}

// Deps are the stage implementations the orchestrator sequences.
type Deps struct {
	Store      store.Store
	Discoverer *discovery.Discoverer
	Generator  *generator.Generator
	Backlinker *backlink.Engine
	Aggregator *digest.Aggregator
	DigestSink DigestSink // optional
}

// Orchestrator routes events to stage handlers.
type Orchestrator struct {
	deps     Deps
	analyzer *gap.Analyzer
	recorder *alerts.Recorder
	cfg      config.Pipeline

	queue    chan Event
	wg       sync.WaitGroup
	stopOnce sync.Once

	genSem      chan struct{}
	backfillSem chan struct{}
	brandLocks  sync.Map

	now func() time.Time
	log zerolog.Logger
}

func New(deps Deps, cfg config.Pipeline) *Orchestrator {
	if cfg.GenerationConcurrency <= 0 {
		cfg.GenerationConcurrency = 3
	}
	if cfg.BackfillConcurrency <= 0 {
		cfg.BackfillConcurrency = 3
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.RetryAttempts < 0 {
		cfg.RetryAttempts = 0
	}
	if cfg.MaxGapPatterns <= 0 {
		cfg.MaxGapPatterns = 10
	}
	return &Orchestrator{
		deps:        deps,
		analyzer:    gap.NewAnalyzer(),
		recorder:    alerts.NewRecorder(deps.Store),
		cfg:         cfg,
		queue:       make(chan Event, cfg.QueueSize),
		genSem:      make(chan struct{}, cfg.GenerationConcurrency),
		backfillSem: make(chan struct{}, cfg.BackfillConcurrency),
		now:         time.Now,
		log:         logger.With("pipeline"),
	}
}

// Start launches the dispatch workers. Stop drains them.
func (o *Orchestrator) Start(ctx context.Context) {
	workers := o.cfg.GenerationConcurrency + o.cfg.BackfillConcurrency
	for i := 0; i < workers; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for ev := range o.queue {
				if err := o.Process(ctx, ev); err != nil {
					o.log.Error().Err(err).Str("event", string(ev.Type)).Msg("event failed")
				}
			}
		}()
	}
}

// Emit enqueues an event without blocking.
func (o *Orchestrator) Emit(ev Event) error {
	select {
	case o.queue <- ev:
		return nil
	default:
		return fmt.Errorf("%w: dropping %s", ErrQueueFull, ev.Type)
	}
}

// Stop closes the queue and waits for in-flight events to finish.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() { close(o.queue) })
	o.wg.Wait()
}

// Process handles one event and, depth-first, its follow-ups. Follow-up
// failures are logged, not propagated: a failed backlink pass must not undo a
// persisted memo.
func (o *Orchestrator) Process(ctx context.Context, ev Event) error {
	next, err := o.handleWithRetry(ctx, ev)
	if err != nil {
		return err
	}
	for _, n := range next {
		if !allowedFollowUp(ev.Type, n.Type) {
			o.log.Error().Str("event", string(ev.Type)).Str("follow_up", string(n.Type)).
				Msg("follow-up outside event graph, dropping")
			continue
		}
		if err := o.Process(ctx, n); err != nil {
			o.log.Error().Err(err).Str("event", string(n.Type)).Str("brand", n.BrandID).
				Msg("follow-up failed")
		}
	}
	return nil
}

func (o *Orchestrator) handleWithRetry(ctx context.Context, ev Event) ([]Event, error) {
	backoff := o.cfg.BackoffDuration()
	var lastErr error
	for attempt := 0; attempt <= o.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			o.log.Warn().Err(lastErr).Str("event", string(ev.Type)).Int("attempt", attempt).
				Msg("retrying event")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff * time.Duration(attempt)):
			}
		}
		next, err := o.handle(ctx, ev)
		if err == nil {
			return next, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%s exhausted retries: %w", ev.Type, lastErr)
}

func (o *Orchestrator) handle(ctx context.Context, ev Event) ([]Event, error) {
	switch ev.Type {
	case EventScanWindowReady:
		return o.handleScanWindow(ctx, ev)
	case EventMemoRequested:
		return o.handleMemoRequested(ctx, ev)
	case EventMemoGenerated:
		return []Event{
			{Type: EventBacklinkMemo, BrandID: ev.BrandID, MemoID: ev.MemoID},
			{Type: EventBacklinkBatch, BrandID: ev.BrandID},
		}, nil
	case EventBacklinkMemo:
		lock := o.brandLock(ev.BrandID)
		lock.Lock()
		defer lock.Unlock()
		_, err := o.deps.Backlinker.Link(ctx, ev.MemoID)
		return nil, err
	case EventBacklinkBatch:
		o.backfillSem <- struct{}{}
		defer func() { <-o.backfillSem }()
		lock := o.brandLock(ev.BrandID)
		lock.Lock()
		defer lock.Unlock()
		_, err := o.deps.Backlinker.Batch(ctx, ev.BrandID)
		return nil, err
	case EventDigestDue:
		return nil, o.handleDigest(ctx, ev)
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
}

// handleScanWindow runs gap analysis and discovery over the lookback window,
// then fans out one generation request per top gap pattern.
func (o *Orchestrator) handleScanWindow(ctx context.Context, ev Event) ([]Event, error) {
	brand, err := o.deps.Store.GetBrand(ctx, ev.BrandID)
	if err != nil {
		return nil, fmt.Errorf("load brand %s: %w", ev.BrandID, err)
	}

	since := o.now().Add(-o.cfg.LookbackDuration())
	scans, err := o.deps.Store.ListScanResults(ctx, brand.ID, since)
	if err != nil {
		return nil, fmt.Errorf("list scan results: %w", err)
	}

	patterns := o.analyzer.Analyze(scans)
	o.log.Info().Str("brand", brand.ID).Int("scans", len(scans)).Int("gaps", len(patterns)).
		Msg("scan window analyzed")
	if len(patterns) > 0 {
		o.recorder.Record(ctx, alerts.GapSummary(brand.ID, patterns))
	}

	// Discovery is best-effort enrichment of the tracked surface.
	if _, err := o.deps.Discoverer.Run(ctx, brand, patterns, scans); err != nil {
		o.log.Warn().Err(err).Str("brand", brand.ID).Msg("discovery failed")
	}

	queries, err := o.deps.Store.ListQueries(ctx, store.QueryListOpts{BrandID: brand.ID, ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	byText := make(map[string]*core.Query, len(queries))
	for i := range queries {
		byText[queries[i].Text] = &queries[i]
	}

	var next []Event
	for _, p := range gap.Top(patterns, o.cfg.MaxGapPatterns) {
		query := byText[p.QueryText]
		req := &generator.Request{
			BrandID:  brand.ID,
			MemoType: memoTypeForPattern(p, query),
		}
		if query != nil {
			req.QueryID = query.ID
		}
		next = append(next, Event{Type: EventMemoRequested, BrandID: brand.ID, GenRequest: req})
	}
	return next, nil
}

func (o *Orchestrator) handleMemoRequested(ctx context.Context, ev Event) ([]Event, error) {
	if ev.GenRequest == nil {
		return nil, errors.New("memo request event without a request payload")
	}
	select {
	case o.genSem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-o.genSem }()

	res, err := o.deps.Generator.Generate(ctx, *ev.GenRequest)
	if err != nil {
		return nil, err
	}
	if res.Outcome != generator.OutcomeGenerated {
		return nil, nil
	}
	return []Event{{Type: EventMemoGenerated, BrandID: ev.BrandID, MemoID: res.Memo.ID}}, nil
}

func (o *Orchestrator) handleDigest(ctx context.Context, ev Event) error {
	var brands []core.Brand
	if ev.BrandID != "" {
		brand, err := o.deps.Store.GetBrand(ctx, ev.BrandID)
		if err != nil {
			return fmt.Errorf("load brand %s: %w", ev.BrandID, err)
		}
		brands = []core.Brand{*brand}
	} else {
		var err error
		brands, err = o.deps.Store.ListBrands(ctx)
		if err != nil {
			return fmt.Errorf("list brands: %w", err)
		}
	}

	now := o.now()
	for i := range brands {
		summary, err := o.deps.Aggregator.Summarize(ctx, &brands[i], now)
		if err != nil {
			return fmt.Errorf("summarize brand %s: %w", brands[i].ID, err)
		}
		o.recorder.Record(ctx, alerts.DigestReady(summary))
		if o.deps.DigestSink != nil {
			if err := o.deps.DigestSink.Deliver(ctx, summary); err != nil {
				o.log.Warn().Err(err).Str("brand", summary.BrandID).Msg("digest delivery failed")
			}
		}
	}
	return nil
}

// memoTypeForPattern maps a gap's query type onto the memo type that fills
// it. Comparison gaps only get a comparison memo when the query is linked to
// a competitor row.
func memoTypeForPattern(p core.GapPattern, query *core.Query) core.MemoType {
	switch p.QueryType {
	case core.QueryComparison:
		if query != nil && query.RelatedCompetitorID != "" {
			return core.MemoComparison
		}
		return core.MemoGapFill
	case core.QueryHowTo:
		return core.MemoHowTo
	case core.QueryIndustry:
		return core.MemoIndustry
	case core.QueryProblemSolution:
		return core.MemoGapFill
	default:
		return core.MemoResponse
	}
}

func (o *Orchestrator) brandLock(brandID string) *sync.Mutex {
	v, _ := o.brandLocks.LoadOrStore(brandID, &sync.Mutex{})
	return v.(*sync.Mutex)
}
