package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/citegap/citegap/internal/backlink"
	"github.com/citegap/citegap/internal/config"
	"github.com/citegap/citegap/internal/digest"
	"github.com/citegap/citegap/internal/discovery"
	"github.com/citegap/citegap/internal/enrich"
	"github.com/citegap/citegap/internal/generator"
	"github.com/citegap/citegap/internal/llm"
	"github.com/citegap/citegap/internal/notify"
	"github.com/citegap/citegap/internal/pipeline"
	"github.com/citegap/citegap/internal/redundancy"
	"github.com/citegap/citegap/internal/scheduler"
	"github.com/citegap/citegap/internal/store"
	"github.com/citegap/citegap/internal/syncer"
)

// app holds the wired process-lifetime dependencies. Constructed once per
// command invocation and passed by reference, never re-initialized.
type app struct {
	cfg      *config.Config
	store    *store.SQLiteStore
	orch     *pipeline.Orchestrator
	sched    *scheduler.Service
	enricher *enrich.Enricher
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	st, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	completion, err := newCompletion(ctx, cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	gen := generator.New(st, completion, redundancy.NewChecker(cfg.Redundancy))
	if cfg.AI.Gemini.Temperature > 0 {
		gen.SetTemperature(cfg.AI.Gemini.Temperature)
	}
	if cfg.Sync.Enabled {
		gen.SetSync(syncer.New(cfg.Sync))
	}

	deps := pipeline.Deps{
		Store:      st,
		Discoverer: discovery.New(st, completion, cfg.Pipeline.MaxGapPatterns, cfg.Pipeline.MaxScanSamples),
		Generator:  gen,
		Backlinker: backlink.New(st),
		Aggregator: digest.New(st),
	}
	if cfg.Email.Enabled {
		deps.DigestSink = notify.New(cfg.Email)
	}
	orch := pipeline.New(deps, cfg.Pipeline)

	return &app{
		cfg:      cfg,
		store:    st,
		orch:     orch,
		sched:    scheduler.New(orch, st, cfg.Digest),
		enricher: enrich.New(st, completion, cfg.Enrichment),
	}, nil
}

func (a *app) Close() {
	a.store.Close()
}

func newCompletion(ctx context.Context, cfg *config.Config) (llm.CompletionService, error) {
	switch cfg.AI.Provider {
	case "openai":
		timeout, err := time.ParseDuration(cfg.AI.OpenAI.Timeout)
		if err != nil || timeout <= 0 {
			timeout = 60 * time.Second
		}
		return llm.NewOpenAIClient(cfg.AI.OpenAI.APIKey, cfg.AI.OpenAI.Model, cfg.AI.OpenAI.BaseURL, timeout), nil
	default:
		client, err := llm.NewGeminiClient(ctx, cfg.AI.Gemini.APIKey, cfg.AI.Gemini.Model)
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		return client, nil
	}
}
