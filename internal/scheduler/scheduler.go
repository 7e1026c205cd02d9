// Package scheduler owns the recurring jobs: the daily scan-window pass, the
// daily digest, and the daily backlink batch. The batch pass limits itself to
// brands that published at least one memo in the last 24h so unchanged brands
// are not rewritten every night.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/citegap/citegap/internal/config"
	"github.com/citegap/citegap/internal/core"
	"github.com/citegap/citegap/internal/logger"
	"github.com/citegap/citegap/internal/pipeline"
	"github.com/citegap/citegap/internal/store"
)

const (
	defaultDigestSchedule = "0 8 * * *"
	scanWindowSchedule    = "0 5 * * *"
	backlinkSchedule      = "30 3 * * *"
)

// Runner accepts pipeline events; satisfied by pipeline.Orchestrator. Emit
// enqueues for the daemon's worker pool, Process handles inline.
type Runner interface {
	Process(ctx context.Context, ev pipeline.Event) error
	Emit(ev pipeline.Event) error
}

// Service wires the cron jobs.
type Service struct {
	cron   *cron.Cron
	runner Runner
	store  store.Store
	cfg    config.Digest
	now    func() time.Time
	log    zerolog.Logger
}

func New(runner Runner, st store.Store, cfg config.Digest) *Service {
	if cfg.Schedule == "" {
		cfg.Schedule = defaultDigestSchedule
	}
	if cfg.RetryAttempts < 0 {
		cfg.RetryAttempts = 0
	}
	return &Service{
		cron:   cron.New(),
		runner: runner,
		store:  st,
		cfg:    cfg,
		now:    time.Now,
		log:    logger.With("scheduler"),
	}
}

// Start registers the jobs and launches the cron loop.
func (s *Service) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(scanWindowSchedule, func() { s.RunScanWindow(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() { s.RunDigest(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(backlinkSchedule, func() { s.RunBacklinkBatch(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("digest_schedule", s.cfg.Schedule).Msg("scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}

// RunScanWindow enqueues a scan-window pass for every brand. Events go
// through Emit so the daemon's worker pool picks them up with its usual
// concurrency caps; a full queue drops the brand until the next run.
func (s *Service) RunScanWindow(ctx context.Context) {
	brands, err := s.store.ListBrands(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("list brands for scan window")
		return
	}
	for i := range brands {
		if err := s.runner.Emit(pipeline.Event{Type: pipeline.EventScanWindowReady, BrandID: brands[i].ID}); err != nil {
			s.log.Error().Err(err).Str("brand", brands[i].ID).Msg("enqueue scan window")
		}
	}
}

// RunDigest fires the digest event with the job's own bounded retries.
func (s *Service) RunDigest(ctx context.Context) {
	var err error
	for attempt := 0; attempt <= s.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			s.log.Warn().Err(err).Int("attempt", attempt).Msg("retrying digest job")
		}
		if err = s.runner.Process(ctx, pipeline.Event{Type: pipeline.EventDigestDue}); err == nil {
			return
		}
	}
	s.log.Error().Err(err).Msg("digest job failed")
}

// RunBacklinkBatch re-links brands that published a memo in the last 24h.
func (s *Service) RunBacklinkBatch(ctx context.Context) {
	brands, err := s.store.ListBrands(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("list brands for backlink batch")
		return
	}

	since := s.now().Add(-24 * time.Hour)
	for i := range brands {
		recent, err := s.store.ListMemos(ctx, store.MemoListOpts{
			BrandID:        brands[i].ID,
			Status:         core.MemoPublished,
			PublishedSince: since,
		})
		if err != nil {
			s.log.Error().Err(err).Str("brand", brands[i].ID).Msg("list recent memos")
			continue
		}
		if len(recent) == 0 {
			continue
		}
		if err := s.runner.Process(ctx, pipeline.Event{Type: pipeline.EventBacklinkBatch, BrandID: brands[i].ID}); err != nil {
			s.log.Error().Err(err).Str("brand", brands[i].ID).Msg("backlink batch failed")
		}
	}
}
