// Package syncer pushes published memos to external surfaces: an
// IndexNow-style search-engine ping and an optional CMS webhook. Callers
// treat the whole package as best-effort; Push reports errors for logging but
// a failed sync never invalidates the memo that triggered it.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/citegap/citegap/internal/config"
	"github.com/citegap/citegap/internal/core"
	"github.com/citegap/citegap/internal/logger"
)

const defaultIndexNowURL = "https://api.indexnow.org/indexnow"

// Syncer performs post-publish external notifications.
type Syncer struct {
	client *resty.Client
	cfg    config.Sync
	log    zerolog.Logger
}

func New(cfg config.Sync) *Syncer {
	timeout, err := time.ParseDuration(cfg.RequestTimeout)
	if err != nil || timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cfg.IndexNowURL == "" {
		cfg.IndexNowURL = defaultIndexNowURL
	}
	return &Syncer{
		client: resty.New().SetTimeout(timeout),
		cfg:    cfg,
		log:    logger.With("syncer"),
	}
}

// Push notifies all configured targets about a published memo. Partial
// failures are joined so the caller can log a single error.
func (s *Syncer) Push(ctx context.Context, brand *core.Brand, memo *core.Memo) error {
	if !s.cfg.Enabled {
		return nil
	}

	var errs []error
	if s.cfg.IndexNowKey != "" {
		if err := s.pingIndexNow(ctx, brand, memo); err != nil {
			errs = append(errs, err)
		}
	}
	if s.cfg.CMSWebhookURL != "" {
		if err := s.pushCMS(ctx, brand, memo); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Syncer) pingIndexNow(ctx context.Context, brand *core.Brand, memo *core.Memo) error {
	host := brand.Subdomain
	if host == "" {
		host = brand.Domain
	}
	payload := map[string]any{
		"host":    host,
		"key":     s.cfg.IndexNowKey,
		"urlList": []string{memoURL(host, memo)},
	}

	resp, err := s.client.R().SetContext(ctx).SetBody(payload).Post(s.cfg.IndexNowURL)
	if err != nil {
		return fmt.Errorf("indexnow ping: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("indexnow ping: status %d", resp.StatusCode())
	}
	s.log.Debug().Str("slug", memo.Slug).Msg("search index pinged")
	return nil
}

func (s *Syncer) pushCMS(ctx context.Context, brand *core.Brand, memo *core.Memo) error {
	payload := map[string]any{
		"brand_id":         brand.ID,
		"slug":             memo.Slug,
		"title":            memo.Title,
		"content":          memo.Content,
		"meta_description": memo.MetaDescription,
		"structured_data":  memo.StructuredData,
		"status":           string(memo.Status),
		"version":          memo.Version,
	}

	resp, err := s.client.R().SetContext(ctx).SetBody(payload).Post(s.cfg.CMSWebhookURL)
	if err != nil {
		return fmt.Errorf("cms push: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("cms push: status %d", resp.StatusCode())
	}
	s.log.Debug().Str("slug", memo.Slug).Msg("cms updated")
	return nil
}

func memoURL(host string, memo *core.Memo) string {
	return "https://" + host + "/" + memo.Slug
}
