package syncer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citegap/citegap/internal/config"
	"github.com/citegap/citegap/internal/core"
)

func TestPushNotifiesAllTargets(t *testing.T) {
	var indexNowBody, cmsBody []byte
	indexNow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		indexNowBody, _ = io.ReadAll(r.Body)
	}))
	defer indexNow.Close()
	cms := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cmsBody, _ = io.ReadAll(r.Body)
	}))
	defer cms.Close()

	s := New(config.Sync{
		Enabled:       true,
		IndexNowKey:   "test-key",
		IndexNowURL:   indexNow.URL,
		CMSWebhookURL: cms.URL,
	})

	brand := &core.Brand{ID: "brand-1", Domain: "citegap.example.com", Subdomain: "memos.citegap.example.com"}
	memo := &core.Memo{Slug: "vs/acme-corp", Title: "CiteGap vs Acme Corp", Content: "body", Status: core.MemoPublished, Version: 1}

	require.NoError(t, s.Push(context.Background(), brand, memo))

	var ping struct {
		Host    string   `json:"host"`
		Key     string   `json:"key"`
		URLList []string `json:"urlList"`
	}
	require.NoError(t, json.Unmarshal(indexNowBody, &ping))
	assert.Equal(t, "memos.citegap.example.com", ping.Host)
	assert.Equal(t, "test-key", ping.Key)
	assert.Equal(t, []string{"https://memos.citegap.example.com/vs/acme-corp"}, ping.URLList)

	var push map[string]any
	require.NoError(t, json.Unmarshal(cmsBody, &push))
	assert.Equal(t, "vs/acme-corp", push["slug"])
	assert.Equal(t, "published", push["status"])
}

func TestPushDisabledIsNoOp(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	s := New(config.Sync{Enabled: false, IndexNowKey: "k", IndexNowURL: srv.URL, CMSWebhookURL: srv.URL})
	require.NoError(t, s.Push(context.Background(), &core.Brand{Domain: "x"}, &core.Memo{Slug: "s"}))
	assert.False(t, called)
}

func TestPushReportsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := New(config.Sync{Enabled: true, CMSWebhookURL: srv.URL})
	err := s.Push(context.Background(), &core.Brand{Domain: "x"}, &core.Memo{Slug: "s"})
	assert.Error(t, err)
}
