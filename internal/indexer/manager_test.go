package indexer

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/adapter"
	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/types"
	"github.com/TheDragonShaman/AuralArchive-sub002/internal/testutil"
)

type staticProvider struct {
	cfgs []types.IndexerConfig
	err  error
}

func (p *staticProvider) IndexerConfigs() ([]types.IndexerConfig, error) {
	return p.cfgs, p.err
}

func managerConfigs() []types.IndexerConfig {
	return []types.IndexerConfig{
		{
			Key: "beta", Name: "Beta", Enabled: true, Priority: 20,
			Type: types.IndexerTypeTorznab, BaseURL: "http://beta.example",
		},
		{
			Key: "alpha", Name: "Alpha", Enabled: true, Priority: 10,
			Type: types.IndexerTypeTorznab, BaseURL: "http://alpha.example",
		},
		{
			Key: "disabled", Name: "Disabled", Enabled: false,
			Type: types.IndexerTypeTorznab, BaseURL: "http://off.example",
		},
	}
}

func newTestManager(t *testing.T, provider ConfigProvider, st *stubTransport) *Manager {
	t.Helper()
	m, err := NewManager(provider, adapter.NewRegistry(), testutil.NewTestLogger(t), WithTransport(st))
	require.NoError(t, err)
	return m
}

func TestManagerLoadOrdering(t *testing.T) {
	st := &stubTransport{handler: func(*http.Request) (*http.Response, error) {
		return httpResponse(200, testFeed), nil
	}}
	m := newTestManager(t, &staticProvider{cfgs: managerConfigs()}, st)

	indexers := m.Indexers()
	require.Len(t, indexers, 2)
	assert.Equal(t, "alpha", indexers[0].Key())
	assert.Equal(t, "beta", indexers[1].Key())

	_, ok := m.ByKey("disabled")
	assert.False(t, ok)
}

func TestManagerSearchPartialFailure(t *testing.T) {
	// One indexer answers, the other refuses connections: the search still
	// succeeds with the healthy indexer's results.
	st := &stubTransport{handler: func(req *http.Request) (*http.Response, error) {
		if req.URL.Host == "beta.example" {
			return nil, errors.New("connection refused")
		}
		return httpResponse(200, testFeed), nil
	}}
	m := newTestManager(t, &staticProvider{cfgs: managerConfigs()}, st)

	results, searched := m.Search(context.Background(), types.SearchParams{Query: "hail mary"}, SearchOptions{})
	assert.Equal(t, 2, searched)
	require.Len(t, results, 1)
	assert.Equal(t, "Alpha", results[0].IndexerName)
}

func TestManagerSearchSequential(t *testing.T) {
	st := &stubTransport{handler: func(*http.Request) (*http.Response, error) {
		return httpResponse(200, testFeed), nil
	}}
	m := newTestManager(t, &staticProvider{cfgs: managerConfigs()}, st)

	results, searched := m.Search(context.Background(), types.SearchParams{Query: "hail mary"}, SearchOptions{Sequential: true})
	assert.Equal(t, 2, searched)
	// Both indexers return the same release URL; dedup keeps one.
	assert.Len(t, results, 1)
}

func TestManagerTestAll(t *testing.T) {
	st := &stubTransport{handler: func(req *http.Request) (*http.Response, error) {
		if req.URL.Host == "beta.example" {
			return httpResponse(401, ""), nil
		}
		return httpResponse(200, `<caps><searching><search available="yes"/></searching></caps>`), nil
	}}
	m := newTestManager(t, &staticProvider{cfgs: managerConfigs()}, st)

	results := m.TestAll(context.Background())
	require.Len(t, results, 2)
	assert.True(t, results["alpha"].Success)
	assert.False(t, results["beta"].Success)
	assert.Contains(t, results["beta"].Error, "AUTH_REJECTED")

	status := m.Status()
	assert.Equal(t, 2, status.Total)
	assert.Equal(t, 2, status.Available)
}

func TestManagerReload(t *testing.T) {
	st := &stubTransport{handler: func(*http.Request) (*http.Response, error) {
		return httpResponse(200, testFeed), nil
	}}
	provider := &staticProvider{cfgs: managerConfigs()}
	m := newTestManager(t, provider, st)
	require.Len(t, m.Indexers(), 2)

	provider.cfgs = managerConfigs()[:1]
	require.NoError(t, m.Reload())
	indexers := m.Indexers()
	require.Len(t, indexers, 1)
	assert.Equal(t, "beta", indexers[0].Key())
}

func TestManagerReloadError(t *testing.T) {
	st := &stubTransport{handler: func(*http.Request) (*http.Response, error) {
		return httpResponse(200, testFeed), nil
	}}
	provider := &staticProvider{cfgs: managerConfigs()}
	m := newTestManager(t, provider, st)

	provider.err = errors.New("config unreadable")
	require.Error(t, m.Reload())
	// The previous indexer set stays in place.
	assert.Len(t, m.Indexers(), 2)
}

func TestDeduplicateResults(t *testing.T) {
	results := []types.Result{
		{IndexerName: "a", Title: "Book One", DownloadURL: "http://x/1.torrent"},
		{IndexerName: "b", Title: "Book One Again", DownloadURL: "http://x/1.torrent"},
		{IndexerName: "a", Title: "Book Two", InfoHash: "aabbccddeeff00112233445566778899aabbccdd"},
		{IndexerName: "b", Title: "Book Two", DownloadURL: "http://y/2.torrent", InfoHash: "AABBCCDDEEFF00112233445566778899AABBCCDD"},
		{IndexerName: "a", Title: "No Handles"},
		{IndexerName: "a", Title: "no handles"},
		{IndexerName: "b", Title: "No Handles"},
	}
	out := DeduplicateResults(results)
	require.Len(t, out, 4)
	assert.Equal(t, "Book One", out[0].Title)
	assert.Equal(t, "Book Two", out[1].Title)
	assert.Equal(t, "No Handles", out[2].Title)
	assert.Equal(t, "b", out[3].IndexerName)
}

func TestDeduplicateResultsSameTitleDifferentURL(t *testing.T) {
	// The same release found under two variant queries can surface once as a
	// .torrent link and once as a magnet; the (indexer, title) pair still
	// collapses them.
	results := []types.Result{
		{IndexerName: "a", Title: "Book Three", DownloadURL: "http://x/3.torrent"},
		{IndexerName: "a", Title: "book three", DownloadURL: "magnet:?xt=urn:btih:ff00"},
		{IndexerName: "b", Title: "Book Three", DownloadURL: "http://z/3.torrent"},
	}
	out := DeduplicateResults(results)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].IndexerName)
	assert.Equal(t, "http://x/3.torrent", out[0].DownloadURL)
	assert.Equal(t, "b", out[1].IndexerName)
}
