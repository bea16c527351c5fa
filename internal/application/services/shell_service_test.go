package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glassfocus/core/internal/infrastructure/config"
	"github.com/glassfocus/core/internal/infrastructure/logger"
	"github.com/glassfocus/core/internal/ports"
)

// memCache is an in-memory ShellCache for tests
type memCache struct {
	mu     sync.Mutex
	caches map[string]map[string]*ports.CachedResponse
}

func newMemCache() *memCache {
	return &memCache{caches: make(map[string]map[string]*ports.CachedResponse)}
}

func (m *memCache) Open(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.caches[name]; !ok {
		m.caches[name] = make(map[string]*ports.CachedResponse)
	}
	return nil
}

func (m *memCache) Put(ctx context.Context, name string, res *ports.CachedResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.caches[name]; !ok {
		m.caches[name] = make(map[string]*ports.CachedResponse)
	}
	m.caches[name][res.URL] = res
	return nil
}

func (m *memCache) Match(ctx context.Context, name, url string) (*ports.CachedResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, ok := m.caches[name]
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	res, ok := entries[url]
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	return res, nil
}

func (m *memCache) Names(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.caches))
	for name := range m.caches {
		names = append(names, name)
	}
	return names, nil
}

func (m *memCache) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.caches, name)
	return nil
}

func (m *memCache) size(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.caches[name])
}

func newShellFixture(t *testing.T, cache *memCache, handler http.Handler) (*ShellService, *httptest.Server, config.ShellConfig) {
	t.Helper()
	origin := httptest.NewServer(handler)
	t.Cleanup(origin.Close)

	cfg := config.ShellConfig{
		Version:        "2.0.0",
		Origin:         origin.URL,
		Manifest:       []string{"/", "/index.html", "/app.js"},
		OfflineURL:     "/index.html",
		RequestTimeout: 2 * time.Second,
	}
	svc := NewShellService(cache, cfg, logger.NewNop(), nil)
	return svc, origin, cfg
}

func shellOrigin() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>shell</html>"))
	})
	mux.HandleFunc("/app.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		w.Write([]byte("console.log('app')"))
	})
	return mux
}

func TestInstallPrecachesManifest(t *testing.T) {
	cache := newMemCache()
	svc, _, cfg := newShellFixture(t, cache, shellOrigin())

	require.NoError(t, svc.Install(context.Background()))
	assert.Equal(t, len(cfg.Manifest), cache.size(cfg.CacheName()))
}

func TestInstallSkipsUnreachableAssets(t *testing.T) {
	cache := newMemCache()
	mux := http.NewServeMux()
	mux.HandleFunc("/index.html", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("root"))
	})
	svc, _, cfg := newShellFixture(t, cache, mux)

	// /app.js 404s; install still succeeds with the rest cached.
	require.NoError(t, svc.Install(context.Background()))
	assert.Equal(t, 2, cache.size(cfg.CacheName()))
}

func TestFetchCacheFirst(t *testing.T) {
	cache := newMemCache()
	var networkCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		networkCalls++
		w.Write([]byte("from network"))
	})
	svc, origin, cfg := newShellFixture(t, cache, mux)

	require.NoError(t, cache.Open(context.Background(), cfg.CacheName()))
	require.NoError(t, cache.Put(context.Background(), cfg.CacheName(), &ports.CachedResponse{
		URL:    origin.URL + "/app.js",
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": []string{"application/javascript"}},
		Body:   []byte("cached"),
	}))

	req := httptest.NewRequest(http.MethodGet, "/app.js", nil)
	res, err := svc.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []byte("cached"), res.Body)
	assert.Zero(t, networkCalls)
}

func TestFetchMissWritesThrough(t *testing.T) {
	cache := newMemCache()
	svc, origin, cfg := newShellFixture(t, cache, shellOrigin())

	require.NoError(t, cache.Open(context.Background(), cfg.CacheName()))

	req := httptest.NewRequest(http.MethodGet, "/app.js", nil)
	res, err := svc.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)

	// The write-back happens off the request path.
	svc.Close()

	stored, err := cache.Match(context.Background(), cfg.CacheName(), origin.URL+"/app.js")
	require.NoError(t, err)
	assert.Equal(t, res.Body, stored.Body)
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	cache := newMemCache()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	svc, _, cfg := newShellFixture(t, cache, mux)

	require.NoError(t, cache.Open(context.Background(), cfg.CacheName()))

	req := httptest.NewRequest(http.MethodGet, "/missing.js", nil)
	res, err := svc.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.Status)

	svc.Close()
	assert.Zero(t, cache.size(cfg.CacheName()))
}

func TestFetchOfflineFallbackForNavigation(t *testing.T) {
	cache := newMemCache()
	svc, origin, _ := newShellFixture(t, cache, shellOrigin())

	require.NoError(t, svc.Install(context.Background()))
	origin.Close() // network goes away

	nav := httptest.NewRequest(http.MethodGet, "/some/page", nil)
	nav.Header.Set("Sec-Fetch-Mode", "navigate")

	res, err := svc.Fetch(context.Background(), nav)
	require.NoError(t, err)
	assert.Equal(t, []byte("<html>shell</html>"), res.Body)
	assert.Equal(t, origin.URL+"/index.html", res.URL)

	// Non-navigation requests fail instead of falling back.
	asset := httptest.NewRequest(http.MethodGet, "/missing.js", nil)
	asset.Header.Set("Accept", "application/javascript")
	_, err = svc.Fetch(context.Background(), asset)
	assert.Error(t, err)
}

func TestActivateDeletesStaleCaches(t *testing.T) {
	cache := newMemCache()
	svc, _, cfg := newShellFixture(t, cache, shellOrigin())

	ctx := context.Background()
	require.NoError(t, cache.Open(ctx, "glassfocus-v1.0.0"))
	require.NoError(t, cache.Open(ctx, cfg.CacheName()))

	require.NoError(t, svc.Activate(ctx))

	names, err := cache.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{cfg.CacheName()}, names)
	assert.Equal(t, phaseActive, svc.Phase())
}

func TestRunWaitsForSkipWaiting(t *testing.T) {
	cache := newMemCache()
	svc, _, _ := newShellFixture(t, cache, shellOrigin())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, cache.Open(ctx, "glassfocus-v1.0.0"))

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	// The new version must sit in waiting until the message arrives.
	require.Eventually(t, func() bool {
		return svc.Phase() == phaseWaiting
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, svc.PostMessage(ports.ShellMessage{Type: ports.MessageSkipWaiting}))

	require.Eventually(t, func() bool {
		return svc.Phase() == phaseActive
	}, 2*time.Second, 10*time.Millisecond)

	names, err := cache.Names(ctx)
	require.NoError(t, err)
	assert.Len(t, names, 1)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestPostMessageUnknownType(t *testing.T) {
	svc, _, _ := newShellFixture(t, newMemCache(), shellOrigin())

	assert.Error(t, svc.PostMessage(ports.ShellMessage{Type: "REFRESH"}))
	assert.NoError(t, svc.PostMessage(ports.ShellMessage{Type: ports.MessageSync, Tag: "state"}))
}
