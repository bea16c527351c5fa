package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/glassfocus/core/internal/infrastructure/config"
	"github.com/glassfocus/core/internal/infrastructure/logger"
	"github.com/glassfocus/core/internal/ports"
)

// Shell lifecycle phases
const (
	phaseIdle       = "idle"
	phaseInstalling = "installing"
	phaseWaiting    = "waiting"
	phaseActive     = "active"
)

// ShellService manages the versioned offline cache for the application
// shell. It serves shell requests cache-first, writes fresh same-origin
// responses through to the cache, and replaces whole cache generations
// when the shell version changes.
type ShellService struct {
	cache   ports.ShellCache
	config  config.ShellConfig
	logger  *logger.Logger
	client  *http.Client
	metrics *shellMetrics

	mu    sync.Mutex
	phase string

	skipWaiting chan struct{}
	inflight    sync.WaitGroup
}

// ShellOption customizes a shell service
type ShellOption func(*ShellService)

// WithShellClient overrides the outbound HTTP client, for tests
func WithShellClient(client *http.Client) ShellOption {
	return func(s *ShellService) {
		s.client = client
	}
}

// NewShellService creates a new shell service. Metrics are registered on
// reg when it is non-nil.
func NewShellService(cache ports.ShellCache, cfg config.ShellConfig, appLogger *logger.Logger, reg prometheus.Registerer, opts ...ShellOption) *ShellService {
	s := &ShellService{
		cache:       cache,
		config:      cfg,
		logger:      appLogger.WithComponent("shell_service"),
		client:      &http.Client{Timeout: cfg.RequestTimeout},
		metrics:     newShellMetrics(reg),
		phase:       phaseIdle,
		skipWaiting: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run drives the install/waiting/activate lifecycle. A freshly installed
// version stays waiting while caches from other versions exist, until a
// skip-waiting message arrives or ctx is cancelled. Run returns when ctx
// is cancelled.
func (s *ShellService) Run(ctx context.Context) error {
	if err := s.Install(ctx); err != nil {
		return fmt.Errorf("failed to install shell: %w", err)
	}

	if s.hasOldCaches(ctx) {
		s.setPhase(phaseWaiting)
		s.logger.LogCacheEvent("waiting", s.config.CacheName(), nil)
		select {
		case <-s.skipWaiting:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := s.Activate(ctx); err != nil {
		return fmt.Errorf("failed to activate shell: %w", err)
	}

	<-ctx.Done()
	return ctx.Err()
}

// Install opens this version's cache and precaches the shell manifest.
// A manifest URL that cannot be fetched is logged and skipped; it will be
// cached on first successful fetch instead.
func (s *ShellService) Install(ctx context.Context) error {
	s.setPhase(phaseInstalling)
	name := s.config.CacheName()

	if err := s.cache.Open(ctx, name); err != nil {
		return fmt.Errorf("failed to open cache %s: %w", name, err)
	}

	cached := 0
	for _, path := range s.config.Manifest {
		url := s.resolveURL(path)
		if err := s.fetchAndStore(ctx, name, url); err != nil {
			s.logger.WithError(err).Warnw("Failed to precache shell asset", "url", url)
			continue
		}
		cached++
	}

	s.logger.LogCacheEvent("installed", name, map[string]interface{}{
		"precached": cached,
		"manifest":  len(s.config.Manifest),
	})
	return nil
}

// Activate deletes every cache generation except the current one and
// starts serving requests from the new version.
func (s *ShellService) Activate(ctx context.Context) error {
	name := s.config.CacheName()

	names, err := s.cache.Names(ctx)
	if err != nil {
		return fmt.Errorf("failed to list caches: %w", err)
	}
	for _, old := range names {
		if old == name {
			continue
		}
		if err := s.cache.Delete(ctx, old); err != nil {
			s.logger.WithError(err).Warnw("Failed to delete stale cache", "cache", old)
			continue
		}
		s.logger.LogCacheEvent("deleted", old, nil)
	}

	s.setPhase(phaseActive)
	s.logger.LogCacheEvent("activated", name, nil)
	return nil
}

// Fetch answers one shell request cache-first. Cache misses fall through
// to the network; successful same-origin responses are written back to
// the cache. When the network is unreachable, navigation requests fall
// back to the cached offline document and everything else fails.
func (s *ShellService) Fetch(ctx context.Context, req *http.Request) (*ports.CachedResponse, error) {
	name := s.config.CacheName()
	url := s.resolveURL(req.URL.RequestURI())

	if req.Method == http.MethodGet {
		if res, err := s.cache.Match(ctx, name, url); err == nil {
			s.metrics.hits.Inc()
			return res, nil
		}
		s.metrics.misses.Inc()
	}

	res, err := s.fetchNetwork(ctx, req, url)
	if err != nil {
		if !isNavigation(req) {
			return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
		}
		fallback, matchErr := s.cache.Match(ctx, name, s.resolveURL(s.config.OfflineURL))
		if matchErr != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
		}
		s.metrics.fallbacks.Inc()
		s.logger.Debugw("Serving offline fallback", "url", url)
		return fallback, nil
	}

	if req.Method == http.MethodGet && s.cacheable(res) {
		s.writeThrough(name, res)
	}
	return res, nil
}

// PostMessage delivers one control message to the cache manager
func (s *ShellService) PostMessage(msg ports.ShellMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	switch msg.Type {
	case ports.MessageSkipWaiting:
		select {
		case s.skipWaiting <- struct{}{}:
		default:
			// activation already signalled
		}
		s.logger.Infow("Skip-waiting requested", "message_id", msg.ID)
		return nil
	case ports.MessageSync:
		s.logger.Infow("Sync requested", "message_id", msg.ID, "tag", msg.Tag)
		return nil
	default:
		return fmt.Errorf("unknown shell message type: %s", msg.Type)
	}
}

// Phase returns the current lifecycle phase
func (s *ShellService) Phase() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Close waits for outstanding cache writes to finish
func (s *ShellService) Close() {
	s.inflight.Wait()
}

func (s *ShellService) setPhase(phase string) {
	s.mu.Lock()
	s.phase = phase
	s.mu.Unlock()
}

func (s *ShellService) hasOldCaches(ctx context.Context) bool {
	names, err := s.cache.Names(ctx)
	if err != nil {
		return false
	}
	for _, name := range names {
		if name != s.config.CacheName() {
			return true
		}
	}
	return false
}

// resolveURL turns a shell path into its absolute URL on the shell origin.
// Absolute URLs, such as third-party font stylesheets in the manifest, are
// kept as they are.
func (s *ShellService) resolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(s.config.Origin, "/") + "/" + strings.TrimLeft(path, "/")
}

// cacheable reports whether a response may be written to the cache: a
// plain 200 from the shell origin itself.
func (s *ShellService) cacheable(res *ports.CachedResponse) bool {
	return res.Status == http.StatusOK && strings.HasPrefix(res.URL, strings.TrimRight(s.config.Origin, "/"))
}

func (s *ShellService) fetchNetwork(ctx context.Context, orig *http.Request, url string) (*ports.CachedResponse, error) {
	req, err := http.NewRequestWithContext(ctx, orig.Method, url, orig.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for _, h := range []string{"Accept", "Accept-Language", "If-None-Match", "If-Modified-Since"} {
		if v := orig.Header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}

	res, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &ports.CachedResponse{
		URL:       url,
		Status:    res.StatusCode,
		Header:    res.Header.Clone(),
		Body:      body,
		FetchedAt: time.Now(),
	}, nil
}

func (s *ShellService) fetchAndStore(ctx context.Context, name, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	res, err := s.fetchNetwork(ctx, req, url)
	if err != nil {
		return err
	}
	if res.Status != http.StatusOK {
		return fmt.Errorf("unexpected status %d", res.Status)
	}
	return s.cache.Put(ctx, name, res)
}

// writeThrough stores a fresh response without delaying the caller. Close
// waits for these writes before shutdown.
func (s *ShellService) writeThrough(name string, res *ports.CachedResponse) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.config.RequestTimeout)
		defer cancel()
		if err := s.cache.Put(ctx, name, res); err != nil {
			s.logger.WithError(err).Warnw("Failed to cache response", "url", res.URL)
		}
	}()
}

// isNavigation reports whether a request is a document navigation, the
// only kind of request the offline fallback applies to.
func isNavigation(req *http.Request) bool {
	if req.Method != http.MethodGet {
		return false
	}
	if req.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return strings.Contains(req.Header.Get("Accept"), "text/html")
}

type shellMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	fallbacks prometheus.Counter
}

func newShellMetrics(reg prometheus.Registerer) *shellMetrics {
	m := &shellMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shell_cache_hits_total",
			Help: "Total number of shell requests answered from the cache",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shell_cache_misses_total",
			Help: "Total number of shell requests that fell through to the network",
		}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shell_offline_fallbacks_total",
			Help: "Total number of navigations served the offline document",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.hits, m.misses, m.fallbacks)
	}
	return m
}
