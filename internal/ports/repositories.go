package ports

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Repository errors
var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrCacheMiss        = errors.New("cache entry not found")
	ErrCacheNotFound    = errors.New("cache not found")
)

// Logical document keys. Each key maps to an independently serialized
// document; loss of one must not prevent loading the others.
const (
	DocTodos      = "todos"
	DocArchive    = "archive"
	DocBooks      = "books"
	DocAnalytics  = "analytics"
	DocSettings   = "settings"
	DocLastOpened = "last-opened"
)

// DocumentStore defines the interface for the durable key/document store
// backing the application state.
type DocumentStore interface {
	// Get returns the raw serialized document for key, or ErrDocumentNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes a single document.
	Put(ctx context.Context, key string, value []byte) error
	// PutAll writes the given documents together; either all of them become
	// durable or none do.
	PutAll(ctx context.Context, docs map[string][]byte) error
	// Delete removes a document. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// CachedResponse is a stored copy of an HTTP response for one shell URL.
type CachedResponse struct {
	URL       string
	Status    int
	Header    http.Header
	Body      []byte
	FetchedAt time.Time
}

// ShellCache defines the interface for the durable, versioned response
// cache used by the cache manager. Cache names carry the shell version;
// upgrades replace whole caches rather than individual entries.
type ShellCache interface {
	// Open creates the named cache if it does not exist.
	Open(ctx context.Context, name string) error
	// Put stores a response in the named cache, replacing any entry for
	// the same URL.
	Put(ctx context.Context, name string, res *CachedResponse) error
	// Match returns the cached response for url, or ErrCacheMiss.
	Match(ctx context.Context, name, url string) (*CachedResponse, error)
	// Names lists all existing cache names.
	Names(ctx context.Context) ([]string, error)
	// Delete removes a named cache and all of its entries.
	Delete(ctx context.Context, name string) error
}
