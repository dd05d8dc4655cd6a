package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"unicode/utf8"
)

// BlobKey is the durable key the whole summary mapping is stored under.
const BlobKey = "cachedSummaries"

// ErrInvalidUTF8 is returned for entries JSON cannot carry without rewriting
// them to U+FFFD.
var ErrInvalidUTF8 = errors.New("entry is not valid UTF-8")

// Store persists opaque blobs under string keys.
type Store interface {
	LoadBlob(ctx context.Context, key string) ([]byte, bool, error)
	SaveBlob(ctx context.Context, key string, value []byte) error
}

// PersistenceWarning reports a failed read or write of the durable snapshot.
// It never invalidates the in-memory mapping.
type PersistenceWarning struct {
	Op  string
	Err error
}

func (w *PersistenceWarning) Error() string {
	return fmt.Sprintf("%s summary cache: %v", w.Op, w.Err)
}

func (w *PersistenceWarning) Unwrap() error {
	return w.Err
}

// SummaryCache maps exact input text to a previously obtained summary.
type SummaryCache struct {
	mu      sync.RWMutex
	entries map[string]string

	// persistMu serializes snapshot writes so an older snapshot never
	// overwrites a newer one.
	persistMu sync.Mutex
	dirty     bool

	store Store
	log   *slog.Logger
}

func New(store Store, log *slog.Logger) *SummaryCache {
	return &SummaryCache{
		entries: make(map[string]string),
		store:   store,
		log:     log,
	}
}

// Load hydrates a cache from store. A missing or unreadable snapshot yields an
// empty cache.
func Load(ctx context.Context, store Store, log *slog.Logger) *SummaryCache {
	c := New(store, log)

	blob, ok, err := store.LoadBlob(ctx, BlobKey)
	if err != nil {
		log.WarnContext(ctx, "Failed to load summary cache so empty cache will be used",
			"error", &PersistenceWarning{Op: "load", Err: err},
			"key", BlobKey)

		return c
	}
	if !ok {
		log.InfoContext(ctx, "Summary cache snapshot is absent",
			"key", BlobKey)

		return c
	}

	entries, err := Unmarshal(blob)
	if err != nil {
		log.WarnContext(ctx, "Failed to decode summary cache so empty cache will be used",
			"error", &PersistenceWarning{Op: "decode", Err: err},
			"key", BlobKey,
			"blobLen", len(blob))

		return c
	}

	c.entries = entries
	log.InfoContext(ctx, "Summary cache is loaded",
		"entries", len(entries))

	return c
}

func (c *SummaryCache) Get(text string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	summary, ok := c.entries[text]
	return summary, ok
}

// Put stores the mapping and persists the full snapshot. A returned error is
// always a *PersistenceWarning; the entry stays cached in memory.
func (c *SummaryCache) Put(ctx context.Context, text, summary string) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	c.entries[text] = summary
	snapshot := maps.Clone(c.entries)
	c.mu.Unlock()

	if err := c.persistLocked(ctx, snapshot); err != nil {
		return err
	}

	// The entry is served from memory but never written, since the durable
	// snapshot would store it under a different key.
	if !encodable(text, summary) {
		w := &PersistenceWarning{Op: "encode", Err: ErrInvalidUTF8}
		c.log.WarnContext(ctx, "Summary cache entry kept in memory only",
			"error", w,
			"key", BlobKey)
		return w
	}

	return nil
}

// Clear drops every entry and persists the empty snapshot.
func (c *SummaryCache) Clear(ctx context.Context) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	c.entries = make(map[string]string)
	c.mu.Unlock()

	return c.persistLocked(ctx, map[string]string{})
}

// Flush rewrites the snapshot if an earlier write failed.
func (c *SummaryCache) Flush(ctx context.Context) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	if !c.dirty {
		return nil
	}

	c.mu.RLock()
	snapshot := maps.Clone(c.entries)
	c.mu.RUnlock()

	return c.persistLocked(ctx, snapshot)
}

func (c *SummaryCache) Dirty() bool {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	return c.dirty
}

func (c *SummaryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

func (c *SummaryCache) persistLocked(ctx context.Context, snapshot map[string]string) error {
	maps.DeleteFunc(snapshot, func(text, summary string) bool {
		return !encodable(text, summary)
	})

	blob, err := Marshal(snapshot)
	if err != nil {
		return c.fail(ctx, &PersistenceWarning{Op: "encode", Err: err}, len(snapshot))
	}

	if err = c.store.SaveBlob(ctx, BlobKey, blob); err != nil {
		return c.fail(ctx, &PersistenceWarning{Op: "save", Err: err}, len(snapshot))
	}

	c.dirty = false

	return nil
}

func (c *SummaryCache) fail(ctx context.Context, w *PersistenceWarning, entries int) error {
	c.dirty = true

	c.log.WarnContext(ctx, "Failed to persist summary cache",
		"error", w,
		"key", BlobKey,
		"entries", entries)

	return w
}

func encodable(text, summary string) bool {
	return utf8.ValidString(text) && utf8.ValidString(summary)
}

// Marshal encodes the mapping as a JSON object of text to summary. It refuses
// entries that would not decode back to the same strings.
func Marshal(entries map[string]string) ([]byte, error) {
	if entries == nil {
		entries = map[string]string{}
	}

	for text, summary := range entries {
		if !encodable(text, summary) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidUTF8, text)
		}
	}

	return json.Marshal(entries)
}

func Unmarshal(blob []byte) (map[string]string, error) {
	var entries map[string]string
	if err := json.Unmarshal(blob, &entries); err != nil {
		return nil, err
	}

	if entries == nil {
		entries = make(map[string]string)
	}

	return entries, nil
}
