// Package cache keeps fully-hydrated email records for a bounded time so a
// message reopened shortly after extraction is served without re-running the
// pipeline.
package cache

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/DonatFortini/mailmate/internal/model"
)

// DefaultMaxAge bounds how long an entry is served before it expires.
const DefaultMaxAge = 5 * time.Minute

// Resolver derives the identity key for a navigable address. Cache reads
// revalidate against it so a stale pointer never serves the wrong message.
type Resolver interface {
	Identity(address, explicitID string) (string, error)
}

// Persister mirrors cache mutations to durable storage and restores them on
// startup.
type Persister interface {
	SaveEntry(record *model.EmailRecord, storedAt time.Time) error
	LoadEntries() ([]StoredEntry, error)
	DeleteEntry(id string) error
	DeleteAll() error
	SetCurrent(id string) error
	Current() (string, error)
}

// StoredEntry is one persisted cache row.
type StoredEntry struct {
	Record   *model.EmailRecord
	StoredAt time.Time
}

type entry struct {
	record   *model.EmailRecord
	storedAt time.Time
}

// Cache is a TTL-bounded in-memory record cache with an optional persistence
// mirror. It also tracks a "current" pointer naming the record of the most
// recently cached extraction.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	current string

	maxAge   time.Duration
	resolver Resolver
	persist  Persister
	now      func() time.Time
	log      *log.Entry
}

// New builds a cache. resolver must not be nil; persist may be, in which case
// the cache is memory-only. A non-positive maxAge falls back to DefaultMaxAge.
func New(maxAge time.Duration, resolver Resolver, persist Persister) *Cache {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Cache{
		entries:  map[string]entry{},
		maxAge:   maxAge,
		resolver: resolver,
		persist:  persist,
		now:      time.Now,
		log:      log.WithField("component", "cache"),
	}
}

// Restore loads persisted entries into memory, dropping any that expired
// while the process was down.
func (c *Cache) Restore() error {
	if c.persist == nil {
		return nil
	}

	stored, err := c.persist.LoadEntries()
	if err != nil {
		return fmt.Errorf("restoring cache: %w", err)
	}
	current, err := c.persist.Current()
	if err != nil {
		return fmt.Errorf("restoring cache pointer: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.maxAge)
	for _, s := range stored {
		if s.StoredAt.Before(cutoff) {
			continue
		}
		c.entries[s.Record.ID] = entry{record: s.Record, storedAt: s.StoredAt}
	}
	if _, ok := c.entries[current]; ok {
		c.current = current
	}

	c.log.WithField("entries", len(c.entries)).Debug("restored cache")
	return nil
}

// Put caches a record and makes it current. Records with unhydrated
// attachments are refused: the cache only ever serves complete records, so a
// later read never hands out a half-hydrated copy.
func (c *Cache) Put(record *model.EmailRecord) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("caching record: missing id")
	}
	if !record.AllReady() {
		return fmt.Errorf("caching record %s: attachments not fully hydrated", record.ID)
	}

	now := c.now()
	clone := record.Clone()

	c.mu.Lock()
	c.entries[record.ID] = entry{record: clone, storedAt: now}
	c.current = record.ID
	c.mu.Unlock()

	if c.persist != nil {
		if err := c.persist.SaveEntry(clone, now); err != nil {
			return fmt.Errorf("persisting cache entry %s: %w", record.ID, err)
		}
		if err := c.persist.SetCurrent(record.ID); err != nil {
			return fmt.Errorf("persisting cache pointer: %w", err)
		}
	}
	return nil
}

// Get returns the cached record for the message at address, or nil when no
// fresh entry matches. The identity is re-derived from the address on every
// read, so a lookup for a different message never aliases onto a stale entry.
// An entry keyed by a markup-level id is still found through the address it
// was extracted from.
func (c *Cache) Get(address string) (*model.EmailRecord, error) {
	id, err := c.resolver.Identity(address, "")
	if err != nil {
		return nil, err
	}
	if record := c.lookup(id); record != nil {
		return record, nil
	}
	return c.lookup(c.findBySource(id)), nil
}

// GetCurrent returns the record behind the current pointer. With an address
// it only answers when the address still resolves to the pointed-at record;
// without one (the restart path, before any navigation is known) the record
// is served tentatively and the caller revalidates once an address exists.
func (c *Cache) GetCurrent(address string) (*model.EmailRecord, error) {
	c.mu.Lock()
	current := c.current
	c.mu.Unlock()
	if current == "" {
		return nil, nil
	}
	if address == "" {
		return c.lookup(current), nil
	}

	id, err := c.resolver.Identity(address, "")
	if err != nil {
		return nil, err
	}
	if id != current && c.findBySource(id) != current {
		return nil, nil
	}
	return c.lookup(current), nil
}

// findBySource locates the entry whose source address re-derives to the
// given identity. It recovers entries keyed by a markup-level id, which an
// address-only derivation cannot reproduce.
func (c *Cache) findBySource(addressID string) string {
	if addressID == "" {
		return ""
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for id, e := range c.entries {
		if id == addressID || e.record.SourceAddress == "" {
			continue
		}
		derived, err := c.resolver.Identity(e.record.SourceAddress, "")
		if err == nil && derived == addressID {
			return id
		}
	}
	return ""
}

// lookup fetches a fresh entry by id, evicting it when expired.
func (c *Cache) lookup(id string) *model.EmailRecord {
	c.mu.Lock()
	e, ok := c.entries[id]
	if ok && c.now().Sub(e.storedAt) > c.maxAge {
		delete(c.entries, id)
		if c.current == id {
			c.current = ""
		}
		ok = false
		c.log.WithField("id", id).Debug("evicted expired entry")
		if c.persist != nil {
			if err := c.persist.DeleteEntry(id); err != nil {
				c.log.WithField("error", err).Warn("evicting persisted entry")
			}
		}
	}
	c.mu.Unlock()

	if !ok {
		return nil
	}
	return e.record.Clone()
}

// Invalidate removes one entry by record id.
func (c *Cache) Invalidate(id string) error {
	c.mu.Lock()
	delete(c.entries, id)
	if c.current == id {
		c.current = ""
	}
	c.mu.Unlock()

	if c.persist != nil {
		if err := c.persist.DeleteEntry(id); err != nil {
			return fmt.Errorf("invalidating entry %s: %w", id, err)
		}
	}
	return nil
}

// InvalidateAll clears the cache and the current pointer.
func (c *Cache) InvalidateAll() error {
	c.mu.Lock()
	c.entries = map[string]entry{}
	c.current = ""
	c.mu.Unlock()

	if c.persist != nil {
		if err := c.persist.DeleteAll(); err != nil {
			return fmt.Errorf("clearing persisted cache: %w", err)
		}
	}
	return nil
}

// EvictExpired removes every expired entry and returns the eviction count.
func (c *Cache) EvictExpired() int {
	cutoff := c.now().Add(-c.maxAge)

	c.mu.Lock()
	var expired []string
	for id, e := range c.entries {
		if e.storedAt.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(c.entries, id)
		if c.current == id {
			c.current = ""
		}
	}
	c.mu.Unlock()

	if c.persist != nil {
		for _, id := range expired {
			if err := c.persist.DeleteEntry(id); err != nil {
				c.log.WithField("error", err).Warn("evicting persisted entry")
			}
		}
	}
	return len(expired)
}

// Len reports the number of live entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
