// Package service coordinates the extraction pipeline: it turns captured
// page snapshots into records, drives attachment hydration, and promotes
// completed records into the cache.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/DonatFortini/mailmate/internal/cache"
	"github.com/DonatFortini/mailmate/internal/hydrate"
	"github.com/DonatFortini/mailmate/internal/model"
	"github.com/DonatFortini/mailmate/internal/webmail"
)

// ErrRecordNotFound indicates no live or cached record matches the request.
var ErrRecordNotFound = errors.New("record not found")

// ErrAttachmentNotFound indicates the record has no attachment with the
// requested id.
var ErrAttachmentNotFound = errors.New("attachment not found")

// Service is the pipeline facade. Records under hydration are held live in
// memory; once every attachment is terminal-ready the record moves to the
// cache and the live copy is dropped.
type Service struct {
	registry *webmail.Registry
	hydrator *hydrate.Hydrator
	cache    *cache.Cache

	mu   sync.Mutex
	live map[string]*model.EmailRecord

	log *log.Entry
}

// New builds the service over its collaborators.
func New(registry *webmail.Registry, hydrator *hydrate.Hydrator, c *cache.Cache) *Service {
	return &Service{
		registry: registry,
		hydrator: hydrator,
		cache:    c,
		live:     map[string]*model.EmailRecord{},
		log:      log.WithField("component", "service"),
	}
}

// Extract turns a captured page snapshot into a record. A fresh cached record
// for the same message short-circuits the pipeline. Records whose attachments
// all resolved immediately (including attachment-free messages) are promoted
// to the cache right away.
func (s *Service) Extract(ctx context.Context, address, pageHTML string) (*model.EmailRecord, error) {
	if cached, err := s.cache.Get(address); err == nil && cached != nil {
		s.log.WithField("id", cached.ID).Debug("served extraction from cache")
		return cached, nil
	}

	ex, err := s.registry.Get(address)
	if err != nil {
		return nil, err
	}

	view, err := webmail.NewView(address, pageHTML)
	if err != nil {
		return nil, err
	}

	record, err := ex.ExtractFull(view)
	if err != nil {
		return nil, err
	}

	if record.AllReady() {
		if err := s.cache.Put(record); err != nil {
			return nil, err
		}
		return record.Clone(), nil
	}

	s.mu.Lock()
	s.live[record.ID] = record
	s.mu.Unlock()

	return record.Clone(), nil
}

// Hydrate brings one attachment of the record at address to a terminal state
// and returns its updated copy. retry re-attempts an errored attachment.
func (s *Service) Hydrate(ctx context.Context, address, attachmentID string, retry bool) (*model.Attachment, error) {
	record, cached, err := s.find(address, attachmentID)
	if err != nil {
		return nil, err
	}

	att, ok := record.Attachment(attachmentID)
	if !ok {
		return nil, fmt.Errorf("record %s: %w: %s", record.ID, ErrAttachmentNotFound, attachmentID)
	}
	if cached {
		// Cached records are fully hydrated; nothing to do.
		return att.Clone(), nil
	}

	if err := s.hydrator.Hydrate(ctx, att, retry); err != nil {
		return nil, err
	}
	s.promote(record)

	return att.Clone(), nil
}

// HydrateAll hydrates every outstanding attachment of the record at address,
// strictly in order, and returns the updated record.
func (s *Service) HydrateAll(ctx context.Context, address string) (*model.EmailRecord, error) {
	record, cached, err := s.find(address, "")
	if err != nil {
		return nil, err
	}
	if cached {
		return record, nil
	}

	if err := s.hydrator.HydrateAll(ctx, record); err != nil {
		return nil, err
	}
	s.promote(record)

	return record.Clone(), nil
}

// GetCached returns the cached record for the message at address, or
// ErrRecordNotFound when no fresh entry matches.
func (s *Service) GetCached(address string) (*model.EmailRecord, error) {
	record, err := s.cache.Get(address)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("no cached record for address: %w", ErrRecordNotFound)
	}
	return record, nil
}

// GetCurrent returns the most recently cached record. A non-empty address
// must still resolve to it; an empty address serves the record tentatively,
// for the restart path where no navigation is known yet.
func (s *Service) GetCurrent(address string) (*model.EmailRecord, error) {
	record, err := s.cache.GetCurrent(address)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("no current record: %w", ErrRecordNotFound)
	}
	return record, nil
}

// Invalidate drops one record from the cache and any live copy.
func (s *Service) Invalidate(id string) error {
	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()
	return s.cache.Invalidate(id)
}

// InvalidateAll clears the cache, all live records, and every extractor's
// per-session state.
func (s *Service) InvalidateAll() error {
	s.mu.Lock()
	s.live = map[string]*model.EmailRecord{}
	s.mu.Unlock()

	s.registry.ClearAll()
	return s.cache.InvalidateAll()
}

// find locates the record targeted by a hydration or read request: first the
// live record matching the address identity, then a live record containing
// the attachment, then the cache. The bool reports a cache hit.
func (s *Service) find(address, attachmentID string) (*model.EmailRecord, bool, error) {
	id, err := s.registry.Identity(address, "")
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	record, ok := s.live[id]
	if !ok {
		// Markup-level ids widen the live key beyond what the address alone
		// derives; the source address the record was extracted from still
		// re-derives the same identity.
		for _, r := range s.live {
			if r.SourceAddress == "" {
				continue
			}
			if derived, derr := s.registry.Identity(r.SourceAddress, ""); derr == nil && derived == id {
				record, ok = r, true
				break
			}
		}
	}
	if !ok && attachmentID != "" {
		// The attachment id alone still pins the record.
		for _, r := range s.live {
			if _, has := r.Attachment(attachmentID); has {
				record, ok = r, true
				break
			}
		}
	}
	s.mu.Unlock()

	if ok {
		return record, false, nil
	}

	cached, err := s.cache.Get(address)
	if err != nil {
		return nil, false, err
	}
	if cached != nil {
		return cached, true, nil
	}

	return nil, false, fmt.Errorf("no record for address: %w", ErrRecordNotFound)
}

// promote moves a fully-hydrated live record into the cache. Records with
// errored or pending attachments stay live so retries can still reach them.
func (s *Service) promote(record *model.EmailRecord) {
	if !record.AllReady() {
		return
	}

	if err := s.cache.Put(record); err != nil {
		s.log.WithFields(log.Fields{
			"id":    record.ID,
			"error": err,
		}).Warn("promoting record to cache")
		return
	}

	s.mu.Lock()
	delete(s.live, record.ID)
	s.mu.Unlock()

	s.log.WithField("id", record.ID).Debug("promoted record to cache")
}
