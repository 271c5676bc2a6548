// Package hydrate downloads attachment content and drives the attachment
// state machine from pending through to a terminal state.
package hydrate

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/DonatFortini/mailmate/internal/fetch"
	"github.com/DonatFortini/mailmate/internal/filetype"
	"github.com/DonatFortini/mailmate/internal/model"
)

// ErrNotRetriable indicates a retry request against an attachment that is
// not in the error state.
var ErrNotRetriable = errors.New("attachment is not in a retriable state")

// Hydrator fetches attachment binaries and updates attachment state.
// Concurrent hydration requests for the same attachment collapse into one
// fetch; every waiter observes the same outcome.
type Hydrator struct {
	fetcher fetch.BinaryFetcher
	group   singleflight.Group
	log     *log.Entry
}

// New builds a Hydrator on top of the given fetcher.
func New(fetcher fetch.BinaryFetcher) *Hydrator {
	return &Hydrator{
		fetcher: fetcher,
		log:     log.WithField("component", "hydrate"),
	}
}

// Hydrate brings att to a terminal state. A ready attachment is returned
// untouched; an errored one is only re-attempted when retry is set. The
// returned error reflects transport or state-machine failures; a hydration
// failure recorded on the attachment itself is not an error return.
func (h *Hydrator) Hydrate(ctx context.Context, att *model.Attachment, retry bool) error {
	// All state inspection happens inside the singleflight callback, so
	// same-attachment access is serialized along with the fetch itself.
	_, err, shared := h.group.Do(att.ID, func() (interface{}, error) {
		switch att.Status {
		case model.StatusReady:
			return nil, nil
		case model.StatusError:
			if !retry {
				return nil, fmt.Errorf("attachment %s: %w", att.ID, ErrNotRetriable)
			}
			if err := att.ResetForRetry(); err != nil {
				return nil, err
			}
		}
		return nil, h.run(ctx, att)
	})
	if shared {
		h.log.WithField("attachment", att.ID).Debug("coalesced concurrent hydration")
	}
	return err
}

// run performs a single fetch-and-transition pass. It assumes exclusive
// ownership of the attachment for the duration of the call, which the
// singleflight key guarantees.
func (h *Hydrator) run(ctx context.Context, att *model.Attachment) error {
	if att.Terminal() {
		return nil
	}
	if err := att.MarkProcessing(); err != nil {
		return err
	}

	ref := att.SourceRef()
	if ref == "" {
		return att.MarkError(fmt.Sprintf("no source reference resolved for %q", att.Name))
	}

	result, err := h.fetcher.FetchBinary(ctx, ref)
	if err != nil {
		h.log.WithFields(log.Fields{
			"attachment": att.ID,
			"error":      err,
		}).Warn("hydration fetch failed")
		return att.MarkError(err.Error())
	}

	content := base64.StdEncoding.EncodeToString(result.Bytes)
	category := filetype.DetectDeclared(result.ContentType, att.Name)
	if err := att.MarkReady(content, result.Size, result.ContentType, category); err != nil {
		return err
	}

	h.log.WithFields(log.Fields{
		"attachment": att.ID,
		"bytes":      result.Size,
		"category":   string(category),
	}).Debug("hydrated attachment")
	return nil
}

// HydrateAll hydrates every non-terminal attachment of the record, strictly
// in order. Individual failures are recorded on the attachments and do not
// stop the pass; the first transport-level error does.
func (h *Hydrator) HydrateAll(ctx context.Context, record *model.EmailRecord) error {
	for _, att := range record.Attachments {
		if att.Terminal() {
			continue
		}
		if err := h.Hydrate(ctx, att, false); err != nil {
			return fmt.Errorf("hydrating %s: %w", att.ID, err)
		}
	}
	return nil
}
