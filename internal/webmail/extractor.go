package webmail

import (
	"fmt"
	"sync"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"

	"github.com/DonatFortini/mailmate/internal/filetype"
	"github.com/DonatFortini/mailmate/internal/identity"
	"github.com/DonatFortini/mailmate/internal/model"
	"github.com/DonatFortini/mailmate/internal/webmail/selector"
)

// readingPaneFallbacks are the broadened queries tried when no table query
// located the pane.
var readingPaneFallbacks = []string{
	`[class*="reading"]`,
	`[class*="Reading"]`,
	`[class*="message"][role]`,
}

// extractor composes the shared field-sequencing logic once; everything
// variant-specific is injected through the Strategy.
type extractor struct {
	strat Strategy
	log   *log.Entry

	mu       sync.Mutex
	seenRefs map[string]struct{}
}

// New builds an Extractor from a fully-specified provider strategy.
func New(strat Strategy) Extractor {
	return &extractor{
		strat:    strat,
		log:      log.WithField("provider", string(strat.Provider)),
		seenRefs: map[string]struct{}{},
	}
}

func (e *extractor) Provider() model.Provider {
	return e.strat.Provider
}

// Identity derives the identity key for the message open in the view. The
// address rules take precedence; a provider-supplied canonical id from the
// markup fills in when the address carries no extractable pattern.
func (e *extractor) Identity(v *View) string {
	pane := e.locateReadingPane(v)
	explicit := ""
	if e.strat.ExplicitID != nil {
		explicit = e.strat.ExplicitID(v, pane)
	}
	return identity.Derive(e.strat.Provider, v.Address, explicit)
}

// ClearState drops the per-instance de-duplication state.
func (e *extractor) ClearState() {
	e.mu.Lock()
	e.seenRefs = map[string]struct{}{}
	e.mu.Unlock()
}

// ExtractFull sequences the field reads against the view and returns a
// record whose attachments are all pending. Missing fields degrade to the
// documented defaults; only an unparsable view is an error.
func (e *extractor) ExtractFull(v *View) (*model.EmailRecord, error) {
	if v == nil || v.Doc == nil {
		return nil, fmt.Errorf("extracting %s record: no view", e.strat.Provider)
	}

	pane := e.locateReadingPane(v)
	id := e.Identity(v)

	record := &model.EmailRecord{
		ID:            id,
		SourceAddress: v.Address,
		Provider:      e.strat.Provider,
		Subject:       e.readSubject(v, pane),
		Sender:        e.readSender(v, pane),
		Recipients:    e.readRecipients(v, pane),
		Body:          e.readBody(v, pane),
	}
	record.Attachments = e.buildAttachments(id, e.locateAttachmentPlaceholders(v, pane))

	e.log.WithFields(log.Fields{
		"id":          record.ID,
		"recipients":  len(record.Recipients),
		"attachments": len(record.Attachments),
	}).Debug("extracted record")

	return record, nil
}

// locateReadingPane finds the region containing the open message, trying
// the table queries then the broadened fallbacks. A nil result is an
// expected branch: every field read degrades without a pane.
func (e *extractor) locateReadingPane(v *View) *goquery.Selection {
	if pane := findFirst(v.Doc.Selection, e.strat.Table.ReadingPane); pane != nil {
		return pane
	}
	return findFirst(v.Doc.Selection, readingPaneFallbacks)
}

func (e *extractor) readSubject(v *View, pane *goquery.Selection) string {
	if e.strat.HeaderSubject != nil {
		if s := e.strat.HeaderSubject(v, pane); s != "" {
			return s
		}
	}
	if pane == nil {
		return DefaultSubject
	}

	if sel := findFirst(pane, e.strat.Table.Subject); sel != nil {
		if text := textOrLabel(sel); PlausibleSubject(text) {
			return text
		}
	}

	// Broadened passes: headings, then the first few emphasized elements.
	found := ""
	pane.Find(`h1, h2, h3, [role="heading"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if text := textOrLabel(s); PlausibleSubject(text) {
			found = text
			return false
		}
		return true
	})
	if found != "" {
		return found
	}

	pane.Find(`strong, b, [style*="font-weight"]`).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= 5 {
			return false
		}
		if text := textOrLabel(s); PlausibleSubject(text) {
			found = text
			return false
		}
		return true
	})
	if found != "" {
		return found
	}

	return DefaultSubject
}

func (e *extractor) readSender(v *View, pane *goquery.Selection) string {
	if e.strat.HeaderSender != nil {
		if s := e.strat.HeaderSender(v, pane); s != "" {
			return s
		}
	}
	if pane == nil {
		return DefaultSender
	}

	if sel := findFirst(pane, e.strat.Table.Sender); sel != nil {
		if text := textOrLabel(sel); text != "" {
			if cleaned := CleanSender(text); cleaned != "" {
				return cleaned
			}
		}
	}

	// Last resort: the first address-shaped token near the top of the pane.
	if markup, err := pane.Html(); err == nil {
		head := truncateRunes(markup, 2000)
		if m := emailAddressPattern.FindString(head); m != "" {
			return m
		}
	}

	return DefaultSender
}

func (e *extractor) readRecipients(v *View, pane *goquery.Selection) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(entries []string) {
		for _, entry := range entries {
			if _, dup := seen[entry]; dup {
				continue
			}
			seen[entry] = struct{}{}
			out = append(out, entry)
		}
	}

	if e.strat.HeaderRecipients != nil {
		add(e.strat.HeaderRecipients(v, pane))
	}
	if pane == nil {
		return out
	}

	for _, sel := range collectAll(pane, e.strat.Table.Recipients) {
		if text := textOrLabel(sel); text != "" {
			add(SplitRecipients(text))
		}
	}
	return out
}

func (e *extractor) readBody(v *View, pane *goquery.Selection) string {
	if pane == nil {
		return ""
	}

	for _, q := range e.strat.Table.Body {
		if sel := pane.Find(q); sel.Length() > 0 {
			if text := normalizeText(sel.First()); text != "" {
				return text
			}
		}
	}

	// Degraded branch: a truncated raw-text snapshot of the pane.
	return truncateRunes(normalizeText(pane), bodyFallbackLimit)
}

// locateAttachmentPlaceholders collects attachment candidates and resolves
// each to a (reference, name) pair. Scoping prefers a dedicated attachment
// container; inside one the broadened queries are safe, on the bare pane
// only the conservative set runs.
func (e *extractor) locateAttachmentPlaceholders(v *View, pane *goquery.Selection) []Placeholder {
	var root *goquery.Selection
	var queries []string

	if container := findFirst(v.Doc.Selection, e.strat.Table.AttachmentContainer); container != nil {
		root = container
		queries = append(append([]string{}, e.strat.Table.AttachmentElements...), selector.BroadAttachmentElements...)
	} else if pane != nil {
		root = pane
		queries = append(append([]string{}, e.strat.Table.AttachmentElements...), selector.PaneAttachmentElements...)
	} else {
		return nil
	}

	var out []Placeholder
	for _, sel := range collectAll(root, queries) {
		if !isAttachmentCandidate(sel) {
			continue
		}
		if e.strat.Resolve != nil {
			if ph, ok := e.strat.Resolve(sel); ok {
				out = append(out, ph)
				continue
			}
		}
		out = append(out, resolvePlaceholder(sel))
	}
	return out
}

// buildAttachments turns placeholders into pending attachments, collapsing
// duplicates that resolved to the same reference. The seen set resets per
// extraction pass so repeated extraction of the same view stays idempotent.
func (e *extractor) buildAttachments(recordID string, placeholders []Placeholder) []*model.Attachment {
	e.mu.Lock()
	e.seenRefs = map[string]struct{}{}
	seen := e.seenRefs
	e.mu.Unlock()

	var out []*model.Attachment
	for i, ph := range placeholders {
		key := ph.Ref
		if key == "" {
			key = fmt.Sprintf("name:%s#%d", ph.Name, i)
		} else {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}

		attID := "att_" + identity.HashRef(recordID+"|"+key)
		name := SanitizeFilename(ph.Name)
		category := filetype.Detect(name, ph.MimeHint)
		att := model.NewPendingAttachment(attID, name, category, ph.Ref)
		if ph.MimeHint != "" {
			att.Metadata.MimeType = ph.MimeHint
		}
		out = append(out, att)
	}
	return out
}
