// Package webmail implements the provider-agnostic extraction contract: it
// reads a structured email record out of a captured rendering of a webmail
// view, using per-provider tables of ordered structural queries.
package webmail

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/DonatFortini/mailmate/internal/model"
	"github.com/DonatFortini/mailmate/internal/webmail/selector"
)

// ErrUnsupportedProvider is returned when an address does not match any
// known webmail provider. It is terminal for that address; callers must not
// retry.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// Documented fallbacks for fields that could not be located. Extraction
// degrades per field instead of failing the whole record.
const (
	DefaultSubject = "No Subject"
	DefaultSender  = "Unknown Sender"

	// bodyFallbackLimit bounds the raw-text snapshot used when no body
	// query matched.
	bodyFallbackLimit = 5000
)

// View is a captured rendering of a webmail page: the address it was
// captured from plus the parsed document.
type View struct {
	// Address is the page URL at capture time.
	Address string

	// Doc is the parsed snapshot of the rendered markup.
	Doc *goquery.Document
}

// NewView parses a captured HTML snapshot into a View.
func NewView(address, html string) (*View, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing view for %s: %w", address, err)
	}
	return &View{Address: address, Doc: doc}, nil
}

// Placeholder is a discovered attachment reference prior to hydration.
type Placeholder struct {
	// Ref is the source the content can be hydrated from. Empty when no
	// resolution strategy produced one; such a placeholder is kept and
	// fails hydration with a descriptive error.
	Ref string

	// Name is the raw display name, unsanitized.
	Name string

	// MimeHint is a provisional content type guessed from markup
	// attributes, overridden at hydration.
	MimeHint string
}

// Extractor reads a structured EmailRecord out of a view for one provider
// variant. Implementations are pure relative to the view at call time.
type Extractor interface {
	// Provider returns the variant this extractor handles.
	Provider() model.Provider

	// Identity derives the identity key for the message open in the view.
	Identity(v *View) string

	// ExtractFull sequences the field reads and returns a record with all
	// attachments pending.
	ExtractFull(v *View) (*model.EmailRecord, error)

	// ClearState releases per-instance state so a subsequent extraction
	// starts clean.
	ClearState()
}

// Strategy fully specifies a provider variant: its selector table, its
// identity-extraction rule and optional supplementary field strategies.
// Shared sequencing lives in the extractor; variants only inject behavior.
type Strategy struct {
	// Provider is the variant identifier.
	Provider model.Provider

	// Table is the ordered structural-query table for this variant.
	Table selector.Table

	// ExplicitID extracts a provider-supplied canonical message id from
	// the view markup, or "" when none is present.
	ExplicitID func(v *View, pane *goquery.Selection) string

	// HeaderSubject, HeaderSender and HeaderRecipients search header
	// regions rendered outside the reading pane. They run before the
	// table queries and must exclude matches inside the pane, so quoted
	// or forwarded content is never picked up.
	HeaderSubject    func(v *View, pane *goquery.Selection) string
	HeaderSender     func(v *View, pane *goquery.Selection) string
	HeaderRecipients func(v *View, pane *goquery.Selection) []string

	// Resolve overrides the shared placeholder resolution for providers
	// with bespoke markup. Returning ok=false falls through to the
	// shared priority list.
	Resolve func(sel *goquery.Selection) (ph Placeholder, ok bool)
}
