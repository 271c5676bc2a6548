// Package gmail implements the extraction strategy for the classic Gmail
// reading view (mail.google.com).
package gmail

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/DonatFortini/mailmate/internal/model"
	"github.com/DonatFortini/mailmate/internal/webmail"
	"github.com/DonatFortini/mailmate/internal/webmail/selector"
)

// Gmail renders the subject in a header bar above the message container and
// splits the sender into separate name/address spans.
const (
	subjectQuery     = "div.ha h2.hP"
	senderNameQuery  = "span.gD"
	senderEmailQuery = "span.go"
)

// New builds the Gmail extractor.
func New() webmail.Extractor {
	return webmail.New(webmail.Strategy{
		Provider:      model.ProviderGmail,
		Table:         selector.Gmail,
		HeaderSubject: headerSubject,
		HeaderSender:  headerSender,
		Resolve:       resolveDownloadURL,
	})
}

// headerSubject reads the subject from the header bar, which sits outside
// the active message container.
func headerSubject(v *webmail.View, _ *goquery.Selection) string {
	return strings.TrimSpace(v.Doc.Find(subjectQuery).First().Text())
}

// headerSender combines the sender name and address spans into the usual
// "Name <address>" shape, degrading to whichever part is present.
func headerSender(_ *webmail.View, pane *goquery.Selection) string {
	if pane == nil {
		return ""
	}

	name := strings.TrimSpace(pane.Find(senderNameQuery).First().Text())
	email := strings.TrimSpace(pane.Find(senderEmailQuery).First().Text())
	email = strings.Trim(email, "<>")

	switch {
	case name != "" && email != "":
		return fmt.Sprintf("%s <%s>", name, email)
	case email != "":
		return email
	default:
		return name
	}
}

// resolveDownloadURL parses Gmail's download_url attribute, a colon-joined
// "mime:filename:url" triple. Anything else falls through to the shared
// resolution list.
func resolveDownloadURL(sel *goquery.Selection) (webmail.Placeholder, bool) {
	raw, ok := sel.Attr("download_url")
	if !ok || strings.TrimSpace(raw) == "" {
		return webmail.Placeholder{}, false
	}

	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 || parts[2] == "" {
		return webmail.Placeholder{}, false
	}

	return webmail.Placeholder{
		Ref:      parts[2],
		Name:     parts[1],
		MimeHint: parts[0],
	}, true
}
