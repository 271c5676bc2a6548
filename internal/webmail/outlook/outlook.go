// Package outlook implements the extraction strategies for Outlook on the
// web. Two variants exist: the Office 365 / OWA rendering and the consumer
// outlook.live.com rendering, which differ in selector tables, address
// shapes, and where the header fields live.
package outlook

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/DonatFortini/mailmate/internal/model"
	"github.com/DonatFortini/mailmate/internal/webmail"
	"github.com/DonatFortini/mailmate/internal/webmail/selector"
)

// fallbackIDAttrs are the data attributes Outlook sets on ancestors of the
// reading pane; they carry a canonical item id when the address does not.
var fallbackIDAttrs = []string{"data-convid", "data-itemid", "data-message-id"}

// NewOWA builds the Office 365 / OWA extractor.
func NewOWA() webmail.Extractor {
	return webmail.New(webmail.Strategy{
		Provider:   model.ProviderOutlookOWA,
		Table:      selector.OutlookBase,
		ExplicitID: explicitID,
	})
}

// NewLive builds the outlook.live.com extractor. Live renders subject and
// sender in a header region outside the reading pane, so those are searched
// first with reading-pane matches excluded — otherwise quoted or forwarded
// content inside the pane would win.
func NewLive() webmail.Extractor {
	return webmail.New(webmail.Strategy{
		Provider:         model.ProviderOutlookLive,
		Table:            selector.OutlookLive,
		ExplicitID:       explicitID,
		HeaderSubject:    headerSubject,
		HeaderSender:     headerSender,
		HeaderRecipients: headerRecipients,
	})
}

// explicitID walks up from the reading pane looking for a canonical item id
// attribute.
func explicitID(_ *webmail.View, pane *goquery.Selection) string {
	if pane == nil {
		return ""
	}
	for _, attr := range fallbackIDAttrs {
		container := pane.Closest("[" + attr + "]")
		if container.Length() == 0 {
			continue
		}
		if val, ok := container.Attr(attr); ok && val != "" {
			return val
		}
	}
	return ""
}

var headerSubjectQueries = []string{
	`[class*="Subject"]`,
	`[aria-label*="Subject"]`,
	`div[role="heading"]`,
	"h1",
	"h2",
}

func headerSubject(v *webmail.View, pane *goquery.Selection) string {
	found := ""
	for _, q := range headerSubjectQueries {
		v.Doc.Find(q).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if webmail.Within(pane, s) {
				return true
			}
			text := strings.TrimSpace(s.Text())
			if !webmail.PlausibleSubject(text) {
				return true
			}
			found = text
			return false
		})
		if found != "" {
			return found
		}
	}
	return ""
}

var headerSenderQueries = []string{
	`button[aria-label*="From"]`,
	`button[class*="Persona"]`,
	`[class*="sender"]`,
	`[class*="Sender"]`,
	`[aria-label*="De"]`,
}

func headerSender(v *webmail.View, pane *goquery.Selection) string {
	found := ""
	for _, q := range headerSenderQueries {
		v.Doc.Find(q).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if webmail.Within(pane, s) {
				return true
			}
			content := label(s)
			if content == "" {
				return true
			}

			if i := strings.IndexByte(content, '<'); i > 0 {
				found = strings.TrimSpace(content[:i])
				return false
			}
			if !strings.Contains(content, "@") && len(content) > 2 && len(content) < 100 {
				found = content
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

var headerRecipientQueries = []string{
	`button[aria-label*="To"]`,
	`[aria-label*="À"]`,
	`[class*="recipient"]`,
	`[class*="Recipient"]`,
}

func headerRecipients(v *webmail.View, pane *goquery.Selection) []string {
	var out []string
	for _, q := range headerRecipientQueries {
		v.Doc.Find(q).Each(func(_ int, s *goquery.Selection) {
			if webmail.Within(pane, s) {
				return
			}
			if content := label(s); content != "" {
				out = append(out, webmail.SplitRecipients(content)...)
			}
		})
	}
	return out
}

// label prefers the aria-label over visible text; Outlook packs the full
// "Name <address>" into the label while the text often only shows the name.
func label(s *goquery.Selection) string {
	if v, ok := s.Attr("aria-label"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(s.Text())
}
