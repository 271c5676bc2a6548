package webmail

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Navigational chrome labels in the supported locales. A candidate whose
// text matches one of these is never a subject or an attachment.
var navigationLabels = []string{
	"Inbox",
	"Drafts",
	"Archive",
	"Sent Items",
	"Deleted Items",
	"Junk Email",
	"History",
	"Boîte de réception",
	"Brouillons",
	"Courrier indésirable",
	"Éléments envoyés",
	"Éléments supprimés",
	"Historique",
}

var (
	attachmentExtPattern = regexp.MustCompile(`(?i)\.(pdf|doc|docx|xls|xlsx|png|jpg|jpeg|gif|zip|txt|ppt|pptx)`)
	sizeAnnotationSplit  = regexp.MustCompile(`(?i)\s+\d+([.,]\d+)?\s*(Ko|Mo|Go|KB|MB|GB)`)
	sizeAnnotation       = regexp.MustCompile(`(?i)\d+([.,]\d+)?\s*(Ko|Mo|Go|KB|MB|GB)`)
	emailAddressPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	fieldPrefixPattern   = regexp.MustCompile(`(?i)^(From|To|De|À):\s*`)
	disallowedFileChars  = regexp.MustCompile(`[/\\?%*:|"<>]`)
	whitespaceRun        = regexp.MustCompile(`\s+`)
	blankLineRun         = regexp.MustCompile(`\n{3,}`)
	spaceRun             = regexp.MustCompile(`[ \t\x{00a0}]+`)
)

// findFirst evaluates ordered queries against root and returns the first
// non-empty match. Invalid or unmatched queries are expected, handled
// branches, never errors.
func findFirst(root *goquery.Selection, queries []string) *goquery.Selection {
	for _, q := range queries {
		if sel := root.Find(q); sel.Length() > 0 {
			return sel.First()
		}
	}
	return nil
}

// collectAll evaluates every query against root and returns the union of
// matched elements, deduplicated by node, in order of discovery.
func collectAll(root *goquery.Selection, queries []string) []*goquery.Selection {
	var out []*goquery.Selection
	seen := map[*html.Node]bool{}

	for _, q := range queries {
		root.Find(q).Each(func(_ int, s *goquery.Selection) {
			if len(s.Nodes) == 0 {
				return
			}
			if node := s.Nodes[0]; !seen[node] {
				seen[node] = true
				out = append(out, s)
			}
		})
	}
	return out
}

// isNavigationLabel reports whether text contains a known chrome label.
func isNavigationLabel(text string) bool {
	for _, label := range navigationLabels {
		if strings.Contains(text, label) {
			return true
		}
	}
	return false
}

// PlausibleSubject applies the subject filter: sensible length, not an
// email address, not chrome, not quoted-thread boilerplate.
func PlausibleSubject(text string) bool {
	n := len([]rune(text))
	if n < 3 || n > 200 {
		return false
	}
	if strings.Contains(text, "@") {
		return false
	}
	if strings.Contains(strings.ToLower(text), "forwarded message") {
		return false
	}
	return !isNavigationLabel(text)
}

// CleanSender normalizes a raw sender candidate: strips the field prefix and
// keeps the display name when the text carries a "Name <address>" shape.
func CleanSender(text string) string {
	cleaned := strings.TrimSpace(fieldPrefixPattern.ReplaceAllString(text, ""))
	if i := strings.IndexByte(cleaned, '<'); i > 0 {
		return strings.TrimSpace(cleaned[:i])
	}
	return cleaned
}

// SplitRecipients normalizes a raw recipient candidate into individual
// entries.
func SplitRecipients(text string) []string {
	cleaned := strings.TrimSpace(fieldPrefixPattern.ReplaceAllString(text, ""))
	parts := strings.FieldsFunc(cleaned, func(r rune) bool {
		return r == ',' || r == ';'
	})

	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); len(p) > 2 {
			out = append(out, p)
		}
	}
	return out
}

// SanitizeFilename replaces disallowed path characters and collapses
// whitespace to single separators.
func SanitizeFilename(name string) string {
	name = disallowedFileChars.ReplaceAllString(name, "-")
	name = whitespaceRun.ReplaceAllString(strings.TrimSpace(name), "_")
	return name
}

// trimSizeSuffix removes a trailing size annotation from a display name,
// e.g. "report.pdf 2 MB" -> "report.pdf".
func trimSizeSuffix(name string) string {
	if loc := sizeAnnotationSplit.FindStringIndex(name); loc != nil {
		return strings.TrimSpace(name[:loc[0]])
	}
	return strings.TrimSpace(name)
}

// normalizeText flattens a selection to plain text with collapsed
// whitespace, preserving paragraph breaks.
func normalizeText(sel *goquery.Selection) string {
	text := sel.Text()
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = spaceRun.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankLineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// truncateRunes bounds s to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// attrAny returns the first non-empty value among the listed attributes.
func attrAny(sel *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := sel.Attr(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// textOrLabel returns the trimmed text of sel, falling back to aria-label
// then title.
func textOrLabel(sel *goquery.Selection) string {
	if t := strings.TrimSpace(sel.Text()); t != "" {
		return t
	}
	return attrAny(sel, "aria-label", "title")
}

// Within reports whether the first node of sel sits inside the first node
// of container. Provider strategies use it to exclude reading-pane matches
// when scanning header regions.
func Within(container, sel *goquery.Selection) bool {
	if container == nil || len(container.Nodes) == 0 || sel == nil || len(sel.Nodes) == 0 {
		return false
	}
	target := container.Nodes[0]
	for n := sel.Nodes[0]; n != nil; n = n.Parent {
		if n == target {
			return true
		}
	}
	return false
}
