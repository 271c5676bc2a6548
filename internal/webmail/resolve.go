package webmail

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var inlineURLPattern = regexp.MustCompile(`https?://[^\s'"]+`)

// fileNameQueries locate a display-name element nested inside an attachment
// card.
var fileNameQueries = []string{
	`[class*="fileName"]`,
	`[class*="AttachmentName"]`,
	`span[class*="name"]`,
	"span._ay_x",
}

// resolvePlaceholder runs the fixed resolution priority list against an
// attachment candidate and returns the first (reference, name) pair that
// yields both pieces: download-style attribute, anchor href, data-attribute
// pair, nested anchor, inline script reference, nested image source. When
// nothing matches, the reference stays empty and the best-effort name is
// kept so the attachment can fail hydration loudly instead of vanishing.
func resolvePlaceholder(sel *goquery.Selection) Placeholder {
	mimeHint := attrAny(sel, "type", "data-mime-type")
	nestedName := ""
	if nameEl := findFirst(sel, fileNameQueries); nameEl != nil {
		nestedName = strings.TrimSpace(nameEl.Text())
	}

	// Anchors carry everything on the element itself.
	if goquery.NodeName(sel) == "a" {
		name := attrAny(sel, "download")
		if name == "" {
			name = textOrLabel(sel)
		}
		name = trimSizeSuffix(name)
		if name == "" {
			name = "attachment"
		}
		return Placeholder{Ref: attrAny(sel, "href"), Name: name, MimeHint: mimeHint}
	}

	// Data-attribute pair on the candidate itself.
	dataRef := attrAny(sel, "data-attachment-url", "data-url", "data-src", "href")
	dataName := attrAny(sel, "data-attachment-name", "data-name", "data-filename", "aria-label", "title")
	if dataRef != "" && dataName != "" {
		return Placeholder{Ref: dataRef, Name: trimSizeSuffix(dataName), MimeHint: mimeHint}
	}

	// Nested download link.
	if link := findFirst(sel, []string{"a[href]", "a[download]", "button[download]"}); link != nil {
		ref := attrAny(link, "href", "data-url", "data-attachment-url")
		name := nestedName
		if name == "" {
			name = attrAny(link, "download", "aria-label")
		}
		if name == "" {
			name = strings.TrimSpace(link.Text())
		}
		if ref != "" {
			if name == "" {
				name = "attachment"
			}
			return Placeholder{Ref: ref, Name: trimSizeSuffix(name), MimeHint: mimeHint}
		}
	}

	// Inline script reference.
	if onclick, ok := sel.Attr("onclick"); ok && nestedName != "" {
		if m := inlineURLPattern.FindString(onclick); m != "" {
			return Placeholder{Ref: m, Name: trimSizeSuffix(nestedName), MimeHint: mimeHint}
		}
	}

	// Nested image.
	if img := findFirst(sel, []string{"img[src]"}); img != nil {
		if src := attrAny(img, "src"); strings.HasPrefix(src, "http") {
			name := attrAny(img, "alt", "title")
			if name == "" {
				name = nestedName
			}
			if name == "" {
				name = "image"
			}
			return Placeholder{Ref: src, Name: name, MimeHint: mimeHint}
		}
	}

	// The candidate is itself an image.
	if goquery.NodeName(sel) == "img" {
		name := attrAny(sel, "alt", "title")
		if name == "" {
			name = "image"
		}
		return Placeholder{Ref: attrAny(sel, "src"), Name: name, MimeHint: mimeHint}
	}

	// Any nested reference at all.
	if link := findFirst(sel, []string{"[href]"}); link != nil {
		name := nestedName
		if name == "" {
			name = textOrLabel(sel)
		}
		if name == "" {
			name = "attachment"
		}
		return Placeholder{Ref: attrAny(link, "href"), Name: trimSizeSuffix(name), MimeHint: mimeHint}
	}

	// No reference found; keep the name so hydration can report the gap.
	name := nestedName
	if name == "" {
		name = textOrLabel(sel)
	}
	if name == "" {
		name = "attachment"
	}
	return Placeholder{Name: trimSizeSuffix(name), MimeHint: mimeHint}
}

// isAttachmentCandidate filters out navigation and unrelated controls before
// resolution. Chrome labels are rejected outright; past that a candidate
// needs an explicit attachment marker, or a filename-extension or size
// annotation in its text. A bare link carrying neither is navigation, not an
// attachment, no matter what matched it.
func isAttachmentCandidate(sel *goquery.Selection) bool {
	text := strings.TrimSpace(sel.Text())
	if isNavigationLabel(text) {
		return false
	}

	if _, ok := sel.Attr("download"); ok {
		return true
	}
	if role, _ := sel.Attr("role"); role == "attachment" {
		return true
	}
	if goquery.NodeName(sel) == "img" {
		return attrAny(sel, "src") != ""
	}
	if text == "" {
		return attrAny(sel, "href", "data-attachment-url") != ""
	}

	return attachmentExtPattern.MatchString(text) || sizeAnnotation.MatchString(text)
}
