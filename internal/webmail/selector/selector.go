// Package selector holds the per-provider structural query tables used to
// locate message fields inside a rendered webmail view. Queries are ordered:
// earlier entries target the markup the provider currently ships, later
// entries are broadened fallbacks for markup drift.
package selector

// Table lists the ordered structural queries for each extracted field.
type Table struct {
	ReadingPane         []string
	Subject             []string
	Sender              []string
	Recipients          []string
	Body                []string
	AttachmentContainer []string
	AttachmentElements  []string
}

// Clone returns a deep copy so a variant can extend a base table without
// mutating it.
func (t Table) Clone() Table {
	return Table{
		ReadingPane:         append([]string(nil), t.ReadingPane...),
		Subject:             append([]string(nil), t.Subject...),
		Sender:              append([]string(nil), t.Sender...),
		Recipients:          append([]string(nil), t.Recipients...),
		Body:                append([]string(nil), t.Body...),
		AttachmentContainer: append([]string(nil), t.AttachmentContainer...),
		AttachmentElements:  append([]string(nil), t.AttachmentElements...),
	}
}

// Gmail targets the classic Gmail reading view. Class names are minified
// but have been stable for years.
var Gmail = Table{
	ReadingPane: []string{"div.adn.ads"},
	Subject:     []string{"div.ha h2.hP"},
	Sender:      []string{"span.gD"},
	Recipients:  []string{"span.g2"},
	Body:        []string{"div.a3s.aiL"},
	AttachmentContainer: []string{
		"div.hq.gt",
	},
	AttachmentElements: []string{
		`span[class*="aZo"]`,
		"img.CToWUd.a6T",
	},
}

// OutlookBase covers Outlook on the web (OWA / Office 365). Outlook ships
// generated class names, so queries lean on roles, aria labels and
// automation ids.
var OutlookBase = Table{
	ReadingPane: []string{
		`div[role="region"][aria-label*="eading"]`,
		`div[role="document"]`,
		`div[role="main"]`,
		`div[class*="ReadingPane"]`,
		`div[class*="MessageContainer"]`,
		`[data-app-section="MailReadingPaneContainer"]`,
	},
	Subject: []string{
		`div[role="heading"]`,
		`span[class*="Subject"]`,
		`div[class*="subject"]`,
		`[aria-label*="Subject"]`,
		`h1[class*="subject"]`,
		`div[data-app-section="SubjectLine"]`,
	},
	Sender: []string{
		`div[class*="From"] span`,
		`button[aria-label*="From"]`,
		`div[class*="PersonaCard"]`,
		`div[class*="sender"]`,
		`span[class*="senderName"]`,
		`[data-app-section="SenderLine"]`,
	},
	Recipients: []string{
		`div[class*="To"] span`,
		`div[class*="Recipient"]`,
		`span[class*="recipient"]`,
		`[aria-label*="To:"]`,
		`[data-app-section="RecipientsLine"]`,
	},
	Body: []string{
		`div[aria-label*="Message body"]`,
		`div[class*="MessageBody"]`,
		`div[class*="ItemBody"]`,
		`div[class*="bodyContent"]`,
		`[data-app-section="MessageBody"]`,
		`div[role="document"] div[dir="ltr"]`,
	},
	AttachmentContainer: []string{
		"div.attachmentWell",
		`div[class*="_ay_"]`,
		`div[data-automation-id="AttachmentList"]`,
		`div[class*="AttachmentWell"]`,
		`div[class*="attachmentContainer"]`,
		`div[class*="Attachments"]`,
		`[data-app-section="AttachmentWell"]`,
		`div[role="group"][aria-label*="ttachment"]`,
		`div[role="list"]`,
	},
	AttachmentElements: []string{
		"a._ay_I.o365button",
		`a[class*="_ay_I"]`,
		`div[draggable="true"]`,
		`div[role="attachment"]`,
		`div[role="listitem"][aria-label*="ttachment"]`,
		`button[class*="AttachmentLink"]`,
		`a[class*="AttachmentLink"]`,
		`div[class*="FileAttachment"]`,
		`button[data-automation-id*="FileAttachment"]`,
	},
}

// OutlookLive extends the OWA table with the markup consumer outlook.live.com
// renders.
var OutlookLive = func() Table {
	t := OutlookBase.Clone()
	t.ReadingPane = append(t.ReadingPane,
		`div[data-app-section="MailReadingPaneContainerLive"]`,
		`div[class*="ReadingPaneContainer"]`,
	)
	t.Subject = append(t.Subject,
		`span[class*="subjectLine"]`,
		`div[data-app-section="SubjectLine"] span`,
	)
	t.Sender = append(t.Sender,
		`span[class*="SenderPersona"] span`,
	)
	t.Recipients = append(t.Recipients,
		`div[data-app-section="RecipientsLine"] span[class*="name"]`,
	)
	t.AttachmentElements = append(t.AttachmentElements,
		`div[data-automation-id*="AttachmentCard"]`,
	)
	return t
}()

// BroadAttachmentElements are appended to every attachment query when a
// dedicated attachment container was located; they cast a wider net that is
// safe inside a known container but too noisy for the whole pane.
var BroadAttachmentElements = []string{
	`[class*="file"]`,
	`[class*="attachment"]`,
	`div[class*="AttachmentCard"]`,
	`div[class*="FileCard"]`,
	`div[class*="FileItem"]`,
	`span[class*="AttachmentName"]`,
	`[role="button"][aria-label*="file"]`,
	`[role="button"][aria-label*="attachment"]`,
	`[role="button"][aria-label*="fichier"]`,
	`button[data-automation-id*="file"]`,
	`a[href*="attachment"]`,
	"[download]",
}

// PaneAttachmentElements are the fallback queries applied to the reading
// pane itself when no attachment container could be located.
var PaneAttachmentElements = []string{
	`[class*="attachment"]`,
	`[class*="AttachmentCard"]`,
	`[class*="FilePreview"]`,
	`[class*="FileCard"]`,
	`[class*="FileItem"]`,
	"button[download]",
	"a[download]",
	`[role="button"][aria-label*="attachment"]`,
	`[role="button"][aria-label*="file"]`,
	`[role="button"][aria-label*="fichier"]`,
	`div[data-automation-id*="FileAttachment"]`,
	`div[class*="FileContainer"]`,
	`span[class*="fileName"]`,
	`button[class*="fileButton"]`,
}
