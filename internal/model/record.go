package model

// Provider identifies one supported webmail variant.
type Provider string

const (
	ProviderGmail       Provider = "gmail"
	ProviderOutlookOWA  Provider = "outlook_owa"
	ProviderOutlookLive Provider = "outlook_live"
)

// EmailRecord is the structured view of one extracted message.
type EmailRecord struct {
	// ID is the identity key, unique per distinct message as observed by
	// a given provider.
	ID string `json:"id"`

	// SourceAddress is the navigable address the record was extracted from.
	// When the identity came from a markup-level id the address alone cannot
	// re-derive it, so lookups fall back to re-deriving from this address.
	SourceAddress string `json:"source_address"`

	// Provider is the webmail variant the record was extracted from.
	Provider Provider `json:"provider"`

	// Subject is the message subject, or a documented default when it
	// could not be located.
	Subject string `json:"subject"`

	// Sender is the displayed sender, "Name <address>" when both parts
	// were found.
	Sender string `json:"sender"`

	// Recipients is the deduplicated recipient list in discovery order.
	Recipients []string `json:"recipients"`

	// Body is the message body normalized to plain text.
	Body string `json:"body"`

	// Attachments are the discovered attachments in discovery order,
	// stable across repeated extraction of the same unchanged message.
	Attachments []*Attachment `json:"attachments"`
}

// Attachment returns the attachment with the given id, if present.
func (r *EmailRecord) Attachment(id string) (*Attachment, bool) {
	for _, a := range r.Attachments {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// AllReady reports whether every attachment reached the ready state.
// A record with no attachments is trivially ready.
func (r *EmailRecord) AllReady() bool {
	for _, a := range r.Attachments {
		if a.Status != StatusReady {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the record.
func (r *EmailRecord) Clone() *EmailRecord {
	c := *r
	c.Recipients = append([]string(nil), r.Recipients...)
	c.Attachments = make([]*Attachment, len(r.Attachments))
	for i, a := range r.Attachments {
		c.Attachments[i] = a.Clone()
	}
	return &c
}
