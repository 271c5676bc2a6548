package model

import "fmt"

// Category classifies an attachment's media kind, derived once at discovery.
type Category string

const (
	CategoryImage Category = "image"
	CategoryPDF   Category = "pdf"
	CategoryText  Category = "text"
	CategoryAudio Category = "audio"
	CategoryVideo Category = "video"
	CategoryOther Category = "other"
)

// Status tracks an attachment through its hydration lifecycle.
// Valid transitions: pending → processing → ready | error. Terminal states
// are only left through an explicit retry (error → pending) or a brand-new
// extraction pass.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

// Metadata holds optional facts about an attachment's payload. Size and
// MimeType are provisional until hydration overwrites them with values from
// the actual response.
type Metadata struct {
	// Size is the payload size in bytes.
	Size int64 `json:"size,omitempty"`

	// MimeType is the declared content type of the payload.
	MimeType string `json:"mime_type,omitempty"`

	// Error is the human-readable hydration failure cause, set only when
	// the attachment status is error.
	Error string `json:"error,omitempty"`
}

// Attachment is one email attachment. It starts as a placeholder discovered
// during extraction and is hydrated with binary content on demand.
type Attachment struct {
	// ID is an opaque identifier, stable for the lifetime of the record.
	ID string `json:"id"`

	// Name is the sanitized display filename.
	Name string `json:"name"`

	// Category is the media kind guessed at discovery and confirmed at
	// hydration from the response content type.
	Category Category `json:"category"`

	// Status is the hydration state (use Status* constants).
	Status Status `json:"status"`

	// Content is the base64-encoded payload, present if and only if
	// Status is ready.
	Content string `json:"content,omitempty"`

	// Metadata holds size, mime type and failure details.
	Metadata Metadata `json:"metadata"`

	// sourceRef is the provider URL the content is hydrated from.
	// Unexported so it can never leave the extraction boundary through
	// serialization.
	sourceRef string
}

// NewPendingAttachment creates a placeholder attachment in the pending state.
// sourceRef may be empty; such an attachment is kept but will fail hydration
// with a descriptive error instead of being silently dropped.
func NewPendingAttachment(id, name string, category Category, sourceRef string) *Attachment {
	return &Attachment{
		ID:        id,
		Name:      name,
		Category:  category,
		Status:    StatusPending,
		sourceRef: sourceRef,
	}
}

// SourceRef returns the hydration reference. It is only meaningful inside
// the extraction/hydration boundary.
func (a *Attachment) SourceRef() string {
	return a.sourceRef
}

// Terminal reports whether the attachment reached a final hydration state.
func (a *Attachment) Terminal() bool {
	return a.Status == StatusReady || a.Status == StatusError
}

// MarkProcessing moves a pending attachment into the processing state.
func (a *Attachment) MarkProcessing() error {
	if a.Status != StatusPending {
		return fmt.Errorf("attachment %s: cannot start processing from %q", a.ID, a.Status)
	}
	a.Status = StatusProcessing
	return nil
}

// MarkReady records the hydrated payload. Size, mime type and category are
// taken from the actual response, overriding provisional values guessed from
// markup attributes.
func (a *Attachment) MarkReady(content string, size int64, mimeType string, category Category) error {
	if a.Status != StatusProcessing {
		return fmt.Errorf("attachment %s: cannot become ready from %q", a.ID, a.Status)
	}
	a.Status = StatusReady
	a.Content = content
	a.Category = category
	a.Metadata.Size = size
	a.Metadata.MimeType = mimeType
	a.Metadata.Error = ""
	return nil
}

// MarkError records a hydration failure. Content stays absent.
func (a *Attachment) MarkError(cause string) error {
	if a.Status != StatusProcessing {
		return fmt.Errorf("attachment %s: cannot fail from %q", a.ID, a.Status)
	}
	a.Status = StatusError
	a.Content = ""
	a.Metadata.Error = cause
	return nil
}

// ResetForRetry clears an errored attachment back to pending so a caller can
// explicitly retry hydration. It is a no-op guard against other states.
func (a *Attachment) ResetForRetry() error {
	if a.Status != StatusError {
		return fmt.Errorf("attachment %s: retry only applies to errored attachments, not %q", a.ID, a.Status)
	}
	a.Status = StatusPending
	a.Metadata.Error = ""
	return nil
}

// Clone returns a deep copy of the attachment.
func (a *Attachment) Clone() *Attachment {
	c := *a
	return &c
}
