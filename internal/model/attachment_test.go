package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachmentLifecycle(t *testing.T) {
	att := NewPendingAttachment("att_1", "report.pdf", CategoryPDF, "https://example.com/a")
	assert.Equal(t, StatusPending, att.Status)
	assert.False(t, att.Terminal())

	require.NoError(t, att.MarkProcessing())
	assert.Equal(t, StatusProcessing, att.Status)

	require.NoError(t, att.MarkReady("aGVsbG8=", 5, "application/pdf", CategoryPDF))
	assert.Equal(t, StatusReady, att.Status)
	assert.True(t, att.Terminal())
	assert.Equal(t, int64(5), att.Metadata.Size)
	assert.Empty(t, att.Metadata.Error)
}

func TestAttachmentFailureAndRetry(t *testing.T) {
	att := NewPendingAttachment("att_2", "photo.png", CategoryImage, "https://example.com/b")

	require.NoError(t, att.MarkProcessing())
	require.NoError(t, att.MarkError("status 403"))
	assert.Equal(t, StatusError, att.Status)
	assert.Equal(t, "status 403", att.Metadata.Error)
	assert.Empty(t, att.Content)

	require.NoError(t, att.ResetForRetry())
	assert.Equal(t, StatusPending, att.Status)
	assert.Empty(t, att.Metadata.Error)
}

func TestAttachmentInvalidTransitions(t *testing.T) {
	att := NewPendingAttachment("att_3", "clip.mp4", CategoryVideo, "")

	// Terminal transitions require processing first.
	assert.Error(t, att.MarkReady("x", 1, "video/mp4", CategoryVideo))
	assert.Error(t, att.MarkError("boom"))

	// Retry only applies to errored attachments.
	assert.Error(t, att.ResetForRetry())

	require.NoError(t, att.MarkProcessing())
	assert.Error(t, att.MarkProcessing())

	require.NoError(t, att.MarkReady("x", 1, "video/mp4", CategoryVideo))
	assert.Error(t, att.ResetForRetry())
}

func TestAttachmentReadyOverridesProvisionalMetadata(t *testing.T) {
	att := NewPendingAttachment("att_4", "scan", CategoryOther, "https://example.com/c")
	att.Metadata.MimeType = "application/octet-stream"

	require.NoError(t, att.MarkProcessing())
	require.NoError(t, att.MarkReady("cGF5bG9hZA==", 7, "image/png", CategoryImage))

	assert.Equal(t, "image/png", att.Metadata.MimeType)
	assert.Equal(t, CategoryImage, att.Category)
}

func TestRecordAllReady(t *testing.T) {
	rec := &EmailRecord{ID: "gmail_x", Provider: ProviderGmail}
	assert.True(t, rec.AllReady(), "a record with no attachments is ready")

	att := NewPendingAttachment("att_5", "doc.txt", CategoryText, "https://example.com/d")
	rec.Attachments = append(rec.Attachments, att)
	assert.False(t, rec.AllReady())

	require.NoError(t, att.MarkProcessing())
	require.NoError(t, att.MarkReady("eA==", 1, "text/plain", CategoryText))
	assert.True(t, rec.AllReady())
}

func TestRecordCloneIsDeep(t *testing.T) {
	att := NewPendingAttachment("att_6", "a.pdf", CategoryPDF, "https://example.com/e")
	rec := &EmailRecord{
		ID:          "gmail_y",
		Provider:    ProviderGmail,
		Recipients:  []string{"alice@example.com"},
		Attachments: []*Attachment{att},
	}

	clone := rec.Clone()
	clone.Recipients[0] = "bob@example.com"
	require.NoError(t, clone.Attachments[0].MarkProcessing())

	assert.Equal(t, "alice@example.com", rec.Recipients[0])
	assert.Equal(t, StatusPending, rec.Attachments[0].Status)
	assert.Equal(t, rec.Attachments[0].SourceRef(), clone.Attachments[0].SourceRef())
}
