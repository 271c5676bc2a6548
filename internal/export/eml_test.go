package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DonatFortini/mailmate/internal/model"
)

func exportableRecord(t *testing.T) *model.EmailRecord {
	t.Helper()

	ready := model.NewPendingAttachment("att_1", "plan.pdf", model.CategoryPDF, "https://example.com/a")
	require.NoError(t, ready.MarkProcessing())
	require.NoError(t, ready.MarkReady("cGF5bG9hZA==", 7, "application/pdf", model.CategoryPDF))

	return &model.EmailRecord{
		ID:          "gmail_x",
		Provider:    model.ProviderGmail,
		Subject:     "Quarterly planning review",
		Sender:      "Alice Martin <alice@example.com>",
		Recipients:  []string{"Bob Dupont <bob@example.com>", "carol@example.com"},
		Body:        "The plan is attached.",
		Attachments: []*model.Attachment{ready},
	}
}

func TestEML(t *testing.T) {
	eml, err := EML(exportableRecord(t))
	require.NoError(t, err)

	msg := string(eml)
	assert.Contains(t, msg, "Subject: Quarterly planning review")
	assert.Contains(t, msg, "alice@example.com")
	assert.Contains(t, msg, "bob@example.com")
	assert.Contains(t, msg, "The plan is attached.")
	assert.Contains(t, msg, `filename`)
	assert.Contains(t, msg, "plan.pdf")
	assert.Contains(t, msg, "cGF5bG9hZA==")
	assert.Contains(t, msg, "Message-Id:")
}

func TestEMLSkipsUnhydratedAttachments(t *testing.T) {
	rec := exportableRecord(t)
	rec.Attachments = append(rec.Attachments,
		model.NewPendingAttachment("att_2", "pending.png", model.CategoryImage, "https://example.com/b"))

	errored := model.NewPendingAttachment("att_3", "broken.zip", model.CategoryOther, "https://example.com/c")
	require.NoError(t, errored.MarkProcessing())
	require.NoError(t, errored.MarkError("status 404"))
	rec.Attachments = append(rec.Attachments, errored)

	eml, err := EML(rec)
	require.NoError(t, err)

	msg := string(eml)
	assert.Contains(t, msg, "plan.pdf")
	assert.NotContains(t, msg, "pending.png")
	assert.NotContains(t, msg, "broken.zip")
}

func TestParseAddress(t *testing.T) {
	a := parseAddress("Alice Martin <alice@example.com>")
	assert.Equal(t, "Alice Martin", a.Name)
	assert.Equal(t, "alice@example.com", a.Address)

	a = parseAddress("bob@example.com")
	assert.Equal(t, "bob@example.com", a.Address)
	assert.Empty(t, a.Name)

	a = parseAddress("Unknown Sender")
	assert.Equal(t, "Unknown Sender", a.Name)
	assert.Empty(t, a.Address)
}
