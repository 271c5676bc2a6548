package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DonatFortini/mailmate/internal/identity"
	"github.com/DonatFortini/mailmate/internal/model"
)

// addressResolver derives identities the same way the live registry does,
// without pulling provider extractors into the test.
type addressResolver struct{}

func (addressResolver) Identity(address, explicitID string) (string, error) {
	return identity.Derive(model.ProviderGmail, address, explicitID), nil
}

const (
	addrA = "https://mail.google.com/mail/u/0/#inbox/FMfcgzGtxKRjQWdnBvHq"
	addrB = "https://mail.google.com/mail/u/0/#inbox/QQfcgzGtxKRjQWdnBvZZ"
)

func readyRecord(t *testing.T, address string) *model.EmailRecord {
	t.Helper()
	id, err := addressResolver{}.Identity(address, "")
	require.NoError(t, err)

	att := model.NewPendingAttachment("att_1", "a.pdf", model.CategoryPDF, "https://example.com/a")
	require.NoError(t, att.MarkProcessing())
	require.NoError(t, att.MarkReady("eA==", 1, "application/pdf", model.CategoryPDF))

	return &model.EmailRecord{
		ID:          id,
		Provider:    model.ProviderGmail,
		Subject:     "subject",
		Attachments: []*model.Attachment{att},
	}
}

func TestCachePutGet(t *testing.T) {
	c := New(time.Minute, addressResolver{}, nil)
	require.NoError(t, c.Put(readyRecord(t, addrA)))

	got, err := c.Get(addrA)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "subject", got.Subject)

	// A different message never aliases onto the cached one.
	other, err := c.Get(addrB)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestCacheRefusesUnhydratedRecords(t *testing.T) {
	c := New(time.Minute, addressResolver{}, nil)

	rec := readyRecord(t, addrA)
	rec.Attachments = append(rec.Attachments,
		model.NewPendingAttachment("att_2", "b.pdf", model.CategoryPDF, "https://example.com/b"))

	assert.Error(t, c.Put(rec))
	assert.Zero(t, c.Len())
}

func TestCacheAcceptsAttachmentFreeRecords(t *testing.T) {
	c := New(time.Minute, addressResolver{}, nil)
	rec := readyRecord(t, addrA)
	rec.Attachments = nil

	require.NoError(t, c.Put(rec))
	got, err := c.Get(addrA)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestCacheExpiry(t *testing.T) {
	c := New(time.Minute, addressResolver{}, nil)

	current := time.Now()
	c.now = func() time.Time { return current }

	require.NoError(t, c.Put(readyRecord(t, addrA)))

	current = current.Add(59 * time.Second)
	got, err := c.Get(addrA)
	require.NoError(t, err)
	assert.NotNil(t, got)

	current = current.Add(2 * time.Second)
	got, err = c.Get(addrA)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, c.Len(), "expired entries are evicted on read")
}

func TestCacheFindsMarkupKeyedRecordByAddress(t *testing.T) {
	c := New(time.Minute, addressResolver{}, nil)

	// A markup-level id the address alone cannot re-derive.
	rec := readyRecord(t, addrA)
	rec.ID = "gmail_AAQkADAwATM0MDAA"
	rec.SourceAddress = addrA
	require.NoError(t, c.Put(rec))

	got, err := c.Get(addrA)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.ID, got.ID)

	current, err := c.GetCurrent(addrA)
	require.NoError(t, err)
	assert.NotNil(t, current)

	// A different message still never aliases onto it.
	other, err := c.Get(addrB)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestCacheGetCurrentWithoutAddress(t *testing.T) {
	c := New(time.Minute, addressResolver{}, nil)

	got, err := c.GetCurrent("")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Address-free reads serve whatever was cached last, unvalidated.
	require.NoError(t, c.Put(readyRecord(t, addrA)))
	got, err = c.GetCurrent("")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "subject", got.Subject)
}

func TestCacheGetCurrent(t *testing.T) {
	c := New(time.Minute, addressResolver{}, nil)
	require.NoError(t, c.Put(readyRecord(t, addrA)))

	got, err := c.GetCurrent(addrA)
	require.NoError(t, err)
	assert.NotNil(t, got)

	// The pointer only serves the address it was recorded for.
	got, err = c.GetCurrent(addrB)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheInvalidate(t *testing.T) {
	c := New(time.Minute, addressResolver{}, nil)

	recA := readyRecord(t, addrA)
	require.NoError(t, c.Put(recA))
	require.NoError(t, c.Put(readyRecord(t, addrB)))

	require.NoError(t, c.Invalidate(recA.ID))
	got, err := c.Get(addrA)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.InvalidateAll())
	assert.Zero(t, c.Len())
	got, err = c.GetCurrent(addrB)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheReturnsCopies(t *testing.T) {
	c := New(time.Minute, addressResolver{}, nil)
	require.NoError(t, c.Put(readyRecord(t, addrA)))

	first, err := c.Get(addrA)
	require.NoError(t, err)
	first.Subject = "mutated"

	second, err := c.Get(addrA)
	require.NoError(t, err)
	assert.Equal(t, "subject", second.Subject)
}
