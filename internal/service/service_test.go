package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DonatFortini/mailmate/internal/cache"
	"github.com/DonatFortini/mailmate/internal/fetch"
	"github.com/DonatFortini/mailmate/internal/hydrate"
	"github.com/DonatFortini/mailmate/internal/model"
	"github.com/DonatFortini/mailmate/internal/webmail"
	"github.com/DonatFortini/mailmate/internal/webmail/gmail"
	"github.com/DonatFortini/mailmate/internal/webmail/outlook"
)

const gmailAddress = "https://mail.google.com/mail/u/0/#inbox/FMfcgzGtxKRjQWdnBvHq"

const gmailMessageHTML = `
<html><body>
  <div class="ha"><h2 class="hP">Quarterly planning review</h2></div>
  <div class="adn ads">
    <span class="gD">Alice Martin</span>
    <span class="go">&lt;alice@example.com&gt;</span>
    <div class="a3s aiL">The plan is attached.</div>
  </div>
  <div class="hq gt">
    <span class="aZo" download_url="application/pdf:plan.pdf:https://mail.google.com/dl?id=1">plan.pdf 2 MB</span>
  </div>
</body></html>`

const gmailPlainHTML = `
<html><body>
  <div class="ha"><h2 class="hP">Lunch on Thursday?</h2></div>
  <div class="adn ads">
    <span class="gD">Bob Dupont</span>
    <div class="a3s aiL">Usual place at noon.</div>
  </div>
</body></html>`

const owaAddress = "https://outlook.office.com/mail/inbox"

const owaMessageHTML = `
<html><body>
<div data-convid="AAQkADAwATM0MDAAMS0yYzQ4">
  <div role="region" aria-label="Reading pane">
    <div role="heading">Budget approval needed</div>
    <div aria-label="Message body">Please review the attached budget.</div>
  </div>
</div>
<div class="attachmentWell">
  <a class="_ay_I o365button" href="https://attachment.outlook.office.net/owa/att1">budget.xlsx 14 KB</a>
</div>
</body></html>`

type stubFetcher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *stubFetcher) FetchBinary(_ context.Context, ref string) (*fetch.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &fetch.Result{Bytes: []byte("payload"), ContentType: "application/pdf", Size: 7}, nil
}

func newTestService(fetcher fetch.BinaryFetcher) *Service {
	registry := webmail.NewRegistry(map[model.Provider]webmail.Builder{
		model.ProviderGmail:       gmail.New,
		model.ProviderOutlookOWA:  outlook.NewOWA,
		model.ProviderOutlookLive: outlook.NewLive,
	})
	c := cache.New(time.Minute, registry, nil)
	return New(registry, hydrate.New(fetcher), c)
}

func TestExtractHydratePromote(t *testing.T) {
	fetcher := &stubFetcher{}
	svc := newTestService(fetcher)
	ctx := context.Background()

	record, err := svc.Extract(ctx, gmailAddress, gmailMessageHTML)
	require.NoError(t, err)
	require.Len(t, record.Attachments, 1)
	assert.Equal(t, model.StatusPending, record.Attachments[0].Status)

	// Not cached yet: an attachment is still pending.
	_, err = svc.GetCached(gmailAddress)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	att, err := svc.Hydrate(ctx, gmailAddress, record.Attachments[0].ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, att.Status)

	cached, err := svc.GetCached(gmailAddress)
	require.NoError(t, err)
	assert.True(t, cached.AllReady())
	assert.Equal(t, record.ID, cached.ID)
}

func TestExtractServesFromCache(t *testing.T) {
	svc := newTestService(&stubFetcher{})
	ctx := context.Background()

	first, err := svc.Extract(ctx, gmailAddress, gmailPlainHTML)
	require.NoError(t, err)

	// The attachment-free record was promoted immediately; a second extract
	// with different markup is answered from the cache.
	second, err := svc.Extract(ctx, gmailAddress, `<html><body></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Lunch on Thursday?", second.Subject)
}

func TestExtractUnsupportedAddress(t *testing.T) {
	svc := newTestService(&stubFetcher{})

	_, err := svc.Extract(context.Background(), "https://mail.example.com/inbox", "<html></html>")
	assert.ErrorIs(t, err, webmail.ErrUnsupportedProvider)
}

func TestHydrateUnknownAttachment(t *testing.T) {
	svc := newTestService(&stubFetcher{})
	ctx := context.Background()

	_, err := svc.Extract(ctx, gmailAddress, gmailMessageHTML)
	require.NoError(t, err)

	_, err = svc.Hydrate(ctx, gmailAddress, "att_missing", false)
	assert.ErrorIs(t, err, ErrAttachmentNotFound)
}

func TestHydrateWithoutRecord(t *testing.T) {
	svc := newTestService(&stubFetcher{})

	_, err := svc.Hydrate(context.Background(), gmailAddress, "att_x", false)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestHydrateAllFailureStaysLive(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("unexpected status 500")}
	svc := newTestService(fetcher)
	ctx := context.Background()

	record, err := svc.Extract(ctx, gmailAddress, gmailMessageHTML)
	require.NoError(t, err)

	updated, err := svc.HydrateAll(ctx, gmailAddress)
	require.NoError(t, err)
	assert.Equal(t, model.StatusError, updated.Attachments[0].Status)

	// The errored record is not cached, so the retry path can still reach it.
	_, err = svc.GetCached(gmailAddress)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	fetcher.mu.Lock()
	fetcher.err = nil
	fetcher.mu.Unlock()

	att, err := svc.Hydrate(ctx, gmailAddress, record.Attachments[0].ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, att.Status)

	cached, err := svc.GetCached(gmailAddress)
	require.NoError(t, err)
	assert.True(t, cached.AllReady())
}

func TestMarkupKeyedRecordReachableByAddress(t *testing.T) {
	svc := newTestService(&stubFetcher{})
	ctx := context.Background()

	// The address carries no item id; the identity comes from the markup.
	record, err := svc.Extract(ctx, owaAddress, owaMessageHTML)
	require.NoError(t, err)
	assert.Equal(t, "outlook_owa_AAQkADAwATM0MDAAMS0yYzQ4", record.ID)
	require.Len(t, record.Attachments, 1)

	hydrated, err := svc.HydrateAll(ctx, owaAddress)
	require.NoError(t, err)
	assert.True(t, hydrated.AllReady())

	cached, err := svc.GetCached(owaAddress)
	require.NoError(t, err)
	assert.Equal(t, record.ID, cached.ID)

	current, err := svc.GetCurrent(owaAddress)
	require.NoError(t, err)
	assert.Equal(t, record.ID, current.ID)
}

func TestInvalidateAll(t *testing.T) {
	svc := newTestService(&stubFetcher{})
	ctx := context.Background()

	_, err := svc.Extract(ctx, gmailAddress, gmailPlainHTML)
	require.NoError(t, err)

	require.NoError(t, svc.InvalidateAll())
	_, err = svc.GetCached(gmailAddress)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestGetCurrent(t *testing.T) {
	svc := newTestService(&stubFetcher{})
	ctx := context.Background()

	_, err := svc.Extract(ctx, gmailAddress, gmailPlainHTML)
	require.NoError(t, err)

	current, err := svc.GetCurrent(gmailAddress)
	require.NoError(t, err)
	assert.Equal(t, "Lunch on Thursday?", current.Subject)

	// The restart path: no address known yet still serves the pointer.
	tentative, err := svc.GetCurrent("")
	require.NoError(t, err)
	assert.Equal(t, current.ID, tentative.ID)

	// A different open message does not match the pointer.
	_, err = svc.GetCurrent("https://mail.google.com/mail/u/0/#inbox/QQfcgzGtxKRjQWdnBvZZ")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}
