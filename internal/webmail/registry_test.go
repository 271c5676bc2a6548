package webmail_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DonatFortini/mailmate/internal/model"
	"github.com/DonatFortini/mailmate/internal/webmail"
	"github.com/DonatFortini/mailmate/internal/webmail/gmail"
	"github.com/DonatFortini/mailmate/internal/webmail/outlook"
)

func newTestRegistry() *webmail.Registry {
	return webmail.NewRegistry(map[model.Provider]webmail.Builder{
		model.ProviderGmail:       gmail.New,
		model.ProviderOutlookOWA:  outlook.NewOWA,
		model.ProviderOutlookLive: outlook.NewLive,
	})
}

func TestResolveProvider(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    model.Provider
		wantErr bool
	}{
		{"gmail", "https://mail.google.com/mail/u/0/#inbox", model.ProviderGmail, false},
		{"gmail alias host", "https://gmail.com/", model.ProviderGmail, false},
		{"owa office365", "https://outlook.office365.com/mail/", model.ProviderOutlookOWA, false},
		{"owa office.com", "https://outlook.office.com/mail/inbox", model.ProviderOutlookOWA, false},
		{"live", "https://outlook.live.com/mail/0/", model.ProviderOutlookLive, false},
		{"live wins over owa", "https://outlook.live.com/mail/id/x", model.ProviderOutlookLive, false},
		{"unknown host", "https://mail.example.com/inbox", "", true},
		{"not a url", "definitely not an address", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := webmail.ResolveProvider(tt.address)
			if tt.wantErr {
				assert.ErrorIs(t, err, webmail.ErrUnsupportedProvider)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistryMemoizesInstances(t *testing.T) {
	r := newTestRegistry()

	first, err := r.Get("https://mail.google.com/mail/u/0/#inbox")
	require.NoError(t, err)
	second, err := r.Get("https://mail.google.com/mail/u/0/#sent")
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestRegistryGetUnsupported(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Get("https://mail.example.com/inbox")
	assert.ErrorIs(t, err, webmail.ErrUnsupportedProvider)
	assert.False(t, r.IsSupported("https://mail.example.com/inbox"))
	assert.True(t, r.IsSupported("https://outlook.live.com/mail/0/"))
}

func TestRegistryIdentity(t *testing.T) {
	r := newTestRegistry()

	id, err := r.Identity("https://outlook.live.com/mail/id/AQMkADAw", "")
	require.NoError(t, err)
	assert.Equal(t, "outlook_live_AQMkADAw", id)

	id, err = r.Identity("https://outlook.office.com/mail/inbox", "AAQkExplicit")
	require.NoError(t, err)
	assert.Equal(t, "outlook_owa_AAQkExplicit", id)

	_, err = r.Identity("https://mail.example.com/", "")
	assert.ErrorIs(t, err, webmail.ErrUnsupportedProvider)
}

func TestRegistryClear(t *testing.T) {
	r := newTestRegistry()

	first, err := r.Get("https://mail.google.com/mail/u/0/#inbox")
	require.NoError(t, err)

	r.ClearOne("https://mail.google.com/mail/u/0/#inbox")
	second, err := r.Get("https://mail.google.com/mail/u/0/#inbox")
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	r.ClearAll()
	third, err := r.Get("https://mail.google.com/mail/u/0/#inbox")
	require.NoError(t, err)
	assert.NotSame(t, second, third)
}
