package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DonatFortini/mailmate/internal/credential"
)

func TestFetchBinary(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5*time.Second, credential.Static("tok-123"))
	result, err := f.FetchBinary(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, []byte("payload"), result.Bytes)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Equal(t, int64(7), result.Size)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestFetchBinaryWithoutCredential(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5*time.Second, credential.Static(""))
	_, err := f.FetchBinary(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestFetchBinaryNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5*time.Second, nil)
	_, err := f.FetchBinary(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestFetchBinaryEmptyRef(t *testing.T) {
	f := NewHTTPFetcher(5*time.Second, nil)
	_, err := f.FetchBinary(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyRef)
}

func TestFetchBinaryContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewHTTPFetcher(5*time.Second, nil)
	_, err := f.FetchBinary(ctx, srv.URL)
	assert.Error(t, err)
}
