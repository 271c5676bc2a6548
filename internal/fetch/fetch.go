// Package fetch retrieves attachment binaries from provider endpoints.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/DonatFortini/mailmate/internal/credential"
)

// ErrEmptyRef indicates an attachment whose placeholder never resolved to a
// fetchable reference.
var ErrEmptyRef = errors.New("attachment has no source reference")

// maxBodySize bounds a single attachment download.
const maxBodySize = 64 << 20

// Result is the raw payload of a fetched attachment.
type Result struct {
	Bytes       []byte
	ContentType string
	Size        int64
}

// BinaryFetcher retrieves the binary content behind a source reference.
type BinaryFetcher interface {
	FetchBinary(ctx context.Context, ref string) (*Result, error)
}

// HTTPFetcher fetches attachment content over HTTP, attaching the session
// bearer token when one is available. Provider endpoints serve content to an
// authenticated session and return an error page otherwise, so the fetch
// itself stays a plain GET.
type HTTPFetcher struct {
	client   *http.Client
	supplier credential.Supplier
	log      *log.Entry
}

// NewHTTPFetcher builds an HTTPFetcher. A nil supplier means requests go out
// unauthenticated.
func NewHTTPFetcher(timeout time.Duration, supplier credential.Supplier) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		supplier: supplier,
		log:      log.WithField("component", "fetch"),
	}
}

// FetchBinary downloads the content behind ref. A non-2xx status or an empty
// reference is an error; redirects are followed by the underlying client.
func (f *HTTPFetcher) FetchBinary(ctx context.Context, ref string) (*Result, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, ErrEmptyRef
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("building fetch request: %w", err)
	}

	if f.supplier != nil && f.supplier.IsAuthorized() {
		token, err := f.supplier.Bearer()
		if err != nil {
			return nil, fmt.Errorf("reading session credential: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching attachment content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching attachment content: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading attachment content: %w", err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("attachment content exceeds %d bytes", maxBodySize)
	}

	f.log.WithFields(log.Fields{
		"status": resp.StatusCode,
		"bytes":  len(body),
	}).Debug("fetched attachment content")

	return &Result{
		Bytes:       body,
		ContentType: strings.TrimSpace(resp.Header.Get("Content-Type")),
		Size:        int64(len(body)),
	}, nil
}
