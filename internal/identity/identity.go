// Package identity derives the stable key used to recognize "the same
// message" across repeated extractions of a webmail view.
package identity

import (
	"fmt"
	"hash/fnv"
	"net/url"
	"regexp"
	"strings"

	"github.com/DonatFortini/mailmate/internal/model"
)

// Query parameter names each provider uses to carry the open item id.
var owaItemParams = []string{"ItemID", "itemid", "id"}

var (
	liveItemPattern     = regexp.MustCompile(`/mail/id/([^/?#]+)`)
	gmailFragmentIDForm = regexp.MustCompile(`^[A-Za-z]{5,}[A-Za-z0-9_-]{7,}$`)
)

// Derive builds the identity key for the message open at address.
//
// The provider-specific address pattern is tried first, so an address-only
// derivation (cache reads, hydration requests) lands on the same key a full
// extraction did. A markup-level id (explicitID) fills in, provider-prefixed,
// only when the address carries no extractable pattern; the fingerprint hash
// is the last resort. The function is pure: identical inputs always yield
// identical output.
func Derive(provider model.Provider, address, explicitID string) string {
	u, err := url.Parse(address)
	if err == nil {
		if extracted := extract(provider, u); extracted != "" {
			return fmt.Sprintf("%s_%s", provider, extracted)
		}
	}

	if explicitID != "" {
		return fmt.Sprintf("%s_%s", provider, explicitID)
	}

	if err != nil {
		return fingerprint(provider, address)
	}
	return fingerprint(provider, u.Path+"#"+u.Fragment)
}

func extract(provider model.Provider, u *url.URL) string {
	switch provider {
	case model.ProviderGmail:
		// Gmail encodes the open message as the last fragment segment,
		// e.g. #inbox/FMfcgzGxRdxTqjpvGcWsVxxzVhnhmjlL.
		segments := strings.Split(u.Fragment, "/")
		last := segments[len(segments)-1]
		if gmailFragmentIDForm.MatchString(last) {
			return last
		}
	case model.ProviderOutlookOWA:
		for _, param := range owaItemParams {
			if v := u.Query().Get(param); v != "" {
				return v
			}
		}
	case model.ProviderOutlookLive:
		if m := liveItemPattern.FindStringSubmatch(u.Path); m != nil {
			return m[1]
		}
		if v := u.Query().Get("ItemID"); v != "" {
			return v
		}
	}
	return ""
}

// fingerprint hashes the address fingerprint with FNV-64a. Two different
// messages viewed through addresses lacking any extractable id can collide
// under this hash; that is a documented limitation of the last-resort path.
func fingerprint(provider model.Provider, s string) string {
	h := fnv.New64a()
	h.Write([]byte(s))
	return fmt.Sprintf("%s_%016x", provider, h.Sum64())
}

// HashRef derives a short stable token from an attachment source reference,
// used to assign attachment ids that survive repeated extraction of the
// same unchanged message.
func HashRef(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}
