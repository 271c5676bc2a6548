package credential

// BearerKey is the keyring entry holding the session bearer token used when
// fetching attachment content from provider endpoints.
const BearerKey = "session-bearer"

// Supplier exposes the session credential to the fetch layer without binding
// it to a storage mechanism.
type Supplier interface {
	// IsAuthorized reports whether a usable credential is available.
	IsAuthorized() bool
	// Bearer returns the current bearer token.
	Bearer() (string, error)
}

// KeyringSupplier reads the bearer token from the system keyring on every
// call, so a token refreshed out-of-band is picked up without a restart.
type KeyringSupplier struct {
	key string
}

// NewKeyringSupplier builds a Supplier backed by the system keyring. An empty
// key falls back to BearerKey.
func NewKeyringSupplier(key string) *KeyringSupplier {
	if key == "" {
		key = BearerKey
	}
	return &KeyringSupplier{key: key}
}

func (s *KeyringSupplier) IsAuthorized() bool {
	token, err := Get(s.key)
	return err == nil && token != ""
}

func (s *KeyringSupplier) Bearer() (string, error) {
	return Get(s.key)
}

// Static is a fixed-token Supplier for tests and headless runs. The empty
// string means unauthorized.
type Static string

func (s Static) IsAuthorized() bool {
	return s != ""
}

func (s Static) Bearer() (string, error) {
	return string(s), nil
}
