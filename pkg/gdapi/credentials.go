package gdapi

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Credential is key material that is either a literal value or a provider
// invoked once when a client is constructed.
type Credential interface {
	Resolve() (string, error)
}

// Literal is a credential known up front.
type Literal string

// Resolve returns the literal value.
func (l Literal) Resolve() (string, error) {
	return string(l), nil
}

// Provider fetches a credential just in time, e.g. from a secret store.
type Provider func() (string, error)

// Resolve invokes the provider.
func (p Provider) Resolve() (string, error) {
	if p == nil {
		return "", nil
	}

	value, err := p()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCredentialProvider, err)
	}

	return value, nil
}

// ResolveCredential resolves c, treating nil as an empty credential.
func ResolveCredential(c Credential) (string, error) {
	if c == nil {
		return "", nil
	}

	return c.Resolve()
}

// Identity derives the registry and cache-namespace key for a client.
func Identity(baseURL, accessKey, secretKey string) string {
	sum := sha256.New()
	sum.Write([]byte(baseURL))
	sum.Write([]byte{0})
	sum.Write([]byte(accessKey))
	sum.Write([]byte{0})
	sum.Write([]byte(secretKey))

	return hex.EncodeToString(sum.Sum(nil))
}
