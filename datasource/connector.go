// Package datasource verifies that an external account named in a claim
// belongs to the claimant.
package datasource

import (
	"context"

	"github.com/pkg/errors"

	"github.com/BitcoinSchema/go-zk-attest/types"
)

var (
	// ErrIntegrationUnavailable is returned by connectors that cannot
	// perform a real check, for example when no API token is configured.
	ErrIntegrationUnavailable = errors.New("datasource: integration unavailable")
	// ErrExternalVerificationFailed wraps network and provider errors.
	ErrExternalVerificationFailed = errors.New("datasource: external verification failed")
	// ErrProfileNotFound is returned by GetData when the provider has no such user.
	ErrProfileNotFound = errors.New("datasource: profile not found")
)

// Profile is the raw provider profile returned by GetData.
type Profile map[string]interface{}

// Connector checks claims against one external provider.
//
// Verify returns (false, nil) for a genuine mismatch, (false, err) when the
// check could not be made. It never panics into the caller.
type Connector interface {
	Name() string
	Verify(ctx context.Context, metadata map[string]interface{}) (bool, error)
	GetData(ctx context.Context, userID string) (Profile, error)
}

// Registry maps attestation types to their connector. A type without an
// entry needs no external verification.
type Registry map[types.AttestationType]Connector

// Lookup returns the connector for t, if any.
func (r Registry) Lookup(t types.AttestationType) (Connector, bool) {
	if r == nil {
		return nil, false
	}
	c, ok := r[t]
	return c, ok && c != nil
}

// Unavailable is a connector for providers with no real check wired.
type Unavailable struct {
	Provider string
}

func (u Unavailable) Name() string { return u.Provider }

func (u Unavailable) Verify(context.Context, map[string]interface{}) (bool, error) {
	return false, errors.Wrapf(ErrIntegrationUnavailable, "%s verification not implemented", u.Provider)
}

func (u Unavailable) GetData(context.Context, string) (Profile, error) {
	return nil, errors.Wrapf(ErrIntegrationUnavailable, "%s data fetching not implemented", u.Provider)
}

// safely converts a panic inside a provider call into an external failure.
func safely(provider string, fn func() (bool, error)) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = errors.Wrapf(ErrExternalVerificationFailed, "%s: panic: %v", provider, r)
		}
	}()
	return fn()
}

func metadataString(m map[string]interface{}, key string) string {
	return types.MetadataString(m, key)
}
