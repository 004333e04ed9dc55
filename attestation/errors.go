package attestation

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/BitcoinSchema/go-zk-attest/types"
)

var (
	ErrNotFound          = errors.New("attestation: not found")
	ErrAlreadyInProgress = errors.New("attestation: already in progress")
	ErrInvalidType       = errors.New("attestation: invalid type")
	ErrInvalidParams     = errors.New("attestation: invalid params")
	// ErrNotConnected is returned when no wallet address is available.
	ErrNotConnected = errors.New("attestation: wallet not connected")
)

// DataSourceVerificationFailedError reports that the connector for Type did
// not confirm the claim. Err is the connector error, nil for a mismatch.
type DataSourceVerificationFailedError struct {
	Type types.AttestationType
	Err  error
}

func (e *DataSourceVerificationFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("attestation: %s data source verification failed: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("attestation: %s data source verification failed", e.Type)
}

func (e *DataSourceVerificationFailedError) Unwrap() error { return e.Err }

// IsDataSourceVerificationFailed reports whether err carries a
// DataSourceVerificationFailedError.
func IsDataSourceVerificationFailed(err error) bool {
	var target *DataSourceVerificationFailedError
	return errors.As(err, &target)
}
