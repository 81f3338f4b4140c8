package multisig

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-accounts/pkg/crypto"
)

var (
	// ErrInvalidKeyFormat is returned when canonical ordering is requested
	// for a key set that contains an uncompressed key.
	ErrInvalidKeyFormat = errors.New("compressed key required for canonical ordering")
	// ErrInvalidThreshold is returned when the threshold is outside [1, len(keys)].
	ErrInvalidThreshold = errors.New("invalid multisig threshold")
	// ErrTooManyKeys is returned when more than MaxKeys keys are supplied.
	ErrTooManyKeys = errors.New("too many multisig keys")
	// ErrUnknownSortPolicy is returned for a SortPolicy outside the
	// defined constants.
	ErrUnknownSortPolicy = errors.New("unknown sort policy")
)

// KeyError reports which input key was rejected.
type KeyError struct {
	Index int
	Key   crypto.PublicKey
	Err   error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%v: key %d (%s)", e.Err, e.Index, e.Key)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}
