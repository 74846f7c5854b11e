package domain

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

// Deployment bookkeeping failures. All of them are fatal: they mean an earlier step did not finish
// or the configuration is inconsistent, so nothing downstream should be published.
var (
	ErrArtifactMissing   = fmt.Errorf("artifact missing: %w", errdefs.ErrNotFound)
	ErrArtifactMalformed = fmt.Errorf("artifact malformed: %w", errdefs.ErrInvalidArgument)
	ErrConfiguration     = fmt.Errorf("configuration error: %w", errdefs.ErrFailedPrecondition)
)

// ArtifactError identifies the (network, contract) pair whose artifact could not be used
type ArtifactError struct {
	Network  string
	Contract string
	Err      error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("contract '%s' on network '%s': %v", e.Contract, e.Network, e.Err)
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}

// Validate checks the fields every consumer of an artifact relies on
func (a Artifact) Validate() error {
	var errs []error

	if a.Address == "" {
		errs = append(errs, errors.New("address is required"))
	}
	if a.Receipt != nil && a.Receipt.BlockNumber == nil {
		errs = append(errs, errors.New("receipt.blockNumber is required when receipt is present"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrArtifactMalformed, errors.Join(errs...))
	}

	return nil
}
