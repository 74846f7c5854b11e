package artifacts

import (
	"context"
	"fmt"

	"github.com/compose-network/testnet-usdc/internal/domain"
)

type (
	Key struct {
		Network  string
		Contract string
	}

	// Map is an in-memory artifact set
	Map map[Key]domain.Artifact
)

func (m Map) Read(_ context.Context, network, contract string) (domain.Artifact, error) {
	artifact, ok := m[Key{Network: network, Contract: contract}]
	if !ok {
		return domain.Artifact{}, fmt.Errorf("%w: no artifact for %s on %s", domain.ErrArtifactMissing, contract, network)
	}

	if err := artifact.Validate(); err != nil {
		return domain.Artifact{}, err
	}

	return artifact, nil
}

func (m Map) Write(_ context.Context, network, contract string, artifact domain.Artifact) error {
	if err := artifact.Validate(); err != nil {
		return err
	}

	m[Key{Network: network, Contract: contract}] = artifact

	return nil
}
