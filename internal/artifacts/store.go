package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/compose-network/testnet-usdc/internal/domain"
	"github.com/compose-network/testnet-usdc/internal/infra/filesystem"
	"github.com/compose-network/testnet-usdc/internal/logger"
)

const fileExtension = ".json"

// Store keeps one artifact per network and contract under <deployments-dir>/<network>/<Contract>.json
type Store struct {
	deploymentsDir string
	reader         filesystem.Reader
	writer         filesystem.Writer
	logger         *slog.Logger
}

// NewStore creates a new artifact store
func NewStore(deploymentsDir string, reader filesystem.Reader, writer filesystem.Writer) *Store {
	return &Store{
		deploymentsDir: deploymentsDir,
		reader:         reader,
		writer:         writer,
		logger:         logger.Named("artifact_store"),
	}
}

// Path returns where the artifact of a contract on a network lives
func (s *Store) Path(network, contract string) string {
	return filepath.Join(s.deploymentsDir, network, contract+fileExtension)
}

// Read loads and validates an artifact
func (s *Store) Read(_ context.Context, network, contract string) (domain.Artifact, error) {
	path := s.Path(network, contract)

	var artifact domain.Artifact
	if err := s.reader.ReadJSON(path, &artifact); err != nil {
		var (
			syntaxErr *json.SyntaxError
			typeErr   *json.UnmarshalTypeError
		)
		switch {
		case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
			return domain.Artifact{}, fmt.Errorf("%w: '%s': %w", domain.ErrArtifactMalformed, path, err)
		case errors.Is(err, fs.ErrNotExist):
			return domain.Artifact{}, fmt.Errorf("%w: '%s' does not exist", domain.ErrArtifactMissing, path)
		default:
			return domain.Artifact{}, fmt.Errorf("%w: '%s' could not be read: %w", domain.ErrArtifactMissing, path, err)
		}
	}

	if err := artifact.Validate(); err != nil {
		return domain.Artifact{}, fmt.Errorf("'%s': %w", path, err)
	}

	return artifact, nil
}

// Write persists an artifact, replacing any previous deployment of the contract on the network
func (s *Store) Write(_ context.Context, network, contract string, artifact domain.Artifact) error {
	if err := artifact.Validate(); err != nil {
		return err
	}

	path := s.Path(network, contract)

	s.logger.
		With("network", network).
		With("contract", contract).
		With("path", path).
		Info("writing deployment artifact")
	if err := s.writer.WriteJSON(path, artifact); err != nil {
		return fmt.Errorf("failed to write artifact of %s on %s: %w", contract, network, err)
	}

	return nil
}
