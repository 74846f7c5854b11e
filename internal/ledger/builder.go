package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/compose-network/testnet-usdc/internal/domain"
	"github.com/compose-network/testnet-usdc/internal/infra/filesystem"
	"github.com/compose-network/testnet-usdc/internal/logger"
)

const (
	ReferencesFileName   = "references.json"
	BlockNumbersFileName = "deployment-block-numbers.json"
)

type (
	// ArtifactReader returns the deployment artifact of a contract on a network
	ArtifactReader interface {
		Read(ctx context.Context, network, contract string) (domain.Artifact, error)
	}

	Network struct {
		Name    string
		ChainID uint64
	}

	// Config is the fixed input of a build: networks and contracts are processed in the given order
	Config struct {
		Networks  []Network
		Contracts []string
		OutputDir string
	}

	// Builder rebuilds the address and block-number registries from deployment artifacts
	Builder struct {
		cfg    Config
		reader ArtifactReader
		writer filesystem.Writer
		logger *slog.Logger
	}
)

// New creates a builder. The configuration is copied, later changes to the caller's slices are not seen.
func New(cfg Config, reader ArtifactReader, writer filesystem.Writer) *Builder {
	return &Builder{
		cfg: Config{
			Networks:  slices.Clone(cfg.Networks),
			Contracts: slices.Clone(cfg.Contracts),
			OutputDir: cfg.OutputDir,
		},
		reader: reader,
		writer: writer,
		logger: logger.Named("ledger_builder"),
	}
}

// ResolveNetworks looks up the chain id of every target network, keeping the target order
func ResolveNetworks(targets []string, catalog map[string]uint64) ([]Network, error) {
	var errs []error

	networks := make([]Network, 0, len(targets))
	for _, name := range targets {
		chainID, ok := catalog[name]
		if !ok {
			errs = append(errs, fmt.Errorf("network '%s' has no entry in network configuration", name))
			continue
		}
		networks = append(networks, Network{Name: name, ChainID: chainID})
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, errors.Join(errs...))
	}

	return networks, nil
}

func (c Config) Validate() error {
	var errs []error

	if len(c.Networks) == 0 {
		errs = append(errs, errors.New("at least one network is required"))
	}
	if len(c.Contracts) == 0 {
		errs = append(errs, errors.New("at least one contract is required"))
	}

	names := make(map[string]struct{}, len(c.Networks))
	chainIDs := make(map[uint64]string, len(c.Networks))
	for _, network := range c.Networks {
		if network.Name == "" {
			errs = append(errs, errors.New("network name is required"))
		} else if _, ok := names[network.Name]; ok {
			errs = append(errs, fmt.Errorf("network '%s' is listed twice", network.Name))
		}
		names[network.Name] = struct{}{}

		if network.ChainID == 0 {
			errs = append(errs, fmt.Errorf("network '%s' has no chain id", network.Name))
			continue
		}
		if other, ok := chainIDs[network.ChainID]; ok && other != network.Name {
			errs = append(errs, fmt.Errorf("networks '%s' and '%s' share chain id %d", other, network.Name, network.ChainID))
		}
		chainIDs[network.ChainID] = network.Name
	}

	contracts := make(map[string]struct{}, len(c.Contracts))
	for _, contract := range c.Contracts {
		switch {
		case contract == "":
			errs = append(errs, errors.New("contract name is required"))
		case contract == chainNamesKey:
			errs = append(errs, fmt.Errorf("contract name '%s' is reserved", chainNamesKey))
		}
		if _, ok := contracts[contract]; ok {
			errs = append(errs, fmt.Errorf("contract '%s' is listed twice", contract))
		}
		contracts[contract] = struct{}{}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrConfiguration, errors.Join(errs...))
	}

	return nil
}

// Build reads every configured artifact and returns both registries. Nothing is written.
func (b *Builder) Build(ctx context.Context) (*Ledger, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}

	b.logger.
		With("contracts", b.cfg.Contracts).
		With("networks", len(b.cfg.Networks)).
		Info("building deployment ledger")

	ledger := newLedger()
	for _, network := range b.cfg.Networks {
		ledger.Addresses.SetChainName(network.ChainID, network.Name)
	}

	for _, contract := range b.cfg.Contracts {
		ledger.Addresses.AddContract(contract)
		ledger.BlockNumbers.AddContract(contract)

		for _, network := range b.cfg.Networks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			artifact, err := b.read(ctx, network.Name, contract)
			if err != nil {
				return nil, err
			}

			blockNumber := Unknown()
			if artifact.Receipt != nil {
				blockNumber = Known(*artifact.Receipt.BlockNumber)
			} else {
				b.logger.
					With("contract", contract).
					With("network", network.Name).
					Warn("artifact has no receipt, block number recorded as " + MissingBlockNumber)
			}

			ledger.Addresses.Set(contract, network.ChainID, artifact.Address)
			ledger.BlockNumbers.Set(contract, network.ChainID, blockNumber)

			b.logger.
				With("contract", contract).
				With("network", network.Name).
				With("chain_id", network.ChainID).
				With("address", artifact.Address).
				With("block_number", blockNumber.String()).
				Debug("artifact recorded")
		}
	}

	return ledger, nil
}

// Publish builds the ledger and overwrites both registry files.
// Both documents are rendered before either is written, a failed build leaves the previous files untouched.
func (b *Builder) Publish(ctx context.Context) (*Ledger, error) {
	ledger, err := b.Build(ctx)
	if err != nil {
		return nil, err
	}

	references, err := b.writer.MarshalJSON(ledger.Addresses)
	if err != nil {
		return nil, fmt.Errorf("failed to render '%s': %w", ReferencesFileName, err)
	}

	blockNumbers, err := b.writer.MarshalJSON(ledger.BlockNumbers)
	if err != nil {
		return nil, fmt.Errorf("failed to render '%s': %w", BlockNumbersFileName, err)
	}

	referencesPath := filepath.Join(b.cfg.OutputDir, ReferencesFileName)
	if err := b.writer.WriteBytes(referencesPath, references); err != nil {
		return nil, fmt.Errorf("failed to write '%s': %w", ReferencesFileName, err)
	}

	blockNumbersPath := filepath.Join(b.cfg.OutputDir, BlockNumbersFileName)
	if err := b.writer.WriteBytes(blockNumbersPath, blockNumbers); err != nil {
		return nil, fmt.Errorf("failed to write '%s': %w", BlockNumbersFileName, err)
	}

	b.logger.
		With("references", referencesPath).
		With("block_numbers", blockNumbersPath).
		Info("deployment ledger written")

	return ledger, nil
}

func (b *Builder) read(ctx context.Context, network, contract string) (domain.Artifact, error) {
	artifact, err := b.reader.Read(ctx, network, contract)
	if err == nil {
		err = artifact.Validate()
	}
	if err != nil {
		if !errors.Is(err, domain.ErrArtifactMissing) && !errors.Is(err, domain.ErrArtifactMalformed) {
			err = fmt.Errorf("%w: %w", domain.ErrArtifactMissing, err)
		}
		return domain.Artifact{}, &domain.ArtifactError{Network: network, Contract: contract, Err: err}
	}

	return artifact, nil
}
