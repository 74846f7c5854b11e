package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/compose-network/testnet-usdc/configs"
	"github.com/compose-network/testnet-usdc/internal/artifacts"
	"github.com/compose-network/testnet-usdc/internal/contracts"
	"github.com/compose-network/testnet-usdc/internal/infra/filesystem"
	"github.com/compose-network/testnet-usdc/internal/infra/forge"
	"github.com/compose-network/testnet-usdc/internal/ledger"
	"github.com/compose-network/testnet-usdc/internal/logger"
	"github.com/compose-network/testnet-usdc/internal/output"
	"github.com/compose-network/testnet-usdc/internal/verify"
)

// Service sequences the compile, deploy, document and verify steps
type Service struct {
	cfg    configs.Config
	store  *artifacts.Store
	reader filesystem.Reader
	writer filesystem.Writer
	runner forge.Runner
	logger *slog.Logger
}

// NewService creates a new pipeline service
func NewService(cfg configs.Config, reader filesystem.Reader, writer filesystem.Writer, runner forge.Runner) *Service {
	return &Service{
		cfg:    cfg,
		store:  artifacts.NewStore(cfg.DeploymentsDir, reader, writer),
		reader: reader,
		writer: writer,
		runner: runner,
		logger: logger.Named("pipeline"),
	}
}

// Compile compiles the configured contracts with forge
func (s *Service) Compile(ctx context.Context) error {
	compiler := contracts.NewCompiler(s.cfg.ContractsDir, s.cfg.CompiledContractsDir, s.runner, s.writer)
	return compiler.Compile(ctx, s.cfg.ContractNames)
}

// Deploy deploys the configured contracts to one target network
func (s *Service) Deploy(ctx context.Context, name configs.NetworkName) error {
	if err := s.cfg.ValidateDeploy(name); err != nil {
		return err
	}
	network, err := s.cfg.Network(name)
	if err != nil {
		return err
	}

	compiled, err := contracts.LoadCompiledContracts(s.reader, s.cfg.CompiledContractsDir, s.cfg.ContractNames)
	if err != nil {
		return err
	}

	logger := s.logger.With("network", name)
	logger.With("url", network.RPCURL).Info("dialing the RPC")

	client, err := contracts.Dial(ctx, network.RPCURL, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	deployer := contracts.NewDeployer(compiled, s.store, s.cfg.Deterministic)
	_, err = deployer.Deploy(ctx, client, contracts.Target{
		Network:    string(name),
		ChainID:    network.ChainID,
		PrivateKey: s.cfg.Deployer.PrivateKey,
		Contracts:  s.cfg.ContractNames,
	})

	return err
}

// Document rebuilds the address and block-number registries from the artifacts of every target network
func (s *Service) Document(ctx context.Context) (*ledger.Ledger, error) {
	networks, err := ledger.ResolveNetworks(s.cfg.TargetNames(), s.cfg.ChainIDs())
	if err != nil {
		return nil, err
	}

	builder := ledger.New(ledger.Config{
		Networks:  networks,
		Contracts: s.cfg.ContractNames,
		OutputDir: s.cfg.DeploymentsDir,
	}, s.store, s.writer)

	l, err := builder.Publish(ctx)
	if err != nil {
		return nil, err
	}

	if s.cfg.OutputFile == "" {
		return l, nil
	}

	rpcURLs := make(map[string]string, len(networks))
	for _, network := range networks {
		rpcURLs[network.Name] = s.cfg.Networks[configs.NetworkName(network.Name)].RPCURL
	}
	if err := output.NewGenerator(s.cfg.OutputFile, s.writer).Generate(ctx, networks, l, rpcURLs); err != nil {
		return nil, fmt.Errorf("failed to generate output file: %w", err)
	}

	return l, nil
}

// Verify submits the sources of the configured contracts on one target network
func (s *Service) Verify(ctx context.Context, name configs.NetworkName) error {
	if err := s.cfg.ValidateVerify(name); err != nil {
		return err
	}
	network, err := s.cfg.Network(name)
	if err != nil {
		return err
	}

	apiURL := s.cfg.ExplorerAPIURL(network)
	apiKey := s.cfg.ExplorerAPIKey(network)

	explorer := verify.NewExplorer(apiURL, apiKey, network.ChainID, s.cfg.Explorer.RequestTimeout)
	verifier := verify.NewVerifier(s.cfg.ContractsDir, s.store, s.runner, s.cfg.Explorer.VerifyMaxElapsed, s.cfg.Explorer.VerifyMaxInterval)

	return verifier.Verify(ctx, explorer, verify.Request{
		Network:     string(name),
		ChainID:     network.ChainID,
		ExplorerURL: apiURL,
		APIKey:      apiKey,
		Contracts:   s.cfg.ContractNames,
	})
}

// Run deploys, documents and verifies in one go
func (s *Service) Run(ctx context.Context, name configs.NetworkName) error {
	s.logger.Info("running phase 1 - deploy")
	if err := s.Deploy(ctx, name); err != nil {
		return fmt.Errorf("phase 1 failed: %w", err)
	}

	s.logger.Info("running phase 2 - document")
	if _, err := s.Document(ctx); err != nil {
		return fmt.Errorf("phase 2 failed: %w", err)
	}

	s.logger.Info("running phase 3 - verify")
	if err := s.Verify(ctx, name); err != nil {
		return fmt.Errorf("phase 3 failed: %w", err)
	}

	return nil
}
