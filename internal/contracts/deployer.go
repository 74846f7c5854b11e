package contracts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/compose-network/testnet-usdc/internal/domain"
	"github.com/compose-network/testnet-usdc/internal/logger"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const deploymentTimeout = 5 * time.Minute

type (
	// Backend is the part of an RPC client the deployer needs. ethclient.Client satisfies it.
	Backend interface {
		bind.ContractBackend
		bind.DeployBackend
		ethereum.ChainIDReader
		ethereum.ChainStateReader
	}

	artifactWriter interface {
		Write(ctx context.Context, network, contract string, artifact domain.Artifact) error
	}

	// Target describes one deploy run: which contracts go to which network, signed by which key
	Target struct {
		Network    string
		ChainID    uint64
		PrivateKey string
		Contracts  []string
	}

	// Deployer deploys compiled contracts and records one artifact per contract
	Deployer struct {
		contracts     map[string]CompiledContract
		store         artifactWriter
		deterministic bool
		logger        *slog.Logger
	}
)

// NewDeployer creates a new contract deployer
func NewDeployer(contracts map[string]CompiledContract, store artifactWriter, deterministic bool) *Deployer {
	return &Deployer{
		contracts:     contracts,
		store:         store,
		deterministic: deterministic,
		logger:        logger.Named("contracts_deployer"),
	}
}

// Deploy deploys every target contract and returns the artifacts that were written
func (d *Deployer) Deploy(ctx context.Context, backend Backend, target Target) (map[string]domain.Artifact, error) {
	logger := d.logger.With("network", target.Network).With("deterministic", d.deterministic)
	logger.Info("deploying contracts")

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	if chainID.Uint64() != target.ChainID {
		return nil, fmt.Errorf("%w: network %s is configured with chain id %d but the RPC reports %d",
			domain.ErrConfiguration, target.Network, target.ChainID, chainID.Uint64())
	}

	account, err := ParseAccount(target.PrivateKey)
	if err != nil {
		return nil, err
	}

	logger.With("deployer", account.Address.Hex()).Info("deployer account loaded")

	auth, err := bind.NewKeyedTransactorWithChainID(account.key, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	artifacts := make(map[string]domain.Artifact, len(target.Contracts))
	for _, name := range target.Contracts {
		contract, ok := d.contracts[name]
		if !ok {
			return nil, fmt.Errorf("contract %s is not compiled", name)
		}

		var artifact domain.Artifact
		if d.deterministic {
			artifact, err = d.deployDeterministic(ctx, backend, auth, target.Network, contract)
		} else {
			artifact, err = d.deployContract(ctx, backend, auth, target.Network, contract)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to deploy %s to %s: %w", name, target.Network, err)
		}

		if err := d.store.Write(ctx, target.Network, name, artifact); err != nil {
			return nil, err
		}
		artifacts[name] = artifact

		logger.Info(fmt.Sprintf("Deployed %s at %s", name, artifact.Address))
	}

	return artifacts, nil
}

func (d *Deployer) deployContract(ctx context.Context, backend Backend, auth *bind.TransactOpts, network string, contract CompiledContract, constructorArgs ...any) (domain.Artifact, error) {
	ctx, cancel := context.WithTimeout(ctx, deploymentTimeout)
	defer cancel()

	if err := d.ensureFunded(ctx, backend, auth.From, network); err != nil {
		return domain.Artifact{}, err
	}

	opts := *auth
	opts.Context = ctx

	address, tx, _, err := bind.DeployContract(&opts, contract.ABI, contract.Bytecode, backend, constructorArgs...)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("failed to deploy contract: %w", err)
	}

	d.logger.
		With("address", address).
		With("tx_hash", tx.Hash().Hex()).
		Info("contract deployment transaction sent")

	receipt, err := waitSuccessful(ctx, backend, tx)
	if err != nil {
		return domain.Artifact{}, err
	}

	artifact := newArtifact(address, contract, tx.Hash(), constructorArgs)
	artifact.Receipt = toReceipt(auth.From, nil, receipt)

	return artifact, nil
}

// deployDeterministic deploys through the CREATE2 proxy. When the predicted address already holds code
// nothing is sent, and the artifact is written without a receipt.
func (d *Deployer) deployDeterministic(ctx context.Context, backend Backend, auth *bind.TransactOpts, network string, contract CompiledContract, constructorArgs ...any) (domain.Artifact, error) {
	ctx, cancel := context.WithTimeout(ctx, deploymentTimeout)
	defer cancel()

	initCode, err := initCode(contract, constructorArgs...)
	if err != nil {
		return domain.Artifact{}, err
	}
	address := PredictDeterministicAddress(initCode)

	code, err := backend.CodeAt(ctx, address, nil)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("failed to get code at %s: %w", address.Hex(), err)
	}
	if len(code) > 0 {
		d.logger.
			With("address", address).
			Warn("contract already deployed at the deterministic address, writing artifact without receipt")

		artifact := newArtifact(address, contract, common.Hash{}, constructorArgs)
		artifact.Deterministic = true
		return artifact, nil
	}

	proxyCode, err := backend.CodeAt(ctx, DeterministicDeploymentProxy, nil)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("failed to get code of the deployment proxy: %w", err)
	}
	if len(proxyCode) == 0 {
		return domain.Artifact{}, fmt.Errorf("%w: deterministic deployment proxy %s is not deployed on this network",
			domain.ErrConfiguration, DeterministicDeploymentProxy.Hex())
	}

	if err := d.ensureFunded(ctx, backend, auth.From, network); err != nil {
		return domain.Artifact{}, err
	}

	opts := *auth
	opts.Context = ctx

	proxy := bind.NewBoundContract(DeterministicDeploymentProxy, abi.ABI{}, backend, backend, backend)
	tx, err := proxy.RawTransact(&opts, append(DeterministicSalt.Bytes(), initCode...))
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("failed to send deterministic deployment: %w", err)
	}

	d.logger.
		With("address", address).
		With("tx_hash", tx.Hash().Hex()).
		Info("deterministic deployment transaction sent")

	receipt, err := waitSuccessful(ctx, backend, tx)
	if err != nil {
		return domain.Artifact{}, err
	}

	code, err = backend.CodeAt(ctx, address, nil)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("failed to get code at %s: %w", address.Hex(), err)
	}
	if len(code) == 0 {
		return domain.Artifact{}, fmt.Errorf("no code at predicted address %s after deployment", address.Hex())
	}

	artifact := newArtifact(address, contract, tx.Hash(), constructorArgs)
	artifact.Deterministic = true
	artifact.Receipt = toReceipt(auth.From, &DeterministicDeploymentProxy, receipt)

	return artifact, nil
}

// ensureFunded fails when the deployer cannot pay for the transaction about to be sent
func (d *Deployer) ensureFunded(ctx context.Context, backend Backend, from common.Address, network string) error {
	balance, err := Account{Address: from}.Balance(ctx, backend)
	if err != nil {
		return err
	}

	d.logger.
		With("deployer", from.Hex()).
		With("balance", balance.String()).
		Debug("deployer balance")
	if balance.Sign() == 0 {
		return fmt.Errorf("%w: deployer %s has no funds on %s", domain.ErrConfiguration, from.Hex(), network)
	}

	return nil
}

// PredictDeterministicAddress returns where the proxy deploys initCode
func PredictDeterministicAddress(initCode []byte) common.Address {
	return crypto.CreateAddress2(DeterministicDeploymentProxy, DeterministicSalt, crypto.Keccak256(initCode))
}

func initCode(contract CompiledContract, constructorArgs ...any) ([]byte, error) {
	packedArgs, err := contract.ABI.Pack("", constructorArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack constructor arguments: %w", err)
	}
	return append(common.CopyBytes(contract.Bytecode), packedArgs...), nil
}

func waitSuccessful(ctx context.Context, backend bind.DeployBackend, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, backend, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for transaction: %w", err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("contract deployment failed with status %d", receipt.Status)
	}

	return receipt, nil
}

func newArtifact(address common.Address, contract CompiledContract, txHash common.Hash, constructorArgs []any) domain.Artifact {
	artifact := domain.Artifact{
		Address:  address.Hex(),
		ABI:      json.RawMessage(contract.RawABI),
		Args:     constructorArgs,
		Bytecode: hexutil.Encode(contract.Bytecode),
	}
	if txHash != (common.Hash{}) {
		artifact.TransactionHash = txHash.Hex()
	}
	return artifact
}

func toReceipt(from common.Address, to *common.Address, receipt *types.Receipt) *domain.Receipt {
	blockNumber := receipt.BlockNumber.Uint64()

	result := &domain.Receipt{
		From:            from.Hex(),
		TransactionHash: receipt.TxHash.Hex(),
		BlockHash:       receipt.BlockHash.Hex(),
		BlockNumber:     &blockNumber,
		GasUsed:         receipt.GasUsed,
		Status:          receipt.Status,
	}
	if to != nil {
		result.To = to.Hex()
	}
	if receipt.ContractAddress != (common.Address{}) {
		result.ContractAddress = receipt.ContractAddress.Hex()
	}

	return result
}
