package contracts

import (
	"context"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/compose-network/testnet-usdc/internal/artifacts"
	"github.com/compose-network/testnet-usdc/internal/domain"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	simulatedChainID = 1337
	testNetwork      = "simulated"
	testContractName = "TestnetUsdc"

	// init code copying the single runtime byte 0xfe into place
	testInitCode = "0x6001600c60003960016000f3fe"
)

var deploymentProxyCode = common.FromHex("0x7f" + strings.Repeat("ff", 31) + "e0" +
	"3601600081602082378035828234f58015156039578182fd5b8082525050506014600cf3")

type simulatedChain struct {
	backend    *simulated.Backend
	privateKey string
}

func newSimulatedChain(t *testing.T, withProxy bool) simulatedChain {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	balance, ok := new(big.Int).SetString("1000000000000000000000", 10)
	require.True(t, ok)

	alloc := types.GenesisAlloc{
		crypto.PubkeyToAddress(key.PublicKey): {Balance: balance},
	}
	if withProxy {
		alloc[DeterministicDeploymentProxy] = types.Account{Code: deploymentProxyCode, Balance: new(big.Int)}
	}

	backend := simulated.NewBackend(alloc)
	t.Cleanup(func() { _ = backend.Close() })

	done := make(chan struct{})
	stopped := make(chan struct{})
	ticker := time.NewTicker(50 * time.Millisecond)
	go func() {
		defer close(stopped)
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				backend.Commit()
			}
		}
	}()
	t.Cleanup(func() {
		ticker.Stop()
		close(done)
		<-stopped
	})

	return simulatedChain{
		backend:    backend,
		privateKey: common.Bytes2Hex(crypto.FromECDSA(key)),
	}
}

func testContracts(t *testing.T) map[string]CompiledContract {
	t.Helper()

	parsedABI, err := abi.JSON(strings.NewReader("[]"))
	require.NoError(t, err)

	return map[string]CompiledContract{
		testContractName: {
			ABI:      parsedABI,
			RawABI:   "[]",
			Bytecode: common.FromHex(testInitCode),
		},
	}
}

func testTarget(privateKey string) Target {
	return Target{
		Network:    testNetwork,
		ChainID:    simulatedChainID,
		PrivateKey: privateKey,
		Contracts:  []string{testContractName},
	}
}

func TestDeployWritesArtifactWithReceipt(t *testing.T) {
	chain := newSimulatedChain(t, false)
	store := artifacts.Map{}
	ctx := context.Background()

	deployed, err := NewDeployer(testContracts(t), store, false).Deploy(ctx, chain.backend.Client(), testTarget(chain.privateKey))
	require.NoError(t, err)

	artifact, err := store.Read(ctx, testNetwork, testContractName)
	require.NoError(t, err)
	assert.Equal(t, deployed[testContractName], artifact)
	require.NotNil(t, artifact.Receipt)
	assert.NotZero(t, *artifact.Receipt.BlockNumber)
	assert.Equal(t, types.ReceiptStatusSuccessful, artifact.Receipt.Status)
	assert.Equal(t, artifact.Address, artifact.Receipt.ContractAddress)
	assert.False(t, artifact.Deterministic)

	code, err := chain.backend.Client().CodeAt(ctx, common.HexToAddress(artifact.Address), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xfe}, code)
}

func TestDeployDeterministicSkipsExistingDeployment(t *testing.T) {
	chain := newSimulatedChain(t, true)
	store := artifacts.Map{}
	ctx := context.Background()
	deployer := NewDeployer(testContracts(t), store, true)

	first, err := deployer.Deploy(ctx, chain.backend.Client(), testTarget(chain.privateKey))
	require.NoError(t, err)

	artifact := first[testContractName]
	expected := PredictDeterministicAddress(common.FromHex(testInitCode))
	assert.Equal(t, expected.Hex(), artifact.Address)
	require.NotNil(t, artifact.Receipt)
	assert.Equal(t, DeterministicDeploymentProxy.Hex(), artifact.Receipt.To)
	assert.True(t, artifact.Deterministic)

	second, err := deployer.Deploy(ctx, chain.backend.Client(), testTarget(chain.privateKey))
	require.NoError(t, err)

	redeployed := second[testContractName]
	assert.Equal(t, expected.Hex(), redeployed.Address)
	assert.Nil(t, redeployed.Receipt)
	assert.Empty(t, redeployed.TransactionHash)

	stored, err := store.Read(ctx, testNetwork, testContractName)
	require.NoError(t, err)
	assert.Nil(t, stored.Receipt)
}

func TestDeployDeterministicRequiresProxy(t *testing.T) {
	chain := newSimulatedChain(t, false)

	_, err := NewDeployer(testContracts(t), artifacts.Map{}, true).Deploy(context.Background(), chain.backend.Client(), testTarget(chain.privateKey))
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestDeployRejectsChainIDMismatch(t *testing.T) {
	chain := newSimulatedChain(t, false)
	target := testTarget(chain.privateKey)
	target.ChainID = 11155111

	_, err := NewDeployer(testContracts(t), artifacts.Map{}, false).Deploy(context.Background(), chain.backend.Client(), target)
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "RPC reports 1337")
}

func TestDeployRejectsUnknownContract(t *testing.T) {
	chain := newSimulatedChain(t, false)
	target := testTarget(chain.privateKey)
	target.Contracts = []string{"Unknown"}

	_, err := NewDeployer(testContracts(t), artifacts.Map{}, false).Deploy(context.Background(), chain.backend.Client(), target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown is not compiled")
}

func TestDeployRejectsUnfundedDeployer(t *testing.T) {
	chain := newSimulatedChain(t, false)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	_, err = NewDeployer(testContracts(t), artifacts.Map{}, false).Deploy(context.Background(), chain.backend.Client(), testTarget(common.Bytes2Hex(crypto.FromECDSA(key))))
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "has no funds on simulated")
}

func TestDeployDeterministicRedeployNeedsNoFunds(t *testing.T) {
	chain := newSimulatedChain(t, true)
	store := artifacts.Map{}
	ctx := context.Background()
	deployer := NewDeployer(testContracts(t), store, true)

	_, err := deployer.Deploy(ctx, chain.backend.Client(), testTarget(chain.privateKey))
	require.NoError(t, err)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	redeployed, err := deployer.Deploy(ctx, chain.backend.Client(), testTarget(common.Bytes2Hex(crypto.FromECDSA(key))))
	require.NoError(t, err)
	assert.Nil(t, redeployed[testContractName].Receipt)

	_, err = NewDeployer(testContracts(t), artifacts.Map{}, false).Deploy(ctx, chain.backend.Client(), testTarget(common.Bytes2Hex(crypto.FromECDSA(key))))
	require.ErrorIs(t, err, domain.ErrConfiguration)
}
