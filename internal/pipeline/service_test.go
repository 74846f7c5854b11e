package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/compose-network/testnet-usdc/configs"
	"github.com/compose-network/testnet-usdc/internal/domain"
	fsjson "github.com/compose-network/testnet-usdc/internal/infra/filesystem/json"
	"github.com/compose-network/testnet-usdc/internal/ledger"
	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type failingForge struct {
	calls int
}

func (f *failingForge) Run(context.Context, string, ...string) ([]byte, error) {
	f.calls++
	return nil, errors.New("forge must not be called")
}

func testConfig(t *testing.T) configs.Config {
	t.Helper()

	cfg, err := configs.DefaultConfig()
	require.NoError(t, err)
	dir := t.TempDir()
	cfg.DeploymentsDir = filepath.Join(dir, "deployments")
	cfg.CompiledContractsDir = filepath.Join(dir, "compiled")
	cfg.OutputFile = filepath.Join(dir, "output.yaml")
	cfg.TargetNetworks = []configs.NetworkName{"ethereum-sepolia-testnet", "base-sepolia-testnet"}
	return cfg
}

func writeArtifact(t *testing.T, cfg configs.Config, network, contract string, artifact domain.Artifact) {
	t.Helper()
	path := filepath.Join(cfg.DeploymentsDir, network, contract+".json")
	require.NoError(t, fsjson.NewWriter().WriteJSON(path, artifact))
}

func newTestService(cfg configs.Config) (*Service, *failingForge) {
	runner := &failingForge{}
	return NewService(cfg, fsjson.NewReader(), fsjson.NewWriter(), runner), runner
}

func TestDocumentPublishesRegistriesAndSummary(t *testing.T) {
	cfg := testConfig(t)
	block := uint64(7_000_000)
	writeArtifact(t, cfg, "ethereum-sepolia-testnet", "TestnetUsdc", domain.Artifact{
		Address: "0x5fbdb2315678afecb367f032d93f642f64180aa3",
		Receipt: &domain.Receipt{BlockNumber: &block},
	})
	writeArtifact(t, cfg, "base-sepolia-testnet", "TestnetUsdc", domain.Artifact{
		Address: "0xe7f1725e7734ce288f8367e1bb143e90bb3f0512",
	})

	service, _ := newTestService(cfg)
	l, err := service.Document(context.Background())
	require.NoError(t, err)

	address, ok := l.Addresses.Get("TestnetUsdc", 84532)
	require.True(t, ok)
	assert.Equal(t, "0xe7f1725e7734ce288f8367e1bb143e90bb3f0512", address)

	references, err := os.ReadFile(filepath.Join(cfg.DeploymentsDir, ledger.ReferencesFileName))
	require.NoError(t, err)
	assert.Equal(t, `{
  "chainNames": {
    "11155111": "ethereum-sepolia-testnet",
    "84532": "base-sepolia-testnet"
  },
  "TestnetUsdc": {
    "11155111": "0x5fbdb2315678afecb367f032d93f642f64180aa3",
    "84532": "0xe7f1725e7734ce288f8367e1bb143e90bb3f0512"
  }
}
`, string(references))

	blockNumbers, err := os.ReadFile(filepath.Join(cfg.DeploymentsDir, ledger.BlockNumbersFileName))
	require.NoError(t, err)
	assert.Contains(t, string(blockNumbers), `"11155111": 7000000`)
	assert.Contains(t, string(blockNumbers), `"84532": "MISSING"`)

	summary, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)

	var decoded struct {
		Networks []struct {
			Name      string `yaml:"name"`
			Contracts []struct {
				Address         string `yaml:"address"`
				DeploymentBlock string `yaml:"deployment-block"`
			} `yaml:"contracts"`
		} `yaml:"networks"`
	}
	require.NoError(t, yaml.Unmarshal(summary, &decoded))
	require.Len(t, decoded.Networks, 2)
	assert.Equal(t, "ethereum-sepolia-testnet", decoded.Networks[0].Name)
	require.Len(t, decoded.Networks[0].Contracts, 1)
	assert.Equal(t, "7000000", decoded.Networks[0].Contracts[0].DeploymentBlock)
}

func TestDocumentFailsWithoutWritingWhenAnArtifactIsMissing(t *testing.T) {
	cfg := testConfig(t)
	writeArtifact(t, cfg, "ethereum-sepolia-testnet", "TestnetUsdc", domain.Artifact{Address: "0x01"})

	service, _ := newTestService(cfg)
	_, err := service.Document(context.Background())
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))

	var artifactErr *domain.ArtifactError
	require.ErrorAs(t, err, &artifactErr)
	assert.Equal(t, "base-sepolia-testnet", artifactErr.Network)

	_, err = os.Stat(filepath.Join(cfg.DeploymentsDir, ledger.ReferencesFileName))
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(cfg.OutputFile)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDeployRejectsUnsupportedNetwork(t *testing.T) {
	cfg := testConfig(t)
	cfg.Deployer.PrivateKey = "0x01"

	service, _ := newTestService(cfg)
	err := service.Deploy(context.Background(), "polygon-amoy-testnet")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "polygon-amoy-testnet is not supported")
}

func TestDeployRequiresPrivateKeyAndRPC(t *testing.T) {
	cfg := testConfig(t)
	network := cfg.Networks["ethereum-sepolia-testnet"]
	network.RPCURL = ""
	cfg.Networks["ethereum-sepolia-testnet"] = network

	service, _ := newTestService(cfg)
	err := service.Deploy(context.Background(), "ethereum-sepolia-testnet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deployer.private-key is required")
	assert.Contains(t, err.Error(), "networks.ethereum-sepolia-testnet.rpc-url is required")
}

func TestVerifyRejectsUnsupportedNetwork(t *testing.T) {
	cfg := testConfig(t)
	cfg.Explorer.APIKey = "key"

	service, runner := newTestService(cfg)
	err := service.Verify(context.Background(), "arbitrum-sepolia-testnet")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Zero(t, runner.calls)
}

func TestRunStopsAtFirstFailedPhase(t *testing.T) {
	cfg := testConfig(t)

	service, runner := newTestService(cfg)
	err := service.Run(context.Background(), "ethereum-sepolia-testnet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phase 1 failed")
	assert.Zero(t, runner.calls)

	_, statErr := os.Stat(filepath.Join(cfg.DeploymentsDir, ledger.ReferencesFileName))
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}
