package output

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/compose-network/testnet-usdc/internal/artifacts"
	"github.com/compose-network/testnet-usdc/internal/domain"
	fsjson "github.com/compose-network/testnet-usdc/internal/infra/filesystem/json"
	"github.com/compose-network/testnet-usdc/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestGenerateWritesSummary(t *testing.T) {
	blockNumber := uint64(100)
	networks := []ledger.Network{{Name: "net1", ChainID: 1}, {Name: "net2", ChainID: 2}}
	reader := artifacts.Map{
		{Network: "net1", Contract: "TestnetUsdc"}: {
			Address: "0x5fbdb2315678afecb367f032d93f642f64180aa3",
			Receipt: &domain.Receipt{BlockNumber: &blockNumber},
		},
		{Network: "net2", Contract: "TestnetUsdc"}: {Address: "not-hex"},
	}

	l, err := ledger.New(ledger.Config{Networks: networks, Contracts: []string{"TestnetUsdc"}}, reader, fsjson.NewWriter()).
		Build(context.Background())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "output.yaml")
	generator := NewGenerator(path, fsjson.NewWriter())
	require.NoError(t, generator.Generate(context.Background(), networks, l, map[string]string{"net1": "http://localhost:8545"}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "address: '0x5FbDB2315678afecb367f032d93F642f64180aa3'")
	assert.Contains(t, string(content), "deployment-block: 'MISSING'")

	var decoded struct {
		Networks []struct {
			Name      string `yaml:"name"`
			ChainID   uint64 `yaml:"chain-id"`
			RPCURL    string `yaml:"rpc-url"`
			Contracts []struct {
				Name            string `yaml:"name"`
				Address         string `yaml:"address"`
				DeploymentBlock string `yaml:"deployment-block"`
			} `yaml:"contracts"`
		} `yaml:"networks"`
	}
	require.NoError(t, yaml.Unmarshal(content, &decoded))
	require.Len(t, decoded.Networks, 2)

	assert.Equal(t, "net1", decoded.Networks[0].Name)
	assert.Equal(t, "http://localhost:8545", decoded.Networks[0].RPCURL)
	require.Len(t, decoded.Networks[0].Contracts, 1)
	assert.Equal(t, "100", decoded.Networks[0].Contracts[0].DeploymentBlock)

	assert.Equal(t, uint64(2), decoded.Networks[1].ChainID)
	assert.Empty(t, decoded.Networks[1].RPCURL)
	require.Len(t, decoded.Networks[1].Contracts, 1)
	assert.Equal(t, "not-hex", decoded.Networks[1].Contracts[0].Address)
}
