package output

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/compose-network/testnet-usdc/internal/infra/filesystem"
	"github.com/compose-network/testnet-usdc/internal/ledger"
	"github.com/compose-network/testnet-usdc/internal/logger"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Generator writes a human readable summary of a deployment ledger
type Generator struct {
	path   string
	writer filesystem.Writer
	logger *slog.Logger
}

func NewGenerator(path string, writer filesystem.Writer) *Generator {
	return &Generator{
		path:   path,
		writer: writer,
		logger: logger.Named("output_generator"),
	}
}

// Generate writes the summary. rpcURLs is optional and only adds the endpoint of each network.
func (g *Generator) Generate(_ context.Context, networks []ledger.Network, l *ledger.Ledger, rpcURLs map[string]string) error {
	model := Build(networks, l, rpcURLs)

	data, err := yaml.Marshal(model)
	if err != nil {
		return fmt.Errorf("could not marshal output model. Err: '%w'", err)
	}

	if err := g.writer.WriteBytes(g.path, data); err != nil {
		return fmt.Errorf("could not write output file. Err: '%w'", err)
	}

	g.logger.With("path", g.path).Info("deployment summary written")

	return nil
}

// Build arranges the ledger per network, in network then contract order
func Build(networks []ledger.Network, l *ledger.Ledger, rpcURLs map[string]string) *Model {
	model := &Model{Networks: make([]Network, 0, len(networks))}

	for _, network := range networks {
		entry := Network{
			Name:    network.Name,
			ChainID: network.ChainID,
			RPCURL:  rpcURLs[network.Name],
		}

		for _, contract := range l.Addresses.Contracts() {
			address, ok := l.Addresses.Get(contract, network.ChainID)
			if !ok {
				continue
			}
			if common.IsHexAddress(address) {
				address = common.HexToAddress(address).Hex()
			}

			blockNumber, _ := l.BlockNumbers.Get(contract, network.ChainID)

			entry.Contracts = append(entry.Contracts, Contract{
				Name:            contract,
				Address:         SingleQuotedString(address),
				DeploymentBlock: SingleQuotedString(blockNumber.String()),
			})
		}

		model.Networks = append(model.Networks, entry)
	}

	return model
}
