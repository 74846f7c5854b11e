package contracts

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/compose-network/testnet-usdc/internal/infra/filesystem"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

type compiledContractJSON struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode string          `json:"bytecode"`
}

// LoadCompiledContracts loads the named contracts from <dir>/contracts.json, as written by Compiler
func LoadCompiledContracts(reader filesystem.Reader, dir string, names []string) (map[string]CompiledContract, error) {
	var compiled map[string]compiledContractJSON
	if err := reader.ReadJSON(filepath.Join(dir, contractsFileName), &compiled); err != nil {
		return nil, fmt.Errorf("failed to read compiled contracts. Run the compile command first: %w", err)
	}

	return toCompiledContracts(compiled, names)
}

func toCompiledContracts(result map[string]compiledContractJSON, names []string) (map[string]CompiledContract, error) {
	loadedContracts := make(map[string]CompiledContract, len(names))
	for _, name := range names {
		contract, ok := result[name]
		if !ok {
			return nil, fmt.Errorf("contract %s is not compiled", name)
		}

		parsedABI, err := abi.JSON(strings.NewReader(string(contract.ABI)))
		if err != nil {
			return nil, fmt.Errorf("failed to parse ABI for %s: %w", name, err)
		}

		bytecodeHex := strings.TrimPrefix(strings.TrimSpace(contract.Bytecode), "0x")
		if bytecodeHex == "" {
			return nil, fmt.Errorf("contract %s has no bytecode", name)
		}

		loadedContracts[name] = CompiledContract{
			ABI:      parsedABI,
			RawABI:   string(contract.ABI),
			Bytecode: common.FromHex(bytecodeHex),
		}
	}

	return loadedContracts, nil
}
