package contracts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/compose-network/testnet-usdc/internal/infra/filesystem"
	"github.com/compose-network/testnet-usdc/internal/infra/forge"
	"github.com/compose-network/testnet-usdc/internal/logger"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Compiler compiles the Solidity contracts of a foundry project
type Compiler struct {
	contractsRootDir string
	outputDir        string
	runner           forge.Runner
	writer           filesystem.Writer
	logger           *slog.Logger
}

// NewCompiler creates a new contract compiler
func NewCompiler(contractsRootDir, outputDir string, runner forge.Runner, writer filesystem.Writer) *Compiler {
	return &Compiler{
		contractsRootDir: contractsRootDir,
		outputDir:        outputDir,
		runner:           runner,
		writer:           writer,
		logger:           logger.Named("contracts_compiler"),
	}
}

// Compile compiles Solidity contracts and persists ABI and bytecode to contracts.json
func (c *Compiler) Compile(ctx context.Context, contractNames []string) error {
	c.logger.
		With("contracts_dir", c.contractsRootDir).
		Info("starting contract compilation")

	jsonContracts := make(map[string]compiledContractJSON, len(contractNames))
	for _, name := range contractNames {
		c.logger.With("name", name).Info("compiling contract")

		abiJSON, bytecodeHex, err := c.compileContractRaw(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to compile %s: %w", name, err)
		}

		jsonContracts[name] = compiledContractJSON{
			ABI:      json.RawMessage(abiJSON),
			Bytecode: bytecodeHex,
		}
	}

	outputPath := filepath.Join(c.outputDir, contractsFileName)
	if err := c.writer.WriteJSON(outputPath, jsonContracts); err != nil {
		return fmt.Errorf("failed to write %s: %w", contractsFileName, err)
	}

	c.logger.With("path", outputPath).Info("contracts compiled successfully")

	return nil
}

// compileContractRaw compiles a contract and returns raw JSON ABI and hex bytecode
func (c *Compiler) compileContractRaw(ctx context.Context, contractName string) ([]byte, string, error) {
	// forge looks for contracts in the src/ subdirectory relative to the working directory
	abiOutput, err := c.runner.Run(ctx, c.contractsRootDir, "inspect", contractName, "abi", "--json")
	if err != nil {
		return nil, "", fmt.Errorf("failed to get ABI for %s: %w", contractName, err)
	}

	if _, err := abi.JSON(strings.NewReader(string(abiOutput))); err != nil {
		return nil, "", fmt.Errorf("failed to parse ABI for %s: %w", contractName, err)
	}

	bytecodeOutput, err := c.runner.Run(ctx, c.contractsRootDir, "inspect", contractName, "bytecode")
	if err != nil {
		return nil, "", fmt.Errorf("failed to get bytecode for %s: %w", contractName, err)
	}

	bytecode := strings.TrimSpace(string(bytecodeOutput))
	if !strings.HasPrefix(bytecode, "0x") || len(bytecode) <= 2 {
		return nil, "", fmt.Errorf("unexpected bytecode output for %s: '%s'", contractName, bytecode)
	}

	return abiOutput, bytecode, nil
}
