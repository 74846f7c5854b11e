package configs

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/compose-network/testnet-usdc/internal/domain"
)

var Values Config

type (
	NetworkName string

	Config struct {
		LogLevel             string                  `mapstructure:"log-level"`
		DeploymentsDir       string                  `mapstructure:"deployments-dir"`
		ContractsDir         string                  `mapstructure:"contracts-dir"`
		CompiledContractsDir string                  `mapstructure:"compiled-contracts-dir"`
		OutputFile           string                  `mapstructure:"output-file"`
		ContractNames        []string                `mapstructure:"contract-names"`
		TargetNetworks       []NetworkName           `mapstructure:"target-networks"`
		Networks             map[NetworkName]Network `mapstructure:"networks"`
		Deterministic        bool                    `mapstructure:"deterministic"`
		Deployer             Deployer                `mapstructure:"deployer"`
		Explorer             Explorer                `mapstructure:"explorer"`
	}

	Network struct {
		ChainID        uint64 `mapstructure:"chain-id"`
		RPCURL         string `mapstructure:"rpc-url"`
		ExplorerAPIURL string `mapstructure:"explorer-api-url"`
		ExplorerAPIKey string `mapstructure:"explorer-api-key"`
	}

	Deployer struct {
		PrivateKey string `mapstructure:"private-key"`
	}

	Explorer struct {
		APIURL            string        `mapstructure:"api-url"`
		APIKey            string        `mapstructure:"api-key"`
		RequestTimeout    time.Duration `mapstructure:"request-timeout"`
		VerifyMaxElapsed  time.Duration `mapstructure:"verify-max-elapsed"`
		VerifyMaxInterval time.Duration `mapstructure:"verify-max-interval"`
	}
)

// Normalize lowercases network names. viper lowercases the keys of networks, target-networks has to follow.
func (c *Config) Normalize() {
	for i, name := range c.TargetNetworks {
		c.TargetNetworks[i] = name.normalized()
	}

	networks := make(map[NetworkName]Network, len(c.Networks))
	for name, network := range c.Networks {
		networks[name.normalized()] = network
	}
	c.Networks = networks
}

func (n NetworkName) normalized() NetworkName {
	return NetworkName(strings.ToLower(string(n)))
}

// Validate checks the settings shared by every step
func (c *Config) Validate() error {
	var errs []error

	if c.DeploymentsDir == "" {
		errs = append(errs, errors.New("deployments-dir is required"))
	}
	if len(c.ContractNames) == 0 {
		errs = append(errs, errors.New("contract-names must list at least one contract"))
	}
	if len(c.TargetNetworks) == 0 {
		errs = append(errs, errors.New("target-networks must list at least one network"))
	}

	for _, name := range c.TargetNetworks {
		network, exists := c.Networks[name]
		if !exists {
			errs = append(errs, fmt.Errorf("networks.%s is required", name))
			continue
		}
		if network.ChainID == 0 {
			errs = append(errs, fmt.Errorf("networks.%s.chain-id is required", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}

// ValidateDeploy checks what the deploy step needs on top of Validate
func (c *Config) ValidateDeploy(name NetworkName) error {
	var errs []error

	if c.CompiledContractsDir == "" {
		errs = append(errs, errors.New("compiled-contracts-dir is required"))
	}
	if c.Deployer.PrivateKey == "" {
		errs = append(errs, errors.New("deployer.private-key is required"))
	}
	if network, err := c.Network(name); err != nil {
		errs = append(errs, err)
	} else if network.RPCURL == "" {
		errs = append(errs, fmt.Errorf("networks.%s.rpc-url is required", name))
	}

	if len(errs) > 0 {
		return fmt.Errorf("deploy configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}

// ValidateVerify checks what the verify step needs on top of Validate
func (c *Config) ValidateVerify(name NetworkName) error {
	var errs []error

	if c.ContractsDir == "" {
		errs = append(errs, errors.New("contracts-dir is required"))
	}
	network, err := c.Network(name)
	if err != nil {
		errs = append(errs, err)
	} else {
		if c.ExplorerAPIURL(network) == "" {
			errs = append(errs, fmt.Errorf("networks.%s.explorer-api-url or explorer.api-url is required", name))
		}
		if c.ExplorerAPIKey(network) == "" {
			errs = append(errs, fmt.Errorf("networks.%s.explorer-api-key or explorer.api-key is required", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("verify configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}

// Network returns the configuration of a target network. Networks outside target-networks are not supported.
func (c *Config) Network(name NetworkName) (Network, error) {
	name = name.normalized()
	if !slices.Contains(c.TargetNetworks, name) {
		return Network{}, fmt.Errorf("%w: %s is not supported", domain.ErrConfiguration, name)
	}

	network, exists := c.Networks[name]
	if !exists {
		return Network{}, fmt.Errorf("%w: networks.%s is not configured", domain.ErrConfiguration, name)
	}

	return network, nil
}

// TargetNames returns target-networks as plain strings, in configuration order
func (c *Config) TargetNames() []string {
	names := make([]string, 0, len(c.TargetNetworks))
	for _, name := range c.TargetNetworks {
		names = append(names, string(name))
	}
	return names
}

// ChainIDs maps every configured network to its chain id
func (c *Config) ChainIDs() map[string]uint64 {
	chainIDs := make(map[string]uint64, len(c.Networks))
	for name, network := range c.Networks {
		chainIDs[string(name)] = network.ChainID
	}
	return chainIDs
}

func (c *Config) ExplorerAPIURL(network Network) string {
	if network.ExplorerAPIURL != "" {
		return network.ExplorerAPIURL
	}
	return c.Explorer.APIURL
}

func (c *Config) ExplorerAPIKey(network Network) string {
	if network.ExplorerAPIKey != "" {
		return network.ExplorerAPIKey
	}
	return c.Explorer.APIKey
}

// LogValue keeps secrets out of logs
func (c Config) LogValue() slog.Value {
	targets := make([]string, 0, len(c.TargetNetworks))
	for _, name := range c.TargetNetworks {
		targets = append(targets, string(name))
	}

	return slog.GroupValue(
		slog.String("log_level", c.LogLevel),
		slog.String("deployments_dir", c.DeploymentsDir),
		slog.String("contracts_dir", c.ContractsDir),
		slog.String("compiled_contracts_dir", c.CompiledContractsDir),
		slog.String("output_file", c.OutputFile),
		slog.Any("contract_names", c.ContractNames),
		slog.Any("target_networks", targets),
		slog.Bool("deterministic", c.Deterministic),
		slog.Bool("deployer_private_key_set", c.Deployer.PrivateKey != ""),
		slog.String("explorer_api_url", c.Explorer.APIURL),
		slog.Bool("explorer_api_key_set", c.Explorer.APIKey != ""),
	)
}
