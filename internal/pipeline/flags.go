package pipeline

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type (
	flagType interface {
		string | bool | []string
	}

	// flagDef defines a command-line flag with its configuration.
	flagDef[T flagType] struct {
		name         string
		viperKey     string
		defaultValue T
		description  string
	}

	envDef struct {
		viperKey string
		envVar   string
	}
)

var (
	// Defaults live in the embedded config.example.yaml. Flags only override when set.
	stringFlags = []flagDef[string]{
		{"log-level", "log-level", "", "Log level: debug, info, warn or error"},
		{"deployments-dir", "deployments-dir", "", "Directory holding per-network deployment artifacts and the registries"},
		{"contracts-dir", "contracts-dir", "", "Foundry project containing the contract sources"},
		{"compiled-contracts-dir", "compiled-contracts-dir", "", "Directory of the compiled contracts.json"},
		{"output-file", "output-file", "", "Deployment summary written by the document step"},
		{"explorer-api-url", "explorer.api-url", "", "Etherscan compatible API URL"},
	}

	boolFlags = []flagDef[bool]{
		{"deterministic", "deterministic", false, "Deploy through the CREATE2 deployment proxy"},
	}

	stringSliceFlags = []flagDef[[]string]{
		{"target-networks", "target-networks", nil, "Networks to deploy to and document, in order"},
		{"contract-names", "contract-names", nil, "Contracts to deploy and document, in order"},
	}

	envVars = []envDef{
		{"deterministic", "DETERMINISTIC"},
		{"deployer.private-key", "DEPLOYER_PRIVATE_KEY"},
		{"explorer.api-key", "ETHERSCAN_API_KEY"},
	}
)

// BindFlags declares the persistent flags of root and binds flags and environment variables to viper keys.
func BindFlags(root *cobra.Command) error {
	if err := declareFlags(root, stringFlags); err != nil {
		return err
	}
	if err := declareFlags(root, boolFlags); err != nil {
		return err
	}
	if err := declareFlags(root, stringSliceFlags); err != nil {
		return err
	}

	for _, env := range envVars {
		if err := viper.BindEnv(env.viperKey, env.envVar); err != nil {
			return err
		}
	}

	return nil
}

// declareFlags declares multiple flags and binds them to viper configuration keys.
func declareFlags[T flagType](root *cobra.Command, flags []flagDef[T]) error {
	for _, flag := range flags {
		if err := declareFlag(root, flag.name, flag.viperKey, flag.defaultValue, flag.description); err != nil {
			return err
		}
	}
	return nil
}

// declareFlag declares a single persistent flag and binds it to a viper configuration key.
// The type parameter T determines the flag type.
func declareFlag[T flagType](root *cobra.Command, flagName, viperKey string, defaultValue T, description string) error {
	var zero T
	switch any(zero).(type) {
	case string:
		root.PersistentFlags().String(flagName, any(defaultValue).(string), description)
	case bool:
		root.PersistentFlags().Bool(flagName, any(defaultValue).(bool), description)
	case []string:
		root.PersistentFlags().StringSlice(flagName, any(defaultValue).([]string), description)
	}
	return viper.BindPFlag(viperKey, root.PersistentFlags().Lookup(flagName))
}
