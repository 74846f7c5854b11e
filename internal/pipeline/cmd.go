package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/compose-network/testnet-usdc/configs"
	fsjson "github.com/compose-network/testnet-usdc/internal/infra/filesystem/json"
	"github.com/compose-network/testnet-usdc/internal/infra/forge"
	"github.com/spf13/cobra"
)

const networkFlag = "network"

var (
	CompileCMD = &cobra.Command{
		Use:   "compile",
		Short: "Compile the contracts with forge",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := configs.Values.Validate(); err != nil {
				return err
			}

			if err := newService().Compile(cmd.Context()); err != nil {
				return fmt.Errorf("compilation failed: %w", err)
			}

			slog.Info("contracts compiled")
			return nil
		},
	}

	DeployCMD = &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the contracts to a network and record their artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			network, err := validatedNetwork(cmd)
			if err != nil {
				return err
			}

			if err := newService().Deploy(cmd.Context(), network); err != nil {
				return fmt.Errorf("deployment failed: %w", err)
			}

			slog.With("network", network).Info("deployment completed successfully")
			return nil
		},
	}

	DocumentCMD = &cobra.Command{
		Use:   "document",
		Short: "Rebuild the address and deployment block registries of every target network",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := configs.Values.Validate(); err != nil {
				return err
			}

			if _, err := newService().Document(cmd.Context()); err != nil {
				return fmt.Errorf("documentation failed: %w", err)
			}

			slog.Info("deployments documented")
			return nil
		},
	}

	VerifyCMD = &cobra.Command{
		Use:   "verify",
		Short: "Verify the deployed contracts on the network's block explorer",
		RunE: func(cmd *cobra.Command, args []string) error {
			network, err := validatedNetwork(cmd)
			if err != nil {
				return err
			}

			if err := newService().Verify(cmd.Context(), network); err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}

			slog.With("network", network).Info("verification completed successfully")
			return nil
		},
	}

	RunCMD = &cobra.Command{
		Use:   "run",
		Short: "Deploy, document and verify in sequence",
		RunE: func(cmd *cobra.Command, args []string) error {
			network, err := validatedNetwork(cmd)
			if err != nil {
				return err
			}

			if err := newService().Run(cmd.Context(), network); err != nil {
				return err
			}

			slog.With("network", network).Info("all steps completed successfully")
			return nil
		},
	}
)

func init() {
	for _, cmd := range []*cobra.Command{DeployCMD, VerifyCMD, RunCMD} {
		cmd.Flags().String(networkFlag, "", "Target network name, one of target-networks")
		if err := cmd.MarkFlagRequired(networkFlag); err != nil {
			panic(err)
		}
	}
}

// Commands returns every pipeline step command
func Commands() []*cobra.Command {
	return []*cobra.Command{CompileCMD, DeployCMD, DocumentCMD, VerifyCMD, RunCMD}
}

func newService() *Service {
	return NewService(configs.Values, fsjson.NewReader(), fsjson.NewWriter(), forge.NewExecRunner())
}

func validatedNetwork(cmd *cobra.Command) (configs.NetworkName, error) {
	slog.Info("validating config", slog.Any("config", configs.Values))

	if err := configs.Values.Validate(); err != nil {
		return "", err
	}

	name, err := cmd.Flags().GetString(networkFlag)
	if err != nil {
		return "", err
	}

	network := configs.NetworkName(name)
	if _, err := configs.Values.Network(network); err != nil {
		return "", err
	}

	return network, nil
}
