package main

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/compose-network/testnet-usdc/configs"
	"github.com/compose-network/testnet-usdc/internal/logger"
	"github.com/compose-network/testnet-usdc/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const appName = "testnet-usdc"

var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "Deploy, document and verify the TestnetUsdc contract",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.Initialize(slog.LevelDebug)

		if err := configs.LoadDefaults(viper.GetViper()); err != nil {
			return err
		}

		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		if execPath, err := os.Executable(); err == nil {
			viper.AddConfigPath(filepath.Dir(execPath))
		}
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")

		// The embedded defaults cover every key, a config file only overrides them
		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				slog.Debug("no config file found, will rely on flags and defaults")
			} else {
				const errMsg = "error reading config file"
				slog.With("err", err.Error()).Error(errMsg)
				return errors.Join(err, errors.New(errMsg))
			}
		} else {
			slog.With("config_file", viper.ConfigFileUsed()).Debug("config file loaded")
		}

		if err := viper.Unmarshal(&configs.Values); err != nil {
			const errMsg = "unable to decode application config"
			slog.With("err", err.Error()).Error(errMsg)
			return errors.Join(err, errors.New(errMsg))
		}
		configs.Values.Normalize()

		level, err := logger.ParseLevel(configs.Values.LogLevel)
		if err != nil {
			return err
		}
		logger.Initialize(level)

		slog.With("config", configs.Values).Debug("configuration loaded")

		return nil
	},
}

func main() {
	rootCmd.AddCommand(pipeline.Commands()...)

	if err := pipeline.BindFlags(rootCmd); err != nil {
		slog.With("err", err.Error()).Error("failed to bind flags")
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		slog.With("err", err.Error()).Error("failed to execute root command")
		os.Exit(1)
	}
}
