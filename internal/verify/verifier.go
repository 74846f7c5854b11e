package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/compose-network/testnet-usdc/internal/domain"
	"github.com/compose-network/testnet-usdc/internal/infra/forge"
	"github.com/compose-network/testnet-usdc/internal/logger"
)

// Explorer messages meaning the contract is not indexed yet, worth retrying
var pendingMarkers = []string{
	"does not have bytecode",
	"unable to locate contractcode",
	"not yet indexed",
	"rate limit",
}

var alreadyVerifiedMarkers = []string{
	"already verified",
}

type (
	artifactReader interface {
		Read(ctx context.Context, network, contract string) (domain.Artifact, error)
	}

	explorer interface {
		IsVerified(ctx context.Context, address string) (bool, error)
	}

	// Request names the contracts to verify on one network
	Request struct {
		Network     string
		ChainID     uint64
		ExplorerURL string
		APIKey      string
		Contracts   []string
	}

	// Verifier submits deployed contracts' sources to a block explorer
	Verifier struct {
		contractsRootDir string
		reader           artifactReader
		runner           forge.Runner
		maxElapsed       time.Duration
		maxInterval      time.Duration
		logger           *slog.Logger
	}
)

// NewVerifier creates a new verifier for the foundry project in contractsRootDir
func NewVerifier(contractsRootDir string, reader artifactReader, runner forge.Runner, maxElapsed, maxInterval time.Duration) *Verifier {
	return &Verifier{
		contractsRootDir: contractsRootDir,
		reader:           reader,
		runner:           runner,
		maxElapsed:       maxElapsed,
		maxInterval:      maxInterval,
		logger:           logger.Named("verifier"),
	}
}

// Verify verifies every requested contract, skipping those the explorer already knows
func (v *Verifier) Verify(ctx context.Context, explorer explorer, req Request) error {
	for _, contract := range req.Contracts {
		logger := v.logger.With("network", req.Network).With("contract", contract)

		artifact, err := v.reader.Read(ctx, req.Network, contract)
		if err != nil {
			return &domain.ArtifactError{Network: req.Network, Contract: contract, Err: err}
		}
		logger = logger.With("address", artifact.Address)

		verified, err := explorer.IsVerified(ctx, artifact.Address)
		if err != nil {
			logger.With("err", err.Error()).Warn("could not query verification status, submitting anyway")
		} else if verified {
			logger.Info("contract already verified")
			continue
		}

		if err := v.submit(ctx, req, contract, artifact.Address); err != nil {
			return fmt.Errorf("failed to verify %s on %s: %w", contract, req.Network, err)
		}

		logger.Info("contract verified")
	}

	return nil
}

func (v *Verifier) submit(ctx context.Context, req Request, contract, address string) error {
	args := []string{
		"verify-contract",
		"--chain", strconv.FormatUint(req.ChainID, 10),
		"--verifier", "etherscan",
		"--verifier-url", req.ExplorerURL,
		"--etherscan-api-key", req.APIKey,
		"--watch",
		address,
		contract,
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = v.maxElapsed
	if v.maxInterval > 0 {
		b.MaxInterval = v.maxInterval
		b.InitialInterval = min(b.InitialInterval, v.maxInterval)
	}

	err := backoff.RetryNotify(func() error {
		output, err := v.runner.Run(ctx, v.contractsRootDir, args...)
		if err == nil {
			return nil
		}

		message := strings.ToLower(string(output) + " " + err.Error())
		if containsAny(message, alreadyVerifiedMarkers) {
			return nil
		}
		if containsAny(message, pendingMarkers) {
			return err
		}

		return backoff.Permanent(err)
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		v.logger.
			With("contract", contract).
			With("retry_in", next).
			With("err", redact(err.Error(), req.APIKey)).
			Warn("explorer not ready, retrying verification")
	})
	if err != nil {
		// forge echoes its arguments, keep the API key out of logs and errors
		return errors.New(redact(err.Error(), req.APIKey))
	}

	return nil
}

func containsAny(message string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}

func redact(message, secret string) string {
	if secret == "" {
		return message
	}
	return strings.ReplaceAll(message, secret, "***")
}
