package contracts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/ethclient"
)

const rpcWaitMaxElapsed = 2 * time.Minute

// Dial connects to an RPC endpoint and waits until it answers eth_blockNumber
func Dial(ctx context.Context, url string, logger *slog.Logger) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = rpcWaitMaxElapsed

	err = backoff.RetryNotify(func() error {
		_, err := client.BlockNumber(ctx)
		return err
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		logger.
			With("url", url).
			With("err", err.Error()).
			With("retry_in", next).
			Warn("RPC not ready")
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("timed out waiting for RPC at %s: %w", url, err)
	}

	return client, nil
}
