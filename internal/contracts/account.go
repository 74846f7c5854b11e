package contracts

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/compose-network/testnet-usdc/internal/domain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account signs deployment transactions
type Account struct {
	Address common.Address
	key     *ecdsa.PrivateKey
}

// ParseAccount derives the account of a hex private key, with or without the 0x prefix
func ParseAccount(privateKeyHex string) (Account, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return Account{}, fmt.Errorf("%w: failed to parse private key: %w", domain.ErrConfiguration, err)
	}

	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return Account{}, fmt.Errorf("failed to cast public key to ECDSA")
	}

	return Account{
		Address: crypto.PubkeyToAddress(*publicKey),
		key:     privateKey,
	}, nil
}

// Balance returns the latest balance of the account
func (a Account) Balance(ctx context.Context, reader ethereum.ChainStateReader) (*big.Int, error) {
	balance, err := reader.BalanceAt(ctx, a.Address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance of %s: %w", a.Address.Hex(), err)
	}
	return balance, nil
}
