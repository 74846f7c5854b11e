package contracts

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const contractsFileName = "contracts.json"

var (
	// DeterministicDeploymentProxy is the CREATE2 factory found at the same address on most EVM networks
	DeterministicDeploymentProxy = common.HexToAddress("0x4e59b44847b379578588920ca78fbf26c0b4956c")

	// DeterministicSalt is the salt used for every deterministic deployment
	DeterministicSalt = common.Hash{}
)

type CompiledContract struct {
	ABI      abi.ABI
	RawABI   string
	Bytecode []byte
}
