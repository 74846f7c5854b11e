package domain

import "encoding/json"

// Artifact is the per-network, per-contract deployment record (deployments/<network>/<Contract>.json)
// NOTE: only Address is required. Everything else is informational and may be absent, most notably
// Receipt, which is not written when a deterministic deployment found the contract already in place.
type Artifact struct {
	Address         string          `json:"address"`
	ABI             json.RawMessage `json:"abi,omitempty"`
	TransactionHash string          `json:"transactionHash,omitempty"`
	Receipt         *Receipt        `json:"receipt,omitempty"`
	Args            []any           `json:"args,omitempty"`
	Bytecode        string          `json:"bytecode,omitempty"`
	Deterministic   bool            `json:"deterministic,omitempty"`
}

// Receipt is the subset of the mined deployment transaction receipt kept in the artifact
type Receipt struct {
	From            string  `json:"from,omitempty"`
	To              string  `json:"to,omitempty"`
	ContractAddress string  `json:"contractAddress,omitempty"`
	TransactionHash string  `json:"transactionHash,omitempty"`
	BlockHash       string  `json:"blockHash,omitempty"`
	BlockNumber     *uint64 `json:"blockNumber"`
	GasUsed         uint64  `json:"gasUsed,omitempty"`
	Status          uint64  `json:"status"`
}
