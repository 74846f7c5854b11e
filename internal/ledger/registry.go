package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// MissingBlockNumber is written in place of a block number when an artifact carries no receipt
const MissingBlockNumber = "MISSING"

const chainNamesKey = "chainNames"

type (
	// BlockNumber is either a known deployment block or unknown. Unknown only becomes the
	// MissingBlockNumber string when serialized.
	BlockNumber struct {
		number uint64
		known  bool
	}

	// Registry maps contract name -> chain id -> V, next to a shared chain id -> network name map.
	// Keys keep insertion order in every level, which is also the order they are serialized in.
	Registry[V any] struct {
		chainNames *orderedMap[string]
		contracts  *orderedMap[*orderedMap[V]]
	}

	// Ledger holds both registries built in one pass over the artifacts
	Ledger struct {
		Addresses    *Registry[string]
		BlockNumbers *Registry[BlockNumber]
	}

	orderedMap[V any] struct {
		keys   []string
		values map[string]V
	}
)

func Known(number uint64) BlockNumber {
	return BlockNumber{number: number, known: true}
}

func Unknown() BlockNumber {
	return BlockNumber{}
}

// Value returns the block number and whether it is known
func (b BlockNumber) Value() (uint64, bool) {
	return b.number, b.known
}

func (b BlockNumber) String() string {
	if !b.known {
		return MissingBlockNumber
	}
	return strconv.FormatUint(b.number, 10)
}

func (b BlockNumber) MarshalJSON() ([]byte, error) {
	if !b.known {
		return json.Marshal(MissingBlockNumber)
	}
	return json.Marshal(b.number)
}

func (b *BlockNumber) UnmarshalJSON(data []byte) error {
	var missing string
	if err := json.Unmarshal(data, &missing); err == nil {
		if missing != MissingBlockNumber {
			return fmt.Errorf("unexpected block number '%s'", missing)
		}
		*b = Unknown()
		return nil
	}

	var number uint64
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("block number must be an integer or '%s': %w", MissingBlockNumber, err)
	}
	*b = Known(number)

	return nil
}

func newRegistry[V any](chainNames *orderedMap[string]) *Registry[V] {
	return &Registry[V]{
		chainNames: chainNames,
		contracts:  newOrderedMap[*orderedMap[V]](),
	}
}

func newLedger() *Ledger {
	chainNames := newOrderedMap[string]()
	return &Ledger{
		Addresses:    newRegistry[string](chainNames),
		BlockNumbers: newRegistry[BlockNumber](chainNames),
	}
}

func chainKey(chainID uint64) string {
	return strconv.FormatUint(chainID, 10)
}

// SetChainName records the network name for a chain id. Setting it again is a no-op for ordering.
func (r *Registry[V]) SetChainName(chainID uint64, name string) {
	r.chainNames.set(chainKey(chainID), name)
}

func (r *Registry[V]) ChainName(chainID uint64) (string, bool) {
	return r.chainNames.get(chainKey(chainID))
}

// AddContract registers a contract with an empty chain map so it is emitted even before any entry is set
func (r *Registry[V]) AddContract(contract string) {
	if _, ok := r.contracts.get(contract); !ok {
		r.contracts.set(contract, newOrderedMap[V]())
	}
}

func (r *Registry[V]) Set(contract string, chainID uint64, value V) {
	r.AddContract(contract)
	entries, _ := r.contracts.get(contract)
	entries.set(chainKey(chainID), value)
}

func (r *Registry[V]) Get(contract string, chainID uint64) (V, bool) {
	entries, ok := r.contracts.get(contract)
	if !ok {
		var zero V
		return zero, false
	}
	return entries.get(chainKey(chainID))
}

// Contracts lists contract names in insertion order
func (r *Registry[V]) Contracts() []string {
	return append([]string(nil), r.contracts.keys...)
}

// ChainIDs lists the chain ids recorded for a contract in insertion order
func (r *Registry[V]) ChainIDs(contract string) []uint64 {
	entries, ok := r.contracts.get(contract)
	if !ok {
		return nil
	}

	ids := make([]uint64, 0, len(entries.keys))
	for _, key := range entries.keys {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	if err := writeMember(&buf, chainNamesKey, r.chainNames); err != nil {
		return nil, err
	}
	for _, contract := range r.contracts.keys {
		buf.WriteByte(',')
		if err := writeMember(&buf, contract, r.contracts.values[contract]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func newOrderedMap[V any]() *orderedMap[V] {
	return &orderedMap[V]{values: make(map[string]V)}
}

func (m *orderedMap[V]) set(key string, value V) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *orderedMap[V]) get(key string) (V, bool) {
	value, ok := m.values[key]
	return value, ok
}

func (m *orderedMap[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, key, m.values[key]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, value any) error {
	encodedKey, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("failed to marshal key '%s': %w", key, err)
	}

	encodedValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value of '%s': %w", key, err)
	}

	buf.Write(encodedKey)
	buf.WriteByte(':')
	buf.Write(encodedValue)

	return nil
}
