package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// Block is the unit the chain appends. Once appended a block is never
// mutated; its hash is the SHA-256 of its canonical field set, which
// deliberately excludes the hash itself.
type Block struct {
	Transactions []SignedTransaction `json:"transactions"`
	Timestamp    float64             `json:"timestamp"`
	PreviousHash string              `json:"previous_hash"`
	MinerWallet  Wallet              `json:"miner_wallet"`
	Proof        Proof               `json:"proof"`
}

func (b Block) canonicalMap() map[string]interface{} {
	txs := make([]interface{}, len(b.Transactions))
	for i, tx := range b.Transactions {
		txs[i] = tx.canonicalMap()
	}
	return map[string]interface{}{
		"transactions":  txs,
		"timestamp":     b.Timestamp,
		"previous_hash": b.PreviousHash,
		"miner_wallet":  b.MinerWallet.Identity(),
		"proof":         b.Proof.canonicalMap(),
	}
}

// Hash is hex(SHA256(canonical_json(block))), the block's chain-linking
// identity. No hash field is included in the hashed content.
func (b Block) Hash() (string, error) {
	return canonicalHash(b)
}

// NewBlock stamps the current time and assembles a block ready for
// appending once the chain has verified it.
func NewBlock(transactions []SignedTransaction, previousHash string, miner Wallet, proof Proof) Block {
	return Block{
		Transactions: transactions,
		Timestamp:    float64(time.Now().UnixNano()) / 1e9,
		PreviousHash: previousHash,
		MinerWallet:  miner,
		Proof:        proof,
	}
}

// NewGenesisBlock constructs the fixed bootstrap block every chain is
// seeded with: a pre-agreed model artifact hash and recorded baseline
// completion, previous_hash sentinel "0", and the supplied miner wallet.
func NewGenesisBlock(miner Wallet, genesisMagnetLink string) Block {
	model := Model{ModelHash: GenesisModelHash, MagnetLink: genesisMagnetLink}
	proof := NewProof(GenesisCompletion, GenesisBenchmarkID, "", "", "", model)
	return NewBlock(nil, GenesisPreviousHash, miner, proof)
}

// blockDict is the wire shape used by BlockFromMap, keyed the same
// way the canonical map is, so a round-tripped block hashes identically to
// the original.
type blockDict struct {
	Transactions []json.RawMessage `json:"transactions"`
	Timestamp    float64           `json:"timestamp"`
	PreviousHash string            `json:"previous_hash"`
	MinerWallet  string            `json:"miner_wallet"`
	Proof        json.RawMessage   `json:"proof"`
}

// MarshalJSON encodes a block for storage/transfer using its declared
// field names (distinct from the flattened canonicalMap used purely for
// hashing).
func (b Block) MarshalJSON() ([]byte, error) {
	type alias Block
	return json.Marshal(alias(b))
}

// BlockFromMap decodes a block from its wire JSON. Earlier implementations
// of this decode path read the proof field from the wrong map key (the
// miner_wallet key); that bug is not reproduced here — proof is always
// read from the "proof" key.
func BlockFromMap(data []byte) (Block, error) {
	var d blockDict
	if err := json.Unmarshal(data, &d); err != nil {
		return Block{}, fmt.Errorf("block decode: %w", err)
	}

	var proof Proof
	if err := json.Unmarshal(d.Proof, &proof); err != nil {
		return Block{}, fmt.Errorf("block decode proof: %w", err)
	}

	miner, err := WalletFromIdentity(d.MinerWallet)
	if err != nil {
		return Block{}, fmt.Errorf("block decode miner_wallet: %w", err)
	}

	txs := make([]SignedTransaction, 0, len(d.Transactions))
	for _, raw := range d.Transactions {
		var tx SignedTransaction
		if err := json.Unmarshal(raw, &tx); err != nil {
			return Block{}, fmt.Errorf("block decode transaction: %w", err)
		}
		txs = append(txs, tx)
	}

	return Block{
		Transactions: txs,
		Timestamp:    d.Timestamp,
		PreviousHash: d.PreviousHash,
		MinerWallet:  miner,
		Proof:        proof,
	}, nil
}
