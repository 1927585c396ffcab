package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/andybalholm/brotli"

	"sotamoon-network/pkg/logging"
	"sotamoon-network/pkg/sotaerr"
)

var chainLog = logging.With("chain")

// Chain is the ordered, append-only sequence of blocks plus the
// provider used to resolve and distribute the model artifacts its proofs
// reference. Mutation is serialised through mu so concurrent add/resolve
// calls from the I/O loop never interleave.
type Chain struct {
	mu       sync.Mutex
	blocks   []Block
	provider ContentProvider
	factory  BenchmarkFactory
}

// NewGenesisChain constructs a chain seeded with the fixed genesis block:
// a pre-agreed model hash, the recorded baseline completion,
// previous_hash "0", and the supplied miner wallet.
func NewGenesisChain(miner Wallet, provider ContentProvider) *Chain {
	genesis := NewGenesisBlock(miner, "")
	return &Chain{blocks: []Block{genesis}, provider: provider}
}

// Blocks returns a copy of the chain's block slice.
func (c *Chain) Blocks() []Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// Len returns the number of blocks in the chain.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.blocks)
}

// LastBlock returns the chain's current tip.
func (c *Chain) LastBlock() Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks[len(c.blocks)-1]
}

// LastBenchmarkBlock returns the most recent block scored against
// benchmarkID — the proof a new MineTask must beat.
func (c *Chain) LastBenchmarkBlock(benchmarkID string) (Block, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.blocks) - 1; i >= 0; i-- {
		if c.blocks[i].Proof.BenchmarkID == benchmarkID {
			return c.blocks[i], true
		}
	}
	return Block{}, false
}

// AddBlock appends block iff it extends the current tip and verifies.
func (c *Chain) AddBlock(ctx context.Context, block Block) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addBlockLocked(ctx, block)
}

func (c *Chain) addBlockLocked(ctx context.Context, block Block) bool {
	last := c.blocks[len(c.blocks)-1]
	lastHash, err := last.Hash()
	if err != nil {
		chainLog.WithError(err).Error("hash last block")
		return false
	}
	if block.PreviousHash != lastHash {
		return false
	}
	if !c.verifyBlockLocked(ctx, block, last) {
		return false
	}
	c.blocks = append(c.blocks, block)
	return true
}

// VerifyBlock checks a block's proof in isolation, without requiring it
// to extend the current tip (used by ValidateChain to re-check every
// block including out of position ones during candidate-chain review).
func (c *Chain) VerifyBlock(ctx context.Context, block Block, previous Block) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verifyBlockLocked(ctx, block, previous)
}

func (c *Chain) verifyBlockLocked(ctx context.Context, block Block, previous Block) bool {
	if !block.Proof.Valid() {
		return false
	}
	if block.Proof.BenchmarkID == previous.Proof.BenchmarkID && block.Proof.Completion <= previous.Proof.Completion {
		return false
	}

	path, ok := c.provider.Path(ctx, block.Proof.Model.ModelHash, block.Proof.Model.MagnetLink, false)
	if !ok {
		chainLog.WithField("hash", block.Proof.Model.ModelHash).Warn("verify block: model artifact miss")
		return false
	}
	model, ok := ConstructModel(path)
	if !ok {
		chainLog.WithField("path", path).Warn("verify block: unrecognised model artifact suffix")
		return false
	}
	benchmark, err := c.factory.Create(block.Proof.BenchmarkID)
	if err != nil {
		chainLog.WithError(err).Warn("verify block: unknown benchmark")
		return false
	}
	score, err := benchmark.Evaluate(ctx, model)
	if err != nil {
		chainLog.WithError(err).Warn("verify block: evaluation failed")
		return false
	}
	return roundTo4(score) == block.Proof.Completion
}

// Balance projects wallet's balance across every block: +MiningReward for
// every block it mined, and per transaction +/-value between
// sender/recipient and +/-gas between sender and miner.
func (c *Chain) Balance(wallet Wallet) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balanceLocked(wallet, len(c.blocks))
}

func (c *Chain) balanceLocked(wallet Wallet, upTo int) float64 {
	var total float64
	for i := 0; i < upTo && i < len(c.blocks); i++ {
		b := c.blocks[i]
		if b.MinerWallet.Equal(wallet) {
			total += MiningReward
		}
		for _, stx := range b.Transactions {
			tx := stx.Transaction
			if tx.Sender.Equal(wallet) {
				total -= tx.Value
				total -= tx.Gas
			}
			if tx.Recipient.Equal(wallet) {
				total += tx.Value
			}
			if b.MinerWallet.Equal(wallet) {
				total += tx.Gas
			}
		}
	}
	return total
}

// ValidateChain re-runs every non-genesis block's verification, every
// transaction's signature, and rebuilds the balance map block by block,
// failing the moment any projected balance goes negative.
func (c *Chain) ValidateChain(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validateChainLocked(ctx)
}

func (c *Chain) validateChainLocked(ctx context.Context) bool {
	if len(c.blocks) == 0 {
		return false
	}
	balances := map[string]float64{}
	apply := func(delta map[string]float64) bool {
		for id, d := range delta {
			balances[id] += d
			if balances[id] < 0 {
				return false
			}
		}
		return true
	}

	for i, b := range c.blocks {
		if i == 0 {
			if !b.Proof.Valid() {
				return false
			}
		} else {
			prevHash, err := c.blocks[i-1].Hash()
			if err != nil || b.PreviousHash != prevHash {
				return false
			}
			if !c.verifyBlockLocked(ctx, b, c.blocks[i-1]) {
				return false
			}
		}
		delta := map[string]float64{b.MinerWallet.Identity(): MiningReward}
		for _, stx := range b.Transactions {
			if !stx.Verify() {
				return false
			}
			tx := stx.Transaction
			delta[tx.Sender.Identity()] -= tx.Value + tx.Gas
			delta[tx.Recipient.Identity()] += tx.Value
			delta[b.MinerWallet.Identity()] += tx.Gas
		}
		if !apply(delta) {
			return false
		}
	}
	return true
}

// snapshot is the wire shape for a whole-chain transfer (CHAIN protocol
// message payload resolves to this after magnet-link fetch).
type snapshot struct {
	Blocks []json.RawMessage `json:"blocks"`
}

// MagnetLink serialises the chain's blocks to JSON, compresses it with
// Brotli, writes it via the provider, and returns the resulting magnet
// link for gossip.
func (c *Chain) MagnetLink(ctx context.Context) (string, error) {
	c.mu.Lock()
	raw, err := c.marshalSnapshotLocked()
	c.mu.Unlock()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return "", fmt.Errorf("chain: compress snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("chain: close compressor: %w", err)
	}

	hash, ok := c.provider.Write("chain.snapshot.br", buf.Bytes())
	if !ok {
		return "", sotaerr.New(sotaerr.ResourceMiss, "chain: write snapshot", nil)
	}
	link, ok := c.provider.Distribute(ctx, hash)
	if !ok {
		return "", sotaerr.New(sotaerr.ResourceMiss, "chain: distribute snapshot", nil)
	}
	return link, nil
}

func (c *Chain) marshalSnapshotLocked() ([]byte, error) {
	raw := make([]json.RawMessage, len(c.blocks))
	for i, b := range c.blocks {
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("chain: marshal block %d: %w", i, err)
		}
		raw[i] = encoded
	}
	return json.Marshal(snapshot{Blocks: raw})
}

// ResolveConflict applies longest-valid-chain fork choice: the candidate
// snapshot at link is fetched, decompressed, and swapped in iff it is
// strictly longer than the local chain and validates.
func (c *Chain) ResolveConflict(ctx context.Context, link string) (bool, error) {
	path, ok := c.provider.Path(ctx, "", link, true)
	if !ok {
		return false, sotaerr.New(sotaerr.ResourceMiss, "chain: resolve conflict: fetch snapshot", nil)
	}
	compressed, err := readAll(path)
	if err != nil {
		return false, fmt.Errorf("chain: resolve conflict: read snapshot: %w", err)
	}

	r := brotli.NewReader(bytes.NewReader(compressed))
	raw, err := io.ReadAll(r)
	if err != nil {
		return false, fmt.Errorf("chain: resolve conflict: decompress: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return false, fmt.Errorf("chain: resolve conflict: decode snapshot: %w", err)
	}
	candidateBlocks := make([]Block, 0, len(snap.Blocks))
	for _, rawBlock := range snap.Blocks {
		b, err := BlockFromMap(rawBlock)
		if err != nil {
			return false, fmt.Errorf("chain: resolve conflict: decode block: %w", err)
		}
		candidateBlocks = append(candidateBlocks, b)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(candidateBlocks) <= len(c.blocks) {
		return false, nil
	}
	candidate := &Chain{blocks: candidateBlocks, provider: c.provider}
	if !candidate.validateChainLocked(ctx) {
		return false, nil
	}
	c.blocks = candidateBlocks
	return true, nil
}
