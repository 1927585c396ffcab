package core

import (
	"context"
	"sync"

	"sotamoon-network/pkg/logging"
)

var minerLog = logging.With("miner")

// Miner holds the mining identity, a reference to the chain and provider,
// a benchmark registry, and the mempool of unconfirmed signed
// transactions. It owns at most one live MineTask at a time.
type Miner struct {
	wallet   *OpenedWallet
	chain    *Chain
	provider ContentProvider
	factory  BenchmarkFactory

	mu      sync.Mutex
	mempool []SignedTransaction
	task    *MineTask
}

// NewMiner wires a mining identity to a chain and provider.
func NewMiner(wallet *OpenedWallet, chain *Chain, provider ContentProvider) *Miner {
	return &Miner{wallet: wallet, chain: chain, provider: provider}
}

// Mempool returns a copy of the currently pending signed transactions.
func (m *Miner) Mempool() []SignedTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SignedTransaction, len(m.mempool))
	copy(out, m.mempool)
	return out
}

// AddNewTransaction validates and appends tx to the mempool. It is
// idempotent: if an equal transaction is already pending, it returns
// true without appending a duplicate.
func (m *Miner) AddNewTransaction(tx SignedTransaction) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.mempool {
		if existing.Equal(tx) {
			return true
		}
	}

	if !tx.Transaction.Valid() {
		return false
	}
	if !tx.Verify() {
		return false
	}
	if m.unconfirmedBalanceLocked(tx.Transaction.Sender) < tx.Transaction.Value+tx.Transaction.Gas {
		return false
	}

	m.mempool = append(m.mempool, tx)
	return true
}

// UnconfirmedBalance is the chain-projected balance for wallet minus the
// value+gas of every pending mempool transaction where wallet is the
// sender.
func (m *Miner) UnconfirmedBalance(wallet Wallet) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unconfirmedBalanceLocked(wallet)
}

func (m *Miner) unconfirmedBalanceLocked(wallet Wallet) float64 {
	balance := m.chain.Balance(wallet)
	for _, stx := range m.mempool {
		if stx.Transaction.Sender.Equal(wallet) {
			balance -= stx.Transaction.Value + stx.Transaction.Gas
		}
	}
	return balance
}

// Mine cancels any in-flight MineTask and spawns a new one targeting
// lastBenchmarkBlock's proof, finalising a new block onto lastBlock on
// success. onFatal is forwarded from the caller's worker-fatal recovery
// policy (surfaced to the user, process interrupt, or similar).
func (m *Miner) Mine(ctx context.Context, lastBlock, lastBenchmarkBlock Block, onFinalised func(Block), onFatal WorkerFatalHandler) {
	m.mu.Lock()
	oldTask := m.task
	m.mu.Unlock()

	// Stop blocks until the superseded task's run goroutine has actually
	// exited, so its callback can never fire concurrently with the new
	// task below. It must not be called with m.mu held: the old task's
	// own callback (finalise) needs m.mu to complete and unblock run.
	if oldTask != nil {
		oldTask.Stop()
	}

	task := NewMineTask(m.provider, m.factory)
	m.mu.Lock()
	m.task = task
	m.mu.Unlock()

	task.Start(ctx, lastBenchmarkBlock.Proof, func(proof Proof) {
		m.finalise(ctx, lastBlock, proof, onFinalised)
	}, onFatal)
}

// finalise packages the current mempool as the new block's transactions,
// stamps previous_hash, sets the produced proof, clears the mempool, and
// appends the block to the chain. It runs on the MineTask worker
// goroutine, since MineTask invokes onComplete synchronously there; the
// mempool and chain serialise access through their own mutexes.
func (m *Miner) finalise(ctx context.Context, lastBlock Block, proof Proof, onFinalised func(Block)) {
	m.mu.Lock()
	pending := make([]SignedTransaction, len(m.mempool))
	copy(pending, m.mempool)
	m.mu.Unlock()

	lastHash, err := lastBlock.Hash()
	if err != nil {
		minerLog.WithError(err).Error("finalise: hash previous block")
		return
	}

	block := NewBlock(pending, lastHash, m.wallet.Wallet, proof)
	if !m.chain.AddBlock(ctx, block) {
		minerLog.Warn("finalise: chain rejected newly mined block")
		return
	}

	m.mu.Lock()
	m.mempool = nil
	m.task = nil
	m.mu.Unlock()

	if onFinalised != nil {
		onFinalised(block)
	}
}
