package core

// Genesis and protocol constants, fixed so every node derives the same
// chain from the same bootstrap inputs.
const (
	// MiningReward is credited to a block's miner wallet on every block,
	// genesis included.
	MiningReward = 50.0

	// MaxStringLength bounds every free-text field hashed into an entity
	// (transaction message, proof citation/license/message).
	MaxStringLength = 1024

	// GenesisModelHash is the SHA-256 of the pre-agreed bootstrap model
	// artifact all chains are seeded with.
	GenesisModelHash = "18ed48295aa46270de8d4bb6974599becfd3f8c6cc5efb4d62956ae364992628"

	// GenesisCompletion is the recorded baseline score for the genesis
	// benchmark (MNIST accuracy, as a percentage).
	GenesisCompletion = 94.24

	// GenesisBenchmarkID names the benchmark the genesis proof was scored
	// against.
	GenesisBenchmarkID = "mnist"

	// GenesisPreviousHash is the fixed previous-hash sentinel for the
	// first block in any chain.
	GenesisPreviousHash = "0"
)
