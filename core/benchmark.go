package core

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// TrainableModel is the narrow contract a concrete ML artifact exposes to
// a Benchmark during mining: mutate its parameters along an action vector,
// then train on the benchmark's data. The training/eval engine itself is
// an external collaborator that lives behind this interface; this module
// never implements a concrete model's internals.
type TrainableModel interface {
	// ModelPath is the on-disk artifact backing this model instance.
	ModelPath() string
	// Mutate nudges the model's parameters along a fixed-dimension action
	// vector before the next training pass.
	Mutate(action []float64) error
}

// modelConstructors maps an artifact's file suffix to the concrete model
// kind that can load it. Unrecognised suffixes yield no model and the
// caller must abort mining.
var modelConstructors = map[string]func(path string) TrainableModel{
	".pt":  func(path string) TrainableModel { return &torchModel{path: path} },
	".pth": func(path string) TrainableModel { return &torchModel{path: path} },
}

// torchModel is the Go-side stand-in for the external PyTorch-backed
// model that ".pt"/".pth" artifacts dispatch to. Its actual
// training/mutation behaviour is driven entirely by the Benchmark
// collaborator; this type only carries the artifact path.
type torchModel struct {
	path string
}

func (m *torchModel) ModelPath() string { return m.path }

func (m *torchModel) Mutate(action []float64) error {
	return nil
}

// ConstructModel builds a concrete TrainableModel for an artifact path
// based on its file suffix, or returns (nil, false) for an unrecognised
// suffix — the MineTask's step 2 abort condition.
func ConstructModel(path string) (TrainableModel, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	ctor, ok := modelConstructors[ext]
	if !ok {
		return nil, false
	}
	return ctor(path), true
}

// Benchmark is the external collaborator that drives the outer
// reinforcement-learning loop: mutate the candidate model along a fixed
// action space, train it, evaluate it, and report back the first artifact
// that exceeds the prior completion.
type Benchmark interface {
	// ID is the benchmark registry identifier (e.g. "mnist").
	ID() string
	// Mine runs the outer RL loop until a mutated-and-trained model
	// evaluates strictly above previousCompletion, returning the
	// resulting artifact path and its score.
	Mine(ctx context.Context, previousCompletion float64, model TrainableModel) (artifactPath string, score float64, err error)
	// Evaluate re-scores model against this benchmark's held-out data,
	// the re-evaluation Chain.VerifyBlock compares against a proof's
	// recorded completion.
	Evaluate(ctx context.Context, model TrainableModel) (score float64, err error)
}

// ActionSpaceDimension is the fixed dimensionality of the
// parameter-mutation action space.
const ActionSpaceDimension = 10

// knownBenchmarks is the benchmark registry Proof.Valid checks
// benchmark_id against, and BenchmarkFactory.Create dispatches on.
var knownBenchmarks = map[string]func() Benchmark{
	GenesisBenchmarkID: func() Benchmark { return &mnistBenchmark{} },
}

// IsKnownBenchmark reports whether identifier names a registered
// benchmark.
func IsKnownBenchmark(identifier string) bool {
	_, ok := knownBenchmarks[identifier]
	return ok
}

// BenchmarkFactory constructs a Benchmark by registry identifier, so new
// benchmarks register themselves without the miner needing to know
// concrete types.
type BenchmarkFactory struct{}

// Create looks up identifier in the benchmark registry.
func (BenchmarkFactory) Create(identifier string) (Benchmark, error) {
	ctor, ok := knownBenchmarks[identifier]
	if !ok {
		return nil, fmt.Errorf("benchmark: unknown identifier %q", identifier)
	}
	return ctor(), nil
}

// mnistBenchmark is the registry's single concrete benchmark. Its Mine
// implementation is a narrow-contract stand-in for the real RL-driven
// training loop, which is out of scope here; it is wired only so the
// mining pipeline above it — MineTask, Miner, Chain — has a real,
// testable collaborator to call.
type mnistBenchmark struct{}

func (mnistBenchmark) ID() string { return GenesisBenchmarkID }

func (mnistBenchmark) Mine(ctx context.Context, previousCompletion float64, model TrainableModel) (string, float64, error) {
	select {
	case <-ctx.Done():
		return "", 0, ctx.Err()
	default:
	}
	if err := model.Mutate(make([]float64, ActionSpaceDimension)); err != nil {
		return "", 0, fmt.Errorf("mnist benchmark: mutate: %w", err)
	}
	return model.ModelPath(), previousCompletion, fmt.Errorf("mnist benchmark: no narrow-contract training engine configured")
}

func (mnistBenchmark) Evaluate(ctx context.Context, model TrainableModel) (float64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}
	return 0, fmt.Errorf("mnist benchmark: no narrow-contract evaluation engine configured for %s", model.ModelPath())
}
