package core

import (
	"context"
	"fmt"
	"sync"

	"sotamoon-network/pkg/logging"
	"sotamoon-network/pkg/sotaerr"
)

var mineTaskLog = logging.With("mine_task")

// TaskState is a MineTask's position in its state machine:
// IDLE -> RUNNING -> {COMPLETE, CANCELLED, FAILED}.
type TaskState int

const (
	TaskIdle TaskState = iota
	TaskRunning
	TaskComplete
	TaskCancelled
	TaskFailed
)

func (s TaskState) String() string {
	switch s {
	case TaskIdle:
		return "idle"
	case TaskRunning:
		return "running"
	case TaskComplete:
		return "complete"
	case TaskCancelled:
		return "cancelled"
	case TaskFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MineTaskCallback receives the finished proof on success. It is invoked
// on the worker goroutine; callers that touch chain/mempool state must
// re-dispatch onto their own single-threaded I/O loop before acting on it
// — the worker communicates exclusively via this callback.
type MineTaskCallback func(proof Proof)

// WorkerFatalHandler is invoked when mining fails unrecoverably. It is a
// caller-supplied hook so the I/O loop decides how the failure is
// surfaced (log and exit, or just stop the affected miner).
type WorkerFatalHandler func(err error)

// MineTask is a cancellable worker that drives one benchmark.mine run
// to produce a Proof strictly improving on a prior proof's completion.
type MineTask struct {
	provider ContentProvider
	factory  BenchmarkFactory

	mu     sync.Mutex
	state  TaskState
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMineTask constructs an idle task bound to provider and the benchmark
// registry.
func NewMineTask(provider ContentProvider, factory BenchmarkFactory) *MineTask {
	return &MineTask{provider: provider, factory: factory, state: TaskIdle}
}

// State reports the task's current position in its state machine.
func (t *MineTask) State() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Start launches the mining pipeline against previous (the proof to beat)
// in its own goroutine, invoking onComplete on success and onFatal if
// mining fails unrecoverably. Only one Start may be in flight; callers
// must Stop a running task before starting another (Miner.Mine enforces
// this).
func (t *MineTask) Start(ctx context.Context, previous Proof, onComplete MineTaskCallback, onFatal WorkerFatalHandler) {
	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	t.state = TaskRunning
	t.cancel = cancel
	t.done = make(chan struct{})
	t.mu.Unlock()

	go t.run(ctx, previous, onComplete, onFatal)
}

// Stop requests cancellation of an in-flight task and blocks until run has
// actually exited, so a caller that immediately starts a replacement task
// never races the superseded one's callback against the new one's state.
// Cancellation itself is still best-effort: the benchmark collaborator is
// expected to observe ctx at coarse boundaries (between training epochs /
// RL steps), not mid-step, so join may block for one such boundary.
func (t *MineTask) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	done := t.done
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (t *MineTask) run(ctx context.Context, previous Proof, onComplete MineTaskCallback, onFatal WorkerFatalHandler) {
	defer close(t.done)

	proof, err := t.mine(ctx, previous)

	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			t.state = TaskCancelled
			mineTaskLog.WithField("benchmark_id", previous.BenchmarkID).Info("mine task cancelled")
			return
		}
		t.state = TaskFailed
		mineTaskLog.WithError(err).WithField("benchmark_id", previous.BenchmarkID).WithField("model_hash", previous.Model.ModelHash).Error("mine task failed")
		if onFatal != nil {
			onFatal(err)
		}
		return
	}

	t.state = TaskComplete
	onComplete(proof)
}

// mine runs the five-step pipeline: resolve the previous artifact,
// construct a concrete model, call the external benchmark.mine
// collaborator, hash and seed the result, and build the new Proof.
func (t *MineTask) mine(ctx context.Context, previous Proof) (Proof, error) {
	path, ok := t.provider.Path(ctx, previous.Model.ModelHash, previous.Model.MagnetLink, false)
	if !ok {
		return Proof{}, sotaerr.New(sotaerr.ResourceMiss, fmt.Sprintf("mine task: resolve previous artifact %s", previous.Model.ModelHash), nil)
	}

	model, ok := ConstructModel(path)
	if !ok {
		return Proof{}, sotaerr.New(sotaerr.Validation, fmt.Sprintf("mine task: unrecognised model artifact suffix for %s", path), nil)
	}

	benchmark, err := t.factory.Create(previous.BenchmarkID)
	if err != nil {
		return Proof{}, sotaerr.New(sotaerr.Validation, "mine task: resolve benchmark", err)
	}

	artifactPath, score, err := benchmark.Mine(ctx, previous.Completion, model)
	if err != nil {
		return Proof{}, sotaerr.New(sotaerr.WorkerFatal, "mine task: benchmark.mine", err)
	}

	content, err := readAll(artifactPath)
	if err != nil {
		return Proof{}, sotaerr.New(sotaerr.WorkerFatal, "mine task: read mined artifact", err)
	}
	hash, ok := t.provider.Write(artifactPath, content)
	if !ok {
		return Proof{}, sotaerr.New(sotaerr.ResourceMiss, "mine task: store mined artifact", nil)
	}
	link, ok := t.provider.Distribute(ctx, hash)
	if !ok {
		return Proof{}, sotaerr.New(sotaerr.ResourceMiss, "mine task: seed mined artifact", nil)
	}

	return NewProof(score, previous.BenchmarkID, "", "", "", Model{ModelHash: hash, MagnetLink: link}), nil
}
