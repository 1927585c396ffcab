package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// fakeProvider is a minimal in-memory-backed ContentProvider for tests: it
// never seeds anything over a swarm, it just stores artifacts under a
// temp directory keyed by hash, mirroring FileProvider's on-disk layout
// closely enough for Chain/Miner/MineTask tests that never need real
// swarm distribution.
type fakeProvider struct {
	dir string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	return &fakeProvider{dir: t.TempDir()}
}

func (p *fakeProvider) Path(_ context.Context, hash, link string, _ bool) (string, bool) {
	if hash == "" {
		// A snapshot fetched by link alone: recover the hash from the
		// link Distribute built.
		hash = strings.TrimPrefix(link, "magnet:?xt=urn:sha256:")
	}
	dir := filepath.Join(p.dir, hash)
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		return "", false
	}
	return filepath.Join(dir, entries[0].Name()), true
}

func (p *fakeProvider) Distribute(_ context.Context, hash string) (string, bool) {
	return "magnet:?xt=urn:sha256:" + hash, true
}

func (p *fakeProvider) Write(name string, content []byte) (string, bool) {
	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])
	dir := filepath.Join(p.dir, hash)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false
	}
	dest := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(dest, content, 0o644); err != nil {
		return "", false
	}
	return hash, true
}

func (p *fakeProvider) Copy(path string) (string, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return p.Write(filepath.Base(path), content)
}

func (p *fakeProvider) Nodes(_ int) NodeSet {
	return NewNodeSet()
}

// registerFakeBenchmark installs a test-only Benchmark under identifier,
// restoring the registry when the test completes. Mine reports score and
// writes a fresh artifact holding it (see scoreArtifact); Evaluate reads
// such an artifact's score back and scores any other artifact as score,
// so chain verification and mining agree.
func registerFakeBenchmark(t *testing.T, identifier string, score float64, mineErr error) {
	t.Helper()
	prev, had := knownBenchmarks[identifier]
	dir := t.TempDir()
	knownBenchmarks[identifier] = func() Benchmark {
		return &fakeBenchmark{id: identifier, score: score, mineErr: mineErr, dir: dir}
	}
	t.Cleanup(func() {
		if had {
			knownBenchmarks[identifier] = prev
		} else {
			delete(knownBenchmarks, identifier)
		}
	})
}

type fakeBenchmark struct {
	id      string
	score   float64
	mineErr error
	dir     string
}

func (b *fakeBenchmark) ID() string { return b.id }

func (b *fakeBenchmark) Mine(_ context.Context, _ float64, _ TrainableModel) (string, float64, error) {
	if b.mineErr != nil {
		return "", 0, b.mineErr
	}
	path := filepath.Join(b.dir, "mined.pt")
	if err := os.WriteFile(path, scoreArtifact(b.score), 0o644); err != nil {
		return "", 0, err
	}
	return path, b.score, nil
}

func (b *fakeBenchmark) Evaluate(_ context.Context, model TrainableModel) (float64, error) {
	if content, err := os.ReadFile(model.ModelPath()); err == nil {
		if score, err := strconv.ParseFloat(string(content), 64); err == nil {
			return score, nil
		}
	}
	return b.score, nil
}

// scoreArtifact is the content of an artifact that fakeBenchmark.Evaluate
// scores as score, whichever fake benchmark is registered at the time.
func scoreArtifact(score float64) []byte {
	return []byte(strconv.FormatFloat(score, 'f', -1, 64))
}

// writeFakeArtifact stores a minimal ".pt" artifact through provider so
// ConstructModel recognises it, returning its hash.
func writeFakeArtifact(t *testing.T, provider *fakeProvider, content []byte) string {
	t.Helper()
	hash, ok := provider.Write("model.pt", content)
	if !ok {
		t.Fatalf("writeFakeArtifact: write failed")
	}
	return hash
}
