package network

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"sotamoon-network/core"
)

func mustTestWallet(t *testing.T) *core.OpenedWallet {
	t.Helper()
	w, _, err := core.NewRandomWallet(128)
	if err != nil {
		t.Fatalf("new random wallet: %v", err)
	}
	return w
}

// networkFakeProvider is a minimal on-disk ContentProvider stand-in, just
// enough for Chain/Miner wiring in protocol tests that never resolve a
// model artifact.
type networkFakeProvider struct {
	dir string
}

func newNetworkFakeProvider(t *testing.T) *networkFakeProvider {
	t.Helper()
	return &networkFakeProvider{dir: t.TempDir()}
}

func (p *networkFakeProvider) Path(_ context.Context, hash, _ string, _ bool) (string, bool) {
	dir := filepath.Join(p.dir, hash)
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		return "", false
	}
	return filepath.Join(dir, entries[0].Name()), true
}

func (p *networkFakeProvider) Distribute(_ context.Context, hash string) (string, bool) {
	return "magnet:?xt=urn:sha256:" + hash, true
}

func (p *networkFakeProvider) Write(name string, content []byte) (string, bool) {
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

func (p *networkFakeProvider) Copy(path string) (string, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return p.Write(filepath.Base(path), content)
}

func (p *networkFakeProvider) Nodes(_ int) core.NodeSet {
	return core.NewNodeSet()
}
