package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"

	"sotamoon-network/core"
	"sotamoon-network/pkg/logging"
)

var fileLog = logging.With("file_provider")

// FileProvider is the local half of the content-addressed store: every
// artifact lives at <cache>/<hash>/<original-filename>, one subdirectory
// per hash so concurrent readers never race on a shared filename.
type FileProvider struct {
	cacheDir string
}

// NewFileProvider roots a FileProvider at cacheDir, creating it if needed.
func NewFileProvider(cacheDir string) (*FileProvider, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, err
	}
	return &FileProvider{cacheDir: cacheDir}, nil
}

// Path scans <cache>/<hash>/ for a file whose content rehashes to hash.
// The link and skipCheck parameters are accepted to satisfy the Provider
// interface but unused here: a local artifact is either present and
// verified, or it's a miss for this provider and JointProvider falls
// through to the swarm provider.
func (p *FileProvider) Path(_ context.Context, hash, _ string, _ bool) (string, bool) {
	dir := filepath.Join(p.cacheDir, hash)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		candidate := filepath.Join(dir, entry.Name())
		got, err := hashFile(candidate)
		if err != nil {
			continue
		}
		if got == hash {
			logCID(candidate, got)
			return candidate, true
		}
	}
	return "", false
}

// Distribute is a no-op: the artifact is already local, there is nothing
// to seed. JointProvider falls through to the swarm provider next.
func (p *FileProvider) Distribute(_ context.Context, _ string) (string, bool) {
	return "", false
}

// Write hashes content, creates <cache>/<hash>/, writes content under
// name, and returns the hash.
func (p *FileProvider) Write(name string, content []byte) (string, bool) {
	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])
	dir := filepath.Join(p.cacheDir, hash)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fileLog.WithError(err).Error("write: mkdir cache subdirectory")
		return "", false
	}
	dest := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(dest, content, 0o644); err != nil {
		fileLog.WithError(err).Error("write: store artifact")
		return "", false
	}
	logCID(dest, hash)
	return hash, true
}

// Copy rehashes the file at path and links it into the cache under its
// own content-address, returning the new path.
func (p *FileProvider) Copy(path string) (string, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return p.Write(filepath.Base(path), content)
}

// Nodes reports no peers: the file provider has no network presence of
// its own.
func (p *FileProvider) Nodes(_ int) core.NodeSet {
	return core.NewNodeSet()
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// logCID computes and logs a CIDv1 alongside the raw SHA-256 hash the
// chain actually verifies against, giving operators a familiar
// content-address format without changing the hash used for consensus.
func logCID(path, hash string) {
	content, err := os.ReadFile(path)
	if err != nil {
		return
	}
	encoded, err := mh.Sum(content, mh.SHA2_256, -1)
	if err != nil {
		return
	}
	c := cid.NewCidV1(cid.Raw, encoded)
	fileLog.WithField("hash", hash).WithField("cid", c.String()).Debug("resolved artifact")
}
