package provider

import (
	"context"

	"sotamoon-network/core"
)

// JointProvider composes a FileProvider and a SwarmProvider behind the
// single Provider contract: Path and Distribute try the file provider
// first and fall through to the swarm provider, dispatching in order and
// returning the first non-empty result.
type JointProvider struct {
	file  *FileProvider
	swarm *SwarmProvider
}

// NewJointProvider composes file and swarm into one Provider façade.
func NewJointProvider(file *FileProvider, swarm *SwarmProvider) *JointProvider {
	return &JointProvider{file: file, swarm: swarm}
}

// Path tries the local cache first; on a miss it asks the swarm provider
// to fetch via link, then (unless skipCheck is set) copies the result into
// the local cache so a subsequent call for the same hash is served without
// the network.
func (p *JointProvider) Path(ctx context.Context, hash, link string, skipCheck bool) (string, bool) {
	if path, ok := p.file.Path(ctx, hash, link, skipCheck); ok {
		return path, ok
	}
	path, ok := p.swarm.Path(ctx, hash, link, skipCheck)
	if !ok {
		return "", false
	}
	if skipCheck {
		return path, true
	}
	// The swarm delivered the bytes under its own working directory;
	// copy them into the local cache keyed by hash for future lookups
	// and so subsequent providers see a consistent path convention.
	return p.file.Copy(path)
}

// Distribute resolves hash to a local path (the file provider must
// already hold it — distributing content no node has is not meaningful)
// and seeds it through the swarm, returning the magnet link.
func (p *JointProvider) Distribute(ctx context.Context, hash string) (string, bool) {
	path, ok := p.file.Path(ctx, hash, "", false)
	if !ok {
		return "", false
	}
	return p.swarm.DistributePath(ctx, path)
}

// Write always originates through the file provider: the swarm never
// creates content, only redistributes it.
func (p *JointProvider) Write(name string, content []byte) (string, bool) {
	return p.file.Write(name, content)
}

// Copy always originates through the file provider.
func (p *JointProvider) Copy(path string) (string, bool) {
	return p.file.Copy(path)
}

// Nodes unions both providers' reported peers.
func (p *JointProvider) Nodes(port int) core.NodeSet {
	return p.file.Nodes(port).Union(p.swarm.Nodes(port))
}
