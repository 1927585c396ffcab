package provider

import (
	"context"

	"sotamoon-network/core"
	"sotamoon-network/pkg/logging"
)

var swarmLog = logging.With("swarm_provider")

// canonicalTrackers is the single fixed tracker list every SwarmProvider
// announces against, so two nodes distributing the same bytes produce the
// same magnet BTIH.
var canonicalTrackers = []string{"udp://tracker.openbittorrent.com:6969/announce"}

// SwarmSession is the narrow, out-of-scope external collaborator: a
// BitTorrent-like download/seed layer. This module never implements
// libtorrent-equivalent machinery itself; it only drives this contract
// the way Chain/Miner/MineTask expect a content-addressed provider to
// behave.
type SwarmSession interface {
	// FetchByHash blocks (observing ctx) until link's metadata and full
	// content are available locally, then returns the resulting path.
	FetchByHash(ctx context.Context, link string) (path string, err error)
	// Seed publishes the file at path under the given trackers and
	// returns a magnet URI resolvable back to it. Seeding must be
	// idempotent for the same path.
	Seed(ctx context.Context, path string, trackers []string) (magnetLink string, err error)
	// ConnectedPeers reports the swarm's currently connected peer
	// addresses, surfaced through SwarmProvider.Nodes. No NodeSource wraps
	// a provider, so these peers do not enter Tracker's discovery sweep.
	ConnectedPeers() []core.Node
}

// SwarmProvider is the swarm half of the content-addressed store: it
// resolves artifacts via magnet link and distributes newly produced
// artifacts by seeding them.
type SwarmProvider struct {
	session SwarmSession
}

// NewSwarmProvider wraps session behind the Provider contract.
func NewSwarmProvider(session SwarmSession) *SwarmProvider {
	return &SwarmProvider{session: session}
}

// Path fetches hash via link through the swarm session, then — unless
// skipCheck is set — rehashes the result to confirm it matches hash. A
// chain snapshot fetched with an unknown hash sets skipCheck so the
// returned path is trusted without verification.
func (p *SwarmProvider) Path(ctx context.Context, hash, link string, skipCheck bool) (string, bool) {
	if link == "" {
		return "", false
	}
	path, err := p.session.FetchByHash(ctx, link)
	if err != nil {
		swarmLog.WithError(err).WithField("hash", hash).Warn("fetch by hash failed")
		return "", false
	}
	if skipCheck {
		return path, true
	}
	got, err := hashFile(path)
	if err != nil || got != hash {
		swarmLog.WithField("hash", hash).WithField("got", got).Warn("fetched artifact hash mismatch")
		return "", false
	}
	return path, true
}

// Distribute always reports a miss: a SwarmProvider holds no local file
// for hash, so it has nothing to seed from a hash alone. Seeding goes
// through DistributePath, which JointProvider.Distribute calls once
// FileProvider has located the bytes locally.
func (p *SwarmProvider) Distribute(ctx context.Context, hash string) (string, bool) {
	return p.distributePath(ctx, hash, "")
}

// DistributePath seeds a specific local path, used when the caller (the
// JointProvider) already knows the file location and only needs a magnet
// link for it.
func (p *SwarmProvider) DistributePath(ctx context.Context, path string) (string, bool) {
	return p.distributePath(ctx, "", path)
}

func (p *SwarmProvider) distributePath(ctx context.Context, hash, path string) (string, bool) {
	if path == "" {
		return "", false
	}
	link, err := p.session.Seed(ctx, path, canonicalTrackers)
	if err != nil {
		swarmLog.WithError(err).WithField("hash", hash).Warn("seed failed")
		return "", false
	}
	return link, true
}

// Write is not meaningful for a swarm: it never originates file content,
// only distributes artifacts the file provider already holds.
func (p *SwarmProvider) Write(_ string, _ []byte) (string, bool) {
	return "", false
}

// Copy is likewise not meaningful for a swarm provider.
func (p *SwarmProvider) Copy(_ string) (string, bool) {
	return "", false
}

// Nodes reports the swarm session's currently connected peers.
func (p *SwarmProvider) Nodes(_ int) core.NodeSet {
	return core.NewNodeSet(p.session.ConnectedPeers()...)
}
