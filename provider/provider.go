// Package provider implements sotamoon-network's content-addressed
// storage layer: hash-to-path lookup, write, copy-in, and swarm
// distribution, composed behind a single dispatching façade.
package provider

import (
	"context"

	"sotamoon-network/core"
)

// Provider is the capability set every concrete and composed
// content-addressed store exposes.
type Provider interface {
	// Path resolves hash to a local filesystem path whose SHA-256 equals
	// hash, fetching via link if the artifact is not already local. It
	// returns ("", false) on a miss. If skipCheck is true, the returned
	// path's hash need not equal the requested hash (used for snapshot
	// artifacts whose hash is not known up front).
	Path(ctx context.Context, hash, link string, skipCheck bool) (path string, ok bool)

	// Distribute seeds the artifact at the given hash through the swarm
	// and returns a magnet link resolvable back to it. Idempotent:
	// repeated calls for the same hash return the same link.
	Distribute(ctx context.Context, hash string) (link string, ok bool)

	// Write computes the SHA-256 of content, stores it under name, and
	// returns the hash.
	Write(name string, content []byte) (hash string, ok bool)

	// Copy rehashes the file at path and copies it into the provider's
	// own storage, returning the new path.
	Copy(path string) (newPath string, ok bool)

	// Nodes reports peers this provider is aware of for the given
	// advertised port — the swarm provider reports its connected peers.
	Nodes(port int) core.NodeSet
}
