package network

import (
	"sync"

	"sotamoon-network/core"
)

// TrackerNodes is the registry of currently connected peers, mutated only
// from the Tracker's connection-lifecycle handlers.
type TrackerNodes struct {
	mu    sync.Mutex
	nodes core.NodeSet
}

// NewTrackerNodes builds an empty registry.
func NewTrackerNodes() *TrackerNodes {
	return &TrackerNodes{nodes: core.NewNodeSet()}
}

// HasNode reports whether n is already connected, so duplicate
// connections to a known node can be refused.
func (t *TrackerNodes) HasNode(n core.Node) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.nodes[n.Key()]
	return ok
}

// AddNode registers a newly connected peer.
func (t *TrackerNodes) AddNode(n core.Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nodes.Add(n)
}

// RemoveNode drops a peer on connection loss.
func (t *TrackerNodes) RemoveNode(n core.Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.nodes, n.Key())
}

// BroadcastableNodes returns every connected node not marked as a
// Bluetooth-only transport — the set the NODES response reports.
func (t *TrackerNodes) BroadcastableNodes() []core.Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nodes.Broadcastable()
}

// All returns every connected node regardless of transport.
func (t *TrackerNodes) All() []core.Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nodes.Slice()
}
