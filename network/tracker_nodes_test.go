package network

import (
	"testing"

	"sotamoon-network/core"
)

func TestTrackerNodesAddHasRemove(t *testing.T) {
	nodes := NewTrackerNodes()
	n := core.Node{Address: "10.0.0.1", Port: 9000}

	if nodes.HasNode(n) {
		t.Fatalf("expected fresh registry to not contain node")
	}

	nodes.AddNode(n)
	if !nodes.HasNode(n) {
		t.Fatalf("expected node to be present after AddNode")
	}

	nodes.RemoveNode(n)
	if nodes.HasNode(n) {
		t.Fatalf("expected node to be absent after RemoveNode")
	}
}

func TestBroadcastableNodesExcludesBluetoothOnly(t *testing.T) {
	nodes := NewTrackerNodes()
	nodes.AddNode(core.Node{Address: "10.0.0.1", Port: 9000})
	nodes.AddNode(core.Node{Address: "10.0.0.2", Port: 9000, Bluetooth: true})

	broadcastable := nodes.BroadcastableNodes()
	if len(broadcastable) != 1 {
		t.Fatalf("broadcastable count=%d want 1", len(broadcastable))
	}
	if broadcastable[0].Address != "10.0.0.1" {
		t.Fatalf("unexpected broadcastable node: %+v", broadcastable[0])
	}

	if got := len(nodes.All()); got != 2 {
		t.Fatalf("All() count=%d want 2", got)
	}
}
