package network

import (
	"context"
	"testing"

	"sotamoon-network/core"
)

func newTestTracker(t *testing.T, sources []NodeSource) *Tracker {
	t.Helper()
	miner := mustTestWallet(t)
	provider := newNetworkFakeProvider(t)
	chain := core.NewGenesisChain(miner.Wallet, provider)
	m := core.NewMiner(miner, chain, provider)
	return NewTracker(0, sources, chain, m)
}

func TestNewTrackerDefaultsToStandardPort(t *testing.T) {
	tr := newTestTracker(t, nil)
	if tr.port != StandardPort {
		t.Fatalf("port=%d want %d", tr.port, StandardPort)
	}
}

func TestCheckNewNodesConnectsDiscoveredPeers(t *testing.T) {
	sources := []NodeSource{StaticSource{Addresses: []string{"127.0.0.1"}}}
	tr := newTestTracker(t, sources)
	tr.protocol = NewProtocol(tr.chain, tr.miner, tr.nodes, &fakeSender{})

	tr.checkNewNodes(context.Background())

	if !tr.nodes.HasNode(core.Node{Address: "127.0.0.1", Port: tr.port}) {
		t.Fatalf("expected discovered static peer to be registered")
	}
}

func TestCheckNewNodesSkipsAlreadyConnected(t *testing.T) {
	sources := []NodeSource{StaticSource{Addresses: []string{"127.0.0.1"}}}
	tr := newTestTracker(t, sources)
	sender := &fakeSender{}
	tr.protocol = NewProtocol(tr.chain, tr.miner, tr.nodes, sender)

	node := core.Node{Address: "127.0.0.1", Port: tr.port}
	tr.nodes.AddNode(node)

	tr.checkNewNodes(context.Background())

	sender.mu.Lock()
	sentCount := len(sender.sent)
	sender.mu.Unlock()
	if sentCount != 0 {
		t.Fatalf("expected no handshake sent to an already-connected node, got %d datagrams", sentCount)
	}
}

func TestDisconnectRemovesNode(t *testing.T) {
	tr := newTestTracker(t, nil)
	node := core.Node{Address: "127.0.0.1", Port: tr.port}
	tr.nodes.AddNode(node)

	tr.Disconnect(node)

	if tr.nodes.HasNode(node) {
		t.Fatalf("expected node to be removed after Disconnect")
	}
}
