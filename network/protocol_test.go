package network

import (
	"context"
	"net"
	"sync"
	"testing"

	"sotamoon-network/core"
)

// fakeSender records every datagram written to it, keyed by destination,
// so a test can inspect what a handler sent back without a real socket.
type fakeSender struct {
	mu   sync.Mutex
	sent []sentDatagram
}

type sentDatagram struct {
	addr net.Addr
	data []byte
}

func (s *fakeSender) WriteTo(b []byte, addr net.Addr) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(b))
	copy(cp, b)
	s.sent = append(s.sent, sentDatagram{addr: addr, data: cp})
	return len(b), nil
}

func (s *fakeSender) last(t *testing.T) sentDatagram {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		t.Fatalf("expected at least one datagram to have been sent")
	}
	return s.sent[len(s.sent)-1]
}

type udpAddrStub struct{ id string }

func (a udpAddrStub) Network() string { return "udp" }
func (a udpAddrStub) String() string  { return a.id }

func newTestProtocol(t *testing.T) (*Protocol, *fakeSender, *core.Chain, *core.Miner) {
	t.Helper()
	miner := mustTestWallet(t)
	provider := newNetworkFakeProvider(t)
	chain := core.NewGenesisChain(miner.Wallet, provider)
	m := core.NewMiner(miner, chain, provider)
	sender := &fakeSender{}
	nodes := NewTrackerNodes()
	proto := NewProtocol(chain, m, nodes, sender)
	return proto, sender, chain, m
}

func TestHandlePingRequestRespondsWithSameID(t *testing.T) {
	proto, sender, _, _ := newTestProtocol(t)
	addr := udpAddrStub{id: "peer-1"}

	req := Envelope{Message: NewMessage(Ping), Payload: struct{}{}}
	data, err := encodeEnvelope(req)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if err := proto.HandleDatagram(context.Background(), data, addr); err != nil {
		t.Fatalf("handle datagram: %v", err)
	}

	sent := sender.last(t)
	resp, err := decodeEnvelope(sent.data)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message.ID != req.Message.ID {
		t.Fatalf("response id=%q want %q", resp.Message.ID, req.Message.ID)
	}
	if resp.Message.Type != Ping {
		t.Fatalf("response type=%q want %q", resp.Message.Type, Ping)
	}
}

func TestHandleHandshakeRequestRespondsWithVersion(t *testing.T) {
	proto, sender, _, _ := newTestProtocol(t)
	addr := udpAddrStub{id: "peer-1"}

	req := Envelope{Message: NewMessage(Handshake), Payload: struct{}{}}
	data, _ := encodeEnvelope(req)

	if err := proto.HandleDatagram(context.Background(), data, addr); err != nil {
		t.Fatalf("handle datagram: %v", err)
	}

	resp, err := decodeEnvelope(sender.last(t).data)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	var payload handshakePayload
	if err := decodePayload(resp.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Version != protocolVersion {
		t.Fatalf("version=%q want %q", payload.Version, protocolVersion)
	}
}

func TestHandleAddTxRequestAppliesToMempool(t *testing.T) {
	// The transaction's sender mines the genesis block, so it holds the
	// MiningReward the transaction spends.
	sender2 := mustTestWallet(t)
	recipient := mustTestWallet(t)
	provider := newNetworkFakeProvider(t)
	chain := core.NewGenesisChain(sender2.Wallet, provider)
	m := core.NewMiner(sender2, chain, provider)
	sender := &fakeSender{}
	proto := NewProtocol(chain, m, NewTrackerNodes(), sender)
	addr := udpAddrStub{id: "peer-1"}

	tx := core.Transaction{Sender: sender2.Wallet, Recipient: recipient.Wallet, Value: 5, Gas: 0.1}
	stx, err := core.Sign(sender2, tx)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := Envelope{Message: NewMessage(AddTx), Payload: addTxPayload{Tx: stx}}
	data, _ := encodeEnvelope(req)

	if err := proto.HandleDatagram(context.Background(), data, addr); err != nil {
		t.Fatalf("handle datagram: %v", err)
	}

	resp, err := decodeEnvelope(sender.last(t).data)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	var payload addTxResultPayload
	if err := decodePayload(resp.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !payload.Added {
		t.Fatalf("expected ADD_TX to report the transaction admitted")
	}
	if got := len(m.Mempool()); got != 1 {
		t.Fatalf("mempool len=%d want 1", got)
	}
}

func TestHandleDatagramRoutesResponseByOutstandingID(t *testing.T) {
	proto, sender, _, _ := newTestProtocol(t)
	addr := udpAddrStub{id: "peer-1"}

	if err := proto.SendRequest(addr, Nodes, struct{}{}); err != nil {
		t.Fatalf("send request: %v", err)
	}
	sentReq := sender.last(t)
	reqEnv, err := decodeEnvelope(sentReq.data)
	if err != nil {
		t.Fatalf("decode sent request: %v", err)
	}

	respEnv := Envelope{
		Message: Message{ID: reqEnv.Message.ID, Type: Nodes},
		Payload: nodesPayload{Addresses: []core.Node{{Address: "1.2.3.4", Port: 9000}}},
	}
	respData, err := encodeEnvelope(respEnv)
	if err != nil {
		t.Fatalf("encode response: %v", err)
	}

	if err := proto.HandleDatagram(context.Background(), respData, addr); err != nil {
		t.Fatalf("handle response datagram: %v", err)
	}

	proto.mu.Lock()
	_, stillOutstanding := proto.sentIDs[reqEnv.Message.ID]
	proto.mu.Unlock()
	if stillOutstanding {
		t.Fatalf("expected matched response id to be cleared from sentIDs")
	}
}

func TestHandleDatagramRejectsUndecodable(t *testing.T) {
	proto, _, _, _ := newTestProtocol(t)
	addr := udpAddrStub{id: "peer-1"}

	if err := proto.HandleDatagram(context.Background(), []byte("garbage"), addr); err == nil {
		t.Fatalf("expected error handling undecodable datagram")
	}
}
