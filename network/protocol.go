package network

import (
	"context"
	"fmt"
	"net"
	"sync"

	"sotamoon-network/core"
	"sotamoon-network/pkg/logging"
	"sotamoon-network/pkg/sotaerr"
)

var protocolLog = logging.With("protocol")

const protocolVersion = "1"

// Payload shapes for the six message types.
type handshakePayload struct {
	Version string `json:"version"`
}

type nodesPayload struct {
	Addresses []core.Node `json:"addresses"`
}

type chainPayload struct {
	Link string `json:"link"`
}

type addTxPayload struct {
	Tx core.SignedTransaction `json:"tx"`
}

type addTxResultPayload struct {
	Added bool `json:"added"`
}

type txPayload struct {
	Txs []core.SignedTransaction `json:"txs"`
}

// datagramSender abstracts the transport a Protocol writes responses and
// requests onto — a *net.UDPConn in production, an in-memory fake in
// tests, or a Bluetooth RFCOMM stream.
type datagramSender interface {
	WriteTo(b []byte, addr net.Addr) (int, error)
}

// Protocol is the framed, Snappy-compressed JSON request/response
// exchange correlated by message id.
type Protocol struct {
	chain        *core.Chain
	miner        *core.Miner
	trackerNodes *TrackerNodes
	conn         datagramSender

	mu      sync.Mutex
	sentIDs map[string]net.Addr
}

// NewProtocol wires a Protocol to the node's chain, miner, connection
// registry, and outbound transport.
func NewProtocol(chain *core.Chain, miner *core.Miner, trackerNodes *TrackerNodes, conn datagramSender) *Protocol {
	return &Protocol{
		chain:        chain,
		miner:        miner,
		trackerNodes: trackerNodes,
		conn:         conn,
		sentIDs:      make(map[string]net.Addr),
	}
}

// SendRequest mints a fresh message id, records it as outstanding so the
// matching response is recognised, and writes the framed request.
func (p *Protocol) SendRequest(addr net.Addr, t MessageType, payload interface{}) error {
	msg := NewMessage(t)
	p.mu.Lock()
	p.sentIDs[msg.ID] = addr
	p.mu.Unlock()

	data, err := encodeEnvelope(Envelope{Message: msg, Payload: payload})
	if err != nil {
		return fmt.Errorf("protocol: send request: %w", err)
	}
	if _, err := p.conn.WriteTo(data, addr); err != nil {
		return fmt.Errorf("protocol: write request: %w", err)
	}
	return nil
}

// HandleDatagram decodes a single inbound datagram and dispatches it as a
// request or response depending on whether its message id is one this
// node previously sent. A decode failure is logged, and the caller is
// expected to drop the originating connection.
func (p *Protocol) HandleDatagram(ctx context.Context, data []byte, addr net.Addr) error {
	env, err := decodeEnvelope(data)
	if err != nil {
		wrapped := sotaerr.New(sotaerr.Protocol, "undecodable datagram", err)
		protocolLog.WithError(wrapped).WithField("addr", addr.String()).Warn("undecodable datagram")
		return wrapped
	}

	p.mu.Lock()
	_, isResponse := p.sentIDs[env.Message.ID]
	if isResponse {
		delete(p.sentIDs, env.Message.ID)
	}
	p.mu.Unlock()

	if isResponse {
		return p.handleResponse(ctx, env.Message, env.Payload, addr)
	}
	return p.handleRequest(ctx, env.Message, env.Payload, addr)
}

func (p *Protocol) handleRequest(ctx context.Context, msg Message, payload interface{}, addr net.Addr) error {
	var response interface{}

	switch msg.Type {
	case Handshake:
		response = handshakePayload{Version: protocolVersion}

	case Nodes:
		response = nodesPayload{Addresses: p.trackerNodes.BroadcastableNodes()}

	case ChainMsg:
		link, err := p.chain.MagnetLink(ctx)
		if err != nil {
			protocolLog.WithError(err).Warn("chain request: build magnet link")
			link = ""
		}
		response = chainPayload{Link: link}

	case AddTx:
		var in addTxPayload
		if err := decodePayload(payload, &in); err != nil {
			return fmt.Errorf("protocol: decode ADD_TX request: %w", err)
		}
		response = addTxResultPayload{Added: p.miner.AddNewTransaction(in.Tx)}

	case Tx:
		response = txPayload{Txs: p.miner.Mempool()}

	case Ping:
		response = struct{}{}

	default:
		protocolLog.WithField("type", msg.Type).Warn("unknown message type")
		return sotaerr.New(sotaerr.Protocol, fmt.Sprintf("unknown message type %q", msg.Type), nil)
	}

	data, err := encodeEnvelope(Envelope{Message: msg, Payload: response})
	if err != nil {
		return fmt.Errorf("protocol: encode response: %w", err)
	}
	if _, err := p.conn.WriteTo(data, addr); err != nil {
		return fmt.Errorf("protocol: write response: %w", err)
	}
	return nil
}

func (p *Protocol) handleResponse(ctx context.Context, msg Message, payload interface{}, addr net.Addr) error {
	switch msg.Type {
	case Nodes:
		var in nodesPayload
		if err := decodePayload(payload, &in); err != nil {
			return fmt.Errorf("protocol: decode NODES response: %w", err)
		}
		for _, n := range in.Addresses {
			p.trackerNodes.AddNode(n)
		}

	case ChainMsg:
		var in chainPayload
		if err := decodePayload(payload, &in); err != nil {
			return fmt.Errorf("protocol: decode CHAIN response: %w", err)
		}
		if in.Link != "" {
			if _, err := p.chain.ResolveConflict(ctx, in.Link); err != nil {
				protocolLog.WithError(err).WithField("addr", addr.String()).Warn("resolve conflict failed")
			}
		}

	case Tx:
		var in txPayload
		if err := decodePayload(payload, &in); err != nil {
			return fmt.Errorf("protocol: decode TX response: %w", err)
		}
		for _, tx := range in.Txs {
			p.miner.AddNewTransaction(tx)
		}

	case Handshake, Ping:
		// no follow-up action required; receipt alone confirms liveness.

	default:
		protocolLog.WithField("type", msg.Type).Warn("unknown response type")
		return fmt.Errorf("protocol: unknown response type %q", msg.Type)
	}
	return nil
}
