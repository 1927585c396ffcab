package network

import (
	"context"
	"fmt"
	"net"
	"time"

	"sotamoon-network/core"
	"sotamoon-network/pkg/logging"
	"sotamoon-network/pkg/sotaerr"
)

var trackerLog = logging.With("tracker")

// StandardPort is the default SOTAMoon UDP listening port.
const StandardPort = 29636

// discoveryInterval is how often Tracker re-unions its node sources.
const discoveryInterval = 60 * time.Second

// Tracker owns the discovery sources, the connected-node registry, and
// the listening datagram endpoint.
type Tracker struct {
	port     int
	sources  []NodeSource
	nodes    *TrackerNodes
	protocol *Protocol
	chain    *core.Chain
	miner    *core.Miner

	conn *net.UDPConn
}

// NewTracker wires a Tracker to its discovery sources and the chain/miner
// a Protocol dispatches against. port defaults to StandardPort when zero.
func NewTracker(port int, sources []NodeSource, chain *core.Chain, miner *core.Miner) *Tracker {
	if port == 0 {
		port = StandardPort
	}
	nodes := NewTrackerNodes()
	return &Tracker{
		port:    port,
		sources: sources,
		nodes:   nodes,
		chain:   chain,
		miner:   miner,
	}
}

// Serve binds the UDP listening socket on 0.0.0.0:<port> and starts the
// periodic discovery sweep. It blocks reading datagrams until ctx is
// cancelled.
func (t *Tracker) Serve(ctx context.Context) error {
	addr := &net.UDPAddr{IP: net.IPv4zero, Port: t.port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("tracker: listen udp: %w", err)
	}
	t.conn = conn
	defer conn.Close()

	t.protocol = NewProtocol(t.chain, t.miner, t.nodes, conn)

	go t.discoveryLoop(ctx)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 64*1024)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			trackerLog.WithError(err).Warn("transport error reading datagram")
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		go t.handleDatagram(ctx, data, addr)
	}
}

func (t *Tracker) handleDatagram(ctx context.Context, data []byte, addr *net.UDPAddr) {
	node := core.Node{Address: addr.IP.String(), Port: addr.Port}
	if !t.nodes.HasNode(node) {
		t.nodes.AddNode(node)
	}
	if err := t.protocol.HandleDatagram(ctx, data, addr); err != nil {
		// Decode failures are logged inside HandleDatagram already;
		// a failed exchange drops the originating node from the
		// registry, not the whole tracker loop.
		t.nodes.RemoveNode(node)
		return
	}
}

// discoveryLoop unions every registered NodeSource's candidates on a
// fixed interval and connects to any not already known.
func (t *Tracker) discoveryLoop(ctx context.Context) {
	ticker := time.NewTicker(discoveryInterval)
	defer ticker.Stop()

	t.checkNewNodes(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.checkNewNodes(ctx)
		}
	}
}

func (t *Tracker) checkNewNodes(ctx context.Context) {
	candidates := core.NewNodeSet()
	for _, source := range t.sources {
		candidates = candidates.Union(source.Nodes(ctx, t.port))
	}
	for _, n := range candidates.Slice() {
		if t.nodes.HasNode(n) {
			continue
		}
		t.connect(n)
	}
}

// connect dials a discovered node. Bluetooth-transport nodes would use an
// RFCOMM stream, but BluetoothSource never reports any candidates, so
// every reachable node here is a UDP peer. A real RFCOMM-backed connect
// would plug in here by dispatching on n.Bluetooth.
func (t *Tracker) connect(n core.Node) {
	udpAddr := &net.UDPAddr{IP: net.ParseIP(n.Address), Port: n.Port}
	if udpAddr.IP == nil {
		trackerLog.WithField("address", n.Address).Warn("connect: unparseable address")
		return
	}
	if t.nodes.HasNode(n) {
		return
	}
	t.nodes.AddNode(n)
	if err := t.protocol.SendRequest(udpAddr, Handshake, handshakePayload{Version: protocolVersion}); err != nil {
		wrapped := sotaerr.New(sotaerr.Transport, "connect: send handshake", err)
		trackerLog.WithError(wrapped).WithField("address", n.Address).Warn("transport error connecting to node")
		t.nodes.RemoveNode(n)
	}
}

// Disconnect removes a node from the registry on connection loss.
func (t *Tracker) Disconnect(n core.Node) {
	t.nodes.RemoveNode(n)
}

// Nodes exposes the connection registry for tests and introspection.
func (t *Tracker) Nodes() *TrackerNodes { return t.nodes }
