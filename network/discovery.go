package network

import (
	"context"
	"crypto/rand"
	"fmt"
	"net"
	"time"

	zeroconf "github.com/libp2p/zeroconf/v2"

	"sotamoon-network/core"
	"sotamoon-network/pkg/logging"
)

var discoveryLog = logging.With("discovery")

// NodeSource yields a set of candidate peer nodes for a given advertised
// port. Tracker unions every registered source every 60s.
type NodeSource interface {
	Nodes(ctx context.Context, port int) core.NodeSet
}

// StaticSource reports a fixed, operator-configured list of peer
// addresses — the simplest discovery transport, a preconfigured list
// rather than a pluggable one.
type StaticSource struct {
	Addresses []string
}

func (s StaticSource) Nodes(_ context.Context, port int) core.NodeSet {
	set := core.NewNodeSet()
	for _, addr := range s.Addresses {
		set.Add(core.Node{Address: addr, Port: port})
	}
	return set
}

// DNSResolver is the narrow contract DNSSource depends on, satisfied by
// *net.Resolver in production and a fake in tests.
type DNSResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// DNSSource resolves a fixed list of seed hostnames to their A records.
type DNSSource struct {
	Seeds    []string
	Resolver DNSResolver
}

// NewDNSSource wires seeds to the system resolver.
func NewDNSSource(seeds []string) DNSSource {
	return DNSSource{Seeds: seeds, Resolver: net.DefaultResolver}
}

func (s DNSSource) Nodes(ctx context.Context, port int) core.NodeSet {
	set := core.NewNodeSet()
	for _, seed := range s.Seeds {
		addrs, err := s.Resolver.LookupHost(ctx, seed)
		if err != nil {
			discoveryLog.WithError(err).WithField("seed", seed).Debug("dns seed lookup failed")
			continue
		}
		for _, addr := range addrs {
			set.Add(core.Node{Address: addr, Port: port})
		}
	}
	return set
}

// MDNSSource browses the local network for the _sotamoon._udp.local.
// service type, using the same zeroconf family libp2p's own mDNS
// discovery is built on.
type MDNSSource struct {
	ServiceType string
	BrowseFor   time.Duration
}

// NewMDNSSource defaults to the standard SOTAMoon service type and a
// short browse window suited to a 60s discovery sweep.
func NewMDNSSource() MDNSSource {
	return MDNSSource{ServiceType: "_sotamoon._udp.local.", BrowseFor: 2 * time.Second}
}

func (s MDNSSource) Nodes(ctx context.Context, _ int) core.NodeSet {
	set := core.NewNodeSet()

	browseCtx, cancel := context.WithTimeout(ctx, s.BrowseFor)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 16)
	go func() {
		for entry := range entries {
			for _, ip := range entry.AddrIPv4 {
				set.Add(core.Node{Address: ip.String(), Port: entry.Port})
			}
		}
	}()

	if err := zeroconf.Browse(browseCtx, s.ServiceType, "local.", entries); err != nil {
		discoveryLog.WithError(err).Debug("mdns browse failed")
	}
	<-browseCtx.Done()
	return set
}

// RegisterMDNS advertises this node under the SOTAMoon service type so
// peers' MDNSSource can find it.
func RegisterMDNS(instance string, port int) (*zeroconf.Server, error) {
	server, err := zeroconf.Register(instance, "_sotamoon._udp.local.", "local.", port, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns: register: %w", err)
	}
	return server, nil
}

// BluetoothSource is the Bluetooth RFCOMM discovery transport, an
// out-of-scope external collaborator. No available library exposes
// RFCOMM device scanning portably, so this always reports an empty set —
// a graceful no-op on platforms without Bluetooth support, ready to be
// backed by a real scanner where the platform provides one.
type BluetoothSource struct{}

func (BluetoothSource) Nodes(_ context.Context, _ int) core.NodeSet {
	return core.NewNodeSet()
}

// RandomSource is a local test-fixture generator producing random IPv6
// addresses, used to exercise discovery aggregation without real peers.
type RandomSource struct {
	Count int
}

func (s RandomSource) Nodes(_ context.Context, port int) core.NodeSet {
	count := s.Count
	if count <= 0 {
		count = 5
	}
	set := core.NewNodeSet()
	for i := 0; i < count; i++ {
		set.Add(core.Node{Address: randomIPv6(), Port: port})
	}
	return set
}

func randomIPv6() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "::1"
	}
	ip := net.IP(b[:])
	return ip.String()
}
