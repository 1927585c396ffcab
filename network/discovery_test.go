package network

import (
	"context"
	"errors"
	"testing"

	"sotamoon-network/core"
)

func TestStaticSourceReportsConfiguredAddresses(t *testing.T) {
	s := StaticSource{Addresses: []string{"10.0.0.1", "10.0.0.2"}}
	set := s.Nodes(context.Background(), 9000)

	if len(set) != 2 {
		t.Fatalf("node count=%d want 2", len(set))
	}
	for _, addr := range s.Addresses {
		if _, ok := set[core.Node{Address: addr, Port: 9000}.Key()]; !ok {
			t.Fatalf("expected node for address %s", addr)
		}
	}
}

type fakeDNSResolver struct {
	hosts map[string][]string
	err   error
}

func (r *fakeDNSResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.hosts[host], nil
}

func TestDNSSourceResolvesSeeds(t *testing.T) {
	resolver := &fakeDNSResolver{hosts: map[string][]string{
		"seed1.example.com": {"1.2.3.4"},
		"seed2.example.com": {"5.6.7.8", "9.10.11.12"},
	}}
	s := DNSSource{Seeds: []string{"seed1.example.com", "seed2.example.com"}, Resolver: resolver}

	set := s.Nodes(context.Background(), 8080)
	if len(set) != 3 {
		t.Fatalf("node count=%d want 3", len(set))
	}
}

func TestDNSSourceSkipsFailedLookups(t *testing.T) {
	resolver := &fakeDNSResolver{err: errors.New("lookup failed")}
	s := DNSSource{Seeds: []string{"seed1.example.com"}, Resolver: resolver}

	set := s.Nodes(context.Background(), 8080)
	if len(set) != 0 {
		t.Fatalf("node count=%d want 0 when every lookup fails", len(set))
	}
}

func TestBluetoothSourceAlwaysEmpty(t *testing.T) {
	s := BluetoothSource{}
	if set := s.Nodes(context.Background(), 1234); len(set) != 0 {
		t.Fatalf("expected empty set, got %d nodes", len(set))
	}
}

func TestRandomSourceRespectsCount(t *testing.T) {
	s := RandomSource{Count: 7}
	set := s.Nodes(context.Background(), 1234)
	if len(set) != 7 {
		t.Fatalf("node count=%d want 7", len(set))
	}
}

func TestRandomSourceDefaultsWhenCountUnset(t *testing.T) {
	s := RandomSource{}
	set := s.Nodes(context.Background(), 1234)
	if len(set) != 5 {
		t.Fatalf("node count=%d want default 5", len(set))
	}
}
