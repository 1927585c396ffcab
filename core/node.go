package core

import "fmt"

// Node is a discoverable peer address. Canonical order for hashing is
// address then port, matching the rest of this package's sorted-key JSON
// convention.
type Node struct {
	Address   string `json:"address"`
	Port      int    `json:"port"`
	Bluetooth bool   `json:"bluetooth"`
}

func (n Node) canonicalMap() map[string]interface{} {
	return map[string]interface{}{
		"address": n.Address,
		"port":    n.Port,
	}
}

// Key is a stable map/set key for a node, ignoring the Bluetooth flag so a
// node discovered over both transports collapses to one entry.
func (n Node) Key() string {
	return fmt.Sprintf("%s:%d", n.Address, n.Port)
}

// NodeSet is a simple set of Node keyed by Node.Key.
type NodeSet map[string]Node

// NewNodeSet builds a NodeSet from a slice of nodes.
func NewNodeSet(nodes ...Node) NodeSet {
	s := make(NodeSet, len(nodes))
	for _, n := range nodes {
		s[n.Key()] = n
	}
	return s
}

// Add inserts n into the set.
func (s NodeSet) Add(n Node) { s[n.Key()] = n }

// Union returns a new set containing every node from s and other.
func (s NodeSet) Union(other NodeSet) NodeSet {
	out := make(NodeSet, len(s)+len(other))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Slice returns the set's members in no particular order.
func (s NodeSet) Slice() []Node {
	out := make([]Node, 0, len(s))
	for _, n := range s {
		out = append(out, n)
	}
	return out
}

// Broadcastable returns the subset of nodes not marked as Bluetooth-only,
// the filter the Protocol's NODES response applies.
func (s NodeSet) Broadcastable() []Node {
	out := make([]Node, 0, len(s))
	for _, n := range s {
		if !n.Bluetooth {
			out = append(out, n)
		}
	}
	return out
}
