// Package network implements sotamoon-network's peer-discovery
// aggregation and the datagram gossip protocol peers use to reconcile
// forks, mempools, and node lists.
package network

import (
	"github.com/google/uuid"
)

// MessageType names one of the six message kinds the protocol exchanges.
// Values are uppercase on the wire.
type MessageType string

const (
	Handshake MessageType = "HANDSHAKE"
	Nodes     MessageType = "NODES"
	ChainMsg  MessageType = "CHAIN"
	AddTx     MessageType = "ADD_TX"
	Tx        MessageType = "TX"
	Ping      MessageType = "PING"
)

// Message identifies one exchange: a fresh uuid on the initiating side,
// echoed back by the peer so the initiator can tell request from
// response by id membership in its own sent-id set.
type Message struct {
	ID   string      `json:"id"`
	Type MessageType `json:"type"`
}

// NewMessage mints a fresh request/response envelope identifier.
func NewMessage(t MessageType) Message {
	return Message{ID: uuid.NewString(), Type: t}
}

// Envelope is the wire shape every datagram carries: an identified,
// typed message plus its payload.
type Envelope struct {
	Message Message         `json:"message"`
	Payload interface{}     `json:"payload"`
}
