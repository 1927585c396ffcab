package core

// Canonical serialisation for sotamoon-network entities.
//
// Every hashed or signed entity (Transaction, SignedTransaction, Proof,
// Model, Block) exposes a canonicalMap() that returns its field set as a
// map[string]interface{}. encoding/json sorts map keys alphabetically when
// marshalling, which gives every entity a sorted-key JSON object over a
// fixed field set for free — so the canonical bytes for every entity are
// produced by the same two helpers below rather than a hand-rolled key-sort.

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// canonicalEncodable is implemented by every entity with a stable,
// hashable/signable wire representation.
type canonicalEncodable interface {
	canonicalMap() map[string]interface{}
}

// canonicalBytes renders v's canonical map as sorted-key JSON.
func canonicalBytes(v canonicalEncodable) ([]byte, error) {
	b, err := json.Marshal(v.canonicalMap())
	if err != nil {
		return nil, fmt.Errorf("canonical encode: %w", err)
	}
	return b, nil
}

// hashHex returns the lowercase hex SHA-256 digest of b.
func hashHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// canonicalHash is the SHA-256 of v's canonical bytes, hex encoded. This is
// the shared implementation behind Transaction.Hash and Block.Hash.
func canonicalHash(v canonicalEncodable) (string, error) {
	b, err := canonicalBytes(v)
	if err != nil {
		return "", err
	}
	return hashHex(b), nil
}

func marshalQuoted(s string) []byte {
	b, _ := json.Marshal(s)
	return b
}

func unmarshalQuoted(data []byte) (string, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", fmt.Errorf("canonical decode: %w", err)
	}
	return s, nil
}

// hashOfBytes is the hex-encoded SHA-256 of raw bytes.
func hashOfBytes(b []byte) string {
	return hashHex(b)
}

func hexEncode(b []byte) string {
	return hex.EncodeToString(b)
}
