package network

import (
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"
)

// encodeEnvelope renders env as JSON and Snappy-compresses it, the wire
// framing every datagram uses.
func encodeEnvelope(env Envelope) ([]byte, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal envelope: %w", err)
	}
	return snappy.Encode(nil, raw), nil
}

// decodeEnvelope reverses encodeEnvelope. A failure here is a protocol
// error: the caller logs and drops the connection.
func decodeEnvelope(data []byte) (Envelope, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return Envelope{}, fmt.Errorf("codec: decompress: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("codec: unmarshal envelope: %w", err)
	}
	return env, nil
}

// decodePayload re-marshals a decoded payload (json.Unmarshal into
// interface{} yields map[string]interface{}) and unmarshals it into out,
// sparing every handler from a type-switch on raw maps.
func decodePayload(payload interface{}, out interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("codec: re-marshal payload: %w", err)
	}
	return json.Unmarshal(raw, out)
}
