package core

// Model is a reference to an ML artifact: its content-address (SHA-256 hex)
// and an opaque swarm locator that can resolve to the artifact bytes.
// Identity is ModelHash alone.
type Model struct {
	ModelHash  string `json:"model_hash"`
	MagnetLink string `json:"magnet_link"`
}

func (m Model) canonicalMap() map[string]interface{} {
	return map[string]interface{}{
		"model_hash":  m.ModelHash,
		"magnet_link": m.MagnetLink,
	}
}

// Equal compares two model references by hash.
func (m Model) Equal(other Model) bool {
	return m.ModelHash == other.ModelHash
}
