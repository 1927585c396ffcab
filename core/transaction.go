package core

import "fmt"

// Transaction moves value (and pays gas to whichever wallet mines the
// block it lands in) from sender to recipient.
type Transaction struct {
	Sender      Wallet  `json:"sender"`
	Recipient   Wallet  `json:"recipient"`
	Value       float64 `json:"value"`
	Time        float64 `json:"time"`
	Message     string  `json:"message"`
	Gas         float64 `json:"gas"`
}

// Valid checks a transaction's invariants in isolation: sender and
// recipient differ, the message stays under MaxStringLength, and gas is
// strictly positive.
func (t Transaction) Valid() bool {
	if t.Sender.Equal(t.Recipient) {
		return false
	}
	if len(t.Message) >= MaxStringLength {
		return false
	}
	if t.Gas <= 0 {
		return false
	}
	return true
}

func (t Transaction) canonicalMap() map[string]interface{} {
	return map[string]interface{}{
		"sender":    t.Sender.Identity(),
		"recipient": t.Recipient.Identity(),
		"value":     t.Value,
		"time":      t.Time,
		"message":   t.Message,
		"gas":       t.Gas,
	}
}

// CanonicalBytes returns the sorted-key JSON bytes hashed and signed for
// this transaction.
func (t Transaction) CanonicalBytes() ([]byte, error) {
	return canonicalBytes(t)
}

// Hash is the SHA-256 hex digest of the transaction's canonical bytes.
// Sign signs the canonical bytes themselves, and mempool dedup compares
// transactions with Equal.
func (t Transaction) Hash() (string, error) {
	return canonicalHash(t)
}

// Equal compares two transactions by every field, not merely by hash, so
// a round-tripped transaction compares equal to the original.
func (t Transaction) Equal(other Transaction) bool {
	return t.Sender.Equal(other.Sender) &&
		t.Recipient.Equal(other.Recipient) &&
		t.Value == other.Value &&
		t.Time == other.Time &&
		t.Message == other.Message &&
		t.Gas == other.Gas
}

func (t Transaction) String() string {
	return fmt.Sprintf("tx(%s->%s, value=%v, gas=%v)", t.Sender.Short(), t.Recipient.Short(), t.Value, t.Gas)
}

// Short returns an abbreviated identity for log lines.
func (w Wallet) Short() string {
	id := w.Identity()
	if len(id) <= 12 {
		return id
	}
	return id[:6] + ".." + id[len(id)-6:]
}
