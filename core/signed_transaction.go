package core

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// SignedTransaction pairs a Transaction with a signature over its
// canonical bytes, verifiable against the transaction's sender identity.
type SignedTransaction struct {
	Transaction Transaction `json:"transaction"`
	Signature   []byte      `json:"signature"`
}

// signedTransactionWire is the wire shape for SignedTransaction's JSON
// encoding: the signature hex encoded, matching Wallet's identity encoding
// and canonicalMap's hexEncode(st.Signature) rather than Go's default
// base64 []byte encoding.
type signedTransactionWire struct {
	Transaction Transaction `json:"transaction"`
	Signature   string      `json:"signature"`
}

func (st SignedTransaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(signedTransactionWire{
		Transaction: st.Transaction,
		Signature:   hex.EncodeToString(st.Signature),
	})
}

func (st *SignedTransaction) UnmarshalJSON(data []byte) error {
	var w signedTransactionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("signed transaction decode: %w", err)
	}
	sig, err := hex.DecodeString(w.Signature)
	if err != nil {
		return fmt.Errorf("signed transaction decode signature: %w", err)
	}
	st.Transaction = w.Transaction
	st.Signature = sig
	return nil
}

// Verify checks the signature against the transaction's canonical bytes
// under the sender's public key.
func (st SignedTransaction) Verify() bool {
	msg, err := st.Transaction.CanonicalBytes()
	if err != nil {
		return false
	}
	return st.Transaction.Sender.Verify(msg, st.Signature)
}

// Sign produces a SignedTransaction by having wallet sign tx's canonical
// bytes. wallet need not equal tx.Sender; callers are expected to pass the
// sender's own opened wallet.
func Sign(wallet *OpenedWallet, tx Transaction) (SignedTransaction, error) {
	msg, err := tx.CanonicalBytes()
	if err != nil {
		return SignedTransaction{}, fmt.Errorf("sign transaction: %w", err)
	}
	return SignedTransaction{Transaction: tx, Signature: wallet.Sign(msg)}, nil
}

func (st SignedTransaction) canonicalMap() map[string]interface{} {
	return map[string]interface{}{
		"transaction": st.Transaction.canonicalMap(),
		"signature":   hexEncode(st.Signature),
	}
}

// Equal compares two signed transactions by transaction equality and raw
// signature bytes.
func (st SignedTransaction) Equal(other SignedTransaction) bool {
	if !st.Transaction.Equal(other.Transaction) {
		return false
	}
	if len(st.Signature) != len(other.Signature) {
		return false
	}
	for i := range st.Signature {
		if st.Signature[i] != other.Signature[i] {
			return false
		}
	}
	return true
}
