package core

// Wallet identity for sotamoon-network.
//
// Identity is the ed25519 public key serialised to a stable hex string.
// An OpenedWallet additionally carries the private key and can sign a
// message. Key material is derived from a BIP-39 mnemonic via HMAC-SHA512,
// the same hardened-derivation idiom used for account key trees, collapsed
// here to a single (account=0, index=0) identity per wallet.

import (
	"crypto/ed25519"
	"crypto/hmac"
	crand "crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"

	bip39 "github.com/tyler-smith/go-bip39"

	"sotamoon-network/pkg/logging"
)

const masterHMACKey = "sotamoon wallet seed"

var walletLog = logging.With("wallet")

// Wallet is the public identity used throughout the chain: a transaction
// sender/recipient, a block's miner, or a proof's reporting party.
type Wallet struct {
	pub ed25519.PublicKey
}

// NewWallet wraps a raw 32-byte ed25519 public key as a Wallet identity.
func NewWallet(pub ed25519.PublicKey) (Wallet, error) {
	if len(pub) != ed25519.PublicKeySize {
		return Wallet{}, fmt.Errorf("wallet: public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pub))
	}
	cp := make(ed25519.PublicKey, len(pub))
	copy(cp, pub)
	return Wallet{pub: cp}, nil
}

// WalletFromIdentity parses the stable hex identity produced by Identity().
func WalletFromIdentity(identity string) (Wallet, error) {
	raw, err := hex.DecodeString(identity)
	if err != nil {
		return Wallet{}, fmt.Errorf("wallet: bad identity hex: %w", err)
	}
	return NewWallet(raw)
}

// Identity returns the stable hex serialisation that canonical entity
// encodings use for this wallet's sender/recipient/miner fields.
func (w Wallet) Identity() string {
	return hex.EncodeToString(w.pub)
}

// IsZero reports whether this Wallet was never assigned a public key.
func (w Wallet) IsZero() bool {
	return len(w.pub) == 0
}

// Equal compares two wallets by identity.
func (w Wallet) Equal(other Wallet) bool {
	return w.Identity() == other.Identity()
}

// Verify checks message against signature under this wallet's public key.
// This is the narrow signature-verification contract the chain and
// protocol layers depend on; the concrete scheme (ed25519) is an
// implementation detail behind it.
func (w Wallet) Verify(message, signature []byte) bool {
	if w.IsZero() || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(w.pub, message, signature)
}

func (w Wallet) MarshalJSON() ([]byte, error) {
	return marshalQuoted(w.Identity()), nil
}

func (w *Wallet) UnmarshalJSON(data []byte) error {
	s, err := unmarshalQuoted(data)
	if err != nil {
		return err
	}
	parsed, err := WalletFromIdentity(s)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// OpenedWallet additionally holds the private key material and can sign.
type OpenedWallet struct {
	Wallet
	priv ed25519.PrivateKey
}

// NewRandomWallet generates entropyBits (128-256, a multiple of 32) of
// randomness and returns an opened wallet plus its recovery mnemonic. The
// caller stores the mnemonic securely; Wipe clears only the wallet's
// private key, not the returned mnemonic string.
func NewRandomWallet(entropyBits int) (*OpenedWallet, string, error) {
	if entropyBits < 128 || entropyBits > 256 || entropyBits%32 != 0 {
		return nil, "", fmt.Errorf("wallet: unsupported entropy size %d", entropyBits)
	}
	entropy, err := RandomMnemonicEntropy(entropyBits)
	if err != nil {
		return nil, "", fmt.Errorf("wallet: entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, "", fmt.Errorf("wallet: mnemonic: %w", err)
	}
	w, err := WalletFromMnemonic(mnemonic, "")
	if err != nil {
		return nil, "", err
	}
	return w, mnemonic, nil
}

// WalletFromMnemonic recovers an opened wallet from a BIP-39 phrase,
// giving an opened wallet's signing identity a concrete recoverable
// backing without needing the raw private key to be stored anywhere.
func WalletFromMnemonic(mnemonic, passphrase string) (*OpenedWallet, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("wallet: invalid mnemonic checksum")
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	return newOpenedWalletFromSeed(seed)
}

func newOpenedWalletFromSeed(seed []byte) (*OpenedWallet, error) {
	if len(seed) < 16 {
		return nil, errors.New("wallet: seed too short")
	}
	h := hmac.New(sha512.New, []byte(masterHMACKey))
	h.Write(seed)
	I := h.Sum(nil)
	priv := ed25519.NewKeyFromSeed(I[:32])
	pub := priv.Public().(ed25519.PublicKey)
	w, err := NewWallet(pub)
	if err != nil {
		return nil, err
	}
	walletLog.WithField("identity", w.Identity()).Info("wallet opened")
	return &OpenedWallet{Wallet: w, priv: priv}, nil
}

// Sign produces a signature over message under this wallet's private key.
func (w *OpenedWallet) Sign(message []byte) []byte {
	return ed25519.Sign(w.priv, message)
}

// Wipe zeroes the private key in-place. Best effort: the GC may have
// already copied the backing array elsewhere.
func (w *OpenedWallet) Wipe() {
	for i := range w.priv {
		w.priv[i] = 0
	}
}

// RandomMnemonicEntropy produces cryptographically secure random entropy of
// the given number of bits. NewRandomWallet draws its entropy from it; it
// is exported for callers assembling a mnemonic themselves.
func RandomMnemonicEntropy(bits int) ([]byte, error) {
	if bits%32 != 0 {
		return nil, errors.New("wallet: entropy bits must be a multiple of 32")
	}
	b := make([]byte, bits/8)
	if _, err := crand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
