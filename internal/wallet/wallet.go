// Package wallet loads the gateway's signing identity from a local keypair
// file. The key is read once at startup and treated as immutable afterwards;
// a missing or malformed keypair is fatal.
package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"

	"github.com/paras-lehana/dns-chain/internal/solana"
)

// Wallet holds the signing keypair for ledger submissions.
type Wallet struct {
	priv ed25519.PrivateKey
	pub  solana.PublicKey
}

// Load reads a solana-keygen style keypair file: a JSON array of 64 bytes
// (32-byte seed followed by the 32-byte public key).
func Load(path string) (*Wallet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair file: %w", err)
	}
	return Parse(raw)
}

// Parse builds a Wallet from keypair file contents: a JSON array of byte
// values, not base64.
func Parse(raw []byte) (*Wallet, error) {
	var values []int
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parse keypair file: %w", err)
	}
	if len(values) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair must be %d bytes, got %d", ed25519.PrivateKeySize, len(values))
	}
	bytes := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("keypair byte %d out of range: %d", i, v)
		}
		bytes[i] = byte(v)
	}

	// Rederive the key from the 32-byte seed. The trailing 32 bytes of the
	// file must match the derived public key, otherwise the file is corrupt
	// and every signature would be invalid.
	priv := ed25519.NewKeyFromSeed(bytes[:32])

	var pub solana.PublicKey
	copy(pub[:], priv.Public().(ed25519.PublicKey))

	var filePub solana.PublicKey
	copy(filePub[:], bytes[32:])
	if pub != filePub {
		return nil, fmt.Errorf("keypair public key mismatch: file says %s, seed derives %s", filePub, pub)
	}

	return &Wallet{priv: priv, pub: pub}, nil
}

// PublicKey returns the wallet address.
func (w *Wallet) PublicKey() solana.PublicKey {
	return w.pub
}

// PrivateKey returns the signing key.
func (w *Wallet) PrivateKey() ed25519.PrivateKey {
	return w.priv
}
