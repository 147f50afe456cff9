// Package solana implements the small slice of the Solana wire protocol this
// gateway needs: base58 public keys, program-derived addresses, and legacy
// transaction serialization with ed25519 signing.
//
// The byte formats here must match the remote cluster exactly. Any drift in
// hashing inputs, field order, or length encoding produces addresses or
// transactions the cluster silently rejects, so the formats are pinned by
// tests against known solana-web3.js vectors.
package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const (
	// PublicKeyLength is the byte length of an ed25519 public key.
	PublicKeyLength = 32

	// MaxSeedLength is the maximum byte length of a single derivation seed.
	MaxSeedLength = 32

	// MaxSeeds is the maximum number of seeds in one derivation.
	MaxSeeds = 16
)

// pdaMarker is appended to the hash input so derived addresses can never
// collide with addresses hashed by other protocols.
var pdaMarker = []byte("ProgramDerivedAddress")

// ErrSeedTooLong reports a seed above MaxSeedLength.
var ErrSeedTooLong = errors.New("max seed length exceeded")

// ErrNoViableBump reports that no bump in [0,255] produced an off-curve
// address. Statistically this never happens; callers treat it as fatal.
var ErrNoViableBump = errors.New("unable to find a viable program address bump")

// PublicKey is a 32-byte account address.
type PublicKey [PublicKeyLength]byte

// SystemProgramID is the address of the system program, required as the third
// account of every account-creating instruction.
var SystemProgramID = PublicKey{} // base58 "11111111111111111111111111111111"

// ParsePublicKey decodes a base58-encoded address.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	b, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("decode public key: %w", err)
	}
	if len(b) != PublicKeyLength {
		return pk, fmt.Errorf("public key must be %d bytes, got %d", PublicKeyLength, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// String returns the base58 encoding of the key.
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// Bytes returns the raw key bytes.
func (pk PublicKey) Bytes() []byte {
	return pk[:]
}

// IsOnCurve reports whether the key decodes to a valid ed25519 curve point.
// Program-derived addresses must be off-curve so no private key can exist for
// them.
func (pk PublicKey) IsOnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(pk[:])
	return err == nil
}

// CreateProgramAddress derives the address for the given seeds and bump-less
// seed list. It fails when the candidate lands on the curve; callers normally
// go through FindProgramAddress instead.
func CreateProgramAddress(seeds [][]byte, program PublicKey) (PublicKey, error) {
	var pk PublicKey
	if len(seeds) > MaxSeeds {
		return pk, fmt.Errorf("max seed count exceeded: %d > %d", len(seeds), MaxSeeds)
	}
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return pk, ErrSeedTooLong
		}
		h.Write(seed)
	}
	h.Write(program[:])
	h.Write(pdaMarker)
	copy(pk[:], h.Sum(nil))

	if pk.IsOnCurve() {
		return PublicKey{}, errors.New("invalid seeds: candidate address is on the curve")
	}
	return pk, nil
}

// FindProgramAddress searches bump seeds from 255 downward for the first
// off-curve derivation. The result is deterministic for fixed inputs: the same
// seeds and program always yield the same address and bump.
func FindProgramAddress(seeds [][]byte, program PublicKey) (PublicKey, uint8, error) {
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return PublicKey{}, 0, ErrSeedTooLong
		}
	}
	for bump := 255; bump >= 0; bump-- {
		candidate, err := CreateProgramAddress(append(seeds, []byte{byte(bump)}), program)
		if err == nil {
			return candidate, uint8(bump), nil
		}
	}
	return PublicKey{}, 0, ErrNoViableBump
}
