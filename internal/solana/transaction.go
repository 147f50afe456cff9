package solana

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

// Blockhash is a recent block hash anchoring a transaction to the chain tip.
type Blockhash [32]byte

// ParseBlockhash decodes a base58-encoded blockhash.
func ParseBlockhash(s string) (Blockhash, error) {
	var bh Blockhash
	b, err := base58.Decode(s)
	if err != nil {
		return bh, fmt.Errorf("decode blockhash: %w", err)
	}
	if len(b) != len(bh) {
		return bh, fmt.Errorf("blockhash must be %d bytes, got %d", len(bh), len(b))
	}
	copy(bh[:], b)
	return bh, nil
}

// AccountMeta describes how an instruction touches one account.
type AccountMeta struct {
	PublicKey  PublicKey
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single program invocation.
type Instruction struct {
	ProgramID PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// Transaction is a legacy-format transaction carrying one or more
// instructions. This gateway only ever builds single-instruction transactions.
type Transaction struct {
	feePayer        PublicKey
	recentBlockhash Blockhash
	instructions    []Instruction
}

// NewTransaction builds an unsigned transaction.
func NewTransaction(feePayer PublicKey, recent Blockhash, instructions ...Instruction) *Transaction {
	return &Transaction{
		feePayer:        feePayer,
		recentBlockhash: recent,
		instructions:    instructions,
	}
}

type compiledKey struct {
	key        PublicKey
	isSigner   bool
	isWritable bool
}

// compileKeys produces the canonical account ordering: fee payer first, then
// remaining writable signers, readonly signers, writable non-signers, and
// readonly non-signers. Duplicate references merge their flags.
func (tx *Transaction) compileKeys() []compiledKey {
	merged := []compiledKey{{key: tx.feePayer, isSigner: true, isWritable: true}}
	index := map[PublicKey]int{tx.feePayer: 0}

	upsert := func(key PublicKey, signer, writable bool) {
		if i, ok := index[key]; ok {
			merged[i].isSigner = merged[i].isSigner || signer
			merged[i].isWritable = merged[i].isWritable || writable
			return
		}
		index[key] = len(merged)
		merged = append(merged, compiledKey{key: key, isSigner: signer, isWritable: writable})
	}
	for _, ins := range tx.instructions {
		for _, meta := range ins.Accounts {
			upsert(meta.PublicKey, meta.IsSigner, meta.IsWritable)
		}
		upsert(ins.ProgramID, false, false)
	}

	rank := func(k compiledKey) int {
		switch {
		case k.key == tx.feePayer:
			return 0
		case k.isSigner && k.isWritable:
			return 1
		case k.isSigner:
			return 2
		case k.isWritable:
			return 3
		default:
			return 4
		}
	}
	// Stable insertion-order sort by rank; key sets here are tiny.
	ordered := make([]compiledKey, 0, len(merged))
	for r := 0; r <= 4; r++ {
		for _, k := range merged {
			if rank(k) == r {
				ordered = append(ordered, k)
			}
		}
	}
	return ordered
}

// Message serializes the transaction message: the bytes that get signed.
func (tx *Transaction) Message() ([]byte, error) {
	keys := tx.compileKeys()
	index := make(map[PublicKey]int, len(keys))
	var numSigners, numReadonlySigned, numReadonlyUnsigned int
	for i, k := range keys {
		index[k.key] = i
		if k.isSigner {
			numSigners++
			if !k.isWritable {
				numReadonlySigned++
			}
		} else if !k.isWritable {
			numReadonlyUnsigned++
		}
	}

	var msg []byte
	msg = append(msg, byte(numSigners), byte(numReadonlySigned), byte(numReadonlyUnsigned))
	msg = appendShortVecLen(msg, len(keys))
	for _, k := range keys {
		msg = append(msg, k.key[:]...)
	}
	msg = append(msg, tx.recentBlockhash[:]...)
	msg = appendShortVecLen(msg, len(tx.instructions))
	for _, ins := range tx.instructions {
		programIdx, ok := index[ins.ProgramID]
		if !ok {
			return nil, fmt.Errorf("program %s missing from compiled keys", ins.ProgramID)
		}
		msg = append(msg, byte(programIdx))
		msg = appendShortVecLen(msg, len(ins.Accounts))
		for _, meta := range ins.Accounts {
			idx, ok := index[meta.PublicKey]
			if !ok {
				return nil, fmt.Errorf("account %s missing from compiled keys", meta.PublicKey)
			}
			msg = append(msg, byte(idx))
		}
		msg = appendShortVecLen(msg, len(ins.Data))
		msg = append(msg, ins.Data...)
	}
	return msg, nil
}

// Sign serializes the full wire transaction signed by the fee payer's key.
// The returned signature string is the base58 transaction signature used as
// the confirmation handle.
func (tx *Transaction) Sign(priv ed25519.PrivateKey) (wire []byte, signature string, err error) {
	msg, err := tx.Message()
	if err != nil {
		return nil, "", err
	}
	sig := ed25519.Sign(priv, msg)

	wire = appendShortVecLen(nil, 1)
	wire = append(wire, sig...)
	wire = append(wire, msg...)
	return wire, base58.Encode(sig), nil
}

// appendShortVecLen appends a compact-u16 length prefix: 7 bits per byte,
// high bit marks continuation.
func appendShortVecLen(b []byte, n int) []byte {
	for {
		if n < 0x80 {
			return append(b, byte(n))
		}
		b = append(b, byte(n&0x7f)|0x80)
		n >>= 7
	}
}
