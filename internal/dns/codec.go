package dns

import (
	"crypto/sha256"
	"encoding/binary"
	"time"
	"unicode/utf8"

	dErrors "github.com/paras-lehana/dns-chain/pkg/domain-errors"
)

// registerInstruction names the on-chain registration handler. The instruction
// discriminator is the first 8 bytes of sha256 over this constant; it must
// match the deployed program byte for byte or every submission is rejected as
// a protocol mismatch.
const registerInstruction = "global:register_request"

// accountDiscriminatorLen is the fixed tag the program writes at the start of
// every record account.
const accountDiscriminatorLen = 8

var registerDiscriminator = func() [8]byte {
	sum := sha256.Sum256([]byte(registerInstruction))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}()

// RegisterDiscriminator returns the 8-byte tag identifying the registration
// instruction. Identical for every call.
func RegisterDiscriminator() [8]byte {
	return registerDiscriminator
}

// EncodeRegister produces the instruction payload:
//
//	discriminator(8) || u32le(len(name)) || name || u32le(len(target)) || target
func EncodeRegister(name, target string) []byte {
	buf := make([]byte, 0, accountDiscriminatorLen+4+len(name)+4+len(target))
	buf = append(buf, registerDiscriminator[:]...)
	buf = appendString(buf, name)
	buf = appendString(buf, target)
	return buf
}

func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

// DecodeRecord parses a raw account buffer into a Record. The first 8 bytes
// are the program's record-type discriminator and are skipped, then two
// length-prefixed UTF-8 strings follow (name, target). Accounts written by
// current program versions carry the 32-byte authority and an i64 unix
// timestamp after the strings; both are surfaced when present.
func DecodeRecord(data []byte) (Record, error) {
	if len(data) < accountDiscriminatorLen {
		return Record{}, dErrors.New(dErrors.CodeMalformedRecord, "account data shorter than discriminator")
	}
	rest := data[accountDiscriminatorLen:]

	name, rest, err := readString(rest)
	if err != nil {
		return Record{}, err
	}
	target, rest, err := readString(rest)
	if err != nil {
		return Record{}, err
	}

	rec := Record{Name: name, Target: target}
	if len(rest) >= 32+8 {
		rec.Authority = encodeAuthority(rest[:32])
		createdAt := int64(binary.LittleEndian.Uint64(rest[32:40]))
		if createdAt > 0 {
			rec.CreatedAt = time.Unix(createdAt, 0).UTC()
		}
	}
	return rec, nil
}

func readString(buf []byte) (string, []byte, error) {
	if len(buf) < 4 {
		return "", nil, dErrors.New(dErrors.CodeMalformedRecord, "truncated length prefix")
	}
	n := binary.LittleEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint64(n) > uint64(len(buf)) {
		return "", nil, dErrors.New(dErrors.CodeMalformedRecord, "declared length exceeds buffer")
	}
	s := buf[:n]
	if !utf8.Valid(s) {
		return "", nil, dErrors.New(dErrors.CodeMalformedRecord, "field is not valid UTF-8")
	}
	return string(s), buf[n:], nil
}
