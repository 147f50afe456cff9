package dns

import (
	"errors"

	"github.com/mr-tron/base58"

	"github.com/paras-lehana/dns-chain/internal/solana"
	dErrors "github.com/paras-lehana/dns-chain/pkg/domain-errors"
)

// domainSeedTag is the fixed first seed of every domain account derivation.
// It matches the seed constant compiled into the on-chain program.
const domainSeedTag = "domain"

func encodeAuthority(b []byte) string {
	return base58.Encode(b)
}

// Deriver computes deterministic storage addresses for domain names against a
// fixed program. Pure and stateless: the same name always yields the same
// address, which is recomputed on every request rather than stored.
type Deriver struct {
	program solana.PublicKey
}

// NewDeriver builds a Deriver for the given program.
func NewDeriver(program solana.PublicKey) *Deriver {
	return &Deriver{program: program}
}

// Program returns the program the deriver targets.
func (d *Deriver) Program() solana.PublicKey {
	return d.program
}

// Derive returns the domain account address and bump for a name. Names use
// the caller's exact bytes: no case folding, trimming, or punycode. A name
// longer than the maximum seed length cannot be addressed at all and fails
// with name_too_long.
func (d *Deriver) Derive(name string) (solana.PublicKey, uint8, error) {
	key, bump, err := solana.FindProgramAddress(
		[][]byte{[]byte(domainSeedTag), []byte(name)},
		d.program,
	)
	if err != nil {
		if errors.Is(err, solana.ErrSeedTooLong) {
			return solana.PublicKey{}, 0, dErrors.New(dErrors.CodeNameTooLong, "name exceeds maximum seed length")
		}
		return solana.PublicKey{}, 0, err
	}
	return key, bump, nil
}
