// Package ledger provides the types and client behavior needed to read
// accounts from and submit transactions to the remote ledger.
package ledger

import (
	"context"
	"encoding/hex"

	"github.com/ardanlabs/messagefeed/feed/app/sdk/errs"
	"github.com/mr-tron/base58"
)

// PointerSize is the width of every account identity on the ledger.
const PointerSize = 32

// Pointer represents an opaque account identity. The zero value is the
// sentinel meaning "no account".
type Pointer [PointerSize]byte

// Sentinel is the all-zero pointer marking the unwritten tail of a chain.
var Sentinel Pointer

// ParsePointer converts a base58 or 64 character hex string into a pointer.
func ParsePointer(s string) (Pointer, error) {
	if b, err := base58.Decode(s); err == nil && len(b) == PointerSize {
		var p Pointer
		copy(p[:], b)
		return p, nil
	}

	if len(s) == 2*PointerSize {
		b, err := hex.DecodeString(s)
		if err == nil {
			var p Pointer
			copy(p[:], b)
			return p, nil
		}
	}

	return Pointer{}, errs.Newf(errs.MalformedAccount, "pointer %q is not base58 or 64 char hex", s)
}

// IsSentinel reports whether the pointer marks the end of a chain.
func (p Pointer) IsSentinel() bool {
	return p == Sentinel
}

// String returns the base58 rendering of the pointer.
func (p Pointer) String() string {
	return base58.Encode(p[:])
}

// Short returns a human friendly prefix of the pointer for display.
func (p Pointer) Short() string {
	s := p.String()
	if len(s) > 8 {
		s = s[:8]
	}

	return s
}

// =============================================================================

// AccountMeta declares an account an instruction touches and whether the
// transaction must carry its signature.
type AccountMeta struct {
	Pointer  Pointer
	IsSigner bool
}

// Instruction represents one unit of a transaction: a target program, an
// ordered account list, and an opaque data payload.
type Instruction struct {
	Program  Pointer
	Accounts []AccountMeta
	Data     []byte
}

// Transaction represents an ordered set of instructions the ledger applies
// all or nothing, along with the capabilities that must sign it.
type Transaction struct {
	Instructions []Instruction
	Signers      []Keypair
}

// Account represents the raw state read back for one identity.
type Account struct {
	Data  []byte
	Owner Pointer
}

// =============================================================================

// Reader defines the behavior for reading account state by identity.
type Reader interface {
	ReadAccount(ctx context.Context, ptr Pointer) (Account, error)
}

// Submitter defines the behavior for submitting a transaction and blocking
// until the ledger confirms or rejects it.
type Submitter interface {
	SubmitAndConfirm(ctx context.Context, tx Transaction) error
}

// Funder defines the behavior for obtaining a freshly funded payer
// capability able to cover the specified minimum balance.
type Funder interface {
	FundNewAccount(ctx context.Context, minimumLamports uint64) (Keypair, error)
}
