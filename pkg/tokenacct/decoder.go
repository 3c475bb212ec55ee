package tokenacct

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// SPL token account layout constants. Both the legacy token program and
// Token-2022 share the base 165-byte account layout; extensions are
// appended after it.
const (
	AccountDataSize = 165

	MintOffset   = 0
	OwnerOffset  = 32
	AmountOffset = 64
)

var (
	TokenProgramID     = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
)

// ProgramKind selects which token-account scheme owns an account.
type ProgramKind uint8

const (
	ProgramStandard ProgramKind = iota // legacy SPL token program
	ProgramExtended                    // Token-2022
)

func (k ProgramKind) ID() solana.PublicKey {
	if k == ProgramExtended {
		return Token2022ProgramID
	}
	return TokenProgramID
}

func (k ProgramKind) String() string {
	if k == ProgramExtended {
		return "token-2022"
	}
	return "token"
}

// Record is an immutable snapshot of a decoded token account. RawAmount is
// the integer amount at the mint's native precision; all arithmetic happens
// on it, never on a formatted string.
type Record struct {
	AccountID solana.PublicKey
	Mint      solana.PublicKey
	Wallet    solana.PublicKey
	RawAmount uint64
	Decimals  uint8
}

// Decode parses a raw token account buffer. The owning program tag decides
// whether the buffer is recognized at all: accounts owned by anything other
// than the two token programs, and buffers shorter than the base layout,
// yield (nil, false). Absent accounts are a normal state, not an error.
func Decode(accountID, owner solana.PublicKey, data []byte) (*Record, bool) {
	if !owner.Equals(TokenProgramID) && !owner.Equals(Token2022ProgramID) {
		return nil, false
	}
	if len(data) < AccountDataSize {
		return nil, false
	}

	rec := &Record{
		AccountID: accountID,
		Mint:      solana.PublicKeyFromBytes(data[MintOffset : MintOffset+32]),
		Wallet:    solana.PublicKeyFromBytes(data[OwnerOffset : OwnerOffset+32]),
		RawAmount: binary.LittleEndian.Uint64(data[AmountOffset : AmountOffset+8]),
		Decimals:  6,
	}
	return rec, true
}

// FormatAmount renders a raw 6-decimal amount for display with 4 fractional
// digits, e.g. 1234560000 -> "1234.5600". Lossy, display only.
func FormatAmount(raw uint64) string {
	whole := raw / 1_000_000
	frac := (raw % 1_000_000) / 100
	return fmt.Sprintf("%d.%04d", whole, frac)
}

// Display returns the record's balance formatted for display.
func (r *Record) Display() string {
	return FormatAmount(r.RawAmount)
}
