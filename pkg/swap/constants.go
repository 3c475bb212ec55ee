package swap

import "github.com/gagliardetto/solana-go"

// Swap program ID (mainnet deployment)
const (
	SWAP_PROGRAM_ID        = "3kKTmWvgAUmz1jdUMJhUo2hnytJSWh3e7naTRPEN8uYu"
	SWAP_PROGRAM_ID_DEVNET = "3mztcTdP6gBtPURpNzXMApGXXxKKwU1tcF6E3xwPubtZ"
)

var (
	SwapProgramID       = solana.MustPublicKeyFromBase58(SWAP_PROGRAM_ID)
	SwapProgramIDDevnet = solana.MustPublicKeyFromBase58(SWAP_PROGRAM_ID_DEVNET)

	// The fixed-ratio pair: one legacy SPL mint, one Token-2022 mint.
	// Both are 6-decimal mints. The program pins these addresses on every
	// operation, so they must match its deployment exactly.
	StandardMint = solana.MustPublicKeyFromBase58("78cBBeErJRUVwKia3DMav2iFzEaj2KK5G3F6jLsW4umL")
	ExtendedMint = solana.MustPublicKeyFromBase58("AvVBjJboAbFJqCpHvMkECiJYs1rSEFTpQZdJAKMsyctR")

	AssociatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	SystemProgramID          = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")
)

// Program-derived address seeds
var (
	SeedState    = []byte("state")
	SeedVault    = []byte("vault")
	SeedTreasury = []byte("treasury")
)

// Fee rates are expressed in basis points, 1/100 of a percent.
const (
	MaxFeeBps = 10000

	// Mint precision. Display formatting renders 4 fractional digits.
	MintDecimals     = 6
	DisplayPrecision = 4
)
