package swap

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"measwap/pkg/tokenacct"
)

// DerivedAddress pairs a seed with the address it derives to under the
// swap program. Derivation is deterministic: identical inputs always yield
// identical addresses, which downstream caching relies on for its keys.
type DerivedAddress struct {
	Seed    string
	Address solana.PublicKey
}

// Addresses holds the program-derived sub-accounts of one swap service
// instance. Pure function of the program ID; recompute when it changes.
type Addresses struct {
	ProgramID solana.PublicKey

	State          solana.PublicKey
	VaultAuthority solana.PublicKey
	Treasury       solana.PublicKey
}

// NewAddresses derives the state, vault and treasury addresses for the
// given swap program.
func NewAddresses(programID solana.PublicKey) (*Addresses, error) {
	a := &Addresses{ProgramID: programID}

	for _, d := range []struct {
		seed []byte
		dst  *solana.PublicKey
	}{
		{SeedState, &a.State},
		{SeedVault, &a.VaultAuthority},
		{SeedTreasury, &a.Treasury},
	} {
		addr, _, err := solana.FindProgramAddress([][]byte{d.seed}, programID)
		if err != nil {
			return nil, fmt.Errorf("failed to derive %q address: %w", d.seed, err)
		}
		*d.dst = addr
	}

	return a, nil
}

// Derive returns the derived address for one of the fixed seeds
// ("state", "vault", "treasury").
func (a *Addresses) Derive(seed string) (DerivedAddress, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(seed)}, a.ProgramID)
	if err != nil {
		return DerivedAddress{}, fmt.Errorf("failed to derive %q address: %w", seed, err)
	}
	return DerivedAddress{Seed: seed, Address: addr}, nil
}

// AssociatedTokenAddress derives the per-mint token account of an owner
// under the given token-account scheme. Token-2022 accounts live at a
// different address than legacy accounts for the same (owner, mint) pair
// because the token program is part of the seeds.
func AssociatedTokenAddress(owner, mint solana.PublicKey, kind tokenacct.ProgramKind) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{owner.Bytes(), kind.ID().Bytes(), mint.Bytes()},
		AssociatedTokenProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated token address: %w", err)
	}
	return addr, nil
}

// VaultTokenAccount returns the vault's token account for the given mint.
func (a *Addresses) VaultTokenAccount(mint solana.PublicKey, kind tokenacct.ProgramKind) (solana.PublicKey, error) {
	return AssociatedTokenAddress(a.VaultAuthority, mint, kind)
}

// TreasuryTokenAccount returns the treasury's token account for the given mint.
func (a *Addresses) TreasuryTokenAccount(mint solana.PublicKey, kind tokenacct.ProgramKind) (solana.PublicKey, error) {
	return AssociatedTokenAddress(a.Treasury, mint, kind)
}
