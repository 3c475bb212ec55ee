package swap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"measwap/pkg/tokenacct"
)

func TestNewAddressesIsDeterministic(t *testing.T) {
	a, err := NewAddresses(SwapProgramID)
	require.NoError(t, err)
	b, err := NewAddresses(SwapProgramID)
	require.NoError(t, err)

	require.Equal(t, a.State, b.State)
	require.Equal(t, a.VaultAuthority, b.VaultAuthority)
	require.Equal(t, a.Treasury, b.Treasury)
}

func TestNewAddressesSeedsAreDistinct(t *testing.T) {
	a, err := NewAddresses(SwapProgramID)
	require.NoError(t, err)

	require.NotEqual(t, a.State, a.VaultAuthority)
	require.NotEqual(t, a.State, a.Treasury)
	require.NotEqual(t, a.VaultAuthority, a.Treasury)
}

func TestNewAddressesDependOnProgram(t *testing.T) {
	mainnet, err := NewAddresses(SwapProgramID)
	require.NoError(t, err)
	devnet, err := NewAddresses(SwapProgramIDDevnet)
	require.NoError(t, err)

	require.NotEqual(t, mainnet.State, devnet.State)
	require.NotEqual(t, mainnet.VaultAuthority, devnet.VaultAuthority)
	require.NotEqual(t, mainnet.Treasury, devnet.Treasury)
}

func TestDeriveMatchesNewAddresses(t *testing.T) {
	a, err := NewAddresses(SwapProgramID)
	require.NoError(t, err)

	state, err := a.Derive("state")
	require.NoError(t, err)
	require.Equal(t, "state", state.Seed)
	require.Equal(t, a.State, state.Address)

	vault, err := a.Derive("vault")
	require.NoError(t, err)
	require.Equal(t, a.VaultAuthority, vault.Address)

	treasury, err := a.Derive("treasury")
	require.NoError(t, err)
	require.Equal(t, a.Treasury, treasury.Address)
}

func TestAssociatedTokenAddressVariesBySchemeAndMint(t *testing.T) {
	a, err := NewAddresses(SwapProgramID)
	require.NoError(t, err)

	stdAcct, err := AssociatedTokenAddress(a.VaultAuthority, StandardMint, tokenacct.ProgramStandard)
	require.NoError(t, err)
	extAcct, err := AssociatedTokenAddress(a.VaultAuthority, ExtendedMint, tokenacct.ProgramExtended)
	require.NoError(t, err)
	require.NotEqual(t, stdAcct, extAcct)

	// Same mint under the other token program derives elsewhere too.
	crossAcct, err := AssociatedTokenAddress(a.VaultAuthority, StandardMint, tokenacct.ProgramExtended)
	require.NoError(t, err)
	require.NotEqual(t, stdAcct, crossAcct)

	// Determinism.
	again, err := AssociatedTokenAddress(a.VaultAuthority, StandardMint, tokenacct.ProgramStandard)
	require.NoError(t, err)
	require.Equal(t, stdAcct, again)
}

func TestVaultAndTreasuryTokenAccountsDiffer(t *testing.T) {
	a, err := NewAddresses(SwapProgramID)
	require.NoError(t, err)

	vault, err := a.VaultTokenAccount(StandardMint, tokenacct.ProgramStandard)
	require.NoError(t, err)
	treasury, err := a.TreasuryTokenAccount(StandardMint, tokenacct.ProgramStandard)
	require.NoError(t, err)
	require.NotEqual(t, vault, treasury)
}
