package swap

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"measwap/pkg/anchor"
	"measwap/pkg/tokenacct"
)

func newTestBuilder(t *testing.T) (*Builder, solana.PublicKey) {
	t.Helper()
	builder, err := NewBuilder(SwapProgramID, StandardMint, ExtendedMint)
	require.NoError(t, err)
	return builder, solana.NewWallet().PublicKey()
}

func requireData(t *testing.T, inst solana.Instruction, method string, args []byte) {
	t.Helper()
	data, err := inst.Data()
	require.NoError(t, err)
	require.Equal(t, anchor.GetDiscriminator("global", method), data[:8])
	require.Equal(t, args, data[8:])
}

func TestInitializeInstruction(t *testing.T) {
	builder, signer := newTestBuilder(t)

	inst, err := builder.Initialize(signer, 20)
	require.NoError(t, err)
	require.Equal(t, SwapProgramID, inst.ProgramID())
	requireData(t, inst, "initialize", []byte{20, 0})

	accounts := inst.Accounts()
	require.Len(t, accounts, 3)
	require.Equal(t, signer, accounts[0].PublicKey)
	require.True(t, accounts[0].IsSigner)
	require.True(t, accounts[0].IsWritable)
	require.Equal(t, builder.Addrs.State, accounts[1].PublicKey)
	require.Equal(t, SystemProgramID, accounts[2].PublicKey)
}

func TestUpdateFeeInstruction(t *testing.T) {
	builder, signer := newTestBuilder(t)

	inst, err := builder.UpdateFee(signer, 300)
	require.NoError(t, err)
	requireData(t, inst, "update_fee", []byte{0x2c, 0x01}) // 300 LE

	accounts := inst.Accounts()
	require.Len(t, accounts, 2)
	require.Equal(t, signer, accounts[0].PublicKey)
	require.Equal(t, builder.Addrs.State, accounts[1].PublicKey)
}

func TestUpdateAdminInstruction(t *testing.T) {
	builder, signer := newTestBuilder(t)
	newAdmin := solana.NewWallet().PublicKey()

	inst, err := builder.UpdateAdmin(signer, newAdmin)
	require.NoError(t, err)
	requireData(t, inst, "update_admin", newAdmin.Bytes())
}

func TestWithdrawFeesInstruction(t *testing.T) {
	builder, signer := newTestBuilder(t)

	inst, err := builder.WithdrawFees(signer)
	require.NoError(t, err)
	requireData(t, inst, "withdraw_fees", []byte{})

	accounts := inst.Accounts()
	require.Len(t, accounts, 13)
	require.Equal(t, signer, accounts[0].PublicKey)
	require.Equal(t, builder.Addrs.Treasury, accounts[2].PublicKey)
	require.Equal(t, tokenacct.TokenProgramID, accounts[9].PublicKey)
	require.Equal(t, tokenacct.Token2022ProgramID, accounts[10].PublicKey)
}

func TestAddReserveInstruction(t *testing.T) {
	builder, signer := newTestBuilder(t)

	amountArgs := binary.LittleEndian.AppendUint64(nil, 500_000)

	std, err := builder.AddReserve(signer, tokenacct.ProgramStandard, 500_000)
	require.NoError(t, err)
	requireData(t, std, "add_spl_reserve", amountArgs)

	ext, err := builder.AddReserve(signer, tokenacct.ProgramExtended, 500_000)
	require.NoError(t, err)
	requireData(t, ext, "add2022_reserve", amountArgs)

	// Each side routes through its own token program and mint.
	stdAccounts := std.Accounts()
	extAccounts := ext.Accounts()
	require.Len(t, stdAccounts, 9)
	require.Equal(t, StandardMint, stdAccounts[5].PublicKey)
	require.Equal(t, tokenacct.TokenProgramID, stdAccounts[6].PublicKey)
	require.Equal(t, ExtendedMint, extAccounts[5].PublicKey)
	require.Equal(t, tokenacct.Token2022ProgramID, extAccounts[6].PublicKey)
	require.NotEqual(t, stdAccounts[2].PublicKey, extAccounts[2].PublicKey, "payer token accounts differ per mint")
}

func TestSwapInstruction(t *testing.T) {
	builder, signer := newTestBuilder(t)
	amountArgs := binary.LittleEndian.AppendUint64(nil, 1_000_000)

	fwd, err := builder.Swap(signer, DirectionStandardToExtended, 1_000_000)
	require.NoError(t, err)
	requireData(t, fwd, "swap_spl_to_spl2022", amountArgs)

	rev, err := builder.Swap(signer, DirectionExtendedToStandard, 1_000_000)
	require.NoError(t, err)
	requireData(t, rev, "swap_spl2022_to_spl", amountArgs)

	fwdAccounts := fwd.Accounts()
	revAccounts := rev.Accounts()
	require.Len(t, fwdAccounts, 15)
	require.Len(t, revAccounts, 15)

	// The payer and receiver token accounts trade places between
	// directions.
	require.Equal(t, fwdAccounts[2].PublicKey, revAccounts[8].PublicKey)
	require.Equal(t, fwdAccounts[8].PublicKey, revAccounts[2].PublicKey)

	// The fee treasury follows the pay-in mint.
	stdTreasury, err := builder.Addrs.TreasuryTokenAccount(StandardMint, tokenacct.ProgramStandard)
	require.NoError(t, err)
	extTreasury, err := builder.Addrs.TreasuryTokenAccount(ExtendedMint, tokenacct.ProgramExtended)
	require.NoError(t, err)
	require.Equal(t, stdTreasury, fwdAccounts[4].PublicKey)
	require.Equal(t, extTreasury, revAccounts[4].PublicKey)
}

func TestSwapRejectsUnknownDirection(t *testing.T) {
	builder, signer := newTestBuilder(t)
	_, err := builder.Swap(signer, Direction(9), 1000)
	require.Error(t, err)
}
