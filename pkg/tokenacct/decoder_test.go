package tokenacct

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func tokenAccountData(mint, wallet solana.PublicKey, amount uint64) []byte {
	data := make([]byte, AccountDataSize)
	copy(data[MintOffset:], mint.Bytes())
	copy(data[OwnerOffset:], wallet.Bytes())
	binary.LittleEndian.PutUint64(data[AmountOffset:], amount)
	return data
}

func TestDecode(t *testing.T) {
	accountID := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	wallet := solana.NewWallet().PublicKey()

	rec, ok := Decode(accountID, TokenProgramID, tokenAccountData(mint, wallet, 1_234_560_000))
	require.True(t, ok)
	require.Equal(t, accountID, rec.AccountID)
	require.Equal(t, mint, rec.Mint)
	require.Equal(t, wallet, rec.Wallet)
	require.Equal(t, uint64(1_234_560_000), rec.RawAmount)
	require.Equal(t, uint8(6), rec.Decimals)
}

func TestDecodeAcceptsToken2022Accounts(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	wallet := solana.NewWallet().PublicKey()

	// Token-2022 accounts may carry extension data past the base layout.
	data := append(tokenAccountData(mint, wallet, 500), make([]byte, 83)...)
	rec, ok := Decode(solana.NewWallet().PublicKey(), Token2022ProgramID, data)
	require.True(t, ok)
	require.Equal(t, uint64(500), rec.RawAmount)
}

func TestDecodeRejectsForeignOwner(t *testing.T) {
	data := tokenAccountData(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), 1)
	_, ok := Decode(solana.NewWallet().PublicKey(), solana.SystemProgramID, data)
	require.False(t, ok)
}

func TestDecodeRejectsShortData(t *testing.T) {
	_, ok := Decode(solana.NewWallet().PublicKey(), TokenProgramID, make([]byte, AccountDataSize-1))
	require.False(t, ok)
}

func TestProgramKindID(t *testing.T) {
	require.Equal(t, TokenProgramID, ProgramStandard.ID())
	require.Equal(t, Token2022ProgramID, ProgramExtended.ID())
	require.Equal(t, "token", ProgramStandard.String())
	require.Equal(t, "token-2022", ProgramExtended.String())
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		raw  uint64
		want string
	}{
		{0, "0.0000"},
		{1, "0.0000"},      // below display precision
		{100, "0.0001"},
		{999, "0.0009"},    // truncates, never rounds up
		{1_000_000, "1.0000"},
		{1_234_560_000, "1234.5600"},
		{1_234_567, "1.2345"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, FormatAmount(tt.raw), "raw=%d", tt.raw)
	}
}

func TestRecordDisplay(t *testing.T) {
	rec := &Record{RawAmount: 2_500_000}
	require.Equal(t, "2.5000", rec.Display())
}
