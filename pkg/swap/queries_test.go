package swap

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"measwap/pkg/querycache"
	"measwap/pkg/tokenacct"
)

// mapFetcher serves accounts from a map keyed by account ID and counts
// round trips.
type mapFetcher struct {
	mu       sync.Mutex
	calls    int
	accounts map[string]*querycache.Account
}

func (f *mapFetcher) GetAccounts(ctx context.Context, ids []string) ([]*querycache.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := make([]*querycache.Account, len(ids))
	for i, id := range ids {
		out[i] = f.accounts[id]
	}
	return out, nil
}

func tokenAccount(id string, wallet, mint solana.PublicKey, kind tokenacct.ProgramKind, amount uint64) *querycache.Account {
	data := make([]byte, tokenacct.AccountDataSize)
	copy(data[tokenacct.MintOffset:], mint.Bytes())
	copy(data[tokenacct.OwnerOffset:], wallet.Bytes())
	binary.LittleEndian.PutUint64(data[tokenacct.AmountOffset:], amount)
	return &querycache.Account{ID: id, Owner: kind.ID(), Data: data}
}

func newTestQueries(t *testing.T, fetcher *mapFetcher) *Queries {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	builder, err := NewBuilder(SwapProgramID, StandardMint, ExtendedMint)
	require.NoError(t, err)
	return NewQueries(querycache.New(ctx, fetcher), builder)
}

func TestStateUninitialized(t *testing.T) {
	fetcher := &mapFetcher{accounts: map[string]*querycache.Account{}}
	queries := newTestQueries(t, fetcher)

	state, err := queries.State(context.Background())
	require.NoError(t, err)
	require.Nil(t, state, "missing state account means uninitialized, not an error")
}

func TestStateDecodes(t *testing.T) {
	fetcher := &mapFetcher{accounts: map[string]*querycache.Account{}}
	queries := newTestQueries(t, fetcher)

	admin := solana.NewWallet().PublicKey()
	stateID := queries.Builder.Addrs.State.String()
	fetcher.accounts[stateID] = &querycache.Account{
		ID:    stateID,
		Owner: SwapProgramID,
		Data:  encodeState(t, true, admin, 25),
	}

	state, err := queries.State(context.Background())
	require.NoError(t, err)
	require.NotNil(t, state)
	require.True(t, state.Initialized)
	require.Equal(t, admin, state.Admin)
	require.Equal(t, uint16(25), state.FeeBps)

	// Second read is served from cache.
	_, err = queries.State(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.calls)
}

func TestServiceBalances(t *testing.T) {
	fetcher := &mapFetcher{accounts: map[string]*querycache.Account{}}
	queries := newTestQueries(t, fetcher)

	keys, err := queries.ServiceBalanceKeys()
	require.NoError(t, err)
	require.Len(t, keys, 4)

	// Only the standard vault account exists so far.
	vaultStdID := keys[0]
	fetcher.accounts[vaultStdID] = tokenAccount(
		vaultStdID,
		queries.Builder.Addrs.VaultAuthority,
		StandardMint,
		tokenacct.ProgramStandard,
		7_500_000,
	)

	balances, err := queries.ServiceBalances(context.Background())
	require.NoError(t, err)
	require.Len(t, balances, 4)

	rec := balances[vaultStdID]
	require.NotNil(t, rec)
	require.Equal(t, uint64(7_500_000), rec.RawAmount)
	require.Equal(t, "7.5000", rec.Display())
	require.Equal(t, StandardMint, rec.Mint)

	for _, key := range keys[1:] {
		require.Nil(t, balances[key], "absent account decodes to nil record")
	}

	// All four accounts resolved in one batched round trip.
	require.Equal(t, 1, fetcher.calls)
}

func TestUserBalances(t *testing.T) {
	fetcher := &mapFetcher{accounts: map[string]*querycache.Account{}}
	queries := newTestQueries(t, fetcher)
	owner := solana.NewWallet().PublicKey()

	keys, err := queries.UserBalanceKeys(owner)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	fetcher.accounts[keys[0]] = tokenAccount(keys[0], owner, StandardMint, tokenacct.ProgramStandard, 100)
	fetcher.accounts[keys[1]] = tokenAccount(keys[1], owner, ExtendedMint, tokenacct.ProgramExtended, 200)

	balances, err := queries.UserBalances(context.Background(), owner)
	require.NoError(t, err)
	require.Equal(t, uint64(100), balances[keys[0]].RawAmount)
	require.Equal(t, uint64(200), balances[keys[1]].RawAmount)
	require.Equal(t, owner, balances[keys[0]].Wallet)
}

func TestBalancesSkipUndecodableAccounts(t *testing.T) {
	fetcher := &mapFetcher{accounts: map[string]*querycache.Account{}}
	queries := newTestQueries(t, fetcher)
	owner := solana.NewWallet().PublicKey()

	keys, err := queries.UserBalanceKeys(owner)
	require.NoError(t, err)

	// Wrong owner program: not a token account.
	fetcher.accounts[keys[0]] = &querycache.Account{
		ID:    keys[0],
		Owner: solana.SystemProgramID,
		Data:  make([]byte, tokenacct.AccountDataSize),
	}

	balances, err := queries.UserBalances(context.Background(), owner)
	require.NoError(t, err)
	require.Nil(t, balances[keys[0]])
}
