package swap

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"measwap/pkg/querycache"
	"measwap/pkg/sol"
	"measwap/pkg/tokenacct"
)

// RPCFetcher adapts the rate-limited RPC pool to the cache's batched
// read interface. Each fetch goes to the next endpoint in round-robin
// order; response order matches request order.
type RPCFetcher struct {
	Pool *sol.RPCPool
}

func (f *RPCFetcher) GetAccounts(ctx context.Context, ids []string) ([]*querycache.Account, error) {
	keys := make([]solana.PublicKey, len(ids))
	for i, id := range ids {
		key, err := solana.PublicKeyFromBase58(id)
		if err != nil {
			return nil, fmt.Errorf("invalid account id %q: %w", id, err)
		}
		keys[i] = key
	}

	res, err := f.Pool.GetClient().GetMultipleAccountsWithOpts(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make([]*querycache.Account, len(ids))
	for i, v := range res.Value {
		if i >= len(ids) {
			break
		}
		if v == nil {
			continue // account does not exist
		}
		out[i] = &querycache.Account{
			ID:    ids[i],
			Owner: v.Owner,
			Data:  v.Data.GetBinary(),
		}
	}
	return out, nil
}

// Queries is the read side of the swap client: it resolves the service's
// accounts through the cache and decodes what comes back. Balance records
// are keyed by account id; a nil record means the account does not exist
// yet, which is normal.
type Queries struct {
	Cache   *querycache.Cache
	Builder *Builder
}

func NewQueries(cache *querycache.Cache, builder *Builder) *Queries {
	return &Queries{Cache: cache, Builder: builder}
}

// StateKeys is the cache key set holding the service state account.
func (q *Queries) StateKeys() []string {
	return []string{q.Builder.Addrs.State.String()}
}

// ServiceBalanceKeys returns the vault and treasury token accounts for
// both mints, in (vault std, vault 2022, treasury std, treasury 2022)
// order.
func (q *Queries) ServiceBalanceKeys() ([]string, error) {
	a := q.Builder.Addrs
	vaultStd, err := a.VaultTokenAccount(q.Builder.StandardMint, tokenacct.ProgramStandard)
	if err != nil {
		return nil, err
	}
	vaultExt, err := a.VaultTokenAccount(q.Builder.ExtendedMint, tokenacct.ProgramExtended)
	if err != nil {
		return nil, err
	}
	treasuryStd, err := a.TreasuryTokenAccount(q.Builder.StandardMint, tokenacct.ProgramStandard)
	if err != nil {
		return nil, err
	}
	treasuryExt, err := a.TreasuryTokenAccount(q.Builder.ExtendedMint, tokenacct.ProgramExtended)
	if err != nil {
		return nil, err
	}
	return []string{vaultStd.String(), vaultExt.String(), treasuryStd.String(), treasuryExt.String()}, nil
}

// UserBalanceKeys returns the owner's token accounts for both mints.
func (q *Queries) UserBalanceKeys(owner solana.PublicKey) ([]string, error) {
	std, err := AssociatedTokenAddress(owner, q.Builder.StandardMint, tokenacct.ProgramStandard)
	if err != nil {
		return nil, err
	}
	ext, err := AssociatedTokenAddress(owner, q.Builder.ExtendedMint, tokenacct.ProgramExtended)
	if err != nil {
		return nil, err
	}
	return []string{std.String(), ext.String()}, nil
}

// State fetches the current service state. Returns (nil, nil) when the
// state account has not been initialized yet.
func (q *Queries) State(ctx context.Context) (*SwapState, error) {
	res, err := q.Cache.FetchMany(ctx, q.StateKeys())
	if err != nil {
		return nil, err
	}

	acct := res[q.Builder.Addrs.State.String()]
	if acct == nil {
		return nil, nil
	}
	state, err := DecodeSwapState(acct.Data)
	if err != nil {
		return nil, err
	}
	return state, nil
}

// ServiceBalances fetches the vault and treasury balances for both mints.
func (q *Queries) ServiceBalances(ctx context.Context) (map[string]*tokenacct.Record, error) {
	keys, err := q.ServiceBalanceKeys()
	if err != nil {
		return nil, err
	}
	return q.balances(ctx, keys)
}

// UserBalances fetches the owner's balances for both mints.
func (q *Queries) UserBalances(ctx context.Context, owner solana.PublicKey) (map[string]*tokenacct.Record, error) {
	keys, err := q.UserBalanceKeys(owner)
	if err != nil {
		return nil, err
	}
	return q.balances(ctx, keys)
}

func (q *Queries) balances(ctx context.Context, keys []string) (map[string]*tokenacct.Record, error) {
	res, err := q.Cache.FetchMany(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*tokenacct.Record, len(keys))
	for _, key := range keys {
		acct := res[key]
		if acct == nil {
			out[key] = nil
			continue
		}
		id, err := solana.PublicKeyFromBase58(acct.ID)
		if err != nil {
			out[key] = nil
			continue
		}
		// Unrecognized layouts decode to absent, never to an error.
		rec, ok := tokenacct.Decode(id, acct.Owner, acct.Data)
		if !ok {
			out[key] = nil
			continue
		}
		out[key] = rec
	}
	return out, nil
}
