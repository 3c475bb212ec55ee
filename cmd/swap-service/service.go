package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gagliardetto/solana-go"

	"measwap/pkg/querycache"
	"measwap/pkg/sol"
	"measwap/pkg/subscription"
	"measwap/pkg/swap"
	"measwap/pkg/tokenacct"
	"measwap/pkg/wallet"
)

// Service wires the RPC pool, query cache, live-update watcher, signer
// session and mutation coordinator into one unit behind the HTTP handlers.
type Service struct {
	pool        *sol.RPCPool
	cache       *querycache.Cache
	builder     *swap.Builder
	queries     *swap.Queries
	coordinator *swap.Coordinator
	session     *wallet.Session
	watcher     *subscription.Watcher // nil when live updates are off
}

// NewService builds the full client stack. An empty wsURL disables live
// account updates; the cache then refreshes only on mutation invalidation.
func NewService(ctx context.Context, endpoints []string, rateLimit int, programID solana.PublicKey, wsURL string) (*Service, error) {
	pool, err := sol.NewRPCPool(ctx, endpoints, rateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC pool: %w", err)
	}
	if pool == nil {
		return nil, fmt.Errorf("no RPC endpoints provided")
	}

	cache := querycache.New(ctx, &swap.RPCFetcher{Pool: pool})

	builder, err := swap.NewBuilder(programID, swap.StandardMint, swap.ExtendedMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive service addresses: %w", err)
	}

	session, err := wallet.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load signer session: %w", err)
	}
	if signer, ok := session.Signer(); ok {
		log.Printf("Signer session: %s", signer)
	} else {
		log.Printf("No signer configured, running read-only")
	}

	queries := swap.NewQueries(cache, builder)
	coordinator := swap.NewCoordinator(pool.GetClient(), session, builder, cache)

	s := &Service{
		pool:        pool,
		cache:       cache,
		builder:     builder,
		queries:     queries,
		coordinator: coordinator,
		session:     session,
	}

	// The service itself observes the shared entries so invalidations
	// refetch them without waiting for the next request.
	cache.Subscribe(queries.StateKeys())
	serviceKeys, err := queries.ServiceBalanceKeys()
	if err != nil {
		return nil, err
	}
	cache.Subscribe(serviceKeys)

	if wsURL != "" {
		watcher, err := subscription.NewWatcher(ctx, wsURL, cache)
		if err != nil {
			return nil, fmt.Errorf("failed to start account watcher: %w", err)
		}
		if err := watcher.Watch(queries.StateKeys()...); err != nil {
			log.Printf("Warning: could not watch state account: %v", err)
		}
		if err := watcher.Watch(serviceKeys...); err != nil {
			log.Printf("Warning: could not watch service balances: %v", err)
		}
		s.watcher = watcher
	}

	return s, nil
}

// serviceBalanceLabels maps the ordered service balance keys to role names.
var serviceBalanceLabels = []string{
	"vaultStandard",
	"vaultExtended",
	"treasuryStandard",
	"treasuryExtended",
}

var userBalanceLabels = []string{
	"standard",
	"extended",
}

// ServiceBalances returns labelled vault and treasury balances.
func (s *Service) ServiceBalances(ctx context.Context) (map[string]BalanceEntry, error) {
	keys, err := s.queries.ServiceBalanceKeys()
	if err != nil {
		return nil, err
	}
	records, err := s.queries.ServiceBalances(ctx)
	if err != nil {
		return nil, err
	}
	return labelBalances(serviceBalanceLabels, keys, records), nil
}

// UserBalances returns the owner's labelled balances for both mints.
func (s *Service) UserBalances(ctx context.Context, owner solana.PublicKey) (map[string]BalanceEntry, error) {
	keys, err := s.queries.UserBalanceKeys(owner)
	if err != nil {
		return nil, err
	}
	records, err := s.queries.UserBalances(ctx, owner)
	if err != nil {
		return nil, err
	}
	return labelBalances(userBalanceLabels, keys, records), nil
}

func labelBalances(labels, keys []string, records map[string]*tokenacct.Record) map[string]BalanceEntry {
	out := make(map[string]BalanceEntry, len(labels))
	for i, label := range labels {
		if i >= len(keys) {
			break
		}
		entry := BalanceEntry{Account: keys[i], Display: tokenacct.FormatAmount(0)}
		if rec := records[keys[i]]; rec != nil {
			entry.Exists = true
			entry.Raw = rec.RawAmount
			entry.Display = rec.Display()
		}
		out[label] = entry
	}
	return out
}

// Submit translates the JSON payload into a coordinator request and runs it.
func (s *Service) Submit(ctx context.Context, payload MutationPayload) (MutationResponse, error) {
	req, err := parseMutation(payload)
	if err != nil {
		return MutationResponse{}, err
	}

	outcome := s.coordinator.Submit(ctx, req)
	resp := MutationResponse{
		Kind:   req.Kind.String(),
		Status: outcome.Status.String(),
	}
	if outcome.Err != nil {
		resp.Error = outcome.Err.Error()
	}
	if !outcome.Signature.IsZero() {
		resp.Signature = outcome.Signature.String()
	}
	return resp, nil
}

func parseMutation(payload MutationPayload) (swap.Request, error) {
	req := swap.Request{
		Amount:     payload.Amount,
		FeePercent: payload.FeePercent,
		NewAdmin:   payload.NewAdmin,
	}

	switch payload.Kind {
	case "initialize":
		req.Kind = swap.KindInitialize
	case "update-fee":
		req.Kind = swap.KindUpdateFee
	case "update-admin":
		req.Kind = swap.KindUpdateAdmin
	case "withdraw-fees":
		req.Kind = swap.KindWithdrawFees
	case "add-reserve":
		req.Kind = swap.KindAddReserve
	case "swap":
		req.Kind = swap.KindSwap
	default:
		return swap.Request{}, fmt.Errorf("unknown mutation kind %q", payload.Kind)
	}

	switch payload.Reserve {
	case "", "standard":
		req.Reserve = tokenacct.ProgramStandard
	case "extended":
		req.Reserve = tokenacct.ProgramExtended
	default:
		return swap.Request{}, fmt.Errorf("unknown reserve %q", payload.Reserve)
	}

	switch payload.Direction {
	case "", "standard-to-extended":
		req.Direction = swap.DirectionStandardToExtended
	case "extended-to-standard":
		req.Direction = swap.DirectionExtendedToStandard
	default:
		return swap.Request{}, fmt.Errorf("unknown direction %q", payload.Direction)
	}

	return req, nil
}

// Close shuts down the watcher; the pool and cache stop with the root
// context.
func (s *Service) Close() {
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			log.Printf("Watcher close error: %v", err)
		}
	}
}
