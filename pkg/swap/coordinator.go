package swap

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"

	"measwap/pkg/querycache"
	"measwap/pkg/tokenacct"
	"measwap/pkg/wallet"
)

// Kind tags a state-changing operation against the swap service.
type Kind int

const (
	KindInitialize Kind = iota
	KindUpdateFee
	KindUpdateAdmin
	KindWithdrawFees
	KindAddReserve
	KindSwap
)

func (k Kind) String() string {
	switch k {
	case KindInitialize:
		return "initialize"
	case KindUpdateFee:
		return "update-fee"
	case KindUpdateAdmin:
		return "update-admin"
	case KindWithdrawFees:
		return "withdraw-fees"
	case KindAddReserve:
		return "add-reserve"
	case KindSwap:
		return "swap"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DefaultInitialFeeBps is the fee rate a fresh service is initialized with.
const DefaultInitialFeeBps uint16 = 20

// Request describes one user-intent mutation. A fresh request is created
// per user action; failed requests are never resubmitted, a retry is a new
// request.
type Request struct {
	Kind Kind

	// Amount is the raw integer amount as typed, for AddReserve and Swap.
	Amount string
	// FeePercent is the fee as a percentage string, for UpdateFee.
	FeePercent string
	// NewAdmin is the new authority address, for UpdateAdmin. Only
	// non-emptiness is checked here; format validation is the signer's
	// and the program's job.
	NewAdmin string

	Reserve   ReserveKind
	Direction Direction
}

// ReserveKind selects which side of the pair a reserve deposit funds.
type ReserveKind = tokenacct.ProgramKind

// Status is the lifecycle of a mutation request.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusSuccess
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Outcome reports how a submission ended. A request rejected before any
// remote call (bad input, missing signer, duplicate while pending) stays
// at StatusIdle with no error.
type Outcome struct {
	Status    Status
	Signature solana.Signature
	Err       error
}

// Sender submits instructions to the ledger. *sol.Client implements it.
type Sender interface {
	SendInstructions(ctx context.Context, instructions []solana.Instruction, payer solana.PublicKey, sign func(tx *solana.Transaction) error) (solana.Signature, error)
}

// Coordinator is the single mutation path of the client. It validates
// input before any remote call, guards each operation kind against
// double submission, and on success invalidates exactly the cache keys
// the operation could have changed. It never writes cache entries itself.
type Coordinator struct {
	mu      sync.Mutex
	pending map[Kind]bool
	status  map[Kind]Status

	sender  Sender
	session *wallet.Session
	builder *Builder
	queries *Queries
	cache   *querycache.Cache
}

// NewCoordinator wires the mutation path.
func NewCoordinator(sender Sender, session *wallet.Session, builder *Builder, cache *querycache.Cache) *Coordinator {
	return &Coordinator{
		pending: make(map[Kind]bool),
		status:  make(map[Kind]Status),
		sender:  sender,
		session: session,
		builder: builder,
		queries: NewQueries(cache, builder),
		cache:   cache,
	}
}

// Status returns the lifecycle state of the most recent request of a kind,
// for enabling and disabling controls.
func (c *Coordinator) Status(kind Kind) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status[kind]
}

// Submit runs one mutation request end to end. Input that fails the
// pre-submission gate is withheld silently: no remote call, no error, the
// request never leaves idle.
func (c *Coordinator) Submit(ctx context.Context, req Request) Outcome {
	signer, ok := c.session.Signer()
	if !ok {
		// No signer session: mutations are disabled, not failing.
		log.Printf("mutation %s withheld: no signer session", req.Kind)
		return Outcome{Status: StatusIdle}
	}

	instruction, invalidate, err := c.prepare(req, signer)
	if err != nil {
		log.Printf("mutation %s withheld: %v", req.Kind, err)
		return Outcome{Status: StatusIdle}
	}

	c.mu.Lock()
	if c.pending[req.Kind] {
		// Same logical action already in flight; ignore the duplicate.
		c.mu.Unlock()
		log.Printf("mutation %s ignored: already pending", req.Kind)
		return Outcome{Status: StatusIdle}
	}
	c.pending[req.Kind] = true
	c.status[req.Kind] = StatusPending
	c.mu.Unlock()

	sig, sendErr := c.sender.SendInstructions(ctx, []solana.Instruction{instruction}, signer, c.session.Sign)

	c.mu.Lock()
	c.pending[req.Kind] = false
	if sendErr != nil {
		c.status[req.Kind] = StatusFailed
		c.mu.Unlock()
		// Surfaced verbatim; the cache is left untouched.
		return Outcome{Status: StatusFailed, Err: sendErr}
	}
	c.status[req.Kind] = StatusSuccess
	c.mu.Unlock()

	if len(invalidate) > 0 {
		n := c.cache.InvalidateKeys(invalidate...)
		log.Printf("mutation %s confirmed (%s), invalidated %d cache entries", req.Kind, sig, n)
	}
	return Outcome{Status: StatusSuccess, Signature: sig}
}

// prepare validates the request and builds its instruction along with the
// invalidation scope. A returned error means the input gate rejected it.
func (c *Coordinator) prepare(req Request, signer solana.PublicKey) (solana.Instruction, []string, error) {
	switch req.Kind {
	case KindInitialize:
		inst, err := c.builder.Initialize(signer, DefaultInitialFeeBps)
		if err != nil {
			return nil, nil, err
		}
		return inst, c.queries.StateKeys(), nil

	case KindUpdateFee:
		feeBps, err := PercentToBps(req.FeePercent)
		if err != nil {
			return nil, nil, err
		}
		inst, err := c.builder.UpdateFee(signer, feeBps)
		if err != nil {
			return nil, nil, err
		}
		return inst, c.queries.StateKeys(), nil

	case KindUpdateAdmin:
		if strings.TrimSpace(req.NewAdmin) == "" {
			return nil, nil, fmt.Errorf("new admin address is empty")
		}
		newAdmin, err := solana.PublicKeyFromBase58(strings.TrimSpace(req.NewAdmin))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid admin address: %w", err)
		}
		inst, err := c.builder.UpdateAdmin(signer, newAdmin)
		if err != nil {
			return nil, nil, err
		}
		return inst, c.queries.StateKeys(), nil

	case KindWithdrawFees:
		inst, err := c.builder.WithdrawFees(signer)
		if err != nil {
			return nil, nil, err
		}
		keys, err := c.queries.ServiceBalanceKeys()
		if err != nil {
			return nil, nil, err
		}
		return inst, keys, nil

	case KindAddReserve:
		amount, ok := ParseAmount(req.Amount)
		if !ok {
			return nil, nil, fmt.Errorf("invalid amount %q", req.Amount)
		}
		inst, err := c.builder.AddReserve(signer, req.Reserve, amount)
		if err != nil {
			return nil, nil, err
		}
		keys, err := c.queries.ServiceBalanceKeys()
		if err != nil {
			return nil, nil, err
		}
		return inst, keys, nil

	case KindSwap:
		amount, ok := ParseAmount(req.Amount)
		if !ok {
			return nil, nil, fmt.Errorf("invalid amount %q", req.Amount)
		}
		inst, err := c.builder.Swap(signer, req.Direction, amount)
		if err != nil {
			return nil, nil, err
		}
		// A swap only moves the acting user's balances from this
		// client's point of view; service reserves are refreshed on
		// their own schedule.
		keys, err := c.queries.UserBalanceKeys(signer)
		if err != nil {
			return nil, nil, err
		}
		return inst, keys, nil

	default:
		return nil, nil, fmt.Errorf("unknown mutation kind: %d", req.Kind)
	}
}
