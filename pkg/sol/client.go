package sol

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/time/rate"
)

const (
	defaultRequestsPerSecond = 20
	confirmPollInterval      = 500 * time.Millisecond
	confirmTimeout           = 60 * time.Second
)

// Client wraps a Solana JSON-RPC endpoint with request rate limiting.
type Client struct {
	endpoint string
	rpc      *rpc.Client
	limiter  *rate.Limiter
}

// NewClient creates a rate-limited client for the given endpoint.
func NewClient(ctx context.Context, endpoint string, reqLimitPerSecond int) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("rpc endpoint is required")
	}
	if reqLimitPerSecond <= 0 {
		reqLimitPerSecond = defaultRequestsPerSecond
	}

	return &Client{
		endpoint: endpoint,
		rpc:      rpc.New(endpoint),
		limiter:  rate.NewLimiter(rate.Limit(reqLimitPerSecond), reqLimitPerSecond),
	}, nil
}

// Endpoint returns the endpoint URL the client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// GetMultipleAccountsWithOpts fetches several accounts in one round trip.
// The response is index-aligned with the request; nil elements are accounts
// that do not exist.
func (c *Client) GetMultipleAccountsWithOpts(ctx context.Context, accounts []solana.PublicKey) (*rpc.GetMultipleAccountsResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.rpc.GetMultipleAccountsWithOpts(ctx, accounts, &rpc.GetMultipleAccountsOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
}

// GetAccountInfoWithOpts fetches a single account.
func (c *Client) GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.rpc.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
}

// GetLatestBlockhash returns a recent blockhash for transaction assembly.
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	if err := c.wait(ctx); err != nil {
		return solana.Hash{}, err
	}
	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	return out.Value.Blockhash, nil
}

// SendTransaction submits a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if err := c.wait(ctx); err != nil {
		return solana.Signature{}, err
	}
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentProcessed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig, nil
}

// WaitForConfirmation polls signature status until the transaction is
// confirmed, fails, or the timeout elapses.
func (c *Client) WaitForConfirmation(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("confirmation timed out for %s: %w", sig, ctx.Err())
		case <-ticker.C:
		}

		if err := c.wait(ctx); err != nil {
			return err
		}
		out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			continue
		}
		if len(out.Value) == 0 || out.Value[0] == nil {
			continue
		}

		status := out.Value[0]
		if status.Err != nil {
			return fmt.Errorf("transaction %s failed: %v", sig, status.Err)
		}
		if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
			status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
			return nil
		}
	}
}

// SendInstructions assembles, signs and submits a transaction carrying the
// given instructions, then waits for confirmation. sign is the caller's
// signing capability; payer must be one of the signed keys.
func (c *Client) SendInstructions(
	ctx context.Context,
	instructions []solana.Instruction,
	payer solana.PublicKey,
	sign func(tx *solana.Transaction) error,
) (solana.Signature, error) {
	blockhash, err := c.GetLatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}

	tx, err := solana.NewTransaction(
		instructions,
		blockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to build transaction: %w", err)
	}

	if err := sign(tx); err != nil {
		return solana.Signature{}, err
	}

	sig, err := c.SendTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, err
	}

	if err := c.WaitForConfirmation(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}
