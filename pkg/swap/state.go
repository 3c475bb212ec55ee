package swap

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"measwap/pkg/anchor"
)

// SwapState mirrors the on-chain service state account. It is the single
// source of truth for the fee rate and the admin authority. The account may
// not exist yet (service uninitialized); callers treat that as a valid
// state, not an error.
type SwapState struct {
	Initialized bool
	Admin       solana.PublicKey
	FeeBps      uint16
}

// StateDataSize is the Borsh-encoded size of SwapState plus the 8-byte
// account discriminator.
const StateDataSize = 8 + 1 + 32 + 2

// DecodeSwapState parses a fetched state account buffer. The discriminator
// must match; a mismatch means the account at the state address belongs to
// something else entirely.
func DecodeSwapState(data []byte) (*SwapState, error) {
	if len(data) < StateDataSize {
		return nil, fmt.Errorf("state data too short: expected %d bytes, got %d", StateDataSize, len(data))
	}

	disc := anchor.GetDiscriminator("account", "SwapState")
	if !bytes.Equal(data[:8], disc) {
		return nil, fmt.Errorf("state account discriminator mismatch")
	}

	state := &SwapState{}
	if err := bin.NewBorshDecoder(data[8:]).Decode(state); err != nil {
		return nil, fmt.Errorf("failed to decode state account: %w", err)
	}
	return state, nil
}
