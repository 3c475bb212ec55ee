package wallet

import (
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Session carries the signer identity and signing capability for one user.
// A session without a key is read-only: queries work, mutation submission
// is disabled. That is a distinct state, not an error.
type Session struct {
	key    solana.PrivateKey
	signer solana.PublicKey
}

// ReadOnly returns a session without signing capability.
func ReadOnly() *Session {
	return &Session{}
}

// New builds a session from a base58-encoded 64-byte signer key.
func New(base58Key string) (*Session, error) {
	raw, err := base58.Decode(base58Key)
	if err != nil {
		return nil, fmt.Errorf("invalid signer key encoding: %w", err)
	}
	if len(raw) != 64 {
		return nil, fmt.Errorf("invalid signer key length: expected 64 bytes, got %d", len(raw))
	}

	key := solana.PrivateKey(raw)
	return &Session{key: key, signer: key.PublicKey()}, nil
}

// FromEnv builds a session from the SWAP_SIGNER_KEY environment variable,
// falling back to read-only when it is unset.
func FromEnv() (*Session, error) {
	encoded := os.Getenv("SWAP_SIGNER_KEY")
	if encoded == "" {
		return ReadOnly(), nil
	}
	return New(encoded)
}

// Signer returns the signer's address, or false when the session is
// read-only.
func (s *Session) Signer() (solana.PublicKey, bool) {
	if s == nil || s.key == nil {
		return solana.PublicKey{}, false
	}
	return s.signer, true
}

// CanSign reports whether the session holds signing capability.
func (s *Session) CanSign() bool {
	_, ok := s.Signer()
	return ok
}

// Sign signs every required signature of tx that belongs to the session
// signer.
func (s *Session) Sign(tx *solana.Transaction) error {
	if !s.CanSign() {
		return fmt.Errorf("session is read-only")
	}
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.signer) {
			return &s.key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}
