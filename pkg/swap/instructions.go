package swap

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"measwap/pkg/anchor"
	"measwap/pkg/tokenacct"
)

// Direction selects which side of the fixed pair the user pays in.
type Direction uint8

const (
	DirectionStandardToExtended Direction = iota
	DirectionExtendedToStandard
)

func (d Direction) String() string {
	if d == DirectionExtendedToStandard {
		return "extended-to-standard"
	}
	return "standard-to-extended"
}

// Builder assembles swap program instructions. All account orderings mirror
// the program's accounts structs exactly; the program validates them, the
// builder just has to line them up.
type Builder struct {
	Program      solana.PublicKey
	Addrs        *Addresses
	StandardMint solana.PublicKey
	ExtendedMint solana.PublicKey
}

// NewBuilder derives the service's sub-accounts and returns a builder for
// the given program and mint pair.
func NewBuilder(program, standardMint, extendedMint solana.PublicKey) (*Builder, error) {
	addrs, err := NewAddresses(program)
	if err != nil {
		return nil, err
	}
	return &Builder{
		Program:      program,
		Addrs:        addrs,
		StandardMint: standardMint,
		ExtendedMint: extendedMint,
	}, nil
}

func (b *Builder) mintFor(kind tokenacct.ProgramKind) solana.PublicKey {
	if kind == tokenacct.ProgramExtended {
		return b.ExtendedMint
	}
	return b.StandardMint
}

// Initialize creates the state account with the starting fee rate.
func (b *Builder) Initialize(signer solana.PublicKey, feeBps uint16) (solana.Instruction, error) {
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(signer, true, true),
		solana.NewAccountMeta(b.Addrs.State, true, false),
		solana.NewAccountMeta(SystemProgramID, false, false),
	}
	return &programInstruction{
		program:  b.Program,
		name:     "initialize",
		accounts: metas,
		args: func(buf *bytes.Buffer) error {
			return bin.NewBorshEncoder(buf).WriteUint16(feeBps, binary.LittleEndian)
		},
	}, nil
}

// UpdateFee changes the fee rate. Admin only; the program enforces it.
func (b *Builder) UpdateFee(signer solana.PublicKey, feeBps uint16) (solana.Instruction, error) {
	return &programInstruction{
		program:  b.Program,
		name:     "update_fee",
		accounts: b.updateStateMetas(signer),
		args: func(buf *bytes.Buffer) error {
			return bin.NewBorshEncoder(buf).WriteUint16(feeBps, binary.LittleEndian)
		},
	}, nil
}

// UpdateAdmin transfers the admin authority.
func (b *Builder) UpdateAdmin(signer, newAdmin solana.PublicKey) (solana.Instruction, error) {
	return &programInstruction{
		program:  b.Program,
		name:     "update_admin",
		accounts: b.updateStateMetas(signer),
		args: func(buf *bytes.Buffer) error {
			_, err := buf.Write(newAdmin.Bytes())
			return err
		},
	}, nil
}

func (b *Builder) updateStateMetas(signer solana.PublicKey) solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.NewAccountMeta(signer, true, true),
		solana.NewAccountMeta(b.Addrs.State, true, false),
	}
}

// WithdrawFees sweeps both treasury token accounts to the signer.
func (b *Builder) WithdrawFees(signer solana.PublicKey) (solana.Instruction, error) {
	treasuryStd, err := b.Addrs.TreasuryTokenAccount(b.StandardMint, tokenacct.ProgramStandard)
	if err != nil {
		return nil, err
	}
	treasuryExt, err := b.Addrs.TreasuryTokenAccount(b.ExtendedMint, tokenacct.ProgramExtended)
	if err != nil {
		return nil, err
	}
	receiverStd, err := AssociatedTokenAddress(signer, b.StandardMint, tokenacct.ProgramStandard)
	if err != nil {
		return nil, err
	}
	receiverExt, err := AssociatedTokenAddress(signer, b.ExtendedMint, tokenacct.ProgramExtended)
	if err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(signer, true, true),
		solana.NewAccountMeta(b.Addrs.State, true, false),
		solana.NewAccountMeta(b.Addrs.Treasury, false, false),
		solana.NewAccountMeta(treasuryStd, true, false),
		solana.NewAccountMeta(treasuryExt, true, false),
		solana.NewAccountMeta(receiverStd, true, false),
		solana.NewAccountMeta(receiverExt, true, false),
		solana.NewAccountMeta(b.StandardMint, false, false),
		solana.NewAccountMeta(b.ExtendedMint, false, false),
		solana.NewAccountMeta(tokenacct.TokenProgramID, false, false),
		solana.NewAccountMeta(tokenacct.Token2022ProgramID, false, false),
		solana.NewAccountMeta(AssociatedTokenProgramID, false, false),
		solana.NewAccountMeta(SystemProgramID, false, false),
	}
	return &programInstruction{
		program:  b.Program,
		name:     "withdraw_fees",
		accounts: metas,
	}, nil
}

// AddReserve funds the vault with amount of the chosen mint from the
// signer's own token account.
func (b *Builder) AddReserve(signer solana.PublicKey, kind tokenacct.ProgramKind, amount uint64) (solana.Instruction, error) {
	mint := b.mintFor(kind)
	payer, err := AssociatedTokenAddress(signer, mint, kind)
	if err != nil {
		return nil, err
	}
	vault, err := b.Addrs.VaultTokenAccount(mint, kind)
	if err != nil {
		return nil, err
	}

	name := "add_spl_reserve"
	tokenProgram := tokenacct.TokenProgramID
	if kind == tokenacct.ProgramExtended {
		name = "add2022_reserve"
		tokenProgram = tokenacct.Token2022ProgramID
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(signer, true, true),
		solana.NewAccountMeta(b.Addrs.State, true, false),
		solana.NewAccountMeta(payer, true, false),
		solana.NewAccountMeta(b.Addrs.VaultAuthority, false, false),
		solana.NewAccountMeta(vault, true, false),
		solana.NewAccountMeta(mint, false, false),
		solana.NewAccountMeta(tokenProgram, false, false),
		solana.NewAccountMeta(AssociatedTokenProgramID, false, false),
		solana.NewAccountMeta(SystemProgramID, false, false),
	}
	return &programInstruction{
		program:  b.Program,
		name:     name,
		accounts: metas,
		args: func(buf *bytes.Buffer) error {
			return bin.NewBorshEncoder(buf).WriteUint64(amount, binary.LittleEndian)
		},
	}, nil
}

// Swap exchanges amount of the pay-in mint for the other side of the pair.
func (b *Builder) Swap(signer solana.PublicKey, dir Direction, amount uint64) (solana.Instruction, error) {
	vaultStd, err := b.Addrs.VaultTokenAccount(b.StandardMint, tokenacct.ProgramStandard)
	if err != nil {
		return nil, err
	}
	vaultExt, err := b.Addrs.VaultTokenAccount(b.ExtendedMint, tokenacct.ProgramExtended)
	if err != nil {
		return nil, err
	}

	var (
		name            string
		payer, receiver solana.PublicKey
		treasuryAcct    solana.PublicKey
	)
	switch dir {
	case DirectionStandardToExtended:
		name = "swap_spl_to_spl2022"
		payer, err = AssociatedTokenAddress(signer, b.StandardMint, tokenacct.ProgramStandard)
		if err != nil {
			return nil, err
		}
		receiver, err = AssociatedTokenAddress(signer, b.ExtendedMint, tokenacct.ProgramExtended)
		if err != nil {
			return nil, err
		}
		// The fee is withheld on the pay-in side.
		treasuryAcct, err = b.Addrs.TreasuryTokenAccount(b.StandardMint, tokenacct.ProgramStandard)
		if err != nil {
			return nil, err
		}
	case DirectionExtendedToStandard:
		name = "swap_spl2022_to_spl"
		payer, err = AssociatedTokenAddress(signer, b.ExtendedMint, tokenacct.ProgramExtended)
		if err != nil {
			return nil, err
		}
		receiver, err = AssociatedTokenAddress(signer, b.StandardMint, tokenacct.ProgramStandard)
		if err != nil {
			return nil, err
		}
		treasuryAcct, err = b.Addrs.TreasuryTokenAccount(b.ExtendedMint, tokenacct.ProgramExtended)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown swap direction: %d", dir)
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(signer, true, true),
		solana.NewAccountMeta(b.Addrs.State, true, false),
		solana.NewAccountMeta(payer, true, false),
		solana.NewAccountMeta(b.Addrs.Treasury, false, false),
		solana.NewAccountMeta(treasuryAcct, true, false),
		solana.NewAccountMeta(b.Addrs.VaultAuthority, false, false),
		solana.NewAccountMeta(vaultStd, true, false),
		solana.NewAccountMeta(vaultExt, true, false),
		solana.NewAccountMeta(receiver, true, false),
		solana.NewAccountMeta(b.StandardMint, false, false),
		solana.NewAccountMeta(b.ExtendedMint, false, false),
		solana.NewAccountMeta(tokenacct.TokenProgramID, false, false),
		solana.NewAccountMeta(tokenacct.Token2022ProgramID, false, false),
		solana.NewAccountMeta(AssociatedTokenProgramID, false, false),
		solana.NewAccountMeta(SystemProgramID, false, false),
	}
	return &programInstruction{
		program:  b.Program,
		name:     name,
		accounts: metas,
		args: func(buf *bytes.Buffer) error {
			return bin.NewBorshEncoder(buf).WriteUint64(amount, binary.LittleEndian)
		},
	}, nil
}

// programInstruction is a swap program instruction: the 8-byte method
// discriminator followed by Borsh-encoded arguments.
type programInstruction struct {
	program  solana.PublicKey
	name     string
	accounts solana.AccountMetaSlice
	args     func(buf *bytes.Buffer) error
}

func (inst *programInstruction) ProgramID() solana.PublicKey {
	return inst.program
}

func (inst *programInstruction) Accounts() []*solana.AccountMeta {
	return inst.accounts
}

func (inst *programInstruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)

	discriminator := anchor.GetDiscriminator("global", inst.name)
	if _, err := buf.Write(discriminator); err != nil {
		return nil, fmt.Errorf("failed to write discriminator: %w", err)
	}

	if inst.args != nil {
		if err := inst.args(buf); err != nil {
			return nil, fmt.Errorf("failed to encode %s arguments: %w", inst.name, err)
		}
	}
	return buf.Bytes(), nil
}
