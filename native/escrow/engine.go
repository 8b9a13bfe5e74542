package escrow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/bits"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"multiswap/core/runtime"
	"multiswap/core/types"
	"multiswap/crypto"
	"multiswap/native/common"
	"multiswap/native/system"
	"multiswap/native/token"
	"multiswap/observability"
)

// ModuleName keys the escrow program in pause configuration.
const ModuleName = "escrow"

// DefaultAuthoritySeed is the seed the custody authority is derived from.
const DefaultAuthoritySeed = "escrow"

var errNilCollaborator = errors.New("escrow engine: collaborator not configured")

// DefaultProgramID is the address the escrow program is hosted under unless
// configured otherwise.
var DefaultProgramID = func() crypto.PublicKey {
	var id crypto.PublicKey
	copy(id[:], ethcrypto.Keccak256([]byte("multiswap/escrow")))
	return id
}()

// AssetLedger moves fungible-token lots and reassigns their control. The
// authority argument is the account whose signature authorizes the call.
type AssetLedger interface {
	Transfer(source, destination, authority *types.AccountInfo, amount uint64) error
	SetAuthority(account, current *types.AccountInfo, newAuthority crypto.PublicKey) error
	Close(account, refund, authority *types.AccountInfo) error
	Balance(account *types.AccountInfo) (uint64, error)
}

// NativeLedger moves native currency out of a signer's account.
type NativeLedger interface {
	Transfer(from, to *types.AccountInfo, amount uint64) error
}

// RentPolicy decides whether an account balance covers its storage.
type RentPolicy interface {
	IsExempt(lamports uint64, size int) bool
}

// Config names the addresses the engine checks supplied accounts against.
type Config struct {
	ProgramID       crypto.PublicKey
	TokenProgramID  crypto.PublicKey
	SystemProgramID crypto.PublicKey
	RentSysvarID    crypto.PublicKey
	AuthoritySeed   string
}

// DefaultConfig returns the configuration of a standard deployment.
func DefaultConfig() Config {
	return Config{
		ProgramID:       DefaultProgramID,
		TokenProgramID:  token.ProgramID,
		SystemProgramID: system.ProgramID,
		RentSysvarID:    system.RentSysvarID,
		AuthoritySeed:   DefaultAuthoritySeed,
	}
}

// Engine executes the escrow lifecycle: commit, cancel and settle. It holds
// no state of its own; every effect lands in the borrowed call accounts and
// is committed or discarded by the host.
type Engine struct {
	cfg       Config
	assets    AssetLedger
	native    NativeLedger
	rent      RentPolicy
	pauses    common.PauseView
	authority crypto.PublicKey
	bump      uint8
}

// NewEngine derives the custody authority for cfg and wires the collaborators.
func NewEngine(cfg Config, assets AssetLedger, native NativeLedger, rent RentPolicy) (*Engine, error) {
	if assets == nil || native == nil || rent == nil {
		return nil, errNilCollaborator
	}
	if cfg.AuthoritySeed == "" {
		cfg.AuthoritySeed = DefaultAuthoritySeed
	}
	authority, bump, err := crypto.DeriveAuthority([]byte(cfg.AuthoritySeed), cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("escrow engine: derive authority: %w", err)
	}
	return &Engine{
		cfg:       cfg,
		assets:    assets,
		native:    native,
		rent:      rent,
		authority: authority,
		bump:      bump,
	}, nil
}

// SetPauses configures the pause view consulted before every operation.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// Authority returns the derived custody authority and its bump seed.
func (e *Engine) Authority() (crypto.PublicKey, uint8) { return e.authority, e.bump }

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// ErrorCode implements runtime.ErrorCoder.
func (e *Engine) ErrorCode(err error) uint32 { return ErrorCode(err) }

// Process decodes call.Data and runs the selected operation.
func (e *Engine) Process(ctx context.Context, call *runtime.Call) error {
	cmd, err := DecodeInstruction(call.Data)
	if err != nil {
		observability.Escrow().RecordOperation("decode", err)
		return err
	}
	err = e.process(ctx, call, cmd)
	observability.Escrow().RecordOperation(cmd.Kind.String(), err)
	if err != nil {
		call.Log().Debug("escrow operation rejected",
			slog.String("operation", cmd.Kind.String()),
			slog.Any("error", err))
	}
	return err
}

func (e *Engine) process(_ context.Context, call *runtime.Call, cmd *Command) error {
	if err := common.Guard(e.pauses, ModuleName); err != nil {
		return err
	}
	if call.ProgramID != e.cfg.ProgramID {
		return fmt.Errorf("%w: called as %s", ErrIncorrectProgramID, call.ProgramID)
	}
	accts, err := ParseAccounts(cmd, call.Accounts)
	if err != nil {
		return err
	}
	switch cmd.Kind {
	case CommandCommit:
		return e.commit(call, cmd, accts)
	case CommandCancel:
		return e.cancel(call, cmd, accts)
	case CommandSettle:
		return e.settle(call, cmd, accts)
	default:
		return fmt.Errorf("%w: unknown tag %d", ErrMalformedInstruction, cmd.Kind)
	}
}

// checkCommon verifies the accounts every operation shares: escrow ownership,
// the sysvar and program slots, rent exemption and record capacity.
func (e *Engine) checkCommon(accts *Accounts) error {
	if accts.Escrow.Owner != e.cfg.ProgramID {
		return fmt.Errorf("%w: escrow %s owned by %s", ErrIncorrectProgramID, accts.Escrow.Key, accts.Escrow.Owner)
	}
	if accts.RentSysvar.Key != e.cfg.RentSysvarID {
		return fmt.Errorf("%w: expected rent sysvar, got %s", ErrIncorrectProgramID, accts.RentSysvar.Key)
	}
	if accts.TokenProgram.Key != e.cfg.TokenProgramID {
		return fmt.Errorf("%w: expected token program, got %s", ErrIncorrectProgramID, accts.TokenProgram.Key)
	}
	if accts.Authority != nil && accts.Authority.Key != e.authority {
		return fmt.Errorf("%w: authority slot holds %s", ErrMissingAuthorization, accts.Authority.Key)
	}
	if !e.rent.IsExempt(accts.Escrow.Lamports, len(accts.Escrow.Data)) {
		return fmt.Errorf("%w: %s holds %d lamports", ErrStorageNotExempt, accts.Escrow.Key, accts.Escrow.Lamports)
	}
	if len(accts.Escrow.Data) < MaxRecordSize {
		return fmt.Errorf("%w: %d bytes, need %d", ErrStorageUndersized, len(accts.Escrow.Data), MaxRecordSize)
	}
	return nil
}

func (e *Engine) requireSystemProgram(accts *Accounts) error {
	if accts.SystemProgram == nil {
		return fmt.Errorf("%w: missing system program", ErrNotEnoughAccounts)
	}
	if accts.SystemProgram.Key != e.cfg.SystemProgramID {
		return fmt.Errorf("%w: expected system program, got %s", ErrIncorrectProgramID, accts.SystemProgram.Key)
	}
	return nil
}

// authoritySigner is the view of the authority account the engine signs for.
func authoritySigner(info *types.AccountInfo) *types.AccountInfo {
	signed := *info
	signed.IsSigner = true
	return &signed
}

func collaborator(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCollaboratorFailure, op, err)
}

func (e *Engine) commit(call *runtime.Call, cmd *Command, accts *Accounts) error {
	if !accts.Initiator.IsSigner {
		return fmt.Errorf("%w: initiator %s must sign commit", ErrMissingAuthorization, accts.Initiator.Key)
	}
	if err := e.checkCommon(accts); err != nil {
		return err
	}
	if Status(accts.Escrow.Data[0]) != StatusUninitialized {
		return fmt.Errorf("%w: %s", ErrAlreadyCommitted, accts.Escrow.Key)
	}
	nativeLeg := cmd.NativeDirection == NativeInitiatorDeposits && cmd.ReserveAmount > 0
	if nativeLeg {
		if err := e.requireSystemProgram(accts); err != nil {
			return err
		}
	}

	rec := expectedRecord(cmd, accts)
	WriteRecord(accts.Escrow.Data, rec)

	for i, leg := range accts.LegsA {
		amount := cmd.LegAmountsA[i]
		if err := e.assets.Transfer(leg.InitiatorAsset, leg.Custody, accts.Initiator, amount); err != nil {
			return collaborator(fmt.Sprintf("fund custody a[%d]", i), err)
		}
		if err := e.assets.SetAuthority(leg.Custody, accts.Escrow, e.authority); err != nil {
			return collaborator(fmt.Sprintf("assign custody a[%d]", i), err)
		}
	}
	if nativeLeg {
		if err := e.native.Transfer(accts.Initiator, accts.Escrow, cmd.ReserveAmount); err != nil {
			return collaborator("deposit reserve", err)
		}
	}

	observability.Escrow().RecordLegs("commit", "a", len(accts.LegsA))
	if nativeLeg {
		observability.Escrow().RecordNative("commit", cmd.NativeDirection.String())
	}
	call.Emit(escrowEvent{evt: NewCommittedEvent(accts.Escrow.Key, rec)})
	call.Log().Info("escrow committed",
		slog.String("escrow", accts.Escrow.Key.String()),
		slog.Int("legsA", int(cmd.LegCountA)),
		slog.Int("legsB", int(cmd.LegCountB)),
		slog.Uint64("reserve", cmd.ReserveAmount))
	return nil
}

// loadCommitted reads the stored record and checks it against the resubmitted
// terms before any effect.
func (e *Engine) loadCommitted(cmd *Command, accts *Accounts) (*Record, error) {
	if err := e.checkCommon(accts); err != nil {
		return nil, err
	}
	stored, err := ReadRecord(accts.Escrow.Data)
	if err != nil {
		return nil, err
	}
	if err := ValidateCommitment(cmd, stored, accts); err != nil {
		return nil, err
	}
	return stored, nil
}

func (e *Engine) cancel(call *runtime.Call, cmd *Command, accts *Accounts) error {
	if !accts.Initiator.IsSigner {
		return fmt.Errorf("%w: initiator %s must sign cancel", ErrMissingAuthorization, accts.Initiator.Key)
	}
	stored, err := e.loadCommitted(cmd, accts)
	if err != nil {
		return err
	}
	signer := authoritySigner(accts.Authority)
	for i, leg := range accts.LegsA {
		held, err := e.assets.Balance(leg.Custody)
		if err != nil {
			return collaborator(fmt.Sprintf("read custody a[%d]", i), err)
		}
		// Custody is drained in full so that units sent to it after commit
		// cannot block the close.
		if err := e.assets.Transfer(leg.Custody, leg.InitiatorAsset, signer, held); err != nil {
			return collaborator(fmt.Sprintf("return custody a[%d]", i), err)
		}
		if err := e.assets.Close(leg.Custody, accts.Initiator, signer); err != nil {
			return collaborator(fmt.Sprintf("close custody a[%d]", i), err)
		}
	}
	if err := closeEscrow(accts); err != nil {
		return err
	}

	observability.Escrow().RecordLegs("cancel", "a", len(accts.LegsA))
	call.Emit(escrowEvent{evt: NewCancelledEvent(accts.Escrow.Key, stored)})
	call.Log().Info("escrow cancelled", slog.String("escrow", accts.Escrow.Key.String()))
	return nil
}

func (e *Engine) settle(call *runtime.Call, cmd *Command, accts *Accounts) error {
	if !accts.Counterparty.IsSigner {
		return fmt.Errorf("%w: counterparty %s must sign settle", ErrMissingAuthorization, accts.Counterparty.Key)
	}
	stored, err := e.loadCommitted(cmd, accts)
	if err != nil {
		return err
	}
	if stored.NativeDirection == NativeCounterpartyPays && stored.ReserveAmount > 0 {
		if err := e.requireSystemProgram(accts); err != nil {
			return err
		}
	}

	signer := authoritySigner(accts.Authority)
	for i, leg := range accts.LegsA {
		held, err := e.assets.Balance(leg.Custody)
		if err != nil {
			return collaborator(fmt.Sprintf("read custody a[%d]", i), err)
		}
		amount := stored.LegsA[i].Amount
		if err := e.assets.Transfer(leg.Custody, leg.CounterpartyAsset, signer, amount); err != nil {
			return collaborator(fmt.Sprintf("release custody a[%d]", i), err)
		}
		if held > amount {
			if err := e.assets.Transfer(leg.Custody, leg.InitiatorAsset, signer, held-amount); err != nil {
				return collaborator(fmt.Sprintf("return excess a[%d]", i), err)
			}
		}
		if err := e.assets.Close(leg.Custody, accts.Initiator, signer); err != nil {
			return collaborator(fmt.Sprintf("close custody a[%d]", i), err)
		}
	}
	for j, leg := range accts.LegsB {
		if err := e.assets.Transfer(leg.CounterpartyAsset, leg.InitiatorAsset, accts.Counterparty, stored.LegsB[j].Amount); err != nil {
			return collaborator(fmt.Sprintf("pay leg b[%d]", j), err)
		}
	}

	switch stored.NativeDirection {
	case NativeInitiatorDeposits:
		reserve := stored.ReserveAmount
		if accts.Escrow.Lamports < reserve {
			return fmt.Errorf("%w: escrow holds %d, reserve %d", ErrArithmeticOverflow, accts.Escrow.Lamports, reserve)
		}
		credited, carry := bits.Add64(accts.Counterparty.Lamports, reserve, 0)
		if carry != 0 {
			return fmt.Errorf("%w: counterparty balance", ErrArithmeticOverflow)
		}
		accts.Escrow.Lamports -= reserve
		accts.Counterparty.Lamports = credited
	case NativeCounterpartyPays:
		if stored.ReserveAmount > 0 {
			if err := e.native.Transfer(accts.Counterparty, accts.Escrow, stored.ReserveAmount); err != nil {
				return collaborator("collect reserve", err)
			}
		}
	}
	if err := closeEscrow(accts); err != nil {
		return err
	}

	metrics := observability.Escrow()
	metrics.RecordLegs("settle", "a", len(accts.LegsA))
	metrics.RecordLegs("settle", "b", len(accts.LegsB))
	if stored.NativeDirection != NativeNone {
		metrics.RecordNative("settle", stored.NativeDirection.String())
	}
	call.Emit(escrowEvent{evt: NewSettledEvent(accts.Escrow.Key, stored)})
	call.Log().Info("escrow settled", slog.String("escrow", accts.Escrow.Key.String()))
	return nil
}

// closeEscrow erases the record and sweeps the whole escrow balance to the
// initiator.
func closeEscrow(accts *Accounts) error {
	EraseRecord(accts.Escrow.Data)
	if accts.Escrow == accts.Initiator {
		return nil
	}
	swept, carry := bits.Add64(accts.Initiator.Lamports, accts.Escrow.Lamports, 0)
	if carry != 0 {
		return fmt.Errorf("%w: initiator balance", ErrArithmeticOverflow)
	}
	accts.Initiator.Lamports = swept
	accts.Escrow.Lamports = 0
	return nil
}
