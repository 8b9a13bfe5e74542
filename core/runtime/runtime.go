package runtime

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"multiswap/core/events"
	"multiswap/core/state"
	"multiswap/core/types"
	"multiswap/crypto"
	"multiswap/observability"
	telemetry "multiswap/observability/otel"
)

var (
	ErrNilTransaction        = errors.New("runtime: nil transaction")
	ErrUnknownProgram        = errors.New("runtime: unknown program")
	ErrMissingSignature      = errors.New("runtime: missing required signature")
	ErrInvalidSignature      = errors.New("runtime: invalid signature")
	ErrDuplicateTransaction  = errors.New("runtime: transaction already processed")
	ErrProgramFault          = errors.New("runtime: program fault")
	ErrUnbalancedTransaction = errors.New("runtime: native balance not conserved")
	ErrReadonlyModified      = errors.New("runtime: read-only account modified")
	ErrExecutableModified    = errors.New("runtime: executable account modified")
	ErrStateFailure          = errors.New("runtime: state access failed")
)

// Runtime-level error codes. Program-specific codes stay below 1000.
const (
	CodeUnknown              uint32 = 1000
	CodeUnknownProgram       uint32 = 1001
	CodeMissingSignature     uint32 = 1002
	CodeInvalidSignature     uint32 = 1003
	CodeDuplicateTransaction uint32 = 1004
	CodeProgramFault         uint32 = 1005
	CodeUnbalanced           uint32 = 1006
	CodeReadonlyModified     uint32 = 1007
	CodeExecutableModified   uint32 = 1008
	CodeStateFailure         uint32 = 1009
)

var runtimeCodes = []struct {
	err  error
	code uint32
}{
	{ErrUnknownProgram, CodeUnknownProgram},
	{ErrMissingSignature, CodeMissingSignature},
	{ErrInvalidSignature, CodeInvalidSignature},
	{ErrDuplicateTransaction, CodeDuplicateTransaction},
	{ErrProgramFault, CodeProgramFault},
	{ErrUnbalancedTransaction, CodeUnbalanced},
	{ErrReadonlyModified, CodeReadonlyModified},
	{ErrExecutableModified, CodeExecutableModified},
	{ErrStateFailure, CodeStateFailure},
}

type registration struct {
	name    string
	program Program
}

// Runtime executes signed transactions against the ledger state. Execution is
// serialized: at most one transaction touches state at a time, and a
// transaction either commits every writable account it borrowed or none.
type Runtime struct {
	mu       sync.Mutex
	state    *state.Manager
	programs map[crypto.PublicKey]registration
	emitter  *events.Fanout
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// New creates a runtime over the provided state manager.
func New(st *state.Manager, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{
		state:    st,
		programs: make(map[crypto.PublicKey]registration),
		emitter:  &events.Fanout{},
		logger:   logger.With(slog.String("component", "runtime")),
		tracer:   telemetry.Tracer("runtime"),
		now:      time.Now,
	}
}

// Register hosts program under id. Registering an id twice replaces the
// earlier program.
func (r *Runtime) Register(id crypto.PublicKey, name string, program Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programs[id] = registration{name: name, program: program}
}

// Subscribe attaches an emitter that receives the events of committed
// transactions.
func (r *Runtime) Subscribe(e events.Emitter) {
	r.emitter.Subscribe(e)
}

// SetNowFunc overrides the clock used for latency measurements.
func (r *Runtime) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
}

// State exposes the underlying state manager for read-only queries.
func (r *Runtime) State() *state.Manager {
	return r.state
}

// Account returns a snapshot of the account stored under key.
func (r *Runtime) Account(key crypto.PublicKey) (*types.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.GetAccount(key)
}

// Execute verifies and runs tx. The returned receipt describes the outcome
// even when the error is non-nil; a failed transaction leaves state untouched.
func (r *Runtime) Execute(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if tx == nil {
		return &types.Receipt{Error: ErrNilTransaction.Error(), ErrorCode: CodeUnknown}, ErrNilTransaction
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	start := r.now()
	receipt := &types.Receipt{}
	hash, err := tx.Hash()
	if err != nil {
		return r.fail(receipt, "", fmt.Errorf("%w: %v", ErrInvalidSignature, err), nil, start)
	}
	receipt.TxHash = hash
	hashHex := hex.EncodeToString(hash[:])

	reg, known := r.programs[tx.Instruction.ProgramID]
	name := reg.name
	if !known {
		name = tx.Instruction.ProgramID.String()
	}
	ctx, span := r.tracer.Start(ctx, "runtime.Execute", trace.WithAttributes(
		attribute.String("tx.hash", hashHex),
		attribute.String("program", name),
		attribute.Int("accounts", len(tx.Instruction.Accounts)),
	))
	defer span.End()

	if !known {
		return r.fail(receipt, name, fmt.Errorf("%w: %s", ErrUnknownProgram, tx.Instruction.ProgramID), span, start)
	}
	if err := r.checkSignatures(tx); err != nil {
		return r.fail(receipt, name, err, span, start)
	}
	if _, seen, err := r.state.Meta(processedKey(hashHex)); err != nil {
		return r.fail(receipt, name, fmt.Errorf("%w: %v", ErrStateFailure, err), span, start)
	} else if seen {
		return r.fail(receipt, name, ErrDuplicateTransaction, span, start)
	}

	infos, unique, err := r.loadAccounts(tx.Instruction.Accounts)
	if err != nil {
		return r.fail(receipt, name, err, span, start)
	}
	snapshots := make(map[crypto.PublicKey]*types.Account, len(unique))
	for key, info := range unique {
		snapshots[key] = info.Account()
	}

	buffer := &events.Buffer{}
	call := &Call{
		ProgramID: tx.Instruction.ProgramID,
		Accounts:  infos,
		Data:      append([]byte(nil), tx.Instruction.Data...),
		Emitter:   buffer,
		Logger:    r.logger.With(slog.String("program", name), slog.String("tx", hashHex)),
	}
	if err := invoke(ctx, reg.program, call); err != nil {
		return r.fail(receipt, name, r.codedError(reg.program, err), span, start)
	}
	if err := verifyEffects(unique, snapshots); err != nil {
		return r.fail(receipt, name, err, span, start)
	}

	writes := make(map[crypto.PublicKey]*types.Account)
	for key, info := range unique {
		if info.IsWritable {
			writes[key] = info.Account()
		}
	}
	if err := r.state.CommitAccounts(writes); err != nil {
		return r.fail(receipt, name, fmt.Errorf("%w: %v", ErrStateFailure, err), span, start)
	}
	if err := r.state.SetMeta(processedKey(hashHex), []byte{1}); err != nil {
		r.logger.Error("record processed transaction", slog.String("tx", hashHex), slog.Any("error", err))
	}

	for _, evt := range buffer.Events() {
		r.emitter.Emit(evt)
	}
	receipt.Success = true
	receipt.Events = buffer.Payloads()

	elapsed := r.now().Sub(start)
	observability.Runtime().Observe(name, 0, false, elapsed)
	span.SetStatus(codes.Ok, "")
	r.logger.Info("transaction committed",
		slog.String("tx", hashHex),
		slog.String("program", name),
		slog.Int("events", len(receipt.Events)),
		slog.Duration("elapsed", elapsed))
	return receipt, nil
}

type codedError struct {
	err  error
	code uint32
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func (r *Runtime) codedError(program Program, err error) error {
	if coder, ok := program.(ErrorCoder); ok {
		if code := coder.ErrorCode(err); code != 0 {
			return &codedError{err: err, code: code}
		}
	}
	return err
}

// ErrorCode maps err onto the code recorded in receipts.
func ErrorCode(err error) uint32 {
	if err == nil {
		return 0
	}
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	for _, candidate := range runtimeCodes {
		if errors.Is(err, candidate.err) {
			return candidate.code
		}
	}
	return CodeUnknown
}

func (r *Runtime) fail(receipt *types.Receipt, program string, err error, span trace.Span, start time.Time) (*types.Receipt, error) {
	code := ErrorCode(err)
	receipt.Success = false
	receipt.Error = err.Error()
	receipt.ErrorCode = code
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	observability.Runtime().Observe(program, code, true, r.now().Sub(start))
	r.logger.Warn("transaction aborted",
		slog.String("tx", hex.EncodeToString(receipt.TxHash[:])),
		slog.String("program", program),
		slog.Uint64("code", uint64(code)),
		slog.Any("error", err))
	return receipt, err
}

func (r *Runtime) checkSignatures(tx *types.Transaction) error {
	signed, err := tx.VerifySignatures()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	for _, meta := range tx.Instruction.Accounts {
		if meta.IsSigner && !signed[meta.PublicKey] {
			return fmt.Errorf("%w: %s", ErrMissingSignature, meta.PublicKey)
		}
	}
	return nil
}

func (r *Runtime) loadAccounts(metas []types.AccountMeta) ([]*types.AccountInfo, map[crypto.PublicKey]*types.AccountInfo, error) {
	infos := make([]*types.AccountInfo, len(metas))
	unique := make(map[crypto.PublicKey]*types.AccountInfo, len(metas))
	for i, meta := range metas {
		if info, ok := unique[meta.PublicKey]; ok {
			info.IsSigner = info.IsSigner || meta.IsSigner
			info.IsWritable = info.IsWritable || meta.IsWritable
			infos[i] = info
			continue
		}
		account, err := r.state.GetAccount(meta.PublicKey)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrStateFailure, err)
		}
		info := types.NewAccountInfo(meta.PublicKey, meta.IsSigner, meta.IsWritable, account)
		unique[meta.PublicKey] = info
		infos[i] = info
	}
	return infos, unique, nil
}

func invoke(ctx context.Context, program Program, call *Call) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: %v", ErrProgramFault, recovered)
		}
	}()
	return program.Process(ctx, call)
}

func verifyEffects(unique map[crypto.PublicKey]*types.AccountInfo, snapshots map[crypto.PublicKey]*types.Account) error {
	var before, after uint64
	for key, info := range unique {
		prior := snapshots[key]
		if sum := before + prior.Lamports; sum >= before {
			before = sum
		} else {
			return fmt.Errorf("%w: lamport total overflows", ErrUnbalancedTransaction)
		}
		if sum := after + info.Lamports; sum >= after {
			after = sum
		} else {
			return fmt.Errorf("%w: lamport total overflows", ErrUnbalancedTransaction)
		}
		changed := prior.Lamports != info.Lamports ||
			prior.Owner != info.Owner ||
			prior.Executable != info.Executable ||
			!bytes.Equal(prior.Data, info.Data)
		if !changed {
			continue
		}
		if !info.IsWritable {
			return fmt.Errorf("%w: %s", ErrReadonlyModified, key)
		}
		if prior.Executable {
			return fmt.Errorf("%w: %s", ErrExecutableModified, key)
		}
	}
	if before != after {
		return fmt.Errorf("%w: before %d after %d", ErrUnbalancedTransaction, before, after)
	}
	return nil
}

func processedKey(hash string) string {
	return "tx:" + hash
}
