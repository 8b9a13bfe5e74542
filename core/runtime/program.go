package runtime

import (
	"context"
	"log/slog"

	"multiswap/core/events"
	"multiswap/core/types"
	"multiswap/crypto"
)

// Program is a native program hosted by the runtime. Process mutates the
// borrowed account buffers in place; returning an error discards every change
// made during the call.
type Program interface {
	Process(ctx context.Context, call *Call) error
}

// ErrorCoder is implemented by programs that map their errors onto stable
// numeric codes for receipts.
type ErrorCoder interface {
	ErrorCode(err error) uint32
}

// Call bundles everything a program sees for one instruction.
type Call struct {
	ProgramID crypto.PublicKey
	// Accounts follow the instruction's account order. Repeated keys share the
	// same *AccountInfo.
	Accounts []*types.AccountInfo
	Data     []byte
	Emitter  events.Emitter
	Logger   *slog.Logger
}

// Emit forwards evt to the call's emitter when one is configured.
func (c *Call) Emit(evt events.Event) {
	if c == nil || c.Emitter == nil {
		return
	}
	c.Emitter.Emit(evt)
}

// Log returns the call logger, falling back to the process default.
func (c *Call) Log() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
