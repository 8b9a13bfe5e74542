package escrow

import (
	"encoding/hex"
	"strconv"

	"lukechampine.com/blake3"

	"multiswap/core/types"
	"multiswap/crypto"
)

const (
	EventTypeCommitted = "escrow.committed"
	EventTypeCancelled = "escrow.cancelled"
	EventTypeSettled   = "escrow.settled"
)

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

// TermsHash digests the encoded record so observers can match the three
// lifecycle events of one trade without storing its full terms.
func TermsHash(rec *Record) [32]byte {
	return blake3.Sum256(rec.Encode())
}

// NewCommittedEvent returns the payload emitted when escrow records rec.
func NewCommittedEvent(escrow crypto.PublicKey, rec *Record) *types.Event {
	return newRecordEvent(EventTypeCommitted, escrow, rec)
}

// NewCancelledEvent returns the payload emitted when the initiator unwinds rec.
func NewCancelledEvent(escrow crypto.PublicKey, rec *Record) *types.Event {
	return newRecordEvent(EventTypeCancelled, escrow, rec)
}

// NewSettledEvent returns the payload emitted when the counterparty completes
// rec.
func NewSettledEvent(escrow crypto.PublicKey, rec *Record) *types.Event {
	return newRecordEvent(EventTypeSettled, escrow, rec)
}

func newRecordEvent(eventType string, escrow crypto.PublicKey, rec *Record) *types.Event {
	attrs := map[string]string{"escrow": escrow.String()}
	if rec != nil {
		hash := TermsHash(rec)
		attrs["initiator"] = rec.Initiator.String()
		attrs["counterparty"] = rec.Counterparty.String()
		attrs["legsA"] = strconv.Itoa(int(rec.LegCountA))
		attrs["legsB"] = strconv.Itoa(int(rec.LegCountB))
		attrs["direction"] = rec.NativeDirection.String()
		attrs["reserve"] = strconv.FormatUint(rec.ReserveAmount, 10)
		attrs["termsHash"] = hex.EncodeToString(hash[:])
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
