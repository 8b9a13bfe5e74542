package escrow

import (
	"fmt"

	"multiswap/crypto"
)

// Status is the first byte of an escrow record.
type Status uint8

const (
	StatusUninitialized Status = 0
	StatusCommitted     Status = 1
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusCommitted:
		return "committed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Record layout sizes. Integers are big-endian.
const (
	HeaderSize     = 1 + 1 + 1 + 1 + 8 + 32 + 32
	CustodyLegSize = 32 + 32 + 32 + 8
	DirectLegSize  = 32 + 32 + 8
	// MaxRecordSize is the capacity every escrow account must be allocated
	// with, whatever leg counts it will carry.
	MaxRecordSize = HeaderSize + MaxLegs*CustodyLegSize + MaxLegs*DirectLegSize
)

// CustodyLeg is an asset lot the initiator parks in a custody account at
// commit.
type CustodyLeg struct {
	InitiatorAsset    crypto.PublicKey `json:"initiatorAsset"`
	CounterpartyAsset crypto.PublicKey `json:"counterpartyAsset"`
	Custody           crypto.PublicKey `json:"custody"`
	Amount            uint64           `json:"amount"`
}

// DirectLeg is an asset lot the counterparty pays straight to the initiator at
// settle.
type DirectLeg struct {
	InitiatorAsset    crypto.PublicKey `json:"initiatorAsset"`
	CounterpartyAsset crypto.PublicKey `json:"counterpartyAsset"`
	Amount            uint64           `json:"amount"`
}

// Record is the durable state of one escrow account.
type Record struct {
	Status          Status
	LegCountA       uint8
	LegCountB       uint8
	NativeDirection NativeDirection
	ReserveAmount   uint64
	Initiator       crypto.PublicKey
	Counterparty    crypto.PublicKey
	LegsA           [MaxLegs]CustodyLeg
	LegsB           [MaxLegs]DirectLeg
}

// RecordSize returns the encoded length of a record carrying a and b legs.
func RecordSize(a, b int) int {
	return HeaderSize + a*CustodyLegSize + b*DirectLegSize
}

// Size returns the encoded length of r.
func (r *Record) Size() int {
	return RecordSize(int(r.LegCountA), int(r.LegCountB))
}

// WriteRecord encodes r into buf in a single left-to-right pass. Writing past
// the end of buf panics with CursorOverflow; callers size buf to
// MaxRecordSize.
func WriteRecord(buf []byte, r *Record) {
	w := NewWriter(buf)
	w.WriteU8(uint8(r.Status))
	w.WriteU8(r.LegCountA)
	w.WriteU8(r.LegCountB)
	w.WriteU8(uint8(r.NativeDirection))
	w.WriteU64BE(r.ReserveAmount)
	w.WritePubkey(r.Initiator)
	w.WritePubkey(r.Counterparty)
	for i := 0; i < int(r.LegCountA); i++ {
		leg := &r.LegsA[i]
		w.WritePubkey(leg.InitiatorAsset)
		w.WritePubkey(leg.CounterpartyAsset)
		w.WritePubkey(leg.Custody)
		w.WriteU64BE(leg.Amount)
	}
	for j := 0; j < int(r.LegCountB); j++ {
		leg := &r.LegsB[j]
		w.WritePubkey(leg.InitiatorAsset)
		w.WritePubkey(leg.CounterpartyAsset)
		w.WriteU64BE(leg.Amount)
	}
}

// ReadRecord decodes the record stored in buf. Unlike WriteRecord it checks
// the declared leg counts against the buffer before walking it.
func ReadRecord(buf []byte) (*Record, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrStorageUndersized, len(buf))
	}
	status := Status(buf[0])
	if status > StatusCommitted {
		return nil, fmt.Errorf("%w: status %d", ErrCorruptRecord, buf[0])
	}
	countA, countB := buf[1], buf[2]
	if countA > MaxLegs || countB > MaxLegs {
		return nil, fmt.Errorf("%w: leg counts %d/%d", ErrCorruptRecord, countA, countB)
	}
	if need := RecordSize(int(countA), int(countB)); len(buf) < need {
		return nil, fmt.Errorf("%w: %d bytes, record needs %d", ErrStorageUndersized, len(buf), need)
	}

	r := NewReader(buf)
	rec := &Record{
		Status:          Status(r.ReadU8()),
		LegCountA:       r.ReadU8(),
		LegCountB:       r.ReadU8(),
		NativeDirection: NativeDirection(r.ReadU8()),
		ReserveAmount:   r.ReadU64BE(),
		Initiator:       r.ReadPubkey(),
		Counterparty:    r.ReadPubkey(),
	}
	for i := 0; i < int(rec.LegCountA); i++ {
		rec.LegsA[i] = CustodyLeg{
			InitiatorAsset:    r.ReadPubkey(),
			CounterpartyAsset: r.ReadPubkey(),
			Custody:           r.ReadPubkey(),
			Amount:            r.ReadU64BE(),
		}
	}
	for j := 0; j < int(rec.LegCountB); j++ {
		rec.LegsB[j] = DirectLeg{
			InitiatorAsset:    r.ReadPubkey(),
			CounterpartyAsset: r.ReadPubkey(),
			Amount:            r.ReadU64BE(),
		}
	}
	return rec, nil
}

// EraseRecord zero-fills buf.
func EraseRecord(buf []byte) {
	clear(buf)
}

// Encode returns r as a freshly allocated byte slice of exactly r.Size bytes.
func (r *Record) Encode() []byte {
	buf := make([]byte, r.Size())
	WriteRecord(buf, r)
	return buf
}
