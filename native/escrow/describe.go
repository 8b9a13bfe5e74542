package escrow

import "encoding/hex"

// LegView is the display form of one leg.
type LegView struct {
	InitiatorAsset    string `json:"initiatorAsset"`
	CounterpartyAsset string `json:"counterpartyAsset"`
	Custody           string `json:"custody,omitempty"`
	Amount            uint64 `json:"amount"`
}

// RecordView is the display form of a stored record.
type RecordView struct {
	Status          string    `json:"status"`
	NativeDirection string    `json:"nativeDirection"`
	ReserveAmount   uint64    `json:"reserveAmount"`
	Initiator       string    `json:"initiator"`
	Counterparty    string    `json:"counterparty"`
	LegsA           []LegView `json:"legsA"`
	LegsB           []LegView `json:"legsB"`
	TermsHash       string    `json:"termsHash,omitempty"`
}

// DescribeRecord renders rec with base58 keys. Uncommitted records carry only
// their status.
func DescribeRecord(rec *Record) *RecordView {
	view := &RecordView{
		Status:          rec.Status.String(),
		NativeDirection: rec.NativeDirection.String(),
		ReserveAmount:   rec.ReserveAmount,
		LegsA:           []LegView{},
		LegsB:           []LegView{},
	}
	if rec.Status != StatusCommitted {
		return view
	}
	view.Initiator = rec.Initiator.String()
	view.Counterparty = rec.Counterparty.String()
	for _, leg := range rec.LegsA[:rec.LegCountA] {
		view.LegsA = append(view.LegsA, LegView{
			InitiatorAsset:    leg.InitiatorAsset.String(),
			CounterpartyAsset: leg.CounterpartyAsset.String(),
			Custody:           leg.Custody.String(),
			Amount:            leg.Amount,
		})
	}
	for _, leg := range rec.LegsB[:rec.LegCountB] {
		view.LegsB = append(view.LegsB, LegView{
			InitiatorAsset:    leg.InitiatorAsset.String(),
			CounterpartyAsset: leg.CounterpartyAsset.String(),
			Amount:            leg.Amount,
		})
	}
	hash := TermsHash(rec)
	view.TermsHash = hex.EncodeToString(hash[:])
	return view
}

// CommandView is the display form of a decoded instruction.
type CommandView struct {
	Kind            string   `json:"kind"`
	NativeDirection string   `json:"nativeDirection"`
	ReserveAmount   uint64   `json:"reserveAmount"`
	LegAmountsA     []uint64 `json:"legAmountsA"`
	LegAmountsB     []uint64 `json:"legAmountsB"`
}

// DescribeCommand renders cmd with only the populated leg amounts.
func DescribeCommand(cmd *Command) *CommandView {
	return &CommandView{
		Kind:            cmd.Kind.String(),
		NativeDirection: cmd.NativeDirection.String(),
		ReserveAmount:   cmd.ReserveAmount,
		LegAmountsA:     append([]uint64{}, cmd.LegAmountsA[:cmd.LegCountA]...),
		LegAmountsB:     append([]uint64{}, cmd.LegAmountsB[:cmd.LegCountB]...),
	}
}
