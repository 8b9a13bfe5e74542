package escrow

import (
	"fmt"

	"multiswap/core/types"
	"multiswap/crypto"
)

// Terms describe a trade from the client's side: the participants, the
// escrow storage account and every leg with its accounts.
type Terms struct {
	Initiator       crypto.PublicKey `json:"initiator"`
	Counterparty    crypto.PublicKey `json:"counterparty"`
	Escrow          crypto.PublicKey `json:"escrow"`
	NativeDirection NativeDirection  `json:"nativeDirection"`
	ReserveAmount   uint64           `json:"reserveAmount"`
	LegsA           []CustodyLeg     `json:"legsA"`
	LegsB           []DirectLeg      `json:"legsB"`
}

// Command returns the command of kind carrying the terms' amounts.
func (t *Terms) Command(kind CommandKind) (*Command, error) {
	if len(t.LegsA) > MaxLegs || len(t.LegsB) > MaxLegs {
		return nil, fmt.Errorf("%w: %d/%d legs exceed %d", ErrMalformedInstruction, len(t.LegsA), len(t.LegsB), MaxLegs)
	}
	cmd := &Command{
		Kind:            kind,
		NativeDirection: t.NativeDirection,
		ReserveAmount:   t.ReserveAmount,
		LegCountA:       uint8(len(t.LegsA)),
		LegCountB:       uint8(len(t.LegsB)),
	}
	for i, leg := range t.LegsA {
		cmd.LegAmountsA[i] = leg.Amount
	}
	for j, leg := range t.LegsB {
		cmd.LegAmountsB[j] = leg.Amount
	}
	return cmd, cmd.Validate()
}

// TermsFromRecord rebuilds client terms from a stored record.
func TermsFromRecord(escrow crypto.PublicKey, rec *Record) *Terms {
	t := &Terms{
		Initiator:       rec.Initiator,
		Counterparty:    rec.Counterparty,
		Escrow:          escrow,
		NativeDirection: rec.NativeDirection,
		ReserveAmount:   rec.ReserveAmount,
		LegsA:           append([]CustodyLeg(nil), rec.LegsA[:rec.LegCountA]...),
		LegsB:           append([]DirectLeg(nil), rec.LegsB[:rec.LegCountB]...),
	}
	return t
}

func meta(key crypto.PublicKey, signer, writable bool) types.AccountMeta {
	return types.AccountMeta{PublicKey: key, IsSigner: signer, IsWritable: writable}
}

func (t *Terms) instruction(cfg Config, kind CommandKind) (types.Instruction, error) {
	cmd, err := t.Command(kind)
	if err != nil {
		return types.Instruction{}, err
	}
	data, err := EncodeInstruction(cmd)
	if err != nil {
		return types.Instruction{}, err
	}

	var metas []types.AccountMeta
	switch kind {
	case CommandCommit:
		metas = append(metas,
			meta(t.Initiator, true, true),
			meta(t.Counterparty, false, false),
			meta(t.Escrow, true, true),
		)
	case CommandCancel:
		metas = append(metas,
			meta(t.Initiator, true, true),
			meta(t.Counterparty, false, false),
			meta(t.Escrow, false, true),
		)
	case CommandSettle:
		metas = append(metas,
			meta(t.Initiator, false, true),
			meta(t.Counterparty, true, true),
			meta(t.Escrow, false, true),
		)
	}
	metas = append(metas,
		meta(cfg.RentSysvarID, false, false),
		meta(cfg.TokenProgramID, false, false),
	)
	if kind != CommandCommit {
		seed := cfg.AuthoritySeed
		if seed == "" {
			seed = DefaultAuthoritySeed
		}
		authority, _, err := crypto.DeriveAuthority([]byte(seed), cfg.ProgramID)
		if err != nil {
			return types.Instruction{}, err
		}
		metas = append(metas, meta(authority, false, false))
	}
	for _, leg := range t.LegsA {
		metas = append(metas,
			meta(leg.InitiatorAsset, false, kind != CommandSettle),
			meta(leg.CounterpartyAsset, false, kind == CommandSettle),
			meta(leg.Custody, false, true),
		)
	}
	for _, leg := range t.LegsB {
		metas = append(metas,
			meta(leg.InitiatorAsset, false, kind == CommandSettle),
			meta(leg.CounterpartyAsset, false, kind == CommandSettle),
		)
	}
	if kind != CommandCancel {
		metas = append(metas, meta(cfg.SystemProgramID, false, false))
	}
	return types.Instruction{ProgramID: cfg.ProgramID, Accounts: metas, Data: data}, nil
}

// NewCommitInstruction builds the commit signed by the initiator and the
// escrow account, which is the custody accounts' pre-commit authority.
func NewCommitInstruction(cfg Config, t *Terms) (types.Instruction, error) {
	return t.instruction(cfg, CommandCommit)
}

// NewCancelInstruction builds the cancel signed by the initiator.
func NewCancelInstruction(cfg Config, t *Terms) (types.Instruction, error) {
	return t.instruction(cfg, CommandCancel)
}

// NewSettleInstruction builds the settle signed by the counterparty.
func NewSettleInstruction(cfg Config, t *Terms) (types.Instruction, error) {
	return t.instruction(cfg, CommandSettle)
}
