package escrow

import (
	"fmt"

	"multiswap/core/types"
)

// CustodyLegAccounts are the accounts supplied for one side-A leg, in order.
type CustodyLegAccounts struct {
	InitiatorAsset    *types.AccountInfo
	CounterpartyAsset *types.AccountInfo
	Custody           *types.AccountInfo
}

// DirectLegAccounts are the accounts supplied for one side-B leg, in order.
type DirectLegAccounts struct {
	InitiatorAsset    *types.AccountInfo
	CounterpartyAsset *types.AccountInfo
}

// Accounts is the positional account list of one escrow instruction.
//
//	commit: initiator counterparty escrow rent token [A triples] [B pairs] system
//	cancel: initiator counterparty escrow rent token authority [A triples] [B pairs]
//	settle: initiator counterparty escrow rent token authority [A triples] [B pairs] system
//
// The trailing system program is optional when no native transfer is needed.
type Accounts struct {
	Initiator     *types.AccountInfo
	Counterparty  *types.AccountInfo
	Escrow        *types.AccountInfo
	RentSysvar    *types.AccountInfo
	TokenProgram  *types.AccountInfo
	Authority     *types.AccountInfo
	LegsA         []CustodyLegAccounts
	LegsB         []DirectLegAccounts
	SystemProgram *types.AccountInfo
}

type accountIter struct {
	accounts []*types.AccountInfo
	pos      int
}

func (it *accountIter) next(name string) (*types.AccountInfo, error) {
	if it.pos >= len(it.accounts) {
		return nil, fmt.Errorf("%w: missing %s at position %d", ErrNotEnoughAccounts, name, it.pos)
	}
	info := it.accounts[it.pos]
	it.pos++
	return info, nil
}

func (it *accountIter) optional() *types.AccountInfo {
	if it.pos >= len(it.accounts) {
		return nil
	}
	info := it.accounts[it.pos]
	it.pos++
	return info
}

// ParseAccounts splits infos according to the layout of cmd.Kind, taking as
// many leg accounts as cmd declares.
func ParseAccounts(cmd *Command, infos []*types.AccountInfo) (*Accounts, error) {
	it := &accountIter{accounts: infos}
	accts := &Accounts{}
	var err error
	if accts.Initiator, err = it.next("initiator"); err != nil {
		return nil, err
	}
	if accts.Counterparty, err = it.next("counterparty"); err != nil {
		return nil, err
	}
	if accts.Escrow, err = it.next("escrow"); err != nil {
		return nil, err
	}
	if accts.RentSysvar, err = it.next("rent sysvar"); err != nil {
		return nil, err
	}
	if accts.TokenProgram, err = it.next("token program"); err != nil {
		return nil, err
	}
	if cmd.Kind != CommandCommit {
		if accts.Authority, err = it.next("authority"); err != nil {
			return nil, err
		}
	}

	accts.LegsA = make([]CustodyLegAccounts, cmd.LegCountA)
	for i := range accts.LegsA {
		leg := &accts.LegsA[i]
		if leg.InitiatorAsset, err = it.next(fmt.Sprintf("leg a[%d] initiator asset", i)); err != nil {
			return nil, err
		}
		if leg.CounterpartyAsset, err = it.next(fmt.Sprintf("leg a[%d] counterparty asset", i)); err != nil {
			return nil, err
		}
		if leg.Custody, err = it.next(fmt.Sprintf("leg a[%d] custody", i)); err != nil {
			return nil, err
		}
	}
	accts.LegsB = make([]DirectLegAccounts, cmd.LegCountB)
	for j := range accts.LegsB {
		leg := &accts.LegsB[j]
		if leg.InitiatorAsset, err = it.next(fmt.Sprintf("leg b[%d] initiator asset", j)); err != nil {
			return nil, err
		}
		if leg.CounterpartyAsset, err = it.next(fmt.Sprintf("leg b[%d] counterparty asset", j)); err != nil {
			return nil, err
		}
	}
	if cmd.Kind != CommandCancel {
		accts.SystemProgram = it.optional()
	}
	return accts, nil
}
