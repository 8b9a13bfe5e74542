package escrow

import (
	"fmt"

	"multiswap/crypto"
)

// expectedRecord rebuilds the record a commit with cmd and accts would have
// written.
func expectedRecord(cmd *Command, accts *Accounts) *Record {
	rec := &Record{
		Status:          StatusCommitted,
		LegCountA:       cmd.LegCountA,
		LegCountB:       cmd.LegCountB,
		NativeDirection: cmd.NativeDirection,
		ReserveAmount:   cmd.ReserveAmount,
		Initiator:       accts.Initiator.Key,
		Counterparty:    accts.Counterparty.Key,
	}
	for i, leg := range accts.LegsA {
		rec.LegsA[i] = CustodyLeg{
			InitiatorAsset:    leg.InitiatorAsset.Key,
			CounterpartyAsset: leg.CounterpartyAsset.Key,
			Custody:           leg.Custody.Key,
			Amount:            cmd.LegAmountsA[i],
		}
	}
	for j, leg := range accts.LegsB {
		rec.LegsB[j] = DirectLeg{
			InitiatorAsset:    leg.InitiatorAsset.Key,
			CounterpartyAsset: leg.CounterpartyAsset.Key,
			Amount:            cmd.LegAmountsB[j],
		}
	}
	return rec
}

func mismatch(field string, stored, supplied any) error {
	return fmt.Errorf("%w: %s stored %v, supplied %v", ErrTermsMismatch, field, stored, supplied)
}

func compareKey(field string, stored, supplied crypto.PublicKey) error {
	if stored != supplied {
		return mismatch(field, stored, supplied)
	}
	return nil
}

// ValidateCommitment checks that the resubmitted command and accounts
// reproduce the stored record exactly. Every field is compared; the first
// difference aborts.
func ValidateCommitment(cmd *Command, stored *Record, accts *Accounts) error {
	if stored == nil || stored.Status != StatusCommitted {
		return ErrNotCommitted
	}
	want := expectedRecord(cmd, accts)

	if stored.LegCountA != want.LegCountA {
		return mismatch("leg_count_a", stored.LegCountA, want.LegCountA)
	}
	if stored.LegCountB != want.LegCountB {
		return mismatch("leg_count_b", stored.LegCountB, want.LegCountB)
	}
	if stored.NativeDirection != want.NativeDirection {
		return mismatch("native_direction", stored.NativeDirection, want.NativeDirection)
	}
	if stored.ReserveAmount != want.ReserveAmount {
		return mismatch("reserve_amount", stored.ReserveAmount, want.ReserveAmount)
	}
	if err := compareKey("initiator", stored.Initiator, want.Initiator); err != nil {
		return err
	}
	if err := compareKey("counterparty", stored.Counterparty, want.Counterparty); err != nil {
		return err
	}
	for i := 0; i < int(stored.LegCountA); i++ {
		s, w := stored.LegsA[i], want.LegsA[i]
		if err := compareKey(fmt.Sprintf("leg a[%d] initiator asset", i), s.InitiatorAsset, w.InitiatorAsset); err != nil {
			return err
		}
		if err := compareKey(fmt.Sprintf("leg a[%d] counterparty asset", i), s.CounterpartyAsset, w.CounterpartyAsset); err != nil {
			return err
		}
		if err := compareKey(fmt.Sprintf("leg a[%d] custody", i), s.Custody, w.Custody); err != nil {
			return err
		}
		if s.Amount != w.Amount {
			return mismatch(fmt.Sprintf("leg a[%d] amount", i), s.Amount, w.Amount)
		}
	}
	for j := 0; j < int(stored.LegCountB); j++ {
		s, w := stored.LegsB[j], want.LegsB[j]
		if err := compareKey(fmt.Sprintf("leg b[%d] initiator asset", j), s.InitiatorAsset, w.InitiatorAsset); err != nil {
			return err
		}
		if err := compareKey(fmt.Sprintf("leg b[%d] counterparty asset", j), s.CounterpartyAsset, w.CounterpartyAsset); err != nil {
			return err
		}
		if s.Amount != w.Amount {
			return mismatch(fmt.Sprintf("leg b[%d] amount", j), s.Amount, w.Amount)
		}
	}
	return nil
}
