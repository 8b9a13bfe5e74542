package system

import "math"

// AccountStorageOverhead is charged on top of an account's data length.
const AccountStorageOverhead = 128

// Rent holds the parameters deciding whether an account is exempt from rent
// collection.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64
}

// DefaultRent mirrors the parameters of public clusters.
func DefaultRent() Rent {
	return Rent{LamportsPerByteYear: 3480, ExemptionThreshold: 2.0}
}

// MinimumBalance returns the lamports an account of size bytes must hold to
// be rent exempt. Results that do not fit a uint64 saturate.
func (r Rent) MinimumBalance(size uint64) uint64 {
	bytes := float64(size) + AccountStorageOverhead
	balance := bytes * float64(r.LamportsPerByteYear) * r.ExemptionThreshold
	if balance >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(balance)
}

// IsExempt reports whether lamports cover the exemption minimum for size.
func (r Rent) IsExempt(lamports uint64, size int) bool {
	if size < 0 {
		return false
	}
	return lamports >= r.MinimumBalance(uint64(size))
}
