package domain

import "fmt"

// Money is an amount in the smallest currency unit (cents). Fee adjustments
// in basis points stay exact on this representation; floating point is never
// used for financial values.
type Money int64

// ApplyBasisPoints returns m adjusted by bps basis points (1 bps = 0.01%).
// Rounding is toward zero, matching ledger truncation rules.
func (m Money) ApplyBasisPoints(bps int64) Money {
	return m + Money(int64(m)*bps/10_000)
}

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d", int64(m)/100, abs(int64(m)%100))
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
