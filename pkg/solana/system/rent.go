package system

// Default rent parameters of a cluster.
//
// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/program/src/rent.rs#L31-L45
const (
	LamportsPerByteYear    = 3480
	ExemptionThreshold     = 2
	AccountStorageOverhead = 128
)

// MinimumBalanceForRentExemption returns the lamports an account of the given
// data size must hold to be exempt from rent collection.
func MinimumBalanceForRentExemption(size uint64) uint64 {
	return (AccountStorageOverhead + size) * LamportsPerByteYear * ExemptionThreshold
}

// IsRentExempt reports whether the balance covers an account of the given size.
func IsRentExempt(lamports, size uint64) bool {
	return lamports >= MinimumBalanceForRentExemption(size)
}
