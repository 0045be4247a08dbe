package ledger

const (
	// AccountStorageOverhead is charged on top of the data length of every account.
	AccountStorageOverhead = 128
	// RentPerByteYear is the rent price of one byte for one year.
	RentPerByteYear = 3480
	// ExemptionThresholdYears is how many years of rent make an account exempt.
	ExemptionThresholdYears = 2
)

// MinimumBalance returns the deposit that makes an account of space bytes
// rent exempt. Creation charges it to the payer; closing refunds it.
func MinimumBalance(space int) uint64 {
	return uint64(AccountStorageOverhead+space) * RentPerByteYear * ExemptionThresholdYears
}
