package models

import "math"

// EscrowAccount is the reserved ledger account holding value locked by agreements.
// It is not a valid Stellar account ID, so no witness can ever cover it.
const EscrowAccount = "escrow"

// Balance is the amount an account holds inside the contract
type Balance struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

// SumAmounts adds non-negative amounts. ok is false when the sum does not fit in an int64.
func SumAmounts(amounts ...int64) (sum int64, ok bool) {
	for _, a := range amounts {
		if a < 0 || sum > math.MaxInt64-a {
			return 0, false
		}
		sum += a
	}
	return sum, true
}
