// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import (
	"errors"

	log "github.com/inconshreveable/log15"

	safemath "github.com/ava-labs/avalanchego/utils/math"

	"github.com/slatevm/slate/types"
)

var errOutOfGas = errors.New("out of gas")

// checkGas bounds-checks the gas parameters a transaction declares
// before any state is read. A zero return means the parameters are
// acceptable.
func (vm *VM) checkGas(txn *types.SignedTransaction, size uint64) (types.StatusCode, bool) {
	constants := vm.config.GasConstants

	if size > constants.MaxTransactionSizeBytes {
		log.Warn("transaction size too big", "size", size, "max", constants.MaxTransactionSizeBytes)
		return types.StatusExceededMaxTransactionSize, false
	}

	// The declared max gas must sit inside the global bound and above
	// the intrinsic cost of shipping a transaction of this size.
	if txn.Raw.MaxGasAmount > constants.MaximumNumberOfGasUnits {
		log.Warn("max gas above bound",
			"submitted", txn.Raw.MaxGasAmount,
			"max", constants.MaximumNumberOfGasUnits,
		)
		return types.StatusMaxGasUnitsExceedsBound, false
	}
	if minGas := constants.IntrinsicGas(size); txn.Raw.MaxGasAmount < minGas {
		log.Warn("max gas below intrinsic cost",
			"submitted", txn.Raw.MaxGasAmount,
			"min", minGas,
		)
		return types.StatusMaxGasUnitsBelowIntrinsic, false
	}

	if txn.Raw.GasUnitPrice < constants.MinPricePerGasUnit {
		return types.StatusGasUnitPriceBelowMinBound, false
	}
	if txn.Raw.GasUnitPrice > constants.MaxPricePerGasUnit {
		return types.StatusGasUnitPriceAboveMaxBound, false
	}
	return 0, true
}

// gasMeter deducts execution charges from a transaction's declared
// budget.
type gasMeter struct {
	max  uint64
	used uint64
}

func newGasMeter(max uint64) *gasMeter {
	return &gasMeter{max: max}
}

// Charge deducts [amount] gas, failing with errOutOfGas once the budget
// is exhausted. On failure the meter reads as fully used.
func (g *gasMeter) Charge(amount uint64) error {
	used, err := safemath.Add64(g.used, amount)
	if err != nil || used > g.max {
		g.used = g.max
		return errOutOfGas
	}
	g.used = used
	return nil
}

// Used returns the gas consumed so far.
func (g *gasMeter) Used() uint64 { return g.used }

// Fee returns the coin fee for the gas consumed at [price].
func (g *gasMeter) Fee(price uint64) (uint64, error) {
	return safemath.Mul64(g.used, price)
}
