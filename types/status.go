// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import "fmt"

// StatusCode identifies why a transaction was discarded during
// validation or how its execution concluded.
type StatusCode uint32

const (
	// Execution outcomes (kept transactions).
	StatusExecuted StatusCode = iota
	StatusOutOfGas
	StatusAborted
	StatusMissingData

	// Validation failures (discarded transactions).
	StatusInvalidSignature
	StatusInvalidAuthKey
	StatusSequenceNumberTooOld
	StatusSequenceNumberTooNew
	StatusSequenceNumberTooBig
	StatusInsufficientBalance
	StatusTransactionExpired
	StatusBadChainID
	StatusExceededMaxTransactionSize
	StatusMaxGasUnitsExceedsBound
	StatusMaxGasUnitsBelowIntrinsic
	StatusGasUnitPriceBelowMinBound
	StatusGasUnitPriceAboveMaxBound
	StatusModulePublishingDisabled
	StatusInvalidWriteSet
	StatusRejectedWriteSet
	StatusDataFormatError
	StatusVMStartupFailure
	StatusUnknownPayload
)

var statusNames = map[StatusCode]string{
	StatusExecuted:                   "EXECUTED",
	StatusOutOfGas:                   "OUT_OF_GAS",
	StatusAborted:                    "ABORTED",
	StatusMissingData:                "MISSING_DATA",
	StatusInvalidSignature:           "INVALID_SIGNATURE",
	StatusInvalidAuthKey:             "INVALID_AUTH_KEY",
	StatusSequenceNumberTooOld:       "SEQUENCE_NUMBER_TOO_OLD",
	StatusSequenceNumberTooNew:       "SEQUENCE_NUMBER_TOO_NEW",
	StatusSequenceNumberTooBig:       "SEQUENCE_NUMBER_TOO_BIG",
	StatusInsufficientBalance:        "INSUFFICIENT_BALANCE",
	StatusTransactionExpired:         "TRANSACTION_EXPIRED",
	StatusBadChainID:                 "BAD_CHAIN_ID",
	StatusExceededMaxTransactionSize: "EXCEEDED_MAX_TRANSACTION_SIZE",
	StatusMaxGasUnitsExceedsBound:    "MAX_GAS_UNITS_EXCEEDS_BOUND",
	StatusMaxGasUnitsBelowIntrinsic:  "MAX_GAS_UNITS_BELOW_INTRINSIC",
	StatusGasUnitPriceBelowMinBound:  "GAS_UNIT_PRICE_BELOW_MIN_BOUND",
	StatusGasUnitPriceAboveMaxBound:  "GAS_UNIT_PRICE_ABOVE_MAX_BOUND",
	StatusModulePublishingDisabled:   "MODULE_PUBLISHING_DISABLED",
	StatusInvalidWriteSet:            "INVALID_WRITE_SET",
	StatusRejectedWriteSet:           "REJECTED_WRITE_SET",
	StatusDataFormatError:            "DATA_FORMAT_ERROR",
	StatusVMStartupFailure:           "VM_STARTUP_FAILURE",
	StatusUnknownPayload:             "UNKNOWN_PAYLOAD",
}

func (c StatusCode) String() string {
	if name, ok := statusNames[c]; ok {
		return name
	}
	return fmt.Sprintf("STATUS_%d", uint32(c))
}

// TransactionStatus is the final disposition of a transaction: kept on
// the ledger (possibly having aborted) or discarded before execution.
type TransactionStatus struct {
	Code      StatusCode `serialize:"true" json:"code"`
	Discarded bool       `serialize:"true" json:"discarded"`
}

// Keep marks a transaction as committed to the ledger with [code].
func Keep(code StatusCode) TransactionStatus {
	return TransactionStatus{Code: code}
}

// Discard marks a transaction as rejected during validation with [code].
// Discarded transactions leave no trace in ledger state.
func Discard(code StatusCode) TransactionStatus {
	return TransactionStatus{Code: code, Discarded: true}
}

// IsSuccess reports whether the transaction was kept and executed cleanly.
func (s TransactionStatus) IsSuccess() bool {
	return !s.Discarded && s.Code == StatusExecuted
}

func (s TransactionStatus) String() string {
	if s.Discarded {
		return "Discard(" + s.Code.String() + ")"
	}
	return "Keep(" + s.Code.String() + ")"
}
