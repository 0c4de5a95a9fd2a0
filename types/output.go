// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package types

// TransactionOutput is the raw VM output for one transaction: the state
// mutations to apply, the events emitted, the gas consumed, and the
// final status.
type TransactionOutput struct {
	WriteSet WriteSet          `serialize:"true" json:"writeSet"`
	Events   []ContractEvent   `serialize:"true" json:"events"`
	GasUsed  uint64            `serialize:"true" json:"gasUsed"`
	Status   TransactionStatus `serialize:"true" json:"status"`
}

// NewTransactionOutput bundles the pieces of a kept output.
func NewTransactionOutput(ws WriteSet, events []ContractEvent, gasUsed uint64, status TransactionStatus) TransactionOutput {
	return TransactionOutput{
		WriteSet: ws,
		Events:   events,
		GasUsed:  gasUsed,
		Status:   status,
	}
}

// DiscardedOutput returns the empty output recorded for a transaction
// discarded with [code]. Discarded transactions touch no state and burn
// no gas.
func DiscardedOutput(code StatusCode) TransactionOutput {
	return TransactionOutput{Status: Discard(code)}
}
