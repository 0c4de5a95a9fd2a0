// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	log "github.com/inconshreveable/log15"

	"github.com/slatevm/slate/state"
	"github.com/slatevm/slate/types"
	"github.com/slatevm/slate/vm"
)

// BlockExecutor runs a block of transactions one at a time against an
// in-memory overlay, so each transaction observes the writes of the
// ones before it. It is the reference the parallel executor must agree
// with.
type BlockExecutor struct {
	vm *vm.VM
}

func NewBlockExecutor(machine *vm.VM) *BlockExecutor {
	return &BlockExecutor{vm: machine}
}

// ExecuteBlock executes [txns] in order on top of [base] and returns
// the chunk of outputs. Nothing is written to [base].
func (e *BlockExecutor) ExecuteBlock(base state.View, txns []*types.SignedTransaction, blockTime uint64) (ChunkOutput, error) {
	overlay := state.NewOverlayView(base)
	outputs := make([]types.TransactionOutput, 0, len(txns))
	for i, txn := range txns {
		out, err := e.vm.ExecuteTransaction(overlay, txn, blockTime)
		if err != nil {
			return ChunkOutput{}, err
		}
		if out.Status.Discarded {
			log.Debug("discarded transaction", "index", i, "status", out.Status)
		} else {
			overlay.ApplyWriteSet(out.WriteSet)
		}
		outputs = append(outputs, out)
	}
	return ByTransactionExecution(txns, outputs)
}
