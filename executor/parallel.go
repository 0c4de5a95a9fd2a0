// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"runtime"
	"sync"

	log "github.com/inconshreveable/log15"

	"github.com/slatevm/slate/state"
	"github.com/slatevm/slate/types"
	"github.com/slatevm/slate/vm"
)

// ParallelExecutor executes a block optimistically: every transaction
// first runs concurrently against the block's base state with its reads
// recorded, then a single in-order commit pass accepts each speculative
// output if nothing it read was written by an earlier transaction in
// the block, and re-executes it otherwise. The result is identical to
// what BlockExecutor produces for the same block.
type ParallelExecutor struct {
	vm      *vm.VM
	workers int
}

// NewParallelExecutor returns an executor running [workers] concurrent
// speculative executions. Zero or negative means one per CPU.
func NewParallelExecutor(machine *vm.VM, workers int) *ParallelExecutor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &ParallelExecutor{vm: machine, workers: workers}
}

type speculativeResult struct {
	out   types.TransactionOutput
	reads *state.CachedView
	err   error
}

// ExecuteBlock executes [txns] on top of [base] and returns the chunk
// of outputs. [base] must be safe for concurrent reads; nothing is
// written to it.
func (e *ParallelExecutor) ExecuteBlock(base state.View, txns []*types.SignedTransaction, blockTime uint64) (ChunkOutput, error) {
	results := make([]speculativeResult, len(txns))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				view := state.NewCachedView(base)
				out, err := e.vm.ExecuteTransaction(view, txns[i], blockTime)
				results[i] = speculativeResult{out: out, reads: view, err: err}
			}
		}()
	}
	for i := range txns {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	// Commit pass. committedKeys holds every key written by a kept
	// transaction so far; a speculative output is only valid if its
	// reads are disjoint from them, since then every value it observed
	// on the base view is still current.
	overlay := state.NewOverlayView(base)
	committedKeys := make(map[string]struct{})
	outputs := make([]types.TransactionOutput, 0, len(txns))
	reruns := 0
	for i, txn := range txns {
		result := results[i]
		out := result.out
		if result.err != nil || result.reads.ReadsIntersect(committedKeys) {
			reruns++
			var err error
			out, err = e.vm.ExecuteTransaction(overlay, txn, blockTime)
			if err != nil {
				return ChunkOutput{}, err
			}
		}
		if !out.Status.Discarded {
			overlay.ApplyWriteSet(out.WriteSet)
			for _, op := range out.WriteSet.Ops {
				committedKeys[string(op.Key.Bytes())] = struct{}{}
			}
		}
		outputs = append(outputs, out)
	}

	if reruns > 0 {
		log.Debug("re-executed conflicting transactions", "count", reruns, "block", len(txns))
	}
	return ByTransactionExecution(txns, outputs)
}
