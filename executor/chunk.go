// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"

	"github.com/slatevm/slate/state"
	"github.com/slatevm/slate/types"
)

// ChunkOutput pairs a block's transactions with their execution outputs
// before anything has been committed to the ledger.
type ChunkOutput struct {
	Transactions []*types.SignedTransaction
	Outputs      []types.TransactionOutput
}

// ByTransactionExecution assembles a chunk from transactions and the
// outputs their execution produced, in order.
func ByTransactionExecution(txns []*types.SignedTransaction, outputs []types.TransactionOutput) (ChunkOutput, error) {
	if len(txns) != len(outputs) {
		return ChunkOutput{}, fmt.Errorf("%d transactions but %d outputs", len(txns), len(outputs))
	}
	return ChunkOutput{Transactions: txns, Outputs: outputs}, nil
}

// ByTransactionOutput assembles a chunk from outputs computed elsewhere,
// for replaying a block. Replayed outputs are checked for internal
// consistency since nothing here recomputed them: a discarded
// transaction must not carry writes, events, or a gas charge.
func ByTransactionOutput(txns []*types.SignedTransaction, outputs []types.TransactionOutput) (ChunkOutput, error) {
	if len(txns) != len(outputs) {
		return ChunkOutput{}, fmt.Errorf("%d transactions but %d outputs", len(txns), len(outputs))
	}
	for i, out := range outputs {
		if !out.Status.Discarded {
			continue
		}
		if len(out.WriteSet.Ops) > 0 || len(out.Events) > 0 || out.GasUsed != 0 {
			return ChunkOutput{}, fmt.Errorf("transaction %d: discarded output carries effects", i)
		}
	}
	return ChunkOutput{Transactions: txns, Outputs: outputs}, nil
}

// KeptCount returns how many transactions in the chunk will reach the
// ledger.
func (c ChunkOutput) KeptCount() int {
	kept := 0
	for _, out := range c.Outputs {
		if !out.Status.Discarded {
			kept++
		}
	}
	return kept
}

// ExecutedChunk describes what ApplyToLedger committed.
type ExecutedChunk struct {
	// FirstVersion is the version of the first kept transaction. Only
	// meaningful when KeptCount is nonzero.
	FirstVersion uint64
	// NextVersion is where the next chunk will start.
	NextVersion uint64
	// RootHash authenticates the ledger up to and including this chunk.
	RootHash ids.ID
}

// ApplyToLedger commits the chunk's kept outputs to [store] at
// consecutive versions and folds each one into a running root hash
// seeded with [prevRoot]. Discarded transactions are skipped entirely
// and occupy no version. The caller commits the store afterwards.
func (c ChunkOutput) ApplyToLedger(store *state.Store, prevRoot ids.ID) (ExecutedChunk, error) {
	next, err := nextVersion(store)
	if err != nil {
		return ExecutedChunk{}, err
	}

	chunk := ExecutedChunk{
		FirstVersion: next,
		NextVersion:  next,
		RootHash:     prevRoot,
	}
	for i, out := range c.Outputs {
		if out.Status.Discarded {
			continue
		}
		if err := store.ApplyWriteSet(out.WriteSet, chunk.NextVersion); err != nil {
			return ExecutedChunk{}, err
		}

		txnID, err := c.Transactions[i].ID()
		if err != nil {
			return ExecutedChunk{}, err
		}
		outputBytes, err := types.Marshal(&out)
		if err != nil {
			return ExecutedChunk{}, err
		}
		chunk.RootHash = foldRoot(chunk.RootHash, txnID, outputBytes)
		chunk.NextVersion++
	}
	return chunk, nil
}

// foldRoot chains the running root hash with one committed transaction.
func foldRoot(prev ids.ID, txnID ids.ID, outputBytes []byte) ids.ID {
	preimage := make([]byte, 0, len(prev)+len(txnID)+len(outputBytes))
	preimage = append(preimage, prev[:]...)
	preimage = append(preimage, txnID[:]...)
	preimage = append(preimage, outputBytes...)
	return ids.ID(hashing.ComputeHash256Array(preimage))
}

func nextVersion(store *state.Store) (uint64, error) {
	latest, err := store.LatestVersion()
	switch err {
	case nil:
		return latest + 1, nil
	case database.ErrNotFound:
		return 0, nil
	default:
		return 0, err
	}
}
