// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"testing"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/crypto"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/slatevm/slate/state"
	"github.com/slatevm/slate/types"
	"github.com/slatevm/slate/vm"
)

const (
	testChainID   = 4
	testBlockTime = 1_000
)

var secpFactory = crypto.FactorySECP256K1R{}

type account struct {
	key  crypto.PrivateKey
	addr ids.ShortID
	seq  uint64
}

func newAccount(t *testing.T) *account {
	key, err := secpFactory.NewPrivateKey()
	assert.NoError(t, err)
	return &account{key: key, addr: key.PublicKey().Address()}
}

// next signs a transaction with the account's next sequence number.
func (a *account) next(t *testing.T, payload types.Payload) *types.SignedTransaction {
	raw := types.RawTransaction{
		Sender:              a.addr,
		SequenceNumber:      a.seq,
		Payload:             payload,
		MaxGasAmount:        500_000,
		GasUnitPrice:        0,
		ExpirationTimestamp: testBlockTime + 1_000,
		ChainID:             testChainID,
	}
	a.seq++
	msg, err := raw.SigningBytes()
	assert.NoError(t, err)
	sig, err := a.key.Sign(msg)
	assert.NoError(t, err)
	return &types.SignedTransaction{
		Raw:       raw,
		PublicKey: a.key.PublicKey().Bytes(),
		Signature: sig,
	}
}

// newLedger boots a genesis ledger on a fresh in-memory store.
func newLedger(t *testing.T) (*state.Store, *vm.VM, *account) {
	root := newAccount(t)
	root.addr = types.RootAddress

	store := state.NewStore(memdb.New())
	ws, err := vm.BuildGenesisWriteSet(vm.DefaultGenesisConfig(root.key.PublicKey().Address(), testChainID))
	assert.NoError(t, err)
	assert.NoError(t, store.ApplyWriteSet(ws, 0))
	assert.NoError(t, store.SetInitialized())
	assert.NoError(t, store.Commit())

	machine, err := vm.New(store)
	assert.NoError(t, err)
	return store, machine, root
}

// conflictBlock builds a block where every transaction touches state
// written by an earlier one: the root funds each account, the accounts
// all pay the same hot recipient, and a replayed transaction gets
// discarded along the way.
func conflictBlock(t *testing.T, root *account, accounts []*account, hot *account) []*types.SignedTransaction {
	var txns []*types.SignedTransaction
	txns = append(txns, root.next(t, &types.CreateAccount{To: hot.addr, AuthKey: hot.addr}))
	for _, a := range accounts {
		txns = append(txns, root.next(t, &types.CreateAccount{To: a.addr, AuthKey: a.addr}))
		txns = append(txns, root.next(t, &types.Mint{To: a.addr, Amount: 10_000}))
	}
	for _, a := range accounts {
		txns = append(txns, a.next(t, &types.Transfer{To: hot.addr, Amount: 100}))
		txns = append(txns, a.next(t, &types.Transfer{To: hot.addr, Amount: 50}))
	}
	// Replay of the first transfer: discarded as too old by the time the
	// block reaches it.
	txns = append(txns, txns[len(txns)-2*len(accounts)])
	return txns
}

func TestSequentialBlockExecution(t *testing.T) {
	assert := assert.New(t)
	store, machine, root := newLedger(t)
	defer store.Close()

	accounts := []*account{newAccount(t), newAccount(t)}
	hot := newAccount(t)
	txns := conflictBlock(t, root, accounts, hot)

	chunk, err := NewBlockExecutor(machine).ExecuteBlock(store, txns, testBlockTime)
	assert.NoError(err)
	assert.Len(chunk.Outputs, len(txns))

	// Everything succeeds except the replay at the end.
	for i, out := range chunk.Outputs[:len(txns)-1] {
		assert.True(out.Status.IsSuccess(), "txn %d: %s", i, out.Status)
	}
	last := chunk.Outputs[len(txns)-1]
	assert.Equal(types.Discard(types.StatusSequenceNumberTooOld), last.Status)
	assert.Equal(len(txns)-1, chunk.KeptCount())
}

func TestParallelMatchesSequential(t *testing.T) {
	assert := assert.New(t)
	store, machine, root := newLedger(t)
	defer store.Close()

	accounts := make([]*account, 8)
	for i := range accounts {
		accounts[i] = newAccount(t)
	}
	hot := newAccount(t)
	txns := conflictBlock(t, root, accounts, hot)

	seqChunk, err := NewBlockExecutor(machine).ExecuteBlock(store, txns, testBlockTime)
	assert.NoError(err)

	for _, workers := range []int{1, 4, len(txns)} {
		parChunk, err := NewParallelExecutor(machine, workers).ExecuteBlock(store, txns, testBlockTime)
		assert.NoError(err)
		assert.Empty(cmp.Diff(seqChunk.Outputs, parChunk.Outputs), "workers=%d", workers)
	}
}

func TestParallelIndependentTransactions(t *testing.T) {
	assert := assert.New(t)
	store, machine, root := newLedger(t)
	defer store.Close()

	// Fund disjoint sender/recipient pairs first.
	var setup []*types.SignedTransaction
	pairs := make([][2]*account, 6)
	for i := range pairs {
		sender, recipient := newAccount(t), newAccount(t)
		pairs[i] = [2]*account{sender, recipient}
		setup = append(setup,
			root.next(t, &types.CreateAccount{To: sender.addr, AuthKey: sender.addr}),
			root.next(t, &types.CreateAccount{To: recipient.addr, AuthKey: recipient.addr}),
			root.next(t, &types.Mint{To: sender.addr, Amount: 1_000}),
		)
	}
	setupChunk, err := NewBlockExecutor(machine).ExecuteBlock(store, setup, testBlockTime)
	assert.NoError(err)
	_, err = setupChunk.ApplyToLedger(store, ids.Empty)
	assert.NoError(err)
	assert.NoError(store.Commit())

	// Every transfer touches only its own pair, so every speculative
	// output is accepted as-is.
	var txns []*types.SignedTransaction
	for _, pair := range pairs {
		txns = append(txns, pair[0].next(t, &types.Transfer{To: pair[1].addr, Amount: 25}))
	}

	seqChunk, err := NewBlockExecutor(machine).ExecuteBlock(store, txns, testBlockTime)
	assert.NoError(err)
	parChunk, err := NewParallelExecutor(machine, 4).ExecuteBlock(store, txns, testBlockTime)
	assert.NoError(err)
	assert.Empty(cmp.Diff(seqChunk.Outputs, parChunk.Outputs))
	for _, out := range parChunk.Outputs {
		assert.True(out.Status.IsSuccess())
	}
}

func TestApplyToLedger(t *testing.T) {
	assert := assert.New(t)
	store, machine, root := newLedger(t)
	defer store.Close()

	recipient := newAccount(t)
	txns := []*types.SignedTransaction{
		root.next(t, &types.CreateAccount{To: recipient.addr, AuthKey: recipient.addr}),
		root.next(t, &types.Mint{To: recipient.addr, Amount: 777}),
	}
	// A transaction from an unknown sender is discarded and must not
	// occupy a ledger version.
	txns = append(txns, newAccount(t).next(t, &types.Transfer{To: recipient.addr, Amount: 1}))

	chunk, err := NewBlockExecutor(machine).ExecuteBlock(store, txns, testBlockTime)
	assert.NoError(err)

	executed, err := chunk.ApplyToLedger(store, ids.Empty)
	assert.NoError(err)
	assert.NoError(store.Commit())

	// Genesis was version 0, so the chunk starts at 1 and commits two
	// transactions.
	assert.Equal(uint64(1), executed.FirstVersion)
	assert.Equal(uint64(3), executed.NextVersion)
	assert.NotEqual(ids.Empty, executed.RootHash)

	latest, err := store.LatestVersion()
	assert.NoError(err)
	assert.Equal(uint64(2), latest)

	balance, err := state.NewAccountView(store, recipient.addr).Balance()
	assert.NoError(err)
	assert.Equal(uint64(777), balance)

	// Each committed version left a journal; the discarded one did not.
	_, err = store.GetJournal(1)
	assert.NoError(err)
	_, err = store.GetJournal(2)
	assert.NoError(err)
	_, err = store.GetJournal(3)
	assert.Error(err)

	// The root hash is a pure function of the committed outputs.
	store2, _, _ := newLedger(t)
	defer store2.Close()
	executed2, err := chunk.ApplyToLedger(store2, ids.Empty)
	assert.NoError(err)
	assert.Equal(executed.RootHash, executed2.RootHash)
}

func TestByTransactionOutputReplay(t *testing.T) {
	assert := assert.New(t)
	store, machine, root := newLedger(t)
	defer store.Close()

	recipient := newAccount(t)
	txns := []*types.SignedTransaction{
		root.next(t, &types.CreateAccount{To: recipient.addr, AuthKey: recipient.addr}),
		root.next(t, &types.Mint{To: recipient.addr, Amount: 42}),
	}
	chunk, err := NewBlockExecutor(machine).ExecuteBlock(store, txns, testBlockTime)
	assert.NoError(err)

	// Replaying previously computed outputs yields the same commit.
	replayed, err := ByTransactionOutput(chunk.Transactions, chunk.Outputs)
	assert.NoError(err)
	executed, err := chunk.ApplyToLedger(store, ids.Empty)
	assert.NoError(err)

	store2, _, _ := newLedger(t)
	defer store2.Close()
	replayedExec, err := replayed.ApplyToLedger(store2, ids.Empty)
	assert.NoError(err)
	assert.Equal(executed.RootHash, replayedExec.RootHash)

	_, err = ByTransactionOutput(txns, chunk.Outputs[:1])
	assert.Error(err)

	// A discarded output smuggling in writes is rejected.
	bad := append([]types.TransactionOutput{}, chunk.Outputs...)
	bad[0].Status = types.Discard(types.StatusSequenceNumberTooOld)
	_, err = ByTransactionOutput(txns, bad)
	assert.Error(err)
}
