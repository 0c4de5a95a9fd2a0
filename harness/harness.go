// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package harness boots a complete in-memory ledger for end-to-end
// tests and tools: genesis, block execution, account plumbing, and
// history pruning behind one handle.
package harness

import (
	"errors"
	"fmt"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"

	"github.com/slatevm/slate/builder"
	"github.com/slatevm/slate/executor"
	"github.com/slatevm/slate/manifest"
	"github.com/slatevm/slate/pruner"
	"github.com/slatevm/slate/state"
	"github.com/slatevm/slate/types"
	"github.com/slatevm/slate/vm"
)

const (
	// BuilderDependency is the manifest dependency the fuzzing
	// capability hangs off.
	BuilderDependency = "transaction-builder"
	// FuzzingCapability gates NewFuzzer.
	FuzzingCapability = "fuzzing"
)

var (
	ErrTransactionFailed = errors.New("transaction did not execute successfully")
	ErrFuzzingDisabled   = errors.New("fuzzing capability is not enabled")
)

// Config tunes a fresh test ledger.
type Config struct {
	ChainID uint32
	// Parallelism picks the executor: zero or one runs blocks
	// sequentially, anything higher uses that many workers.
	Parallelism int
	// PruneWindow is how many historical versions Prune retains behind
	// the latest one.
	PruneWindow uint64
}

// Harness is a self-contained ledger: an in-memory versioned store, a
// VM booted from its genesis, and the executors to drive blocks
// through it.
type Harness struct {
	store       *state.Store
	vm          *vm.VM
	root        *builder.Account
	txnConfig   builder.TxnConfig
	parallelism int
	pruner      *pruner.Pruner

	rootSeq   uint64
	blockTime uint64
	rootHash  ids.ID

	fuzzingEnabled bool
}

// New boots a genesis ledger on a fresh in-memory database.
func New(config Config) (*Harness, error) {
	root, err := builder.NewRootAccount()
	if err != nil {
		return nil, err
	}

	store := state.NewStore(memdb.New())
	ws, err := vm.BuildGenesisWriteSet(vm.DefaultGenesisConfig(root.AuthKey(), config.ChainID))
	if err != nil {
		return nil, err
	}
	if err := store.ApplyWriteSet(ws, 0); err != nil {
		return nil, err
	}
	if err := store.SetInitialized(); err != nil {
		return nil, err
	}
	if err := store.Commit(); err != nil {
		return nil, err
	}

	machine, err := vm.New(store)
	if err != nil {
		return nil, err
	}

	log.Info("booted test ledger", "chainID", config.ChainID, "parallelism", config.Parallelism)
	return &Harness{
		store:       store,
		vm:          machine,
		root:        root,
		txnConfig:   builder.DefaultTxnConfig(config.ChainID),
		parallelism: config.Parallelism,
		pruner:      pruner.New(store, config.PruneWindow),
		blockTime:   1,
	}, nil
}

// NewFromManifest validates [m] and boots a ledger configured by it.
// Optional capabilities declared in the manifest's feature table, like
// fuzzing on the transaction builder, are switched on accordingly.
func NewFromManifest(m *manifest.Manifest, config Config) (*Harness, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %q: %w", m.Package.Name, err)
	}
	h, err := New(config)
	if err != nil {
		return nil, err
	}
	h.fuzzingEnabled = m.CapabilityEnabled(BuilderDependency, FuzzingCapability)
	return h, nil
}

// RootAccount returns the account holding mint authority.
func (h *Harness) RootAccount() *builder.Account { return h.root }

// RootSequenceNumber returns the next sequence number for root-signed
// transactions built outside the harness.
func (h *Harness) RootSequenceNumber() uint64 { return h.rootSeq }

// TxnConfig returns the transaction defaults for this ledger's chain.
func (h *Harness) TxnConfig() builder.TxnConfig { return h.txnConfig }

// Store exposes the underlying versioned store.
func (h *Harness) Store() *state.Store { return h.store }

// VM exposes the booted machine, for admission-control checks.
func (h *Harness) VM() *vm.VM { return h.vm }

// RootHash returns the running ledger root hash.
func (h *Harness) RootHash() ids.ID { return h.rootHash }

// BlockTime returns the timestamp the next block executes at.
func (h *Harness) BlockTime() uint64 { return h.blockTime }

// LedgerVersion returns the latest committed version.
func (h *Harness) LedgerVersion() (uint64, error) {
	return h.store.LatestVersion()
}

// ExecuteBlock executes [txns] as one block, commits the kept outputs,
// and returns the chunk. Block time advances by one per block.
func (h *Harness) ExecuteBlock(txns []*types.SignedTransaction) (executor.ChunkOutput, error) {
	var (
		chunk executor.ChunkOutput
		err   error
	)
	if h.parallelism > 1 {
		chunk, err = executor.NewParallelExecutor(h.vm, h.parallelism).ExecuteBlock(h.store, txns, h.blockTime)
	} else {
		chunk, err = executor.NewBlockExecutor(h.vm).ExecuteBlock(h.store, txns, h.blockTime)
	}
	if err != nil {
		return executor.ChunkOutput{}, err
	}

	executed, err := chunk.ApplyToLedger(h.store, h.rootHash)
	if err != nil {
		return executor.ChunkOutput{}, err
	}
	if err := h.store.Commit(); err != nil {
		return executor.ChunkOutput{}, err
	}
	h.rootHash = executed.RootHash
	h.blockTime++

	for i, txn := range txns {
		if txn.Raw.Sender == types.RootAddress && !chunk.Outputs[i].Status.Discarded {
			h.rootSeq++
		}
	}
	return chunk, nil
}

// ExecuteTransaction executes [txn] as a single-transaction block.
func (h *Harness) ExecuteTransaction(txn *types.SignedTransaction) (types.TransactionOutput, error) {
	chunk, err := h.ExecuteBlock([]*types.SignedTransaction{txn})
	if err != nil {
		return types.TransactionOutput{}, err
	}
	return chunk.Outputs[0], nil
}

// MustExecute executes [txn] and fails unless it executed successfully.
func (h *Harness) MustExecute(txn *types.SignedTransaction) (types.TransactionOutput, error) {
	out, err := h.ExecuteTransaction(txn)
	if err != nil {
		return types.TransactionOutput{}, err
	}
	if !out.Status.IsSuccess() {
		return out, fmt.Errorf("%w: %s", ErrTransactionFailed, out.Status)
	}
	return out, nil
}

// NewAccountWithBalance creates a funded account in one block: the root
// creates it, then mints [balance] onto it.
func (h *Harness) NewAccountWithBalance(balance uint64) (*builder.Account, error) {
	account, err := builder.NewAccount()
	if err != nil {
		return nil, err
	}

	create, err := builder.CreateAccount(h.root, h.rootSeq, account, h.txnConfig)
	if err != nil {
		return nil, err
	}
	txns := []*types.SignedTransaction{create}
	if balance > 0 {
		mint, err := builder.Mint(h.root, h.rootSeq+1, account.Address, balance, h.txnConfig)
		if err != nil {
			return nil, err
		}
		txns = append(txns, mint)
	}

	chunk, err := h.ExecuteBlock(txns)
	if err != nil {
		return nil, err
	}
	for _, out := range chunk.Outputs {
		if !out.Status.IsSuccess() {
			return nil, fmt.Errorf("%w: %s", ErrTransactionFailed, out.Status)
		}
	}
	return account, nil
}

// ReadBalance returns the latest balance of [addr].
func (h *Harness) ReadBalance(addr ids.ShortID) (uint64, error) {
	return state.NewAccountView(h.store, addr).Balance()
}

// ReadAccountResource returns the latest account resource of [addr],
// nil when the account does not exist.
func (h *Harness) ReadAccountResource(addr ids.ShortID) (*types.AccountResource, error) {
	return state.NewAccountView(h.store, addr).GetAccountResource()
}

// ReadAccountState assembles everything stored under [addr].
func (h *Harness) ReadAccountState(addr ids.ShortID) (*types.AccountState, error) {
	return h.store.GetAccountState(addr)
}

// Prune discards history outside the configured window and returns the
// new watermark.
func (h *Harness) Prune() (uint64, error) {
	latest, err := h.store.LatestVersion()
	if err != nil {
		return 0, err
	}
	return h.pruner.Prune(latest)
}

// NewFuzzer returns a transaction fuzzer over [accounts]. It is only
// available when the manifest enabled the fuzzing capability on the
// transaction builder.
func (h *Harness) NewFuzzer(seed int64, accounts []*builder.Account) (*builder.Fuzzer, error) {
	if !h.fuzzingEnabled {
		return nil, ErrFuzzingDisabled
	}
	return builder.NewFuzzer(seed, h.txnConfig, h.root, h.rootSeq, accounts)
}

// Close releases the backing database.
func (h *Harness) Close() error {
	return h.store.Close()
}
