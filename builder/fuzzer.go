// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package builder

import (
	"errors"
	"math/rand"

	"github.com/slatevm/slate/types"
)

var errNoAccounts = errors.New("fuzzer needs at least two accounts")

// Fuzzer produces a deterministic stream of transactions from a seed:
// mostly well-formed payments between a pool of funded accounts, with
// malformed variants mixed in. It tracks sequence numbers internally,
// so its well-formed transactions stay valid as long as the caller
// commits them in the order they were produced.
type Fuzzer struct {
	rng      *rand.Rand
	cfg      TxnConfig
	root     *fuzzAccount
	accounts []*fuzzAccount
}

type fuzzAccount struct {
	account *Account
	seq     uint64
}

// NewFuzzer returns a fuzzer over [accounts], which must already exist
// on the ledger with sequence number zero and enough balance to cover
// the stream. [rootSeq] is the root account's next sequence number.
// The same seed always yields the same stream.
func NewFuzzer(seed int64, cfg TxnConfig, root *Account, rootSeq uint64, accounts []*Account) (*Fuzzer, error) {
	if len(accounts) < 2 {
		return nil, errNoAccounts
	}
	f := &Fuzzer{
		rng:  rand.New(rand.NewSource(seed)),
		cfg:  cfg,
		root: &fuzzAccount{account: root, seq: rootSeq},
	}
	for _, account := range accounts {
		f.accounts = append(f.accounts, &fuzzAccount{account: account})
	}
	return f, nil
}

// Next produces one transaction and reports whether it is expected to
// execute successfully. Transactions with expectValid false must be
// discarded or kept-with-abort by the VM, never committed as executed.
func (f *Fuzzer) Next() (txn *types.SignedTransaction, expectValid bool, err error) {
	sender := f.accounts[f.rng.Intn(len(f.accounts))]
	recipient := f.pickOther(sender)

	switch f.rng.Intn(11) {
	case 0, 1, 2, 3, 4:
		// Ordinary payment.
		txn, err = Transfer(sender.account, sender.seq, recipient.account.Address, f.amount(), f.cfg)
		if err == nil {
			sender.seq++
		}
		return txn, true, err

	case 5:
		// Mint from root.
		txn, err = Mint(f.root.account, f.root.seq, recipient.account.Address, f.amount(), f.cfg)
		if err == nil {
			f.root.seq++
		}
		return txn, true, err

	case 6:
		// Corrupted signature.
		txn, err = Transfer(sender.account, sender.seq, recipient.account.Address, f.amount(), f.cfg)
		if err != nil {
			return nil, false, err
		}
		txn.Signature[f.rng.Intn(len(txn.Signature))] ^= 0xff
		return txn, false, nil

	case 7:
		// Wrong chain.
		cfg := f.cfg
		cfg.ChainID++
		txn, err = Transfer(sender.account, sender.seq, recipient.account.Address, f.amount(), cfg)
		return txn, false, err

	case 8:
		// Already expired.
		cfg := f.cfg
		cfg.ExpirationTimestamp = 0
		txn, err = Transfer(sender.account, sender.seq, recipient.account.Address, f.amount(), cfg)
		return txn, false, err

	case 9:
		// Declared gas above the on-chain bound.
		cfg := f.cfg
		cfg.MaxGasAmount = types.DefaultGasConstants().MaximumNumberOfGasUnits + 1
		txn, err = Transfer(sender.account, sender.seq, recipient.account.Address, f.amount(), cfg)
		return txn, false, err

	default:
		// Sequence number from the far future.
		txn, err = Transfer(sender.account, sender.seq+1_000, recipient.account.Address, f.amount(), f.cfg)
		return txn, false, err
	}
}

// Block produces [n] transactions along with their validity
// expectations.
func (f *Fuzzer) Block(n int) ([]*types.SignedTransaction, []bool, error) {
	txns := make([]*types.SignedTransaction, 0, n)
	expectations := make([]bool, 0, n)
	for i := 0; i < n; i++ {
		txn, expectValid, err := f.Next()
		if err != nil {
			return nil, nil, err
		}
		txns = append(txns, txn)
		expectations = append(expectations, expectValid)
	}
	return txns, expectations, nil
}

func (f *Fuzzer) pickOther(sender *fuzzAccount) *fuzzAccount {
	for {
		candidate := f.accounts[f.rng.Intn(len(f.accounts))]
		if candidate != sender {
			return candidate
		}
	}
}

// amount keeps payments small so a funded pool survives a long stream.
func (f *Fuzzer) amount() uint64 {
	return uint64(f.rng.Intn(100)) + 1
}
