// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"bytes"
	"sort"

	"github.com/ava-labs/avalanchego/ids"
)

// Resource names under which the core account data lives.
const (
	AccountResourceName = "account"
	BalanceResourceName = "balance"
)

// Event stream creation numbers inside a fresh account.
const (
	SentEventStream uint64 = iota
	ReceivedEventStream
)

// AccountResource is the bookkeeping half of an account: its
// authentication key, sequence number, and event streams.
type AccountResource struct {
	AuthKey        ids.ShortID `serialize:"true" json:"authKey"`
	SequenceNumber uint64      `serialize:"true" json:"sequenceNumber"`
	SentEvents     EventHandle `serialize:"true" json:"sentEvents"`
	ReceivedEvents EventHandle `serialize:"true" json:"receivedEvents"`
}

// NewAccountResource returns a fresh account resource for [addr]
// authenticated by [authKey].
func NewAccountResource(addr ids.ShortID, authKey ids.ShortID) AccountResource {
	return AccountResource{
		AuthKey:        authKey,
		SentEvents:     NewEventHandle(addr, SentEventStream),
		ReceivedEvents: NewEventHandle(addr, ReceivedEventStream),
	}
}

// BalanceResource holds an account's coin balance.
type BalanceResource struct {
	Coins uint64 `serialize:"true" json:"coins"`
}

// AccountStateEntry is a single path->blob binding under an account.
type AccountStateEntry struct {
	Path  []byte `serialize:"true" json:"path"`
	Value []byte `serialize:"true" json:"value"`
}

// AccountState is everything stored under one account address, kept
// sorted by path. It is a read-model assembled from ledger state, not
// something the VM writes as a unit.
type AccountState struct {
	Entries []AccountStateEntry `serialize:"true" json:"entries"`
}

// Get returns the blob stored under [path], if any.
func (a *AccountState) Get(path []byte) ([]byte, bool) {
	i := sort.Search(len(a.Entries), func(i int) bool {
		return bytes.Compare(a.Entries[i].Path, path) >= 0
	})
	if i < len(a.Entries) && bytes.Equal(a.Entries[i].Path, path) {
		return a.Entries[i].Value, true
	}
	return nil, false
}

// Insert stores [value] under [path], replacing any previous value.
func (a *AccountState) Insert(path, value []byte) {
	i := sort.Search(len(a.Entries), func(i int) bool {
		return bytes.Compare(a.Entries[i].Path, path) >= 0
	})
	if i < len(a.Entries) && bytes.Equal(a.Entries[i].Path, path) {
		a.Entries[i].Value = value
		return
	}
	a.Entries = append(a.Entries, AccountStateEntry{})
	copy(a.Entries[i+1:], a.Entries[i:])
	a.Entries[i] = AccountStateEntry{Path: path, Value: value}
}

// GetAccountResource decodes the account resource, if present.
func (a *AccountState) GetAccountResource() (*AccountResource, error) {
	blob, ok := a.Get(ResourcePath(AccountResourceName))
	if !ok {
		return nil, nil
	}
	resource := &AccountResource{}
	if _, err := Codec.Unmarshal(blob, resource); err != nil {
		return nil, err
	}
	return resource, nil
}

// GetBalanceResource decodes the balance resource, if present.
func (a *AccountState) GetBalanceResource() (*BalanceResource, error) {
	blob, ok := a.Get(ResourcePath(BalanceResourceName))
	if !ok {
		return nil, nil
	}
	resource := &BalanceResource{}
	if _, err := Codec.Unmarshal(blob, resource); err != nil {
		return nil, err
	}
	return resource, nil
}

// Modules returns the code blobs published under this account.
func (a *AccountState) Modules() [][]byte {
	var modules [][]byte
	for _, entry := range a.Entries {
		if len(entry.Path) > 0 && entry.Path[0] == PathTagCode {
			modules = append(modules, entry.Value)
		}
	}
	return modules
}

// Resources returns the (name, blob) pairs of resources under this
// account, skipping code and raw entries.
func (a *AccountState) Resources() []AccountStateEntry {
	var resources []AccountStateEntry
	for _, entry := range a.Entries {
		if len(entry.Path) > 0 && entry.Path[0] == PathTagResource {
			resources = append(resources, entry)
		}
	}
	return resources
}
