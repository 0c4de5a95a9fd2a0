// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package service

import (
	"testing"

	"github.com/ava-labs/avalanchego/utils/formatting"
	cjson "github.com/ava-labs/avalanchego/utils/json"
	"github.com/stretchr/testify/assert"

	"github.com/slatevm/slate/builder"
	"github.com/slatevm/slate/harness"
	"github.com/slatevm/slate/types"
)

func newService(t *testing.T) (*Service, *harness.Harness) {
	h, err := harness.New(harness.Config{ChainID: 4})
	assert.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return New(h), h
}

func TestSubmitTransaction(t *testing.T) {
	assert := assert.New(t)
	s, h := newService(t)

	alice, err := h.NewAccountWithBalance(10_000)
	assert.NoError(err)
	bob, err := h.NewAccountWithBalance(0)
	assert.NoError(err)

	txn, err := builder.Transfer(alice, 0, bob.Address, 500, h.TxnConfig())
	assert.NoError(err)
	txBytes, err := txn.Bytes()
	assert.NoError(err)
	encoded, err := formatting.EncodeWithChecksum(formatting.Hex, txBytes)
	assert.NoError(err)

	reply := SubmitTransactionReply{}
	assert.NoError(s.SubmitTransaction(nil, &SubmitTransactionArgs{TxBytes: encoded}, &reply))
	assert.Equal(types.StatusExecuted.String(), reply.Status)
	assert.False(reply.Discarded)
	assert.NotZero(uint64(reply.GasUsed))

	balance, err := h.ReadBalance(bob.Address)
	assert.NoError(err)
	assert.Equal(uint64(500), balance)

	// Garbage bytes are rejected before execution.
	assert.Error(s.SubmitTransaction(nil, &SubmitTransactionArgs{TxBytes: "0x00ff"}, &SubmitTransactionReply{}))
}

func TestGetAccount(t *testing.T) {
	assert := assert.New(t)
	s, h := newService(t)

	alice, err := h.NewAccountWithBalance(1_234)
	assert.NoError(err)

	reply := GetAccountReply{}
	assert.NoError(s.GetAccount(nil, &GetAccountArgs{Address: alice.Address}, &reply))
	assert.Equal(uint64(1_234), uint64(reply.Balance))
	assert.Zero(uint64(reply.SequenceNumber))
	assert.Equal(alice.AuthKey(), reply.AuthKey)

	ghost, err := builder.NewAccount()
	assert.NoError(err)
	assert.Error(s.GetAccount(nil, &GetAccountArgs{Address: ghost.Address}, &GetAccountReply{}))
}

func TestGetAccountState(t *testing.T) {
	assert := assert.New(t)
	s, h := newService(t)

	// Root may publish even with publishing closed.
	txn, err := builder.Publish(h.RootAccount(), h.RootSequenceNumber(), "coin", []byte{0x01}, h.TxnConfig())
	assert.NoError(err)
	_, err = h.MustExecute(txn)
	assert.NoError(err)

	reply := GetAccountStateReply{}
	assert.NoError(s.GetAccountState(nil, &GetAccountStateArgs{Address: types.RootAddress}, &reply))
	assert.Equal(uint64(2), uint64(reply.Resources))
	assert.Equal([]string{"coin"}, reply.Modules)
}

func TestGetLedgerInfoAndHealth(t *testing.T) {
	assert := assert.New(t)
	s, h := newService(t)

	_, err := h.NewAccountWithBalance(100)
	assert.NoError(err)

	info := GetLedgerInfoReply{}
	assert.NoError(s.GetLedgerInfo(nil, &struct{}{}, &info))
	assert.Equal(uint64(2), uint64(info.Version))
	assert.Equal(h.RootHash(), info.RootHash)
	assert.Equal(uint32(4), uint32(info.ChainID))

	health := HealthReply{}
	assert.NoError(s.Health(nil, &struct{}{}, &health))
	assert.True(health.Healthy)
	assert.Equal(uint64(2), uint64(health.Version))
}

func TestGetHistoricalValue(t *testing.T) {
	assert := assert.New(t)
	s, h := newService(t)

	alice, err := h.NewAccountWithBalance(1_000)
	assert.NoError(err)
	bob, err := h.NewAccountWithBalance(0)
	assert.NoError(err)
	versionBefore, err := h.LedgerVersion()
	assert.NoError(err)

	txn, err := builder.Transfer(alice, 0, bob.Address, 10, h.TxnConfig())
	assert.NoError(err)
	_, err = h.MustExecute(txn)
	assert.NoError(err)

	// Bob's balance at the earlier version is still the pre-transfer one.
	reply := GetHistoricalValueReply{}
	args := GetHistoricalValueArgs{
		Address: bob.Address,
		Path:    types.BalanceResourceName,
		Version: cjson.Uint64(versionBefore),
	}
	assert.NoError(s.GetHistoricalValue(nil, &args, &reply))
	assert.True(reply.Exists)

	decoded, err := formatting.Decode(formatting.Hex, reply.Value)
	assert.NoError(err)
	balance := types.BalanceResource{}
	assert.NoError(types.Unmarshal(decoded, &balance))
	assert.Zero(balance.Coins)

	// A key that never existed reports absence without failing.
	ghost, err := builder.NewAccount()
	assert.NoError(err)
	miss := GetHistoricalValueReply{}
	assert.NoError(s.GetHistoricalValue(nil, &GetHistoricalValueArgs{
		Address: ghost.Address,
		Path:    types.BalanceResourceName,
		Version: cjson.Uint64(versionBefore),
	}, &miss))
	assert.False(miss.Exists)
}
