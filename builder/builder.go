// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package builder constructs signed transactions for tests and tools.
package builder

import (
	"math"

	"github.com/ava-labs/avalanchego/ids"

	"github.com/slatevm/slate/types"
)

// Default transaction parameters. The gas reservation is far above what
// any built-in payload costs, so builder transactions never run out.
const (
	DefaultMaxGasAmount = 500_000
	DefaultGasUnitPrice = 1
)

// TxnConfig carries the raw-transaction fields shared by every builder.
type TxnConfig struct {
	MaxGasAmount        uint64
	GasUnitPrice        uint64
	ExpirationTimestamp uint64
	ChainID             uint32
}

// DefaultTxnConfig returns a config that never expires, for chain
// [chainID].
func DefaultTxnConfig(chainID uint32) TxnConfig {
	return TxnConfig{
		MaxGasAmount:        DefaultMaxGasAmount,
		GasUnitPrice:        DefaultGasUnitPrice,
		ExpirationTimestamp: math.MaxUint64,
		ChainID:             chainID,
	}
}

// Raw assembles an unsigned transaction from the config.
func (c TxnConfig) Raw(sender ids.ShortID, seq uint64, payload types.Payload) types.RawTransaction {
	return types.RawTransaction{
		Sender:              sender,
		SequenceNumber:      seq,
		Payload:             payload,
		MaxGasAmount:        c.MaxGasAmount,
		GasUnitPrice:        c.GasUnitPrice,
		ExpirationTimestamp: c.ExpirationTimestamp,
		ChainID:             c.ChainID,
	}
}

// Transfer builds a signed payment of [amount] to [to].
func Transfer(sender *Account, seq uint64, to ids.ShortID, amount uint64, cfg TxnConfig) (*types.SignedTransaction, error) {
	return sender.Sign(cfg.Raw(sender.Address, seq, &types.Transfer{To: to, Amount: amount}))
}

// CreateAccount builds a signed account creation for [to].
func CreateAccount(sender *Account, seq uint64, to *Account, cfg TxnConfig) (*types.SignedTransaction, error) {
	payload := &types.CreateAccount{To: to.Address, AuthKey: to.AuthKey()}
	return sender.Sign(cfg.Raw(sender.Address, seq, payload))
}

// Mint builds a signed mint of [amount] to [to]. Only succeeds when
// [sender] is the root account.
func Mint(sender *Account, seq uint64, to ids.ShortID, amount uint64, cfg TxnConfig) (*types.SignedTransaction, error) {
	return sender.Sign(cfg.Raw(sender.Address, seq, &types.Mint{To: to, Amount: amount}))
}

// RotateAuthKey builds a signed rotation of the sender's auth key to
// the one controlled by [newOwner].
func RotateAuthKey(sender *Account, seq uint64, newOwner *Account, cfg TxnConfig) (*types.SignedTransaction, error) {
	payload := &types.RotateAuthKey{NewAuthKey: newOwner.AuthKey()}
	return sender.Sign(cfg.Raw(sender.Address, seq, payload))
}

// Publish builds a signed module publication.
func Publish(sender *Account, seq uint64, name string, code []byte, cfg TxnConfig) (*types.SignedTransaction, error) {
	return sender.Sign(cfg.Raw(sender.Address, seq, &types.Publish{Name: name, Code: code}))
}

// WriteSetTxn builds a signed direct write-set transaction. Gas fields
// are zeroed since write sets are unmetered.
func WriteSetTxn(sender *Account, seq uint64, ws types.WriteSet, cfg TxnConfig) (*types.SignedTransaction, error) {
	raw := cfg.Raw(sender.Address, seq, &types.WriteSetPayload{WriteSet: ws})
	raw.MaxGasAmount = 0
	raw.GasUnitPrice = 0
	return sender.Sign(raw)
}
