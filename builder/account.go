// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package builder

import (
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/crypto"

	"github.com/slatevm/slate/types"
)

var secpFactory = crypto.FactorySECP256K1R{}

// Account pairs a secp256k1 keypair with the address it controls. The
// address defaults to the key's derived address, which is also what a
// fresh account stores as its auth key.
type Account struct {
	Address ids.ShortID

	key crypto.PrivateKey
}

// NewAccount generates a fresh keypair.
func NewAccount() (*Account, error) {
	key, err := secpFactory.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return NewAccountFromKey(key), nil
}

// NewAccountFromKey wraps an existing key.
func NewAccountFromKey(key crypto.PrivateKey) *Account {
	return &Account{
		Address: key.PublicKey().Address(),
		key:     key,
	}
}

// NewRootAccount generates a keypair bound to the root address, the way
// a test ledger's genesis installs it.
func NewRootAccount() (*Account, error) {
	account, err := NewAccount()
	if err != nil {
		return nil, err
	}
	account.Address = types.RootAddress
	return account, nil
}

// AuthKey returns the authentication key this account's transactions
// authenticate against.
func (a *Account) AuthKey() ids.ShortID {
	return types.AuthKeyFromPublicKey(a.key.PublicKey())
}

// PublicKeyBytes returns the serialized public key embedded in signed
// transactions.
func (a *Account) PublicKeyBytes() []byte {
	return a.key.PublicKey().Bytes()
}

// Sign signs [raw] and returns the complete transaction.
func (a *Account) Sign(raw types.RawTransaction) (*types.SignedTransaction, error) {
	msg, err := raw.SigningBytes()
	if err != nil {
		return nil, err
	}
	sig, err := a.key.Sign(msg)
	if err != nil {
		return nil, err
	}
	return &types.SignedTransaction{
		Raw:       raw,
		PublicKey: a.PublicKeyBytes(),
		Signature: sig,
	}, nil
}
