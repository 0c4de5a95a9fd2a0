// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/crypto"
	"github.com/ava-labs/avalanchego/utils/hashing"
)

var secpFactory = crypto.FactorySECP256K1R{}

// RawTransaction is the signed-over portion of a transaction.
type RawTransaction struct {
	Sender              ids.ShortID `serialize:"true" json:"sender"`
	SequenceNumber      uint64      `serialize:"true" json:"sequenceNumber"`
	Payload             Payload     `serialize:"true" json:"payload"`
	MaxGasAmount        uint64      `serialize:"true" json:"maxGasAmount"`
	GasUnitPrice        uint64      `serialize:"true" json:"gasUnitPrice"`
	ExpirationTimestamp uint64      `serialize:"true" json:"expirationTimestamp"`
	ChainID             uint32      `serialize:"true" json:"chainID"`
}

// SigningBytes returns the canonical bytes a signature must cover.
func (r *RawTransaction) SigningBytes() ([]byte, error) {
	return Codec.Marshal(CodecVersion, r)
}

// SignedTransaction is a raw transaction plus the sender's public key
// and a secp256k1 signature over the raw transaction bytes.
type SignedTransaction struct {
	Raw       RawTransaction `serialize:"true" json:"raw"`
	PublicKey []byte         `serialize:"true" json:"publicKey"`
	Signature []byte         `serialize:"true" json:"signature"`
}

// Bytes returns the codec serialization of the signed transaction.
func (t *SignedTransaction) Bytes() ([]byte, error) {
	return Codec.Marshal(CodecVersion, t)
}

// ParseSignedTransaction decodes a signed transaction from codec bytes.
func ParseSignedTransaction(b []byte) (*SignedTransaction, error) {
	tx := &SignedTransaction{}
	version, err := Codec.Unmarshal(b, tx)
	if err != nil {
		return nil, fmt.Errorf("couldn't parse transaction: %w", err)
	}
	if version != CodecVersion {
		return nil, errWrongCodecVersion
	}
	return tx, nil
}

// ID returns the hash of the signed transaction bytes.
func (t *SignedTransaction) ID() (ids.ID, error) {
	b, err := t.Bytes()
	if err != nil {
		return ids.Empty, err
	}
	return ids.ID(hashing.ComputeHash256Array(b)), nil
}

// Size returns the serialized size of the signed transaction, the
// quantity the gas constants bound.
func (t *SignedTransaction) Size() (uint64, error) {
	b, err := t.Bytes()
	if err != nil {
		return 0, err
	}
	return uint64(len(b)), nil
}

// VerifySignature checks that the signature covers the raw transaction
// and was produced by the embedded public key.
func (t *SignedTransaction) VerifySignature() bool {
	pub, err := secpFactory.ToPublicKey(t.PublicKey)
	if err != nil {
		return false
	}
	msg, err := t.Raw.SigningBytes()
	if err != nil {
		return false
	}
	return pub.Verify(msg, t.Signature)
}

// AuthKey returns the authentication key the embedded public key
// corresponds to. Accounts store this key; the prologue compares it to
// the stored one.
func (t *SignedTransaction) AuthKey() (ids.ShortID, error) {
	pub, err := secpFactory.ToPublicKey(t.PublicKey)
	if err != nil {
		return ids.ShortEmpty, fmt.Errorf("couldn't parse public key: %w", err)
	}
	return pub.Address(), nil
}

// AuthKeyFromPublicKey derives the authentication key stored in an
// account resource from a secp256k1 public key.
func AuthKeyFromPublicKey(pub crypto.PublicKey) ids.ShortID {
	return pub.Address()
}
