// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
)

// MaxModuleSize caps the size of a published module blob.
const MaxModuleSize = 2048

var (
	errZeroAmount        = errors.New("amount must be positive")
	errEmptyRecipient    = errors.New("recipient address is empty")
	errEmptyAuthKey      = errors.New("auth key is empty")
	errEmptyModuleName   = errors.New("module name is empty")
	errModuleNameTooLong = errors.New("module name exceeds 128 bytes")
	errEmptyModuleCode   = errors.New("module code is empty")
	errModuleTooLarge    = fmt.Errorf("module code exceeds %d bytes", MaxModuleSize)
	errEmptyWriteSet     = errors.New("write set payload carries no ops")

	_ Payload = (*Transfer)(nil)
	_ Payload = (*CreateAccount)(nil)
	_ Payload = (*Mint)(nil)
	_ Payload = (*RotateAuthKey)(nil)
	_ Payload = (*Publish)(nil)
	_ Payload = (*WriteSetPayload)(nil)
)

// Payload is what a transaction asks the VM to do. Every payload is
// checked syntactically before the VM touches state.
type Payload interface {
	// SyntacticVerify rejects payloads that are malformed independent of
	// any ledger state.
	SyntacticVerify() error
}

// Transfer moves coins from the sender to a recipient.
type Transfer struct {
	To     ids.ShortID `serialize:"true" json:"to"`
	Amount uint64      `serialize:"true" json:"amount"`
}

func (t *Transfer) SyntacticVerify() error {
	switch {
	case t.To == ids.ShortEmpty:
		return errEmptyRecipient
	case t.Amount == 0:
		return errZeroAmount
	}
	return nil
}

// CreateAccount creates a fresh account authenticated by [AuthKey].
type CreateAccount struct {
	To      ids.ShortID `serialize:"true" json:"to"`
	AuthKey ids.ShortID `serialize:"true" json:"authKey"`
}

func (c *CreateAccount) SyntacticVerify() error {
	switch {
	case c.To == ids.ShortEmpty:
		return errEmptyRecipient
	case c.AuthKey == ids.ShortEmpty:
		return errEmptyAuthKey
	}
	return nil
}

// Mint credits coins to an existing account. Only the root account may
// send it.
type Mint struct {
	To     ids.ShortID `serialize:"true" json:"to"`
	Amount uint64      `serialize:"true" json:"amount"`
}

func (m *Mint) SyntacticVerify() error {
	switch {
	case m.To == ids.ShortEmpty:
		return errEmptyRecipient
	case m.Amount == 0:
		return errZeroAmount
	}
	return nil
}

// RotateAuthKey replaces the sender's authentication key.
type RotateAuthKey struct {
	NewAuthKey ids.ShortID `serialize:"true" json:"newAuthKey"`
}

func (r *RotateAuthKey) SyntacticVerify() error {
	if r.NewAuthKey == ids.ShortEmpty {
		return errEmptyAuthKey
	}
	return nil
}

// Publish stores a module blob under the sender's address.
type Publish struct {
	Name string `serialize:"true" json:"name"`
	Code []byte `serialize:"true" json:"code"`
}

func (p *Publish) SyntacticVerify() error {
	switch {
	case len(p.Name) == 0:
		return errEmptyModuleName
	case len(p.Name) > 128:
		return errModuleNameTooLong
	case len(p.Code) == 0:
		return errEmptyModuleCode
	case len(p.Code) > MaxModuleSize:
		return errModuleTooLarge
	}
	return nil
}

// WriteSetPayload applies a write set directly to the ledger, bypassing
// normal execution. Only the root account may send it.
type WriteSetPayload struct {
	WriteSet WriteSet        `serialize:"true" json:"writeSet"`
	Events   []ContractEvent `serialize:"true" json:"events"`
}

func (w *WriteSetPayload) SyntacticVerify() error {
	if w.WriteSet.Len() == 0 {
		return errEmptyWriteSet
	}
	// Freeze is the only constructor for WriteSet, but payloads arrive
	// over the wire, so re-check ordering here.
	for i := 1; i < len(w.WriteSet.Ops); i++ {
		if w.WriteSet.Ops[i-1].Key.Compare(w.WriteSet.Ops[i].Key) >= 0 {
			return errDuplicateWriteKey
		}
	}
	return nil
}
