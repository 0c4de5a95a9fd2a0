// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import (
	"math"

	"github.com/slatevm/slate/state"
	"github.com/slatevm/slate/types"
)

// validateWriteSet is the prologue for direct write-set transactions:
// only the root account may submit them, and they are never metered.
func (vm *VM) validateWriteSet(view state.View, txn *types.SignedTransaction, blockTime uint64) (types.StatusCode, bool) {
	payload, ok := txn.Raw.Payload.(*types.WriteSetPayload)
	if !ok {
		return types.StatusUnknownPayload, false
	}
	if err := payload.SyntacticVerify(); err != nil {
		return types.StatusInvalidWriteSet, false
	}

	if txn.Raw.Sender != types.RootAddress {
		return types.StatusRejectedWriteSet, false
	}
	if !txn.VerifySignature() {
		return types.StatusInvalidSignature, false
	}
	if txn.Raw.ChainID != vm.chainID {
		return types.StatusBadChainID, false
	}
	if txn.Raw.ExpirationTimestamp < blockTime {
		return types.StatusTransactionExpired, false
	}

	account, err := state.NewAccountView(view, txn.Raw.Sender).GetAccountResource()
	if err != nil || account == nil {
		return types.StatusMissingData, false
	}
	authKey, err := txn.AuthKey()
	if err != nil {
		return types.StatusInvalidSignature, false
	}
	if authKey != account.AuthKey {
		return types.StatusInvalidAuthKey, false
	}

	switch {
	case account.SequenceNumber == math.MaxUint64:
		return types.StatusSequenceNumberTooBig, false
	case txn.Raw.SequenceNumber < account.SequenceNumber:
		return types.StatusSequenceNumberTooOld, false
	case txn.Raw.SequenceNumber > account.SequenceNumber:
		return types.StatusSequenceNumberTooNew, false
	}
	return 0, true
}

// executeWriteSet applies a write-set payload verbatim, then advances
// the root sequence number on top of whatever the payload wrote.
func (vm *VM) executeWriteSet(view state.View, txn *types.SignedTransaction, blockTime uint64) (types.TransactionOutput, error) {
	if code, ok := vm.validateWriteSet(view, txn, blockTime); !ok {
		return types.DiscardedOutput(code), nil
	}
	payload := txn.Raw.Payload.(*types.WriteSetPayload)

	// The epilogue must observe the payload's writes: the write set may
	// itself rewrite the root account.
	overlay := state.NewOverlayView(view)
	overlay.ApplyWriteSet(payload.WriteSet)
	sess := newSession(overlay)
	if err := vm.bumpSequenceNumber(sess, txn.Raw.Sender); err != nil {
		return types.TransactionOutput{}, err
	}
	epilogueWS, _, err := sess.finish()
	if err != nil {
		return types.TransactionOutput{}, err
	}

	ws, err := payload.WriteSet.Merge(epilogueWS)
	if err != nil {
		return types.DiscardedOutput(types.StatusInvalidWriteSet), nil
	}
	return types.NewTransactionOutput(ws, payload.Events, 0, types.Keep(types.StatusExecuted)), nil
}
