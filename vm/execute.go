// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import (
	"fmt"
	"math"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/avalanchego/ids"
	safemath "github.com/ava-labs/avalanchego/utils/math"

	"github.com/slatevm/slate/state"
	"github.com/slatevm/slate/types"
)

// ExecuteTransaction runs one signed transaction against [view] at
// block time [blockTime] and returns its output. Nothing is applied to
// [view]; the caller decides what to do with the write set. Internal
// failures (codec or storage errors) are returned as an error and mean
// the block cannot be formed, not that the transaction is at fault.
func (vm *VM) ExecuteTransaction(view state.View, txn *types.SignedTransaction, blockTime uint64) (types.TransactionOutput, error) {
	if _, ok := txn.Raw.Payload.(*types.WriteSetPayload); ok {
		return vm.executeWriteSet(view, txn, blockTime)
	}

	if code, ok := vm.validate(view, txn, blockTime); !ok {
		return types.DiscardedOutput(code), nil
	}

	size, err := txn.Size()
	if err != nil {
		return types.DiscardedOutput(types.StatusDataFormatError), nil
	}
	meter := newGasMeter(txn.Raw.MaxGasAmount)
	if err := meter.Charge(vm.config.GasConstants.IntrinsicGas(size)); err != nil {
		return vm.failureEpilogue(view, txn, meter, types.StatusOutOfGas)
	}

	// The maximum possible fee is withheld before the payload runs so a
	// sender cannot spend coins the epilogue needs. The unused portion
	// is refunded on the way out.
	sess := newSession(view)
	deposit, err := safemath.Mul64(txn.Raw.MaxGasAmount, txn.Raw.GasUnitPrice)
	if err != nil {
		return types.DiscardedOutput(types.StatusInsufficientBalance), nil
	}
	balance, err := sess.getBalance(txn.Raw.Sender)
	if err != nil {
		return types.TransactionOutput{}, err
	}
	if err := sess.setBalance(txn.Raw.Sender, balance-deposit); err != nil {
		return types.TransactionOutput{}, err
	}

	abortCode, aborted, err := vm.runPayload(sess, txn)
	if err != nil {
		return types.TransactionOutput{}, err
	}
	if aborted {
		return vm.failureEpilogue(view, txn, meter, abortCode)
	}

	writeCharge, err := safemath.Mul64(sess.writeCount(), vm.config.GasConstants.GlobalWriteGasPerOp)
	if err != nil {
		return vm.failureEpilogue(view, txn, meter, types.StatusOutOfGas)
	}
	if err := meter.Charge(writeCharge); err != nil {
		return vm.failureEpilogue(view, txn, meter, types.StatusOutOfGas)
	}

	// Success epilogue: refund unused gas and advance the sequence
	// number inside the same session so payload changes to the account
	// resource survive.
	fee, err := meter.Fee(txn.Raw.GasUnitPrice)
	if err != nil {
		return vm.failureEpilogue(view, txn, meter, types.StatusOutOfGas)
	}
	balance, err = sess.getBalance(txn.Raw.Sender)
	if err != nil {
		return types.TransactionOutput{}, err
	}
	refund := deposit - fee
	newBalance, err := safemath.Add64(balance, refund)
	if err != nil {
		return types.TransactionOutput{}, fmt.Errorf("balance overflow on refund: %w", err)
	}
	if err := sess.setBalance(txn.Raw.Sender, newBalance); err != nil {
		return types.TransactionOutput{}, err
	}
	if err := vm.bumpSequenceNumber(sess, txn.Raw.Sender); err != nil {
		return types.TransactionOutput{}, err
	}

	ws, events, err := sess.finish()
	if err != nil {
		return types.DiscardedOutput(types.StatusDataFormatError), nil
	}
	return types.NewTransactionOutput(ws, events, meter.Used(), types.Keep(types.StatusExecuted)), nil
}

// validate is the transaction prologue: every check that can discard a
// transaction before execution, in order.
func (vm *VM) validate(view state.View, txn *types.SignedTransaction, blockTime uint64) (types.StatusCode, bool) {
	size, err := txn.Size()
	if err != nil {
		return types.StatusDataFormatError, false
	}
	if code, ok := vm.checkGas(txn, size); !ok {
		return code, false
	}

	if txn.Raw.Payload == nil {
		return types.StatusUnknownPayload, false
	}
	if err := txn.Raw.Payload.SyntacticVerify(); err != nil {
		log.Debug("payload failed syntactic verification", "err", err)
		return types.StatusDataFormatError, false
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

	deposit, err := safemath.Mul64(txn.Raw.MaxGasAmount, txn.Raw.GasUnitPrice)
	if err != nil {
		return types.StatusInsufficientBalance, false
	}
	balance, err := state.NewAccountView(view, txn.Raw.Sender).Balance()
	if err != nil || balance < deposit {
		return types.StatusInsufficientBalance, false
	}

	if _, isPublish := txn.Raw.Payload.(*types.Publish); isPublish {
		if !vm.publishing.Open && txn.Raw.Sender != types.RootAddress {
			return types.StatusModulePublishingDisabled, false
		}
	}
	return 0, true
}

// Validate exposes the prologue for admission control: a mempool or RPC
// surface can reject transactions that would be discarded anyway.
func (vm *VM) Validate(view state.View, txn *types.SignedTransaction, blockTime uint64) (types.StatusCode, bool) {
	if _, ok := txn.Raw.Payload.(*types.WriteSetPayload); ok {
		return vm.validateWriteSet(view, txn, blockTime)
	}
	return vm.validate(view, txn, blockTime)
}

// runPayload dispatches to the payload handler. The returned status
// code is only meaningful when aborted is true.
func (vm *VM) runPayload(sess *session, txn *types.SignedTransaction) (types.StatusCode, bool, error) {
	sender := txn.Raw.Sender
	switch payload := txn.Raw.Payload.(type) {
	case *types.Transfer:
		return vm.applyTransfer(sess, sender, payload)
	case *types.CreateAccount:
		return vm.applyCreateAccount(sess, sender, payload)
	case *types.Mint:
		return vm.applyMint(sess, sender, payload)
	case *types.RotateAuthKey:
		return vm.applyRotateAuthKey(sess, sender, payload)
	case *types.Publish:
		return vm.applyPublish(sess, sender, payload)
	default:
		return types.StatusUnknownPayload, true, nil
	}
}

func (vm *VM) applyTransfer(sess *session, sender ids.ShortID, payload *types.Transfer) (types.StatusCode, bool, error) {
	senderBalance, err := sess.getBalance(sender)
	if err != nil {
		return 0, false, err
	}
	if senderBalance < payload.Amount {
		return types.StatusInsufficientBalance, true, nil
	}

	if sender == payload.To {
		return vm.applySelfTransfer(sess, sender, payload)
	}

	recipient, err := sess.getAccount(payload.To)
	if err != nil {
		return 0, false, err
	}
	if recipient == nil {
		return types.StatusMissingData, true, nil
	}
	recipientBalance, err := sess.getBalance(payload.To)
	if err != nil {
		return 0, false, err
	}
	newRecipientBalance, err := safemath.Add64(recipientBalance, payload.Amount)
	if err != nil {
		return types.StatusAborted, true, nil
	}

	senderAccount, err := sess.getAccount(sender)
	if err != nil {
		return 0, false, err
	}

	eventData, err := types.Marshal(&types.PaymentEvent{
		Amount:       payload.Amount,
		Counterparty: payload.To,
	})
	if err != nil {
		return 0, false, err
	}
	sess.emit(&senderAccount.SentEvents, types.EventTypeSentPayment, eventData)

	eventData, err = types.Marshal(&types.PaymentEvent{
		Amount:       payload.Amount,
		Counterparty: sender,
	})
	if err != nil {
		return 0, false, err
	}
	sess.emit(&recipient.ReceivedEvents, types.EventTypeReceivedPayment, eventData)

	if err := sess.setBalance(sender, senderBalance-payload.Amount); err != nil {
		return 0, false, err
	}
	if err := sess.setBalance(payload.To, newRecipientBalance); err != nil {
		return 0, false, err
	}
	if err := sess.setAccount(sender, senderAccount); err != nil {
		return 0, false, err
	}
	if err := sess.setAccount(payload.To, recipient); err != nil {
		return 0, false, err
	}
	return 0, false, nil
}

// applySelfTransfer settles a payment whose sender and recipient are
// the same account. The withdraw and deposit cancel out, so the balance
// stays put and only the event legs move, through the one account
// resource.
func (vm *VM) applySelfTransfer(sess *session, sender ids.ShortID, payload *types.Transfer) (types.StatusCode, bool, error) {
	account, err := sess.getAccount(sender)
	if err != nil {
		return 0, false, err
	}

	eventData, err := types.Marshal(&types.PaymentEvent{
		Amount:       payload.Amount,
		Counterparty: sender,
	})
	if err != nil {
		return 0, false, err
	}
	sess.emit(&account.SentEvents, types.EventTypeSentPayment, eventData)
	sess.emit(&account.ReceivedEvents, types.EventTypeReceivedPayment, eventData)

	if err := sess.setAccount(sender, account); err != nil {
		return 0, false, err
	}
	return 0, false, nil
}

func (vm *VM) applyCreateAccount(sess *session, sender ids.ShortID, payload *types.CreateAccount) (types.StatusCode, bool, error) {
	existing, err := sess.getAccount(payload.To)
	if err != nil {
		return 0, false, err
	}
	if existing != nil {
		return types.StatusAborted, true, nil
	}

	account := types.NewAccountResource(payload.To, payload.AuthKey)
	if err := sess.setAccount(payload.To, &account); err != nil {
		return 0, false, err
	}
	if err := sess.setBalance(payload.To, 0); err != nil {
		return 0, false, err
	}

	senderAccount, err := sess.getAccount(sender)
	if err != nil {
		return 0, false, err
	}
	sess.emit(&senderAccount.SentEvents, types.EventTypeAccountCreated, payload.To[:])
	if err := sess.setAccount(sender, senderAccount); err != nil {
		return 0, false, err
	}
	return 0, false, nil
}

func (vm *VM) applyMint(sess *session, sender ids.ShortID, payload *types.Mint) (types.StatusCode, bool, error) {
	if sender != types.RootAddress {
		return types.StatusAborted, true, nil
	}

	recipient, err := sess.getAccount(payload.To)
	if err != nil {
		return 0, false, err
	}
	if recipient == nil {
		return types.StatusMissingData, true, nil
	}
	balance, err := sess.getBalance(payload.To)
	if err != nil {
		return 0, false, err
	}
	newBalance, err := safemath.Add64(balance, payload.Amount)
	if err != nil {
		return types.StatusAborted, true, nil
	}

	eventData, err := types.Marshal(&types.PaymentEvent{
		Amount:       payload.Amount,
		Counterparty: sender,
	})
	if err != nil {
		return 0, false, err
	}
	sess.emit(&recipient.ReceivedEvents, types.EventTypeMint, eventData)

	if err := sess.setBalance(payload.To, newBalance); err != nil {
		return 0, false, err
	}
	if err := sess.setAccount(payload.To, recipient); err != nil {
		return 0, false, err
	}
	return 0, false, nil
}

func (vm *VM) applyRotateAuthKey(sess *session, sender ids.ShortID, payload *types.RotateAuthKey) (types.StatusCode, bool, error) {
	account, err := sess.getAccount(sender)
	if err != nil {
		return 0, false, err
	}
	account.AuthKey = payload.NewAuthKey
	if err := sess.setAccount(sender, account); err != nil {
		return 0, false, err
	}
	return 0, false, nil
}

func (vm *VM) applyPublish(sess *session, sender ids.ShortID, payload *types.Publish) (types.StatusCode, bool, error) {
	exists, err := sess.hasModule(sender, payload.Name)
	if err != nil {
		return 0, false, err
	}
	if exists {
		// Republishing under the same name is an execution abort, not a
		// silent overwrite.
		return types.StatusAborted, true, nil
	}
	sess.put(types.CodeKey(sender, payload.Name), payload.Code)

	account, err := sess.getAccount(sender)
	if err != nil {
		return 0, false, err
	}
	sess.emit(&account.SentEvents, types.EventTypeModulePublished, []byte(payload.Name))
	if err := sess.setAccount(sender, account); err != nil {
		return 0, false, err
	}
	return 0, false, nil
}

// failureEpilogue is run when a kept transaction aborts: the payload's
// writes are thrown away, but gas is still charged and the sequence
// number still advances so the transaction cannot be replayed.
func (vm *VM) failureEpilogue(view state.View, txn *types.SignedTransaction, meter *gasMeter, code types.StatusCode) (types.TransactionOutput, error) {
	sess := newSession(view)

	fee, err := meter.Fee(txn.Raw.GasUnitPrice)
	if err != nil {
		return types.TransactionOutput{}, err
	}
	balance, err := sess.getBalance(txn.Raw.Sender)
	if err != nil {
		return types.TransactionOutput{}, err
	}
	newBalance, err := safemath.Sub64(balance, fee)
	if err != nil {
		// The prologue guaranteed balance covers the max fee; anything
		// else is state corruption.
		return types.TransactionOutput{}, fmt.Errorf("fee exceeds balance in failure epilogue: %w", err)
	}
	if err := sess.setBalance(txn.Raw.Sender, newBalance); err != nil {
		return types.TransactionOutput{}, err
	}
	if err := vm.bumpSequenceNumber(sess, txn.Raw.Sender); err != nil {
		return types.TransactionOutput{}, err
	}

	ws, events, err := sess.finish()
	if err != nil {
		return types.TransactionOutput{}, err
	}
	return types.NewTransactionOutput(ws, events, meter.Used(), types.Keep(code)), nil
}

func (vm *VM) bumpSequenceNumber(sess *session, sender ids.ShortID) error {
	account, err := sess.getAccount(sender)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("sender %s disappeared mid-transaction", sender)
	}
	account.SequenceNumber++
	return sess.setAccount(sender, account)
}
