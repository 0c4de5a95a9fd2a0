// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import (
	"testing"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/crypto"
	"github.com/stretchr/testify/assert"

	"github.com/slatevm/slate/state"
	"github.com/slatevm/slate/types"
)

const (
	testChainID   = 4
	testBlockTime = 1_000
	testMaxGas    = 500_000
	testGasPrice  = 1
)

var secpFactory = crypto.FactorySECP256K1R{}

type testAccount struct {
	key  crypto.PrivateKey
	addr ids.ShortID
}

func newKey(t *testing.T) crypto.PrivateKey {
	key, err := secpFactory.NewPrivateKey()
	assert.NoError(t, err)
	return key
}

// newTestAccount generates a keypair whose address and auth key are the
// hash of its public key, matching what CreateAccount would install.
func newTestAccount(t *testing.T) *testAccount {
	key := newKey(t)
	return &testAccount{key: key, addr: key.PublicKey().Address()}
}

func (a *testAccount) sign(t *testing.T, raw types.RawTransaction) *types.SignedTransaction {
	msg, err := raw.SigningBytes()
	assert.NoError(t, err)
	sig, err := a.key.Sign(msg)
	assert.NoError(t, err)
	return &types.SignedTransaction{
		Raw:       raw,
		PublicKey: a.key.PublicKey().Bytes(),
		Signature: sig,
	}
}

func (a *testAccount) transfer(t *testing.T, seq uint64, to ids.ShortID, amount uint64) *types.SignedTransaction {
	return a.sign(t, types.RawTransaction{
		Sender:              a.addr,
		SequenceNumber:      seq,
		Payload:             &types.Transfer{To: to, Amount: amount},
		MaxGasAmount:        testMaxGas,
		GasUnitPrice:        testGasPrice,
		ExpirationTimestamp: testBlockTime + 1_000,
		ChainID:             testChainID,
	})
}

type testEnv struct {
	view   *state.MockView
	vm     *VM
	root   *testAccount
	sender *testAccount
}

func newTestEnv(t *testing.T) *testEnv {
	view := state.NewMockView()
	view.SetConfigs(
		types.DefaultVMConfig(),
		types.VersionConfig{Major: 1},
		types.PublishingOption{},
		testChainID,
	)

	root := newTestAccount(t)
	root.addr = types.RootAddress
	view.SetAccount(types.RootAddress, types.NewAccountResource(types.RootAddress, root.key.PublicKey().Address()), 1_000_000_000)

	sender := newTestAccount(t)
	view.SetAccount(sender.addr, types.NewAccountResource(sender.addr, sender.addr), 10_000_000)

	machine, err := New(view)
	assert.NoError(t, err)
	return &testEnv{view: view, vm: machine, root: root, sender: sender}
}

// execute runs [txn] and applies its write set to the backing view, the
// way a block executor would.
func (e *testEnv) execute(t *testing.T, txn *types.SignedTransaction) types.TransactionOutput {
	out, err := e.vm.ExecuteTransaction(e.view, txn, testBlockTime)
	assert.NoError(t, err)
	if !out.Status.Discarded {
		e.view.ApplyWriteSet(out.WriteSet)
	}
	return out
}

func (e *testEnv) balance(t *testing.T, addr ids.ShortID) uint64 {
	balance, err := state.NewAccountView(e.view, addr).Balance()
	assert.NoError(t, err)
	return balance
}

func (e *testEnv) sequenceNumber(t *testing.T, addr ids.ShortID) uint64 {
	account, err := state.NewAccountView(e.view, addr).GetAccountResource()
	assert.NoError(t, err)
	assert.NotNil(t, account)
	return account.SequenceNumber
}

func TestStartupRequiresOnChainConfig(t *testing.T) {
	assert := assert.New(t)
	_, err := New(state.NewMockView())
	assert.ErrorIs(err, ErrStartup)
}

func TestTransferHappyPath(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t)

	recipient := newTestAccount(t)
	env.view.SetAccount(recipient.addr, types.NewAccountResource(recipient.addr, recipient.addr), 0)

	senderBefore := env.balance(t, env.sender.addr)
	out := env.execute(t, env.sender.transfer(t, 0, recipient.addr, 1_000))

	assert.True(out.Status.IsSuccess(), out.Status.String())
	assert.NotZero(out.GasUsed)
	assert.Equal(uint64(1_000), env.balance(t, recipient.addr))

	fee := out.GasUsed * testGasPrice
	assert.Equal(senderBefore-1_000-fee, env.balance(t, env.sender.addr))
	assert.Equal(uint64(1), env.sequenceNumber(t, env.sender.addr))

	// One sent payment and one received payment.
	assert.Len(out.Events, 2)
	assert.Equal(types.EventTypeSentPayment, out.Events[0].Type)
	assert.Equal(types.EventTypeReceivedPayment, out.Events[1].Type)
	assert.Equal(env.sender.addr, out.Events[0].Key.Address)
	assert.Equal(recipient.addr, out.Events[1].Key.Address)
	assert.Zero(out.Events[0].SequenceNumber)

	// Event counters advanced inside the account resources.
	account, err := state.NewAccountView(env.view, env.sender.addr).GetAccountResource()
	assert.NoError(err)
	assert.Equal(uint64(1), account.SentEvents.Counter)
}

func TestSelfTransferConservesBalance(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t)

	before := env.balance(t, env.sender.addr)
	out := env.execute(t, env.sender.transfer(t, 0, env.sender.addr, 1_000))

	assert.True(out.Status.IsSuccess(), out.Status.String())
	assert.NotZero(out.GasUsed)

	// The withdraw and the deposit land on the same balance, so only
	// the fee may leave the account.
	fee := out.GasUsed * testGasPrice
	assert.Equal(before-fee, env.balance(t, env.sender.addr))
	assert.Equal(uint64(1), env.sequenceNumber(t, env.sender.addr))

	// Both payment legs still fire, against the one account.
	assert.Len(out.Events, 2)
	assert.Equal(types.EventTypeSentPayment, out.Events[0].Type)
	assert.Equal(types.EventTypeReceivedPayment, out.Events[1].Type)
	assert.Equal(env.sender.addr, out.Events[0].Key.Address)
	assert.Equal(env.sender.addr, out.Events[1].Key.Address)

	account, err := state.NewAccountView(env.view, env.sender.addr).GetAccountResource()
	assert.NoError(err)
	assert.Equal(uint64(1), account.SentEvents.Counter)
	assert.Equal(uint64(1), account.ReceivedEvents.Counter)
}

func TestTransferAbortChargesGasAndBumpsSequence(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t)

	recipient := newTestAccount(t)
	env.view.SetAccount(recipient.addr, types.NewAccountResource(recipient.addr, recipient.addr), 0)

	senderBefore := env.balance(t, env.sender.addr)
	out := env.execute(t, env.sender.transfer(t, 0, recipient.addr, senderBefore*2))

	assert.False(out.Status.Discarded)
	assert.Equal(types.StatusInsufficientBalance, out.Status.Code)
	assert.NotZero(out.GasUsed)
	assert.Empty(out.Events)

	// The payload's effects are gone, but gas was paid and the sequence
	// number moved so the transaction cannot be replayed.
	assert.Zero(env.balance(t, recipient.addr))
	assert.Equal(senderBefore-out.GasUsed*testGasPrice, env.balance(t, env.sender.addr))
	assert.Equal(uint64(1), env.sequenceNumber(t, env.sender.addr))
}

func TestTransferToMissingRecipientAborts(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t)

	out := env.execute(t, env.sender.transfer(t, 0, ids.ShortID{0xde, 0xad}, 5))
	assert.Equal(types.Keep(types.StatusMissingData), out.Status)
	assert.Equal(uint64(1), env.sequenceNumber(t, env.sender.addr))
}

func TestPrologueDiscards(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t)

	recipient := newTestAccount(t)
	env.view.SetAccount(recipient.addr, types.NewAccountResource(recipient.addr, recipient.addr), 0)

	tests := []struct {
		name string
		txn  *types.SignedTransaction
		code types.StatusCode
	}{
		{
			name: "tampered signature",
			txn: func() *types.SignedTransaction {
				txn := env.sender.transfer(t, 0, recipient.addr, 1)
				txn.Raw.SequenceNumber = 1 // signature no longer covers this
				return txn
			}(),
			code: types.StatusInvalidSignature,
		},
		{
			name: "wrong chain",
			txn: env.sender.sign(t, types.RawTransaction{
				Sender:              env.sender.addr,
				Payload:             &types.Transfer{To: recipient.addr, Amount: 1},
				MaxGasAmount:        testMaxGas,
				GasUnitPrice:        testGasPrice,
				ExpirationTimestamp: testBlockTime + 1_000,
				ChainID:             testChainID + 1,
			}),
			code: types.StatusBadChainID,
		},
		{
			name: "expired",
			txn: env.sender.sign(t, types.RawTransaction{
				Sender:              env.sender.addr,
				Payload:             &types.Transfer{To: recipient.addr, Amount: 1},
				MaxGasAmount:        testMaxGas,
				GasUnitPrice:        testGasPrice,
				ExpirationTimestamp: testBlockTime - 1,
				ChainID:             testChainID,
			}),
			code: types.StatusTransactionExpired,
		},
		{
			name: "sequence number too new",
			txn:  env.sender.transfer(t, 9, recipient.addr, 1),
			code: types.StatusSequenceNumberTooNew,
		},
		{
			name: "unknown sender",
			txn:  newTestAccount(t).transfer(t, 0, recipient.addr, 1),
			code: types.StatusMissingData,
		},
		{
			name: "wrong key for sender",
			txn: func() *types.SignedTransaction {
				imposter := newTestAccount(t)
				imposter.addr = env.sender.addr
				return imposter.transfer(t, 0, recipient.addr, 1)
			}(),
			code: types.StatusInvalidAuthKey,
		},
		{
			name: "max gas above global bound",
			txn: env.sender.sign(t, types.RawTransaction{
				Sender:              env.sender.addr,
				Payload:             &types.Transfer{To: recipient.addr, Amount: 1},
				MaxGasAmount:        types.DefaultGasConstants().MaximumNumberOfGasUnits + 1,
				GasUnitPrice:        testGasPrice,
				ExpirationTimestamp: testBlockTime + 1_000,
				ChainID:             testChainID,
			}),
			code: types.StatusMaxGasUnitsExceedsBound,
		},
		{
			name: "max gas below intrinsic cost",
			txn: env.sender.sign(t, types.RawTransaction{
				Sender:              env.sender.addr,
				Payload:             &types.Transfer{To: recipient.addr, Amount: 1},
				MaxGasAmount:        1,
				GasUnitPrice:        testGasPrice,
				ExpirationTimestamp: testBlockTime + 1_000,
				ChainID:             testChainID,
			}),
			code: types.StatusMaxGasUnitsBelowIntrinsic,
		},
		{
			name: "gas price above max",
			txn: env.sender.sign(t, types.RawTransaction{
				Sender:              env.sender.addr,
				Payload:             &types.Transfer{To: recipient.addr, Amount: 1},
				MaxGasAmount:        testMaxGas,
				GasUnitPrice:        types.DefaultGasConstants().MaxPricePerGasUnit + 1,
				ExpirationTimestamp: testBlockTime + 1_000,
				ChainID:             testChainID,
			}),
			code: types.StatusGasUnitPriceAboveMaxBound,
		},
		{
			name: "malformed payload",
			txn: env.sender.sign(t, types.RawTransaction{
				Sender:              env.sender.addr,
				Payload:             &types.Transfer{To: recipient.addr},
				MaxGasAmount:        testMaxGas,
				GasUnitPrice:        testGasPrice,
				ExpirationTimestamp: testBlockTime + 1_000,
				ChainID:             testChainID,
			}),
			code: types.StatusDataFormatError,
		},
	}

	for _, test := range tests {
		out := env.execute(t, test.txn)
		assert.Equal(types.Discard(test.code), out.Status, test.name)
		assert.Zero(out.GasUsed, test.name)
		assert.Zero(out.WriteSet.Len(), test.name)
	}

	// Discards never touched the sender's account.
	assert.Zero(env.sequenceNumber(t, env.sender.addr))
}

func TestSequenceNumberTooOldAfterExecution(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t)

	recipient := newTestAccount(t)
	env.view.SetAccount(recipient.addr, types.NewAccountResource(recipient.addr, recipient.addr), 0)

	txn := env.sender.transfer(t, 0, recipient.addr, 1)
	out := env.execute(t, txn)
	assert.True(out.Status.IsSuccess())

	// Replaying the same transaction is now too old.
	out = env.execute(t, txn)
	assert.Equal(types.Discard(types.StatusSequenceNumberTooOld), out.Status)
	assert.Equal(uint64(1), env.balance(t, recipient.addr))
}

func TestInsufficientBalanceForGasDepositDiscards(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t)

	poor := newTestAccount(t)
	env.view.SetAccount(poor.addr, types.NewAccountResource(poor.addr, poor.addr), testMaxGas*testGasPrice-1)

	out := env.execute(t, poor.transfer(t, 0, types.RootAddress, 1))
	assert.Equal(types.Discard(types.StatusInsufficientBalance), out.Status)
}

func TestMintRequiresRoot(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t)

	out := env.execute(t, env.sender.sign(t, types.RawTransaction{
		Sender:              env.sender.addr,
		Payload:             &types.Mint{To: env.sender.addr, Amount: 5},
		MaxGasAmount:        testMaxGas,
		GasUnitPrice:        testGasPrice,
		ExpirationTimestamp: testBlockTime + 1_000,
		ChainID:             testChainID,
	}))
	assert.Equal(types.Keep(types.StatusAborted), out.Status)

	before := env.balance(t, env.sender.addr)
	out = env.execute(t, env.root.sign(t, types.RawTransaction{
		Sender:              types.RootAddress,
		Payload:             &types.Mint{To: env.sender.addr, Amount: 5},
		MaxGasAmount:        testMaxGas,
		GasUnitPrice:        0,
		ExpirationTimestamp: testBlockTime + 1_000,
		ChainID:             testChainID,
	}))
	assert.True(out.Status.IsSuccess())
	assert.Equal(before+5, env.balance(t, env.sender.addr))
	assert.Len(out.Events, 1)
	assert.Equal(types.EventTypeMint, out.Events[0].Type)
}

func TestCreateAccountThenTransfer(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t)

	fresh := newTestAccount(t)
	out := env.execute(t, env.sender.sign(t, types.RawTransaction{
		Sender:              env.sender.addr,
		Payload:             &types.CreateAccount{To: fresh.addr, AuthKey: fresh.addr},
		MaxGasAmount:        testMaxGas,
		GasUnitPrice:        testGasPrice,
		ExpirationTimestamp: testBlockTime + 1_000,
		ChainID:             testChainID,
	}))
	assert.True(out.Status.IsSuccess())

	out = env.execute(t, env.sender.transfer(t, 1, fresh.addr, 123))
	assert.True(out.Status.IsSuccess())
	assert.Equal(uint64(123), env.balance(t, fresh.addr))

	// Creating the same account again aborts.
	out = env.execute(t, env.sender.sign(t, types.RawTransaction{
		Sender:              env.sender.addr,
		SequenceNumber:      2,
		Payload:             &types.CreateAccount{To: fresh.addr, AuthKey: fresh.addr},
		MaxGasAmount:        testMaxGas,
		GasUnitPrice:        testGasPrice,
		ExpirationTimestamp: testBlockTime + 1_000,
		ChainID:             testChainID,
	}))
	assert.Equal(types.Keep(types.StatusAborted), out.Status)
}

func TestRotateAuthKey(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t)

	newOwner := newTestAccount(t)
	out := env.execute(t, env.sender.sign(t, types.RawTransaction{
		Sender:              env.sender.addr,
		Payload:             &types.RotateAuthKey{NewAuthKey: newOwner.key.PublicKey().Address()},
		MaxGasAmount:        testMaxGas,
		GasUnitPrice:        testGasPrice,
		ExpirationTimestamp: testBlockTime + 1_000,
		ChainID:             testChainID,
	}))
	assert.True(out.Status.IsSuccess())

	// The old key no longer authenticates the account.
	out = env.execute(t, env.sender.transfer(t, 1, types.RootAddress, 1))
	assert.Equal(types.Discard(types.StatusInvalidAuthKey), out.Status)

	// The new key does.
	newOwner.addr = env.sender.addr
	out = env.execute(t, newOwner.transfer(t, 1, types.RootAddress, 1))
	assert.True(out.Status.IsSuccess())
}

func TestPublishGateAndDuplicate(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t)

	publish := func(account *testAccount, seq uint64) *types.SignedTransaction {
		return account.sign(t, types.RawTransaction{
			Sender:              account.addr,
			SequenceNumber:      seq,
			Payload:             &types.Publish{Name: "coin", Code: []byte{0x01, 0x02}},
			MaxGasAmount:        testMaxGas,
			GasUnitPrice:        0,
			ExpirationTimestamp: testBlockTime + 1_000,
			ChainID:             testChainID,
		})
	}

	// Publishing is closed at genesis: non-root publishers are discarded.
	out := env.execute(t, publish(env.sender, 0))
	assert.Equal(types.Discard(types.StatusModulePublishingDisabled), out.Status)

	// Root may always publish.
	out = env.execute(t, publish(env.root, 0))
	assert.True(out.Status.IsSuccess())
	assert.Len(out.Events, 1)
	assert.Equal(types.EventTypeModulePublished, out.Events[0].Type)

	code, err := env.view.Get(types.CodeKey(types.RootAddress, "coin"))
	assert.NoError(err)
	assert.Equal([]byte{0x01, 0x02}, code)

	// Same name again aborts.
	out = env.execute(t, publish(env.root, 1))
	assert.Equal(types.Keep(types.StatusAborted), out.Status)
}

func TestWriteSetTransaction(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t)

	m := types.NewWriteSetMut()
	m.Put(types.ConfigKey("custom"), []byte{0x07})
	openPublishing, err := types.Marshal(&types.PublishingOption{Open: true})
	assert.NoError(err)
	m.Put(types.ConfigKey(types.PublishingOptionName), openPublishing)
	ws, err := m.Freeze()
	assert.NoError(err)

	writeSetTxn := func(account *testAccount, seq uint64) *types.SignedTransaction {
		return account.sign(t, types.RawTransaction{
			Sender:              account.addr,
			SequenceNumber:      seq,
			Payload:             &types.WriteSetPayload{WriteSet: ws},
			ExpirationTimestamp: testBlockTime + 1_000,
			ChainID:             testChainID,
		})
	}

	// Only root may submit write sets.
	out := env.execute(t, writeSetTxn(env.sender, 0))
	assert.Equal(types.Discard(types.StatusRejectedWriteSet), out.Status)

	out = env.execute(t, writeSetTxn(env.root, 0))
	assert.True(out.Status.IsSuccess())
	assert.Zero(out.GasUsed)

	value, err := env.view.Get(types.ConfigKey("custom"))
	assert.NoError(err)
	assert.Equal([]byte{0x07}, value)
	assert.Equal(uint64(1), env.sequenceNumber(t, types.RootAddress))

	// The write set reopened publishing: a VM booted from the updated
	// state lets anyone publish.
	reloaded, err := New(env.view)
	assert.NoError(err)
	out, err = reloaded.ExecuteTransaction(env.view, env.sender.sign(t, types.RawTransaction{
		Sender:              env.sender.addr,
		Payload:             &types.Publish{Name: "coin", Code: []byte{0x01}},
		MaxGasAmount:        testMaxGas,
		GasUnitPrice:        0,
		ExpirationTimestamp: testBlockTime + 1_000,
		ChainID:             testChainID,
	}), testBlockTime)
	assert.NoError(err)
	assert.True(out.Status.IsSuccess())
}

func TestGenesisWriteSetBootsVM(t *testing.T) {
	assert := assert.New(t)

	rootKey := newKey(t)
	view := state.NewMockView()
	ws, err := BuildGenesisWriteSet(DefaultGenesisConfig(rootKey.PublicKey().Address(), testChainID))
	assert.NoError(err)
	view.ApplyWriteSet(ws)

	machine, err := New(view)
	assert.NoError(err)
	assert.Equal(uint32(testChainID), machine.ChainID())
	assert.Equal(types.DefaultGasConstants(), machine.Config().GasConstants)

	balance, err := state.NewAccountView(view, types.RootAddress).Balance()
	assert.NoError(err)
	assert.Equal(uint64(1_000_000_000_000), balance)
}
