// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"

	"github.com/slatevm/slate/types"
)

var _ View = (*MockView)(nil)

// MockView is a map-backed state view for tests.
type MockView struct {
	values map[string][]byte
}

func NewMockView() *MockView {
	return &MockView{values: make(map[string][]byte)}
}

func (m *MockView) Get(key types.StateKey) ([]byte, error) {
	value, ok := m.values[string(key.Bytes())]
	if !ok {
		return nil, database.ErrNotFound
	}
	return value, nil
}

// Set stores [value] under [key].
func (m *MockView) Set(key types.StateKey, value []byte) {
	m.values[string(key.Bytes())] = value
}

// Delete removes [key].
func (m *MockView) Delete(key types.StateKey) {
	delete(m.values, string(key.Bytes()))
}

// ApplyWriteSet applies [ws] to the backing map.
func (m *MockView) ApplyWriteSet(ws types.WriteSet) {
	for _, op := range ws.Ops {
		if op.Deletion {
			m.Delete(op.Key)
			continue
		}
		m.Set(op.Key, op.Value)
	}
}

// SetAccount seeds an account with the given resources. It panics on
// serialization failure, which cannot happen for these types.
func (m *MockView) SetAccount(addr ids.ShortID, account types.AccountResource, balance uint64) {
	accountBlob, err := types.Marshal(&account)
	if err != nil {
		panic(err)
	}
	balanceBlob, err := types.Marshal(&types.BalanceResource{Coins: balance})
	if err != nil {
		panic(err)
	}
	m.Set(types.ResourceKey(addr, types.AccountResourceName), accountBlob)
	m.Set(types.ResourceKey(addr, types.BalanceResourceName), balanceBlob)
}

// SetConfigs seeds the on-chain configuration needed to boot a VM.
func (m *MockView) SetConfigs(config types.VMConfig, version types.VersionConfig, publishing types.PublishingOption, chainID uint32) {
	configBlob, err := types.Marshal(&config)
	if err != nil {
		panic(err)
	}
	versionBlob, err := types.Marshal(&version)
	if err != nil {
		panic(err)
	}
	publishingBlob, err := types.Marshal(&publishing)
	if err != nil {
		panic(err)
	}
	chainIDBlob, err := types.Marshal(&types.ChainIDConfig{ID: chainID})
	if err != nil {
		panic(err)
	}
	m.Set(types.ConfigKey(types.VMConfigName), configBlob)
	m.Set(types.ConfigKey(types.VersionConfigName), versionBlob)
	m.Set(types.ConfigKey(types.PublishingOptionName), publishingBlob)
	m.Set(types.ConfigKey(types.ChainIDConfigName), chainIDBlob)
}
