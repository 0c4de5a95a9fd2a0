// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"testing"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/stretchr/testify/assert"

	"github.com/slatevm/slate/types"
)

func TestCachedViewRecordsReads(t *testing.T) {
	assert := assert.New(t)

	base := NewMockView()
	addr := ids.ShortID{1}
	balanceKey := types.ResourceKey(addr, types.BalanceResourceName)
	accountKey := types.ResourceKey(addr, types.AccountResourceName)
	base.Set(balanceKey, []byte{5})

	view := NewCachedView(base)

	value, err := view.Get(balanceKey)
	assert.NoError(err)
	assert.Equal([]byte{5}, value)

	// Misses are recorded and cached too.
	_, err = view.Get(accountKey)
	assert.ErrorIs(err, database.ErrNotFound)

	// Re-reads come from the cache: mutate the base and observe the old
	// values.
	base.Set(balanceKey, []byte{6})
	base.Set(accountKey, []byte{7})

	value, err = view.Get(balanceKey)
	assert.NoError(err)
	assert.Equal([]byte{5}, value)
	_, err = view.Get(accountKey)
	assert.ErrorIs(err, database.ErrNotFound)

	readSet := view.ReadSet()
	assert.Len(readSet, 2)
	assert.True(readSet[0].Compare(readSet[1]) < 0)

	assert.True(view.ReadsIntersect(map[string]struct{}{
		string(balanceKey.Bytes()): {},
	}))
	assert.False(view.ReadsIntersect(map[string]struct{}{
		string(types.ConfigKey("other").Bytes()): {},
	}))
}

func TestOverlayViewShadowsBase(t *testing.T) {
	assert := assert.New(t)

	base := NewMockView()
	addr := ids.ShortID{1}
	balanceKey := types.ResourceKey(addr, types.BalanceResourceName)
	accountKey := types.ResourceKey(addr, types.AccountResourceName)
	base.Set(balanceKey, []byte{5})
	base.Set(accountKey, []byte{1})

	overlay := NewOverlayView(base)
	assert.False(overlay.Dirty())

	m := types.NewWriteSetMut()
	m.Put(balanceKey, []byte{9})
	m.Delete(accountKey)
	ws, err := m.Freeze()
	assert.NoError(err)
	overlay.ApplyWriteSet(ws)
	assert.True(overlay.Dirty())

	value, err := overlay.Get(balanceKey)
	assert.NoError(err)
	assert.Equal([]byte{9}, value)

	_, err = overlay.Get(accountKey)
	assert.ErrorIs(err, database.ErrNotFound)

	// Keys outside the overlay fall through to the base.
	other := types.ConfigKey("other")
	base.Set(other, []byte{3})
	value, err = overlay.Get(other)
	assert.NoError(err)
	assert.Equal([]byte{3}, value)
}

func TestAccountViewTypedReads(t *testing.T) {
	assert := assert.New(t)

	base := NewMockView()
	addr := ids.ShortID{2}
	base.SetAccount(addr, types.NewAccountResource(addr, ids.ShortID{0xff}), 77)
	base.SetConfigs(types.DefaultVMConfig(), types.VersionConfig{Major: 1}, types.PublishingOption{Open: true}, 4)

	view := NewAccountView(base, addr)

	exists, err := view.Exists()
	assert.NoError(err)
	assert.True(exists)

	account, err := view.GetAccountResource()
	assert.NoError(err)
	assert.Equal(ids.ShortID{0xff}, account.AuthKey)

	balance, err := view.Balance()
	assert.NoError(err)
	assert.Equal(uint64(77), balance)

	missing := NewAccountView(base, ids.ShortID{9})
	exists, err = missing.Exists()
	assert.NoError(err)
	assert.False(exists)
	balance, err = missing.Balance()
	assert.NoError(err)
	assert.Zero(balance)

	config, err := GetVMConfig(base)
	assert.NoError(err)
	assert.Equal(types.DefaultGasConstants(), config.GasConstants)

	version, err := GetVersionConfig(base)
	assert.NoError(err)
	assert.Equal(uint64(1), version.Major)

	publishing, err := GetPublishingOption(base)
	assert.NoError(err)
	assert.True(publishing.Open)

	// A bare view has no configs.
	empty := NewMockView()
	config, err = GetVMConfig(empty)
	assert.NoError(err)
	assert.Nil(config)
}
