// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import (
	"github.com/ava-labs/avalanchego/ids"

	"github.com/slatevm/slate/types"
)

// GenesisConfig describes the initial ledger state.
type GenesisConfig struct {
	RootAuthKey      ids.ShortID
	InitialSupply    uint64
	ChainID          uint32
	VMConfig         types.VMConfig
	LedgerVersion    types.VersionConfig
	PublishingOption types.PublishingOption
}

// DefaultGenesisConfig returns a genesis suitable for tests: default
// gas constants, closed publishing, and the whole supply on the root
// account.
func DefaultGenesisConfig(rootAuthKey ids.ShortID, chainID uint32) GenesisConfig {
	return GenesisConfig{
		RootAuthKey:   rootAuthKey,
		InitialSupply: 1_000_000_000_000,
		ChainID:       chainID,
		VMConfig:      types.DefaultVMConfig(),
		LedgerVersion: types.VersionConfig{Major: 1},
	}
}

// BuildGenesisWriteSet produces the write set that bootstraps a ledger:
// the root account holding the initial supply plus all on-chain
// configuration the VM boots from.
func BuildGenesisWriteSet(config GenesisConfig) (types.WriteSet, error) {
	m := types.NewWriteSetMut()

	rootAccount := types.NewAccountResource(types.RootAddress, config.RootAuthKey)
	accountBlob, err := types.Marshal(&rootAccount)
	if err != nil {
		return types.WriteSet{}, err
	}
	m.Put(types.ResourceKey(types.RootAddress, types.AccountResourceName), accountBlob)

	balanceBlob, err := types.Marshal(&types.BalanceResource{Coins: config.InitialSupply})
	if err != nil {
		return types.WriteSet{}, err
	}
	m.Put(types.ResourceKey(types.RootAddress, types.BalanceResourceName), balanceBlob)

	vmConfigBlob, err := types.Marshal(&config.VMConfig)
	if err != nil {
		return types.WriteSet{}, err
	}
	m.Put(types.ConfigKey(types.VMConfigName), vmConfigBlob)

	versionBlob, err := types.Marshal(&config.LedgerVersion)
	if err != nil {
		return types.WriteSet{}, err
	}
	m.Put(types.ConfigKey(types.VersionConfigName), versionBlob)

	publishingBlob, err := types.Marshal(&config.PublishingOption)
	if err != nil {
		return types.WriteSet{}, err
	}
	m.Put(types.ConfigKey(types.PublishingOptionName), publishingBlob)

	chainIDBlob, err := types.Marshal(&types.ChainIDConfig{ID: config.ChainID})
	if err != nil {
		return types.WriteSet{}, err
	}
	m.Put(types.ConfigKey(types.ChainIDConfigName), chainIDBlob)

	return m.Freeze()
}
